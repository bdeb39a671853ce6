package mapping

import (
	"time"

	"gorm.io/datatypes"
)

// SiteMapping is a row of sites_mapping: one solar plant, linked between a
// VCOM system and a Yuman site.
type SiteMapping struct {
	ID              uint       `gorm:"column:id;primaryKey"`
	VcomSystemKey   *string    `gorm:"column:vcom_system_key;uniqueIndex"`
	YumanSiteID     *int64     `gorm:"column:yuman_site_id;uniqueIndex"`
	Name            *string    `gorm:"column:name"`
	Code            *string    `gorm:"column:code"`
	Address         *string    `gorm:"column:address"`
	Latitude        *float64   `gorm:"column:latitude"`
	Longitude       *float64   `gorm:"column:longitude"`
	NominalPower    *float64   `gorm:"column:nominal_power"`
	SiteArea        *float64   `gorm:"column:site_area"`
	CommissionDate  *time.Time `gorm:"column:commission_date;type:date"`
	AldiID          *string    `gorm:"column:aldi_id;index"`
	AldiStoreID     *string    `gorm:"column:aldi_store_id"`
	ProjectNumberCP *string    `gorm:"column:project_number_cp"`
	ClientMapID     *int64     `gorm:"column:client_map_id"`
	IgnoreSite      bool       `gorm:"column:ignore_site;default:false"`
	CreatedAt       *time.Time `gorm:"column:created_at"`
	IsObsolete      bool       `gorm:"column:is_obsolete;default:false"`
	ObsoleteAt      *time.Time `gorm:"column:obsolete_at"`
}

// TableName overrides the table name used by SiteMapping to `sites_mapping`.
func (SiteMapping) TableName() string { return "sites_mapping" }

// EquipmentMapping is a row of equipments_mapping: a module group, inverter or PV string.
type EquipmentMapping struct {
	ID              uint       `gorm:"column:id;primaryKey"`
	VcomDeviceID    *string    `gorm:"column:vcom_device_id;uniqueIndex"`
	YumanMaterialID *int64     `gorm:"column:yuman_material_id;uniqueIndex"`
	CategoryID      *int64     `gorm:"column:category_id"`
	EqType          *string    `gorm:"column:eq_type"`
	VcomSystemKey   *string    `gorm:"column:vcom_system_key;index"`
	SerialNumber    *string    `gorm:"column:serial_number"`
	Brand           *string    `gorm:"column:brand"`
	Model           *string    `gorm:"column:model"`
	Name            *string    `gorm:"column:name"`
	SiteID          *int64     `gorm:"column:site_id;index"`
	Count           *int64     `gorm:"column:count"`
	ParentID        *string    `gorm:"column:parent_id"`
	CreatedAt       *time.Time `gorm:"column:created_at"`
	IsObsolete      bool       `gorm:"column:is_obsolete;default:false"`
	ObsoleteAt      *time.Time `gorm:"column:obsolete_at"`
}

// TableName overrides the table name used by EquipmentMapping to `equipments_mapping`.
func (EquipmentMapping) TableName() string { return "equipments_mapping" }

// Ticket is a row of tickets, mirroring a VCOM incident ticket.
type Ticket struct {
	ID               uint       `gorm:"column:id;primaryKey"`
	VcomTicketID     *string    `gorm:"column:vcom_ticket_id;uniqueIndex"`
	SystemKey        *string    `gorm:"column:system_key;index"`
	Title            *string    `gorm:"column:title"`
	Description      *string    `gorm:"column:description"`
	Status           *string    `gorm:"column:status"`
	Priority         *string    `gorm:"column:priority"`
	LastChangedAt    *time.Time `gorm:"column:last_changed_at"`
	YumanWorkorderID *int64     `gorm:"column:yuman_workorder_id;index"`
	CreatedAt        *time.Time `gorm:"column:created_at"`
	IsObsolete       bool       `gorm:"column:is_obsolete;default:false"`
	ObsoleteAt       *time.Time `gorm:"column:obsolete_at"`
}

// TableName overrides the table name used by Ticket to `tickets`.
func (Ticket) TableName() string { return "tickets" }

// WorkOrder is a row of work_orders, mirroring a Yuman work order and its status history.
type WorkOrder struct {
	ID            uint           `gorm:"column:id;primaryKey"`
	WorkorderID   *int64         `gorm:"column:workorder_id;uniqueIndex"`
	Status        *string        `gorm:"column:status"`
	Title         *string        `gorm:"column:title"`
	Description   *string        `gorm:"column:description"`
	ClientID      *int64         `gorm:"column:client_id"`
	SiteID        *int64         `gorm:"column:site_id;index"`
	CategoryID    *int64         `gorm:"column:category_id"`
	TechnicianID  *int64         `gorm:"column:technician_id"`
	ScheduledDate *time.Time     `gorm:"column:scheduled_date"`
	DateDone      *time.Time     `gorm:"column:date_done"`
	CreatedAt     *time.Time     `gorm:"column:created_at"`
	UpdatedAt     *time.Time     `gorm:"column:updated_at"`
	WoHistory     datatypes.JSON `gorm:"column:wo_history"`
	IsObsolete    bool           `gorm:"column:is_obsolete;default:false"`
	ObsoleteAt    *time.Time     `gorm:"column:obsolete_at"`
}

// TableName overrides the table name used by WorkOrder to `work_orders`.
func (WorkOrder) TableName() string { return "work_orders" }

// ConflictRecord is a row of the append-only conflict log.
type ConflictRecord struct {
	ID         uint       `gorm:"column:id;primaryKey" json:"id"`
	EntityType string     `gorm:"column:entity_type;index" json:"entity_type"`
	LocalKey   string     `gorm:"column:local_key;index" json:"local_key"`
	FieldName  string     `gorm:"column:field_name" json:"field_name"`
	ValueA     *string    `gorm:"column:value_a" json:"value_a"`
	ValueB     *string    `gorm:"column:value_b" json:"value_b"`
	DetectedAt time.Time  `gorm:"column:detected_at" json:"detected_at"`
	Resolved   bool       `gorm:"column:resolved;index;default:false" json:"resolved"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	Resolution *string    `gorm:"column:resolution" json:"resolution,omitempty"`
}

// TableName overrides the table name used by ConflictRecord to `conflicts`.
func (ConflictRecord) TableName() string { return "conflicts" }

// WorkorderCategory is a row of the read-only workorder_categories reference table.
type WorkorderCategory struct {
	ID   int64  `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name" json:"name"`
}

// TableName overrides the table name used by WorkorderCategory to `workorder_categories`.
func (WorkorderCategory) TableName() string { return "workorder_categories" }

// ClientMapping is a row of clients_mapping, the operator-curated list of
// end clients a site's client_map_id points to.
type ClientMapping struct {
	ID            int64   `gorm:"column:id;primaryKey" json:"id"`
	Name          *string `gorm:"column:name" json:"name"`
	YumanClientID *int64  `gorm:"column:yuman_client_id;uniqueIndex" json:"yuman_client_id"`
}

// TableName overrides the table name used by ClientMapping to `clients_mapping`.
func (ClientMapping) TableName() string { return "clients_mapping" }

// AllModels lists the models backing the mapping store, for schema checks and test setup.
func AllModels() []any {
	return []any{
		&SiteMapping{},
		&EquipmentMapping{},
		&Ticket{},
		&WorkOrder{},
		&ConflictRecord{},
		&WorkorderCategory{},
		&ClientMapping{},
	}
}
