package mapping

import (
	"fmt"
	"sort"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
)

// Column is a physical column and the kind of value it holds.
type Column struct {
	Name string
	Kind Kind
}

// Profile describes how one entity type is laid out in the mapping store.
// Columns is the write whitelist: fields that are not listed are silently dropped.
type Profile struct {
	// EntityType is the entity type stored in the table.
	EntityType reconcile.EntityType

	// TableName is the mapping table.
	TableName string

	// IDColumn is the row identifier, exposed as Entity.LocalKey.
	IDColumn string

	// KeyA holds the VCOM identifier. Empty Name when the table has none.
	KeyA Column

	// KeyB holds the Yuman identifier. Empty Name when the table has none.
	KeyB Column

	// IdentityB selects KeyB instead of KeyA as the unique upsert target.
	IdentityB bool

	// ChangedAtColumn feeds Entity.ChangedAt. Optional.
	ChangedAtColumn string

	// Columns maps logical field names to physical columns.
	Columns map[string]Column
}

const (
	colIsObsolete = "is_obsolete"
	colObsoleteAt = "obsolete_at"
)

// Identity returns the unique column upserts conflict on.
func (p Profile) Identity() Column {
	if p.IdentityB {
		return p.KeyB
	}
	return p.KeyA
}

// Secondary returns the other source-key column, empty when the table has one key.
func (p Profile) Secondary() Column {
	if p.IdentityB {
		return p.KeyA
	}
	return p.KeyB
}

// Physical returns the column backing a logical name. Source keys can be
// addressed by their column name.
func (p Profile) Physical(field string) (Column, bool) {
	if c, ok := p.Columns[field]; ok {
		return c, true
	}
	for _, c := range []Column{p.KeyA, p.KeyB} {
		if c.Name != "" && c.Name == field {
			return c, true
		}
	}
	if field == p.IDColumn {
		return Column{Name: p.IDColumn, Kind: KindInt}, true
	}
	return Column{}, false
}

// ColumnNames lists every column the profile reads or writes, sorted.
func (p Profile) ColumnNames() []string {
	set := map[string]struct{}{p.IDColumn: {}, colIsObsolete: {}, colObsoleteAt: {}}
	for _, c := range []Column{p.KeyA, p.KeyB} {
		if c.Name != "" {
			set[c.Name] = struct{}{}
		}
	}
	if p.ChangedAtColumn != "" {
		set[p.ChangedAtColumn] = struct{}{}
	}
	for _, c := range p.Columns {
		set[c.Name] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SiteProfile returns the layout of sites_mapping.
func SiteProfile() Profile {
	return Profile{
		EntityType: reconcile.EntitySite,
		TableName:  "sites_mapping",
		IDColumn:   "id",
		KeyA:       Column{"vcom_system_key", KindString},
		KeyB:       Column{"yuman_site_id", KindInt},
		Columns: map[string]Column{
			"name":              {"name", KindString},
			"code":              {"code", KindString},
			"address":           {"address", KindString},
			"latitude":          {"latitude", KindFloat},
			"longitude":         {"longitude", KindFloat},
			"nominal_power":     {"nominal_power", KindFloat},
			"site_area":         {"site_area", KindFloat},
			"commission_date":   {"commission_date", KindDate},
			"aldi_id":           {"aldi_id", KindString},
			"aldi_store_id":     {"aldi_store_id", KindString},
			"project_number_cp": {"project_number_cp", KindString},
			"client_map_id":     {"client_map_id", KindInt},
			"ignore_site":       {"ignore_site", KindBool},
			"created_at":        {"created_at", KindTime},
		},
	}
}

// EquipmentProfile returns the layout of equipments_mapping.
func EquipmentProfile() Profile {
	return Profile{
		EntityType: reconcile.EntityEquipment,
		TableName:  "equipments_mapping",
		IDColumn:   "id",
		KeyA:       Column{"vcom_device_id", KindString},
		KeyB:       Column{"yuman_material_id", KindInt},
		Columns: map[string]Column{
			"category_id":     {"category_id", KindInt},
			"eq_type":         {"eq_type", KindString},
			"vcom_system_key": {"vcom_system_key", KindString},
			"serial_number":   {"serial_number", KindString},
			"brand":           {"brand", KindString},
			"model":           {"model", KindString},
			"name":            {"name", KindString},
			"site_id":         {"site_id", KindInt},
			"count":           {"count", KindInt},
			"parent_id":       {"parent_id", KindString},
			"created_at":      {"created_at", KindTime},
		},
	}
}

// TicketProfile returns the layout of tickets.
func TicketProfile() Profile {
	return Profile{
		EntityType:      reconcile.EntityTicket,
		TableName:       "tickets",
		IDColumn:        "id",
		KeyA:            Column{"vcom_ticket_id", KindString},
		ChangedAtColumn: "last_changed_at",
		Columns: map[string]Column{
			"system_key":         {"system_key", KindString},
			"title":              {"title", KindString},
			"description":        {"description", KindString},
			"status":             {"status", KindString},
			"priority":           {"priority", KindString},
			"yuman_workorder_id": {"yuman_workorder_id", KindInt},
			"created_at":         {"created_at", KindTime},
		},
	}
}

// WorkOrderProfile returns the layout of work_orders. The planned date is
// persisted in scheduled_date.
func WorkOrderProfile() Profile {
	return Profile{
		EntityType:      reconcile.EntityWorkOrder,
		TableName:       "work_orders",
		IDColumn:        "id",
		KeyB:            Column{"workorder_id", KindInt},
		IdentityB:       true,
		ChangedAtColumn: "updated_at",
		Columns: map[string]Column{
			"status":        {"status", KindString},
			"title":         {"title", KindString},
			"description":   {"description", KindString},
			"client_id":     {"client_id", KindInt},
			"site_id":       {"site_id", KindInt},
			"category_id":   {"category_id", KindInt},
			"technician_id": {"technician_id", KindInt},
			"planned_at":    {"scheduled_date", KindTime},
			"date_done":     {"date_done", KindTime},
			"created_at":    {"created_at", KindTime},
			"wo_history":    {"wo_history", KindJSON},
		},
	}
}

// DefaultProfiles returns the profile of every reconciled entity type.
func DefaultProfiles() map[reconcile.EntityType]Profile {
	out := make(map[reconcile.EntityType]Profile)
	for _, p := range []Profile{SiteProfile(), EquipmentProfile(), TicketProfile(), WorkOrderProfile()} {
		out[p.EntityType] = p
	}
	return out
}

// UnknownEntityTypeError is returned for entity types without a profile.
type UnknownEntityTypeError struct {
	EntityType reconcile.EntityType
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("no mapping profile for entity type %q", e.EntityType)
}
