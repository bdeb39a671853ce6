package yuman

import (
	"strings"

	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
)

// Material categories used by the reconciler.
const (
	CategoryInverter int64 = 11102
	CategoryModule   int64 = 11103
	CategoryPlant    int64 = 11441
)

// Workorder statuses as returned by Yuman.
const (
	StatusOpen       = "Open"
	StatusScheduled  = "Scheduled"
	StatusInProgress = "In progress"
	StatusClosed     = "Closed"
)

// Field is an embedded custom field value.
type Field struct {
	BlueprintID int64  `json:"blueprint_id"`
	Name        string `json:"name"`
	Value       any    `json:"value"`
}

// Embed holds the _embed block requested with ?embed=.
type Embed struct {
	Fields []Field `json:"fields"`
}

// FieldMap flattens custom fields to name → trimmed string value.
func (e Embed) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Name] = strings.TrimSpace(utils.ToString(f.Value))
	}
	return out
}

// Site is a Yuman site.
type Site struct {
	ID        int64    `json:"id"`
	ClientID  int64    `json:"client_id"`
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Embed     Embed    `json:"_embed"`
}

// Material is a Yuman material (inverter, module group, string).
type Material struct {
	ID           int64  `json:"id"`
	SiteID       int64  `json:"site_id"`
	CategoryID   int64  `json:"category_id"`
	Name         string `json:"name"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	ParentID     *int64 `json:"parent_id"`
	Embed        Embed  `json:"_embed"`
}

// Workorder is a Yuman work order.
type Workorder struct {
	ID           int64   `json:"id"`
	Number       string  `json:"number"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	CategoryID   *int64  `json:"category_id"`
	ClientID     *int64  `json:"client_id"`
	SiteID       *int64  `json:"site_id"`
	TechnicianID *int64  `json:"technician_id"`
	DatePlanned  *string `json:"date_planned"`
	DateDone     *string `json:"date_done"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// FieldInput sets a custom field on creation.
type FieldInput struct {
	BlueprintID int64 `json:"blueprint_id"`
	Value       any   `json:"value"`
}

// SiteInput is the payload of a site creation.
type SiteInput struct {
	ClientID  int64        `json:"client_id"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	Latitude  *float64     `json:"latitude,omitempty"`
	Longitude *float64     `json:"longitude,omitempty"`
	Fields    []FieldInput `json:"fields,omitempty"`
}

// MaterialInput is the payload of a material creation.
type MaterialInput struct {
	SiteID       int64        `json:"site_id"`
	CategoryID   int64        `json:"category_id"`
	Name         string       `json:"name"`
	Brand        string       `json:"brand,omitempty"`
	Model        string       `json:"model,omitempty"`
	SerialNumber string       `json:"serial_number,omitempty"`
	Fields       []FieldInput `json:"fields,omitempty"`
}
