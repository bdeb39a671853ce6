package equipment

import (
	"context"
	"strconv"
	"strings"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// Custom fields of Yuman materials.
const (
	FieldInverterID  = "Inverter ID (Vcom)"
	FieldModuleCount = "nombre de module"
)

// Transient fields carried from the Yuman snapshot to enrichment. They are
// not persisted.
const (
	fieldYumanSiteID    = "yuman_site_id"
	fieldVcomInverterID = "vcom_inverter_id"
)

// YumanSource snapshots the Yuman materials of the reconciled categories.
type YumanSource struct {
	client     yuman.Client
	categories []int64
	logger     *zap.Logger
}

// NewYumanSource creates a Yuman equipment source. Strings are listed only
// when stringCategoryID is set.
func NewYumanSource(client yuman.Client, stringCategoryID int64, logger *zap.Logger) *YumanSource {
	cats := []int64{yuman.CategoryInverter, yuman.CategoryModule}
	if stringCategoryID != 0 {
		cats = append(cats, stringCategoryID)
	}
	return &YumanSource{client: client, categories: cats, logger: logger}
}

// Snapshot lists the materials of every reconciled category.
func (s *YumanSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	var out []reconcile.Entity
	for _, cat := range s.categories {
		materials, err := s.client.ListMaterials(ctx, cat)
		if err != nil {
			return nil, err
		}
		for _, m := range materials {
			out = append(out, FromYuman(m))
		}
	}
	s.logger.Debug("Fetched Yuman materials", zap.Int("count", len(out)))
	return out, nil
}

// FromYuman translates a Yuman material. The VCOM device id is left empty:
// it depends on the site and is rebuilt by the Enricher.
func FromYuman(m yuman.Material) reconcile.Entity {
	custom := m.Embed.FieldMap()

	var count any
	if v := custom[FieldModuleCount]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			count = n
		}
	}

	eqType := TypeString
	switch m.CategoryID {
	case yuman.CategoryInverter:
		eqType = TypeInverter
	case yuman.CategoryModule:
		eqType = TypeModule
	}

	return reconcile.Entity{
		Type:   reconcile.EntityEquipment,
		KeyB:   strconv.FormatInt(m.ID, 10),
		Source: reconcile.SourceYuman,
		Fields: map[string]any{
			"category_id":       m.CategoryID,
			"eq_type":           eqType,
			"name":              utils.NilIfEmpty(m.Name),
			"brand":             utils.NilIfEmpty(m.Brand),
			"model":             utils.NilIfEmpty(m.Model),
			"serial_number":     utils.NilIfEmpty(m.SerialNumber),
			"count":             count,
			fieldYumanSiteID:    m.SiteID,
			fieldVcomInverterID: utils.NilIfEmpty(custom[FieldInverterID]),
		},
	}
}

// DeviceID rebuilds the VCOM device id of a Yuman material.
func DeviceID(categoryID int64, systemKey, inverterID, serial, name string) string {
	switch categoryID {
	case yuman.CategoryInverter:
		if inverterID != "" {
			return strings.TrimSpace(inverterID)
		}
		return strings.TrimSpace(serial)
	case yuman.CategoryModule:
		if systemKey == "" {
			return ""
		}
		return ModulesDeviceID(systemKey)
	default:
		if serial != "" {
			return strings.TrimSpace(serial)
		}
		return strings.TrimSpace(name)
	}
}
