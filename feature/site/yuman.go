package site

import (
	"context"
	"strconv"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// Custom fields of Yuman sites.
const (
	FieldVcomKey       = "System Key (Vcom ID)"
	FieldNominalPower  = "Nominal Power (kWc)"
	FieldCommission    = "Commission Date"
	FieldAldiID        = "ALDI ID"
	FieldAldiStoreID   = "ID magasin (n° interne Aldi)"
	FieldProjectNumber = "Project number (Centroplan ID)"
)

// customColumns maps plain-text custom fields onto site fields.
var customColumns = map[string]string{
	FieldAldiID:        "aldi_id",
	FieldAldiStoreID:   "aldi_store_id",
	FieldProjectNumber: "project_number_cp",
}

// YumanSource snapshots Yuman sites.
type YumanSource struct {
	client yuman.Client
	logger *zap.Logger
}

// NewYumanSource creates a Yuman site source.
func NewYumanSource(client yuman.Client, logger *zap.Logger) *YumanSource {
	return &YumanSource{client: client, logger: logger}
}

// Snapshot fetches every Yuman site with its custom fields.
func (s *YumanSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	sites, err := s.client.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]reconcile.Entity, 0, len(sites))
	unkeyed := 0
	for _, ys := range sites {
		e := FromYuman(ys)
		if e.KeyA == "" {
			unkeyed++
		}
		out = append(out, e)
	}

	if unkeyed > 0 {
		s.logger.Warn("Yuman sites without VCOM system key", zap.Int("count", unkeyed))
	}
	return out, nil
}

// FromYuman translates a Yuman site into a site record. The VCOM system key
// is read from the site's custom fields and is empty when not filled in.
func FromYuman(ys yuman.Site) reconcile.Entity {
	custom := ys.Embed.FieldMap()
	e := reconcile.Entity{
		Type:   reconcile.EntitySite,
		KeyA:   custom[FieldVcomKey],
		KeyB:   strconv.FormatInt(ys.ID, 10),
		Source: reconcile.SourceYuman,
		Fields: map[string]any{
			"name":      utils.NilIfEmpty(ys.Name),
			"code":      utils.NilIfEmpty(ys.Code),
			"address":   utils.NilIfEmpty(ys.Address),
			"latitude":  floatOrNil(ys.Latitude),
			"longitude": floatOrNil(ys.Longitude),
		},
	}
	for field, col := range customColumns {
		e.Fields[col] = utils.NilIfEmpty(custom[field])
	}
	if v := custom[FieldNominalPower]; v != "" {
		e.Fields["nominal_power"] = utils.ToFloat(v)
	}
	if v := custom[FieldCommission]; v != "" {
		e.Fields["commission_date"] = dateOrNil(v)
	}
	return e
}
