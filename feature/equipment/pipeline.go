package equipment

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/site"
)

// Enricher resolves the site of equipment records and rebuilds the device id
// of Yuman materials.
type Enricher struct {
	Sites *reconcile.RefCache[*site.Index]
}

// Enrich implements reconcile.EnrichFunc.
func (en *Enricher) Enrich(ctx context.Context, e reconcile.Entity) (reconcile.Entity, error) {
	idx, err := en.Sites.Get(ctx)
	if err != nil {
		return e, err
	}
	out := e.Clone()

	if yid, ok := out.Fields[fieldYumanSiteID]; ok && yid != nil {
		ref, found := idx.ByYumanID(utils.ToInt64(yid))
		if !found {
			// Unknown site: without a key the material stays pending
			out.KeyA = ""
			return out, nil
		}
		out.Fields["site_id"] = ref.ID
		out.Fields["vcom_system_key"] = utils.NilIfEmpty(ref.VcomSystemKey)
		if out.KeyA == "" {
			out.KeyA = DeviceID(
				utils.ToInt64(out.Fields["category_id"]),
				ref.VcomSystemKey,
				utils.ToString(out.Fields[fieldVcomInverterID]),
				utils.ToString(out.Fields["serial_number"]),
				utils.ToString(out.Fields["name"]),
			)
		}
		return out, nil
	}

	if key := utils.ToString(out.Fields["vcom_system_key"]); key != "" {
		if ref, found := idx.ByVcomKey(key); found {
			out.Fields["site_id"] = ref.ID
		}
	}
	return out, nil
}

// Policies is the field policy table of equipment. A serial number change
// reported by VCOM usually means a replaced device and goes to review.
func Policies() reconcile.PolicyTable {
	return reconcile.PolicyTable{
		Default: reconcile.SourceWins(reconcile.SideIncoming),
		Fields: map[string]reconcile.Policy{
			"serial_number": reconcile.Manual(),
		},
	}
}

// NewPipeline returns the equipment pipeline, matched on the VCOM device id.
func NewPipeline(a, b reconcile.Snapshotter, enricher *Enricher) *reconcile.Pipeline {
	return &reconcile.Pipeline{
		Type:        reconcile.EntityEquipment,
		Key:         reconcile.ByKeyA,
		SourceA:     a,
		SourceB:     b,
		Enrich:      enricher.Enrich,
		Ignore:      []string{fieldYumanSiteID, fieldVcomInverterID},
		Policies:    Policies(),
		RequireLink: true,
	}
}

// ScopeKey restricts an equipment run to the devices of one VCOM system.
func ScopeKey(key string) func(reconcile.Entity) bool {
	return func(e reconcile.Entity) bool {
		return utils.ToString(e.Fields["vcom_system_key"]) == key
	}
}
