package equipment

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// Equipment types.
const (
	TypeInverter = "inverter"
	TypeModule   = "module"
	TypeString   = "string_pv"
)

// ModulesDeviceID is the device id of the module group of a system.
func ModulesDeviceID(systemKey string) string {
	return "MODULES-" + systemKey
}

// StringDeviceID is the device id of the n-th string of an MPPT input of the
// inv-th inverter (1-based).
func StringDeviceID(inv int, mppt string, n int) string {
	return fmt.Sprintf("STRING-WR%d-MPPT-%s.%d", inv, mppt, n)
}

// VcomSource snapshots the equipment of every VCOM system.
type VcomSource struct {
	client           vcom.Client
	stringCategoryID int64
	logger           *zap.Logger
}

// NewVcomSource creates a VCOM equipment source. stringCategoryID is the Yuman
// category given to PV strings, 0 when strings are not categorised.
func NewVcomSource(client vcom.Client, stringCategoryID int64, logger *zap.Logger) *VcomSource {
	return &VcomSource{client: client, stringCategoryID: stringCategoryID, logger: logger}
}

// Snapshot fetches technical data and inverters of every system.
func (s *VcomSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	systems, err := s.client.Systems(ctx)
	if err != nil {
		return nil, err
	}

	var out []reconcile.Entity
	for _, sys := range systems {
		tech, err := s.client.TechnicalData(ctx, sys.Key)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Key, err)
		}
		inverters, err := s.client.Inverters(ctx, sys.Key)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Key, err)
		}
		details := make(map[string]*vcom.InverterDetails, len(inverters))
		for _, inv := range inverters {
			d, err := s.client.InverterDetails(ctx, sys.Key, inv.ID)
			if err != nil {
				return nil, fmt.Errorf("system %s inverter %s: %w", sys.Key, inv.ID, err)
			}
			details[inv.ID] = d
		}
		out = append(out, FromVcom(sys.Key, tech, inverters, details, s.stringCategoryID)...)
	}

	s.logger.Debug("Fetched VCOM equipment", zap.Int("systems", len(systems)), zap.Int("count", len(out)))
	return out, nil
}

// FromVcom translates the technical data and inverters of one system into
// equipment records: one module group, one record per inverter and one per
// PV string. The i-th system configuration describes the strings of the i-th
// inverter.
func FromVcom(systemKey string, tech *vcom.TechnicalData, inverters []vcom.Inverter, details map[string]*vcom.InverterDetails, stringCategoryID int64) []reconcile.Entity {
	var out []reconcile.Entity
	newEntity := func(deviceID string, fields map[string]any) reconcile.Entity {
		fields["vcom_system_key"] = systemKey
		return reconcile.Entity{Type: reconcile.EntityEquipment, KeyA: deviceID, Source: reconcile.SourceVCOM, Fields: fields}
	}

	if tech != nil && len(tech.Panels) > 0 {
		p := tech.Panels[0]
		name := p.Model
		if name == "" {
			name = "Modules"
		}
		out = append(out, newEntity(ModulesDeviceID(systemKey), map[string]any{
			"category_id": yuman.CategoryModule,
			"eq_type":     TypeModule,
			"name":        name,
			"brand":       utils.NilIfEmpty(p.Vendor),
			"model":       utils.NilIfEmpty(p.Model),
			"count":       int64(p.Count),
		}))
	}

	for _, inv := range inverters {
		name := inv.Name
		if name == "" {
			name = inv.ID
		}
		fields := map[string]any{
			"category_id":   yuman.CategoryInverter,
			"eq_type":       TypeInverter,
			"name":          name,
			"serial_number": utils.NilIfEmpty(inv.Serial),
			"brand":         nil,
			"model":         nil,
		}
		if d := details[inv.ID]; d != nil {
			fields["brand"] = utils.NilIfEmpty(d.Vendor)
			fields["model"] = utils.NilIfEmpty(d.Model)
		}
		out = append(out, newEntity(inv.ID, fields))
	}

	if tech == nil {
		return out
	}
	var category any
	if stringCategoryID != 0 {
		category = stringCategoryID
	}
	for i, cfg := range tech.SystemConfigurations {
		if i >= len(inverters) {
			break
		}
		parent := inverters[i].ID
		for _, mppt := range sortedMPPT(cfg.MPPTInputs) {
			input := cfg.MPPTInputs[mppt]
			for n := 1; n <= input.StringCount; n++ {
				id := StringDeviceID(i+1, mppt, n)
				out = append(out, newEntity(id, map[string]any{
					"category_id": category,
					"eq_type":     TypeString,
					"name":        "STRING-" + id,
					"brand":       utils.NilIfEmpty(input.Module.Vendor),
					"model":       utils.NilIfEmpty(input.Module.Model),
					"count":       int64(input.ModulesPerString),
					"parent_id":   parent,
				}))
			}
		}
	}
	return out
}

// sortedMPPT orders MPPT input keys numerically when possible.
func sortedMPPT(inputs map[string]vcom.MPPTInput) []string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
