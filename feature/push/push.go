package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/equipment"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// PlantMaterialName is the name of the plant material created with every site.
const PlantMaterialName = "Centrale"

// ModulesMaterialName is the name of the module group material.
const ModulesMaterialName = "Modules"

// Store is the part of the mapping store the push reads and writes.
type Store interface {
	Query(ctx context.Context, t reconcile.EntityType, conds map[string]any) ([]reconcile.Entity, error)
	UpdateFields(ctx context.Context, t reconcile.EntityType, localKey string, fields map[string]any) error
	YumanClientID(ctx context.Context, clientMapID int64) (int64, error)
}

// Options tunes a push.
type Options struct {
	// DryRun lists the sites that would be created without calling Yuman.
	DryRun bool
	// SiteKey restricts the push to one VCOM system.
	SiteKey string
}

// Report counts the outcome of one push.
type Report struct {
	Sites     int `json:"sites"`
	Materials int `json:"materials"`
	Planned   int `json:"planned"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Pusher creates missing Yuman sites and materials.
type Pusher struct {
	store  Store
	yuman  yuman.Client
	cfg    yuman.Config
	logger *zap.Logger
}

// NewPusher creates a Pusher. cfg supplies the custom field blueprints written
// on created resources so the Yuman snapshot can be linked back.
func NewPusher(store Store, yc yuman.Client, cfg yuman.Config, logger *zap.Logger) *Pusher {
	return &Pusher{store: store, yuman: yc, cfg: cfg, logger: logger}
}

// Run creates a Yuman site for every active VCOM site without one. Sites
// without a resolvable client are skipped; failures on single sites or
// materials are logged and counted. Only store reads abort the push.
func (p *Pusher) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report

	sites, err := p.store.Query(ctx, reconcile.EntitySite, map[string]any{"yuman_site_id": nil})
	if err != nil {
		return report, err
	}

	for _, s := range sites {
		if s.IsObsolete || s.KeyA == "" || utils.ToBool(s.Fields["ignore_site"]) {
			continue
		}
		if opts.SiteKey != "" && s.KeyA != opts.SiteKey {
			continue
		}
		l := p.logger.With(zap.String("site", s.KeyA))

		in, err := p.siteInput(ctx, s)
		if err != nil {
			if !errors.Is(err, errNoClient) && !errors.Is(err, mapping.ErrClientNotFound) {
				return report, err
			}
			report.Skipped++
			l.Warn("Site has no Yuman client, not created", zap.Error(err))
			continue
		}

		if opts.DryRun {
			report.Planned++
			l.Info("Would create Yuman site", zap.String("name", in.Name), zap.Int64("client_id", in.ClientID))
			continue
		}

		created, err := p.yuman.CreateSite(ctx, in)
		if err != nil {
			report.Failed++
			l.Error("Failed to create Yuman site", zap.Error(err))
			continue
		}
		if err := p.store.UpdateFields(ctx, reconcile.EntitySite, s.LocalKey, map[string]any{"yuman_site_id": created.ID}); err != nil {
			return report, fmt.Errorf("site %s created in Yuman as %d but not linked: %w", s.KeyA, created.ID, err)
		}
		report.Sites++
		l.Info("Created Yuman site", zap.Int64("yuman_site_id", created.ID))

		n, failed, err := p.createMaterials(ctx, s, created.ID, l)
		report.Materials += n
		report.Failed += failed
		if err != nil {
			return report, err
		}
	}

	p.logger.Info("Yuman push finished",
		zap.Int("sites", report.Sites),
		zap.Int("materials", report.Materials),
		zap.Int("planned", report.Planned),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return report, nil
}

var errNoClient = errors.New("no client_map_id")

func (p *Pusher) siteInput(ctx context.Context, s reconcile.Entity) (yuman.SiteInput, error) {
	mapID := s.Fields["client_map_id"]
	if mapID == nil {
		return yuman.SiteInput{}, errNoClient
	}
	clientID, err := p.store.YumanClientID(ctx, utils.ToInt64(mapID))
	if err != nil {
		return yuman.SiteInput{}, err
	}

	in := yuman.SiteInput{
		ClientID: clientID,
		Name:     utils.ToString(s.Fields["name"]),
		Address:  utils.ToString(s.Fields["address"]),
	}
	if in.Name == "" {
		in.Name = s.KeyA
	}
	if p.cfg.SiteKeyBlueprint != 0 {
		in.Fields = []yuman.FieldInput{{BlueprintID: p.cfg.SiteKeyBlueprint, Value: s.KeyA}}
	}
	if v := s.Fields["latitude"]; v != nil {
		lat := utils.ToFloat(v)
		in.Latitude = &lat
	}
	if v := s.Fields["longitude"]; v != nil {
		lon := utils.ToFloat(v)
		in.Longitude = &lon
	}
	return in, nil
}

// createMaterials creates the plant material, the module group unless already
// linked and every unlinked inverter, linking the stored rows to them.
func (p *Pusher) createMaterials(ctx context.Context, s reconcile.Entity, yumanSiteID int64, l *zap.Logger) (created, failed int, err error) {
	rows, err := p.store.Query(ctx, reconcile.EntityEquipment, map[string]any{"site_id": s.LocalKey})
	if err != nil {
		return 0, 0, err
	}

	type job struct {
		in  yuman.MaterialInput
		row *reconcile.Entity
	}
	plant := job{in: yuman.MaterialInput{SiteID: yumanSiteID, CategoryID: yuman.CategoryPlant, Name: PlantMaterialName}}
	modules := job{in: yuman.MaterialInput{SiteID: yumanSiteID, CategoryID: yuman.CategoryModule, Name: ModulesMaterialName}}
	modulesLinked := false
	var inverters []job

	for i := range rows {
		r := &rows[i]
		if r.IsObsolete {
			continue
		}
		switch utils.ToString(r.Fields["eq_type"]) {
		case equipment.TypeModule:
			if r.KeyB != "" {
				modulesLinked = true
				continue
			}
			modules.row = r
			modules.in.Brand = utils.ToString(r.Fields["brand"])
			modules.in.Model = utils.ToString(r.Fields["model"])
		case equipment.TypeInverter:
			if r.KeyB != "" {
				continue
			}
			name := utils.ToString(r.Fields["name"])
			if name == "" {
				name = r.KeyA
			}
			in := yuman.MaterialInput{
				SiteID:       yumanSiteID,
				CategoryID:   yuman.CategoryInverter,
				Name:         name,
				Brand:        utils.ToString(r.Fields["brand"]),
				Model:        utils.ToString(r.Fields["model"]),
				SerialNumber: utils.ToString(r.Fields["serial_number"]),
			}
			if p.cfg.InverterIDBlueprint != 0 {
				in.Fields = []yuman.FieldInput{{BlueprintID: p.cfg.InverterIDBlueprint, Value: r.KeyA}}
			}
			inverters = append(inverters, job{row: r, in: in})
		}
	}

	jobs := []job{plant}
	if !modulesLinked {
		jobs = append(jobs, modules)
	}
	jobs = append(jobs, inverters...)

	for _, j := range jobs {
		m, err := p.yuman.CreateMaterial(ctx, j.in)
		if err != nil {
			failed++
			l.Error("Failed to create Yuman material", zap.String("name", j.in.Name), zap.Int64("category_id", j.in.CategoryID), zap.Error(err))
			continue
		}
		created++
		if j.row == nil {
			continue
		}
		if err := p.store.UpdateFields(ctx, reconcile.EntityEquipment, j.row.LocalKey, map[string]any{"yuman_material_id": m.ID}); err != nil {
			return created, failed, fmt.Errorf("material %d created for %s but not linked: %w", m.ID, j.row.KeyA, err)
		}
	}
	return created, failed, nil
}
