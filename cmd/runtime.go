package cmd

import (
	"fmt"

	"github.com/Centroplan-france/vcom-yuman-sync/core/config"
	"github.com/Centroplan-france/vcom-yuman-sync/core/database"
	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/metrics"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/equipment"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/push"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/site"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/ticket"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/workorder"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// runtime holds what every command builds from the configuration.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *mapping.Store
	metrics *metrics.Metrics

	vcom  vcom.Client
	yuman yuman.Client

	// Reference caches owned by the command; pipelines invalidate them after writes
	sites      *reconcile.RefCache[*site.Index]
	categories *reconcile.RefCache[map[int64]string]
}

// newRuntime loads the configuration, installs the global logger and connects
// to the mapping database.
func newRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(l)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store := mapping.NewStore(db)
	m := metrics.New()

	return &runtime{
		cfg:        cfg,
		logger:     l,
		store:      store,
		metrics:    m,
		vcom:       vcom.NewClient(cfg.Vcom, vcom.WithObserver(m)),
		yuman:      yuman.NewClient(cfg.Yuman, yuman.WithObserver(m)),
		sites:      site.NewIndexCache(store),
		categories: workorder.NewCategoryCache(store),
	}, nil
}

// sitePipelines returns sites then equipment; equipment reads the site index
// the site pipeline refreshes. A non-empty key scopes both to one VCOM system.
func (rt *runtime) sitePipelines(key string) []*reconcile.Pipeline {
	stringCategory := rt.cfg.Yuman.StringCategoryID
	sites := site.NewPipeline(
		site.NewVcomSource(rt.vcom, rt.logger),
		site.NewYumanSource(rt.yuman, rt.logger),
	)
	equipments := equipment.NewPipeline(
		equipment.NewVcomSource(rt.vcom, stringCategory, rt.logger),
		equipment.NewYumanSource(rt.yuman, stringCategory, rt.logger),
		&equipment.Enricher{Sites: rt.sites},
	)
	if key != "" {
		sites.Scope = site.ScopeKey(key)
		equipments.Scope = equipment.ScopeKey(key)
	}
	return []*reconcile.Pipeline{sites, equipments}
}

// ticketPipelines returns tickets then work orders.
func (rt *runtime) ticketPipelines() []*reconcile.Pipeline {
	return []*reconcile.Pipeline{
		ticket.NewPipeline(ticket.NewVcomSource(rt.vcom, rt.logger)),
		workorder.NewPipeline(
			workorder.NewYumanSource(rt.yuman, rt.logger),
			&workorder.Enricher{Sites: rt.sites, Categories: rt.categories},
		),
	}
}

func (rt *runtime) pusher() *push.Pusher {
	return push.NewPusher(rt.store, rt.yuman, rt.cfg.Yuman, rt.logger)
}

func (rt *runtime) rules() *ticket.Rules {
	return ticket.NewRules(rt.store, rt.vcom, rt.yuman, rt.sites, rt.logger)
}
