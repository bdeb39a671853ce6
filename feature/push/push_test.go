package push

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/equipment"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"
	yumanmocks "github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var blueprints = yuman.Config{SiteKeyBlueprint: 501, InverterIDBlueprint: 502}

func setupStore(t *testing.T) *mapping.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(mapping.AllModels()...))
	return mapping.NewStore(db)
}

// seedSites stores one linked site, two VCOM-only sites (S2 with a client, S3
// without) and an ignored one, plus the equipment of S2.
func seedSites(t *testing.T, store *mapping.Store) {
	t.Helper()
	ctx := context.Background()
	clientID := int64(7)
	require.NoError(t, store.DB().Create(&mapping.ClientMapping{ID: 1, YumanClientID: &clientID}).Error)

	require.NoError(t, store.Upsert(ctx, reconcile.EntitySite, []reconcile.Entity{
		{KeyA: "S1", KeyB: "10", Fields: map[string]any{"name": "Linked", "client_map_id": int64(1)}},
		{KeyA: "S2", Fields: map[string]any{"name": "Aldi Lyon", "address": "Rue 1", "latitude": 45.7, "client_map_id": int64(1)}},
		{KeyA: "S3", Fields: map[string]any{"name": "No client"}},
		{KeyA: "S4", Fields: map[string]any{"name": "Ignored", "client_map_id": int64(1), "ignore_site": true}},
	}))
	require.NoError(t, store.Upsert(ctx, reconcile.EntityEquipment, []reconcile.Entity{
		{KeyA: "MODULES-S2", Fields: map[string]any{"eq_type": equipment.TypeModule, "site_id": int64(2), "brand": "Trina"}},
		{KeyA: "INV1", Fields: map[string]any{"eq_type": equipment.TypeInverter, "site_id": int64(2), "name": "WR 1", "serial_number": "SN-1"}},
		{KeyA: "STRING-WR1-MPPT-1.1", Fields: map[string]any{"eq_type": equipment.TypeString, "site_id": int64(2)}},
	}))
}

func equipmentRow(t *testing.T, store *mapping.Store, key string) reconcile.Entity {
	t.Helper()
	rows, err := store.Query(context.Background(), reconcile.EntityEquipment, map[string]any{"vcom_device_id": key})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestPusher_CreatesMissingSiteAndMaterials(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedSites(t, store)

	lat := 45.7
	yc := new(yumanmocks.Client)
	yc.On("CreateSite", mock.Anything, yuman.SiteInput{
		ClientID: 7, Name: "Aldi Lyon", Address: "Rue 1", Latitude: &lat,
		Fields: []yuman.FieldInput{{BlueprintID: 501, Value: "S2"}},
	}).Return(&yuman.Site{ID: 20}, nil).Once()
	yc.On("CreateMaterial", mock.Anything, yuman.MaterialInput{SiteID: 20, CategoryID: yuman.CategoryPlant, Name: PlantMaterialName}).
		Return(&yuman.Material{ID: 200}, nil).Once()
	yc.On("CreateMaterial", mock.Anything, yuman.MaterialInput{SiteID: 20, CategoryID: yuman.CategoryModule, Name: ModulesMaterialName, Brand: "Trina"}).
		Return(&yuman.Material{ID: 201}, nil).Once()
	yc.On("CreateMaterial", mock.Anything, yuman.MaterialInput{
		SiteID: 20, CategoryID: yuman.CategoryInverter, Name: "WR 1", SerialNumber: "SN-1",
		Fields: []yuman.FieldInput{{BlueprintID: 502, Value: "INV1"}},
	}).Return(&yuman.Material{ID: 202}, nil).Once()

	report, err := NewPusher(store, yc, blueprints, zap.NewNop()).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{Sites: 1, Materials: 3, Skipped: 1}, report)
	yc.AssertExpectations(t)

	rows, err := store.Query(ctx, reconcile.EntitySite, map[string]any{"vcom_system_key": "S2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "20", rows[0].KeyB)
	assert.Equal(t, "201", equipmentRow(t, store, "MODULES-S2").KeyB)
	assert.Equal(t, "202", equipmentRow(t, store, "INV1").KeyB)
	assert.Empty(t, equipmentRow(t, store, "STRING-WR1-MPPT-1.1").KeyB)

	// Nothing is left to create
	report, err = NewPusher(store, yc, blueprints, zap.NewNop()).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
}

func TestPusher_DryRunAndSiteKey(t *testing.T) {
	store := setupStore(t)
	seedSites(t, store)
	yc := new(yumanmocks.Client)

	p := NewPusher(store, yc, yuman.Config{}, zap.NewNop())

	report, err := p.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, Report{Planned: 1, Skipped: 1}, report)

	report, err = p.Run(context.Background(), Options{SiteKey: "S1"})
	require.NoError(t, err)
	assert.Equal(t, Report{}, report, "S1 is already linked")

	yc.AssertNotCalled(t, "CreateSite", mock.Anything, mock.Anything)
	yc.AssertNotCalled(t, "CreateMaterial", mock.Anything, mock.Anything)
}

func TestPusher_YumanFailuresAreCounted(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedSites(t, store)

	yc := new(yumanmocks.Client)
	yc.On("CreateSite", mock.Anything, mock.Anything).Return(nil, errors.New("422 invalid client")).Once()

	report, err := NewPusher(store, yc, yuman.Config{}, zap.NewNop()).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1, Skipped: 1}, report)

	rows, err := store.Query(ctx, reconcile.EntitySite, map[string]any{"vcom_system_key": "S2"})
	require.NoError(t, err)
	assert.Empty(t, rows[0].KeyB)

	// A failing material does not stop the others
	yc.On("CreateSite", mock.Anything, mock.Anything).Return(&yuman.Site{ID: 20}, nil).Once()
	yc.On("CreateMaterial", mock.Anything, mock.MatchedBy(func(in yuman.MaterialInput) bool {
		return in.CategoryID == yuman.CategoryModule
	})).Return(nil, errors.New("timeout")).Once()
	yc.On("CreateMaterial", mock.Anything, mock.Anything).Return(&yuman.Material{ID: 300}, nil)

	report, err = NewPusher(store, yc, yuman.Config{}, zap.NewNop()).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, Report{Sites: 1, Materials: 2, Failed: 1, Skipped: 1}, report)
	assert.Empty(t, equipmentRow(t, store, "MODULES-S2").KeyB)
	assert.Equal(t, "300", equipmentRow(t, store, "INV1").KeyB)
}
