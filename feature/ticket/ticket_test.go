package ticket

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/site"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"
	vcommocks "github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom/mocks"
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

func setupStore(t *testing.T) *mapping.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(mapping.AllModels()...))
	return mapping.NewStore(db)
}

func TestFromVcom(t *testing.T) {
	e := FromVcom(vcom.Ticket{
		ID:            "T1",
		SystemKey:     "S1",
		Designation:   "Inverter down",
		Status:        vcom.TicketOpen,
		Priority:      "high",
		CreatedAt:     "2025-01-02T08:00:00Z",
		LastChangedAt: "2025-01-03T08:00:00Z",
	})

	assert.Equal(t, "T1", e.KeyA)
	assert.Equal(t, reconcile.SourceVCOM, e.Source)
	assert.Equal(t, "Inverter down", e.Fields["title"])
	assert.Nil(t, e.Fields["description"])
	require.NotNil(t, e.ChangedAt)
	assert.Equal(t, 3, e.ChangedAt.Day())
	assert.Contains(t, e.Fields, "created_at")

	assert.NotContains(t, FromVcom(vcom.Ticket{ID: "T2"}).Fields, "created_at")
}

func TestPipeline_MirrorsCollectedStatuses(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	orch := reconcile.NewOrchestrator(store)

	vc := new(vcommocks.Client)
	vc.On("Tickets", mock.Anything, vcom.TicketOpen).Return([]vcom.Ticket{{ID: "T1", SystemKey: "S1", Status: vcom.TicketOpen}}, nil).Once()
	vc.On("Tickets", mock.Anything, vcom.TicketAssigned).Return([]vcom.Ticket{{ID: "T2", SystemKey: "S1", Status: vcom.TicketAssigned}}, nil).Once()
	vc.On("Tickets", mock.Anything, vcom.TicketInProgress).Return(nil, nil).Once()

	pr := orch.RunPipeline(ctx, NewPipeline(NewVcomSource(vc, zap.NewNop())), reconcile.ReconcileOptions{})
	require.NoError(t, pr.Err)
	assert.Equal(t, 2, pr.Added)

	// T2 was closed in VCOM and is no longer listed
	vc.On("Tickets", mock.Anything, vcom.TicketOpen).Return([]vcom.Ticket{{ID: "T1", SystemKey: "S1", Status: vcom.TicketOpen}}, nil).Once()
	vc.On("Tickets", mock.Anything, vcom.TicketAssigned).Return(nil, nil).Once()
	vc.On("Tickets", mock.Anything, vcom.TicketInProgress).Return(nil, nil).Once()

	pr = orch.RunPipeline(ctx, NewPipeline(NewVcomSource(vc, zap.NewNop())), reconcile.ReconcileOptions{})
	require.NoError(t, pr.Err)
	assert.Equal(t, 1, pr.Obsoleted)
	assert.Equal(t, 1, pr.Unchanged)
}

// listing serves tickets as the only open listing of every run.
func listing(tickets ...vcom.Ticket) *vcommocks.Client {
	vc := new(vcommocks.Client)
	vc.On("Tickets", mock.Anything, vcom.TicketOpen).Return(tickets, nil)
	vc.On("Tickets", mock.Anything, mock.Anything).Return(nil, nil)
	return vc
}

func TestPipeline_SecondRunIsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	orch := reconcile.NewOrchestrator(store)
	run := func(tickets ...vcom.Ticket) reconcile.PipelineReport {
		pr := orch.RunPipeline(ctx, NewPipeline(NewVcomSource(listing(tickets...), zap.NewNop())), reconcile.ReconcileOptions{})
		require.NoError(t, pr.Err)
		return pr
	}

	tickets := []vcom.Ticket{
		{ID: "T1", SystemKey: "S1", Status: vcom.TicketOpen},
		{ID: "T2", SystemKey: "S1", Status: vcom.TicketOpen, CreatedAt: "2025-01-02T08:00:00Z", LastChangedAt: "2025-01-02T09:00:00Z"},
	}
	assert.Equal(t, 2, run(tickets...).Added)

	stamped := ticketRow(t, store, "T1").Fields["created_at"]
	require.NotNil(t, stamped, "the store stamps tickets without a creation date")

	for i := 0; i < 2; i++ {
		assert.Equal(t, reconcile.PlanSummary{Unchanged: 2}, run(tickets...).PlanSummary)
	}
	assert.Equal(t, stamped, ticketRow(t, store, "T1").Fields["created_at"])
}

func TestPipeline_StaleStatusDoesNotOverwriteNewer(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	orch := reconcile.NewOrchestrator(store)
	run := func(tk vcom.Ticket) reconcile.PipelineReport {
		pr := orch.RunPipeline(ctx, NewPipeline(NewVcomSource(listing(tk), zap.NewNop())), reconcile.ReconcileOptions{})
		require.NoError(t, pr.Err)
		return pr
	}

	changed := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Upsert(ctx, reconcile.EntityTicket, []reconcile.Entity{{
		KeyA:      "T1",
		ChangedAt: &changed,
		Fields:    map[string]any{"system_key": "S1", "status": vcom.TicketAssigned, "title": "Grid"},
	}}))

	stale := vcom.Ticket{ID: "T1", SystemKey: "S1", Status: vcom.TicketOpen, Designation: "Grid fault", LastChangedAt: "2025-01-01T00:00:00Z"}
	assert.Equal(t, 1, run(stale).Updated)

	row := ticketRow(t, store, "T1")
	assert.Equal(t, vcom.TicketAssigned, row.Fields["status"])
	assert.Equal(t, "Grid fault", row.Fields["title"])
	require.NotNil(t, row.ChangedAt)
	assert.True(t, changed.Equal(*row.ChangedAt))

	assert.Equal(t, reconcile.PlanSummary{Unchanged: 1}, run(stale).PlanSummary)
	assert.Equal(t, vcom.TicketAssigned, ticketRow(t, store, "T1").Fields["status"])
}

func TestVcomSource_KeepsMovedTicketOnce(t *testing.T) {
	vc := new(vcommocks.Client)
	vc.On("Tickets", mock.Anything, vcom.TicketOpen).Return([]vcom.Ticket{{ID: "T1", Status: vcom.TicketOpen}}, nil)
	vc.On("Tickets", mock.Anything, vcom.TicketAssigned).Return([]vcom.Ticket{{ID: "T1", Status: vcom.TicketAssigned}}, nil)
	vc.On("Tickets", mock.Anything, vcom.TicketInProgress).Return(nil, nil)

	records, err := NewVcomSource(vc, zap.NewNop()).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, vcom.TicketAssigned, records[0].Fields["status"])
}

func TestVcomSource_FetchError(t *testing.T) {
	vc := new(vcommocks.Client)
	vc.On("Tickets", mock.Anything, vcom.TicketOpen).Return(nil, errors.New("timeout"))

	_, err := NewVcomSource(vc, zap.NewNop()).Snapshot(context.Background())
	assert.Error(t, err)
}

// seedRules stores two sites, three work orders and the tickets the rules act on.
func seedRules(t *testing.T, store *mapping.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, reconcile.EntitySite, []reconcile.Entity{
		{KeyA: "S1", KeyB: "10"},
		{KeyA: "S2", KeyB: "20"},
	}))
	require.NoError(t, store.Upsert(ctx, reconcile.EntityWorkOrder, []reconcile.Entity{
		{KeyB: "42", Fields: map[string]any{"status": "Open", "site_id": int64(1), "description": "Base"}},
		{KeyB: "43", Fields: map[string]any{"status": "Closed", "site_id": int64(1)}},
		{KeyB: "44", Fields: map[string]any{"status": "Planned", "site_id": int64(1)}},
	}))
	require.NoError(t, store.Upsert(ctx, reconcile.EntityTicket, []reconcile.Entity{
		{KeyA: "T1", Fields: map[string]any{"system_key": "S1", "status": "open", "title": "Inverter down", "description": "WR1 offline"}},
		{KeyA: "T2", Fields: map[string]any{"system_key": "S1", "status": "open", "description": "Grid"}},
		{KeyA: "T3", Fields: map[string]any{"system_key": "S1", "status": "assigned"}},
		{KeyA: "T4", Fields: map[string]any{"system_key": "S9", "status": "open"}},
		{KeyA: "T5", Fields: map[string]any{"system_key": "S1", "status": "assigned", "yuman_workorder_id": int64(43)}},
	}))
}

func ticketRow(t *testing.T, store *mapping.Store, key string) reconcile.Entity {
	t.Helper()
	rows, err := store.Query(context.Background(), reconcile.EntityTicket, map[string]any{"vcom_ticket_id": key})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestRules_AssignAndClose(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedRules(t, store)

	first := "Base\n\nInverter down:\nWR1 offline"
	second := first + "\n\nT2:\nGrid"

	yc := new(yumanmocks.Client)
	yc.On("UpdateWorkorder", mock.Anything, int64(42), map[string]any{"description": first}).Return(&yuman.Workorder{ID: 42}, nil).Once()
	yc.On("UpdateWorkorder", mock.Anything, int64(42), map[string]any{"description": second}).Return(&yuman.Workorder{ID: 42}, nil).Once()

	vc := new(vcommocks.Client)
	vc.On("UpdateTicket", mock.Anything, "T1", vcom.TicketUpdate{Status: vcom.TicketAssigned}).Return(nil).Once()
	vc.On("UpdateTicket", mock.Anything, "T2", vcom.TicketUpdate{Status: vcom.TicketAssigned}).Return(nil).Once()
	vc.On("CloseTicket", mock.Anything, "T5", CloseSummary).Return(nil).Once()

	rules := NewRules(store, vc, yc, site.NewIndexCache(store), zap.NewNop())
	report, err := rules.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, RuleReport{Assigned: 2, Closed: 1}, report)
	yc.AssertExpectations(t)
	vc.AssertExpectations(t)

	t1 := ticketRow(t, store, "T1")
	assert.Equal(t, vcom.TicketAssigned, t1.Fields["status"])
	assert.Equal(t, int64(42), t1.Fields["yuman_workorder_id"])
	assert.Equal(t, vcom.TicketClosed, ticketRow(t, store, "T5").Fields["status"])
	assert.Nil(t, ticketRow(t, store, "T4").Fields["yuman_workorder_id"])

	wos, err := store.Query(ctx, reconcile.EntityWorkOrder, map[string]any{"workorder_id": int64(42)})
	require.NoError(t, err)
	require.Len(t, wos, 1)
	assert.Equal(t, second, wos[0].Fields["description"])

	// A second pass has nothing left to do
	report, err = rules.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, RuleReport{}, report)
}

func TestRules_YumanFailureLeavesTicketUnassigned(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	seedRules(t, store)

	yc := new(yumanmocks.Client)
	yc.On("UpdateWorkorder", mock.Anything, int64(42), mock.Anything).Return(nil, errors.New("yuman down"))

	vc := new(vcommocks.Client)
	vc.On("CloseTicket", mock.Anything, "T5", CloseSummary).Return(errors.New("vcom down"))

	report, err := NewRules(store, vc, yc, site.NewIndexCache(store), zap.NewNop()).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, RuleReport{Failed: 3}, report)
	vc.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything, mock.Anything)

	t1 := ticketRow(t, store, "T1")
	assert.Equal(t, vcom.TicketOpen, t1.Fields["status"])
	assert.Nil(t, t1.Fields["yuman_workorder_id"])
	assert.Equal(t, vcom.TicketAssigned, ticketRow(t, store, "T5").Fields["status"])
}
