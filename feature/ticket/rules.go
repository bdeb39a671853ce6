package ticket

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/site"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/workorder"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// CloseSummary is the summary VCOM records on tickets closed by the rules.
const CloseSummary = "Closed via API"

// RuleStore is the part of the mapping store the rules read and write.
type RuleStore interface {
	Query(ctx context.Context, t reconcile.EntityType, conds map[string]any) ([]reconcile.Entity, error)
	UpdateFields(ctx context.Context, t reconcile.EntityType, localKey string, fields map[string]any) error
}

// RuleReport counts the outcome of one rules pass.
type RuleReport struct {
	Assigned int `json:"assigned"`
	Closed   int `json:"closed"`
	Failed   int `json:"failed"`
}

// Rules links tickets and work orders across VCOM and Yuman.
type Rules struct {
	store  RuleStore
	vcom   vcom.Client
	yuman  yuman.Client
	sites  *reconcile.RefCache[*site.Index]
	logger *zap.Logger
}

// NewRules creates the ticket rules.
func NewRules(store RuleStore, vc vcom.Client, yc yuman.Client, sites *reconcile.RefCache[*site.Index], logger *zap.Logger) *Rules {
	return &Rules{store: store, vcom: vc, yuman: yc, sites: sites, logger: logger}
}

// Run assigns open tickets, then closes tickets of closed work orders.
// Failures on single tickets are logged and counted; only store reads abort the pass.
func (r *Rules) Run(ctx context.Context) (RuleReport, error) {
	var report RuleReport
	if err := r.Assign(ctx, &report); err != nil {
		return report, err
	}
	if err := r.Close(ctx, &report); err != nil {
		return report, err
	}
	r.logger.Info("Ticket rules finished",
		zap.Int("assigned", report.Assigned),
		zap.Int("closed", report.Closed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Assign appends every unassigned open ticket to the first active work order
// of its site, then marks it assigned in VCOM and in the store.
func (r *Rules) Assign(ctx context.Context, report *RuleReport) error {
	idx, err := r.sites.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load site index: %w", err)
	}

	wos, err := r.store.Query(ctx, reconcile.EntityWorkOrder, nil)
	if err != nil {
		return err
	}
	active := make(map[string]*reconcile.Entity)
	for i := range wos {
		wo := &wos[i]
		if wo.IsObsolete || wo.KeyB == "" || utils.ToString(wo.Fields["status"]) == workorder.StatusClosed {
			continue
		}
		ref, ok := idx.ByID(utils.ToInt64(wo.Fields["site_id"]))
		if !ok || ref.VcomSystemKey == "" {
			continue
		}
		if _, seen := active[ref.VcomSystemKey]; !seen {
			active[ref.VcomSystemKey] = wo
		}
	}

	tickets, err := r.store.Query(ctx, reconcile.EntityTicket, map[string]any{"yuman_workorder_id": nil})
	if err != nil {
		return err
	}
	for _, t := range tickets {
		if t.IsObsolete || !assignable(utils.ToString(t.Fields["status"])) {
			continue
		}
		wo, ok := active[utils.ToString(t.Fields["system_key"])]
		if !ok {
			continue
		}
		if err := r.assign(ctx, t, wo); err != nil {
			report.Failed++
			r.logger.Warn("Failed to assign ticket", zap.String("ticket", t.KeyA), zap.String("workorder", wo.KeyB), zap.Error(err))
			continue
		}
		report.Assigned++
	}
	return nil
}

func (r *Rules) assign(ctx context.Context, t reconcile.Entity, wo *reconcile.Entity) error {
	woID, err := strconv.ParseInt(wo.KeyB, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid work order id %q", wo.KeyB)
	}

	label := utils.ToString(t.Fields["title"])
	if label == "" {
		label = t.KeyA
	}
	description := utils.ToString(wo.Fields["description"]) +
		fmt.Sprintf("\n\n%s:\n%s", label, utils.ToString(t.Fields["description"]))

	if _, err := r.yuman.UpdateWorkorder(ctx, woID, map[string]any{"description": description}); err != nil {
		return err
	}
	// Later tickets of the same site append to the updated text
	wo.Set("description", description)
	if err := r.store.UpdateFields(ctx, reconcile.EntityWorkOrder, wo.LocalKey, map[string]any{"description": description}); err != nil {
		return err
	}

	if err := r.vcom.UpdateTicket(ctx, t.KeyA, vcom.TicketUpdate{Status: vcom.TicketAssigned}); err != nil {
		return err
	}
	return r.store.UpdateFields(ctx, reconcile.EntityTicket, t.LocalKey, map[string]any{
		"status":             vcom.TicketAssigned,
		"yuman_workorder_id": woID,
	})
}

// Close closes in VCOM the tickets linked to work orders closed in Yuman.
func (r *Rules) Close(ctx context.Context, report *RuleReport) error {
	wos, err := r.store.Query(ctx, reconcile.EntityWorkOrder, map[string]any{"status": workorder.StatusClosed})
	if err != nil {
		return err
	}
	for _, wo := range wos {
		if wo.KeyB == "" {
			continue
		}
		tickets, err := r.store.Query(ctx, reconcile.EntityTicket, map[string]any{"yuman_workorder_id": wo.KeyB})
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if t.IsObsolete || utils.ToString(t.Fields["status"]) == vcom.TicketClosed {
				continue
			}
			if err := r.close(ctx, t); err != nil {
				report.Failed++
				r.logger.Warn("Failed to close ticket", zap.String("ticket", t.KeyA), zap.String("workorder", wo.KeyB), zap.Error(err))
				continue
			}
			report.Closed++
		}
	}
	return nil
}

func (r *Rules) close(ctx context.Context, t reconcile.Entity) error {
	if err := r.vcom.CloseTicket(ctx, t.KeyA, CloseSummary); err != nil {
		return err
	}
	return r.store.UpdateFields(ctx, reconcile.EntityTicket, t.LocalKey, map[string]any{"status": vcom.TicketClosed})
}

func assignable(status string) bool {
	switch status {
	case vcom.TicketAssigned, vcom.TicketInProgress, vcom.TicketClosed:
		return false
	}
	return true
}
