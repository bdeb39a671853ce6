package workorder

import (
	"context"
	"strconv"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"go.uber.org/zap"
)

// fieldYumanSiteID carries the Yuman site id to enrichment, which resolves it
// to a mapping row id.
const fieldYumanSiteID = "yuman_site_id"

// YumanSource snapshots Yuman work orders.
type YumanSource struct {
	client yuman.Client
	logger *zap.Logger
}

// NewYumanSource creates a work order source.
func NewYumanSource(client yuman.Client, logger *zap.Logger) *YumanSource {
	return &YumanSource{client: client, logger: logger}
}

// Snapshot lists every work order.
func (s *YumanSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	wos, err := s.client.ListWorkorders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Entity, 0, len(wos))
	for _, wo := range wos {
		out = append(out, FromYuman(wo))
	}
	s.logger.Debug("Fetched Yuman work orders", zap.Int("count", len(out)))
	return out, nil
}

// FromYuman translates a Yuman work order. An unreadable created_at is left
// out rather than sent as NULL.
func FromYuman(wo yuman.Workorder) reconcile.Entity {
	e := reconcile.Entity{
		Type:   reconcile.EntityWorkOrder,
		KeyB:   strconv.FormatInt(wo.ID, 10),
		Source: reconcile.SourceYuman,
		Fields: map[string]any{
			"status":         NormalizeStatus(wo.Status),
			"title":          utils.NilIfEmpty(wo.Title),
			"description":    utils.NilIfEmpty(wo.Description),
			"client_id":      int64OrNil(wo.ClientID),
			"category_id":    int64OrNil(wo.CategoryID),
			"technician_id":  int64OrNil(wo.TechnicianID),
			"planned_at":     timeOrNil(wo.DatePlanned),
			"date_done":      timeOrNil(wo.DateDone),
			fieldYumanSiteID: int64OrNil(wo.SiteID),
		},
		ChangedAt: utils.TimePtr(wo.UpdatedAt),
	}
	if created, ok := utils.ToTime(wo.CreatedAt); ok {
		e.Fields["created_at"] = created
	}
	return e
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(s *string) any {
	if s == nil {
		return nil
	}
	t, ok := utils.ToTime(*s)
	if !ok {
		return nil
	}
	return t
}

// observation builds the history entry describing the current state of e.
func observation(e reconcile.Entity, at *time.Time) Entry {
	obs := Entry{
		Status:    utils.ToString(e.Fields["status"]),
		PlannedAt: utils.TimePtr(e.Fields["planned_at"]),
		ChangedAt: at,
	}
	if v := e.Fields["technician_id"]; v != nil {
		id := utils.ToInt64(v)
		obs.TechnicianID = &id
	}
	return obs
}
