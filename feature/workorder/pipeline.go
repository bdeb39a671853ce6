package workorder

import (
	"context"
	"fmt"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/feature/site"
)

// CategoryLoader loads the work order category catalog.
type CategoryLoader interface {
	Categories(ctx context.Context) (map[int64]string, error)
}

// NewCategoryCache returns a reference cache over the category catalog.
func NewCategoryCache(loader CategoryLoader) *reconcile.RefCache[map[int64]string] {
	return reconcile.NewRefCache("workorder-categories", loader.Categories)
}

// Enricher derives the display and history fields of work orders.
type Enricher struct {
	Sites      *reconcile.RefCache[*site.Index]
	Categories *reconcile.RefCache[map[int64]string]
}

// Enrich implements reconcile.EnrichFunc. It resolves the Yuman site to a
// mapping row, labels the category and decodes the stored history.
func (en *Enricher) Enrich(ctx context.Context, e reconcile.Entity) (reconcile.Entity, error) {
	out := e.Clone()

	if yid, ok := out.Fields[fieldYumanSiteID]; ok {
		out.Fields["site_id"] = nil
		if yid != nil {
			idx, err := en.Sites.Get(ctx)
			if err != nil {
				return e, err
			}
			if ref, found := idx.ByYumanID(utils.ToInt64(yid)); found {
				out.Fields["site_id"] = ref.ID
			}
		}
	}

	cats, err := en.Categories.Get(ctx)
	if err != nil {
		return e, err
	}
	out.Fields["category_name"] = nil
	if id := out.Fields["category_id"]; id != nil {
		if name, ok := cats[utils.ToInt64(id)]; ok {
			out.Fields["category_name"] = name
		}
	}

	if v, ok := out.Fields["wo_history"]; ok {
		history, err := DecodeHistory(v)
		if err != nil {
			return e, fmt.Errorf("work order %s: %w", out.KeyB, err)
		}
		out.Fields["wo_history"] = history
	}
	return out, nil
}

// MergeHistory implements reconcile.MergeFunc.
//
// The observation is stamped with the work order's modification time. When it
// describes the same state as the latest entry it is that entry, so edits that
// leave status, schedule and technician alone do not grow the history.
// This collapses observations whose changed_at differs from the latest entry,
// which Merge alone would keep: Merge only drops exact duplicates.
func MergeHistory(old *reconcile.Entity, incoming reconcile.Entity) (reconcile.Entity, bool, error) {
	out := incoming.Clone()

	var (
		history []Entry
		seed    Entry
		err     error
	)
	if old == nil {
		seed = observation(incoming, createdAt(incoming))
	} else {
		if history, err = DecodeHistory(old.Fields["wo_history"]); err != nil {
			return incoming, false, err
		}
		seed = observation(*old, createdAt(*old))
	}

	obs := observation(incoming, changedAt(incoming))
	latest := seed
	if len(history) > 0 {
		latest = history[len(history)-1]
	}
	if latest.SameState(obs) {
		obs = latest
	}

	merged := MergeSeeded(history, seed, obs)
	out.Fields["wo_history"] = merged
	return out, old == nil || len(merged) != len(history), nil
}

func createdAt(e reconcile.Entity) *time.Time {
	if t := utils.TimePtr(e.Fields["created_at"]); t != nil {
		return t
	}
	return e.ChangedAt
}

func changedAt(e reconcile.Entity) *time.Time {
	if e.ChangedAt != nil {
		return e.ChangedAt
	}
	return createdAt(e)
}

// Policies is the field policy table of work orders. Yuman is the only
// source; scheduling fields follow the most recent modification.
func Policies() reconcile.PolicyTable {
	lww := reconcile.LastWriterWins()
	return reconcile.PolicyTable{
		Default: reconcile.SourceWins(reconcile.SideIncoming),
		Fields: map[string]reconcile.Policy{
			"status":        lww,
			"planned_at":    lww,
			"technician_id": lww,
		},
	}
}

// NewPipeline returns the work order pipeline, matched on the Yuman id.
func NewPipeline(b reconcile.Snapshotter, enricher *Enricher) *reconcile.Pipeline {
	return &reconcile.Pipeline{
		Type:     reconcile.EntityWorkOrder,
		Key:      reconcile.ByKeyB,
		SourceB:  b,
		Enrich:   enricher.Enrich,
		Ignore:   []string{"wo_history", "category_name", fieldYumanSiteID},
		Policies: Policies(),
		Merge:    MergeHistory,
	}
}
