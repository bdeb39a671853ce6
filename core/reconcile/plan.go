package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlanInput bundles what BuildPlan needs besides the pipeline.
type PlanInput struct {
	// Existing is the enriched stored snapshot.
	Existing []Entity
	// Incoming is the enriched, linked source snapshot.
	Incoming []Entity
	// Resolved lists conflicts an operator already settled.
	Resolved []Conflict
	// Pending is the number of source records left out for lack of a key.
	Pending int
	// Now stamps detected conflicts. Defaults to time.Now.
	Now func() time.Time
}

// BuildPlan diffs the snapshots, resolves field disagreements and runs the
// history hook. It does NOT execute actions; use ApplyPlan for that.
func BuildPlan(p *Pipeline, in PlanInput) (*ReconcilePlan, error) {
	diff, err := Diff(in.Existing, in.Incoming, p.Key, DiffOptions{Ignore: p.Ignore})
	if err != nil {
		return nil, err
	}

	resolver := &Resolver{Policies: p.Policies, Ignore: p.Ignore, Now: in.Now}
	suppressed := make(map[string]struct{}, len(in.Resolved))
	for _, c := range in.Resolved {
		suppressed[c.Signature()] = struct{}{}
	}
	ignore := DiffOptions{Ignore: p.Ignore}.ignored()

	plan := &ReconcilePlan{EntityType: p.Type}
	plan.Summary.Pending = in.Pending

	var updates, conflicts []Action

	for _, e := range diff.ToAdd {
		rec := e.Clone()
		if p.Merge != nil {
			if rec, _, err = p.Merge(nil, rec); err != nil {
				return nil, fmt.Errorf("failed to merge history of %s %s: %w", p.Type, p.Key(e), err)
			}
		}
		plan.Actions = append(plan.Actions, Action{Type: ActionAdd, Key: p.Key(e), Reason: "not in store", Entity: &rec})
		plan.Summary.Added++
	}

	matched := make([]Update, 0, len(diff.ToUpdate)+len(diff.Unchanged))
	matched = append(matched, diff.ToUpdate...)
	matched = append(matched, diff.Unchanged...)

	for _, u := range matched {
		rec := u.New
		if !p.RequireLink || rec.Linked() {
			res := resolver.Resolve(u.Old, u.New)
			rec = u.New.Clone()
			rec.Fields = res.Applied
			for i := range res.Conflicts {
				c := res.Conflicts[i]
				if _, ok := suppressed[c.Signature()]; ok {
					continue
				}
				conflicts = append(conflicts, Action{Type: ActionConflict, Key: p.Key(u.Old), Reason: "manual field " + c.FieldName, Conflict: &c})
			}
		}

		// An update never moves the stored modification time backwards
		rec.ChangedAt = latest(u.Old.ChangedAt, rec.ChangedAt)

		changed := changedFields(u.Old, rec, ignore)
		writes := len(changed) > 0 || u.Relinked || u.Revived

		if p.Merge != nil {
			old := u.Old
			merged, historyChanged, err := p.Merge(&old, rec)
			if err != nil {
				return nil, fmt.Errorf("failed to merge history of %s %s: %w", p.Type, p.Key(u.Old), err)
			}
			rec = merged
			writes = writes || historyChanged
		}

		if !writes {
			plan.Summary.Unchanged++
			continue
		}
		updates = append(updates, Action{Type: ActionUpdate, Key: p.Key(u.Old), Reason: updateReason(changed, u), Entity: &rec})
		plan.Summary.Updated++
	}

	// Matched records are visited updates-first; restore key order
	sortActions(updates)
	plan.Actions = append(plan.Actions, updates...)

	for _, e := range diff.ToObsolete {
		rec := e
		plan.Actions = append(plan.Actions, Action{Type: ActionObsolete, Key: p.Key(e), Reason: "absent from sources", Entity: &rec})
		plan.Summary.Obsoleted++
	}

	sortActions(conflicts)
	plan.Actions = append(plan.Actions, conflicts...)
	plan.Summary.Conflicted = len(conflicts)

	return plan, nil
}

// ApplyPlan executes the actions in a reconcile plan.
// Returns the number of actions executed and any error encountered.
// Writes happen in the order add, update, obsolete, conflict; nothing is written on dry-run.
func ApplyPlan(ctx context.Context, store Store, plan *ReconcilePlan, opts ReconcileOptions) (executed int, err error) {
	if opts.DryRun {
		return 0, nil
	}

	// Group actions by type for efficient execution
	var (
		adds      []Entity
		updates   []Entity
		obsolete  []string
		conflicts []Conflict
	)
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionAdd:
			adds = append(adds, *action.Entity)
		case ActionUpdate:
			updates = append(updates, *action.Entity)
		case ActionObsolete:
			obsolete = append(obsolete, action.Entity.LocalKey)
		case ActionConflict:
			conflicts = append(conflicts, *action.Conflict)
		}
	}

	if len(adds) > 0 {
		if err := store.Upsert(ctx, plan.EntityType, adds); err != nil {
			return executed, &PersistenceError{EntityType: plan.EntityType, Op: "insert", Err: err}
		}
		executed += len(adds)
	}

	if len(updates) > 0 {
		if err := store.Upsert(ctx, plan.EntityType, updates); err != nil {
			return executed, &PersistenceError{EntityType: plan.EntityType, Op: "update", Err: err}
		}
		executed += len(updates)
	}

	if len(obsolete) > 0 {
		if err := store.MarkObsolete(ctx, plan.EntityType, obsolete); err != nil {
			return executed, &PersistenceError{EntityType: plan.EntityType, Op: "mark obsolete", Err: err}
		}
		executed += len(obsolete)
	}

	for _, c := range conflicts {
		if err := store.RecordConflict(ctx, c); err != nil {
			return executed, &PersistenceError{EntityType: plan.EntityType, Op: "record conflict", Err: err}
		}
		executed++
	}

	return executed, nil
}

// Entities returns the records carried by actions of the given type.
func (p *ReconcilePlan) Entities(t ActionType) []Entity {
	var out []Entity
	for _, a := range p.Actions {
		if a.Type == t && a.Entity != nil {
			out = append(out, *a.Entity)
		}
	}
	return out
}

// Conflicts returns the conflicts the plan records.
func (p *ReconcilePlan) Conflicts() []Conflict {
	var out []Conflict
	for _, a := range p.Actions {
		if a.Type == ActionConflict {
			out = append(out, *a.Conflict)
		}
	}
	return out
}

func updateReason(changed []string, u Update) string {
	var parts []string
	if u.Revived {
		parts = append(parts, "revived")
	}
	if u.Relinked {
		parts = append(parts, "linked")
	}
	if len(changed) > 0 {
		parts = append(parts, "changed: "+strings.Join(changed, ","))
	}
	if len(parts) == 0 {
		return "history"
	}
	return strings.Join(parts, "; ")
}

// latest returns the more recent of two optional timestamps.
func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil || a.After(*b):
		return a
	default:
		return b
	}
}

func sortActions(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Key < actions[j].Key })
}
