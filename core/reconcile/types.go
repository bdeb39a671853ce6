package reconcile

import (
	"context"
	"time"

	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
)

// EntityType names a reconcilable record type.
type EntityType string

const (
	// EntitySite is a solar plant, known in VCOM as a system and in Yuman as a site.
	EntitySite EntityType = "site"
	// EntityEquipment is a module group, inverter or PV string.
	EntityEquipment EntityType = "equipment"
	// EntityTicket is a VCOM incident ticket.
	EntityTicket EntityType = "ticket"
	// EntityWorkOrder is a Yuman field work order.
	EntityWorkOrder EntityType = "workorder"
)

// Source identifies where a snapshot record came from.
type Source string

const (
	// SourceStore marks records read back from the mapping store.
	SourceStore Source = "store"
	// SourceVCOM marks records fetched from the VCOM monitoring API (side A).
	SourceVCOM Source = "vcom"
	// SourceYuman marks records fetched from the Yuman field-service API (side B).
	SourceYuman Source = "yuman"
)

// Entity is a single reconcilable record.
// Fields holds the payload keyed by logical field name, never by physical column.
type Entity struct {
	// Type is the entity type this record belongs to.
	Type EntityType `json:"type"`

	// LocalKey is the mapping store row identifier, empty until first persisted.
	LocalKey string `json:"local_key,omitempty"`

	// KeyA is the identifier in VCOM. Empty until the record is matched.
	KeyA string `json:"key_a,omitempty"`

	// KeyB is the identifier in Yuman. Empty until the record is matched.
	KeyB string `json:"key_b,omitempty"`

	// Fields is the reconcilable payload.
	Fields map[string]any `json:"fields"`

	// Source is the snapshot origin.
	Source Source `json:"source"`

	// ChangedAt is the source-side modification time, used by last-writer-wins.
	ChangedAt *time.Time `json:"changed_at,omitempty"`

	// IsObsolete reports whether the record has been soft-deleted.
	IsObsolete bool `json:"is_obsolete"`

	// ObsoleteAt is when the record was soft-deleted.
	ObsoleteAt *time.Time `json:"obsolete_at,omitempty"`
}

// Clone returns a copy of e whose Fields map can be mutated independently.
func (e Entity) Clone() Entity {
	out := e
	out.Fields = make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		out.Fields[k] = v
	}
	return out
}

// Field returns the value of a field and whether it is present.
func (e Entity) Field(name string) (any, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// Set assigns a field, allocating the map when needed.
func (e *Entity) Set(name string, value any) {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[name] = value
}

// Linked reports whether both source keys are known.
func (e Entity) Linked() bool {
	return e.KeyA != "" && e.KeyB != ""
}

// KeyFunc extracts the identity key used to match records across snapshots.
type KeyFunc func(Entity) string

// ByKeyA matches records on their VCOM identifier.
func ByKeyA(e Entity) string { return e.KeyA }

// ByKeyB matches records on their Yuman identifier.
func ByKeyB(e Entity) string { return e.KeyB }

// Snapshotter produces a full snapshot of one entity type from one source.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]Entity, error)
}

// SnapshotFunc adapts a plain function to Snapshotter.
type SnapshotFunc func(ctx context.Context) ([]Entity, error)

// Snapshot calls f.
func (f SnapshotFunc) Snapshot(ctx context.Context) ([]Entity, error) {
	return f(ctx)
}

// EnrichFunc reconstructs derived fields after a read.
// It is applied to every fetched record, including records read back from the store.
type EnrichFunc func(ctx context.Context, e Entity) (Entity, error)

// MergeFunc derives history fields when a record is added or updated.
// old is nil for additions. The boolean reports whether the derived
// fields changed, which turns an otherwise unchanged record into an update.
type MergeFunc func(old *Entity, incoming Entity) (Entity, bool, error)

// Conflict is a field-level disagreement awaiting manual resolution.
// ValueA is the stored value, ValueB the incoming one.
type Conflict struct {
	// ID is the conflict log row identifier, zero until persisted.
	ID uint `json:"id,omitempty"`

	// EntityType is the type of the conflicting record.
	EntityType EntityType `json:"entity_type"`

	// LocalKey is the mapping store key of the conflicting record.
	LocalKey string `json:"local_key"`

	// FieldName is the logical field in disagreement.
	FieldName string `json:"field_name"`

	// ValueA is the stored value, which is kept until resolution.
	ValueA any `json:"value_a"`

	// ValueB is the incoming value.
	ValueB any `json:"value_b"`

	// DetectedAt is when the conflict was first seen.
	DetectedAt time.Time `json:"detected_at"`

	// Resolved reports whether an operator has settled the conflict.
	Resolved bool `json:"resolved"`
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionAdd inserts a record that the store does not know yet.
	ActionAdd ActionType = "add"
	// ActionUpdate rewrites a stored record with resolved values.
	ActionUpdate ActionType = "update"
	// ActionObsolete soft-deletes a stored record absent from the sources.
	ActionObsolete ActionType = "obsolete"
	// ActionConflict appends a conflict to the conflict log.
	ActionConflict ActionType = "conflict"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the identity key of the record.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason,omitempty"`

	// Entity is the record to write. Unset for conflict actions.
	Entity *Entity `json:"-"`

	// Conflict is the conflict to record. Only set for ActionConflict.
	Conflict *Conflict `json:"-"`
}

// ReconcilePlan contains the planned actions for one entity type.
type ReconcilePlan struct {
	// EntityType is the type the plan was computed for.
	EntityType EntityType `json:"entity_type"`

	// Actions contains planned mutation operations, grouped in persistence order.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	Added      int `json:"added"`
	Updated    int `json:"updated"`
	Obsoleted  int `json:"obsoleted"`
	Conflicted int `json:"conflicted"`
	Unchanged  int `json:"unchanged"`
	Pending    int `json:"pending"`
}

// ReconcileOptions controls how a plan is applied.
type ReconcileOptions struct {
	// DryRun plans everything and persists nothing.
	DryRun bool
}

// Signature identifies a conflict by record, field and incoming value.
// A resolved conflict with the same signature is never raised again.
func (c Conflict) Signature() string {
	return string(c.EntityType) + "|" + c.LocalKey + "|" + c.FieldName + "|" + utils.ToString(c.ValueB)
}
