package reconcile

import (
	"context"
)

// Store is the mapping store as seen by the reconciler.
// Implementations write through a per-table column whitelist and silently drop
// fields they do not know, so enriched records can be passed unchanged.
type Store interface {
	// Fetch returns the full stored snapshot of an entity type, obsolete records included.
	Fetch(ctx context.Context, entityType EntityType) ([]Entity, error)

	// Upsert inserts or updates records keyed on their identity column.
	// Every row is written by a single atomic statement and reactivated if obsolete.
	Upsert(ctx context.Context, entityType EntityType, records []Entity) error

	// MarkObsolete soft-deletes the given rows in one statement.
	MarkObsolete(ctx context.Context, entityType EntityType, localKeys []string) error

	// RecordConflict appends a conflict to the conflict log.
	// It never overwrites an unresolved conflict for the same record and field.
	RecordConflict(ctx context.Context, c Conflict) error
}

// ConflictLedger is implemented by stores that can list settled conflicts.
// Plans built against such a store do not raise those conflicts again.
type ConflictLedger interface {
	ResolvedConflicts(ctx context.Context, entityType EntityType) ([]Conflict, error)
}

// Pipeline describes how one entity type is reconciled.
type Pipeline struct {
	// Type is the entity type handled by the pipeline.
	Type EntityType

	// Key extracts the identity key shared by both sources and the store.
	Key KeyFunc

	// SourceA fetches the VCOM snapshot. Nil when VCOM does not hold this type.
	SourceA Snapshotter

	// SourceB fetches the Yuman snapshot. Nil when Yuman does not hold this type.
	SourceB Snapshotter

	// Enrich reconstructs derived fields after every fetch, store reads included.
	Enrich EnrichFunc

	// Ignore lists derived fields that are never compared or conflicted.
	Ignore []string

	// Policies is the static field policy table used for linked records.
	Policies PolicyTable

	// RequireLink restricts conflict resolution to records known by both sources.
	// Unlinked records have their incoming fields applied as-is.
	RequireLink bool

	// Merge derives history fields on additions and updates. Optional.
	Merge MergeFunc

	// Scope restricts a run to the records it accepts, stored and incoming
	// alike, so records outside it are neither written nor obsoleted. Nil accepts all.
	Scope func(Entity) bool

	// InvalidatesRefs makes the Orchestrator invalidate its reference caches once
	// the pipeline has persisted, so later pipelines read fresh reference data.
	InvalidatesRefs bool
}
