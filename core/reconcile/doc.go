// Package reconcile provides the diff-and-conflict-resolution core that keeps
// VCOM, Yuman and the shared mapping store converging on the same state.
//
// The reconciler is a periodic batch job designed to be safely re-run:
//   - Diffs are idempotent; applying a diff and diffing again yields nothing
//   - Records are never hard-deleted, only marked obsolete
//   - Field disagreements without a deterministic winner are persisted as conflicts
//   - Partial application after a crash converges on the next run
//
// # Architecture
//
// The package consists of five main components:
//
//  1. Engine: Diff classifies incoming records against the stored snapshot into
//     additions, updates and obsoletes, matching on an identity key.
//
//  2. Resolver: a static PolicyTable chooses, per field, between source-wins,
//     last-writer-wins and manual resolution. Manual disagreements become Conflicts.
//
// 3. Link: joins the VCOM and Yuman snapshots of an entity type on the identity key.
//
//  4. Plan: BuildPlan combines the above with the optional history hook, and
//     ApplyPlan writes the result through the Store in the order add, update,
//     obsolete, conflict.
//
//  5. Orchestrator: runs pipelines one entity type at a time, isolating failures
//     so a broken source only fails its own entity type, and aggregates a Report.
//
// Reference data needed by enrichment (site index, work order categories) lives
// in RefCache values that are passed explicitly to the pipelines that read them.
//
// # Errors
//
// FetchError, AmbiguousKeyError and PersistenceError classify pipeline failures.
// Only FetchError affects the process exit status. A Conflict is data, not an error.
//
// # Usage Example
//
//	orch := reconcile.NewOrchestrator(store,
//	    reconcile.WithLogger(log),
//	    reconcile.WithRefs(siteIndex),
//	)
//	report := orch.Run(ctx, []*reconcile.Pipeline{sitePipeline, equipmentPipeline},
//	    reconcile.ReconcileOptions{DryRun: dryRun})
//	if report.FetchFailed() {
//	    os.Exit(1)
//	}
package reconcile
