// Package workorder reconciles Yuman work orders into the work_orders table
// and maintains their status history.
//
// Every reconciliation merges the observed status, planned date and technician
// into wo_history, an append-only JSON log deduplicated by structural equality.
// An Open entry never carries a planned date, and the history is seeded from
// the work order's state the first time it is observed, so it is never empty.
package workorder
