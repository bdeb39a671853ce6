// Package mapping implements the mapping store: the relational tables that link
// VCOM and Yuman records (sites_mapping, equipments_mapping, tickets, work_orders)
// plus the conflict log and the workorder_categories reference table.
//
// Every entity type is described by a Profile, a static table/column layout
// whose Columns map doubles as the write whitelist. Entities carry logical field
// names; the store translates them to physical columns on the way in and
// canonicalises driver values per column Kind on the way out, so that values
// round-trip unchanged and diffs stay idempotent.
//
// Writes are single atomic statements: one upsert per row, one bulk UPDATE to
// mark rows obsolete, one INSERT per conflict. No multi-statement transaction
// is assumed.
package mapping
