// Package repositories implements SQLite persistence for curation history.
//
// [RunRepository] stores every run with its resolved genres, metrics, trace path and final playlist.
// Deletes are soft via deleted_at timestamps and deleted runs are excluded from queries.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function increments per-table sequence counters in dedicated sequence tables.
package repositories
