// Package tasks turns a mood into a traced, persisted playlist with real-time progress reporting.
//
// # Core Operations
//
// [CurationEngine] exposes two operations:
//
//  1. [CurationEngine.Curate] : One mood, one run
//     - Resolves the mood to seed genres (preset lookup or vibe parsing)
//     - Opens a fresh JSONL trace file named after prefix, mood, seed and variant
//     - Runs the curator, critic and compliance stages under per-run budgets
//     - Saves the run to history when a [RunStore] is configured
//
//  2. [CurationEngine.Batch] : Many moods through a worker pool
//     - Rate limited with golang.org/x/time/rate
//     - Writes one export per mood and a manifest summarizing successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [RunStore] interface persists every successful run. Save failures are logged and never
// fail the run that produced them.
package tasks
