// Package models defines the value types that flow through the curation pipeline.
//
//   - [Track] : a candidate or curated track; compared by field values only
//   - [Resolution] : a mood key resolved to at most three seed genres, with provenance
//   - [Metrics] : duplicate rate, distinct artist count and size of a final playlist
//   - [PipelineResult] : the write-once output of one orchestrator run
//   - [Recommendation] : the caller-facing shape returned by the CLI and HTTP API
//   - [Run] : a persisted [Recommendation] as stored in run history
package models
