// Package ui renders curation results with lipgloss and implements an interactive terminal interface
// using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow:
//  1. [MoodListView] : Browse mood presets and their seed genres
//  2. [CurateView] : Monitor progress while the pipeline runs
//  3. [TrackListView] : Browse the curated playlist; r re-rolls with the next variant
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the CurationEngine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
//
// [RenderRecommendation] and [RenderProgress] are the non-interactive renderers used by the CLI.
package ui
