package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveMood Phase = iota
	OpenTrace
	Curate
	PersistRun
	Complete
	BatchCurate
)

func (p Phase) String() string {
	switch p {
	case ResolveMood:
		return "resolve_mood"
	case OpenTrace:
		return "open_trace"
	case Curate:
		return "curate"
	case PersistRun:
		return "persist_run"
	case Complete:
		return "complete"
	case BatchCurate:
		return "batch_curate"
	default:
		return ""
	}
}

func resolveUpdate(res models.Resolution) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveMood,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolved %s to %s", res.Label(), strings.Join(res.Genres, ", ")),
		Data:    res,
	}
}

func openTraceUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   OpenTrace,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Tracing to %s", path),
	}
}

func curateUpdate(catalog string, candidates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Curate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %d candidates from %s...", candidates, catalog),
	}
}

func persistUpdate(run *models.Run) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistRun,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved run #%d", run.Sequence),
		Data:    run,
	}
}

func completeUpdate(rec *models.Recommendation) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Curated %d tracks (%d unique artists)", rec.Count, rec.Metrics.UniqueArtists),
		Data:    rec,
	}
}

func batchCompletedUpdate(step, total int, mood string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchCurate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, mood, count),
	}
}

func batchFailedUpdate(step, total int, mood string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BatchCurate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, mood, err),
	}
}
