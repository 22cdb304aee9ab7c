package pipeline

import (
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/trace"
)

const (
	// DefaultGenreCap is the number of tracks kept per genre bucket.
	DefaultGenreCap = 3
	// UnknownGenre is the bucket for tracks without a genre.
	UnknownGenre = "na"
)

// Critic removes repeated artists and caps tracks per genre.
type Critic struct {
	budget   *Budget
	tracer   trace.Tracer
	genreCap int
}

// NewCritic returns a Critic. A non-positive cap uses [DefaultGenreCap]; a nil tracer discards records.
func NewCritic(budget *Budget, tracer trace.Tracer, genreCap int) *Critic {
	if genreCap < 1 {
		genreCap = DefaultGenreCap
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	return &Critic{budget: budget, tracer: tracer, genreCap: genreCap}
}

// Review dedupes tracks by exact artist string (first occurrence wins), then keeps at most the
// genre cap per bucket. Every dropped track is recorded. With the budget spent, tracks are returned
// unchanged after a single budget_exceeded record.
func (c *Critic) Review(tracks []models.Track) []models.Track {
	if c.budget.Exhausted() {
		c.tracer.Record(trace.AgentCritic, "filters.review", trace.StatusBudgetExceeded, nil)
		return tracks
	}

	seen := make(map[string]bool, len(tracks))
	deduped := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.Artist] {
			c.tracer.Record(trace.AgentCritic, "filters.dedupe", trace.StatusDrop, trace.Details{"artist": t.Artist})
			continue
		}
		seen[t.Artist] = true
		deduped = append(deduped, t)
	}

	buckets := make(map[string]int)
	kept := make([]models.Track, 0, len(deduped))
	for _, t := range deduped {
		genre := t.Genre
		if genre == "" {
			genre = UnknownGenre
		}
		if buckets[genre] >= c.genreCap {
			c.tracer.Record(trace.AgentCritic, "filters.diversity", trace.StatusDrop, trace.Details{"genre": genre})
			continue
		}
		buckets[genre]++
		kept = append(kept, t)
	}

	c.budget.Spend()
	return kept
}
