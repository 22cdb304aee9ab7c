// package pipeline runs candidate tracks through the critic and compliance stages
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/trace"
)

// DefaultCandidates is how many tracks are requested from the catalog before filtering.
const DefaultCandidates = 30

// Config is fixed for the duration of one run.
type Config struct {
	Seed               int64
	PlaylistSize       int
	Variant            int
	CriticMaxCalls     int
	ComplianceMaxCalls int
	Candidates         int
	GenreCap           int
}

// DefaultConfig mirrors the defaults of the [pipeline] config section.
func DefaultConfig() Config {
	return Config{
		Seed:               42,
		PlaylistSize:       10,
		CriticMaxCalls:     3,
		ComplianceMaxCalls: 3,
		Candidates:         DefaultCandidates,
		GenreCap:           DefaultGenreCap,
	}
}

// ConfigFrom builds a run config from the loaded application config.
func ConfigFrom(c shared.PipelineConfig) Config {
	return Config{
		Seed:               c.Seed,
		PlaylistSize:       c.PlaylistSize,
		CriticMaxCalls:     c.CriticMaxCalls,
		ComplianceMaxCalls: c.ComplianceMaxCalls,
		Candidates:         c.Candidates,
		GenreCap:           c.GenreCap,
	}
}

// Validate rejects configs no run can satisfy. Zero Candidates and GenreCap fall back to their defaults.
func (c Config) Validate() error {
	switch {
	case c.PlaylistSize < 1:
		return fmt.Errorf("%w: playlist size must be >= 1, got %d", shared.ErrInvalidInput, c.PlaylistSize)
	case c.CriticMaxCalls < 0 || c.ComplianceMaxCalls < 0:
		return fmt.Errorf("%w: budgets must be >= 0", shared.ErrInvalidInput)
	case c.Variant < 0:
		return fmt.Errorf("%w: variant must be >= 0, got %d", shared.ErrInvalidInput, c.Variant)
	case c.Candidates < 0 || c.GenreCap < 0:
		return fmt.Errorf("%w: candidates and genre cap must be >= 0", shared.ErrInvalidInput)
	}
	return nil
}

// NewRand returns the run-local generator for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Orchestrator wires a catalog and a policy into runs. It holds no per-run state and may be shared
// by concurrent runs.
type Orchestrator struct {
	catalog services.Catalog
	policy  *Policy
}

// NewOrchestrator returns an Orchestrator. A nil policy uses [DefaultPolicy].
func NewOrchestrator(catalog services.Catalog, policy *Policy) *Orchestrator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Orchestrator{catalog: catalog, policy: policy}
}

// Run fetches candidates for genres, reviews them, enforces policy, keeps the first PlaylistSize tracks
// and computes metrics. Decisions are written to tracer, which must belong to this run alone.
//
// Budget exhaustion is not an error. The only failure is an invalid config or a catalog error.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, genres []string, tracer trace.Tracer) (*models.PipelineResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	if cfg.Candidates == 0 {
		cfg.Candidates = DefaultCandidates
	}

	rng := NewRand(cfg.Seed)
	critic := NewCritic(NewBudget(cfg.CriticMaxCalls), tracer, cfg.GenreCap)
	compliance := NewCompliance(NewBudget(cfg.ComplianceMaxCalls), tracer, o.policy)

	candidates, err := o.catalog.Fetch(ctx, services.FetchRequest{
		Genres:  genres,
		Count:   cfg.Candidates,
		Variant: cfg.Variant,
		Rand:    rng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s catalog: %w", shared.ErrAPIRequest, o.catalog.Name(), err)
	}
	if len(candidates) > cfg.Candidates {
		candidates = candidates[:cfg.Candidates]
	}

	for _, t := range candidates {
		tracer.Record(trace.AgentCurator, "catalog.search", trace.StatusOK, trace.Details{"title": t.Title})
	}

	reviewed := critic.Review(candidates)
	compliant := compliance.Enforce(reviewed)

	final := make([]models.Track, 0, min(len(compliant), cfg.PlaylistSize))
	final = append(final, compliant[:min(len(compliant), cfg.PlaylistSize)]...)

	return &models.PipelineResult{
		Playlist: final,
		Metrics:  models.ComputeMetrics(final),
		Seed:     cfg.Seed,
	}, nil
}
