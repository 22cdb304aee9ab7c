package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
	"github.com/desertthunder/moodmix/internal/trace"
)

func TestConfig(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	tt := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero playlist size", mutate: func(c *Config) { c.PlaylistSize = 0 }},
		{name: "negative critic budget", mutate: func(c *Config) { c.CriticMaxCalls = -1 }},
		{name: "negative compliance budget", mutate: func(c *Config) { c.ComplianceMaxCalls = -1 }},
		{name: "negative variant", mutate: func(c *Config) { c.Variant = -2 }},
		{name: "negative candidates", mutate: func(c *Config) { c.Candidates = -5 }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	t.Run("negative seed is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Seed = -7
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected any seed to validate, got %v", err)
		}
		if NewRand(-7).Uint64() != NewRand(-7).Uint64() {
			t.Error("expected a negative seed to be deterministic")
		}
	})

	t.Run("ConfigFrom", func(t *testing.T) {
		cfg := ConfigFrom(shared.DefaultConfig().Pipeline)
		if cfg != DefaultConfig() {
			t.Errorf("expected config file defaults to match, got %+v", cfg)
		}
	})
}

func TestOrchestrator(t *testing.T) {
	ctx := context.Background()

	t.Run("Run", func(t *testing.T) {
		catalog := &th.MockCatalog{Tracks: th.Tracks(40, "indie", "folk", "chill", "acoustic", "lo-fi")}
		tracer := &th.MemoryTracer{}

		cfg := DefaultConfig()
		result, err := NewOrchestrator(catalog, nil).Run(ctx, cfg, []string{"indie", "folk"}, tracer)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		reqs := catalog.Requests()
		if len(reqs) != 1 || reqs[0].Count != DefaultCandidates || reqs[0].Rand == nil {
			t.Fatalf("unexpected fetch requests %+v", reqs)
		}
		if len(result.Playlist) != cfg.PlaylistSize {
			t.Errorf("expected %d tracks, got %d", cfg.PlaylistSize, len(result.Playlist))
		}
		if result.Seed != cfg.Seed {
			t.Errorf("expected seed %d, got %d", cfg.Seed, result.Seed)
		}
		if result.Metrics.Size != len(result.Playlist) || result.Metrics.UniqueArtists != len(result.Playlist) {
			t.Errorf("unexpected metrics %+v", result.Metrics)
		}
		if n := tracer.Count("catalog.search", trace.StatusOK); n != DefaultCandidates {
			t.Errorf("expected %d curator records, got %d", DefaultCandidates, n)
		}
		// 5 genres x cap 3 leaves 15 of the 30 candidates
		if n := tracer.Count("filters.diversity", trace.StatusDrop); n != 15 {
			t.Errorf("expected 15 diversity drops, got %d", n)
		}
	})

	t.Run("Determinism", func(t *testing.T) {
		catalog := services.NewStaticCatalog(th.Tracks(50, "a", "b", "c", "d", "e", "f", "g", "h"), true)
		o := NewOrchestrator(catalog, nil)

		cfg := DefaultConfig()
		cfg.Seed = 1234
		cfg.Variant = 3

		render := func() []byte {
			result, err := o.Run(ctx, cfg, nil, nil)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			data, err := shared.MarshalJSON(result, false)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			return data
		}

		first, second := render(), render()
		if !bytes.Equal(first, second) {
			t.Errorf("expected identical results:\n%s\n%s", first, second)
		}

		cfg.Seed = 99
		if bytes.Equal(first, render()) {
			t.Error("expected a different seed to reorder the shuffled catalog")
		}
	})

	t.Run("Concurrent Runs Stay Deterministic", func(t *testing.T) {
		catalog := services.NewStaticCatalog(th.Tracks(50, "a", "b", "c", "d", "e", "f", "g", "h"), true)
		o := NewOrchestrator(catalog, nil)
		cfg := DefaultConfig()

		want, err := o.Run(ctx, cfg, nil, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		wantJSON, _ := shared.MarshalJSON(want, false)

		results := make(chan []byte, 8)
		for range 8 {
			go func() {
				r, err := o.Run(ctx, cfg, nil, nil)
				if err != nil {
					results <- nil
					return
				}
				data, _ := shared.MarshalJSON(r, false)
				results <- data
			}()
		}
		for range 8 {
			if got := <-results; !bytes.Equal(got, wantJSON) {
				t.Errorf("concurrent run diverged: %s", got)
			}
		}
	})

	t.Run("Policy Applied After Dedupe", func(t *testing.T) {
		tracks := th.Tracks(6, "a", "b", "c")
		tracks[1].Artist = tracks[0].Artist
		tracks[2].Artist = "Blocked"

		tracer := &th.MemoryTracer{}
		policy := NewPolicy([]string{"Blocked"}, nil)
		result, err := NewOrchestrator(&th.MockCatalog{Tracks: tracks}, policy).Run(ctx, DefaultConfig(), nil, tracer)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(result.Playlist) != 4 {
			t.Errorf("expected 4 tracks, got %d", len(result.Playlist))
		}
		var stages []trace.Agent
		for _, r := range tracer.Records {
			if r.Status != trace.StatusOK {
				stages = append(stages, r.Agent)
			}
		}
		if len(stages) != 2 || stages[0] != trace.AgentCritic || stages[1] != trace.AgentCompliance {
			t.Errorf("expected critic then compliance records, got %v", stages)
		}
	})

	t.Run("Zero Budgets Pass Through", func(t *testing.T) {
		tracks := th.Tracks(5, "pop")
		for i := range tracks {
			tracks[i].Artist = "Same"
		}

		cfg := DefaultConfig()
		cfg.CriticMaxCalls = 0
		cfg.ComplianceMaxCalls = 0

		tracer := &th.MemoryTracer{}
		result, err := NewOrchestrator(&th.MockCatalog{Tracks: tracks}, nil).Run(ctx, cfg, nil, tracer)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if result.Metrics.Size != 5 || result.Metrics.UniqueArtists != 1 || result.Metrics.DupRate != 0.8 {
			t.Errorf("unexpected metrics %+v", result.Metrics)
		}
		if tracer.Count("filters.review", trace.StatusBudgetExceeded) != 1 ||
			tracer.Count("policy.enforce", trace.StatusBudgetExceeded) != 1 {
			t.Errorf("expected one budget_exceeded record per stage, got %+v", tracer.Records)
		}
	})

	t.Run("Empty Catalog", func(t *testing.T) {
		result, err := NewOrchestrator(&th.MockCatalog{}, nil).Run(ctx, DefaultConfig(), nil, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		want := models.Metrics{DupRate: 0, UniqueArtists: 0, Size: 0}
		if result.Metrics != want {
			t.Errorf("expected zero metrics, got %+v", result.Metrics)
		}
		if result.Playlist == nil {
			t.Error("expected an empty, non-nil playlist")
		}
	})

	t.Run("Size Bounded By Compliant Set", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PlaylistSize = 50

		result, err := NewOrchestrator(&th.MockCatalog{Tracks: th.Tracks(4, "a", "b")}, nil).Run(ctx, cfg, nil, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(result.Playlist) != 4 {
			t.Errorf("expected 4 tracks, got %d", len(result.Playlist))
		}
	})

	t.Run("Catalog Error Propagates", func(t *testing.T) {
		upstream := fmt.Errorf("status 502")
		catalog := &th.MockCatalog{Err: upstream}

		_, err := NewOrchestrator(catalog, nil).Run(ctx, DefaultConfig(), nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) || !errors.Is(err, upstream) {
			t.Errorf("expected wrapped upstream error, got %v", err)
		}
	})

	t.Run("Invalid Config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PlaylistSize = 0
		catalog := &th.MockCatalog{}

		if _, err := NewOrchestrator(catalog, nil).Run(ctx, cfg, nil, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(catalog.Requests()) != 0 {
			t.Error("catalog should not be called for an invalid config")
		}
	})

	t.Run("Trace File Is Gapless", func(t *testing.T) {
		tracks := th.Tracks(30, "a", "b")
		tracks[4].Artist = tracks[0].Artist

		var buf bytes.Buffer
		rec := trace.NewRecorder(&buf, func() time.Time { return time.Unix(0, 0) })
		if _, err := NewOrchestrator(&th.MockCatalog{Tracks: tracks}, nil).Run(ctx, DefaultConfig(), nil, rec); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		// 30 candidates, 1 dedupe drop, 29 - 6 diversity drops
		want := 30 + 1 + 23
		if rec.Spans() != want {
			t.Errorf("expected %d spans, got %d", want, rec.Spans())
		}
		if lines := bytes.Count(buf.Bytes(), []byte("\n")); lines != want {
			t.Errorf("expected %d lines, got %d", want, lines)
		}
	})
}
