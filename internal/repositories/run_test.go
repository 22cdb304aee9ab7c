package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(mood string) *models.Run {
	tracks := th.Tracks(3, "indie", "folk")
	tracks[2].Region = ""
	return &models.Run{
		Mood:         mood,
		Provenance:   models.ProvenancePreset,
		Genres:       []string{"indie", "folk", "chill"},
		Seed:         42,
		Variant:      1,
		PlaylistSize: 10,
		Metrics:      models.ComputeMetrics(tracks),
		TracePath:    "traces/cli-run-" + mood + "-seed42-v1.jsonl",
		Tracks:       tracks,
	}
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := testRun("cozy")

		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID == "" || run.Sequence != 1 || run.CreatedAt.IsZero() {
			t.Errorf("expected ID, sequence and timestamp to be set, got %+v", run)
		}

		second := testRun("hype")
		if err := repo.Create(ctx, second); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if second.Sequence != 2 {
			t.Errorf("expected sequence 2, got %d", second.Sequence)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := testRun("cozy")
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		for _, ref := range []string{run.ID, "1"} {
			got, err := repo.Get(ctx, ref)
			if err != nil {
				t.Fatalf("failed to get run %s: %v", ref, err)
			}
			if got.Mood != "cozy" || got.Seed != 42 || got.Variant != 1 || got.Provenance != models.ProvenancePreset {
				t.Errorf("unexpected run %+v", got)
			}
			if len(got.Genres) != 3 || got.Genres[2] != "chill" {
				t.Errorf("unexpected genres %v", got.Genres)
			}
			if got.Metrics != run.Metrics {
				t.Errorf("expected metrics %+v, got %+v", run.Metrics, got.Metrics)
			}
			if len(got.Tracks) != 3 || got.Tracks[0].Title != run.Tracks[0].Title {
				t.Fatalf("unexpected tracks %+v", got.Tracks)
			}
			if got.Tracks[2].Region != "" {
				t.Errorf("expected absent region to stay absent, got %q", got.Tracks[2].Region)
			}
			if got.Tracks[0].Region != run.Tracks[0].Region {
				t.Errorf("expected region %q, got %q", run.Tracks[0].Region, got.Tracks[0].Region)
			}
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		for _, m := range []string{"cozy", "hype", "cozy", "focus"} {
			if err := repo.Create(ctx, testRun(m)); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		runs, err := repo.List(ctx, ListOpts{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 4 || runs[0].Mood != "focus" || runs[0].Sequence != 4 {
			t.Errorf("expected newest first, got %+v", runs)
		}
		if len(runs[0].Tracks) != 0 {
			t.Error("list should not load tracks")
		}

		runs, err = repo.List(ctx, ListOpts{Mood: "cozy", Limit: 1})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].Sequence != 3 {
			t.Errorf("unexpected filtered runs %+v", runs)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := testRun("cozy")
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(ctx, run.ID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(ctx, run.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, run.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}

		runs, _ := repo.List(ctx, ListOpts{})
		if len(runs) != 0 {
			t.Errorf("deleted runs should be hidden, got %d", len(runs))
		}
	})

	t.Run("Concurrent Creates", func(t *testing.T) {
		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "runs.db")})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		repo := NewRunRepository(db)
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Create(ctx, testRun(fmt.Sprintf("mood-%d", i)))
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("concurrent create failed: %v", err)
			}
		}

		runs, err := repo.List(ctx, ListOpts{Limit: 100})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		seen := map[int]bool{}
		for _, r := range runs {
			seen[r.Sequence] = true
		}
		if len(seen) != 8 {
			t.Errorf("expected 8 distinct sequences, got %v", seen)
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))

		tt := []struct {
			name   string
			mutate func(*models.Run)
		}{
			{name: "empty mood", mutate: func(r *models.Run) { r.Mood = "" }},
			{name: "bad provenance", mutate: func(r *models.Run) { r.Provenance = "guess" }},
			{name: "zero size", mutate: func(r *models.Run) { r.PlaylistSize = 0 }},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				run := testRun("cozy")
				tc.mutate(run)
				if err := repo.Create(ctx, run); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				if run.ID != "" {
					t.Error("ID should not be set on failure")
				}
			})
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if _, err := repo.Get(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)
		db.Close()

		if err := repo.Create(ctx, testRun("cozy")); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(ctx, ListOpts{}); err == nil {
			t.Error("expected error on closed database")
		}
	})
}
