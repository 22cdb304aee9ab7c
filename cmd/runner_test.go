package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	th "github.com/desertthunder/moodmix/internal/testing"
)

type testEnv struct {
	runner *Runner
	out    *bytes.Buffer
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := shared.DefaultConfig()
	cfg.Catalog.Source = "file"
	cfg.Trace.Dir = filepath.Join(dir, "traces")
	cfg.Outputs.Dir = filepath.Join(dir, "outputs")
	cfg.Database.Path = filepath.Join(dir, "moodmix.db")

	out := &bytes.Buffer{}
	return &testEnv{
		runner: NewRunner(RunnerOpts{
			Config:  cfg,
			Catalog: &th.MockCatalog{Tracks: th.Tracks(40, "acoustic", "indie", "folk", "chill", "pop", "edm")},
			Logger:  shared.NewLogger(io.Discard),
			Output:  out,
		}),
		out: out,
		dir: dir,
	}
}

// run executes args against a fresh root command and returns what was written to the output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.out.Reset()
	err := e.runner.App().Run(context.Background(), append([]string{"moodmix"}, args...))
	return e.out.String(), err
}

func TestNewRunner(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.logger == nil {
			t.Error("expected default logger to be set")
		}
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
		if runner.configured {
			t.Error("runner without config should load it in Before")
		}
	})

	t.Run("injected config", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		runner := NewRunner(RunnerOpts{Config: cfg})
		if runner.Config() != cfg || !runner.configured {
			t.Error("expected injected config to be used")
		}
	})
}

func TestBefore(t *testing.T) {
	t.Run("missing config file uses defaults", func(t *testing.T) {
		out := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: out})
		missing := filepath.Join(t.TempDir(), "nope.toml")

		if err := runner.App().Run(context.Background(), []string{"moodmix", "--config", missing, "moods", "--json"}); err != nil {
			t.Fatalf("expected defaults, got %v", err)
		}
		if runner.config == nil || runner.config.Trace.Prefix != "cli" {
			t.Errorf("expected default config, got %+v", runner.config)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[catalog\nsource ="), 0644); err != nil {
			t.Fatal(err)
		}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})

		if err := runner.App().Run(context.Background(), []string{"moodmix", "--config", path, "moods"}); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}

func TestCurate(t *testing.T) {
	t.Run("writes playlist, trace and history", func(t *testing.T) {
		env := newTestEnv(t)

		out, err := env.run(t, "curate", "--seed", "7", "--size", "5", "--format", "csv", "cozy")
		if err != nil {
			t.Fatalf("curate failed: %v", err)
		}
		for _, want := range []string{"Cozy (Preset)", "saved run #1", "playlist-seed7.csv"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}

		csv := th.MustReadFile(t, filepath.Join(env.dir, "outputs", "playlist-seed7.csv"))
		if lines := strings.Count(strings.TrimSpace(csv), "\n"); lines != 5 {
			t.Errorf("expected header plus 5 rows, got %d lines", lines+1)
		}
		th.AssertFileExists(t, filepath.Join(env.dir, "traces", "cli-run-cozy-seed7-v0.jsonl"))
	})

	t.Run("json output and custom path", func(t *testing.T) {
		env := newTestEnv(t)
		base := filepath.Join(env.dir, "mine", "rainy")

		out, err := env.run(t, "run", "--json", "--no-history", "--variant", "2", "-o", base, "rainy", "night")
		if err != nil {
			t.Fatalf("curate failed: %v", err)
		}

		var rec models.Recommendation
		if err := json.Unmarshal([]byte(out), &rec); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, out)
		}
		if rec.Mood != "rainy night (vibe)" || rec.Seed != 42 || rec.Count != 10 {
			t.Errorf("unexpected recommendation %+v", rec)
		}
		if !strings.HasSuffix(rec.TraceURL, "cli-run-rainy-night-seed42-v2.jsonl") {
			t.Errorf("unexpected trace reference %s", rec.TraceURL)
		}
		th.AssertFileExists(t, base+".json")
		if _, err := os.Stat(filepath.Join(env.dir, "moodmix.db")); !os.IsNotExist(err) {
			t.Error("--no-history should not open the database")
		}
	})

	t.Run("errors", func(t *testing.T) {
		env := newTestEnv(t)

		tt := []struct {
			name string
			args []string
			want error
		}{
			{name: "missing mood", args: []string{"curate"}, want: shared.ErrMissingArgument},
			{name: "bad format", args: []string{"curate", "--format", "xml", "cozy"}, want: shared.ErrInvalidArgument},
			{name: "bad size", args: []string{"curate", "--size", "0", "cozy"}, want: shared.ErrInvalidInput},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := env.run(t, tc.args...); !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	outDir := filepath.Join(env.dir, "batch")

	out, err := env.run(t, "batch", "--format", "txt", "--no-history", "-o", outDir, "cozy", "hype")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if !strings.Contains(out, "2/2 succeeded") || !strings.Contains(out, "hype") {
		t.Errorf("unexpected output:\n%s", out)
	}

	th.AssertFileExists(t, filepath.Join(outDir, tasks.ManifestFile))
	th.AssertFileExists(t, filepath.Join(outDir, "cozy", "playlist-seed42.txt"))
	th.AssertFileExists(t, filepath.Join(outDir, "hype", "playlist-seed42.txt"))
}

func TestMoodsAndResolve(t *testing.T) {
	env := newTestEnv(t)

	t.Run("moods json", func(t *testing.T) {
		out, err := env.run(t, "moods", "--json")
		if err != nil {
			t.Fatalf("moods failed: %v", err)
		}
		var presets mood.Presets
		if err := json.Unmarshal([]byte(out), &presets); err != nil {
			t.Fatalf("expected JSON: %v", err)
		}
		if len(presets) != 9 {
			t.Errorf("expected 9 presets, got %d", len(presets))
		}
	})

	t.Run("moods table", func(t *testing.T) {
		out, err := env.run(t, "moods")
		if err != nil {
			t.Fatalf("moods failed: %v", err)
		}
		if !strings.Contains(out, "singer-songwriter") || !strings.Contains(out, "╭") {
			t.Errorf("expected rounded table with genres:\n%s", out)
		}
	})

	t.Run("resolve", func(t *testing.T) {
		out, err := env.run(t, "resolve", "HYPE")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if !strings.HasPrefix(out, "hype (preset) → pop") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)

	if out, err := env.run(t, "history"); err != nil || !strings.Contains(out, "No runs yet") {
		t.Fatalf("expected empty history, got %q %v", out, err)
	}

	for _, m := range []string{"cozy", "hype"} {
		if _, err := env.run(t, "curate", m); err != nil {
			t.Fatalf("curate %s failed: %v", m, err)
		}
	}

	out, err := env.run(t, "history", "--json", "--mood", "Cozy")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var runs []models.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("expected JSON: %v", err)
	}
	if len(runs) != 1 || runs[0].Mood != "cozy" || runs[0].Sequence != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, err = env.run(t, "history", "show", "2")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "run #2") || !strings.Contains(out, "Hype (Preset)") {
		t.Errorf("unexpected show output:\n%s", out)
	}

	if out, err = env.run(t, "history", "delete", runs[0].ID); err != nil || !strings.Contains(out, "deleted run #1") {
		t.Fatalf("delete failed: %q %v", out, err)
	}
	if _, err := env.run(t, "history", "show", "1"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if _, err := env.run(t, "history", "show"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected missing argument, got %v", err)
	}
}

func TestSetup(t *testing.T) {
	env := newTestEnv(t)
	configPath := filepath.Join(env.dir, "config.toml")
	policyDir := filepath.Join(env.dir, "policy")

	out, err := env.run(t, "--config", configPath, "setup", "--policy-dir", policyDir, "--region", "US", "--region", "CA")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if !strings.Contains(out, "setup complete") || !strings.Contains(out, "policy.dir") {
		t.Errorf("unexpected output:\n%s", out)
	}

	th.AssertFileExists(t, configPath)
	th.AssertFileExists(t, filepath.Join(env.dir, "moodmix.db"))
	allow := th.MustReadFile(t, filepath.Join(policyDir, "allowlist.json"))
	if !strings.Contains(allow, `"CA"`) {
		t.Errorf("expected CA in allowlist:\n%s", allow)
	}

	if err := os.WriteFile(filepath.Join(policyDir, "allowlist.json"), []byte(`{"allowed_regions": ["GB"]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "--config", configPath, "setup", "--policy-dir", policyDir); err != nil {
		t.Fatalf("second setup failed: %v", err)
	}
	if allow := th.MustReadFile(t, filepath.Join(policyDir, "allowlist.json")); !strings.Contains(allow, "GB") {
		t.Error("setup should not overwrite existing policy files")
	}
}

func TestRenderTable(t *testing.T) {
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}

	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "x"}}, []columnAlignment{alignRight})
	for _, want := range []string{"A", "B", "1", "x", "╰"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestOutputErrors(t *testing.T) {
	tt := []struct {
		name string
		w    io.Writer
		want string
	}{
		{name: "write fails", w: &th.FWriter{}, want: "failed to write output"},
		{name: "newline fails", w: th.NewLimitedWriter(1, io.Discard), want: "failed to write newline"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Logger: shared.NewLogger(io.Discard), Output: tc.w})
			err := runner.App().Run(context.Background(), []string{"moodmix", "resolve", "--json", "cozy"})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q, got %v", tc.want, err)
			}
		})
	}
}
