package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	th "github.com/desertthunder/moodmix/internal/testing"
)

func newTestModel(t *testing.T, catalog *th.MockCatalog) *Model {
	t.Helper()
	engine := tasks.NewCurationEngine(tasks.EngineOpts{
		Catalog:  catalog,
		Logger:   shared.NewLogger(io.Discard),
		TraceDir: t.TempDir(),
	})
	m := NewModel(context.Background(), engine, pipeline.DefaultConfig())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// drain runs cmd and feeds the resulting messages back into the model until the run finishes.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		if cmd == nil {
			return
		}
		msg := cmd()
		_, cmd = m.Update(msg)
		if ui, ok := msg.(Msg); ok && ui.kind == MsgCurateComplete {
			return
		}
	}
	t.Fatal("run did not complete")
}

func TestModel(t *testing.T) {
	t.Run("Mood List", func(t *testing.T) {
		m := newTestModel(t, &th.MockCatalog{})
		if m.Init() != nil {
			t.Error("expected no init command")
		}
		if n := len(m.moodList.Items()); n != 9 {
			t.Errorf("expected 9 presets, got %d", n)
		}
		if first := m.moodList.Items()[0].(moodItem); first.key != "cozy" || first.Title() != "Cozy" {
			t.Errorf("unexpected first item %+v", first)
		}
	})

	t.Run("Curate And Re-roll", func(t *testing.T) {
		catalog := &th.MockCatalog{Tracks: th.Tracks(30, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j")}
		m := newTestModel(t, catalog)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != CurateView {
			t.Fatalf("expected curate view, got %d", m.view)
		}
		drain(t, m, cmd)

		if m.view != TrackListView || m.Result() == nil {
			t.Fatalf("expected track list, got view %d err %v", m.view, m.err)
		}
		if n := len(m.trackList.Items()); n != 10 {
			t.Errorf("expected 10 tracks, got %d", n)
		}
		if !strings.Contains(m.View(), "re-roll") {
			t.Error("track view should show re-roll help")
		}

		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
		drain(t, m, cmd)

		if m.Variant() != 1 {
			t.Errorf("expected variant 1 after re-roll, got %d", m.Variant())
		}
		reqs := catalog.Requests()
		if len(reqs) != 2 || reqs[0].Variant != 0 || reqs[1].Variant != 1 {
			t.Errorf("expected variants 0 then 1, got %+v", reqs)
		}
		if !strings.HasSuffix(m.Result().TracePath, "-v1.jsonl") {
			t.Errorf("unexpected trace path %s", m.Result().TracePath)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != MoodListView {
			t.Errorf("expected esc to return to moods, got %d", m.view)
		}
	})

	t.Run("Curate Error", func(t *testing.T) {
		m := newTestModel(t, &th.MockCatalog{Err: errors.New("catalog down")})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drain(t, m, cmd)

		if m.view != MoodListView || m.err == nil {
			t.Fatalf("expected error on mood list, got view %d err %v", m.view, m.err)
		}
		if !strings.Contains(m.View(), "catalog down") {
			t.Error("mood list should show the error")
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("Recommendation", func(t *testing.T) {
		rec := &models.Recommendation{
			Mood:     "sad-girl (preset)",
			Seed:     42,
			Count:    1,
			Playlist: []models.Track{{Title: "Song", Artist: "Someone", Genre: "indie"}},
			Metrics:  models.Metrics{UniqueArtists: 1, Size: 1},
			Genres:   []string{"indie", "indie-pop"},
			TraceURL: "traces/cli-run-sad-girl-seed42-v0.jsonl",
		}

		out := RenderRecommendation(rec)
		for _, want := range []string{"Sad-Girl (Preset)", "indie, indie-pop", "1. Someone - Song", "trace: traces/"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		out := RenderRecommendation(&models.Recommendation{Mood: "x (vibe)"})
		if !strings.Contains(out, "No tracks") {
			t.Errorf("expected empty notice, got:\n%s", out)
		}
	})

	t.Run("TitleCase", func(t *testing.T) {
		tt := []struct{ in, want string }{
			{in: "cozy", want: "Cozy"},
			{in: "rage-run", want: "Rage-Run"},
			{in: "rainy night drive", want: "Rainy Night Drive"},
		}
		for _, tc := range tt {
			if got := TitleCase(tc.in); got != tc.want {
				t.Errorf("TitleCase(%q) = %q, want %q", tc.in, got, tc.want)
			}
		}
	})
}
