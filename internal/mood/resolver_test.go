package mood

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

func TestResolver(t *testing.T) {
	r := NewResolver(nil)

	t.Run("Preset", func(t *testing.T) {
		res := r.Resolve("cozy")
		if res.Provenance != models.ProvenancePreset {
			t.Fatalf("expected preset provenance, got %s", res.Provenance)
		}
		want := []string{"acoustic", "singer-songwriter", "indie"}
		if !slices.Equal(res.Genres, want) {
			t.Errorf("expected %v, got %v", want, res.Genres)
		}
		if res.Label() != "cozy (preset)" {
			t.Errorf("unexpected label %q", res.Label())
		}
	})

	t.Run("Preset Case Insensitive", func(t *testing.T) {
		res := r.Resolve("  Sad-Girl ")
		if res.Provenance != models.ProvenancePreset || res.Key != "sad-girl" {
			t.Errorf("expected sad-girl preset, got %+v", res)
		}
	})

	t.Run("Presets Truncated", func(t *testing.T) {
		for _, key := range r.Presets().Keys() {
			if got := r.Resolve(key).Genres; len(got) > MaxGenres {
				t.Errorf("%s resolved to %d genres", key, len(got))
			}
		}
	})

	t.Run("Vibe", func(t *testing.T) {
		res := r.Resolve("heartbreak and nostalgic drives")
		if res.Provenance != models.ProvenanceVibe {
			t.Fatalf("expected vibe provenance, got %s", res.Provenance)
		}
		if res.Genres[0] != "indie" {
			t.Errorf("expected sad genres, got %v", res.Genres)
		}
	})

	t.Run("Result Is A Copy", func(t *testing.T) {
		res := r.Resolve("cozy")
		res.Genres[0] = "mutated"
		if r.Resolve("cozy").Genres[0] != "acoustic" {
			t.Error("resolve leaked the preset slice")
		}
	})
}

func TestParseVibe(t *testing.T) {
	tt := []struct {
		name  string
		text  string
		first string
	}{
		{name: "winter cue", text: "snowy evening with a sweater", first: "acoustic"},
		{name: "rain cue", text: "monsoon afternoon", first: "lo-fi"},
		{name: "workout cue", text: "gym session", first: "edm"},
		{name: "nightlife cue", text: "night out downtown", first: "dance"},
		{name: "winter before rain", text: "rain on the fireplace", first: "acoustic"},
		{name: "lexicon focus", text: "deep work essay", first: "lo-fi"},
		{name: "lexicon romantic", text: "valentine kiss", first: "r-n-b"},
		{name: "lexicon dark", text: "brooding noir", first: "industrial"},
		{name: "tie breaks to first label", text: "study heartbreak", first: "lo-fi"},
		{name: "default", text: "qwerty", first: "pop"},
		{name: "empty", text: "", first: "pop"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseVibe(tc.text)
			if len(got) == 0 || len(got) > MaxGenres {
				t.Fatalf("expected 1..%d genres, got %v", MaxGenres, got)
			}
			if got[0] != tc.first {
				t.Errorf("expected first genre %s, got %v", tc.first, got)
			}
		})
	}

	t.Run("Deterministic", func(t *testing.T) {
		a := ParseVibe("brooding night storm")
		b := ParseVibe("brooding night storm")
		if !slices.Equal(a, b) {
			t.Errorf("expected identical output, got %v and %v", a, b)
		}
	})
}

func TestLoadPresets(t *testing.T) {
	t.Run("Empty Path", func(t *testing.T) {
		p, err := LoadPresets("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p) != 9 {
			t.Errorf("expected 9 built-in presets, got %d", len(p))
		}
	})

	t.Run("Override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "presets.toml")
		content := "[Sunday]\nseed_genres = [\"jazz\", \"soul\"]\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write presets: %v", err)
		}

		p, err := LoadPresets(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res := NewResolver(p).Resolve("sunday")
		if res.Provenance != models.ProvenancePreset || !slices.Equal(res.Genres, []string{"jazz", "soul"}) {
			t.Errorf("unexpected resolution %+v", res)
		}
	})

	tt := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: "[cozy\nseed_genres = "},
		{name: "no genres", content: "[cozy]\nkeywords = [\"warm\"]\n"},
		{name: "empty", content: ""},
		{name: "duplicate after normalize", content: "[cozy]\nseed_genres = [\"a\"]\n[COZY]\nseed_genres = [\"b\"]\n"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "presets.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("failed to write presets: %v", err)
			}
			if _, err := LoadPresets(path); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("Missing File", func(t *testing.T) {
		if _, err := LoadPresets(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
