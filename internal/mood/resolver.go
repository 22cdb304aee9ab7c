// package mood resolves a mood key or free-text vibe into seed genres
package mood

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

//go:embed presets.toml
var presetsTOML []byte

// Preset is one named mood in the preset table.
type Preset struct {
	SeedGenres []string `toml:"seed_genres" json:"seed_genres"`
	Keywords   []string `toml:"keywords" json:"keywords"`
}

// Presets maps a normalized mood key to its preset.
type Presets map[string]Preset

// Keys returns the preset names in sorted order.
func (p Presets) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultPresets returns the built-in preset table.
func DefaultPresets() Presets {
	presets, err := parsePresets(presetsTOML)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded presets: %v", err))
	}
	return presets
}

// LoadPresets reads a preset table from path. An empty path yields [DefaultPresets].
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return DefaultPresets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read presets: %v", shared.ErrInvalidConfig, err)
	}
	return parsePresets(data)
}

func parsePresets(data []byte) (Presets, error) {
	var raw map[string]Preset
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse presets: %v", shared.ErrInvalidConfig, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: preset table is empty", shared.ErrInvalidConfig)
	}

	presets := make(Presets, len(raw))
	for name, p := range raw {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: preset with empty name", shared.ErrInvalidConfig)
		}
		if len(p.SeedGenres) == 0 {
			return nil, fmt.Errorf("%w: preset %q has no seed genres", shared.ErrInvalidConfig, name)
		}
		if _, dup := presets[key]; dup {
			return nil, fmt.Errorf("%w: duplicate preset %q", shared.ErrInvalidConfig, key)
		}
		presets[key] = p
	}
	return presets, nil
}

// Resolver turns mood keys into [models.Resolution] values.
type Resolver struct {
	presets Presets
}

// NewResolver returns a resolver over presets. A nil table uses [DefaultPresets].
func NewResolver(presets Presets) *Resolver {
	if presets == nil {
		presets = DefaultPresets()
	}
	return &Resolver{presets: presets}
}

// Presets returns the resolver's preset table.
func (r *Resolver) Presets() Presets {
	return r.presets
}

// Resolve looks the key up in the preset table (case-insensitive, trimmed) and falls back to [ParseVibe].
func (r *Resolver) Resolve(key string) models.Resolution {
	k := normalize(key)
	if p, ok := r.presets[k]; ok {
		return models.Resolution{Key: k, Genres: head(p.SeedGenres), Provenance: models.ProvenancePreset}
	}
	return models.Resolution{Key: k, Genres: ParseVibe(k), Provenance: models.ProvenanceVibe}
}
