package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// FileCatalog implements [Catalog] over a JSON array of tracks on disk.
type FileCatalog struct {
	tracks  []models.Track
	shuffle bool
}

// NewFileCatalog reads the track fixture at path. With shuffle set, every fetch permutes the candidates
// with the run's generator.
func NewFileCatalog(path string, shuffle bool) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read track fixture: %v", shared.ErrInvalidConfig, err)
	}

	var tracks []models.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("%w: failed to parse track fixture %s: %v", shared.ErrInvalidConfig, path, err)
	}
	return NewStaticCatalog(tracks, shuffle), nil
}

// NewStaticCatalog serves tracks from memory.
func NewStaticCatalog(tracks []models.Track, shuffle bool) *FileCatalog {
	return &FileCatalog{tracks: tracks, shuffle: shuffle}
}

func (c *FileCatalog) Name() string {
	return "File"
}

// Fetch keeps tracks whose genre is one of req.Genres (or all tracks when none match), rotates them by the
// variant, optionally shuffles, and caps at req.Count.
func (c *FileCatalog) Fetch(ctx context.Context, req FetchRequest) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Count < 1 || len(c.tracks) == 0 {
		return []models.Track{}, nil
	}

	pool := c.matching(req.Genres)

	n := len(pool)
	shift := ((req.Variant % n) + n) % n
	out := make([]models.Track, 0, n)
	out = append(out, pool[shift:]...)
	out = append(out, pool[:shift]...)

	if c.shuffle && req.Rand != nil {
		req.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	return out[:min(len(out), req.Count)], nil
}

func (c *FileCatalog) matching(genres []string) []models.Track {
	wanted := make(map[string]bool, len(genres))
	for _, g := range genres {
		wanted[g] = true
	}

	var pool []models.Track
	for _, t := range c.tracks {
		if wanted[t.Genre] {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return c.tracks
	}
	return pool
}
