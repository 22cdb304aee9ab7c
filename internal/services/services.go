// package services defines the Catalog interface for fetching candidate tracks
//
// Spotify search, JSON fixture files
package services

import (
	"context"
	"math/rand/v2"

	"github.com/desertthunder/moodmix/internal/models"
)

// Catalog produces raw candidate tracks for a set of seed genres.
type Catalog interface {
	// Fetch returns at most req.Count tracks in catalog order. Errors are upstream failures
	// and are not retried by callers.
	Fetch(ctx context.Context, req FetchRequest) ([]models.Track, error)

	// Name returns the name of the catalog (e.g., "Spotify", "File")
	Name() string
}

// FetchRequest describes one candidate fetch.
type FetchRequest struct {
	Genres  []string
	Count   int
	Variant int
	// Rand is the run's generator. Catalogs that need randomness must draw from it and nothing else.
	Rand *rand.Rand
}
