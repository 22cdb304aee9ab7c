// package models defines the data model for the mood curation service
package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRegion is assumed for tracks that carry no region.
const DefaultRegion = "US"

// Provenance records how a mood key was turned into genres.
type Provenance string

const (
	ProvenancePreset Provenance = "preset"
	ProvenanceVibe   Provenance = "vibe"
)

// Track is a candidate track. Artist may be a comma-joined list of contributing artists
// and is the deduplication key; an empty Genre means unknown.
type Track struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre,omitempty"`
	Region      string `json:"region,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// RegionOrDefault returns the track's region, or [DefaultRegion] when absent.
func (t Track) RegionOrDefault() string {
	if t.Region == "" {
		return DefaultRegion
	}
	return t.Region
}

// Resolution is the output of the mood resolver.
type Resolution struct {
	Key        string     `json:"key"`
	Genres     []string   `json:"genres"`
	Provenance Provenance `json:"provenance"`
}

// Label renders "<key> (<provenance>)", the mood label shown to callers.
func (r Resolution) Label() string {
	return fmt.Sprintf("%s (%s)", r.Key, r.Provenance)
}

// Metrics summarizes a final playlist.
type Metrics struct {
	DupRate       float64 `json:"dup_rate"`
	UniqueArtists int     `json:"unique_artists"`
	Size          int     `json:"size"`
}

// ComputeMetrics returns the metrics for tracks. The duplicate rate is the number of tracks beyond the
// first per artist divided by the total, and 0 for an empty playlist.
func ComputeMetrics(tracks []Track) Metrics {
	counts := make(map[string]int, len(tracks))
	for _, t := range tracks {
		counts[t.Artist]++
	}

	dups := 0
	for _, n := range counts {
		dups += max(0, n-1)
	}

	m := Metrics{UniqueArtists: len(counts), Size: len(tracks)}
	if len(tracks) > 0 {
		m.DupRate = float64(dups) / float64(len(tracks))
	}
	return m
}

// PipelineResult is produced once per orchestrator run.
type PipelineResult struct {
	Playlist []Track `json:"playlist"`
	Metrics  Metrics `json:"metrics"`
	Seed     int64   `json:"seed"`
}

// Recommendation is what the CLI writes and the HTTP API returns.
type Recommendation struct {
	Mood     string   `json:"mood"`
	Seed     int64    `json:"seed"`
	Count    int      `json:"count"`
	Playlist []Track  `json:"playlist"`
	Metrics  Metrics  `json:"metrics"`
	Genres   []string `json:"genres"`
	TraceURL string   `json:"trace_url,omitempty"`
}

// NewRecommendation combines a resolution and a pipeline result.
func NewRecommendation(res Resolution, result *PipelineResult, traceURL string) *Recommendation {
	playlist := result.Playlist
	if playlist == nil {
		playlist = []Track{}
	}
	return &Recommendation{
		Mood:     res.Label(),
		Seed:     result.Seed,
		Count:    len(playlist),
		Playlist: playlist,
		Metrics:  result.Metrics,
		Genres:   res.Genres,
		TraceURL: traceURL,
	}
}

// Run is one persisted curation run.
type Run struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	Mood         string     `json:"mood"`
	Provenance   Provenance `json:"provenance"`
	Genres       []string   `json:"genres"`
	Seed         int64      `json:"seed"`
	Variant      int        `json:"variant"`
	PlaylistSize int        `json:"playlist_size"`
	Metrics      Metrics    `json:"metrics"`
	TracePath    string     `json:"trace_path"`
	Tracks       []Track    `json:"tracks,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Validate checks the fields the run history requires.
func (r *Run) Validate() error {
	if strings.TrimSpace(r.Mood) == "" {
		return fmt.Errorf("run mood is required")
	}
	if r.Provenance != ProvenancePreset && r.Provenance != ProvenanceVibe {
		return fmt.Errorf("invalid provenance %q", r.Provenance)
	}
	if r.PlaylistSize < 1 {
		return fmt.Errorf("playlist size must be >= 1")
	}
	return nil
}

// Recommendation rebuilds the recommendation a saved run produced. The trace reference is the file path.
func (r *Run) Recommendation() *Recommendation {
	res := Resolution{Key: r.Mood, Genres: r.Genres, Provenance: r.Provenance}
	return NewRecommendation(res, &PipelineResult{Playlist: r.Tracks, Metrics: r.Metrics, Seed: r.Seed}, r.TracePath)
}
