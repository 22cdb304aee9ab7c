// Spotify search implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	maxSearchGenres = 3
	maxPerCall      = 20
	offsetStride    = 7
	offsetWindow    = 120
	offsetStep      = 5
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifySearchResponse is the body of GET /search?type=track.
type SpotifySearchResponse struct {
	Tracks struct {
		Items  []SpotifyTrack `json:"items"`
		Total  int            `json:"total"`
		Limit  int            `json:"limit"`
		Offset int            `json:"offset"`
	} `json:"tracks"`
}

// SpotifyCatalogOpts overrides endpoints and transport, mostly for tests.
type SpotifyCatalogOpts struct {
	BaseURL    string
	TokenURL   string
	RateLimit  float64
	HTTPClient *http.Client
}

// SpotifyCatalog implements [Catalog] with the Spotify search endpoint and an app-only token.
type SpotifyCatalog struct {
	tokens     oauth2.TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	market     string
}

// NewSpotifyCatalog creates a catalog from the "client_id", "client_secret" and optional "market" credentials.
func NewSpotifyCatalog(credentials map[string]string, opts SpotifyCatalogOpts) (*SpotifyCatalog, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	market := credentials["market"]
	if market == "" {
		market = models.DefaultRegion
	}

	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     opts.TokenURL,
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	tokens := config.TokenSource(ctx)

	return &SpotifyCatalog{
		tokens:     tokens,
		httpClient: oauth2.NewClient(ctx, tokens),
		limiter:    rate.NewLimiter(limit, 1),
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		market:     market,
	}, nil
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// CheckToken fetches (or reuses) the app token.
func (s *SpotifyCatalog) CheckToken() error {
	if _, err := s.tokens.Token(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyCatalog) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	apiURL := s.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d @ %s", shared.ErrAPIRequest, resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

type searchQuery struct {
	q     string
	genre string
}

// searchQueries builds one query per genre and, with two or more genres, an OR query over the first two.
// The variant rotates the order.
func searchQueries(genres []string, variant int) []searchQuery {
	genres = genres[:min(len(genres), maxSearchGenres)]
	if len(genres) == 0 {
		genres = []string{"pop"}
	}

	queries := make([]searchQuery, 0, len(genres)+1)
	for _, g := range genres {
		queries = append(queries, searchQuery{q: fmt.Sprintf(`genre:"%s"`, g), genre: g})
	}
	if len(genres) >= 2 {
		queries = append(queries, searchQuery{
			q: fmt.Sprintf(`(genre:"%s" OR genre:"%s")`, genres[0], genres[1]),
		})
	}

	n := len(queries)
	shift := ((variant % n) + n) % n
	rotated := make([]searchQuery, 0, n)
	rotated = append(rotated, queries[shift:]...)
	return append(rotated, queries[:shift]...)
}

// Fetch runs the genre searches in order, skipping tracks already seen, until req.Count tracks are collected.
//
// Tracks found by a single-genre query carry that genre; tracks found by the OR query have no genre.
func (s *SpotifyCatalog) Fetch(ctx context.Context, req FetchRequest) ([]models.Track, error) {
	if req.Count < 1 {
		return []models.Track{}, nil
	}

	perCall := min(req.Count, maxPerCall)
	baseOffset := ((req.Variant*offsetStride)%offsetWindow + offsetWindow) % offsetWindow

	seen := make(map[string]bool)
	tracks := make([]models.Track, 0, req.Count)

	for i, query := range searchQueries(req.Genres, req.Variant) {
		params := url.Values{}
		params.Set("q", query.q)
		params.Set("type", "track")
		params.Set("limit", strconv.Itoa(perCall))
		params.Set("offset", strconv.Itoa(baseOffset+i*offsetStep))
		params.Set("market", s.market)

		var resp SpotifySearchResponse
		if err := s.doRequest(ctx, "/search", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Tracks.Items {
			if item.ID == "" || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			tracks = append(tracks, s.toTrack(item, query.genre))
			if len(tracks) >= req.Count {
				return tracks, nil
			}
		}
	}
	return tracks, nil
}

func (s *SpotifyCatalog) toTrack(item SpotifyTrack, genre string) models.Track {
	names := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		names = append(names, a.Name)
	}

	track := models.Track{
		Title:       item.Name,
		Artist:      strings.Join(names, ", "),
		Genre:       genre,
		Region:      s.market,
		ExternalURL: item.ExternalURLs.Spotify,
	}
	if len(item.Album.Images) > 0 {
		track.ImageURL = item.Album.Images[0].URL
	}
	return track
}
