// Package services defines the [Catalog] interface for candidate track sources and implements it for the
// Spotify Web API and for JSON fixture files.
//
// # Catalog Interface
//
// The curation pipeline only depends on [Catalog.Fetch]: seed genres, a result count and a variant
// index in, an ordered slice of [models.Track] out. Ranking and pagination of the upstream service are
// opaque to callers.
//
// # Spotify Implementation
//
// [SpotifyCatalog] authenticates with the client credentials grant. The [oauth2.TokenSource] caches the
// app token and fetches a new one when it expires, so no user login is involved.
//
// Searches run one query per seed genre plus one OR query over the first two genres. The variant rotates
// the query order and shifts the search offset so re-rolls surface different tracks. Requests are paced
// with a [rate.Limiter].
//
// # File Implementation
//
// [FileCatalog] reads a JSON array of tracks from disk. It serves offline runs and test fixtures, and is
// the only catalog that consumes [FetchRequest.Rand].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrInvalidConfig] : fixture file missing or malformed
package services
