// Package server exposes mood curation over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging], [Recover] and [CORS] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
//   - GET /api/health : liveness, catalog token check and preset count
//   - GET /api/moods : sorted preset keys
//   - GET /api/recommend : run the pipeline for ?mood with optional limit, seed and variant
//   - GET /api/runs : recent run history (when a history store is configured)
//   - GET /traces/{file} : the JSONL trace files written by recommend
//
// /api/agentic/recommend is kept as an alias of /api/recommend for older front ends.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
