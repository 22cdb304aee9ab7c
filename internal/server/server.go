// package server contains middleware & handlers for the moodmix web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, CORS, panic recovery, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the moodmix service.
// Implementations handle specific endpoint groups (API, trace files).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// RunLister reads run history. Implemented by [repositories.RunRepository].
type RunLister interface {
	List(ctx context.Context, opts repositories.ListOpts) ([]*models.Run, error)
}

// TokenChecker is implemented by catalogs that authenticate, e.g. [services.SpotifyCatalog].
type TokenChecker interface {
	CheckToken() error
}

// Opts configures a [Server].
type Opts struct {
	Config shared.ServerConfig
	Engine *tasks.CurationEngine
	Runs   RunLister    // Optional; /api/runs answers 503 without it
	Token  TokenChecker // Optional; health reports token: true without it
	Logger *log.Logger
	// Pipeline is the base config for /api/recommend; query parameters override size, seed and variant.
	// A zero value means [pipeline.DefaultConfig].
	Pipeline pipeline.Config
}

// Server serves the curation API and trace files.
type Server struct {
	cfg    shared.ServerConfig
	router *BasicRouter
	logger *log.Logger
}

// New builds a Server with its routes and middleware registered.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	logger := opts.Logger.With("component", "server")

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), CORS(opts.Config.AllowedOrigins))

	if opts.Pipeline.PlaylistSize == 0 {
		opts.Pipeline = pipeline.DefaultConfig()
	}

	api := &APIHandler{
		engine:   opts.Engine,
		pipeline: opts.Pipeline,
		runs:     opts.Runs,
		token:    opts.Token,
		logger:   logger,
	}
	router.HandleFunc(http.MethodGet, "/api/health", api.Health)
	router.HandleFunc(http.MethodGet, "/api/moods", api.Moods)
	router.HandleFunc(http.MethodGet, "/api/recommend", api.Recommend)
	router.HandleFunc(http.MethodGet, "/api/agentic/recommend", api.Recommend)
	router.HandleFunc(http.MethodGet, "/api/runs", api.Runs)
	if opts.Engine != nil {
		router.Handler(NewTraceHandler(opts.Engine.TraceDir()))
	}

	return &Server{cfg: opts.Config, router: router, logger: logger}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Routes lists the registered routes.
func (s *Server) Routes() []string {
	return s.router.Routes()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
//
// ready, when non-nil, receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	s.logger.Info("listening", "addr", addr)
	if ready != nil {
		ready <- addr
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
