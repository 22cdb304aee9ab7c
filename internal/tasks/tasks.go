// package tasks runs mood curation end to end: resolve, trace, curate and persist.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/trace"
)

// RunStore persists finished runs. Implemented by repositories.RunRepository.
type RunStore interface {
	Create(ctx context.Context, run *models.Run) error
}

// CurateResult contains everything produced by one curation run.
type CurateResult struct {
	Resolution     models.Resolution
	Result         *models.PipelineResult
	Recommendation *models.Recommendation
	Run            *models.Run // Persisted run (nil without a store or when saving failed)
	TracePath      string
}

// EngineOpts configures a [CurationEngine].
type EngineOpts struct {
	Resolver *mood.Resolver
	Catalog  services.Catalog
	Policy   *pipeline.Policy
	Store    RunStore    // Optional run history
	Logger   *log.Logger // Defaults to [shared.NewLogger] on stderr

	TraceDir    string // Directory for trace files (default: traces)
	TracePrefix string // Trace file prefix (default: cli)
	// TraceURLPrefix, when set, turns trace file names into URLs (e.g. "/traces") in recommendations.
	// Otherwise the recommendation carries the file path.
	TraceURLPrefix string
}

// CurationEngine resolves moods and runs the pipeline. It holds no per-run state; concurrent
// calls to [CurationEngine.Curate] each get their own generator, budgets and trace file.
type CurationEngine struct {
	resolver     *mood.Resolver
	orchestrator *pipeline.Orchestrator
	catalog      services.Catalog
	store        RunStore
	logger       *log.Logger

	traceDir       string
	tracePrefix    string
	traceURLPrefix string
}

// NewCurationEngine creates a CurationEngine with the provided dependencies.
func NewCurationEngine(opts EngineOpts) *CurationEngine {
	if opts.Resolver == nil {
		opts.Resolver = mood.NewResolver(nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.TraceDir == "" {
		opts.TraceDir = "traces"
	}
	if opts.TracePrefix == "" {
		opts.TracePrefix = "cli"
	}

	return &CurationEngine{
		resolver:       opts.Resolver,
		orchestrator:   pipeline.NewOrchestrator(opts.Catalog, opts.Policy),
		catalog:        opts.Catalog,
		store:          opts.Store,
		logger:         opts.Logger,
		traceDir:       opts.TraceDir,
		tracePrefix:    opts.TracePrefix,
		traceURLPrefix: strings.TrimSuffix(opts.TraceURLPrefix, "/"),
	}
}

// Resolver returns the engine's mood resolver.
func (e *CurationEngine) Resolver() *mood.Resolver {
	return e.resolver
}

// TraceDir returns the directory trace files are written to.
func (e *CurationEngine) TraceDir() string {
	return e.traceDir
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *CurationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Curate resolves moodKey, runs the pipeline under cfg with a fresh trace file, and saves the run.
//
// Only an invalid config, a trace file that cannot be opened, or a catalog failure fail the run.
// Trace write and history errors are logged.
func (e *CurationEngine) Curate(ctx context.Context, moodKey string, cfg pipeline.Config, progress chan<- ProgressUpdate) (*CurateResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(moodKey) == "" {
		return nil, fmt.Errorf("%w: mood", shared.ErrMissingArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := e.resolver.Resolve(moodKey)
	logger := shared.WithLogger(e.logger, "mood", res.Key, "seed", cfg.Seed, "variant", cfg.Variant)
	e.sendProgress(progress, resolveUpdate(res))

	name := trace.FileName(e.tracePrefix, res.Key, cfg.Seed, cfg.Variant)
	path := filepath.Join(e.traceDir, name)

	tf, err := trace.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, openTraceUpdate(path))

	tf.Record(trace.AgentResolver, "mood.resolve", trace.StatusOK, trace.Details{
		"mood":       res.Key,
		"genres":     res.Genres,
		"provenance": res.Provenance,
	})

	e.sendProgress(progress, curateUpdate(e.catalog.Name(), cfg.Candidates))
	started := time.Now()
	result, runErr := e.orchestrator.Run(ctx, cfg, res.Genres, tf)

	if err := tf.Close(); err != nil {
		logger.Warn("trace incomplete", "path", path, "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	logger.Debug("curated", "size", result.Metrics.Size, "spans", tf.Spans(), "elapsed", time.Since(started))

	traceURL := path
	if e.traceURLPrefix != "" {
		traceURL = e.traceURLPrefix + "/" + name
	}

	out := &CurateResult{
		Resolution:     res,
		Result:         result,
		Recommendation: models.NewRecommendation(res, result, traceURL),
		TracePath:      path,
	}

	if e.store != nil {
		run := &models.Run{
			Mood:         res.Key,
			Provenance:   res.Provenance,
			Genres:       res.Genres,
			Seed:         cfg.Seed,
			Variant:      cfg.Variant,
			PlaylistSize: cfg.PlaylistSize,
			Metrics:      result.Metrics,
			TracePath:    path,
			Tracks:       result.Playlist,
		}
		if err := e.store.Create(ctx, run); err != nil {
			logger.Warn("failed to save run", "error", err)
		} else {
			out.Run = run
			e.sendProgress(progress, persistUpdate(run))
		}
	}

	e.sendProgress(progress, completeUpdate(out.Recommendation))
	return out, nil
}
