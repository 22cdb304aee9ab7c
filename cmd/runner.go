package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/mood"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config is loaded in [Runner.Before]; the catalog, policy, presets and database are built on first use
// so commands like "moods" never need credentials.
type Runner struct {
	config     *shared.Config
	configured bool
	catalog    services.Catalog
	policy     *pipeline.Policy
	resolver   *mood.Resolver
	db         *sql.DB
	runs       *repositories.RunRepository
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is and the --config flag is ignored.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configured: opts.Config != nil,
		catalog:    opts.Catalog,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:     "moodmix",
		Usage:    "Turn a mood into a traced, policy-checked playlist",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, curateCommand, batchCommand, moodsCommand, resolveCommand, historyCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies --verbose and loads the config file. A missing file falls back to defaults;
// an unreadable or invalid one is fatal.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.configured {
		return ctx, nil
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config = shared.DefaultConfig()
		return ctx, r.config.Validate()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// After releases the database, if one was opened.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.runs = nil, nil
	return err
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) Config() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// Catalog returns the configured candidate source, building it on first use.
func (r *Runner) Catalog() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	cfg := r.Config()
	switch cfg.Catalog.Source {
	case "file":
		c, err := services.NewFileCatalog(cfg.Catalog.FixturePath, true)
		if err != nil {
			return nil, err
		}
		r.catalog = c
	default:
		c, err := services.NewSpotifyCatalog(cfg.Credentials.Spotify.Map(), services.SpotifyCatalogOpts{
			RateLimit: cfg.Catalog.RateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET or catalog.source = \"file\")", err)
		}
		r.catalog = c
	}

	r.logger.Debug("catalog ready", "source", r.catalog.Name())
	return r.catalog, nil
}

// Policy returns the compliance policy from policy.dir, or the built-in one when unset.
func (r *Runner) Policy() (*pipeline.Policy, error) {
	if r.policy != nil {
		return r.policy, nil
	}

	dir := r.Config().Policy.Dir
	if dir == "" {
		r.policy = pipeline.DefaultPolicy()
		return r.policy, nil
	}

	p, err := pipeline.LoadPolicy(dir)
	if err != nil {
		return nil, err
	}
	r.policy = p
	return p, nil
}

// Resolver returns the mood resolver built from moods.presets_path or the embedded presets.
func (r *Runner) Resolver() (*mood.Resolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}

	presets, err := mood.LoadPresets(r.Config().Moods.PresetsPath)
	if err != nil {
		return nil, err
	}
	r.resolver = mood.NewResolver(presets)
	return r.resolver, nil
}

// Runs opens the history database on first use.
func (r *Runner) Runs() (*repositories.RunRepository, error) {
	if r.runs != nil {
		return r.runs, nil
	}

	db, err := shared.OpenDatabase(r.Config().Database)
	if err != nil {
		return nil, fmt.Errorf("%w: history database: %w", shared.ErrServiceUnavailable, err)
	}
	r.db = db
	r.runs = repositories.NewRunRepository(db)
	return r.runs, nil
}

type engineOpts struct {
	tracePrefix string
	traceURL    string
	noHistory   bool
}

// engine wires a [tasks.CurationEngine] from the runner's resources. History is best effort:
// a database that cannot be opened is logged and the run proceeds without it.
func (r *Runner) engine(opts engineOpts) (*tasks.CurationEngine, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	policy, err := r.Policy()
	if err != nil {
		return nil, err
	}
	resolver, err := r.Resolver()
	if err != nil {
		return nil, err
	}

	var store tasks.RunStore
	if !opts.noHistory {
		if runs, err := r.Runs(); err != nil {
			r.logger.Warn("run history disabled", "error", err)
		} else {
			store = runs
		}
	}

	cfg := r.Config()
	prefix := opts.tracePrefix
	if prefix == "" {
		prefix = cfg.Trace.Prefix
	}

	return tasks.NewCurationEngine(tasks.EngineOpts{
		Resolver:       resolver,
		Catalog:        catalog,
		Policy:         policy,
		Store:          store,
		Logger:         r.logger,
		TraceDir:       cfg.Trace.Dir,
		TracePrefix:    prefix,
		TraceURLPrefix: opts.traceURL,
	}), nil
}

// pipelineConfig starts from the [pipeline] config section and applies any flags that were set.
func (r *Runner) pipelineConfig(cmd *cli.Command) pipeline.Config {
	cfg := pipeline.ConfigFrom(r.Config().Pipeline)
	if cmd.IsSet("seed") {
		cfg.Seed = cmd.Int64("seed")
	}
	if cmd.IsSet("size") {
		cfg.PlaylistSize = cmd.Int("size")
	}
	if cmd.IsSet("variant") {
		cfg.Variant = cmd.Int("variant")
	}
	if cmd.IsSet("critic-budget") {
		cfg.CriticMaxCalls = cmd.Int("critic-budget")
	}
	if cmd.IsSet("compliance-budget") {
		cfg.ComplianceMaxCalls = cmd.Int("compliance-budget")
	}
	return cfg
}

// moodArg joins the positional arguments so unquoted vibes ("rainy sunday morning") work.
func moodArg(cmd *cli.Command) (string, error) {
	m := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if m == "" {
		return "", fmt.Errorf("%w: mood", shared.ErrMissingArgument)
	}
	return m, nil
}

// logProgress drains progress updates into the logger until the channel is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for u := range progress {
		r.logger.Info(u.Message, "phase", u.Phase)
	}
	close(done)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
