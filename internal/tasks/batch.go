package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestFile is the name of the summary written at the root of a batch output directory.
const ManifestFile = "batch_manifest.json"

// BatchOpts contains configuration for batch curation.
type BatchOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: batch_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Runs started per second (default: 5)
}

// BatchMoodResult is the outcome of one mood in a batch.
type BatchMoodResult struct {
	Mood     string   `json:"mood"`
	Key      string   `json:"key,omitempty"`
	Count    int      `json:"count"`
	Files    []string `json:"files,omitempty"`
	Trace    string   `json:"trace,omitempty"`
	Success  bool     `json:"success"`
	Error    error    `json:"-"`
	ErrorMsg string   `json:"error,omitempty"`
}

// BatchResult summarizes a batch. Results are in the order the moods were given.
type BatchResult struct {
	TotalMoods      int               `json:"total_moods"`
	Succeeded       int               `json:"succeeded"`
	Failed          int               `json:"failed"`
	Format          formatter.Format  `json:"format"`
	OutputDirectory string            `json:"output_directory"`
	Skipped         []string          `json:"skipped,omitempty"` // Moods dropped because an earlier mood resolved to the same key
	ManifestPath    string            `json:"-"`
	Results         []BatchMoodResult `json:"results"`
	CreatedAt       time.Time         `json:"created_at"`
}

type batchJob struct {
	index int
	mood  string
}

// Batch curates several moods concurrently with the same config, writing one export per mood
// plus a manifest.
//
// Moods that resolve to the same key as an earlier mood are skipped, since they would share a trace
// file and an export path. Failures are recorded per mood and do not stop the batch. Every mood gets its own generator
// and budgets, so each export matches what a single run with the same config would produce.
func (e *CurationEngine) Batch(
	ctx context.Context,
	moods []string,
	cfg pipeline.Config,
	opts BatchOpts,
	prog chan<- ProgressUpdate,
) (*BatchResult, error) {
	if len(moods) == 0 {
		return nil, fmt.Errorf("%w: at least one mood is required", shared.ErrMissingArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	moods, skipped := e.uniqueMoods(moods)
	for _, m := range skipped {
		e.logger.Warn("skipping duplicate mood", "mood", m)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("batch_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BatchResult{
		TotalMoods:      len(moods),
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Skipped:         skipped,
		Results:         make([]BatchMoodResult, len(moods)),
		CreatedAt:       time.Now().UTC(),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan batchJob, len(moods))
	results := make(chan batchJob, len(moods))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.batchWorker(ctx, &wg, limiter, jobs, results, cfg, opts, result.Results)
	}

	for i, m := range moods {
		jobs <- batchJob{index: i, mood: m}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(moods))
	completed := 0
	for job := range results {
		completed++
		done[job.index] = true
		res := result.Results[job.index]
		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, batchCompletedUpdate(completed, len(moods), res.Mood, res.Count))
		} else {
			result.Failed++
			e.sendProgress(prog, batchFailedUpdate(completed, len(moods), res.Mood, res.Error))
		}
	}

	// Workers that bail on cancellation leave their slots empty.
	for i := range result.Results {
		if !done[i] {
			result.Results[i] = BatchMoodResult{Mood: moods[i], Error: context.Cause(ctx), ErrorMsg: "cancelled"}
			result.Failed++
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if result.Succeeded == 0 {
		return result, errors.Join(shared.ErrServiceUnavailable, firstError(result.Results))
	}
	return result, nil
}

func (e *CurationEngine) batchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan batchJob,
	results chan<- batchJob,
	cfg pipeline.Config,
	opts BatchOpts,
	slots []BatchMoodResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		slots[job.index] = e.curateOne(ctx, job.mood, cfg, opts)
		results <- job
	}
}

// uniqueMoods keeps the first mood for each resolved key. Blank moods are kept; they fail on their own.
func (e *CurationEngine) uniqueMoods(moods []string) (kept, skipped []string) {
	seen := make(map[string]bool, len(moods))
	for _, m := range moods {
		if strings.TrimSpace(m) == "" {
			kept = append(kept, m)
			continue
		}
		key := e.resolver.Resolve(m).Key
		if seen[key] {
			skipped = append(skipped, m)
			continue
		}
		seen[key] = true
		kept = append(kept, m)
	}
	return kept, skipped
}

// curateOne runs a single mood of a batch and writes its export.
func (e *CurationEngine) curateOne(ctx context.Context, mood string, cfg pipeline.Config, opts BatchOpts) BatchMoodResult {
	res := BatchMoodResult{Mood: mood}

	out, err := e.Curate(ctx, mood, cfg, nil)
	if err != nil {
		res.Error = err
		res.ErrorMsg = err.Error()
		return res
	}
	res.Key = out.Resolution.Key
	res.Count = out.Recommendation.Count
	res.Trace = out.TracePath

	base := filepath.Join(opts.OutputDir, shared.Slugify(out.Resolution.Key), formatter.PlaylistFileName(cfg.Seed))
	path, err := formatter.WriteExport(out.Recommendation, opts.Format, base)
	if err != nil {
		res.Error = err
		res.ErrorMsg = err.Error()
		return res
	}

	res.Files = []string{path}
	res.Success = true
	return res
}

func firstError(results []BatchMoodResult) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}
