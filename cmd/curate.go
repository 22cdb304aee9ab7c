package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/desertthunder/moodmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// Curate runs the pipeline for one mood, writes the playlist file and prints a summary.
func (r *Runner) Curate(ctx context.Context, cmd *cli.Command) error {
	mood, err := moodArg(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.engine(engineOpts{noHistory: cmd.Bool("no-history")})
	if err != nil {
		return err
	}
	cfg := r.pipelineConfig(cmd)

	progress := make(chan tasks.ProgressUpdate, 10)
	drained := make(chan struct{})
	go r.logProgress(progress, drained)

	result, err := engine.Curate(ctx, mood, cfg, progress)
	close(progress)
	<-drained
	if err != nil {
		return err
	}

	base := cmd.String("output")
	if base == "" {
		base = filepath.Join(r.Config().Outputs.Dir, formatter.PlaylistFileName(cfg.Seed))
	}
	path, err := formatter.WriteExport(result.Recommendation, format, base)
	if err != nil {
		return err
	}
	r.logger.Debug("playlist written", "path", path)

	if cmd.Bool("json") {
		return r.writeJSON(result.Recommendation, true)
	}

	if err := r.writePlain("%s\n", ui.RenderRecommendation(result.Recommendation)); err != nil {
		return err
	}
	if result.Run != nil {
		if err := r.writePlain("saved run #%d\n", result.Run.Sequence); err != nil {
			return err
		}
	}
	return r.writePlain("wrote %s\n", path)
}

// Batch curates every mood argument concurrently and prints a per-mood table.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	moods := cmd.Args().Slice()
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.engine(engineOpts{noHistory: cmd.Bool("no-history")})
	if err != nil {
		return err
	}

	outputDir := cmd.String("output-dir")
	if outputDir == "" {
		outputDir = filepath.Join(r.Config().Outputs.Dir, fmt.Sprintf("batch_%d", time.Now().Unix()))
	}

	progress := make(chan tasks.ProgressUpdate, len(moods)+1)
	drained := make(chan struct{})
	go r.logProgress(progress, drained)

	result, err := engine.Batch(ctx, moods, r.pipelineConfig(cmd), tasks.BatchOpts{
		Format:     format,
		OutputDir:  outputDir,
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}, progress)
	close(progress)
	<-drained
	if result == nil {
		return err
	}

	rows := make([][]string, 0, len(result.Results))
	for _, res := range result.Results {
		status := "ok"
		if !res.Success {
			status = res.ErrorMsg
		}
		rows = append(rows, []string{res.Mood, res.Key, strconv.Itoa(res.Count), strings.Join(res.Files, ", "), status})
	}
	table := renderTable(
		[]string{"Mood", "Key", "Tracks", "Files", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
	if werr := r.writePlain("%s\n%d/%d succeeded · manifest %s\n", table, result.Succeeded, result.TotalMoods, result.ManifestPath); werr != nil {
		return werr
	}
	if len(result.Skipped) > 0 {
		if werr := r.writePlain("skipped duplicates: %s\n", strings.Join(result.Skipped, ", ")); werr != nil {
			return werr
		}
	}
	return err
}

// Moods lists the presets with their seed genres.
func (r *Runner) Moods(ctx context.Context, cmd *cli.Command) error {
	resolver, err := r.Resolver()
	if err != nil {
		return err
	}
	presets := resolver.Presets()

	if cmd.Bool("json") {
		return r.writeJSON(presets, true)
	}

	rows := make([][]string, 0, len(presets))
	for _, k := range presets.Keys() {
		p := presets[k]
		rows = append(rows, []string{k, strings.Join(p.SeedGenres, ", "), strings.Join(p.Keywords, ", ")})
	}
	return r.writePlain("%s\n", renderTable([]string{"Mood", "Seed genres", "Keywords"}, rows, nil))
}

// Resolve prints the genres a mood resolves to without fetching anything.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	mood, err := moodArg(cmd)
	if err != nil {
		return err
	}
	resolver, err := r.Resolver()
	if err != nil {
		return err
	}

	res := resolver.Resolve(mood)
	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	return r.writePlain("%s → %s\n", res.Label(), strings.Join(res.Genres, ", "))
}
