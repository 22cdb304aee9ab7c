package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// History lists saved runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	runs, err := r.Runs()
	if err != nil {
		return err
	}

	list, err := runs.List(ctx, repositories.ListOpts{
		Mood:  strings.ToLower(strings.TrimSpace(cmd.String("mood"))),
		Limit: cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}
	if len(list) == 0 {
		return r.writePlain("No runs yet. Try: moodmix curate cozy\n")
	}

	rows := make([][]string, 0, len(list))
	for _, run := range list {
		rows = append(rows, []string{
			strconv.Itoa(run.Sequence),
			run.Mood,
			string(run.Provenance),
			strconv.FormatInt(run.Seed, 10),
			strconv.Itoa(run.Variant),
			strconv.Itoa(run.Metrics.Size),
			fmt.Sprintf("%.2f", run.Metrics.DupRate),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table := renderTable(
		[]string{"#", "Mood", "Source", "Seed", "Variant", "Tracks", "Dup rate", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	return r.writePlain("%s\n", table)
}

// HistoryShow prints one run with its playlist.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: run id or sequence", shared.ErrMissingArgument)
	}

	runs, err := r.Runs()
	if err != nil {
		return err
	}
	run, err := runs.Get(ctx, ref)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(run, true)
	}

	if err := r.writePlain("run #%d · %s · %s\n", run.Sequence, run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.RenderRecommendation(run.Recommendation()))
}

// HistoryDelete removes a run from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: run id or sequence", shared.ErrMissingArgument)
	}

	runs, err := r.Runs()
	if err != nil {
		return err
	}
	run, err := runs.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := runs.Delete(ctx, run.ID); err != nil {
		return err
	}

	r.logger.Info("run deleted", "id", run.ID, "sequence", run.Sequence)
	return r.writePlain("deleted run #%d\n", run.Sequence)
}
