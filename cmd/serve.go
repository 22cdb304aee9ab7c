package main

import (
	"context"

	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted. Runs served over HTTP use the "agent" trace prefix
// and are linked under /traces/.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(engineOpts{tracePrefix: "agent", traceURL: "/traces"})
	if err != nil {
		return err
	}

	cfg := r.Config().Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}

	opts := server.Opts{
		Config:   cfg,
		Engine:   engine,
		Logger:   r.logger,
		Pipeline: pipeline.ConfigFrom(r.Config().Pipeline),
	}
	if r.runs != nil {
		opts.Runs = r.runs
	}
	if checker, ok := r.catalog.(server.TokenChecker); ok {
		opts.Token = checker
	}

	srv := server.New(opts)
	for _, route := range srv.Routes() {
		r.logger.Debug("route", "pattern", route)
	}

	ready := make(chan string, 1)
	if cmd.Bool("open") {
		go func() {
			select {
			case addr := <-ready:
				url := "http://" + addr + "/api/health"
				if err := shared.OpenBrowser(url); err != nil {
					r.logger.Warn("could not open browser", "url", url, "error", err)
				}
			case <-ctx.Done():
			}
		}()
	}

	return srv.ListenAndServe(ctx, ready)
}
