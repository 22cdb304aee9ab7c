// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (defaults are used when it does not exist)",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// pipelineFlags override the [pipeline] section of the config for a single run.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "Random seed (same seed, same playlist)",
		},
		&cli.IntFlag{
			Name:    "size",
			Aliases: []string{"n", "limit"},
			Usage:   "Playlist size",
		},
		&cli.IntFlag{
			Name:  "variant",
			Usage: "Catalog query variant (re-roll)",
		},
		&cli.IntFlag{
			Name:  "critic-budget",
			Usage: "Max critic invocations per run",
		},
		&cli.IntFlag{
			Name:  "compliance-budget",
			Usage: "Max compliance invocations per run",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Don't save the run to the history database",
		},
	}
}

// curateCommand runs the pipeline for one mood
func curateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "curate",
		Aliases:   []string{"run"},
		Usage:     "Curate a playlist for a mood preset or free-text vibe",
		ArgsUsage: "<mood or vibe>",
		Flags: append(pipelineFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path without extension (default: <outputs.dir>/playlist-seed<seed>)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output file format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the recommendation as JSON instead of a summary",
			},
		),
		Action: r.Curate,
	}
}

// batchCommand curates several moods at once
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Curate several moods concurrently and export each",
		ArgsUsage: "<mood> [mood...]",
		Flags: append(pipelineFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: <outputs.dir>/batch_<epoch>)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Runs started per second",
				Value: 5,
			},
		),
		Action: r.Batch,
	}
}

// moodsCommand lists presets
func moodsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "moods",
		Usage: "List mood presets and their seed genres",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Moods,
	}
}

// resolveCommand shows how a mood resolves without running the pipeline
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Show the seed genres a mood or vibe resolves to",
		ArgsUsage: "<mood or vibe>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// historyCommand browses saved runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse saved curation runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "mood",
				Usage: "Only runs for this mood key",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a run and its playlist",
				ArgsUsage: "<id or sequence>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a run from history",
				ArgsUsage: "<id or sequence>",
				Action:    r.HistoryDelete,
			},
		},
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the recommendation API and trace files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the health endpoint in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, database and policy files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "policy-dir",
				Usage: "Directory for denylist.json and allowlist.json (default: policy.dir or ./policy)",
			},
			&cli.StringSliceFlag{
				Name:  "region",
				Usage: "Allowed region for the generated allowlist (repeatable)",
				Value: []string{"US"},
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand launches the interactive UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse moods and curate interactively",
		Flags:  pipelineFlags(),
		Action: r.TUI,
	}
}
