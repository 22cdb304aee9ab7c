package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template when missing, migrates the history database
// and writes starter policy files. Existing files are left alone, so it is safe to re-run.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if !r.configured {
			if r.config, err = shared.LoadConfig(configPath); err != nil {
				return err
			}
		}
	} else {
		r.logger.Info("config file exists", "path", configPath)
	}

	cfg := r.Config()
	r.logger.Info("initializing database", "path", cfg.Database.Path)
	if _, err := r.Runs(); err != nil {
		return err
	}

	dir := cmd.String("policy-dir")
	if dir == "" {
		dir = cfg.Policy.Dir
	}
	if dir == "" {
		dir = "policy"
	}

	if policyExists(dir) {
		r.logger.Info("policy files exist", "dir", dir)
	} else {
		if err := pipeline.WritePolicy(dir, nil, cmd.StringSlice("region")); err != nil {
			return err
		}
		r.logger.Info("policy files written", "dir", dir)
	}

	if err := r.writePlain("✓ setup complete\n"); err != nil {
		return err
	}
	if cfg.Policy.Dir != dir {
		return r.writePlain("Set policy.dir = %q in %s to enforce these files\n", dir, configPath)
	}
	return nil
}

func policyExists(dir string) bool {
	for _, name := range []string{pipeline.DenylistFile, pipeline.AllowlistFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
