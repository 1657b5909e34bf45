package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"studyprep/internal/admin"
	"studyprep/internal/server"
	"studyprep/internal/study"
)

const serveUsage = `Usage:
  studyprep serve --config <path> [--port <port>]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath, overridePort)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	ai, err := newAIStack(ctx, cfg)
	if err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := server.New(cfg,
		study.NewService(ai.router, ai.guard, repo),
		admin.NewService(repo, ai.stats),
		repo,
	)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
