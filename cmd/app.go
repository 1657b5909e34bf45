package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"studyprep/internal/cache"
	"studyprep/internal/config"
	"studyprep/internal/guard"
	"studyprep/internal/provider"
	providerfactory "studyprep/internal/provider/factory"
	"studyprep/internal/router"
	"studyprep/internal/store"
)

// loadConfig reads the configuration and applies a --port override when set.
func loadConfig(path string, port int) (config.Config, error) {
	if path == "" {
		return config.Config{}, fmt.Errorf("--config <path> is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if port != 0 {
		if port < 0 || port > 65535 {
			return config.Config{}, fmt.Errorf("port override %d must be a valid TCP port", port)
		}
		cfg.Server.Port = port
	}
	return cfg, nil
}

// setupLogger installs the default slog logger described by cfg.
func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// aiStack is everything the study service needs to talk to a model.
type aiStack struct {
	router *router.Router
	guard  *guard.Guard
	stats  *guard.Stats
}

func newAIStack(ctx context.Context, cfg config.Config) (*aiStack, error) {
	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry); err != nil {
		return nil, err
	}

	stats := guard.NewStats()
	opts := []guard.Option{
		guard.WithTimeout(cfg.AI.Timeout),
		guard.WithRepair(cfg.AI.RepairJSON),
		guard.WithRecorder(stats),
	}
	if cfg.AI.Cache.Size >= 0 {
		opts = append(opts, guard.WithCache(cache.New(cfg.AI.Cache.Size, cfg.AI.Cache.TTL)))
	}

	slog.Info("providers registered", "models", registry.Models(), "default_model", cfg.AI.DefaultModel)
	return &aiStack{
		router: router.New(registry, cfg.AI.DefaultModel),
		guard:  guard.New(opts...),
		stats:  stats,
	}, nil
}

// openStore returns the configured repository and a func releasing its resources.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Repository, func(), error) {
	switch cfg.Driver {
	case config.StorePostgres:
		pool, err := store.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
