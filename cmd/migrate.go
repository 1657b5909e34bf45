package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"studyprep/internal/store"
)

const migrateUsage = `Usage:
  studyprep migrate --dsn <postgres-url>

Flags:
  --dsn string   PostgreSQL connection string (defaults to $DATABASE_URL)`

func migrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, migrateUsage)
	}

	var dsn string
	fs.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "postgres connection string")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse migrate flags: %w", err)
	}
	if dsn == "" {
		return errors.New("migrate command requires --dsn or DATABASE_URL")
	}

	pool, err := store.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.NewPostgres(pool).EnsureSchema(ctx); err != nil {
		return err
	}
	slog.Info("schema up to date")
	return nil
}
