package store

import (
	"context"
	"fmt"
)

// schemaSQL creates the document tables. seq gives a stable insertion order.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    seq        BIGSERIAL NOT NULL,
    email      TEXT NOT NULL DEFAULT '',
    data       JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email)) WHERE email <> ''`,
	`CREATE TABLE IF NOT EXISTS editais (
    id         TEXT PRIMARY KEY,
    seq        BIGSERIAL NOT NULL,
    user_id    TEXT NOT NULL,
    data       JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_editais_user_seq ON editais (user_id, seq)`,
	`CREATE TABLE IF NOT EXISTS simulado_results (
    id         TEXT PRIMARY KEY,
    seq        BIGSERIAL NOT NULL,
    user_id    TEXT NOT NULL,
    data       JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_simulado_results_user_seq ON simulado_results (user_id, seq)`,
	`CREATE TABLE IF NOT EXISTS system_config (
    id         INT PRIMARY KEY CHECK (id = 1),
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaSQL {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
