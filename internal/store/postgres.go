package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by Postgres. Both *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxQuerier is a Querier that can open transactions. *pgxpool.Pool and pgx.Tx (as a
// savepoint) both satisfy it.
type TxQuerier interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres stores each record as a JSONB document keyed by its id.
type Postgres struct {
	db Querier
}

var _ Repository = (*Postgres)(nil)

// NewPostgres wraps a pool or transaction.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// Open connects a pgx pool and verifies the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

const (
	insertUserSQL   = `INSERT INTO users (id, email, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	selectUserSQL   = `SELECT data FROM users WHERE id = $1`
	lockUserSQL     = `SELECT data FROM users WHERE id = $1 FOR UPDATE`
	updateUserSQL   = `UPDATE users SET email = $2, data = $3 WHERE id = $1`
	listUsersSQL    = `SELECT data FROM users ORDER BY seq ASC`
	addXPSQL        = `UPDATE users SET data = jsonb_set(data, '{xp}', to_jsonb(COALESCE((data->>'xp')::int, 0) + $2)) WHERE id = $1 RETURNING data`
	upsertEditalSQL = `INSERT INTO editais (id, user_id, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, data = EXCLUDED.data, updated_at = NOW()`
	selectEditalSQL   = `SELECT data FROM editais WHERE id = $1`
	lockEditalSQL     = `SELECT data FROM editais WHERE id = $1 FOR UPDATE`
	updateEditalSQL   = `UPDATE editais SET data = $2, updated_at = NOW() WHERE id = $1`
	listEditaisSQL    = `SELECT data FROM editais WHERE user_id = $1 ORDER BY seq ASC`
	insertSimuladoSQL = `INSERT INTO simulado_results (id, user_id, data) VALUES ($1, $2, $3)`
	listSimuladosSQL  = `SELECT data FROM simulado_results WHERE user_id = $1 ORDER BY seq DESC`
	selectConfigSQL   = `SELECT data FROM system_config WHERE id = 1`
	seedConfigSQL     = `INSERT INTO system_config (id, data) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`
	lockConfigSQL     = `SELECT data FROM system_config WHERE id = 1 FOR UPDATE`
	updateConfigSQL   = `UPDATE system_config SET data = $1, updated_at = NOW() WHERE id = 1`
	upsertConfigSQL   = `INSERT INTO system_config (id, data) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	countsSQL = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM users WHERE data->>'subscriptionStatus' = 'ACTIVE'),
		(SELECT COUNT(*) FROM users WHERE (data->>'isBanned')::boolean),
		(SELECT COUNT(*) FROM editais),
		(SELECT COUNT(*) FROM simulado_results)`
)

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("store: marshal user: %w", err)
	}
	tag, err := p.db.Exec(ctx, insertUserSQL, u.ID, u.Email, data)
	if err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	if err := getDoc(ctx, p.db, selectUserSQL, id, &u); err != nil {
		return User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

// UpdateUser locks the user row, applies mutate and writes the document back in one transaction.
func (p *Postgres) UpdateUser(ctx context.Context, id string, mutate func(*User) error) (User, error) {
	var u User
	err := p.withTx(ctx, func(q Querier) error {
		if err := getDoc(ctx, q, lockUserSQL, id, &u); err != nil {
			return err
		}
		if err := mutate(&u); err != nil {
			return err
		}
		u.ID = id
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("store: marshal user: %w", err)
		}
		if _, err := q.Exec(ctx, updateUserSQL, id, u.Email, data); err != nil {
			return fmt.Errorf("store: update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	return listDocs[User](ctx, p.db, listUsersSQL)
}

func (p *Postgres) AddXP(ctx context.Context, userID string, delta int) (User, error) {
	var u User
	if err := getDoc(ctx, p.db, addXPSQL, userID, &u, delta); err != nil {
		return User{}, fmt.Errorf("user %s: %w", userID, err)
	}
	return u, nil
}

func (p *Postgres) SaveEdital(ctx context.Context, e Edital) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: marshal edital: %w", err)
	}
	if _, err := p.db.Exec(ctx, upsertEditalSQL, e.ID, e.UserID, data); err != nil {
		return fmt.Errorf("store: save edital: %w", err)
	}
	return nil
}

func (p *Postgres) GetEdital(ctx context.Context, id string) (Edital, error) {
	var e Edital
	if err := getDoc(ctx, p.db, selectEditalSQL, id, &e); err != nil {
		return Edital{}, fmt.Errorf("edital %s: %w", id, err)
	}
	return e, nil
}

// UpdateEdital locks the edital row, applies mutate and writes the document back in one transaction.
func (p *Postgres) UpdateEdital(ctx context.Context, id string, mutate func(*Edital) error) (Edital, error) {
	var e Edital
	err := p.withTx(ctx, func(q Querier) error {
		if err := getDoc(ctx, q, lockEditalSQL, id, &e); err != nil {
			return err
		}
		if err := mutate(&e); err != nil {
			return err
		}
		e.ID = id
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("store: marshal edital: %w", err)
		}
		if _, err := q.Exec(ctx, updateEditalSQL, id, data); err != nil {
			return fmt.Errorf("store: update edital: %w", err)
		}
		return nil
	})
	if err != nil {
		return Edital{}, fmt.Errorf("edital %s: %w", id, err)
	}
	return e, nil
}

func (p *Postgres) ListEditais(ctx context.Context, userID string) ([]Edital, error) {
	return listDocs[Edital](ctx, p.db, listEditaisSQL, userID)
}

func (p *Postgres) AddSimuladoResult(ctx context.Context, r SimuladoResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: marshal simulado result: %w", err)
	}
	if _, err := p.db.Exec(ctx, insertSimuladoSQL, r.ID, r.UserID, data); err != nil {
		return fmt.Errorf("store: insert simulado result: %w", err)
	}
	return nil
}

func (p *Postgres) ListSimuladoResults(ctx context.Context, userID string) ([]SimuladoResult, error) {
	return listDocs[SimuladoResult](ctx, p.db, listSimuladosSQL, userID)
}

func (p *Postgres) GetConfig(ctx context.Context) (SystemConfig, error) {
	var raw []byte
	err := p.db.QueryRow(ctx, selectConfigSQL).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return SystemConfig{}, fmt.Errorf("store: get config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return SystemConfig{}, fmt.Errorf("store: decode config: %w", err)
	}
	return cfg, nil
}

func (p *Postgres) SaveConfig(ctx context.Context, cfg SystemConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("store: marshal config: %w", err)
	}
	if _, err := p.db.Exec(ctx, upsertConfigSQL, data); err != nil {
		return fmt.Errorf("store: save config: %w", err)
	}
	return nil
}

// UpdateConfig seeds the default row if needed, then locks it while mutate runs.
func (p *Postgres) UpdateConfig(ctx context.Context, mutate func(*SystemConfig) error) (SystemConfig, error) {
	seed, err := json.Marshal(DefaultConfig())
	if err != nil {
		return SystemConfig{}, fmt.Errorf("store: marshal config: %w", err)
	}

	cfg := DefaultConfig()
	err = p.withTx(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, seedConfigSQL, seed); err != nil {
			return fmt.Errorf("store: seed config: %w", err)
		}
		var raw []byte
		if err := q.QueryRow(ctx, lockConfigSQL).Scan(&raw); err != nil {
			return fmt.Errorf("store: lock config: %w", err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("store: decode config: %w", err)
		}
		if err := mutate(&cfg); err != nil {
			return err
		}
		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("store: marshal config: %w", err)
		}
		if _, err := q.Exec(ctx, updateConfigSQL, data); err != nil {
			return fmt.Errorf("store: update config: %w", err)
		}
		return nil
	})
	if err != nil {
		return SystemConfig{}, err
	}
	return cfg, nil
}

func (p *Postgres) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := p.db.QueryRow(ctx, countsSQL).Scan(&c.Users, &c.ActiveSubscriptions, &c.BannedUsers, &c.Editais, &c.Simulados)
	if err != nil {
		return Counts{}, fmt.Errorf("store: counts: %w", err)
	}
	return c, nil
}

// withTx runs fn inside a transaction when the underlying db can open one.
func (p *Postgres) withTx(ctx context.Context, fn func(q Querier) error) error {
	txDB, ok := p.db.(TxQuerier)
	if !ok {
		return fn(p.db)
	}

	tx, err := txDB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

func getDoc(ctx context.Context, q Querier, sql, id string, dst any, extra ...any) error {
	var raw []byte
	args := append([]any{id}, extra...)
	if err := q.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("store: query: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

func listDocs[T any](ctx context.Context, db Querier, sql string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}
