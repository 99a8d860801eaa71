package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a ScratchStore backed by a PostgreSQL database, for keeping
// scratches across machines. Schema migrations run on open.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, applies pending migrations, and returns the
// store.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("store: migrating: %w", err)
	}
	return nil
}

// Save implements ScratchStore.
func (p *Postgres) Save(ctx context.Context, key, code string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO scratches (key, code, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET code = $2, updated_at = now()`,
		key, code)
	if err != nil {
		return fmt.Errorf("store: saving %q: %w", key, err)
	}
	return nil
}

// Load implements ScratchStore.
func (p *Postgres) Load(ctx context.Context, key string) (string, error) {
	var code string
	err := p.pool.QueryRow(ctx,
		`SELECT code FROM scratches WHERE key = $1`, key).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: loading %q: %w", key, err)
	}
	return code, nil
}

// List implements ScratchStore.
func (p *Postgres) List(ctx context.Context) ([]Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, code, updated_at FROM scratches ORDER BY updated_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("store: listing: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Code, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scanning row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing: %w", err)
	}
	return out, nil
}

// Delete implements ScratchStore.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM scratches WHERE key = $1`, key); err != nil {
		return fmt.Errorf("store: deleting %q: %w", key, err)
	}
	return nil
}

// Close implements ScratchStore.
func (p *Postgres) Close() {
	p.pool.Close()
}
