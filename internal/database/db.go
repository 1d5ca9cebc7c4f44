package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the Postgres connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, uri string) (*DB, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	return migrate(ctx, "migrations/postgres", pgMigrator{db: db})
}

type pgMigrator struct {
	db *DB
}

func (m pgMigrator) exec(ctx context.Context, sql string, args ...any) error {
	_, err := m.db.Pool.Exec(ctx, sql, args...)
	return err
}

func (m pgMigrator) applied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := m.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
		version,
	).Scan(&exists)
	return exists, err
}

func (m pgMigrator) record(ctx context.Context, version string) error {
	return m.exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version)
}
