package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLite is a single-file database handle for small deployments and tests.
type SQLite struct {
	DB *sql.DB
}

// IsSQLiteURI reports whether uri selects the SQLite backend
// ("sqlite://path", "sqlite:path" or "file:path").
func IsSQLiteURI(uri string) bool {
	return strings.HasPrefix(uri, "sqlite:") || strings.HasPrefix(uri, "file:")
}

// SQLitePath strips the scheme from a SQLite URI.
func SQLitePath(uri string) string {
	path := strings.TrimPrefix(uri, "sqlite://")
	path = strings.TrimPrefix(path, "sqlite:")
	return strings.TrimPrefix(path, "file:")
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &SQLite{DB: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLite) Migrate(ctx context.Context) error {
	return migrate(ctx, "migrations/sqlite", sqliteMigrator{db: s.DB})
}

type sqliteMigrator struct {
	db *sql.DB
}

func (m sqliteMigrator) exec(ctx context.Context, query string, args ...any) error {
	_, err := m.db.ExecContext(ctx, query, args...)
	return err
}

func (m sqliteMigrator) applied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)",
		version,
	).Scan(&exists)
	return exists, err
}

func (m sqliteMigrator) record(ctx context.Context, version string) error {
	return m.exec(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
}
