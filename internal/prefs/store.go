// Package prefs persists small local state between sessions: the spec
// files recently downloaded or opened, and the directories recently
// used as download targets. Backed by an embedded-migration sqlite
// database.
package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/caretsuite/sumsync/internal/dbx"
	"github.com/caretsuite/sumsync/internal/prefs/migrations"
)

const (
	tableSpecFiles  = "recent_spec_files"
	tableOutputDirs = "recent_output_dirs"
)

// Store is the preferences database. Lists are capped: inserting
// beyond the limit evicts the least recently used entries.
type Store struct {
	db    *sql.DB
	limit int
}

// Open opens (creating if needed) the database at dsn, runs pending
// migrations, and caps the recent lists at limit entries.
func Open(ctx context.Context, dsn string, limit int) (*Store, error) {
	if limit < 1 {
		limit = 1
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("prefs: open database: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, limit: limit}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("prefs: set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("prefs: run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// AddRecentSpecFile records path as the most recently used spec file.
func (s *Store) AddRecentSpecFile(ctx context.Context, path string) error {
	return s.touch(ctx, tableSpecFiles, path)
}

// RecentSpecFiles lists the recorded spec files, most recent first.
func (s *Store) RecentSpecFiles(ctx context.Context) ([]string, error) {
	return s.list(ctx, tableSpecFiles)
}

// AddRecentOutputDir records path as the most recently used download
// target directory.
func (s *Store) AddRecentOutputDir(ctx context.Context, path string) error {
	return s.touch(ctx, tableOutputDirs, path)
}

// RecentOutputDirs lists the recorded target directories, most recent
// first.
func (s *Store) RecentOutputDirs(ctx context.Context) ([]string, error) {
	return s.list(ctx, tableOutputDirs)
}

// touch upserts the path with a fresh timestamp and trims the table to
// the configured cap, in one transaction.
func (s *Store) touch(ctx context.Context, table, path string) error {
	now := time.Now().UnixNano()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (path, used_at) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET used_at = excluded.used_at
		`, table), path, now)
		if err != nil {
			return fmt.Errorf("prefs: record %s: %w", path, err)
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			DELETE FROM %s WHERE path NOT IN (
				SELECT path FROM %s ORDER BY used_at DESC LIMIT ?
			)
		`, table, table), s.limit)
		if err != nil {
			return fmt.Errorf("prefs: trim %s: %w", table, err)
		}
		return nil
	})
}

func (s *Store) list(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT path FROM %s ORDER BY used_at DESC LIMIT ?`, table), s.limit)
	if err != nil {
		return nil, fmt.Errorf("prefs: list %s: %w", table, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("prefs: scan %s row: %w", table, err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prefs: iterate %s rows: %w", table, err)
	}
	return paths, nil
}
