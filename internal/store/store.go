// Package store persists check results to a local sqlite database for
// history queries over the API.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fletchck/fletchck/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS check_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	check_name TEXT NOT NULL,
	ts DATETIME NOT NULL,
	status TEXT NOT NULL,
	success INTEGER NOT NULL,
	message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_check_results_name_ts
	ON check_results (check_name, ts DESC);
`

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("database pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records one execution attempt.
func (s *Store) Append(ctx context.Context, checkName string, rec domain.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_results (check_name, ts, status, success, message)
		VALUES (?, ?, ?, ?, ?)`,
		checkName, rec.Time.UTC(), string(rec.Status), rec.Success, rec.Message)
	return err
}

// Recent returns up to limit results for a check, newest first.
func (s *Store) Recent(ctx context.Context, checkName string, limit int) ([]domain.Result, error) {
	if limit < 1 {
		limit = domain.DefaultHistorySize
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, status, success, message
		FROM check_results
		WHERE check_name = ?
		ORDER BY ts DESC
		LIMIT ?`, checkName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var rec domain.Result
		var status string
		if err := rows.Scan(&rec.Time, &status, &rec.Success, &rec.Message); err != nil {
			return nil, err
		}
		rec.Status = domain.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes results older than the cutoff.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM check_results WHERE ts < ?`, olderThan.UTC())
	return err
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
