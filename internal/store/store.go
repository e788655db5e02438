// Package store persists the cultural catalog, user reports and analysis logs
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("not found")
	// ErrNotPending is returned when a review targets a report that was
	// already reviewed
	ErrNotPending = errors.New("report is not pending")
)

// Fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed catalog
type Store struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Store{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			cultural_context TEXT NOT NULL DEFAULT '',
			historical_period TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			significance TEXT NOT NULL DEFAULT '',
			image_path TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			validated INTEGER NOT NULL DEFAULT 0,
			validated_by TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE INDEX IF NOT EXISTS idx_items_created_by ON items(created_by)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			reported_by TEXT NOT NULL,
			report_type TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cultural_context TEXT NOT NULL DEFAULT '',
			historical_period TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			significance TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			image_path TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			reviewed_by TEXT NOT NULL DEFAULT '',
			reviewed_at TEXT,
			admin_notes TEXT NOT NULL DEFAULT '',
			created_item_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_reported_by ON reports(reported_by)`,
		`CREATE TABLE IF NOT EXISTS analysis_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL DEFAULT '',
			image_hash TEXT NOT NULL,
			raw_response TEXT NOT NULL DEFAULT '',
			processing_seconds REAL NOT NULL DEFAULT 0,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_logs_hash ON analysis_logs(image_hash)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
