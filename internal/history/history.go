// Package history persists run summaries to SQLite so earlier exports can
// be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mogelbrod/kirby-staticbuilder/internal/builder"
)

// Store appends completed runs to a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Run is one recorded run, counts keyed by item status.
type Run struct {
	ID       string         `json:"id"`
	Mode     string         `json:"mode"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Items    int            `json:"items"`
	Counts   map[string]int `json:"counts"`
}

// Open creates or opens the database at path, creating parent directories
// as needed. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		items INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		uri TEXT NOT NULL,
		source TEXT,
		dest TEXT,
		size INTEGER,
		reason TEXT,
		language TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a completed run and its items in one transaction.
func (s *Store) Record(ctx context.Context, sum *builder.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, mode, started, duration_ms, items) VALUES (?, ?, ?, ?, ?)",
		sum.RunID, string(sum.Mode), sum.Started.UnixMilli(), sum.Duration.Milliseconds(), len(sum.Items),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO items (run_id, type, status, uri, source, dest, size, reason, language) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range sum.Items {
		_, err = stmt.ExecContext(ctx,
			sum.RunID, string(it.Type), string(it.Status), it.URI,
			it.Source, it.Dest, it.Size, it.Reason, it.Language)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.URI, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mode, started, duration_ms, items FROM runs ORDER BY started DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, durationMS int64
		if err := rows.Scan(&r.ID, &r.Mode, &started, &durationMS, &r.Items); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Started = time.UnixMilli(started)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		counts, err := s.countsFor(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Counts = counts
	}
	return runs, nil
}

func (s *Store) countsFor(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM items WHERE run_id = ? GROUP BY status", runID)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Items returns the recorded items of one run in insertion order.
func (s *Store) Items(ctx context.Context, runID string) ([]builder.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT type, status, uri, source, dest, size, reason, language FROM items WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []builder.Item
	for rows.Next() {
		var it builder.Item
		var typ, status string
		var size sql.NullInt64
		if err := rows.Scan(&typ, &status, &it.URI, &it.Source, &it.Dest, &size, &it.Reason, &it.Language); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Type = builder.Type(typ)
		it.Status = builder.Status(status)
		if size.Valid {
			it.Size = &size.Int64
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
