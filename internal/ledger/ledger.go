// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of batch runs and their per-file
// outcomes. The history is informational: skipping is decided by output file
// existence alone, never by the ledger.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pagestamp/pkg/types"
)

const defaultLimit = 20

// Ledger wraps the history database.
type Ledger struct {
	db *sql.DB
}

// Entry is one recorded file outcome.
type Entry struct {
	RunID      int64
	InputPath  string
	OutputPath string
	Status     types.StampStatus
	Pages      int
	Error      string
	RecordedAt time.Time
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			stamped INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			input_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			status TEXT NOT NULL,
			pages INTEGER NOT NULL,
			error TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun inserts a run row and returns its ID.
func (l *Ledger) BeginRun(ctx context.Context, cfg types.StampConfig, started time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, input_dir, output_dir) VALUES (?, ?, ?)`,
		started.UTC().Format(time.RFC3339Nano), cfg.InputDir, cfg.OutputDir,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the per-file results and the closing counts of a run in
// one transaction.
func (l *Ledger) FinishRun(ctx context.Context, runID int64, files []types.FileResult, finished time.Time) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var stamped, skipped, failed int
	ts := finished.UTC().Format(time.RFC3339Nano)
	for _, f := range files {
		switch f.Status {
		case types.StampDone:
			stamped++
		case types.StampSkipped:
			skipped++
		case types.StampFailed:
			failed++
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (run_id, input_path, output_path, status, pages, error, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, f.InputPath, f.OutputPath, string(f.Status), f.Pages, f.ErrMessage(), ts,
		); err != nil {
			return fmt.Errorf("inserting file %s: %w", f.InputPath, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, stamped = ?, skipped = ?, failed = ? WHERE id = ?`,
		ts, stamped, skipped, failed, runID,
	); err != nil {
		return fmt.Errorf("updating run %d: %w", runID, err)
	}
	return tx.Commit()
}

// Recent returns the latest file outcomes, newest first. limit <= 0 uses 20.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, input_path, output_path, status, pages, COALESCE(error, ''), recorded_at
		 FROM files ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status, recorded string
		if err := rows.Scan(&e.RunID, &e.InputPath, &e.OutputPath, &status, &e.Pages, &e.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Status = types.StampStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
