// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
	// sqlite driver
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection. Foreign keys are enabled in the DSN so every
	// pooled connection enforces the cascades.
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	// Configure database
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	// Create schema
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Fix legacy time formats
	if err := db.NormalizeTimestamps(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to normalize timestamps: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createRunsTable(); err != nil {
		return err
	}
	if err := db.createRequestStatsTable(); err != nil {
		return err
	}
	return db.createAssertionResultsTable()
}

func (db *DB) createRunsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		simulation TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		issue_count INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_simulation_started ON runs(simulation, started_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// createRequestStatsTable stores one row per stats node. Every display slot
// has a TEXT column named after its slot ID, so cells keep their exact
// text, no-data markers included.
func (db *DB) createRequestStatsTable() error {
	var cols strings.Builder
	for _, c := range cellColumns() {
		fmt.Fprintf(&cols, "\t\t%s TEXT NOT NULL DEFAULT '-',\n", c)
	}
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&cols, "\t\tgroup%d_name TEXT NOT NULL DEFAULT '',\n", i)
		fmt.Fprintf(&cols, "\t\tgroup%d_count INTEGER NOT NULL DEFAULT 0,\n", i)
		fmt.Fprintf(&cols, "\t\tgroup%d_percentage REAL NOT NULL DEFAULT 0,\n", i)
	}

	query := `
	CREATE TABLE IF NOT EXISTS request_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		parent_path TEXT,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		path_formatted TEXT NOT NULL DEFAULT '',
` + cols.String() + `		UNIQUE(run_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_request_stats_run ON request_stats(run_id, position);
	CREATE INDEX IF NOT EXISTS idx_request_stats_path ON request_stats(path);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createAssertionResultsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS assertion_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT,
		expr TEXT NOT NULL,
		passed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		evaluated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_assertion_results_run ON assertion_results(run_id, position);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}
