package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/logger"
	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// SaveSnapshot stores a run and its stats tree in one transaction. A run
// with the same ID is replaced.
func (db *DB) SaveSnapshot(snap *models.Snapshot, issues int) error {
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", snap.Run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	startedAt := snap.Run.StartedAt
	importedAt := snap.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}
	if startedAt.IsZero() {
		startedAt = importedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, simulation, started_at, path, imported_at, issue_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snap.Run.ID,
		snap.Run.Simulation,
		formatTime(startedAt),
		snap.Run.Path,
		formatTime(importedAt),
		issues,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO request_stats (
			run_id, position, parent_path, path, name, type, path_formatted, %s
		) VALUES (?, ?, ?, ?, ?, ?, ?%s)
	`, statsColumns(""), strings.Repeat(", ?", 42))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare stats insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	position := 0
	var insert func(n *models.Node, parent sql.NullString) error
	insert = func(n *models.Node, parent sql.NullString) error {
		args := []any{
			snap.Run.ID,
			position,
			parent,
			n.Path,
			n.Name,
			string(n.Type),
			n.PathFormatted,
		}
		args = append(args, statsArgs(&n.Stats)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert stats for %q: %w", n.Path, err)
		}
		position++

		for i := range n.Contents {
			if err := insert(&n.Contents[i], sql.NullString{String: n.Path, Valid: true}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(&snap.Root, sql.NullString{}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// HasRun reports whether a run is stored.
func (db *DB) HasRun(id string) (bool, error) {
	var n int
	err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check run: %w", err)
	}
	return n > 0, nil
}

const runSelect = `
	SELECT r.id, r.simulation, r.started_at, r.path, r.imported_at, r.issue_count,
		   COALESCE(CAST(s.numberOfRequests AS INTEGER), 0),
		   COALESCE(CAST(s.numberOfRequestsKO AS INTEGER), 0),
		   COALESCE(CAST(s.meanNumberOfRequestsPerSecond AS REAL), 0)
	FROM runs r
	LEFT JOIN request_stats s ON s.run_id = r.id AND s.parent_path IS NULL
`

func scanRun(row interface{ Scan(...any) error }) (models.StoredRun, error) {
	var run models.StoredRun
	var startedAt, importedAt sql.NullString

	err := row.Scan(
		&run.ID,
		&run.Simulation,
		&startedAt,
		&run.Path,
		&importedAt,
		&run.IssueCount,
		&run.TotalRequests,
		&run.KORequests,
		&run.MeanRPS,
	)
	if err != nil {
		return run, err
	}

	if startedAt.Valid {
		run.StartedAt, _ = parseTimeString(startedAt.String)
	}
	if importedAt.Valid {
		run.ImportedAt, _ = parseTimeString(importedAt.String)
	}
	return run, nil
}

// GetRun returns one stored run.
func (db *DB) GetRun(id string) (*models.StoredRun, error) {
	run, err := scanRun(db.QueryRowContext(context.Background(), runSelect+" WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns stored runs, newest first. An empty simulation lists
// every simulation; a limit of zero or less means no limit.
func (db *DB) ListRuns(simulation string, limit int) ([]models.StoredRun, error) {
	query := runSelect + " WHERE (? = '' OR r.simulation = ?) ORDER BY r.started_at DESC, r.id DESC"
	args := []any{simulation, simulation}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var runs []models.StoredRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListSimulations returns the distinct simulation names, sorted.
func (db *DB) ListSimulations() ([]string, error) {
	rows, err := db.QueryContext(context.Background(),
		"SELECT DISTINCT simulation FROM runs ORDER BY simulation")
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sims []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sims = append(sims, s)
	}
	return sims, rows.Err()
}

// DeleteRun removes a run and everything stored for it.
func (db *DB) DeleteRun(id string) error {
	res, err := db.ExecContext(context.Background(), "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetTotals summarises the store.
func (db *DB) GetTotals() (*models.Totals, error) {
	query := `
		SELECT
			COUNT(*) as runs,
			COUNT(DISTINCT r.simulation) as simulations,
			COALESCE(SUM(CAST(s.numberOfRequests AS INTEGER)), 0) as total_requests,
			COALESCE(SUM(CAST(s.numberOfRequestsKO AS INTEGER)), 0) as ko_requests
		FROM runs r
		LEFT JOIN request_stats s ON s.run_id = r.id AND s.parent_path IS NULL
	`

	var totals models.Totals
	err := db.QueryRowContext(context.Background(), query).Scan(
		&totals.Runs,
		&totals.Simulations,
		&totals.TotalRequests,
		&totals.KORequests,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}

	return &totals, nil
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
