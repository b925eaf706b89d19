package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// SaveAssertionResults replaces the assertion outcomes stored for a run.
func (db *DB) SaveAssertionResults(runID string, outcomes []models.AssertionOutcome) error {
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assertion_results WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear assertion results: %w", err)
	}

	for i, o := range outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assertion_results (run_id, position, name, path, expr, passed, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, i, o.Name, nullString(o.Path), o.Expr, o.Passed, nullString(o.Error))
		if err != nil {
			return fmt.Errorf("failed to insert assertion result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assertion results: %w", err)
	}
	return nil
}

// GetAssertionResults returns the stored assertion outcomes of a run in
// evaluation order.
func (db *DB) GetAssertionResults(runID string) ([]models.AssertionOutcome, error) {
	query := `
		SELECT name, path, expr, passed, error
		FROM assertion_results
		WHERE run_id = ?
		ORDER BY position
	`
	rows, err := db.QueryContext(context.Background(), query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assertion results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []models.AssertionOutcome
	for rows.Next() {
		var o models.AssertionOutcome
		var path, errStr sql.NullString
		if err := rows.Scan(&o.Name, &path, &o.Expr, &o.Passed, &errStr); err != nil {
			return nil, fmt.Errorf("failed to scan assertion result: %w", err)
		}
		o.Path = path.String
		o.Error = errStr.String
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountFailedAssertions returns the number of failed assertions per run.
func (db *DB) CountFailedAssertions() (map[string]int, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT run_id, COUNT(*)
		FROM assertion_results
		WHERE passed = 0
		GROUP BY run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed assertions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan assertion count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
