package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// storedNode is a request_stats row before the tree is rebuilt.
type storedNode struct {
	parent sql.NullString
	node   models.Node
}

// GetSnapshot rebuilds a stored run, with its nodes in their original order.
func (db *DB) GetSnapshot(id string) (*models.Snapshot, error) {
	run, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT parent_path, path, name, type, path_formatted, %s
		FROM request_stats
		WHERE run_id = ?
		ORDER BY position
	`, statsColumns(""))

	rows, err := db.QueryContext(context.Background(), query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stored []storedNode
	for rows.Next() {
		var sn storedNode
		var nodeType string
		dest := []any{&sn.parent, &sn.node.Path, &sn.node.Name, &nodeType, &sn.node.PathFormatted}
		dest = append(dest, statsDest(&sn.node.Stats)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}
		sn.node.Type = models.NodeType(nodeType)
		sn.node.Stats.Name = sn.node.Name
		stored = append(stored, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stored) == 0 || stored[0].parent.Valid {
		return nil, fmt.Errorf("run %s has no root stats", id)
	}

	return &models.Snapshot{
		Run:        run.RunInfo,
		Root:       buildTree(stored),
		ImportedAt: run.ImportedAt,
	}, nil
}

// buildTree links position-ordered rows back into a tree. The first row is
// the root.
func buildTree(stored []storedNode) models.Node {
	children := make(map[string][]int)
	for i := 1; i < len(stored); i++ {
		p := stored[i].parent.String
		children[p] = append(children[p], i)
	}

	var build func(i int) models.Node
	build = func(i int) models.Node {
		n := stored[i].node
		for _, c := range children[n.Path] {
			if c == i {
				continue
			}
			n.Contents = append(n.Contents, build(c))
		}
		return n
	}
	return build(0)
}

// PreviousRun returns the latest run of simulation started before the
// given time, or nil when there is none.
func (db *DB) PreviousRun(simulation string, before time.Time) (*models.StoredRun, error) {
	query := runSelect + `
		WHERE r.simulation = ? AND r.started_at < ?
		ORDER BY r.started_at DESC
		LIMIT 1
	`
	run, err := scanRun(db.QueryRowContext(context.Background(), query, simulation, formatTime(before)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query previous run: %w", err)
	}
	return &run, nil
}

// GetTrend returns one metric of a request path across the runs of a
// simulation, oldest first. Runs where the metric has no data are skipped.
func (db *DB) GetTrend(simulation, path string, metric models.TrendMetric, timeRange models.TimeRange) (*models.Trend, error) {
	query := fmt.Sprintf(`
		SELECT r.id, r.started_at, %s
		FROM runs r
		JOIN request_stats s ON s.run_id = r.id
		WHERE r.simulation = ? AND s.path = ?
	`, statsColumns("s"))
	args := []any{simulation, path}

	if days := timeRange.Days(); days > 0 {
		query += " " + sqlTimeFilterClause
		args = append(args, fmt.Sprintf("-%d days", days))
	}
	query += " ORDER BY r.started_at ASC"

	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trend := &models.Trend{
		Simulation: simulation,
		Path:       path,
		Metric:     metric,
		TimeRange:  timeRange,
	}
	for rows.Next() {
		var runID string
		var startedAt sql.NullString
		var stats models.Stats

		dest := append([]any{&runID, &startedAt}, statsDest(&stats)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}

		v, ok := metric.Extract(&stats)
		if !ok {
			continue
		}
		p := models.TrendPoint{RunID: runID, Value: v}
		if startedAt.Valid {
			p.StartedAt, _ = parseTimeString(startedAt.String)
		}
		trend.Points = append(trend.Points, p)
	}

	return trend, rows.Err()
}

// GetRequestPaths returns the node paths recorded for a simulation, global
// first and then in file order.
func (db *DB) GetRequestPaths(simulation string) ([]string, error) {
	query := `
		SELECT s.path, MIN(s.position) as pos
		FROM runs r
		JOIN request_stats s ON s.run_id = r.id
		WHERE r.simulation = ?
		GROUP BY s.path
		ORDER BY pos, s.path
	`
	rows, err := db.QueryContext(context.Background(), query, simulation)
	if err != nil {
		return nil, fmt.Errorf("failed to query request paths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		var pos int
		if err := rows.Scan(&p, &pos); err != nil {
			return nil, fmt.Errorf("failed to scan request path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
