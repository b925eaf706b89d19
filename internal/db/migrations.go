package db

import (
	"context"
	"fmt"
)

// NormalizeTimestamps rewrites run timestamps stored in Go's default
// time.Time format (e.g. "2024-11-09 07:37:31.01 +0000 UTC") into the
// format SQLite's date/time functions can compare.
func (db *DB) NormalizeTimestamps() error {
	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `
		SELECT id, started_at, imported_at FROM runs
		WHERE started_at LIKE '% UTC' OR started_at LIKE '%T%'
		   OR imported_at LIKE '% UTC' OR imported_at LIKE '%T%'
	`)
	if err != nil {
		return fmt.Errorf("failed to find legacy timestamps: %w", err)
	}

	type fix struct {
		id, startedAt, importedAt string
	}
	var fixes []fix
	for rows.Next() {
		var f fix
		if err := rows.Scan(&f.id, &f.startedAt, &f.importedAt); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan legacy timestamp: %w", err)
		}
		fixes = append(fixes, f)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, f := range fixes {
		startedAt, ok1 := parseTimeString(f.startedAt)
		importedAt, ok2 := parseTimeString(f.importedAt)
		if !ok1 || !ok2 {
			continue
		}
		_, err := db.ExecContext(ctx,
			"UPDATE runs SET started_at = ?, imported_at = ? WHERE id = ?",
			formatTime(startedAt), formatTime(importedAt), f.id)
		if err != nil {
			return fmt.Errorf("failed to normalize timestamps of %s: %w", f.id, err)
		}
	}

	return nil
}
