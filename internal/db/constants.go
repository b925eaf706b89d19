package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// SQL query fragments used across multiple functions
const (
	// sqlTimeFilterClause is used to filter queries by a datetime window
	sqlTimeFilterClause = "AND r.started_at >= datetime('now', ?)"

	// sqlTimeFormat keeps the millisecond precision of Gatling run IDs while
	// staying comparable with SQLite's datetime().
	sqlTimeFormat = "2006-01-02 15:04:05.000"
)

var timeFormats = []string{
	sqlTimeFormat,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05 +0000 UTC",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqlTimeFormat)
}

// cellColumns returns the request_stats columns holding metric cells, one
// per display slot.
func cellColumns() []string {
	return models.SlotIDs()
}

// bucketColumns returns the request_stats columns of the four buckets.
func bucketColumns() []string {
	cols := make([]string, 0, 12)
	for i := 1; i <= 4; i++ {
		cols = append(cols,
			fmt.Sprintf("group%d_name", i),
			fmt.Sprintf("group%d_count", i),
			fmt.Sprintf("group%d_percentage", i),
		)
	}
	return cols
}

// statsColumns lists every stats column, prefixed with alias when set.
func statsColumns(alias string) string {
	cols := append(cellColumns(), bucketColumns()...)
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

// statsArgs returns the values of statsColumns for s, in order.
func statsArgs(s *models.Stats) []any {
	slots := models.Fill(s)
	args := make([]any, 0, len(slots)+12)
	for _, slot := range slots {
		args = append(args, string(slot.Value))
	}
	for _, b := range s.Buckets() {
		args = append(args, b.Name, b.Count, b.Percentage)
	}
	return args
}

// statsDest returns scan targets matching statsColumns.
func statsDest(s *models.Stats) []any {
	dest := make([]any, 0, 42)
	for _, t := range []*models.Triple{
		&s.NumberOfRequests,
		&s.MinResponseTime,
		&s.MaxResponseTime,
		&s.MeanResponseTime,
		&s.StandardDeviation,
		&s.Percentiles1,
		&s.Percentiles2,
		&s.Percentiles3,
		&s.Percentiles4,
		&s.MeanNumberOfRequestsPerSecond,
	} {
		dest = append(dest, &t.Total, &t.OK, &t.KO)
	}
	for _, b := range []*models.Bucket{&s.Group1, &s.Group2, &s.Group3, &s.Group4} {
		dest = append(dest, &b.Name, &b.Count, &b.Percentage)
	}
	return dest
}
