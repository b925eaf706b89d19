package models

import "time"

// TimeRange represents the selected trend time range.
type TimeRange int

const (
	// TimeRange7Days shows runs from the last 7 days.
	TimeRange7Days TimeRange = iota
	// TimeRange30Days shows runs from the last 30 days.
	TimeRange30Days
	// TimeRange90Days shows runs from the last 90 days.
	TimeRange90Days
	// TimeRangeAllTime shows every stored run.
	TimeRangeAllTime
)

// String returns the display name for a time range.
func (t TimeRange) String() string {
	switch t {
	case TimeRange7Days:
		return "7 Days"
	case TimeRange30Days:
		return "30 Days"
	case TimeRange90Days:
		return "90 Days"
	case TimeRangeAllTime:
		return "All Time"
	default:
		return "Unknown"
	}
}

// Days returns the number of days for the time range (0 = unlimited).
func (t TimeRange) Days() int {
	switch t {
	case TimeRange7Days:
		return 7
	case TimeRange30Days:
		return 30
	case TimeRange90Days:
		return 90
	case TimeRangeAllTime:
		return 0
	default:
		return 30
	}
}

// Next cycles to the next time range.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % 4
}

// TrendMetric selects the metric plotted across runs.
type TrendMetric int

const (
	TrendMean TrendMetric = iota
	TrendPercentile1
	TrendPercentile2
	TrendPercentile3
	TrendPercentile4
	TrendMax
	TrendThroughput
	TrendKORatio
)

// String returns the display name of the metric.
func (m TrendMetric) String() string {
	switch m {
	case TrendMean:
		return "Mean response time"
	case TrendPercentile1:
		return "Percentile band 1"
	case TrendPercentile2:
		return "Percentile band 2"
	case TrendPercentile3:
		return "Percentile band 3"
	case TrendPercentile4:
		return "Percentile band 4"
	case TrendMax:
		return "Max response time"
	case TrendThroughput:
		return "Requests/sec"
	case TrendKORatio:
		return "KO ratio (%)"
	default:
		return "Unknown"
	}
}

// Next cycles to the next metric.
func (m TrendMetric) Next() TrendMetric {
	return (m + 1) % 8
}

// Extract reads the metric from a stats record.
func (m TrendMetric) Extract(s *Stats) (float64, bool) {
	switch m {
	case TrendMean:
		return s.MeanResponseTime.Total.Float64()
	case TrendPercentile1:
		return s.Percentiles1.Total.Float64()
	case TrendPercentile2:
		return s.Percentiles2.Total.Float64()
	case TrendPercentile3:
		return s.Percentiles3.Total.Float64()
	case TrendPercentile4:
		return s.Percentiles4.Total.Float64()
	case TrendMax:
		return s.MaxResponseTime.Total.Float64()
	case TrendThroughput:
		return s.MeanNumberOfRequestsPerSecond.Total.Float64()
	case TrendKORatio:
		total, ok := s.NumberOfRequests.Total.Float64()
		if !ok || total == 0 {
			return 0, false
		}
		ko, ok := s.NumberOfRequests.KO.Float64()
		if !ok {
			return 0, false
		}
		return ko / total * 100, true
	}
	return 0, false
}

// TrendPoint is one run's value of a trend metric.
type TrendPoint struct {
	RunID     string
	StartedAt time.Time
	Value     float64
}

// Trend is a metric series for one simulation and request path.
type Trend struct {
	Simulation string
	Path       string
	Metric     TrendMetric
	TimeRange  TimeRange
	Points     []TrendPoint
}

// HasData returns true if the trend has any points.
func (t *Trend) HasData() bool {
	return len(t.Points) > 0
}

// Values returns the point values in order.
func (t *Trend) Values() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Value
	}
	return out
}

// Peak returns the point with the highest value.
func (t *Trend) Peak() (TrendPoint, bool) {
	if len(t.Points) == 0 {
		return TrendPoint{}, false
	}
	peak := t.Points[0]
	for _, p := range t.Points[1:] {
		if p.Value > peak.Value {
			peak = p
		}
	}
	return peak, true
}

// StoredRun is a run row as kept in the store.
type StoredRun struct {
	RunInfo
	ImportedAt    time.Time
	IssueCount    int
	TotalRequests int64
	KORequests    int64
	MeanRPS       float64

	// FailedAssertions is filled from the assertion results, not the runs table.
	FailedAssertions int
}

// Totals summarises the store contents.
type Totals struct {
	Runs          int
	Simulations   int
	TotalRequests int64
	KORequests    int64
}
