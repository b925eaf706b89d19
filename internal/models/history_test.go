package models

import (
	"testing"
	"time"
)

func TestTimeRange_String(t *testing.T) {
	tests := []struct {
		name string
		tr   TimeRange
		want string
	}{
		{"7Days", TimeRange7Days, "7 Days"},
		{"30Days", TimeRange30Days, "30 Days"},
		{"90Days", TimeRange90Days, "90 Days"},
		{"AllTime", TimeRangeAllTime, "All Time"},
		{"Unknown", TimeRange(999), "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.String(); got != tt.want {
				t.Errorf("TimeRange.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRange_Days(t *testing.T) {
	tests := []struct {
		name string
		tr   TimeRange
		want int
	}{
		{"7Days", TimeRange7Days, 7},
		{"30Days", TimeRange30Days, 30},
		{"90Days", TimeRange90Days, 90},
		{"AllTime", TimeRangeAllTime, 0},
		{"Unknown", TimeRange(999), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tr.Days(); got != tt.want {
				t.Errorf("TimeRange.Days() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeRange_Next(t *testing.T) {
	tests := []struct {
		tr   TimeRange
		want TimeRange
	}{
		{TimeRange7Days, TimeRange30Days},
		{TimeRange30Days, TimeRange90Days},
		{TimeRange90Days, TimeRangeAllTime},
		{TimeRangeAllTime, TimeRange7Days},
	}
	for _, tt := range tests {
		if got := tt.tr.Next(); got != tt.want {
			t.Errorf("%v.Next() = %v, want %v", tt.tr, got, tt.want)
		}
	}
}

func TestTrendMetric_NextWraps(t *testing.T) {
	m := TrendMean
	for i := 0; i < 8; i++ {
		m = m.Next()
	}
	if m != TrendMean {
		t.Errorf("cycling 8 times = %v, want %v", m, TrendMean)
	}
	if TrendMetric(99).String() != "Unknown" {
		t.Error("unknown metric should render as Unknown")
	}
}

func TestTrendMetric_Extract(t *testing.T) {
	s := &Stats{
		NumberOfRequests:              Triple{Total: "200", OK: "150", KO: "50"},
		MeanResponseTime:              Triple{Total: "120", OK: "110", KO: "-"},
		Percentiles3:                  Triple{Total: "340", OK: "300", KO: "-"},
		MaxResponseTime:               Triple{Total: "900", OK: "800", KO: "-"},
		MeanNumberOfRequestsPerSecond: Triple{Total: "12.5", OK: "10", KO: "2.5"},
	}

	tests := []struct {
		metric TrendMetric
		want   float64
		ok     bool
	}{
		{TrendMean, 120, true},
		{TrendPercentile3, 340, true},
		{TrendPercentile1, 0, false},
		{TrendMax, 900, true},
		{TrendThroughput, 12.5, true},
		{TrendKORatio, 25, true},
	}
	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			got, ok := tt.metric.Extract(s)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Extract() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTrend_Peak(t *testing.T) {
	tr := &Trend{}
	if _, ok := tr.Peak(); ok {
		t.Error("empty trend should have no peak")
	}
	if tr.HasData() {
		t.Error("empty trend should have no data")
	}

	now := time.Now()
	tr.Points = []TrendPoint{
		{RunID: "a", StartedAt: now.Add(-2 * time.Hour), Value: 10},
		{RunID: "b", StartedAt: now.Add(-time.Hour), Value: 30},
		{RunID: "c", StartedAt: now, Value: 20},
	}
	peak, ok := tr.Peak()
	if !ok || peak.RunID != "b" {
		t.Errorf("Peak() = %+v, want run b", peak)
	}
	vals := tr.Values()
	if len(vals) != 3 || vals[2] != 20 {
		t.Errorf("Values() = %v", vals)
	}
}
