package models

// MetricDirection tells whether higher values are better or worse.
type MetricDirection int

const (
	// LowerIsBetter applies to latencies and failures.
	LowerIsBetter MetricDirection = iota
	// HigherIsBetter applies to throughput.
	HigherIsBetter
)

// MetricDelta is the change of one metric between two runs.
type MetricDelta struct {
	Metric       string
	Baseline     float64
	Candidate    float64
	Delta        float64
	DeltaPercent float64
	Regressed    bool
}

// RequestComparison holds the deltas of one request path.
type RequestComparison struct {
	Path      string
	Name      string
	Deltas    []MetricDelta
	Regressed bool
}

// Comparison is the result of comparing a candidate run to a baseline.
type Comparison struct {
	Baseline  RunInfo
	Candidate RunInfo
	Threshold float64
	Requests  []RequestComparison
}

// HasRegression reports whether any request regressed.
func (c *Comparison) HasRegression() bool {
	for _, r := range c.Requests {
		if r.Regressed {
			return true
		}
	}
	return false
}

// Regressions returns only the regressed requests.
func (c *Comparison) Regressions() []RequestComparison {
	var out []RequestComparison
	for _, r := range c.Requests {
		if r.Regressed {
			out = append(out, r)
		}
	}
	return out
}

// Improved reports whether the metric moved in its good direction by more
// than threshold percent.
func (d MetricDelta) Improved(threshold float64) bool {
	if d.Regressed || d.Baseline == 0 {
		return false
	}
	for _, m := range comparedMetrics {
		if m.id != d.Metric {
			continue
		}
		if m.direction == HigherIsBetter {
			return d.DeltaPercent > threshold
		}
		return d.DeltaPercent < -threshold
	}
	return false
}

type comparedMetric struct {
	id        string
	get       func(*Stats) Value
	direction MetricDirection
	// anyIncrease flags every increase regardless of threshold.
	anyIncrease bool
}

var comparedMetrics = []comparedMetric{
	{id: "meanResponseTime", get: func(s *Stats) Value { return s.MeanResponseTime.OK }},
	{id: "percentiles1", get: func(s *Stats) Value { return s.Percentiles1.OK }},
	{id: "percentiles2", get: func(s *Stats) Value { return s.Percentiles2.OK }},
	{id: "percentiles3", get: func(s *Stats) Value { return s.Percentiles3.OK }},
	{id: "percentiles4", get: func(s *Stats) Value { return s.Percentiles4.OK }},
	{id: "maxResponseTime", get: func(s *Stats) Value { return s.MaxResponseTime.OK }},
	{id: "meanNumberOfRequestsPerSecond", get: func(s *Stats) Value { return s.MeanNumberOfRequestsPerSecond.Total }, direction: HigherIsBetter},
	{id: "numberOfRequestsKO", get: func(s *Stats) Value { return s.NumberOfRequests.KO }, anyIncrease: true},
}

// Compare computes per-request deltas between two snapshots. Requests are
// matched by path; the root group has the empty path. threshold is a
// percentage.
func Compare(baseline, candidate *Snapshot, threshold float64) Comparison {
	cmp := Comparison{
		Baseline:  baseline.Run,
		Candidate: candidate.Run,
		Threshold: threshold,
	}

	for _, cand := range candidate.Root.Flatten() {
		base := baseline.Root.Find(cand.Path)
		if base == nil {
			continue
		}
		rc := RequestComparison{Path: cand.Path, Name: cand.Name}
		for _, m := range comparedMetrics {
			d, ok := compareMetric(m, &base.Stats, &cand.Stats, threshold)
			if !ok {
				continue
			}
			rc.Deltas = append(rc.Deltas, d)
			if d.Regressed {
				rc.Regressed = true
			}
		}
		cmp.Requests = append(cmp.Requests, rc)
	}

	return cmp
}

func compareMetric(m comparedMetric, base, cand *Stats, threshold float64) (MetricDelta, bool) {
	b, okB := m.get(base).Float64()
	c, okC := m.get(cand).Float64()
	if !okB || !okC {
		return MetricDelta{}, false
	}

	d := MetricDelta{
		Metric:    m.id,
		Baseline:  b,
		Candidate: c,
		Delta:     c - b,
	}
	if b != 0 {
		d.DeltaPercent = d.Delta / b * 100
	}

	switch {
	case m.anyIncrease:
		d.Regressed = d.Delta > 0
	case b == 0:
		d.Regressed = false
	case m.direction == HigherIsBetter:
		d.Regressed = d.DeltaPercent < -threshold
	default:
		d.Regressed = d.DeltaPercent > threshold
	}
	return d, true
}
