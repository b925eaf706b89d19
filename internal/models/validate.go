package models

import (
	"fmt"
	"math"
)

// Issue is an inconsistency found in a stats record.
type Issue struct {
	Path    string
	Check   string
	Message string
}

func (i Issue) String() string {
	name := i.Path
	if name == "" {
		name = "global"
	}
	return fmt.Sprintf("%s: %s: %s", name, i.Check, i.Message)
}

// Validate checks the internal arithmetic of a stats record.
// It only reports; the record is left untouched.
func Validate(path string, s *Stats) []Issue {
	var issues []Issue
	add := func(check, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Check: check, Message: fmt.Sprintf(format, args...)})
	}

	total, okTotal := s.NumberOfRequests.Total.Int64()
	okCount, okOK := s.NumberOfRequests.OK.Int64()
	koCount, okKO := s.NumberOfRequests.KO.Int64()

	if okTotal && okOK && okKO && total != okCount+koCount {
		add("requests", "total %d != ok %d + ko %d", total, okCount, koCount)
	}

	buckets := s.Buckets()
	var bucketSum int64
	var pctSum float64
	for _, b := range buckets {
		bucketSum += b.Count
		pctSum += b.Percentage
	}
	if okTotal && bucketSum != total {
		add("buckets", "bucket counts sum to %d, total is %d", bucketSum, total)
	}
	if okKO && s.Group4.Count != koCount {
		add("failed", "failed bucket has %d, ko is %d", s.Group4.Count, koCount)
	}
	// Gatling rounds each bucket percentage independently.
	if total > 0 && math.Abs(pctSum-100) > float64(len(buckets)) {
		add("percentages", "bucket percentages sum to %.1f", pctSum)
	}

	for _, sel := range []struct {
		name string
		get  func(Triple) Value
	}{
		{"total", func(t Triple) Value { return t.Total }},
		{"ok", func(t Triple) Value { return t.OK }},
		{"ko", func(t Triple) Value { return t.KO }},
	} {
		minV, hasMin := sel.get(s.MinResponseTime).Float64()
		meanV, hasMean := sel.get(s.MeanResponseTime).Float64()
		maxV, hasMax := sel.get(s.MaxResponseTime).Float64()
		if hasMin && hasMean && hasMax && (minV > meanV || meanV > maxV) {
			add("latency", "%s: expected min %.0f <= mean %.0f <= max %.0f", sel.name, minV, meanV, maxV)
		}

		prev := math.Inf(-1)
		for i, p := range s.Percentiles() {
			v, ok := sel.get(p).Float64()
			if !ok {
				continue
			}
			if v < prev {
				add("percentiles", "%s: percentiles%d %.0f is below the previous band %.0f", sel.name, i+1, v, prev)
			}
			prev = v
		}
	}

	return issues
}

// ValidateTree validates every node of a stats tree.
func ValidateTree(root *Node) []Issue {
	var issues []Issue
	root.Walk(func(n *Node) {
		issues = append(issues, Validate(n.Path, &n.Stats)...)
	})
	return issues
}
