package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Indicators are the charting thresholds Gatling used to bucket response
// times and pick the four percentile bands.
type Indicators struct {
	LowerBound  int
	HigherBound int
	Percentiles [4]float64
	Source      string
}

// DefaultIndicators returns Gatling's built-in charting indicators.
func DefaultIndicators() Indicators {
	return Indicators{
		LowerBound:  800,
		HigherBound: 1200,
		Percentiles: [4]float64{50, 75, 95, 99},
	}
}

// Match: lowerBound = 800 (or ":" as separator). Commented lines never
// match because the key must be the first token on its line.
var indicatorRe = regexp.MustCompile(`(?m)^\s*(lowerBound|higherBound|percentile[1-4])\s*[=:]\s*([0-9]+(?:\.[0-9]+)?)`)

// LoadIndicators reads the charting indicators from a gatling.conf file.
// An empty path yields the defaults. Keys missing from the file keep their
// default value.
func LoadIndicators(path string) (Indicators, error) {
	if path == "" {
		return DefaultIndicators(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return DefaultIndicators(), fmt.Errorf("failed to read gatling conf: %w", err)
	}

	ind := parseIndicators(string(content))
	ind.Source = path
	return ind, nil
}

func parseIndicators(content string) Indicators {
	ind := DefaultIndicators()

	for _, match := range indicatorRe.FindAllStringSubmatch(content, -1) {
		v, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		switch key := match[1]; key {
		case "lowerBound":
			ind.LowerBound = int(v)
		case "higherBound":
			ind.HigherBound = int(v)
		default:
			ind.Percentiles[key[len(key)-1]-'1'] = v
		}
	}

	return ind
}

// PercentileLabel returns the label of percentile band i (1 to 4),
// such as "95th pct".
func (ind Indicators) PercentileLabel(i int) string {
	if i < 1 || i > 4 {
		return ""
	}
	return ordinal(ind.Percentiles[i-1]) + " pct"
}

// MetricLabel returns the display label of a slot metric ID.
func (ind Indicators) MetricLabel(id string) string {
	switch id {
	case "numberOfRequests":
		return "Requests"
	case "minResponseTime":
		return "Min (ms)"
	case "maxResponseTime":
		return "Max (ms)"
	case "meanResponseTime":
		return "Mean (ms)"
	case "standardDeviation":
		return "Std dev (ms)"
	case "percentiles1":
		return ind.PercentileLabel(1) + " (ms)"
	case "percentiles2":
		return ind.PercentileLabel(2) + " (ms)"
	case "percentiles3":
		return ind.PercentileLabel(3) + " (ms)"
	case "percentiles4":
		return ind.PercentileLabel(4) + " (ms)"
	case "meanNumberOfRequestsPerSecond":
		return "Req/s"
	case "numberOfRequestsKO":
		return "KO requests"
	default:
		return id
	}
}

func ordinal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v != float64(int(v)) {
		return s + "th"
	}
	n := int(v)
	if n%100 >= 11 && n%100 <= 13 {
		return s + "th"
	}
	switch n % 10 {
	case 1:
		return s + "st"
	case 2:
		return s + "nd"
	case 3:
		return s + "rd"
	default:
		return s + "th"
	}
}
