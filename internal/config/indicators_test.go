package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConf = `
gatling {
  charting {
    #noReports = false
    indicators {
      lowerBound = 500      # Lower bound for the requests' response time to track in the reports and the console summary
      higherBound = 1000    # Higher bound for the requests' response time to track in the reports and the console summary
      percentile1 = 50
      percentile2 = 90
      #percentile3 = 97
      percentile4 = 99.9
    }
  }
}
`

func TestParseIndicators(t *testing.T) {
	ind := parseIndicators(sampleConf)

	if ind.LowerBound != 500 || ind.HigherBound != 1000 {
		t.Errorf("bounds = %d/%d, want 500/1000", ind.LowerBound, ind.HigherBound)
	}
	want := [4]float64{50, 90, 95, 99.9}
	if ind.Percentiles != want {
		t.Errorf("Percentiles = %v, want %v", ind.Percentiles, want)
	}
}

func TestParseIndicators_Defaults(t *testing.T) {
	for _, content := range []string{"", "gatling { }", "some random text"} {
		if got := parseIndicators(content); got != DefaultIndicators() {
			t.Errorf("parseIndicators(%q) = %+v, want defaults", content, got)
		}
	}
}

func TestLoadIndicators(t *testing.T) {
	ind, err := LoadIndicators("")
	if err != nil || ind != DefaultIndicators() {
		t.Errorf("LoadIndicators(\"\") = %+v, %v", ind, err)
	}

	path := filepath.Join(t.TempDir(), "gatling.conf")
	if err := os.WriteFile(path, []byte(sampleConf), 0o600); err != nil {
		t.Fatal(err)
	}
	ind, err = LoadIndicators(path)
	if err != nil {
		t.Fatalf("LoadIndicators() error = %v", err)
	}
	if ind.Source != path || ind.LowerBound != 500 {
		t.Errorf("LoadIndicators() = %+v", ind)
	}

	ind, err = LoadIndicators(filepath.Join(t.TempDir(), "missing.conf"))
	if err == nil {
		t.Error("expected error for a missing file")
	}
	if ind.HigherBound != 1200 {
		t.Error("a missing file should still yield the defaults")
	}
}

func TestLabels(t *testing.T) {
	ind := DefaultIndicators()
	ind.Percentiles = [4]float64{1, 2, 3, 99.9}

	tests := []struct {
		id   string
		want string
	}{
		{"percentiles1", "1st pct (ms)"},
		{"percentiles2", "2nd pct (ms)"},
		{"percentiles3", "3rd pct (ms)"},
		{"percentiles4", "99.9th pct (ms)"},
		{"numberOfRequests", "Requests"},
		{"meanNumberOfRequestsPerSecond", "Req/s"},
		{"numberOfRequestsKO", "KO requests"},
		{"unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := ind.MetricLabel(tt.id); got != tt.want {
			t.Errorf("MetricLabel(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}

	if got := DefaultIndicators().PercentileLabel(3); got != "95th pct" {
		t.Errorf("PercentileLabel(3) = %q", got)
	}
	if got := ordinal(11); got != "11th" {
		t.Errorf("ordinal(11) = %q", got)
	}
	if got := ind.PercentileLabel(5); got != "" {
		t.Errorf("PercentileLabel(5) = %q, want empty", got)
	}
}
