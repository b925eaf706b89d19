// Package models defines data structures and domain types.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoData is the marker Gatling writes for a metric without samples.
const NoData = "-"

// Value is a single metric cell exactly as written by Gatling.
type Value string

// IsNoData reports whether the cell holds the no-data marker.
func (v Value) IsNoData() bool {
	s := strings.TrimSpace(string(v))
	return s == "" || s == NoData
}

// Int64 parses the cell as an integer. Decimal cells are truncated.
func (v Value) Int64() (int64, bool) {
	if v.IsNoData() {
		return 0, false
	}
	s := strings.TrimSpace(string(v))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// Float64 parses the cell as a float.
func (v Value) Float64() (float64, bool) {
	if v.IsNoData() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String returns the raw cell text.
func (v Value) String() string {
	return string(v)
}

// UnmarshalJSON accepts both quoted cells and bare numbers.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = NoData
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metric cell %s: %w", data, err)
	}
	*v = Value(n.String())
	return nil
}

// Triple holds the total, successful and failed variants of a metric.
type Triple struct {
	Total Value `json:"total"`
	OK    Value `json:"ok"`
	KO    Value `json:"ko"`
}

// Bucket is one latency distribution bucket.
type Bucket struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Stats is the fixed-shape statistics record of a group or request.
type Stats struct {
	Name                          string `json:"name"`
	NumberOfRequests              Triple `json:"numberOfRequests"`
	MinResponseTime               Triple `json:"minResponseTime"`
	MaxResponseTime               Triple `json:"maxResponseTime"`
	MeanResponseTime              Triple `json:"meanResponseTime"`
	StandardDeviation             Triple `json:"standardDeviation"`
	Percentiles1                  Triple `json:"percentiles1"`
	Percentiles2                  Triple `json:"percentiles2"`
	Percentiles3                  Triple `json:"percentiles3"`
	Percentiles4                  Triple `json:"percentiles4"`
	Group1                        Bucket `json:"group1"`
	Group2                        Bucket `json:"group2"`
	Group3                        Bucket `json:"group3"`
	Group4                        Bucket `json:"group4"`
	MeanNumberOfRequestsPerSecond Triple `json:"meanNumberOfRequestsPerSecond"`
}

// Percentiles returns the four percentile bands in order.
func (s *Stats) Percentiles() [4]Triple {
	return [4]Triple{s.Percentiles1, s.Percentiles2, s.Percentiles3, s.Percentiles4}
}

// Buckets returns the four distribution buckets in order.
func (s *Stats) Buckets() []Bucket {
	return []Bucket{s.Group1, s.Group2, s.Group3, s.Group4}
}

// NodeType distinguishes groups from single requests.
type NodeType string

const (
	// NodeGroup is an aggregate such as "Global Information".
	NodeGroup NodeType = "GROUP"
	// NodeRequest is a single named request.
	NodeRequest NodeType = "REQUEST"
)

// Node is an entry of the stats tree.
type Node struct {
	Type          NodeType `json:"type"`
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	PathFormatted string   `json:"pathFormatted"`
	Stats         Stats    `json:"stats"`
	Contents      []Node   `json:"contents,omitempty"`
}

// Walk visits the node and all of its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for i := range n.Contents {
		n.Contents[i].Walk(fn)
	}
}

// Find returns the node with the given path. The empty path is the node itself.
func (n *Node) Find(path string) *Node {
	var found *Node
	n.Walk(func(c *Node) {
		if found == nil && c.Path == path {
			found = c
		}
	})
	return found
}

// Flatten returns the node and its descendants in display order.
func (n *Node) Flatten() []*Node {
	var nodes []*Node
	n.Walk(func(c *Node) {
		nodes = append(nodes, c)
	})
	return nodes
}

// RunInfo identifies one Gatling run directory.
type RunInfo struct {
	ID         string
	Simulation string
	StartedAt  time.Time
	Path       string
}

// runTimestampLayout matches the suffix Gatling appends to run directories.
const runTimestampLayout = "20060102150405.000"

// ParseRunID derives run identity from a directory name such as
// "serverpersecondloadsimulation-20241109073731010".
func ParseRunID(name string) RunInfo {
	info := RunInfo{ID: name, Simulation: name}

	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return info
	}

	suffix := name[idx+1:]
	if len(suffix) != 17 {
		return info
	}
	if _, err := strconv.ParseUint(suffix, 10, 64); err != nil {
		return info
	}

	t, err := time.Parse(runTimestampLayout, suffix[:14]+"."+suffix[14:])
	if err != nil {
		return info
	}

	info.Simulation = name[:idx]
	info.StartedAt = t
	return info
}

// Snapshot is one imported run: its identity and the stats tree.
type Snapshot struct {
	Run        RunInfo
	Root       Node
	ImportedAt time.Time
}

// Global returns the aggregated statistics of the run.
func (s *Snapshot) Global() *Stats {
	return &s.Root.Stats
}

// Requests returns the request nodes below the root.
func (s *Snapshot) Requests() []*Node {
	var out []*Node
	s.Root.Walk(func(n *Node) {
		if n.Type == NodeRequest {
			out = append(out, n)
		}
	})
	return out
}
