// Package assertions evaluates user-defined checks against a run's stats.
//
// Assertions live in a YAML file:
//
//	assertions:
//	  - name: global p95 under 1.2s
//	    expr: global.percentiles3.ok < 1200
//	  - name: no failures on echo
//	    path: Echo Metrics
//	    expr: stats.numberOfRequests.ko == 0
//
// Each expr is a Tengo expression. It sees the target node as stats, the
// root node as global and the run identity as run. Numeric cells are
// numbers and no-data cells are undefined.
package assertions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// Assertion is one named check.
type Assertion struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
	Expr string `yaml:"expr"`
}

type file struct {
	Assertions []Assertion `yaml:"assertions"`
}

// Result is the outcome of one assertion.
type Result struct {
	Assertion Assertion
	Passed    bool
	Err       error
}

// Outcome converts the result for storage.
func (r Result) Outcome() models.AssertionOutcome {
	o := models.AssertionOutcome{
		Name:   r.Assertion.Name,
		Path:   r.Assertion.Path,
		Expr:   r.Assertion.Expr,
		Passed: r.Passed,
	}
	if r.Err != nil {
		o.Error = r.Err.Error()
	}
	return o
}

// Outcomes converts a result list for storage.
func Outcomes(results []Result) []models.AssertionOutcome {
	out := make([]models.AssertionOutcome, len(results))
	for i, r := range results {
		out[i] = r.Outcome()
	}
	return out
}

// ErrNoNode is returned when an assertion targets a path the run lacks.
var ErrNoNode = errors.New("no node with path")

// safeModules are the only Tengo stdlib modules expressions can import.
var safeModules = stdlib.GetModuleMap("math", "text")

const (
	maxAllocs = 100_000
	resultVar = "__result__"
)

// Evaluator holds compiled assertions. It is safe for concurrent use.
type Evaluator struct {
	assertions []Assertion
	compiled   []*tengo.Compiled
}

// LoadFile reads and compiles the assertions in a YAML file.
func LoadFile(path string) (*Evaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assertions: %w", err)
	}
	return Parse(data)
}

// Parse decodes and compiles assertions from YAML.
func Parse(data []byte) (*Evaluator, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode assertions: %w", err)
	}
	return New(f.Assertions)
}

// New compiles a list of assertions.
func New(assertions []Assertion) (*Evaluator, error) {
	e := &Evaluator{
		assertions: append([]Assertion(nil), assertions...),
		compiled:   make([]*tengo.Compiled, len(assertions)),
	}

	for i, a := range assertions {
		if strings.TrimSpace(a.Expr) == "" {
			return nil, fmt.Errorf("assertion %d (%s): empty expr", i+1, a.Name)
		}
		if a.Name == "" {
			e.assertions[i].Name = a.Expr
		}

		script := tengo.NewScript([]byte(resultVar + " := bool(" + a.Expr + ")"))
		script.SetImports(safeModules)
		script.SetMaxAllocs(maxAllocs)
		for _, name := range []string{"stats", "global", "run"} {
			if err := script.Add(name, map[string]interface{}{}); err != nil {
				return nil, err
			}
		}

		compiled, err := script.Compile()
		if err != nil {
			return nil, fmt.Errorf("assertion %q: %w", e.assertions[i].Name, err)
		}
		e.compiled[i] = compiled
	}
	return e, nil
}

// Assertions returns the loaded assertions.
func (e *Evaluator) Assertions() []Assertion {
	return e.assertions
}

// Len returns the number of assertions.
func (e *Evaluator) Len() int {
	if e == nil {
		return 0
	}
	return len(e.assertions)
}

// Evaluate runs every assertion against a snapshot, in file order.
func (e *Evaluator) Evaluate(ctx context.Context, snap *models.Snapshot) []Result {
	if e == nil {
		return nil
	}

	global := statsValue(&snap.Root.Stats)
	run := map[string]interface{}{
		"id":         snap.Run.ID,
		"simulation": snap.Run.Simulation,
	}

	results := make([]Result, len(e.assertions))
	for i, a := range e.assertions {
		results[i] = Result{Assertion: a}

		node := snap.Root.Find(a.Path)
		if node == nil {
			results[i].Err = fmt.Errorf("%w %q", ErrNoNode, a.Path)
			continue
		}

		passed, err := e.run(ctx, i, statsValue(&node.Stats), global, run)
		results[i].Passed = passed
		results[i].Err = err
	}
	return results
}

func (e *Evaluator) run(ctx context.Context, i int, stats, global, run map[string]interface{}) (bool, error) {
	c := e.compiled[i].Clone()
	for name, v := range map[string]interface{}{"stats": stats, "global": global, "run": run} {
		if err := c.Set(name, v); err != nil {
			return false, err
		}
	}
	if err := c.RunContext(ctx); err != nil {
		return false, err
	}
	return c.Get(resultVar).Bool(), nil
}

// statsValue exposes a stats record to scripts under its JSON field names.
func statsValue(s *models.Stats) map[string]interface{} {
	out := map[string]interface{}{"name": s.Name}

	for _, id := range models.SlotMetricIDs() {
		t, _ := models.MetricTriple(s, id)
		out[id] = map[string]interface{}{
			"total": cellValue(t.Total),
			"ok":    cellValue(t.OK),
			"ko":    cellValue(t.KO),
		}
	}
	for i, b := range s.Buckets() {
		out[fmt.Sprintf("group%d", i+1)] = map[string]interface{}{
			"name":       b.Name,
			"count":      b.Count,
			"percentage": b.Percentage,
		}
	}
	return out
}

// cellValue converts a cell to an int, a float or nil for no data.
func cellValue(v models.Value) interface{} {
	if n, ok := v.Int64(); ok {
		if f, _ := v.Float64(); f == float64(n) {
			return n
		}
	}
	if f, ok := v.Float64(); ok {
		return f
	}
	return nil
}
