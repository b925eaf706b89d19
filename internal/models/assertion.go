package models

// AssertionOutcome is the stored result of one assertion against a run.
type AssertionOutcome struct {
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Expr   string `json:"expr"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// FailedOutcomes returns the outcomes that did not pass.
func FailedOutcomes(outcomes []AssertionOutcome) []AssertionOutcome {
	var failed []AssertionOutcome
	for _, o := range outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}
