// Package report accumulates deletion outcomes as they complete and
// produces the final, queryable run report. Outcomes are streamed in,
// not buffered to the end, so a killed run still yields a partial,
// valid report.
package report

import (
	"github.com/yairfalse/purku/types"
)

// RunReport is the finalized structured document for one run.
type RunReport struct {
	Metadata types.RunMetadata `json:"metadata"`
	PerScope []ScopeReport     `json:"per_scope"`
	Totals   types.Totals      `json:"totals"`
}

// ScopeReport holds one scope's sub-report.
type ScopeReport struct {
	Scope      types.Scope     `json:"scope"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skip_reason,omitempty"`
	Outcomes   []types.Outcome `json:"outcomes"`
}

// Failed returns every Failed outcome across all scopes, in report order.
func (r *RunReport) Failed() []types.Outcome {
	var failed []types.Outcome
	for _, sr := range r.PerScope {
		for _, o := range sr.Outcomes {
			if o.Status == types.StatusFailed {
				failed = append(failed, o)
			}
		}
	}
	return failed
}

// Clean reports whether every non-protected, non-skipped resource
// reached Deleted. Automated callers key the exit status off this.
func (r *RunReport) Clean() bool {
	return r.Totals.Failed == 0
}
