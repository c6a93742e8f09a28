package harness

import (
	"github.com/roach88/configured/internal/resolve"
	"github.com/roach88/configured/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Resolution is what the resolver returned.
	Resolution *resolve.Resolution `json:"resolution"`

	// Record is the history row written for the resolution.
	Record store.Record `json:"record"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(res *resolve.Resolution) *Result {
	return &Result{
		Pass:       true,
		Resolution: res,
		Errors:     []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
