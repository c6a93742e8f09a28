package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/configured/internal/ir"
)

// Violation codes (E200-E299)
const (
	ErrCodeMissingField = "E201" // required field is missing
	ErrCodeTypeMismatch = "E202" // value has the wrong kind
	ErrCodeUnknownField = "E203" // field not declared by the schema
	ErrCodeConstraint   = "E204" // value fails a CUE constraint
	ErrCodeNotAccepted  = "E205" // configuration given where none is accepted
)

// ErrEmptyResult is returned by Result.Err for the zero Result, which is
// neither a success nor a failure.
var ErrEmptyResult = errors.New("schema: empty result")

// Violation is a single validation failure at a path.
type Violation struct {
	Path    []string `json:"path"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// PathString renders the path dot-separated; the root renders as "<root>".
func (v Violation) PathString() string {
	if len(v.Path) == 0 {
		return "<root>"
	}
	return strings.Join(v.Path, ".")
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.PathString(), v.Message)
}

// ValidationErrors aggregates the violations of one failed resolution.
type ValidationErrors struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	switch len(e.Violations) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Violations[0].Error()
	}

	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e.Violations), strings.Join(msgs, "\n  - "))
}

// Result is the outcome of resolving a raw value against a schema: either a
// resolved value or an ordered, non-empty list of violations.
// A Result is never mutated after construction. The zero Result is not OK;
// resolvers return it alongside a non-nil error.
type Result struct {
	value      ir.Value
	violations []Violation
	ok         bool
}

// Success wraps a resolved value.
func Success(v ir.Value) Result {
	if v == nil {
		v = ir.Null{}
	}
	return Result{value: v, ok: true}
}

// Failure wraps one or more violations.
// Panics if called with none - a failure without a reason is a defect.
func Failure(violations ...Violation) Result {
	if len(violations) == 0 {
		panic("schema: Failure requires at least one violation")
	}
	return Result{violations: cloneViolations(violations)}
}

// OK reports whether the resolution succeeded.
func (r Result) OK() bool {
	return r.ok
}

// Value returns the resolved value, or nil for a failure.
func (r Result) Value() ir.Value {
	return r.value
}

// Violations returns a copy of the violations (empty on success).
func (r Result) Violations() []Violation {
	return cloneViolations(r.violations)
}

// Err returns nil on success, otherwise a *ValidationErrors.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	if len(r.violations) == 0 {
		return ErrEmptyResult
	}
	return &ValidationErrors{Violations: r.Violations()}
}

// Rebase prefixes every violation path with prefix.
// Successful and zero results are returned unchanged.
func (r Result) Rebase(prefix ...string) Result {
	if len(r.violations) == 0 || len(prefix) == 0 {
		return r
	}
	out := make([]Violation, len(r.violations))
	for i, v := range r.violations {
		out[i] = Violation{
			Path:    append(slices.Clone(prefix), v.Path...),
			Code:    v.Code,
			Message: v.Message,
		}
	}
	return Result{violations: out}
}

func cloneViolations(vs []Violation) []Violation {
	if len(vs) == 0 {
		return nil
	}
	out := make([]Violation, len(vs))
	for i, v := range vs {
		out[i] = Violation{Path: slices.Clone(v.Path), Code: v.Code, Message: v.Message}
	}
	return out
}
