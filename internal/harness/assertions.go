package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/runconfig"
	"github.com/roach88/configured/internal/schema"
	"github.com/roach88/configured/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string             // Assertion type for categorization
	Expected   string             // Human-readable expected outcome
	Actual     string             // Human-readable actual outcome
	Violations []schema.Violation // Every reported violation, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Violations) > 0 {
		fmt.Fprintf(&buf, "\nViolations:\n")
		for i, v := range e.Violations {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, v.Error())
		}
	}

	return buf.String()
}

func assertValid(result *Result, want bool) error {
	if result.Resolution.OK() == want {
		return nil
	}
	typ, expected, actual := AssertValid, "no violations", fmt.Sprintf("%d violation(s)", len(result.Resolution.Violations))
	if !want {
		typ, expected, actual = AssertInvalid, "at least one violation", "run config resolved"
	}
	return &AssertionError{
		Type:       typ,
		Expected:   expected,
		Actual:     actual,
		Violations: result.Resolution.Violations,
	}
}

// assertConfigEquals compares the resolved value at a dot-separated path.
func assertConfigEquals(result *Result, assertion Assertion) error {
	want, err := ir.FromNative(assertion.Value)
	if err != nil {
		return fmt.Errorf("config_equals %s: %w", assertion.Path, err)
	}

	got, ok := runconfig.Lookup(result.Resolution.Config, strings.Split(assertion.Path, ".")...)
	if !ok {
		return &AssertionError{
			Type:       AssertConfigEquals,
			Expected:   fmt.Sprintf("%s = %s", assertion.Path, render(want)),
			Actual:     "path not present in resolved config",
			Violations: result.Resolution.Violations,
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertConfigEquals,
			Expected: fmt.Sprintf("%s = %s", assertion.Path, render(want)),
			Actual:   fmt.Sprintf("%s = %s", assertion.Path, render(got)),
		}
	}
	return nil
}

// assertViolation checks that a violation with the code exists. An empty
// path matches the code anywhere.
func assertViolation(result *Result, assertion Assertion) error {
	for _, v := range result.Resolution.Violations {
		if v.Code != assertion.Code {
			continue
		}
		if assertion.Path == "" || v.PathString() == assertion.Path {
			return nil
		}
	}

	expected := assertion.Code
	if assertion.Path != "" {
		expected += " at " + assertion.Path
	}
	return &AssertionError{
		Type:       AssertViolation,
		Expected:   expected,
		Actual:     "not reported",
		Violations: result.Resolution.Violations,
	}
}

func assertViolationCount(result *Result, assertion Assertion) error {
	count := len(result.Resolution.Violations)
	if count != assertion.Count {
		return &AssertionError{
			Type:       AssertViolationCount,
			Expected:   fmt.Sprintf("%d violation(s)", assertion.Count),
			Actual:     fmt.Sprintf("%d violation(s)", count),
			Violations: result.Resolution.Violations,
		}
	}
	return nil
}

func assertViolationOrder(result *Result, assertion Assertion) error {
	codes := make([]string, len(result.Resolution.Violations))
	for i, v := range result.Resolution.Violations {
		codes[i] = v.Code
	}
	if !slices.Equal(codes, assertion.Codes) {
		return &AssertionError{
			Type:       AssertViolationOrder,
			Expected:   fmt.Sprintf("codes %v", assertion.Codes),
			Actual:     fmt.Sprintf("codes %v", codes),
			Violations: result.Resolution.Violations,
		}
	}
	return nil
}

// assertRecorded reads the resolution back from the store and compares it
// with what the resolver returned.
func assertRecorded(ctx context.Context, st *store.Store, result *Result) error {
	res := result.Resolution
	rec, err := st.ReadResolution(ctx, res.RunID)
	if err != nil {
		return fmt.Errorf("recorded: read run %s: %w", res.RunID, err)
	}

	var mismatches []string
	if rec.Success != res.OK() {
		mismatches = append(mismatches, fmt.Sprintf("success %t", rec.Success))
	}
	if rec.PlanHash != res.PlanHash {
		mismatches = append(mismatches, "plan hash "+rec.PlanHash)
	}
	if !ir.Equal(configValue(rec.Config), configValue(res.Config)) {
		mismatches = append(mismatches, "config "+render(configValue(rec.Config)))
	}
	if !slices.EqualFunc(rec.Violations, res.Violations, sameViolation) {
		mismatches = append(mismatches, fmt.Sprintf("%d violation(s)", len(rec.Violations)))
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertRecorded,
			Expected: "stored record equal to the resolution",
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

func sameViolation(a, b schema.Violation) bool {
	return a.Code == b.Code && a.Message == b.Message && slices.Equal(a.Path, b.Path)
}

// configValue treats a nil config as null.
func configValue(obj ir.Object) ir.Value {
	if obj == nil {
		return ir.Null{}
	}
	return obj
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// AssertionContext provides store access for recorded assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for recorded assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertValid:
			err = assertValid(result, true)
		case AssertInvalid:
			err = assertValid(result, false)
		case AssertConfigEquals:
			err = assertConfigEquals(result, assertion)
		case AssertViolation:
			err = assertViolation(result, assertion)
		case AssertViolationCount:
			err = assertViolationCount(result, assertion)
		case AssertViolationOrder:
			err = assertViolationOrder(result, assertion)
		case AssertRecorded:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: recorded requires database context", i)
			} else {
				err = assertRecorded(actx.Ctx, actx.Store, result)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) {
				errs = append(errs, fmt.Sprintf("assertion[%d]: %s", i, ae.Error()))
				continue
			}
			errs = append(errs, err.Error())
		}
	}

	return errs
}
