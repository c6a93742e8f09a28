package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/configured/internal/ir"
)

func TestSuccess(t *testing.T) {
	r := Success(ir.Object{"bucket": ir.String("b")})

	assert.True(t, r.OK())
	assert.Equal(t, ir.Object{"bucket": ir.String("b")}, r.Value())
	assert.Empty(t, r.Violations())
	assert.NoError(t, r.Err())
}

func TestSuccessNilIsNull(t *testing.T) {
	r := Success(nil)
	assert.True(t, r.OK())
	assert.Equal(t, ir.Null{}, r.Value())
}

func TestZeroResultIsNotOK(t *testing.T) {
	var r Result
	assert.False(t, r.OK())
	assert.Nil(t, r.Value())
	assert.Empty(t, r.Violations())
	assert.ErrorIs(t, r.Err(), ErrEmptyResult)
	assert.Equal(t, r, r.Rebase("resources", "s3", "config"))
}

func TestFailure(t *testing.T) {
	r := Failure(
		Violation{Path: []string{"prefix"}, Code: ErrCodeMissingField, Message: "required field is missing"},
		Violation{Path: []string{"bucket"}, Code: ErrCodeTypeMismatch, Message: "expected string, got int"},
	)

	assert.False(t, r.OK())
	assert.Nil(t, r.Value())
	require.Len(t, r.Violations(), 2)
	assert.Equal(t, []string{"prefix"}, r.Violations()[0].Path)

	var verrs *ValidationErrors
	require.True(t, errors.As(r.Err(), &verrs))
	assert.Len(t, verrs.Violations, 2)
	assert.Contains(t, r.Err().Error(), "2 validation errors")
	assert.Contains(t, r.Err().Error(), "[E201] prefix: required field is missing")
}

func TestFailureRequiresViolation(t *testing.T) {
	assert.Panics(t, func() { Failure() })
}

func TestViolationsAreCopies(t *testing.T) {
	r := Failure(Violation{Path: []string{"a"}, Code: ErrCodeConstraint, Message: "bad"})

	got := r.Violations()
	got[0].Path[0] = "mutated"
	got[0].Message = "mutated"

	assert.Equal(t, []string{"a"}, r.Violations()[0].Path)
	assert.Equal(t, "bad", r.Violations()[0].Message)
}

func TestViolationPathString(t *testing.T) {
	assert.Equal(t, "<root>", Violation{}.PathString())
	assert.Equal(t, "s3.bucket", Violation{Path: []string{"s3", "bucket"}}.PathString())
}

func TestSingleViolationError(t *testing.T) {
	r := Failure(Violation{Path: nil, Code: ErrCodeTypeMismatch, Message: "expected struct, got string"})
	assert.Equal(t, "[E202] <root>: expected struct, got string", r.Err().Error())
}

func TestRebase(t *testing.T) {
	r := Failure(
		Violation{Path: []string{"bucket"}, Code: ErrCodeMissingField, Message: "m"},
		Violation{Path: nil, Code: ErrCodeTypeMismatch, Message: "t"},
	)

	rebased := r.Rebase("resources", "s3", "config")

	vs := rebased.Violations()
	require.Len(t, vs, 2)
	assert.Equal(t, []string{"resources", "s3", "config", "bucket"}, vs[0].Path)
	assert.Equal(t, []string{"resources", "s3", "config"}, vs[1].Path)

	// original is untouched
	assert.Equal(t, []string{"bucket"}, r.Violations()[0].Path)
}

func TestRebaseSuccessUnchanged(t *testing.T) {
	r := Success(ir.Int(1))
	assert.Equal(t, r, r.Rebase("x"))
}
