package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Compile error codes (E100-E199)
const (
	ErrCUE              = "E100" // catalog does not evaluate
	ErrUnknownSection   = "E101" // top-level key is not a catalog section
	ErrInvalidSchema    = "E102" // config or schema block cannot be used as a schema
	ErrInvalidMapping   = "E103" // configured entry has no usable mapping
	ErrInvalidRef       = "E104" // reference is not "<section>.<key>"
	ErrDuplicateName    = "E105" // two named definitions share a namespace
	ErrInvalidNode      = "E106" // graph node is not an op
	ErrConfiguredCycle  = "E107" // configured entries wrap each other
	ErrDanglingRef      = "E108" // reference names no entry
	ErrInvalidPlan      = "E109" // plan entry has the wrong kind
	ErrInvalidAttribute = "E110" // description, tags, nodes or name has the wrong type
)

// ValidationError is a catalog compilation problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// CompileError represents a CUE evaluation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
