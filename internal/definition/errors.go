package definition

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by Configure. All are programmer errors and are
// reported immediately.
var (
	ErrNotConfigurable      = errors.New("target is not configurable")
	ErrPendingInvocation    = errors.New("cannot configure a pending invocation")
	ErrMissingName          = errors.New("a name is required")
	ErrNoMapping            = errors.New("a config value or mapping function is required")
	ErrSchemaWithFixedValue = errors.New("a config schema cannot be combined with a fixed config value")

	// ErrNoConfigField is the panic value of GetConfigField.
	ErrNoConfigField = errors.New("definition has no config field")
)

// CapabilityError reports a configure target that implements neither
// variant.
type CapabilityError struct {
	Got string // Go type of the rejected target
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: got %s, expected one of %s", ErrNotConfigurable, e.Got, strings.Join(AcceptedKinds(), ", "))
}

func (e *CapabilityError) Unwrap() error {
	return ErrNotConfigurable
}

// AcceptedKinds names the configurable definition types with their variant.
func AcceptedKinds() []string {
	return []string{
		"ResourceDefinition (anonymous)",
		"LoggerDefinition (anonymous)",
		"ExecutorDefinition (named)",
		"OpDefinition (named)",
		"GraphDefinition (named)",
	}
}

// TransformError wraps an error returned by a mapping function. It is a
// defect in the mapping, not a validation failure.
type TransformError struct {
	Target string // label of the wrapped definition
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("config mapping for %s failed: %v", e.Target, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
