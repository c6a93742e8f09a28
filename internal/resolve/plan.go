package resolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
)

// Run config section names.
const (
	SectionResources = "resources"
	SectionLoggers   = "loggers"
	SectionExecution = "execution"
	SectionOps       = "ops"
)

// Plan is the set of definitions a run configures.
type Plan struct {
	// Resources and Loggers are keyed by the run config key.
	Resources map[string]definition.Configurable
	Loggers   map[string]definition.Configurable

	// Executor is keyed by its name. Optional.
	Executor definition.Configurable

	// Ops holds op and graph definitions keyed by name. Names must be
	// unique; duplicates are reported as violations.
	Ops []definition.Configurable
}

// Check verifies every entry has the kind its section requires.
func (p Plan) Check() error {
	for _, key := range sortedKeys(p.Resources) {
		if err := expectKind(p.Resources[key], SectionResources, key, definition.KindResource); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(p.Loggers) {
		if err := expectKind(p.Loggers[key], SectionLoggers, key, definition.KindLogger); err != nil {
			return err
		}
	}
	if p.Executor != nil {
		if err := expectKind(p.Executor, SectionExecution, p.Executor.Name(), definition.KindExecutor); err != nil {
			return err
		}
	}
	for i, op := range p.Ops {
		if op == nil {
			return fmt.Errorf("plan: %s[%d] is nil", SectionOps, i)
		}
		if err := expectKind(op, SectionOps, op.Name(), definition.KindOp, definition.KindGraph); err != nil {
			return err
		}
	}
	return nil
}

func expectKind(c definition.Configurable, section, key string, kinds ...definition.Kind) error {
	if c == nil {
		return fmt.Errorf("plan: %s.%s is nil", section, key)
	}
	if !slices.Contains(kinds, c.Kind()) {
		return fmt.Errorf("plan: %s.%s is a %s, want %v", section, key, c.Kind(), kinds)
	}
	return nil
}

// Describe renders the plan for fingerprinting.
func (p Plan) Describe() ir.Object {
	out := ir.Object{}
	if len(p.Resources) > 0 {
		out[SectionResources] = describeMap(p.Resources)
	}
	if len(p.Loggers) > 0 {
		out[SectionLoggers] = describeMap(p.Loggers)
	}
	if p.Executor != nil {
		out[SectionExecution] = definition.Describe(p.Executor)
	}
	if len(p.Ops) > 0 {
		ops := make(ir.Array, len(p.Ops))
		for i, op := range p.Ops {
			ops[i] = definition.Describe(op)
		}
		out[SectionOps] = ops
	}
	return out
}

// Hash fingerprints the plan.
func (p Plan) Hash() (string, error) {
	return ir.Fingerprint(ir.DomainPlan, p.Describe())
}

func describeMap(m map[string]definition.Configurable) ir.Object {
	out := make(ir.Object, len(m))
	for k, c := range m {
		out[k] = definition.Describe(c)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
