package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/configured/internal/definition"
)

// validateNames reports named definitions sharing a namespace. Executors
// have their own namespace; ops and graphs share one.
// Returns all errors found (does not fail-fast).
func validateNames(built map[string]*Entry) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]string) // namespace/name -> first ref

	for _, ref := range slices.Sorted(maps.Keys(built)) {
		e := built[ref]
		if e.Def.Variant() != definition.Named {
			continue
		}
		ns := "node"
		if e.Kind == definition.KindExecutor {
			ns = string(definition.KindExecutor)
		}
		key := ns + "/" + e.Def.Name()
		if first, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Field:   ref,
				Message: fmt.Sprintf("name %q is already used by %s", e.Def.Name(), first),
				Code:    ErrDuplicateName,
				Line:    e.Line,
			})
			continue
		}
		seen[key] = ref
	}
	return errs
}

// validatePlans checks every plan reference names an entry of the kind its
// section requires.
func validatePlans(plans map[string]*planSpec, built map[string]*Entry) []ValidationError {
	var errs []ValidationError

	check := func(p *planSpec, field, ref string, kinds ...definition.Kind) {
		if _, _, err := splitRef(ref); err != nil {
			errs = append(errs, ValidationError{
				Field: field, Message: err.Error(), Code: ErrInvalidRef, Line: p.line,
			})
			return
		}
		e, ok := built[ref]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q names no usable catalog entry", ref),
				Code:    ErrDanglingRef,
				Line:    p.line,
			})
			return
		}
		if !slices.Contains(kinds, e.Kind) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q is a %s, want %v", ref, e.Kind, kinds),
				Code:    ErrInvalidPlan,
				Line:    p.line,
			})
		}
	}

	for _, name := range slices.Sorted(maps.Keys(plans)) {
		p := plans[name]
		prefix := SectionPlan + "." + name
		for _, key := range slices.Sorted(maps.Keys(p.resources)) {
			check(p, prefix+".resources."+key, p.resources[key], definition.KindResource)
		}
		for _, key := range slices.Sorted(maps.Keys(p.loggers)) {
			check(p, prefix+".loggers."+key, p.loggers[key], definition.KindLogger)
		}
		if p.executor != "" {
			check(p, prefix+".executor", p.executor, definition.KindExecutor)
		}
		for i, ref := range p.ops {
			check(p, fmt.Sprintf("%s.ops[%d]", prefix, i), ref, definition.KindOp, definition.KindGraph)
		}
	}
	return errs
}
