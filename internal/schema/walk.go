package schema

import (
	"fmt"
	"slices"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/configured/internal/ir"
)

// walker resolves a raw value against a CUE schema, collecting violations.
// It must run while holding the schema's Runtime.
type walker struct {
	ctx        *cue.Context
	violations []Violation
}

func (w *walker) fail(path []string, code, format string, args ...any) {
	w.violations = append(w.violations, Violation{
		Path:    slices.Clone(path),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

// walk returns the resolved value for raw at path. On violation the returned
// value is meaningless and the caller checks w.violations.
func (w *walker) walk(path []string, v cue.Value, raw ir.Value) ir.Value {
	k := v.IncompleteKind()

	if k == cue.TopKind {
		if raw == nil {
			return ir.Null{}
		}
		return ir.Clone(raw)
	}

	if raw == nil || (ir.IsNull(raw) && k&cue.NullKind == 0) {
		return w.missing(path, v)
	}

	switch r := raw.(type) {
	case ir.Object:
		if k == cue.StructKind {
			if out, ok := w.walkStruct(path, v, r); ok {
				return out
			}
		}
	case ir.Array:
		if k == cue.ListKind {
			return w.walkList(path, v, r)
		}
	}

	return w.leaf(path, v, raw)
}

// missing handles a field with no raw value.
func (w *walker) missing(path []string, v cue.Value) ir.Value {
	if d, ok := v.Default(); ok {
		if out, err := ToValue(d); err == nil {
			return out
		}
	}
	if v.IncompleteKind() == cue.StructKind {
		if out, ok := w.walkStruct(path, v, ir.Object{}); ok {
			return out
		}
	}
	if isFixed(v) {
		if out, err := ToValue(v); err == nil {
			return out
		}
	}
	w.fail(path, ErrCodeMissingField, "required field is missing (expected %s)", kindLabel(v.IncompleteKind()))
	return nil
}

// walkStruct resolves declared fields in declaration order, then undeclared
// keys in RFC 8785 order. ok is false when v cannot be iterated as a struct.
func (w *walker) walkStruct(path []string, v cue.Value, raw ir.Object) (ir.Value, bool) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, false
	}

	out := ir.Object{}
	declared := make(map[string]bool)
	for iter.Next() {
		name := iter.Label()
		declared[name] = true
		child := append(slices.Clone(path), name)

		val, present := raw[name]
		if !present || (ir.IsNull(val) && iter.Value().IncompleteKind()&cue.NullKind == 0) {
			if iter.IsOptional() {
				if _, hasDefault := iter.Value().Default(); !hasDefault {
					continue
				}
			}
			if iter.Value().IncompleteKind() == cue.TopKind {
				continue
			}
			if resolved := w.missing(child, iter.Value()); resolved != nil {
				out[name] = resolved
			}
			continue
		}

		if resolved := w.walk(child, iter.Value(), val); resolved != nil {
			out[name] = resolved
		}
	}

	pattern := v.LookupPath(cue.MakePath(cue.AnyString))
	for _, key := range raw.SortedKeys() {
		if declared[key] {
			continue
		}
		child := append(slices.Clone(path), key)
		if !pattern.Exists() {
			w.fail(child, ErrCodeUnknownField, "field is not allowed")
			continue
		}
		if resolved := w.walk(child, pattern, raw[key]); resolved != nil {
			out[key] = resolved
		}
	}

	return out, true
}

func (w *walker) walkList(path []string, v cue.Value, raw ir.Array) ir.Value {
	anyElem := v.LookupPath(cue.MakePath(cue.AnyIndex))
	out := make(ir.Array, 0, len(raw))
	for i, item := range raw {
		child := append(slices.Clone(path), strconv.Itoa(i))
		elem := v.LookupPath(cue.MakePath(cue.Index(i)))
		if !elem.Exists() {
			elem = anyElem
		}
		if !elem.Exists() {
			w.fail(child, ErrCodeUnknownField, "list element is not allowed")
			continue
		}
		resolved := w.walk(child, elem, item)
		if resolved == nil {
			resolved = ir.Null{}
		}
		out = append(out, resolved)
	}
	return out
}

// leaf checks a raw value by unifying it with the schema.
func (w *walker) leaf(path []string, v cue.Value, raw ir.Value) ir.Value {
	want := v.IncompleteKind()
	got := rawKind(raw)
	if want&got == 0 {
		w.fail(path, ErrCodeTypeMismatch, "expected %s, got %s", kindLabel(want), ir.KindOf(raw))
		return nil
	}

	u := v.Unify(Encode(w.ctx, raw))
	if err := u.Validate(cue.Concrete(true)); err != nil {
		w.fail(path, ErrCodeConstraint, "%s", cueMessage(err))
		return nil
	}
	out, err := ToValue(u)
	if err != nil {
		w.fail(path, ErrCodeConstraint, "%s", err.Error())
		return nil
	}
	return out
}

func rawKind(v ir.Value) cue.Kind {
	switch v.(type) {
	case ir.String:
		return cue.StringKind
	case ir.Int:
		return cue.IntKind
	case ir.Bool:
		return cue.BoolKind
	case ir.Array:
		return cue.ListKind
	case ir.Object:
		return cue.StructKind
	default:
		return cue.NullKind
	}
}

// kindLabel names a possibly composite kind, e.g. "int|string".
func kindLabel(k cue.Kind) string {
	return kindName(k)
}
