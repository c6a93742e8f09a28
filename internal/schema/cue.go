package schema

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/configured/internal/ir"
)

// Runtime serializes access to a cue.Context.
// Every value derived from the context must be evaluated under Do.
type Runtime struct {
	mu  sync.Mutex
	ctx *cue.Context
}

// NewRuntime creates a runtime with a fresh cue.Context.
func NewRuntime() *Runtime {
	return &Runtime{ctx: cuecontext.New()}
}

// Do runs fn with exclusive access to the runtime's context.
func (r *Runtime) Do(fn func(ctx *cue.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.ctx)
}

var defaultRuntime = NewRuntime()

// DefaultRuntime returns the process-wide runtime used by Compile.
func DefaultRuntime() *Runtime {
	return defaultRuntime
}

// CUESchema is a ConfigSchema backed by a CUE value.
type CUESchema struct {
	rt    *Runtime
	value cue.Value
	field *Field
	src   string
}

var _ ConfigSchema = (*CUESchema)(nil)

// Compile builds a schema from CUE source using the default runtime.
//
//	s, err := schema.Compile(`bucket: string`)
func Compile(src string) (*CUESchema, error) {
	rt := defaultRuntime
	var v cue.Value
	rt.Do(func(ctx *cue.Context) {
		v = ctx.CompileString(src, cue.Filename("schema.cue"))
	})
	return FromValue(rt, v)
}

// MustCompile is like Compile but panics on error.
// Use only for schemas known at build time.
func MustCompile(src string) *CUESchema {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

// Permissive returns a schema that accepts any value verbatim.
func Permissive() *CUESchema {
	return MustCompile("_")
}

// FromValue builds a schema from a value owned by rt.
func FromValue(rt *Runtime, v cue.Value) (*CUESchema, error) {
	var (
		field *Field
		src   string
		err   error
	)
	rt.Do(func(*cue.Context) {
		if err = v.Validate(); err != nil {
			err = fmt.Errorf("compile schema: %s", cueMessage(err))
			return
		}
		field, err = buildField(v, nil)
		if err != nil {
			return
		}
		field.Required = !acceptsEmpty(v)
		src = fmt.Sprint(v)
	})
	if err != nil {
		return nil, err
	}
	return &CUESchema{rt: rt, value: v, field: field, src: src}, nil
}

// AsField implements ConfigSchema.
func (s *CUESchema) AsField() *Field {
	return s.field
}

// Resolve implements ConfigSchema. The error is always nil.
func (s *CUESchema) Resolve(raw ir.Value) (Result, error) {
	var w *walker
	var out ir.Value
	s.rt.Do(func(ctx *cue.Context) {
		w = &walker{ctx: ctx}
		out = w.walk(nil, s.value, raw)
	})
	if len(w.violations) > 0 {
		return Failure(w.violations...), nil
	}
	return Success(out), nil
}

// Runtime returns the runtime owning the schema's value.
func (s *CUESchema) Runtime() *Runtime {
	return s.rt
}

// Value returns the underlying CUE value. Evaluate it only under Runtime().Do.
func (s *CUESchema) Value() cue.Value {
	return s.value
}

// String returns the CUE source of the schema.
func (s *CUESchema) String() string {
	return s.src
}

// buildField derives the descriptor for v. path is used in error messages.
func buildField(v cue.Value, path []string) (*Field, error) {
	f := &Field{Kind: kindName(v.IncompleteKind())}
	if doc := docText(v); doc != "" {
		f.Description = doc
	}
	if d, ok := v.Default(); ok && d.IsConcrete() {
		if dv, err := ToValue(d); err == nil {
			f.Default = dv
		}
	}

	switch k := v.IncompleteKind(); {
	case k == cue.FloatKind || k == cue.NumberKind:
		return nil, fmt.Errorf("%s: float types are not supported - use int instead", pathLabel(path))

	case k == cue.StructKind:
		iter, err := v.Fields(cue.Optional(true))
		if err != nil {
			return nil, fmt.Errorf("%s: %s", pathLabel(path), cueMessage(err))
		}
		for iter.Next() {
			name := iter.Label()
			child, err := buildField(iter.Value(), append(path, name))
			if err != nil {
				return nil, err
			}
			_, hasDefault := iter.Value().Default()
			child.Required = !iter.IsOptional() && !hasDefault && !isFixed(iter.Value()) && !acceptsEmpty(iter.Value())
			f.Fields = append(f.Fields, NamedField{Name: name, Field: *child})
		}
		if pattern := v.LookupPath(cue.MakePath(cue.AnyString)); pattern.Exists() {
			elem, err := buildField(pattern, append(path, "*"))
			if err != nil {
				return nil, err
			}
			f.Elem = elem
		}

	case k == cue.ListKind:
		if elemVal := v.LookupPath(cue.MakePath(cue.AnyIndex)); elemVal.Exists() {
			elem, err := buildField(elemVal, append(path, "*"))
			if err != nil {
				return nil, err
			}
			f.Elem = elem
		}

	case k != cue.TopKind && !v.IsConcrete():
		// A bare kind like "string" says nothing beyond Kind.
		if src := fmt.Sprint(v); src != kindName(k) {
			f.Constraint = src
		}
	}

	return f, nil
}

// acceptsEmpty reports whether v accepts a missing value: it is top, has a
// default, is fixed, or is a struct whose members all accept a missing value.
func acceptsEmpty(v cue.Value) bool {
	k := v.IncompleteKind()
	if k == cue.TopKind {
		return true
	}
	if _, ok := v.Default(); ok {
		return true
	}
	if k != cue.StructKind {
		return isFixed(v)
	}
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return false
	}
	for iter.Next() {
		if iter.IsOptional() {
			continue
		}
		if !acceptsEmpty(iter.Value()) {
			return false
		}
	}
	return true
}

// isFixed reports whether v is a concrete scalar the schema pins down.
func isFixed(v cue.Value) bool {
	k := v.IncompleteKind()
	return k != cue.StructKind && k != cue.ListKind && v.IsConcrete() && v.Validate(cue.Concrete(true)) == nil
}

func kindName(k cue.Kind) string {
	switch k {
	case cue.TopKind:
		return KindAny
	case cue.StringKind:
		return KindString
	case cue.IntKind:
		return KindInt
	case cue.BoolKind:
		return KindBool
	case cue.NullKind:
		return KindNull
	case cue.ListKind:
		return KindList
	case cue.StructKind:
		return KindStruct
	}
	// Nullable values report the underlying kind.
	if k&cue.NullKind != 0 && k != cue.NullKind {
		return kindName(k &^ cue.NullKind)
	}
	return k.String()
}

func docText(v cue.Value) string {
	var parts []string
	for _, cg := range v.Doc() {
		if t := strings.TrimSpace(cg.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func pathLabel(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

// cueMessage returns the first CUE error message without its path prefix.
func cueMessage(err error) string {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	format, args := errs[0].Msg()
	return fmt.Sprintf(format, args...)
}

// ToValue converts a concrete CUE value into an ir.Value.
// Call it only while holding the owning Runtime.
func ToValue(v cue.Value) (ir.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return ir.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.String(s), nil
	case cue.FloatKind:
		return nil, fmt.Errorf("floats are not supported in configuration values: %v", v)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := ToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := ToValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Label(), err)
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s", cueMessage(err))
		}
		return nil, fmt.Errorf("incomplete value %v", v)
	}
}

// Encode converts an ir.Value into a CUE value owned by ctx.
func Encode(ctx *cue.Context, v ir.Value) cue.Value {
	return ctx.Encode(ir.ToNative(v))
}
