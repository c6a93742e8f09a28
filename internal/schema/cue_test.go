package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/configured/internal/ir"
)

const s3Schema = `
bucket: string

// Key prefix for uploads.
prefix: string
region: *"us-east-1" | string
retries?: int & >=0
`

func paths(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.PathString()
	}
	return out
}

func TestResolveValid(t *testing.T) {
	s := MustCompile(s3Schema)

	r, err := s.Resolve(ir.Object{"bucket": ir.String("b"), "prefix": ir.String("p")})
	require.NoError(t, err)
	require.True(t, r.OK(), "violations: %v", r.Violations())

	assert.Equal(t, ir.Object{
		"bucket": ir.String("b"),
		"prefix": ir.String("p"),
		"region": ir.String("us-east-1"),
	}, r.Value())
}

func TestResolveMissingField(t *testing.T) {
	s := MustCompile(s3Schema)

	r, err := s.Resolve(ir.Object{"bucket": ir.String("b")})
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"prefix"}, vs[0].Path)
	assert.Equal(t, ErrCodeMissingField, vs[0].Code)
	assert.Contains(t, vs[0].Message, "required")
}

func TestResolveCollectsAllViolations(t *testing.T) {
	s := MustCompile(s3Schema)

	r, err := s.Resolve(ir.Object{
		"bucket":  ir.Int(5),
		"retries": ir.Int(-1),
		"zeta":    ir.Bool(true),
		"alpha":   ir.Bool(true),
	})
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	assert.Equal(t, []string{"bucket", "prefix", "retries", "alpha", "zeta"}, paths(vs))
	assert.Equal(t, ErrCodeTypeMismatch, vs[0].Code)
	assert.Equal(t, "expected string, got int", vs[0].Message)
	assert.Equal(t, ErrCodeMissingField, vs[1].Code)
	assert.Equal(t, ErrCodeConstraint, vs[2].Code)
	assert.Equal(t, ErrCodeUnknownField, vs[3].Code)
	assert.Equal(t, ErrCodeUnknownField, vs[4].Code)
}

func TestResolveDeterministicOrder(t *testing.T) {
	s := MustCompile(s3Schema)
	raw := ir.Object{"b": ir.Int(1), "c": ir.Int(2), "a": ir.Int(3)}

	first, err := s.Resolve(raw)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := s.Resolve(raw)
		require.NoError(t, err)
		assert.Equal(t, first.Violations(), again.Violations())
	}
}

func TestResolveOverridesDefault(t *testing.T) {
	s := MustCompile(s3Schema)

	r, err := s.Resolve(ir.Object{
		"bucket":  ir.String("b"),
		"prefix":  ir.String("p"),
		"region":  ir.String("eu-west-1"),
		"retries": ir.Int(3),
	})
	require.NoError(t, err)
	require.True(t, r.OK(), "violations: %v", r.Violations())

	obj := r.Value().(ir.Object)
	assert.Equal(t, ir.String("eu-west-1"), obj["region"])
	assert.Equal(t, ir.Int(3), obj["retries"])
}

func TestResolveNullMeansMissing(t *testing.T) {
	s := MustCompile(`region: *"us-east-1" | string`)

	for _, raw := range []ir.Value{nil, ir.Null{}, ir.Object{}, ir.Object{"region": ir.Null{}}} {
		r, err := s.Resolve(raw)
		require.NoError(t, err)
		require.True(t, r.OK(), "violations: %v", r.Violations())
		assert.Equal(t, ir.Object{"region": ir.String("us-east-1")}, r.Value())
	}
}

func TestResolveNested(t *testing.T) {
	s := MustCompile(`
		s3: {
			bucket: string
			acl: *"private" | "public-read"
		}
	`)

	r, err := s.Resolve(ir.Object{})
	require.NoError(t, err)
	require.False(t, r.OK())
	assert.Equal(t, []string{"s3.bucket"}, paths(r.Violations()))

	r, err = s.Resolve(ir.Object{"s3": ir.Object{"bucket": ir.String("b")}})
	require.NoError(t, err)
	require.True(t, r.OK(), "violations: %v", r.Violations())
	assert.Equal(t, ir.Object{"s3": ir.Object{
		"bucket": ir.String("b"),
		"acl":    ir.String("private"),
	}}, r.Value())
}

func TestResolveEnumConstraint(t *testing.T) {
	s := MustCompile(`acl: "private" | "public-read"`)

	r, err := s.Resolve(ir.Object{"acl": ir.String("world")})
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"acl"}, vs[0].Path)
	assert.Equal(t, ErrCodeConstraint, vs[0].Code)
}

func TestResolveLists(t *testing.T) {
	s := MustCompile(`tags: [...string]`)

	r, err := s.Resolve(ir.Object{"tags": ir.Array{ir.String("a"), ir.Int(1), ir.String("c")}})
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"tags", "1"}, vs[0].Path)
	assert.Equal(t, ErrCodeTypeMismatch, vs[0].Code)

	r, err = s.Resolve(ir.Object{"tags": ir.Array{ir.String("a")}})
	require.NoError(t, err)
	require.True(t, r.OK())
	assert.Equal(t, ir.Object{"tags": ir.Array{ir.String("a")}}, r.Value())
}

func TestResolveListOfStructs(t *testing.T) {
	s := MustCompile(`hosts: [...{name: string, port: *80 | int}]`)

	r, err := s.Resolve(ir.Object{"hosts": ir.Array{
		ir.Object{"name": ir.String("a")},
		ir.Object{"port": ir.Int(8080)},
	}})
	require.NoError(t, err)
	require.False(t, r.OK())
	assert.Equal(t, []string{"hosts.1.name"}, paths(r.Violations()))
}

func TestResolvePatternFields(t *testing.T) {
	s := MustCompile(`limits: [string]: int`)

	r, err := s.Resolve(ir.Object{"limits": ir.Object{
		"cpu": ir.Int(2),
		"mem": ir.String("lots"),
	}})
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	require.Len(t, vs, 1)
	assert.Equal(t, []string{"limits", "mem"}, vs[0].Path)
	assert.Equal(t, ErrCodeTypeMismatch, vs[0].Code)
}

func TestResolveRootTypeMismatch(t *testing.T) {
	s := MustCompile(s3Schema)

	r, err := s.Resolve(ir.String("not a struct"))
	require.NoError(t, err)
	require.False(t, r.OK())

	vs := r.Violations()
	require.Len(t, vs, 1)
	assert.Empty(t, vs[0].Path)
	assert.Equal(t, "expected struct, got string", vs[0].Message)
}

func TestPermissive(t *testing.T) {
	s := Permissive()

	raw := ir.Object{"anything": ir.Array{ir.Int(1), ir.Null{}}}
	r, err := s.Resolve(raw)
	require.NoError(t, err)
	require.True(t, r.OK())
	assert.Equal(t, raw, r.Value())

	assert.Equal(t, KindAny, s.AsField().Kind)
	assert.False(t, s.AsField().Required)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax", `bucket: `, "compile schema"},
		{"conflict", `a: int & string`, "compile schema"},
		{"float", `rate: float`, "float"},
		{"nested number", `s: {ratio: number}`, "s.ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAsField(t *testing.T) {
	f := MustCompile(s3Schema).AsField()

	require.NotNil(t, f)
	assert.Equal(t, KindStruct, f.Kind)
	assert.True(t, f.Required)
	require.Len(t, f.Fields, 4)

	names := make([]string, len(f.Fields))
	for i, nf := range f.Fields {
		names[i] = nf.Name
	}
	assert.Equal(t, []string{"bucket", "prefix", "region", "retries"}, names)

	bucket, ok := f.Lookup("bucket")
	require.True(t, ok)
	assert.Equal(t, KindString, bucket.Kind)
	assert.True(t, bucket.Required)

	prefix, ok := f.Lookup("prefix")
	require.True(t, ok)
	assert.Equal(t, "Key prefix for uploads.", prefix.Description)

	region, ok := f.Lookup("region")
	require.True(t, ok)
	assert.False(t, region.Required)
	assert.Equal(t, ir.String("us-east-1"), region.Default)

	retries, ok := f.Lookup("retries")
	require.True(t, ok)
	assert.False(t, retries.Required)
	assert.Equal(t, KindInt, retries.Kind)
	assert.NotEmpty(t, retries.Constraint)

	_, ok = f.Lookup("missing")
	assert.False(t, ok)
}

func TestAsFieldOptionalStruct(t *testing.T) {
	f := MustCompile(`region: *"us-east-1" | string`).AsField()
	assert.False(t, f.Required)
}

func TestFieldIsEmpty(t *testing.T) {
	assert.True(t, (*Field)(nil).IsEmpty())
	assert.True(t, MustCompile(`{}`).AsField().IsEmpty())
	assert.False(t, MustCompile(s3Schema).AsField().IsEmpty())
	assert.False(t, Permissive().AsField().IsEmpty())
}

func TestResolveConcurrent(t *testing.T) {
	s := MustCompile(s3Schema)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Resolve(ir.Object{"bucket": ir.String("b")})
			assert.NoError(t, err)
			assert.Equal(t, []string{"prefix"}, paths(r.Violations()))
		}()
	}
	wg.Wait()
}
