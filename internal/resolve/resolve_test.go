package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
	"github.com/roach88/configured/internal/testutil"
)

func testPlan(t *testing.T) Plan {
	return Plan{
		Resources: map[string]definition.Configurable{"s3": testutil.DevS3(t)},
		Loggers:   map[string]definition.Configurable{"json": testutil.JSONLogger()},
		Executor:  testutil.Multiprocess(t),
		Ops:       []definition.Configurable{testutil.LoadOp(t, "load")},
	}
}

func newResolver() *Resolver {
	return New(WithIDGenerator(testutil.NewFixedIDGenerator("run-1")))
}

func violationPaths(vs []schema.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.PathString()
	}
	return out
}

func TestResolveSuccess(t *testing.T) {
	raw := ir.Object{
		"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"prefix": ir.String("team-a")}}},
		"ops":       ir.Object{"load": ir.Object{"config": ir.Object{"table": ir.String("events")}}},
	}

	res, err := newResolver().Resolve(context.Background(), testPlan(t), raw)
	require.NoError(t, err)
	require.True(t, res.OK(), "violations: %v", res.Violations)
	assert.NoError(t, res.Err())
	assert.Equal(t, "run-1", res.RunID)
	assert.Len(t, res.PlanHash, 64)

	assert.Equal(t, ir.Object{
		"resources": ir.Object{"s3": ir.Object{"config": ir.Object{
			"bucket": ir.String("team-a-dev"),
			"region": ir.String("us-east-1"),
		}}},
		"loggers":   ir.Object{"json": ir.Object{"config": ir.Object{"level": ir.String("INFO")}}},
		"execution": ir.Object{"multiprocess": ir.Object{"config": ir.Object{"max_concurrent": ir.Int(4)}}},
		"ops":       ir.Object{"load": ir.Object{"config": ir.Object{"table": ir.String("events")}}},
	}, res.Config)
}

func TestResolveAggregatesViolations(t *testing.T) {
	raw := ir.Object{
		"resources": ir.Object{
			"s3":  ir.Object{"config": ir.Object{}},
			"gcs": ir.Object{},
		},
		"execution": ir.Object{
			"multiprocess": ir.Object{"config": ir.Object{"max_concurrent": ir.Int(0)}},
			"in_process":   ir.Object{},
		},
		"ops": ir.Object{
			"load":    ir.Object{"config": ir.Object{"table": ir.Int(1)}, "extra": ir.Null{}},
			"missing": ir.Object{},
		},
		"solids": ir.Object{},
	}

	res, err := newResolver().Resolve(context.Background(), testPlan(t), raw)
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Nil(t, res.Config)

	assert.Equal(t, []string{
		"resources.s3.config.prefix",
		"resources.gcs",
		"execution.multiprocess.config.max_concurrent",
		"execution.in_process",
		"ops.load.extra",
		"ops.load.config.table",
		"ops.missing",
		"solids",
	}, violationPaths(res.Violations))

	codes := make([]string, len(res.Violations))
	for i, v := range res.Violations {
		codes[i] = v.Code
	}
	assert.Equal(t, []string{
		schema.ErrCodeMissingField,
		ErrCodeUnknownEntry,
		schema.ErrCodeConstraint,
		ErrCodeUnknownEntry,
		ErrCodeMalformedEntry,
		schema.ErrCodeTypeMismatch,
		ErrCodeUnknownEntry,
		ErrCodeUnknownEntry,
	}, codes)

	var verrs *schema.ValidationErrors
	require.ErrorAs(t, res.Err(), &verrs)
	assert.Len(t, verrs.Violations, 8)
}

func TestResolveDeterministic(t *testing.T) {
	raw := ir.Object{
		"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"prefix": ir.Int(1)}}},
		"ops":       ir.Object{"b": ir.Null{}, "a": ir.Null{}, "c": ir.Null{}},
	}
	first, err := newResolver().Resolve(context.Background(), testPlan(t), raw)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := newResolver().Resolve(context.Background(), testPlan(t), raw)
		require.NoError(t, err)
		assert.Equal(t, first.Violations, again.Violations)
		assert.Equal(t, first.PlanHash, again.PlanHash)
	}
}

func TestResolveValidatesMappingOutput(t *testing.T) {
	bad, err := definition.Configure(testutil.S3Resource(),
		definition.Func(func(ir.Value) (ir.Value, error) {
			return ir.Object{"bucket": ir.Int(5)}, nil
		}),
		definition.WithSchema(schema.MustCompile(`prefix: string`)),
	)
	require.NoError(t, err)

	plan := Plan{Resources: map[string]definition.Configurable{"s3": bad}}
	raw := ir.Object{"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"prefix": ir.String("p")}}}}

	res, err := newResolver().Resolve(context.Background(), plan, raw)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)

	v := res.Violations[0]
	assert.Equal(t, []string{"resources", "s3", "config", "bucket"}, v.Path)
	assert.Equal(t, schema.ErrCodeTypeMismatch, v.Code)
	assert.Contains(t, v.Message, "1 mapping layer(s) of resource")
}

func TestResolveMultiLayerChain(t *testing.T) {
	team, err := definition.Configure(testutil.DevS3(t),
		definition.Func(func(cfg ir.Value) (ir.Value, error) {
			return ir.Object{"prefix": cfg.(ir.Object)["team"]}, nil
		}),
		definition.WithSchema(schema.MustCompile(`team: string`)),
	)
	require.NoError(t, err)

	plan := Plan{Resources: map[string]definition.Configurable{"s3": team}}
	raw := ir.Object{"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"team": ir.String("core")}}}}

	res, err := newResolver().Resolve(context.Background(), plan, raw)
	require.NoError(t, err)
	require.True(t, res.OK(), "violations: %v", res.Violations)

	cfg, ok := res.Config["resources"].(ir.Object)["s3"].(ir.Object)["config"]
	require.True(t, ok)
	assert.Equal(t, ir.Object{"bucket": ir.String("core-dev"), "region": ir.String("us-east-1")}, cfg)

	_, err = New(WithMaxDepth(2)).Resolve(context.Background(), plan, raw)
	assert.ErrorIs(t, err, ErrChainTooDeep)
}

func TestResolveFixedValue(t *testing.T) {
	prod, err := definition.Configure(testutil.S3Resource(), definition.Value(ir.Object{"bucket": ir.String("prod")}))
	require.NoError(t, err)
	plan := Plan{Resources: map[string]definition.Configurable{"s3": prod}}

	res, err := newResolver().Resolve(context.Background(), plan, nil)
	require.NoError(t, err)
	require.True(t, res.OK(), "violations: %v", res.Violations)

	res, err = newResolver().Resolve(context.Background(), plan, ir.Object{
		"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"bucket": ir.String("x")}}},
	})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, schema.ErrCodeNotAccepted, res.Violations[0].Code)
	assert.Equal(t, "resources.s3.config", res.Violations[0].PathString())
}

func TestResolveNoSchema(t *testing.T) {
	plan := Plan{Loggers: map[string]definition.Configurable{"console": definition.NewLogger(definition.Spec{})}}

	res, err := newResolver().Resolve(context.Background(), plan, ir.Object{"loggers": ir.Object{"console": ir.Null{}}})
	require.NoError(t, err)
	assert.True(t, res.OK())

	res, err = newResolver().Resolve(context.Background(), plan, ir.Object{
		"loggers": ir.Object{"console": ir.Object{"config": ir.Int(1)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, schema.ErrCodeNotAccepted, res.Violations[0].Code)
}

func TestResolveDuplicateOpNames(t *testing.T) {
	plan := Plan{Ops: []definition.Configurable{
		testutil.LoadOp(t, "load"),
		testutil.LoadOp(t, "load"),
	}}
	raw := ir.Object{"ops": ir.Object{"load": ir.Object{"config": ir.Object{"table": ir.String("t")}}}}

	res, err := newResolver().Resolve(context.Background(), plan, raw)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, ErrCodeDuplicateName, res.Violations[0].Code)
	assert.Equal(t, "ops.load", res.Violations[0].PathString())
}

func TestResolveMalformedSection(t *testing.T) {
	res, err := newResolver().Resolve(context.Background(), testPlan(t), ir.Object{
		"resources": ir.Array{},
		"ops":       ir.Object{"load": ir.String("events")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"resources", "ops.load"}, violationPaths(res.Violations))
}

func TestResolveNoExecutor(t *testing.T) {
	res, err := newResolver().Resolve(context.Background(), Plan{}, ir.Object{
		"execution": ir.Object{"in_process": ir.Object{}},
	})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, ErrCodeUnknownEntry, res.Violations[0].Code)
}

func TestResolveTransformError(t *testing.T) {
	boom := errors.New("boom")
	broken, err := definition.Configure(testutil.S3Resource(), definition.Func(func(ir.Value) (ir.Value, error) {
		return nil, boom
	}))
	require.NoError(t, err)

	plan := Plan{Resources: map[string]definition.Configurable{"s3": broken}}
	raw := ir.Object{"resources": ir.Object{"s3": ir.Object{"config": ir.Object{"bucket": ir.String("b")}}}}

	res, err := newResolver().Resolve(context.Background(), plan, raw)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "resolve resources.s3")

	var terr *definition.TransformError
	assert.ErrorAs(t, err, &terr)
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver().Resolve(ctx, testPlan(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanCheck(t *testing.T) {
	op := testutil.LoadOp(t, "load")

	tests := []struct {
		name string
		plan Plan
	}{
		{"op as resource", Plan{Resources: map[string]definition.Configurable{"s3": op}}},
		{"resource as logger", Plan{Loggers: map[string]definition.Configurable{"l": testutil.S3Resource()}}},
		{"op as executor", Plan{Executor: op}},
		{"logger as op", Plan{Ops: []definition.Configurable{testutil.JSONLogger()}}},
		{"nil op", Plan{Ops: []definition.Configurable{nil}}},
		{"nil resource", Plan{Resources: map[string]definition.Configurable{"s3": nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.plan.Check())
			_, err := newResolver().Resolve(context.Background(), tt.plan, nil)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, testPlan(t).Check())
}

func TestPlanHashChangesWithPlan(t *testing.T) {
	a, err := testPlan(t).Hash()
	require.NoError(t, err)

	p := testPlan(t)
	p.Ops = append(p.Ops, testutil.LoadOp(t, "load_b"))
	b, err := p.Hash()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestResolveUsesGeneratedRunIDs(t *testing.T) {
	r := New(WithIDGenerator(NewSequenceGenerator("r1", "r2")))
	plan := Plan{}

	first, err := r.Resolve(context.Background(), plan, nil)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.Equal(t, "r1", first.RunID)
	assert.Equal(t, "r2", second.RunID)
}
