package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/schema"
)

// S3Resource is a resource accepting {bucket, region}.
func S3Resource() *definition.ResourceDefinition {
	return definition.NewResource(definition.Spec{
		Description: "S3 client",
		Schema: schema.MustCompile(`
			bucket: string
			region: *"us-east-1" | string
		`),
	})
}

// DevS3 configures S3Resource to accept {prefix} and derive the bucket.
func DevS3(t testing.TB) *definition.ResourceDefinition {
	t.Helper()
	dev, err := definition.Configure(S3Resource(),
		definition.Func(func(cfg ir.Value) (ir.Value, error) {
			prefix := cfg.(ir.Object)["prefix"].(ir.String)
			return ir.Object{"bucket": prefix + "-dev"}, nil
		}),
		definition.WithSchema(schema.MustCompile(`prefix: string`)),
	)
	require.NoError(t, err)
	return dev
}

// JSONLogger is a logger accepting an optional level.
func JSONLogger() *definition.LoggerDefinition {
	return definition.NewLogger(definition.Spec{
		Description: "JSON lines logger",
		Schema:      schema.MustCompile(`level: *"INFO" | "DEBUG" | "WARN" | "ERROR"`),
	})
}

// Multiprocess is an executor accepting max_concurrent.
func Multiprocess(t testing.TB) *definition.ExecutorDefinition {
	t.Helper()
	exec, err := definition.NewExecutor(definition.Spec{
		Name:   "multiprocess",
		Schema: schema.MustCompile(`max_concurrent: *4 | int & >0`),
	})
	require.NoError(t, err)
	return exec
}

// LoadOp is an op accepting {table}.
func LoadOp(t testing.TB, name string) *definition.OpDefinition {
	t.Helper()
	op, err := definition.NewOp(definition.Spec{
		Name:              name,
		Schema:            schema.MustCompile(`table: string`),
		RequiredResources: []string{"s3"},
	})
	require.NoError(t, err)
	return op
}
