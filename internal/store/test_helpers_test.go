package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/resolve"
	"github.com/roach88/configured/internal/schema"
	"github.com/roach88/configured/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a step clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewStepClock(testutil.Epoch, time.Second)
	s, err := Open(path, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// okResolution creates a successful resolution.
func okResolution(runID string) *resolve.Resolution {
	return &resolve.Resolution{
		RunID:    runID,
		PlanHash: "plan-a",
		Config: ir.Object{
			"resources": ir.Object{"s3": ir.Object{"config": ir.Object{
				"bucket": ir.String("acme-dev"),
				"region": ir.String("us-east-1"),
			}}},
		},
	}
}

// failedResolution creates a resolution with two violations.
func failedResolution(runID string) *resolve.Resolution {
	return &resolve.Resolution{
		RunID:    runID,
		PlanHash: "plan-b",
		Violations: []schema.Violation{
			{Path: []string{"resources", "s3", "config", "prefix"}, Code: schema.ErrCodeMissingField, Message: "required field is missing (expected string)"},
			{Path: []string{"ops", "nope"}, Code: resolve.ErrCodeUnknownEntry, Message: `no op or graph named "nope" in plan`},
		},
	}
}
