package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/load"

	"github.com/roach88/configured/internal/compiler"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/resolve"
	"github.com/roach88/configured/internal/runconfig"
	"github.com/roach88/configured/internal/schema"
	"github.com/roach88/configured/internal/store"
	"github.com/roach88/configured/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database. Deterministic
// helpers ensure reproducible results.
//
// Execution flow:
// 1. Compile the catalog and pick the plan
// 2. Merge the run config files and the inline config
// 3. Resolve with a fixed run ID and record the outcome
// 4. Evaluate assertions
//
// The error is non-nil only when the scenario cannot be run at all; failed
// assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:", store.WithClock(testutil.NewStepClock(testutil.Epoch, time.Second).Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := compileCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}

	plan := cat.DefaultPlan()
	if scenario.Plan != "" {
		if plan, err = cat.Plan(scenario.Plan); err != nil {
			return nil, err
		}
	}

	raw, err := runConfig(scenario)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	resolver := resolve.New(resolve.WithIDGenerator(testutil.NewFixedIDGenerator(runID)))
	res, err := resolver.Resolve(ctx, plan, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve: %w", err)
	}

	rec, _, err := st.WriteResolution(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("failed to record resolution: %w", err)
	}

	result := NewResult(res)
	result.Record = rec

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// compileCatalog loads the files as one CUE instance and compiles it.
func compileCatalog(files []string) (*compiler.Catalog, error) {
	abs := make([]string, len(files))
	for i, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		abs[i] = p
	}

	instances := load.Instances(abs, &load.Config{Dir: filepath.Dir(abs[0])})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	rt := schema.NewRuntime()
	var value cue.Value
	rt.Do(func(ctx *cue.Context) {
		value = ctx.BuildInstance(instances[0])
	})

	cat, errs := compiler.Compile(rt, value)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("catalog has %d error(s):\n  %s", len(errs), strings.Join(msgs, "\n  "))
	}
	return cat, nil
}

// runConfig merges the scenario's config files, then its inline config.
func runConfig(scenario *Scenario) (ir.Object, error) {
	raw := ir.Object{}
	if len(scenario.ConfigFiles) > 0 {
		loaded, err := runconfig.LoadAll(scenario.ConfigFiles...)
		if err != nil {
			return nil, fmt.Errorf("failed to load run config: %w", err)
		}
		raw = loaded
	}
	if scenario.Config == nil {
		return raw, nil
	}

	inline, err := ir.FromNative(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("inline config: %w", err)
	}
	return runconfig.Merge(raw, inline.(ir.Object)), nil
}
