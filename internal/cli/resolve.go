package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/configured/internal/definition"
	"github.com/roach88/configured/internal/ir"
	"github.com/roach88/configured/internal/resolve"
	"github.com/roach88/configured/internal/runconfig"
	"github.com/roach88/configured/internal/schema"
	"github.com/roach88/configured/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Configs  []string
	Plan     string
	Database string

	// IDGenerator overrides the run ID source (for testing).
	// If nil, defaults to resolve.UUIDv7Generator.
	IDGenerator resolve.IDGenerator

	// StoreOptions are passed to store.Open (for testing).
	StoreOptions []store.Option
}

// ResolveResult is the outcome of one resolve invocation.
type ResolveResult struct {
	RunID      string             `json:"run_id"`
	PlanHash   string             `json:"plan_hash"`
	Valid      bool               `json:"valid"`
	Config     ir.Object          `json:"config,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
	Seq        int64              `json:"seq,omitempty"` // set when recorded
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return newResolveCommand(&ResolveOptions{RootOptions: rootOpts})
}

func newResolveCommand(opts *ResolveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <catalog-dir>",
		Short: "Resolve a run config against a catalog plan",
		Long: `Resolve a run config through every configured layer of a plan.

Run config files may be YAML, TOML or JSON; repeated --config files are
deep-merged in order. Without --plan the catalog's default plan is used:
every entry, and the executor when exactly one is declared.

All violations are reported, each with the path to the offending value.
With --db the outcome is recorded in the resolution history.

Example:
  configured resolve ./catalog --config run.yaml --plan dev
  configured resolve ./catalog --config base.yaml --config dev.toml --db ./history.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Configs, "config", "c", nil, "run config file (repeatable, merged in order)")
	cmd.Flags().StringVarP(&opts.Plan, "plan", "p", "", "plan name (default: every catalog entry)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the resolution in this SQLite database")

	return cmd
}

func runResolve(opts *ResolveOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := loadValidCatalog(formatter, dir)
	if err != nil {
		return err
	}

	plan := cat.DefaultPlan()
	if opts.Plan != "" {
		if plan, err = cat.Plan(opts.Plan); err != nil {
			return outputValidateError(formatter, ErrCodeUnknownRef, err.Error(), cat.PlanNames())
		}
	}

	raw := ir.Object{}
	if len(opts.Configs) > 0 {
		if raw, err = runconfig.LoadAll(opts.Configs...); err != nil {
			return outputValidateError(formatter, ErrCodeRunConfig, err.Error(), nil)
		}
	}
	formatter.VerboseLog("Resolving %d run config file(s) against plan %q", len(opts.Configs), opts.Plan)

	ids := opts.IDGenerator
	if ids == nil {
		ids = resolve.UUIDv7Generator{}
	}
	res, err := resolve.New(resolve.WithIDGenerator(ids)).Resolve(cmd.Context(), plan, raw)
	if err != nil {
		var te *definition.TransformError
		if errors.As(err, &te) {
			return outputValidateError(formatter, ErrCodeTransform, err.Error(), nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	result := ResolveResult{
		RunID:      res.RunID,
		PlanHash:   res.PlanHash,
		Valid:      res.OK(),
		Config:     res.Config,
		Violations: res.Violations,
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database, opts.StoreOptions...)
		if err != nil {
			return outputValidateError(formatter, ErrCodeDatabase, fmt.Sprintf("open database: %v", err), nil)
		}
		defer st.Close()

		rec, _, err := st.WriteResolution(cmd.Context(), res)
		if err != nil {
			return outputValidateError(formatter, ErrCodeDatabase, err.Error(), nil)
		}
		result.Seq = rec.Seq
		formatter.VerboseLog("Recorded run %s as seq %d", rec.RunID, rec.Seq)
	}

	if !res.OK() {
		return outputResolveFailure(formatter, result)
	}
	return outputResolveSuccess(formatter, result)
}

func outputResolveSuccess(formatter *OutputFormatter, result ResolveResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Run config valid (run %s)\n\n", result.RunID)
	data, err := yaml.Marshal(ir.ToNative(result.Config))
	if err != nil {
		return WrapExitError(ExitCommandError, "render config", err)
	}
	_, err = formatter.Writer.Write(data)
	return err
}

func outputResolveFailure(formatter *OutputFormatter, result ResolveResult) error {
	first := result.Violations[0]
	if formatter.Format == "json" {
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Run config invalid (run %s)\n\n", result.RunID)
		for _, v := range result.Violations {
			fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", v.Code, v.PathString(), v.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("run config has %d violation(s)", len(result.Violations)))
}
