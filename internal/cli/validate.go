package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/configured/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Entries int                        `json:"entries,omitempty"`
	Plans   []string                   `json:"plans,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Watch bool

	// Debounce is the quiet period after a change before revalidating.
	Debounce time.Duration
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts, Debounce: 200 * time.Millisecond}

	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a catalog of configurable definitions",
		Long: `Validate the CUE catalog in a directory.

Compiles every definition, configured derivative and plan, and reports all
problems found (not just the first). With --watch, revalidates whenever a
.cue file in the directory changes, until interrupted.

Example:
  configured validate ./catalog
  configured validate ./catalog --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return watchValidate(opts, args[0], cmd)
			}
			return runValidate(opts.RootOptions, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "revalidate when .cue files change")

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, err := LoadCatalog(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, dir)

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result.Errors)
	}
	return outputValidateSuccess(formatter, result.Catalog)
}

// watchValidate validates once, then again after every change until the
// command context is cancelled or the process is interrupted.
func watchValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := func() {
		if err := runValidate(opts.RootOptions, dir, cmd); err != nil {
			slog.Debug("validation failed", "dir", dir, "error", err)
		}
	}

	validate()
	if err := watchDir(ctx, dir, opts.Debounce, validate); err != nil {
		return WrapExitError(ExitCommandError, "watch catalog", err)
	}
	return nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cat *compiler.Catalog) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:   true,
			Entries: len(cat.Entries()),
			Plans:   cat.PlanNames(),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Catalog valid (%d entries, %d plans)\n", len(cat.Entries()), len(cat.PlanNames()))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
