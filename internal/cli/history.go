package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/configured/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	PlanHash string
	Failed   bool
	Limit    int
}

// HistoryEntry is one recorded resolution.
type HistoryEntry struct {
	Seq        int64  `json:"seq"`
	RunID      string `json:"run_id"`
	PlanHash   string `json:"plan_hash"`
	Valid      bool   `json:"valid"`
	Violations int    `json:"violations"`
	CreatedAt  string `json:"created_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded resolutions",
		Long: `List resolutions recorded by "configured resolve --db", oldest first.

Example:
  configured history --db ./history.db
  configured history --db ./history.db --failed --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.PlanHash, "plan-hash", "", "only resolutions of this plan fingerprint")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only resolutions with violations")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "only the most recent N resolutions")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Limit < 0 {
		return outputValidateError(formatter, ErrCodeInvalidFlags, "--limit must not be negative", nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputValidateError(formatter, ErrCodeDatabase, fmt.Sprintf("open database: %v", err), nil)
	}
	defer st.Close()

	records, err := st.ListResolutions(cmd.Context(), store.ListOptions{
		PlanHash: opts.PlanHash,
		Failed:   opts.Failed,
		Limit:    opts.Limit,
	})
	if err != nil {
		return outputValidateError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	entries := make([]HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = HistoryEntry{
			Seq:        rec.Seq,
			RunID:      rec.RunID,
			PlanHash:   rec.PlanHash,
			Valid:      rec.Success,
			Violations: len(rec.Violations),
			CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No resolutions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tPLAN\tSTATUS\tRECORDED")
	for _, e := range entries {
		status := "valid"
		if !e.Valid {
			status = fmt.Sprintf("%d violation(s)", e.Violations)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Seq, e.RunID, shortHash(e.PlanHash), status, e.CreatedAt)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
