package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/aqsync/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Ledger string
	Limit  int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent fetch runs from the ledger",
		Long: `List fetch runs recorded in the SQLite run ledger, newest first.

Example:
  aqsync runs --ledger runs.db
  aqsync runs --ledger runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to SQLite run ledger (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	_ = cmd.MarkFlagRequired("ledger")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	setupLogging(opts.Verbose, formatter.GetErrWriter())

	if opts.Limit <= 0 {
		_ = formatter.Error(CodeLedger, "limit must be positive", nil)
		return NewExitError(ExitCommandError, "limit must be positive")
	}

	formatter.VerboseLog("opening run ledger %s", opts.Ledger)
	st, err := store.Open(opts.Ledger)
	if err != nil {
		_ = formatter.Error(CodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open run ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		_ = formatter.Error(CodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summary := runsSummary{Runs: runs}
	last, found, err := st.LastSuccessfulRun(ctx)
	if err != nil {
		_ = formatter.Error(CodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read last successful run", err)
	}
	if found {
		summary.LastSuccessful = &last
	}

	return formatter.Success(summary)
}
