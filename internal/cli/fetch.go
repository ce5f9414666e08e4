package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/aqsync/internal/config"
	"github.com/roach88/aqsync/internal/firestore"
	"github.com/roach88/aqsync/internal/pipeline"
	"github.com/roach88/aqsync/internal/sitedata"
	"github.com/roach88/aqsync/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	ConfigPath string
	CurrentOut string
	HistoryOut string
	Ledger     string
	PageLimit  int

	// Remote, Clock and IDs override the Firestore client, wall clock and
	// run id generator (for testing). Nil means the production default.
	Remote pipeline.Remote
	Clock  pipeline.Clock
	IDs    pipeline.IDGenerator

	// Getenv overrides environment lookup (for testing).
	Getenv func(string) string
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	return newFetchCommand(&FetchOptions{RootOptions: rootOpts})
}

func newFetchCommand(opts *FetchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch readings and update the output files",
		Long: `Fetch the current air-quality snapshot and any new history samples from
Firestore, then rewrite the snapshot file and merge the samples into the
rolling history file.

If Firestore cannot be reached, valid files from an earlier run are kept and
missing or unreadable files are replaced with placeholders.

Exit codes:
  0  both files refreshed
  1  run failed, placeholder data written
  2  configuration error or output file not writable
  3  run failed, last known files kept

Example:
  aqsync fetch --config aqsync.yaml
  AQSYNC_PROJECT_ID=aqm5 AQSYNC_API_KEY=... aqsync fetch --ledger runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.CurrentOut, "current-out", "", "snapshot output path (default from config)")
	cmd.Flags().StringVar(&opts.HistoryOut, "history-out", "", "history output path (default from config)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "SQLite run ledger path (disabled when empty)")
	cmd.Flags().IntVar(&opts.PageLimit, "page-limit", 0, "maximum history documents per fetch (default from config)")

	return cmd
}

// fetchOverrides maps explicitly set flags onto config keys.
func fetchOverrides(cmd *cobra.Command, opts *FetchOptions) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("current-out") {
		overrides["current_output"] = opts.CurrentOut
	}
	if flags.Changed("history-out") {
		overrides["history_output"] = opts.HistoryOut
	}
	if flags.Changed("ledger") {
		overrides["ledger"] = opts.Ledger
	}
	if flags.Changed("page-limit") {
		overrides["page_limit"] = opts.PageLimit
	}
	return overrides
}

func runFetch(cmd *cobra.Command, opts *FetchOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	setupLogging(opts.Verbose, formatter.GetErrWriter())

	loadOpts := config.Options{
		Path:      opts.ConfigPath,
		Getenv:    opts.Getenv,
		Overrides: fetchOverrides(cmd, opts),
	}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		currentPath, historyPath := config.OutputPaths(loadOpts)
		ensureOutputs(opts, currentPath, historyPath)
		_ = formatter.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	remote := opts.Remote
	if remote == nil {
		client, err := firestore.New(cfg.FirestoreConfig())
		if err != nil {
			ensureOutputs(opts, cfg.CurrentOutput, cfg.HistoryOutput)
			_ = formatter.Error(CodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create firestore client", err)
		}
		remote = client
	}

	current := sitedata.NewCurrentFile(cfg.CurrentOutput)
	history := sitedata.NewHistoryFile(cfg.HistoryOutput)
	runner, err := pipeline.NewRunner(pipeline.Options{
		Remote:    remote,
		Current:   current,
		History:   history,
		Retention: cfg.Retention.Std(),
		PageLimit: cfg.PageLimit,
		Clock:     opts.Clock,
		IDs:       opts.IDs,
	})
	if err != nil {
		ensureOutputs(opts, cfg.CurrentOutput, cfg.HistoryOutput)
		_ = formatter.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create runner", err)
	}

	// Setup signal handling; the run still leaves both files valid when interrupted.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := runner.Run(ctx)
	recordRun(parentCtx, cfg.Ledger, res)

	summary := fetchSummary{Result: res, CurrentPath: current.Path, HistoryPath: history.Path}
	exit := fetchExit(res, runErr)

	var cliErr *CLIError
	if exit != nil {
		code := CodeRemote
		if runErr != nil {
			code = CodeWrite
		}
		cliErr = &CLIError{Code: code, Message: res.ErrorMessage()}
	}
	if err := formatter.Report(res.RunID, reportStatus(res), summary, cliErr); err != nil {
		slog.Error("failed to write output", "error", err)
	}
	return exit
}

// fetchExit maps a run outcome onto an exit error.
func fetchExit(res *pipeline.Result, runErr error) error {
	switch {
	case runErr != nil:
		return WrapExitError(ExitCommandError, "failed to write output files", runErr)
	case res.Status == pipeline.StatusDegraded:
		return WrapExitError(ExitDegraded, "fetch failed at "+res.FailedStep+", kept last known files", res.Err)
	case res.Status == pipeline.StatusFailed:
		return WrapExitError(ExitFailure, "fetch failed at "+res.FailedStep+", wrote placeholder data", res.Err)
	default:
		return nil
	}
}

func reportStatus(res *pipeline.Result) string {
	switch res.Status {
	case pipeline.StatusOK:
		return "ok"
	case pipeline.StatusDegraded:
		return "degraded"
	default:
		return "error"
	}
}

// ensureOutputs leaves both output files valid when fetch stops before a
// run starts. Files that are already valid are kept.
func ensureOutputs(opts *FetchOptions, currentPath, historyPath string) {
	clock := opts.Clock
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	report, err := sitedata.EnsureOutputs(
		sitedata.NewCurrentFile(currentPath),
		sitedata.NewHistoryFile(historyPath),
		false, false, clock.Now(),
	)
	if err != nil {
		slog.Error("failed to write fallback files", "step", pipeline.StepFallback, "error", err)
		return
	}
	if report.Placeholders() {
		slog.Warn("wrote placeholder output files",
			"current", currentPath, "current_placeholder", report.CurrentPlaceholder,
			"history", historyPath, "history_placeholder", report.HistoryPlaceholder,
		)
	}
}

// recordRun appends res to the ledger at path. Ledger problems are logged
// and never change the outcome of the run.
func recordRun(ctx context.Context, path string, res *pipeline.Result) {
	if path == "" {
		return
	}

	st, err := store.Open(path)
	if err != nil {
		slog.Warn("run ledger unavailable", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing run ledger", "error", closeErr)
		}
	}()

	if err := st.WriteRun(ctx, res.ToRun()); err != nil {
		slog.Warn("failed to record run", "path", path, "run_id", res.RunID, "error", err)
		return
	}
	slog.Debug("run recorded", "path", path, "run_id", res.RunID)
}
