package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/aqsync/internal/config"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	ConfigPath string

	// Getenv overrides environment lookup (for testing).
	Getenv func(string) string
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return newConfigCommand(&ConfigOptions{RootOptions: rootOpts})
}

func newConfigCommand(opts *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Load the configuration from file and environment, apply defaults and
print the result. The API key is redacted.

Example:
  aqsync config --config aqsync.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runConfig(cmd *cobra.Command, opts *ConfigOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	setupLogging(opts.Verbose, formatter.GetErrWriter())

	cfg, err := config.Load(config.Options{Path: opts.ConfigPath, Getenv: opts.Getenv})
	if err != nil {
		_ = formatter.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	redacted := cfg.Redacted()
	if opts.Format == "json" {
		return formatter.Success(redacted)
	}
	return formatter.Success(configText(redacted))
}

// configText renders cfg as aligned key: value lines.
func configText(cfg config.Config) string {
	ledger := cfg.Ledger
	if ledger == "" {
		ledger = "(disabled)"
	}
	rows := [][2]string{
		{"project_id", cfg.ProjectID},
		{"api_key", cfg.APIKey},
		{"base_url", cfg.BaseURL},
		{"database", cfg.Database},
		{"current_document", cfg.CurrentDocument},
		{"history_collection", cfg.HistoryCollection},
		{"timestamp_field", cfg.TimestampField},
		{"timestamp_encoding", cfg.TimestampEncoding},
		{"retention", cfg.Retention.Std().String()},
		{"page_limit", printer.Sprintf("%d", cfg.PageLimit)},
		{"request_timeout", cfg.RequestTimeout.Std().String()},
		{"current_output", cfg.CurrentOutput},
		{"history_output", cfg.HistoryOutput},
		{"ledger", ledger},
	}

	out := ""
	for i, row := range rows {
		if i > 0 {
			out += "\n"
		}
		out += printer.Sprintf("%-19s %s", row[0]+":", row[1])
	}
	return out
}
