package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/log"
)

// NewRootCmd creates the root command for sitescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescan",
		Short: "Recursive site discovery crawler",
		Long: `sitescan crawls a website from a seed address and records what it finds:
every discovered address, the tags of every fetched page, word frequencies
and hits of a custom keyword list.

After the first crawl, sitescan keeps re-scanning the site and records the
records that appeared since the previous pass, until nothing changes.

Results are written to a results directory, summarised on stdout and stored
in a local run history (see 'sitescan history').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFiles, err := cmd.Flags().GetStringSlice("env-file")
			if err != nil {
				return err
			}
			if err := config.LoadEnvFiles(envFiles...); err != nil {
				return fmt.Errorf("failed to load environment file: %w", err)
			}
			return nil
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringSlice("env-file", nil,
		"Load SITESCAN_* variables from these files (default: .env in current directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the process logger and installs it as the slog default.
// Logs always go to stderr so reports on stdout stay machine readable.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	logger := log.New(cmd.ErrOrStderr(), log.Options{
		Verbose: getBoolFlag(cmd, "verbose"),
		JSON:    getBoolFlag(cmd, "log-json"),
	})
	slog.SetDefault(logger)
	return logger
}
