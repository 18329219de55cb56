package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"corpus-auditor/core/config"
	"corpus-auditor/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envDir string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "corpus-auditor",
	Short: "Corpus validation pipeline",
	Long: `Corpus Auditor validates a scraped JSON-lines corpus against the identifier
lists that describe it. It packs the lists, extracts the gap set, shards and
sorts the corpus by identifier and reports scraped identifiers that never
reached the corpus. Every stage runs in bounded memory and is skipped once its
output exists, so an interrupted run can simply be started again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// setup loads and validates the configuration and builds the logger. A
// positional directory argument overrides pipeline.dir.
func setup(args []string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(envDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) > 0 {
		cfg.Pipeline.Dir = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "Directory holding the optional .env file")
}
