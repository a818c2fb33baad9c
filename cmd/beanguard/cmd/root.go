// Package cmd provides the CLI commands for beanguard.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/beanguard/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "beanguard",
	Short: "beanguard - intercepting bean validation",
	Long: `beanguard runs every validation through a chain of interceptors that
observe it: correlation of the bean under validation, structured logging,
Prometheus metrics, OpenTelemetry tracing and an audit trail.

Quick start:
  1. Write the records to check: incomes.yaml
  2. Run: beanguard validate incomes.yaml

Configuration:
  Config is loaded from beanguard.yaml in the current directory,
  $HOME/.beanguard/, or /etc/beanguard/.

  Environment variables can override config values with the BEANGUARD_ prefix.
  Example: BEANGUARD_HOOKS_FAILURE_POLICY=suppress

Commands:
  validate      Validate a YAML list of cash income records
  interceptors  Print the configured interceptor chain
  audit         Query the audit trail
  version       Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./beanguard.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// loadConfig loads and validates the configuration and creates the logger
// it asks for. Logs go to w.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}
	return cfg, logger, nil
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
