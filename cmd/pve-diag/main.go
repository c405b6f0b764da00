package main

import (
	"errors"
	goflag "flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/zapr"
	"github.com/runningman84/pve-diag/pkg/config"
	"github.com/runningman84/pve-diag/pkg/models"
	"github.com/runningman84/pve-diag/pkg/operator"
	"github.com/runningman84/pve-diag/pkg/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"k8s.io/klog/v2"
)

// Version can be set at build time using -ldflags
// Example: go build -ldflags="-X main.Version=1.0.0"
var Version = "dev"

// exitFailOn is the exit code used when findings reach the fail-on gravity
const exitFailOn = 2

var (
	cfg       = config.NewConfig()
	logFormat string
	zapLog    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:               "pve-diag",
	Short:             "Diagnostic rule engine for Proxmox VE cluster snapshots",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Evaluate a cluster snapshot and print the findings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		klog.Infof("Starting pve-diag version %s with %s log level", Version, cfg.LogLevel)
		return operator.NewOperator(cfg).Run(cmd.Context())
	},
}

var createSettingsCmd = &cobra.Command{
	Use:   "create-settings [file]",
	Short: "Write a settings file with the default thresholds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "settings.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.WriteSettings(path, config.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to write settings: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created settings file %s\n", path)
		return nil
	},
}

var createIgnoredIssuesCmd = &cobra.Command{
	Use:   "create-ignored-issues [file]",
	Short: "Write an ignored issues file with one example rule",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "ignored-issues.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		if err := parser.WriteIgnoredIssuesTemplate(path); err != nil {
			return fmt.Errorf("failed to write ignored issues: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created ignored issues file %s\n", path)
		fmt.Fprintf(out, "Context values: %s\n", strings.Join(models.Contexts(), ", "))
		fmt.Fprintf(out, "Gravity values: %s\n", strings.Join(models.Gravities(), ", "))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pve-diag version %s\n", Version)
	},
}

func init() {
	// Initialize klog first
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: info or debug")
	flags.StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	addExecuteFlags(executeCmd.Flags())

	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(createSettingsCmd)
	rootCmd.AddCommand(createIgnoredIssuesCmd)
	rootCmd.AddCommand(versionCmd)
}

func addExecuteFlags(flags *pflag.FlagSet) {
	flags.StringVar(&cfg.SnapshotFile, "snapshot-file", cfg.SnapshotFile, "Snapshot export to evaluate, - for stdin")
	flags.StringSliceVar(&cfg.SnapshotCmd, "snapshot-cmd", cfg.SnapshotCmd, "Collector command printing the snapshot export (comma separated, takes precedence over --snapshot-file)")
	flags.StringVar(&cfg.SettingsFile, "settings-file", cfg.SettingsFile, "Threshold settings file (YAML or JSON)")
	flags.StringVar(&cfg.IgnoredIssuesFile, "ignored-issues-file", cfg.IgnoredIssuesFile, "Ignored issues file (YAML or JSON)")
	flags.BoolVar(&cfg.ShowIgnoredIssues, "ignored-issues-show", cfg.ShowIgnoredIssues, "Also print the ignored findings")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: "+strings.Join(config.OutputFormats(), ", "))
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write Prometheus metrics to this textfile")
	flags.StringVar(&cfg.FailOn, "fail-on", cfg.FailOn, "Exit with code 2 when an active finding reaches this gravity: "+strings.Join(models.Gravities(), ", "))
}

func setupLogging(cmd *cobra.Command, args []string) error {
	// Validate log level
	if cfg.LogLevel != "info" && cfg.LogLevel != "debug" {
		return fmt.Errorf("invalid log level: %s. Must be one of: info, debug", cfg.LogLevel)
	}

	// Validate and set log format
	if logFormat != "text" && logFormat != "json" {
		return fmt.Errorf("invalid log format: %s. Must be one of: text, json", logFormat)
	}
	if logFormat == "json" {
		var err error
		if cfg.IsDebug() {
			zapLog, err = zap.NewDevelopment()
		} else {
			zapLog, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to initialize JSON logger: %w", err)
		}

		// Set klog to use zap backend for JSON output
		klog.SetLogger(zapr.NewLogger(zapLog))
	}

	// Set klog verbosity based on log level
	if cfg.IsDebug() {
		if err := goflag.Set("v", "1"); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	err := rootCmd.Execute()

	klog.Flush()
	if zapLog != nil {
		_ = zapLog.Sync()
	}

	switch {
	case err == nil:
		return
	case errors.Is(err, operator.ErrFailOnReached):
		klog.Errorf("%v", err)
		klog.Flush()
		os.Exit(exitFailOn)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
