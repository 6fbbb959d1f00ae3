// Package main provides the duolist binary entry point.
// Duolist is a two-person collaborative checklist: every task is
// proposed by one participant and must be validated by the other
// before it becomes actionable.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Czernobog023/duolist/config"
)

const (
	Version   = "2.0.0"
	BuildTime = "dev"
	appName   = "duolist"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	serverURL  string
	user       string
	logLevel   string
}

// loadConfig resolves the layered configuration and applies the
// command-line overrides, which take precedence over everything.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if f.configPath != "" {
		cfg = config.DefaultConfig()
		fileCfg, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	} else {
		cfg, err = config.NewLoader(slog.Default()).Load()
		if err != nil {
			return nil, err
		}
	}

	if f.serverURL != "" {
		cfg.Client.ServerURL = f.serverURL
	}
	if f.user != "" {
		cfg.User = f.user
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Two-person collaborative checklist",
		Long: `Duolist is a shared checklist for exactly two people.

A task starts as a proposal. It only becomes actionable once both
participants have validated it; the proposer's validation is implicit.
Either participant can reject a proposal, complete an active task, or
delete anything outright.

The serve subcommand runs the authoritative server; the other
subcommands act as its client.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(flags.logLevel)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.serverURL, "server", "", "Server base URL (overrides config)")
	cmd.PersistentFlags().StringVarP(&flags.user, "user", "u", "", "Acting user name (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(proposeCmd(flags))
	cmd.AddCommand(validateCmd(flags))
	cmd.AddCommand(rejectCmd(flags))
	cmd.AddCommand(completeCmd(flags))
	cmd.AddCommand(deleteCmd(flags))
	cmd.AddCommand(statusCmd(flags))
	cmd.AddCommand(exportCmd(flags))
	cmd.AddCommand(importCmd(flags))
	cmd.AddCommand(watchCmd(flags))

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
