package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Verdict - rule registry and escalation policy engine for STA signals",
	Long: `Verdict evaluates STA signal envelopes against a versioned rule registry.

Each envelope is matched against the rules declared for its signal, and the
triggered violations together with the structural risk score resolve to one
escalation level: none, advisory, board_review or critical.

Rule packs are YAML or JSON documents loaded from a file, a directory tree
or a Git repository. New packs are checked for compatibility before they
replace the active registry.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Reason != "" {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override telemetry.logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override telemetry.logging.format (json, text)")
}
