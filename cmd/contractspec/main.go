// Package main provides the contractspec binary entry point.
// Contractspec validates and regenerates contract documentation for
// source trees: docstrings are parsed into section trees, checked against
// per-kind schema rules and statically inferred behavior, and rebuilt
// when they drift from the implementation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	// Register language front ends via init()
	_ "github.com/c360studio/contractspec/frontend/python"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "contractspec"
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

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Contract documentation checker",
		Long: `Contractspec keeps documentation contracts honest.

It parses docstrings into section trees, validates them against per-kind
schema rules, statically infers what the code actually raises, mutates,
and returns, and regenerates compliant documentation where the written
contract has drifted from the implementation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(checkCmd())
	cmd.AddCommand(generateCmd())
	cmd.AddCommand(moduleMapCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(serveCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
