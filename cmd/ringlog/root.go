package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeCheckFailed indicates that check found ordering or format
	// violations.
	ExitCodeCheckFailed = 2
)

// newRootCmd builds the ringlog command tree.
func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "ringlog",
		Short: "Exercise and inspect the ringlog async logging pipeline",
		Long: `ringlog drives the asynchronous logging pipeline from the command line.

It can load a configuration, run concurrent producers against it and verify
that the JSON output it produced is complete and correctly ordered.`,
		Version: version,
		// SilenceUsage keeps usage text out of runtime errors.
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "ringlog version %s\n" .Version}}`)
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"configuration file (RINGLOG_* environment variables override it)")

	root.AddCommand(newBenchCmd(&cfgPath))
	root.AddCommand(newCheckCmd())
	root.AddCommand(newConfigCmd(&cfgPath))
	return root
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return exitCode(err)
	}
	return ExitCodeSuccess
}

// checkFailedError reports violations found by check.
type checkFailedError struct {
	violations int
}

func (e *checkFailedError) Error() string {
	return fmt.Sprintf("check failed: %d violations", e.violations)
}

func exitCode(err error) int {
	var checkErr *checkFailedError
	if errors.As(err, &checkErr) {
		return ExitCodeCheckFailed
	}
	return ExitCodeError
}
