/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/convguard/pkg/buildinfo"
	"github.com/fulmenhq/convguard/pkg/exitcode"
	"github.com/fulmenhq/convguard/pkg/logger"
)

// exitError carries a process exit code out of a command. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return exitcode.String(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fatal(err error) error {
	return &exitError{code: exitcode.Fatal, err: err}
}

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convguard [flags] <path>...",
		Short: "Detect implicit type conversion hazards in JavaScript, PHP and Python",
		Long: `convguard finds places where JavaScript and PHP code relies on implicit type
conversion, with particular attention to values that originate from external input.
Python files are delegated to bandit, flake8, pylint and pyre when enabled.

Examples:
   convguard src/                               # Analyze a tree, print findings
   convguard --report-file out.sarif src/       # Also write a SARIF report
   convguard --language php templates/          # Force PHP mode
   convguard --use-flake8 --use-bandit app.py   # Python through external linters
   convguard rules                              # List rule ids and severities`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
		RunE: runAnalyze,
	}

	// Global flags
	cmd.PersistentFlags().String("log-level", "warn", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file (rotated)")
	cmd.PersistentFlags().String("config", "", "Configuration file (skips the default search paths)")

	addAnalyzeFlags(cmd)

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("convguard {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newRulesCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Flush()

	return run(ctx, rootCmd, os.Args[1:], os.Stderr)
}

func run(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			_, _ = fmt.Fprintf(stderr, "convguard: %v\n", ee.err)
		}
		return ee.code
	}
	// Flag parsing and unknown commands.
	_, _ = fmt.Fprintf(stderr, "convguard: %v\n", err)
	return exitcode.Fatal
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	logFile, _ := cmd.Flags().GetString("log-file")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "convguard",
		LogFile:   logFile,
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.Fatal)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}
