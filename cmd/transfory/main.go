// Package main provides the CLI entry point for Transfory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Troge-dev/Transfory/internal/cli"
	"github.com/Troge-dev/Transfory/internal/config"
	"github.com/Troge-dev/Transfory/internal/factory"
	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/persistence"
	"github.com/Troge-dev/Transfory/internal/runtime"
	"github.com/Troge-dev/Transfory/pkg/recipe"
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries the process exit code out of a command. The message has
// already been printed when it is returned.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := &app{stdout: stdout, stderr: stderr}
	root := app.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	logger.CloseLogFile()
	if err == nil {
		return cli.ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return cli.ExitRuntimeError
}

// app holds flag values and output streams for one CLI invocation.
type app struct {
	stdout, stderr io.Writer

	// Global flags
	verbose    bool
	quiet      bool
	configFile string

	// Fit and transform flags
	dryRun bool

	settings *settings
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transfory",
		Short: "Transfory - Explainable tabular preprocessing",
		Long: `Transfory fits and applies tabular preprocessing recipes.

A recipe (JSON/YAML) names an input table, an ordered list of transformer
steps (imputer, encoder, scaler, feature_generator, outlier, expression,
script), an output and an insight report. "fit" learns the step parameters
and saves them; "transform" reloads them and applies them to new data.

Defaults for logging and the state directory come from flags, TRANSFORY_*
environment variables (TRANSFORY_LOG_LEVEL, TRANSFORY_STATE_DIR, ...) and an
optional transfory.yaml settings file.

Examples:
  # Validate a recipe
  transfory validate recipe.yaml

  # Fit on training data and save the fitted state
  transfory fit recipe.yaml

  # Apply the saved state to new data
  transfory transform recipe.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(cmd, a.configFile)
			if err != nil {
				cli.PrintError(a.stderr, "Invalid settings", err)
				return &exitError{code: cli.ExitCode(err), err: err}
			}
			if err := s.applyLogging(a.verbose, a.quiet); err != nil {
				cli.PrintError(a.stderr, "Invalid settings", err)
				return &exitError{code: cli.ExitCode(err), err: err}
			}
			a.settings = s
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	flags.StringVar(&a.configFile, "config", "", "Settings file (default ./transfory.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Console log format: human or json")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.String("state-dir", "", "Directory for fitted state when a recipe has no state path")

	root.AddCommand(a.validateCmd(), a.fitCmd(), a.transformCmd(), a.versionCmd())
	return root
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <recipe-file>",
		Short: "Validate a recipe file",
		Long: `Validate a recipe file against the schema and check every step's
configuration.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Recipe is valid
  1 - Validation errors (schema violations or invalid step settings)
  2 - Parse errors (invalid JSON/YAML syntax)
  5 - The file could not be read`,
		Args: cobra.ExactArgs(1),
		RunE: a.runValidate,
	}
}

func (a *app) fitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit <recipe-file>",
		Short: "Fit a recipe on its input and save the fitted state",
		Long: `Read the recipe's input table, fit every step in order, write the
transformed table and the insight report, and save the fitted parameters.

Exit codes:
  0 - Success
  1 - Invalid recipe or step configuration
  2 - Parse errors
  3 - Unexpected runtime errors
  4 - Data errors (missing columns, undefined statistics, failing expressions)
  5 - File errors (input, output, state or report)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRecipe(cmd.Context(), args[0], recipe.ModeFit)
		},
	}
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Run the pipeline without writing output, state or report")
	return cmd
}

func (a *app) transformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform <recipe-file>",
		Short: "Apply saved fitted state to the recipe's input",
		Long: `Load the state saved by "fit" for this recipe and apply it to the
recipe's input table without refitting.

Exit codes are the same as for "fit"; a missing state file exits with 4.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRecipe(cmd.Context(), args[0], recipe.ModeTransform)
		},
	}
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Run the pipeline without writing output or report")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

func (a *app) runValidate(_ *cobra.Command, args []string) error {
	path := args[0]
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating recipe: %s\n", path)
	}

	r, result, err := a.loadRecipe(path)
	if err != nil {
		return err
	}
	if _, err := factory.CreatePipeline(r); err != nil {
		cli.PrintError(a.stderr, "Invalid step configuration", err)
		return &exitError{code: cli.ExitCode(err), err: err}
	}

	if !a.quiet {
		cli.PrintValid(a.stdout, result.Format)
		if a.verbose {
			cli.PrintRecipeSummary(a.stdout, r)
		}
	}
	return nil
}

// loadRecipe parses, validates and converts a recipe, printing any problem. The
// returned error is an *exitError.
func (a *app) loadRecipe(path string) (*recipe.Recipe, *config.Result, error) {
	result := config.ParseConfig(path)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		code := cli.ExitParseError
		if result.ParseErrors[0].Type == config.ErrorTypeIO {
			code = cli.ExitIOError
		}
		return nil, nil, &exitError{code: code, err: config.ResultError(result)}
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		return nil, nil, &exitError{code: cli.ExitValidationError, err: config.ResultError(result)}
	}
	if err := config.ResultError(result); err != nil {
		cli.PrintError(a.stderr, "Invalid recipe", err)
		return nil, nil, &exitError{code: cli.ExitCode(err), err: err}
	}

	r, err := config.ConvertToRecipe(result.Data)
	if err != nil {
		cli.PrintError(a.stderr, "Failed to convert recipe", err)
		return nil, nil, &exitError{code: cli.ExitValidationError, err: err}
	}
	return r, result, nil
}

func (a *app) runRecipe(ctx context.Context, path, mode string) error {
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Loading recipe: %s\n", path)
	}
	r, _, err := a.loadRecipe(path)
	if err != nil {
		return err
	}
	if a.verbose {
		cli.PrintRecipeSummary(a.stdout, r)
	}

	store := persistence.NewStateStore(a.settings.StateDir)
	executor, err := runtime.NewExecutorForRecipe(r, store, a.dryRun)
	if err != nil {
		cli.PrintError(a.stderr, "Failed to prepare recipe", err)
		return &exitError{code: cli.ExitCode(err), err: err}
	}

	var result *recipe.ExecutionResult
	if mode == recipe.ModeFit {
		result, err = executor.Fit(ctx, r)
	} else {
		result, err = executor.Transform(ctx, r)
	}
	cli.PrintExecutionResult(a.stdout, a.stderr, result, err, cli.OutputOptions{
		Verbose: a.verbose,
		Quiet:   a.quiet,
		DryRun:  a.dryRun,
	})
	if err != nil {
		return &exitError{code: cli.ExitCode(err), err: err}
	}

	if format := summaryFormat(r); format != recipe.SummaryNone && !a.quiet {
		summary, err := executor.Reporter().Summarize(format)
		if err != nil {
			cli.PrintError(a.stderr, "Failed to render insight report", err)
			return &exitError{code: cli.ExitCode(err), err: err}
		}
		cli.PrintReport(a.stdout, summary)
	}
	return nil
}

// summaryFormat is the recipe's report summary mode, text when unset.
func summaryFormat(r *recipe.Recipe) string {
	if r.Report == nil || r.Report.Summary == "" {
		return recipe.SummaryText
	}
	return strings.ToLower(r.Report.Summary)
}
