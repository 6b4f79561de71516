package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/recipe"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

// PrintExecutionResult displays a fit or transform result. Failures go to stderr,
// the success summary to stdout.
func PrintExecutionResult(stdout, stderr io.Writer, result *recipe.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		errorColor.Fprintln(stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		errorColor.Fprintf(stderr, "✗ %s failed\n", modeTitle(result.Mode))
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(stderr, "  Stage: %s\n", result.Error.Module)
			}
			fmt.Fprintf(stderr, "  Category: %s\n", result.Error.Code)
			fmt.Fprintf(stderr, "  Error: %s\n", result.Error.Message)
		} else {
			fmt.Fprintf(stderr, "  Error: %v\n", err)
		}
		return
	}

	if opts.Quiet {
		return
	}
	successColor.Fprintf(stdout, "✓ %s completed\n", modeTitle(result.Mode))
	fmt.Fprintf(stdout, "  Pipeline: %s\n", result.PipelineName)
	fmt.Fprintf(stdout, "  Rows: %d → %d\n", result.RowsIn, result.RowsOut)
	fmt.Fprintf(stdout, "  Columns: %d → %d\n", result.ColumnsIn, result.ColumnsOut)
	fmt.Fprintf(stdout, "  Steps: %d\n", result.StepsExecuted)
	if result.StatePath != "" {
		fmt.Fprintf(stdout, "  State: %s\n", result.StatePath)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(stdout, "  Report: %s\n", result.ReportPath)
	}
	if opts.Verbose {
		fmt.Fprintf(stdout, "  Metrics: %s\n", logger.FormatMetricsHuman(logger.RunMetrics{
			TotalDuration: result.Duration(),
			RowsIn:        result.RowsIn,
			RowsOut:       result.RowsOut,
			ColumnsIn:     result.ColumnsIn,
			ColumnsOut:    result.ColumnsOut,
			StepsExecuted: result.StepsExecuted,
		}))
	}
	if opts.DryRun {
		warningColor.Fprintln(stdout, "ℹ Dry run: no output, state or report was written")
	}
}

func modeTitle(mode string) string {
	switch mode {
	case recipe.ModeFit:
		return "Fit"
	case recipe.ModeTransform:
		return "Transform"
	default:
		return "Execution"
	}
}

// PrintReport prints a rendered insight summary under a heading.
func PrintReport(w io.Writer, summary string) {
	fmt.Fprintln(w)
	boldColor.Fprintln(w, "Insight report")
	fmt.Fprintln(w, strings.TrimRight(summary, "\n"))
}

// PrintValid prints the success line of the validate command.
func PrintValid(w io.Writer, format string) {
	successColor.Fprintf(w, "✓ Recipe is valid (format: %s)\n", format)
}

// PrintRecipeSummary prints the recipe name, version and steps.
func PrintRecipeSummary(w io.Writer, r *recipe.Recipe) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "  Pipeline: %s\n", r.Name)
	if r.Version != "" {
		fmt.Fprintf(w, "  Version: %s\n", r.Version)
	}
	if r.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", r.Description)
	}
	if r.Target != "" {
		fmt.Fprintf(w, "  Target: %s\n", r.Target)
	}
	fmt.Fprintf(w, "  Steps (%d):\n", len(r.Steps))
	for i, s := range r.Steps {
		fmt.Fprintf(w, "    %d. %s (%s)\n", i+1, labelColor.Sprint(s.ID), s.Kind)
	}
}
