// Package cli provides CLI output formatting, display functions and exit codes.
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/Troge-dev/Transfory/internal/config"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitDataError       = 4
	ExitIOError         = 5
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	labelColor   = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// ExitCode maps an error to the process exit code for its category. A nil error
// exits successfully.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch errhandling.GetErrorCategory(err) {
	case errhandling.CategoryConfiguration:
		return ExitValidationError
	case errhandling.CategorySchema, errhandling.CategoryData,
		errhandling.CategoryNotFitted, errhandling.CategoryNotFound:
		return ExitDataError
	case errhandling.CategoryIO, errhandling.CategoryExport:
		return ExitIOError
	default:
		return ExitRuntimeError
	}
}

// PrintParseErrors prints parse errors.
func PrintParseErrors(w io.Writer, errors []config.ParseError, verbose bool) {
	errorColor.Fprintln(w, "✗ Parse errors:")
	for _, err := range errors {
		printSingleParseError(w, err, verbose)
	}
}

func printSingleParseError(w io.Writer, err config.ParseError, verbose bool) {
	location := formatErrorLocation(err.Path, err.Line, err.Column)

	if location != "" {
		fmt.Fprintf(w, "  %s: %s\n", labelColor.Sprint(location), err.Message)
	} else {
		fmt.Fprintf(w, "  %s\n", err.Message)
	}

	if verbose && err.Type != "" {
		fmt.Fprintf(w, "    Type: %s\n", err.Type)
	}
}

// formatErrorLocation formats the error location string (path:line:column).
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}

	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints schema validation errors, followed by a hint about
// --verbose unless quiet is set.
func PrintValidationErrors(w io.Writer, errors []config.ValidationError, verbose, quiet bool) {
	errorColor.Fprintln(w, "✗ Validation errors:")
	for _, err := range errors {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if verbose {
			printVerboseValidationError(w, path, err)
		} else {
			printCompactValidationError(w, path, err.Message)
		}
	}
	if !quiet && !verbose {
		fmt.Fprintln(w)
		warningColor.Fprintln(w, "Hint: Use --verbose for detailed error information")
	}
}

func printVerboseValidationError(w io.Writer, path string, err config.ValidationError) {
	fmt.Fprintf(w, "  %s:\n", labelColor.Sprint(path))
	fmt.Fprintf(w, "    Message: %s\n", err.Message)
	if err.Type != "" {
		fmt.Fprintf(w, "    Type: %s\n", err.Type)
	}
}

func printCompactValidationError(w io.Writer, path, message string) {
	shortMsg := message
	if len(shortMsg) > 80 {
		shortMsg = shortMsg[:77] + "..."
	}
	fmt.Fprintf(w, "  %s: %s\n", labelColor.Sprint(path), shortMsg)
}

// PrintError prints a failure line with the error's category.
func PrintError(w io.Writer, action string, err error) {
	errorColor.Fprintf(w, "✗ %s\n", action)
	fmt.Fprintf(w, "  Category: %s\n", errhandling.GetErrorCategory(err))
	fmt.Fprintf(w, "  Error: %v\n", err)
}
