// Package recipe provides the declarative description of a preprocessing run:
// where the table comes from, which transformer steps to apply, where the result
// goes, and how the insight report and fitted state are kept.
//
// Recipes are produced by the config parser and consumed by the factory and the
// runtime executor.
package recipe

import (
	"fmt"
	"time"
)

// Recipe is a complete preprocessing run configuration.
type Recipe struct {
	// Name is the human-readable name of the pipeline
	Name string `json:"name"`

	// Description provides additional context about the recipe
	Description string `json:"description,omitempty"`

	// Version is the recipe format version
	Version string `json:"version"`

	// Input defines where the table is read from
	Input *ModuleConfig `json:"input"`

	// Target names a column kept out of the transformers and passed to Fit as the
	// target. It is re-attached to the output when the row count is unchanged.
	Target string `json:"target,omitempty"`

	// Steps is the ordered list of transformer steps
	Steps []StepConfig `json:"steps"`

	// Output defines where the transformed table is written
	Output *ModuleConfig `json:"output,omitempty"`

	// Report configures the insight report
	Report *ReportConfig `json:"report,omitempty"`

	// State configures where fitted parameters are saved and loaded
	State *StateConfig `json:"state,omitempty"`
}

// StepConfig describes one transformer step.
type StepConfig struct {
	// ID uniquely identifies the step within the recipe
	ID string `json:"id"`

	// Kind selects the transformer (e.g., "imputer", "encoder", "scaler")
	Kind string `json:"kind"`

	// Config contains the transformer-specific configuration
	Config map[string]interface{} `json:"config,omitempty"`
}

// ModuleConfig represents the configuration of an input or output module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "csv", "json")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// Report summary modes.
const (
	SummaryText  = "text"
	SummaryTable = "table"
	SummaryNone  = "none"
)

// ReportConfig configures the insight report.
type ReportConfig struct {
	// Summary is how the report is printed: "text", "table" or "none"
	Summary string `json:"summary,omitempty"`

	// Path is where the event log is exported; empty disables the export
	Path string `json:"path,omitempty"`

	// Format is the export format, "json" or "csv"
	Format string `json:"format,omitempty"`
}

// StateConfig configures fitted-state persistence.
type StateConfig struct {
	// Path is the state file written after fit and read before transform
	Path string `json:"path"`
}

// StepIDs returns the step ids in declared order.
func (r *Recipe) StepIDs() []string {
	ids := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Execution modes.
const (
	ModeFit       = "fit"
	ModeTransform = "transform"
)

// Execution statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExecutionResult represents the result of a recipe execution.
type ExecutionResult struct {
	// PipelineName is the name of the executed recipe
	PipelineName string `json:"pipelineName"`

	// Mode is "fit" or "transform"
	Mode string `json:"mode"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RowsIn and ColumnsIn describe the table read from the input
	RowsIn    int `json:"rowsIn"`
	ColumnsIn int `json:"columnsIn"`

	// RowsOut and ColumnsOut describe the table produced by the pipeline
	RowsOut    int `json:"rowsOut"`
	ColumnsOut int `json:"columnsOut"`

	// StepsExecuted is the number of pipeline steps
	StepsExecuted int `json:"stepsExecuted"`

	// StatePath is set when fitted state was saved or loaded
	StatePath string `json:"statePath,omitempty"`

	// ReportPath is set when the insight report was exported
	ReportPath string `json:"reportPath,omitempty"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// Duration returns the wall time of the execution.
func (r *ExecutionResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error category (e.g., "schema", "not_fitted")
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the stage or step where the error occurred
	Module string `json:"module,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements error.
func (e *ExecutionError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Module, e.Message)
}
