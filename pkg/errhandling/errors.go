// Package errhandling provides error types and classification for transformers,
// pipelines and the insight reporter.
// Every error produced by this module either is a *ClassifiedError or wraps one,
// so callers can match categories with errors.Is against the sentinel values.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryConfiguration represents invalid construction parameters
	// (unknown strategy or method, missing fill value, degree < 1, duplicate step ids).
	CategoryConfiguration ErrorCategory = "configuration"

	// CategoryNotFitted represents a transform attempted before a successful fit.
	CategoryNotFitted ErrorCategory = "not_fitted"

	// CategoryNotFound represents a lookup of an unknown step id or resource.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryExport represents a failed report export (no events, unsupported format).
	CategoryExport ErrorCategory = "export"

	// CategorySchema represents a table whose columns do not match what was fitted.
	CategorySchema ErrorCategory = "schema"

	// CategoryData represents values a statistic or expression cannot be computed on.
	CategoryData ErrorCategory = "data"

	// CategoryIO represents file system and encoding failures.
	CategoryIO ErrorCategory = "io"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// Sentinel errors, one per category. A ClassifiedError matches the sentinel of its
// category with errors.Is.
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrNotFitted     = errors.New("not fitted")
	ErrNotFound      = errors.New("not found")
	ErrExport        = errors.New("export failed")
	ErrSchema        = errors.New("schema mismatch")
	ErrData          = errors.New("invalid data")
	ErrIO            = errors.New("i/o failure")
)

var sentinels = map[ErrorCategory]error{
	CategoryConfiguration: ErrConfiguration,
	CategoryNotFitted:     ErrNotFitted,
	CategoryNotFound:      ErrNotFound,
	CategoryExport:        ErrExport,
	CategorySchema:        ErrSchema,
	CategoryData:          ErrData,
	CategoryIO:            ErrIO,
}

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Component names what raised the error (a transformer name, a step id, "reporter").
	Component string

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error, if any.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := e.Message
	if e.OriginalErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.OriginalErr)
	}
	if e.Component != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Category, e.Component, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Category, msg)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the sentinel of the error's category.
func (e *ClassifiedError) Is(target error) bool {
	sentinel, ok := sentinels[e.Category]
	return ok && target == sentinel
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is (the outermost one found in the chain).
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	for category, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return &ClassifiedError{Category: category, Message: err.Error(), OriginalErr: err}
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryUnknown,
			Message:     "operation canceled",
			OriginalErr: err,
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Message:     fmt.Sprintf("%s %s", pathErr.Op, pathErr.Path),
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsUserError reports whether the error stems from caller input (configuration,
// schema or lookup mistakes) rather than from the data or the environment.
func IsUserError(err error) bool {
	switch GetErrorCategory(err) {
	case CategoryConfiguration, CategorySchema, CategoryNotFound, CategoryNotFitted:
		return true
	default:
		return false
	}
}

// =============================================================================
// Constructors
// =============================================================================

// NewConfigurationError creates an error for invalid construction parameters.
func NewConfigurationError(component, message string) *ClassifiedError {
	return &ClassifiedError{Category: CategoryConfiguration, Component: component, Message: message}
}

// NewNotFittedError creates an error for an operation that requires a fitted component.
func NewNotFittedError(component, operation string) *ClassifiedError {
	return &ClassifiedError{
		Category:  CategoryNotFitted,
		Component: component,
		Message:   fmt.Sprintf("%s called before fit", operation),
	}
}

// NewNotFoundError creates an error for an unknown identifier.
func NewNotFoundError(component, what, id string) *ClassifiedError {
	return &ClassifiedError{
		Category:  CategoryNotFound,
		Component: component,
		Message:   fmt.Sprintf("%s %q not found", what, id),
	}
}

// NewExportError creates an error for a failed export. err may be nil.
func NewExportError(message string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryExport, Component: "reporter", Message: message, OriginalErr: err}
}

// NewSchemaError creates an error for a table that does not match fitted columns.
func NewSchemaError(component, message string) *ClassifiedError {
	return &ClassifiedError{Category: CategorySchema, Component: component, Message: message}
}

// NewDataError creates an error for values a computation cannot handle. err may be nil.
func NewDataError(component, message string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryData, Component: component, Message: message, OriginalErr: err}
}

// NewIOError creates an error for a file system or encoding failure.
func NewIOError(component, message string, err error) *ClassifiedError {
	return &ClassifiedError{Category: CategoryIO, Component: component, Message: message, OriginalErr: err}
}
