package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

// TestErrorCategory tests error category constants and their string values.
func TestErrorCategory(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryConfiguration, "configuration"},
		{CategoryNotFitted, "not_fitted"},
		{CategoryNotFound, "not_found"},
		{CategoryExport, "export"},
		{CategorySchema, "schema"},
		{CategoryData, "data"},
		{CategoryIO, "io"},
		{CategoryUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.category) != tt.expected {
				t.Errorf("ErrorCategory = %v, want %v", tt.category, tt.expected)
			}
		})
	}
}

func TestClassifiedError(t *testing.T) {
	t.Run("Error message formatting", func(t *testing.T) {
		err := NewConfigurationError("Imputer", `unsupported strategy "avg"`)
		got := err.Error()
		if !strings.Contains(got, "configuration") || !strings.Contains(got, "Imputer") || !strings.Contains(got, "avg") {
			t.Errorf("Error() = %q, want category, component and message", got)
		}
	})

	t.Run("Unwrap returns original error", func(t *testing.T) {
		original := errors.New("disk full")
		err := NewExportError("writing report", original)
		if err.Unwrap() != original {
			t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), original)
		}
		if !errors.Is(err, original) {
			t.Error("errors.Is should find the original error")
		}
	})

	t.Run("Is matches category sentinel through wrapping", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			sentinel error
		}{
			{"configuration", NewConfigurationError("Scaler", "bad"), ErrConfiguration},
			{"not fitted", NewNotFittedError("Scaler", "transform"), ErrNotFitted},
			{"not found", NewNotFoundError("pipeline", "step", "x"), ErrNotFound},
			{"export", NewExportError("no events", nil), ErrExport},
			{"schema", NewSchemaError("Encoder", "missing column"), ErrSchema},
			{"data", NewDataError("Imputer", "empty", nil), ErrData},
			{"io", NewIOError("csv", "read", nil), ErrIO},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				wrapped := fmt.Errorf("step %q: %w", "s1", tt.err)
				if !errors.Is(wrapped, tt.sentinel) {
					t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
				}
				if errors.Is(wrapped, ErrConfiguration) && tt.sentinel != ErrConfiguration {
					t.Errorf("%v should not match ErrConfiguration", wrapped)
				}
			})
		}
	})
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"nil", nil, CategoryUnknown},
		{"classified", NewNotFittedError("Encoder", "transform"), CategoryNotFitted},
		{"wrapped classified", fmt.Errorf("outer: %w", NewDataError("x", "y", nil)), CategoryData},
		{"bare sentinel", fmt.Errorf("ctx: %w", ErrNotFound), CategoryNotFound},
		{"path error", &fs.PathError{Op: "open", Path: "/nope", Err: fs.ErrNotExist}, CategoryIO},
		{"canceled", context.Canceled, CategoryUnknown},
		{"plain", errors.New("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err).Category; got != tt.expected {
				t.Errorf("ClassifyError().Category = %v, want %v", got, tt.expected)
			}
			if got := GetErrorCategory(tt.err); got != tt.expected {
				t.Errorf("GetErrorCategory() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsUserError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{NewConfigurationError("a", "b"), true},
		{NewSchemaError("a", "b"), true},
		{NewNotFoundError("a", "step", "b"), true},
		{NewNotFittedError("a", "transform"), true},
		{NewDataError("a", "b", nil), false},
		{NewExportError("b", nil), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsUserError(tt.err); got != tt.expected {
			t.Errorf("IsUserError(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
