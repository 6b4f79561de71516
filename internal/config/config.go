// Package config parses and validates recipe files (JSON/YAML) and converts them
// into recipe.Recipe values.
package config

import (
	"fmt"
	"strings"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/recipe"
)

// Load parses, validates and converts the recipe at path. Unreadable files are
// reported as IO errors; every other problem is a configuration error listing all
// parse or validation messages.
func Load(path string) (*recipe.Recipe, error) {
	result := ParseConfig(path)
	if err := ResultError(result); err != nil {
		return nil, err
	}
	r, err := ConvertToRecipe(result.Data)
	if err != nil {
		return nil, errhandling.NewConfigurationError("config", err.Error())
	}
	return r, nil
}

// ResultError turns a failed Result into a classified error. It returns nil for a
// valid result.
func ResultError(result *Result) error {
	if result.IsValid() {
		if result.Data == nil {
			return errhandling.NewConfigurationError("config", "configuration is empty")
		}
		return nil
	}

	for _, pe := range result.ParseErrors {
		if pe.Type == ErrorTypeIO {
			return errhandling.NewIOError("config", pe.Error(), nil)
		}
	}

	msgs := make([]string, 0, len(result.ParseErrors)+len(result.ValidationErrors))
	for _, e := range result.AllErrors() {
		msgs = append(msgs, e.Error())
	}
	return errhandling.NewConfigurationError("config", fmt.Sprintf("invalid recipe:\n  %s", strings.Join(msgs, "\n  ")))
}
