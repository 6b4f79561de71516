package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// JSONConfig holds configuration for the JSON output module.
type JSONConfig struct {
	Path string `json:"path"`
	// Indent is the number of spaces per nesting level; 0 writes compact JSON.
	Indent int `json:"indent"`
}

// JSONOutput writes a table as a JSON array of row objects. Missing values are
// written as null.
type JSONOutput struct {
	config JSONConfig
}

// Verify interface compliance at compile time
var _ Module = (*JSONOutput)(nil)

// NewJSONOutputFromConfig creates a JSON output module from a module configuration.
func NewJSONOutputFromConfig(cfg *recipe.ModuleConfig) (*JSONOutput, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	config := JSONConfig{}
	config.Path, _ = cfg.Config["path"].(string)
	switch v := cfg.Config["indent"].(type) {
	case nil:
	case int:
		config.Indent = v
	case float64:
		config.Indent = int(v)
	default:
		return nil, errhandling.NewConfigurationError("json output", fmt.Sprintf("indent must be an integer, got %v", v))
	}
	return NewJSONOutput(config)
}

// NewJSONOutput creates a JSON output module.
func NewJSONOutput(config JSONConfig) (*JSONOutput, error) {
	if err := pathutil.ValidateDataPath(config.Path); err != nil {
		return nil, errhandling.NewConfigurationError("json output", err.Error())
	}
	if config.Indent < 0 {
		return nil, errhandling.NewConfigurationError("json output", "indent cannot be negative")
	}
	return &JSONOutput{config: config}, nil
}

// Path returns the destination file.
func (m *JSONOutput) Path() string { return m.config.Path }

// Write writes t to the destination file, replacing any previous content.
func (m *JSONOutput) Write(ctx context.Context, t *table.Table) error {
	err := writeFile(ctx, "json output", m.config.Path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		if m.config.Indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", m.config.Indent))
		}
		return enc.Encode(t.Records())
	})
	if err != nil {
		return err
	}
	logWritten("json", m.config.Path, t)
	return nil
}

// Close releases resources (no-op).
func (m *JSONOutput) Close() error {
	return nil
}
