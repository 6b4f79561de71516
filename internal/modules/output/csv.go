package output

import (
	"context"
	"os"

	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// CSVConfig holds configuration for the CSV output module.
type CSVConfig struct {
	Path      string `json:"path"`
	Delimiter rune   `json:"delimiter"`
}

// CSVOutput writes a table as delimited text with a header row. Missing values
// are written as empty cells.
type CSVOutput struct {
	config CSVConfig
}

// Verify interface compliance at compile time
var _ Module = (*CSVOutput)(nil)

// NewCSVOutputFromConfig creates a CSV output module from a module configuration.
func NewCSVOutputFromConfig(cfg *recipe.ModuleConfig) (*CSVOutput, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	path, _ := cfg.Config["path"].(string)
	delim, err := input.ParseDelimiter(cfg.Config["delimiter"])
	if err != nil {
		return nil, errhandling.NewConfigurationError("csv output", err.Error())
	}
	return NewCSVOutput(CSVConfig{Path: path, Delimiter: delim})
}

// NewCSVOutput creates a CSV output module.
func NewCSVOutput(config CSVConfig) (*CSVOutput, error) {
	if err := pathutil.ValidateDataPath(config.Path); err != nil {
		return nil, errhandling.NewConfigurationError("csv output", err.Error())
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &CSVOutput{config: config}, nil
}

// Path returns the destination file.
func (m *CSVOutput) Path() string { return m.config.Path }

// Write writes t to the destination file, replacing any previous content.
func (m *CSVOutput) Write(ctx context.Context, t *table.Table) error {
	err := writeFile(ctx, "csv output", m.config.Path, func(f *os.File) error {
		return t.WriteDelimited(f, m.config.Delimiter)
	})
	if err != nil {
		return err
	}
	logWritten("csv", m.config.Path, t)
	return nil
}

// Close releases resources (no-op).
func (m *CSVOutput) Close() error {
	return nil
}
