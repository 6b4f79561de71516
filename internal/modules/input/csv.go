package input

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// CSVConfig holds configuration for the CSV input module.
type CSVConfig struct {
	Path      string `json:"path"`
	Delimiter rune   `json:"delimiter"`
}

// CSVInput reads a table from a delimited text file with a header row.
type CSVInput struct {
	config CSVConfig
}

// Verify interface compliance at compile time
var _ Module = (*CSVInput)(nil)

// NewCSVInputFromConfig creates a CSV input module from a module configuration.
func NewCSVInputFromConfig(cfg *recipe.ModuleConfig) (*CSVInput, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	config, err := ParseCSVConfig(cfg.Config)
	if err != nil {
		return nil, err
	}
	return NewCSVInput(config)
}

// NewCSVInput creates a CSV input module.
func NewCSVInput(config CSVConfig) (*CSVInput, error) {
	if err := pathutil.ValidateDataPath(config.Path); err != nil {
		return nil, errhandling.NewConfigurationError("csv input", err.Error())
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &CSVInput{config: config}, nil
}

// ParseCSVConfig parses the raw module configuration.
func ParseCSVConfig(raw map[string]interface{}) (CSVConfig, error) {
	cfg := CSVConfig{Delimiter: ','}
	cfg.Path, _ = raw["path"].(string)
	delim, err := ParseDelimiter(raw["delimiter"])
	if err != nil {
		return cfg, errhandling.NewConfigurationError("csv input", err.Error())
	}
	if delim != 0 {
		cfg.Delimiter = delim
	}
	return cfg, nil
}

// ParseDelimiter accepts a single-character string. A nil value yields 0.
func ParseDelimiter(v interface{}) (rune, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok || utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %v", v)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Path returns the file the module reads.
func (m *CSVInput) Path() string { return m.config.Path }

// Read loads the file. A missing or unreadable file is an IO error; malformed CSV
// is a data error.
func (m *CSVInput) Read(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(m.config.Path)
	if err != nil {
		return nil, errhandling.NewIOError("csv input", fmt.Sprintf("opening %s", m.config.Path), err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Warn("failed to close input file", slog.String("path", m.config.Path), slog.String("error", closeErr.Error()))
		}
	}()

	t, err := table.ReadDelimited(f, m.config.Delimiter)
	if err != nil {
		return nil, errhandling.NewDataError("csv input", fmt.Sprintf("parsing %s", m.config.Path), err)
	}

	logger.Debug("csv input loaded",
		slog.String("path", m.config.Path),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumCols()),
	)
	return t, nil
}

// Close releases resources (no-op: the file is closed after each read).
func (m *CSVInput) Close() error {
	return nil
}
