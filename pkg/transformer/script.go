package transformer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

// ScriptConfig represents the configuration of a ScriptTransformer.
type ScriptConfig struct {
	// Script is inline JavaScript defining transform(row).
	Script string `json:"script,omitempty"`
	// ScriptFile is a path to a JavaScript file defining transform(row).
	ScriptFile string `json:"script_file,omitempty"`
	// OnError is fail (default) or missing (the row keeps its values, new columns get missing).
	OnError string `json:"on_error,omitempty"`
	// LogFunc, when set, receives events from construction on without SetLogging.
	LogFunc LogFunc `json:"-"`
}

// ScriptTransformer applies a JavaScript function to every row. transform(row)
// receives the row as an object (missing values are null) and returns an object of
// column updates; unknown keys become new columns appended in first-seen order.
type ScriptTransformer struct {
	Base
	config      ScriptConfig
	runtime     *goja.Runtime // not goroutine-safe, one runtime per transformer
	transformFn goja.Callable
}

// NewScriptTransformerFromConfig loads and compiles the script.
func NewScriptTransformerFromConfig(config ScriptConfig) (*ScriptTransformer, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", "script cannot be empty")
	}
	if len(source) > MaxScriptLength {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(source), MaxScriptLength))
	}
	if config.OnError == "" {
		config.OnError = OnErrorFail
	}
	if config.OnError != OnErrorFail && config.OnError != OnErrorMissing {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("unsupported on_error %q", config.OnError))
	}

	vm := goja.New()
	if _, err := vm.RunString(source); err != nil {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("script compilation failed: %v", err))
	}
	transformVal := vm.Get("transform")
	if transformVal == nil || goja.IsUndefined(transformVal) {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", "transform function not found in script")
	}
	transformFn, ok := goja.AssertFunction(transformVal)
	if !ok {
		return nil, errhandling.NewConfigurationError("ScriptTransformer", "transform is not a function")
	}

	logger.Debug("script transformer initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", config.OnError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	cfg := map[string]interface{}{"on_error": config.OnError}
	if config.ScriptFile != "" {
		cfg["script_file"] = config.ScriptFile
	} else {
		cfg["script"] = config.Script
	}

	return &ScriptTransformer{
		Base:        NewBase("ScriptTransformer", cfg).withLogFunc(config.LogFunc),
		config:      config,
		runtime:     vm,
		transformFn: transformFn,
	}, nil
}

func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", errhandling.NewConfigurationError("ScriptTransformer", "cannot specify both 'script' and 'script_file'")
	}
	if config.ScriptFile == "" {
		return config.Script, nil
	}
	if err := pathutil.ValidateFilePath(config.ScriptFile); err != nil {
		return "", errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("invalid script_file: %v", err))
	}

	file, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err))
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file", slog.String("error", closeErr.Error()))
		}
	}()

	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", errhandling.NewConfigurationError("ScriptTransformer", fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err))
	}
	return string(content), nil
}

// ParseScriptConfig parses a raw configuration map into ScriptConfig.
func ParseScriptConfig(raw map[string]interface{}) (ScriptConfig, error) {
	var cfg ScriptConfig
	var err error
	if cfg.Script, err = rawString("ScriptTransformer", raw, "script", ""); err != nil {
		return cfg, err
	}
	if cfg.ScriptFile, err = rawString("ScriptTransformer", raw, "script_file", ""); err != nil {
		return cfg, err
	}
	if cfg.Script == "" && cfg.ScriptFile == "" {
		return cfg, errhandling.NewConfigurationError("ScriptTransformer", "either 'script' or 'script_file' is required")
	}
	if cfg.OnError, err = rawString("ScriptTransformer", raw, "on_error", OnErrorFail); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (s *ScriptTransformer) Kind() string { return "script" }

// Fit checks that the script runs on every row of data. It stores no parameters.
func (s *ScriptTransformer) Fit(data *table.Table, _ *table.Column) error {
	if _, _, err := s.apply(data); err != nil {
		return err
	}
	s.MarkFitted()
	s.Emit(EventFit, map[string]interface{}{"rows": data.NumRows()})
	return nil
}

// Transform applies the script to every row.
func (s *ScriptTransformer) Transform(data *table.Table) (*table.Table, error) {
	if err := s.RequireFitted("transform"); err != nil {
		return nil, err
	}
	out, updated, err := s.apply(data)
	if err != nil {
		return nil, err
	}

	var newColumns []string
	for _, name := range updated {
		if !data.Has(name) {
			newColumns = append(newColumns, name)
		}
	}
	s.Emit(EventTransform, map[string]interface{}{
		"columns":     updated,
		"new_columns": newColumns,
		"rows":        data.NumRows(),
	})
	return out, nil
}

// apply runs transform(row) over every row and returns the resulting table and the
// names of the columns the script wrote, in first-seen order.
func (s *ScriptTransformer) apply(data *table.Table) (*table.Table, []string, error) {
	records := data.Records()
	updates := make(map[string][]interface{})
	var order []string

	for i, record := range records {
		result, err := s.callTransform(record)
		if err != nil {
			if s.config.OnError == OnErrorMissing {
				logger.Warn("script failed on row, values left unchanged",
					slog.Int("row", i),
					slog.String("error", err.Error()),
				)
				continue
			}
			return nil, nil, errhandling.NewDataError(s.Name(), fmt.Sprintf("script failed at row %d", i), err)
		}
		for _, field := range result {
			key, value := field.name, field.value
			column, ok := updates[key]
			if !ok {
				column = make([]interface{}, len(records))
				if existing, found := data.Column(key); found {
					for r := range column {
						column[r] = existing.Value(r)
					}
				}
				updates[key] = column
				order = append(order, key)
			}
			v, err := normalizeResult(value)
			if err != nil {
				return nil, nil, errhandling.NewDataError(s.Name(), fmt.Sprintf("column %q at row %d", key, i), err)
			}
			column[i] = v
		}
	}

	b := table.NewBuilder(data)
	for _, name := range order {
		col, err := table.FromValues(name, updates[name]...)
		if err != nil {
			return nil, nil, errhandling.NewDataError(s.Name(), "building result column", err)
		}
		b.Set(col)
	}
	out, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return out, order, nil
}

// scriptField is one key of the object returned by transform(row).
type scriptField struct {
	name  string
	value interface{}
}

// callTransform runs transform(row) and returns the returned object's keys in
// property order, so new columns are appended deterministically.
func (s *ScriptTransformer) callTransform(record map[string]interface{}) ([]scriptField, error) {
	value, err := s.transformFn(goja.Undefined(), s.runtime.ToValue(record))
	if err != nil {
		return nil, err
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	obj, ok := value.(*goja.Object)
	if !ok || obj.ClassName() != "Object" {
		return nil, fmt.Errorf("transform must return an object, got %T", value.Export())
	}
	keys := obj.Keys()
	fields := make([]scriptField, len(keys))
	for i, key := range keys {
		fields[i] = scriptField{name: key, value: obj.Get(key).Export()}
	}
	return fields, nil
}

// FitTransform implements Transformer.
func (s *ScriptTransformer) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(s, data, target)
}

// MarshalParams implements Persistable. Scripts have no fitted parameters.
func (s *ScriptTransformer) MarshalParams() ([]byte, error) {
	return []byte("null"), nil
}

// UnmarshalParams implements Persistable.
func (s *ScriptTransformer) UnmarshalParams([]byte) error {
	s.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*ScriptTransformer)(nil)
