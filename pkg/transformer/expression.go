package transformer

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Row evaluation error policies.
const (
	OnErrorFail    = "fail"
	OnErrorMissing = "missing"
)

// ExpressionConfig represents the configuration of an ExpressionFeature.
type ExpressionConfig struct {
	// Column is the name of the produced column; an existing column is replaced.
	Column string `json:"column"`
	// Expression is evaluated once per row with column names bound to row values.
	Expression string `json:"expression"`
	// OnError is fail (default) or missing (the row gets a missing value).
	OnError string `json:"on_error,omitempty"`
	// LogFunc is attached at construction.
	LogFunc LogFunc `json:"-"`
}

// ExpressionFeature derives one column from an expression over the other columns.
// Numeric and boolean results give a numeric column (booleans as 0/1); any string
// result gives a categorical column; nil gives a missing value.
type ExpressionFeature struct {
	Base
	config  ExpressionConfig
	program *vm.Program
}

// NewExpressionFeatureFromConfig compiles the expression and creates the transformer.
func NewExpressionFeatureFromConfig(config ExpressionConfig) (*ExpressionFeature, error) {
	if config.Column == "" {
		return nil, errhandling.NewConfigurationError("ExpressionFeature", "'column' is required")
	}
	if config.Expression == "" {
		return nil, errhandling.NewConfigurationError("ExpressionFeature", "'expression' is required")
	}
	if config.OnError == "" {
		config.OnError = OnErrorFail
	}
	if config.OnError != OnErrorFail && config.OnError != OnErrorMissing {
		return nil, errhandling.NewConfigurationError("ExpressionFeature", fmt.Sprintf("unsupported on_error %q", config.OnError))
	}

	program, err := expr.Compile(config.Expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, errhandling.NewConfigurationError("ExpressionFeature", fmt.Sprintf("invalid expression: %v", err))
	}

	logger.Debug("expression feature initialized",
		slog.String("column", config.Column),
		slog.String("expression", config.Expression),
	)

	cfg := map[string]interface{}{
		"column":     config.Column,
		"expression": config.Expression,
		"on_error":   config.OnError,
	}
	return &ExpressionFeature{Base: NewBase("ExpressionFeature", cfg).withLogFunc(config.LogFunc), config: config, program: program}, nil
}

// ParseExpressionConfig parses a raw configuration map into ExpressionConfig.
func ParseExpressionConfig(raw map[string]interface{}) (ExpressionConfig, error) {
	var cfg ExpressionConfig
	var err error
	if cfg.Column, err = rawString("ExpressionFeature", raw, "column", ""); err != nil {
		return cfg, err
	}
	if cfg.Expression, err = rawString("ExpressionFeature", raw, "expression", ""); err != nil {
		return cfg, err
	}
	if cfg.OnError, err = rawString("ExpressionFeature", raw, "on_error", OnErrorFail); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (x *ExpressionFeature) Kind() string { return "expression" }

// Fit checks that the expression evaluates on every row of data. It stores no
// parameters.
func (x *ExpressionFeature) Fit(data *table.Table, _ *table.Column) error {
	if _, err := x.evaluate(data); err != nil {
		return err
	}
	x.MarkFitted()
	x.Emit(EventFit, map[string]interface{}{"column": x.config.Column, "rows": data.NumRows()})
	return nil
}

// Transform appends (or replaces) the derived column.
func (x *ExpressionFeature) Transform(data *table.Table) (*table.Table, error) {
	if err := x.RequireFitted("transform"); err != nil {
		return nil, err
	}
	col, err := x.evaluate(data)
	if err != nil {
		return nil, err
	}
	out, err := table.NewBuilder(data).Set(col).Build()
	if err != nil {
		return nil, err
	}
	x.Emit(EventTransform, map[string]interface{}{"column": x.config.Column, "rows": data.NumRows()})
	return out, nil
}

func (x *ExpressionFeature) evaluate(data *table.Table) (*table.Column, error) {
	records := data.Records()
	values := make([]interface{}, len(records))
	for i, record := range records {
		output, err := expr.Run(x.program, record)
		if err == nil {
			values[i], err = normalizeResult(output)
		}
		if err != nil {
			if x.config.OnError == OnErrorMissing {
				logger.Warn("expression evaluation failed, value set to missing",
					slog.Int("row", i),
					slog.String("column", x.config.Column),
					slog.String("error", err.Error()),
				)
				continue
			}
			return nil, errhandling.NewDataError(x.Name(), fmt.Sprintf("evaluating %q at row %d", x.config.Expression, i), err)
		}
	}
	col, err := table.FromValues(x.config.Column, values...)
	if err != nil {
		return nil, errhandling.NewDataError(x.Name(), "building result column", err)
	}
	return col, nil
}

// normalizeResult maps an evaluated value onto a cell value accepted by
// table.FromValues.
func normalizeResult(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, string:
		return x, nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	}
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	return nil, fmt.Errorf("unsupported result type %T", v)
}

// FitTransform implements Transformer.
func (x *ExpressionFeature) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(x, data, target)
}

// MarshalParams implements Persistable. The expression has no fitted parameters.
func (x *ExpressionFeature) MarshalParams() ([]byte, error) {
	return []byte("null"), nil
}

// UnmarshalParams implements Persistable.
func (x *ExpressionFeature) UnmarshalParams([]byte) error {
	x.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*ExpressionFeature)(nil)
