package transformer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Imputation strategies.
const (
	StrategyMean     = "mean"
	StrategyMedian   = "median"
	StrategyMode     = "mode"
	StrategyConstant = "constant"
	StrategyDrop     = "drop"
)

// ImputerConfig represents the configuration of an Imputer.
type ImputerConfig struct {
	// Strategy is one of mean, median, mode, constant, drop.
	Strategy string `json:"strategy"`
	// FillValue is required for the constant strategy (number or string).
	FillValue interface{} `json:"fill_value,omitempty"`
	// Columns restricts imputation to these columns. Empty means every eligible column.
	Columns []string `json:"columns,omitempty"`
	// LogFunc, when set, receives events from construction on without SetLogging.
	LogFunc LogFunc `json:"-"`
}

// fillValue is a per-column value stored at fit time.
type fillValue struct {
	Column      string  `json:"column"`
	Categorical bool    `json:"categorical,omitempty"`
	Num         float64 `json:"num,omitempty"`
	Str         string  `json:"str,omitempty"`
}

func (f fillValue) value() interface{} {
	if f.Categorical {
		return f.Str
	}
	return f.Num
}

// Imputer fills missing values with per-column statistics, or drops incomplete rows.
type Imputer struct {
	Base
	config ImputerConfig
	fills  []fillValue
}

// NewImputerFromConfig creates an Imputer. The strategy is validated here, never at fit.
func NewImputerFromConfig(config ImputerConfig) (*Imputer, error) {
	switch config.Strategy {
	case StrategyMean, StrategyMedian, StrategyMode, StrategyDrop:
	case StrategyConstant:
		if config.FillValue == nil {
			return nil, errhandling.NewConfigurationError("Imputer", "fill_value is required for the constant strategy")
		}
		if f, ok := asFloat(config.FillValue); ok {
			config.FillValue = f
		} else if _, ok := config.FillValue.(string); !ok {
			return nil, errhandling.NewConfigurationError("Imputer", fmt.Sprintf("fill_value must be a number or a string, got %T", config.FillValue))
		}
	default:
		return nil, errhandling.NewConfigurationError("Imputer", fmt.Sprintf("unsupported strategy %q", config.Strategy))
	}

	cfg := map[string]interface{}{"strategy": config.Strategy}
	if config.FillValue != nil {
		cfg["fill_value"] = config.FillValue
	}
	putColumns(cfg, config.Columns)

	logger.Debug("imputer initialized", "strategy", config.Strategy)

	return &Imputer{Base: NewBase("Imputer", cfg).withLogFunc(config.LogFunc), config: config}, nil
}

// NewImputer creates an Imputer with the given strategy and no fill value.
func NewImputer(strategy string) (*Imputer, error) {
	return NewImputerFromConfig(ImputerConfig{Strategy: strategy})
}

// ParseImputerConfig parses a raw configuration map into ImputerConfig.
func ParseImputerConfig(raw map[string]interface{}) (ImputerConfig, error) {
	var cfg ImputerConfig
	var err error
	if cfg.Strategy, err = rawString("Imputer", raw, "strategy", StrategyMean); err != nil {
		return cfg, err
	}
	cfg.FillValue = raw["fill_value"]
	if cfg.Columns, err = rawStrings("Imputer", raw, "columns"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (m *Imputer) Kind() string { return "imputer" }

// Fit computes a fill value for every eligible column with at least one missing value.
func (m *Imputer) Fit(data *table.Table, _ *table.Column) error {
	if m.config.Strategy == StrategyDrop {
		m.fills = nil
		m.MarkFitted()
		m.Emit(EventFit, map[string]interface{}{"strategy": StrategyDrop})
		return nil
	}

	kinds := []table.Kind{table.Numeric, table.Categorical}
	if m.config.Strategy == StrategyMean || m.config.Strategy == StrategyMedian {
		kinds = []table.Kind{table.Numeric}
	}
	columns, err := selectColumns(m.Name(), data, m.config.Columns, kinds...)
	if err != nil {
		return err
	}

	var fills []fillValue
	var skipped []string
	for _, name := range columns {
		col, _ := data.Column(name)
		if col.MissingCount() == 0 {
			continue
		}
		fill, ok, err := m.fillFor(col)
		if err != nil {
			return err
		}
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		fills = append(fills, fill)
	}

	m.fills = fills
	m.MarkFitted()

	details := map[string]interface{}{
		"strategy":    m.config.Strategy,
		"columns":     m.fittedColumns(),
		"fill_values": m.fillValues(),
	}
	if len(skipped) > 0 {
		details["skipped_columns"] = skipped
	}
	m.Emit(EventFit, details)
	return nil
}

// fillFor computes the fill value of one column. ok is false when the strategy does
// not apply to the column.
func (m *Imputer) fillFor(col *table.Column) (fill fillValue, ok bool, err error) {
	fill = fillValue{Column: col.Name(), Categorical: !col.IsNumeric()}

	switch m.config.Strategy {
	case StrategyMean, StrategyMedian:
		observed := col.ObservedFloats()
		if len(observed) == 0 {
			logger.Warn("column has no observed values, skipping", "column", col.Name(), "strategy", m.config.Strategy)
			return fill, false, nil
		}
		if m.config.Strategy == StrategyMean {
			fill.Num = mean(observed)
		} else {
			fill.Num = median(observed)
		}
	case StrategyMode:
		if col.IsNumeric() {
			observed := col.ObservedFloats()
			if len(observed) == 0 {
				return fill, false, errhandling.NewDataError(m.Name(), fmt.Sprintf("mode of column %q is undefined: no observed values", col.Name()), nil)
			}
			fill.Num = numericMode(observed)
		} else {
			observed := col.ObservedStrings()
			if len(observed) == 0 {
				return fill, false, errhandling.NewDataError(m.Name(), fmt.Sprintf("mode of column %q is undefined: no observed values", col.Name()), nil)
			}
			fill.Str = stringMode(observed)
		}
	case StrategyConstant:
		switch v := m.config.FillValue.(type) {
		case float64:
			if col.IsNumeric() {
				fill.Num = v
			} else {
				fill.Str = strconv.FormatFloat(v, 'g', -1, 64)
			}
		case string:
			if col.IsNumeric() {
				return fill, false, nil
			}
			fill.Str = v
		}
	}
	return fill, true, nil
}

// Transform fills missing values of the fitted columns, or drops incomplete rows.
func (m *Imputer) Transform(data *table.Table) (*table.Table, error) {
	if err := m.RequireFitted("transform"); err != nil {
		return nil, err
	}

	if m.config.Strategy == StrategyDrop {
		rows := data.CompleteRows()
		out := data.Take(rows)
		m.Emit(EventTransform, map[string]interface{}{
			"strategy":     StrategyDrop,
			"rows_dropped": data.NumRows() - len(rows),
		})
		return out, nil
	}

	b := table.NewBuilder(data)
	filled := 0
	for _, fill := range m.fills {
		kind := table.Numeric
		if fill.Categorical {
			kind = table.Categorical
		}
		col, err := fittedColumn(m.Name(), data, fill.Column, kind)
		if err != nil {
			return nil, err
		}
		n := col.MissingCount()
		if n == 0 {
			continue
		}
		filled += n
		b.Set(fillColumn(col, fill))
	}

	out, err := b.Build()
	if err != nil {
		return nil, err
	}

	m.Emit(EventTransform, map[string]interface{}{
		"strategy":      m.config.Strategy,
		"columns":       m.fittedColumns(),
		"values_filled": filled,
	})
	return out, nil
}

func fillColumn(col *table.Column, fill fillValue) *table.Column {
	if !fill.Categorical {
		values := col.Floats()
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = fill.Num
			}
		}
		return table.NewNumeric(col.Name(), values)
	}
	values := make([]string, col.Len())
	for i := range values {
		if col.IsMissing(i) {
			values[i] = fill.Str
		} else {
			values[i] = col.Str(i)
		}
	}
	return table.NewCategorical(col.Name(), values, nil)
}

// FitTransform implements Transformer.
func (m *Imputer) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(m, data, target)
}

// FillValues returns the fitted fill value per column.
func (m *Imputer) FillValues() map[string]interface{} {
	return m.fillValues()
}

func (m *Imputer) fillValues() map[string]interface{} {
	out := make(map[string]interface{}, len(m.fills))
	for _, f := range m.fills {
		out[f.Column] = f.value()
	}
	return out
}

func (m *Imputer) fittedColumns() []string {
	names := make([]string, len(m.fills))
	for i, f := range m.fills {
		names[i] = f.Column
	}
	return names
}

// MarshalParams implements Persistable.
func (m *Imputer) MarshalParams() ([]byte, error) {
	return json.Marshal(m.fills)
}

// UnmarshalParams implements Persistable.
func (m *Imputer) UnmarshalParams(data []byte) error {
	var fills []fillValue
	if err := json.Unmarshal(data, &fills); err != nil {
		return errhandling.NewIOError(m.Name(), "decoding fitted parameters", err)
	}
	m.fills = fills
	m.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*Imputer)(nil)
