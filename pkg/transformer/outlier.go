package transformer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Outlier detection methods.
const (
	OutlierIQR    = "iqr"
	OutlierZScore = "zscore"
)

// OutlierConfig represents the configuration of an OutlierHandler.
type OutlierConfig struct {
	// Method is iqr (bounds q1 - f*iqr, q3 + f*iqr) or zscore (mean -/+ f*std).
	Method string `json:"method"`
	// Factor scales the bound width. Defaults to 1.5 for iqr and 3 for zscore.
	Factor float64 `json:"factor"`
	// Columns restricts clipping to these numeric columns.
	Columns []string `json:"columns,omitempty"`
	// LogFunc is attached at construction.
	LogFunc LogFunc `json:"-"`
}

type bounds struct {
	Column string  `json:"column"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// OutlierHandler clips numeric values into bounds learned at fit time.
type OutlierHandler struct {
	Base
	config OutlierConfig
	bounds []bounds
}

// NewOutlierHandlerFromConfig creates an OutlierHandler.
func NewOutlierHandlerFromConfig(config OutlierConfig) (*OutlierHandler, error) {
	switch config.Method {
	case OutlierIQR:
		if config.Factor == 0 {
			config.Factor = 1.5
		}
	case OutlierZScore:
		if config.Factor == 0 {
			config.Factor = 3
		}
	default:
		return nil, errhandling.NewConfigurationError("OutlierHandler", fmt.Sprintf("unsupported method %q", config.Method))
	}
	if config.Factor < 0 {
		return nil, errhandling.NewConfigurationError("OutlierHandler", fmt.Sprintf("factor must be positive, got %v", config.Factor))
	}

	cfg := map[string]interface{}{"method": config.Method, "factor": config.Factor}
	putColumns(cfg, config.Columns)

	logger.Debug("outlier handler initialized", "method", config.Method, "factor", config.Factor)

	return &OutlierHandler{Base: NewBase("OutlierHandler", cfg).withLogFunc(config.LogFunc), config: config}, nil
}

// ParseOutlierConfig parses a raw configuration map into OutlierConfig.
func ParseOutlierConfig(raw map[string]interface{}) (OutlierConfig, error) {
	var cfg OutlierConfig
	var err error
	if cfg.Method, err = rawString("OutlierHandler", raw, "method", OutlierIQR); err != nil {
		return cfg, err
	}
	if cfg.Factor, err = rawFloat("OutlierHandler", raw, "factor", 0); err != nil {
		return cfg, err
	}
	if cfg.Columns, err = rawStrings("OutlierHandler", raw, "columns"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (o *OutlierHandler) Kind() string { return "outlier" }

// Fit computes per-column clipping bounds over non-missing values.
func (o *OutlierHandler) Fit(data *table.Table, _ *table.Column) error {
	columns, err := selectColumns(o.Name(), data, o.config.Columns, table.Numeric)
	if err != nil {
		return err
	}

	var fitted []bounds
	for _, name := range columns {
		col, _ := data.Column(name)
		observed := col.ObservedFloats()
		if len(observed) == 0 {
			continue
		}
		b := bounds{Column: name}
		switch o.config.Method {
		case OutlierIQR:
			q1, q3, spread := iqr(observed)
			b.Lower, b.Upper = q1-o.config.Factor*spread, q3+o.config.Factor*spread
		case OutlierZScore:
			m, sd := mean(observed), stddev(observed)
			b.Lower, b.Upper = m-o.config.Factor*sd, m+o.config.Factor*sd
		}
		fitted = append(fitted, b)
	}

	o.bounds = fitted
	o.MarkFitted()
	o.Emit(EventFit, map[string]interface{}{
		"method":  o.config.Method,
		"columns": o.fittedColumns(),
		"bounds":  o.Bounds(),
	})
	return nil
}

// Transform clips fitted columns into their bounds.
func (o *OutlierHandler) Transform(data *table.Table) (*table.Table, error) {
	if err := o.RequireFitted("transform"); err != nil {
		return nil, err
	}

	b := table.NewBuilder(data)
	clipped := 0
	for _, bd := range o.bounds {
		col, err := fittedColumn(o.Name(), data, bd.Column, table.Numeric)
		if err != nil {
			return nil, err
		}
		values := col.Floats()
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < bd.Lower || v > bd.Upper {
				values[i] = math.Min(math.Max(v, bd.Lower), bd.Upper)
				clipped++
			}
		}
		b.Set(table.NewNumeric(bd.Column, values))
	}

	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	o.Emit(EventTransform, map[string]interface{}{
		"method":         o.config.Method,
		"columns":        o.fittedColumns(),
		"values_clipped": clipped,
	})
	return out, nil
}

// FitTransform implements Transformer.
func (o *OutlierHandler) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(o, data, target)
}

// Bounds returns the fitted [lower, upper] bounds per column.
func (o *OutlierHandler) Bounds() map[string][]float64 {
	out := make(map[string][]float64, len(o.bounds))
	for _, b := range o.bounds {
		out[b.Column] = []float64{b.Lower, b.Upper}
	}
	return out
}

func (o *OutlierHandler) fittedColumns() []string {
	names := make([]string, len(o.bounds))
	for i, b := range o.bounds {
		names[i] = b.Column
	}
	return names
}

// MarshalParams implements Persistable.
func (o *OutlierHandler) MarshalParams() ([]byte, error) {
	return json.Marshal(o.bounds)
}

// UnmarshalParams implements Persistable.
func (o *OutlierHandler) UnmarshalParams(data []byte) error {
	var fitted []bounds
	if err := json.Unmarshal(data, &fitted); err != nil {
		return errhandling.NewIOError(o.Name(), "decoding fitted parameters", err)
	}
	o.bounds = fitted
	o.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*OutlierHandler)(nil)
