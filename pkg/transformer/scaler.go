package transformer

import (
	"encoding/json"
	"fmt"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Scaling methods.
const (
	MethodMinMax = "minmax"
	MethodZScore = "zscore"
	MethodRobust = "robust"
)

// Epsilon keeps scaling defined on constant columns.
const Epsilon = 1e-9

// ScalerConfig represents the configuration of a Scaler.
type ScalerConfig struct {
	// Method is one of minmax, zscore, robust.
	Method string `json:"method"`
	// Columns restricts scaling to these numeric columns.
	Columns []string `json:"columns,omitempty"`
	// LogFunc, when set, receives events from construction on without SetLogging.
	LogFunc LogFunc `json:"-"`
}

// scaleParams maps x to (x - Center) / (Spread + Epsilon).
// For minmax Center is the minimum and Spread is max - min.
type scaleParams struct {
	Column string  `json:"column"`
	Center float64 `json:"center"`
	Spread float64 `json:"spread"`
}

// Scaler rescales numeric columns.
type Scaler struct {
	Base
	config ScalerConfig
	params []scaleParams
}

// NewScalerFromConfig creates a Scaler.
func NewScalerFromConfig(config ScalerConfig) (*Scaler, error) {
	switch config.Method {
	case MethodMinMax, MethodZScore, MethodRobust:
	default:
		return nil, errhandling.NewConfigurationError("Scaler", fmt.Sprintf("unsupported method %q", config.Method))
	}

	cfg := map[string]interface{}{"method": config.Method}
	putColumns(cfg, config.Columns)

	logger.Debug("scaler initialized", "method", config.Method)

	return &Scaler{Base: NewBase("Scaler", cfg).withLogFunc(config.LogFunc), config: config}, nil
}

// NewScaler creates a Scaler with the given method.
func NewScaler(method string) (*Scaler, error) {
	return NewScalerFromConfig(ScalerConfig{Method: method})
}

// ParseScalerConfig parses a raw configuration map into ScalerConfig.
func ParseScalerConfig(raw map[string]interface{}) (ScalerConfig, error) {
	var cfg ScalerConfig
	var err error
	if cfg.Method, err = rawString("Scaler", raw, "method", MethodMinMax); err != nil {
		return cfg, err
	}
	if cfg.Columns, err = rawStrings("Scaler", raw, "columns"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (s *Scaler) Kind() string { return "scaler" }

// Fit computes per-column scaling parameters over non-missing values.
// Columns without any observed value are left untouched.
func (s *Scaler) Fit(data *table.Table, _ *table.Column) error {
	columns, err := selectColumns(s.Name(), data, s.config.Columns, table.Numeric)
	if err != nil {
		return err
	}

	params := make([]scaleParams, 0, len(columns))
	for _, name := range columns {
		col, _ := data.Column(name)
		observed := col.ObservedFloats()
		if len(observed) == 0 {
			logger.Warn("column has no observed values, skipping", "column", name, "method", s.config.Method)
			continue
		}

		p := scaleParams{Column: name}
		switch s.config.Method {
		case MethodMinMax:
			lo, hi := minMax(observed)
			p.Center, p.Spread = lo, hi-lo
		case MethodZScore:
			p.Center, p.Spread = mean(observed), stddev(observed)
		case MethodRobust:
			_, _, spread := iqr(observed)
			p.Center, p.Spread = median(observed), spread
		}
		params = append(params, p)
	}

	s.params = params
	s.MarkFitted()
	s.Emit(EventFit, map[string]interface{}{
		"method":  s.config.Method,
		"columns": s.fittedColumns(),
		"params":  s.Params(),
	})
	return nil
}

// Transform rescales the fitted columns. Missing values stay missing.
func (s *Scaler) Transform(data *table.Table) (*table.Table, error) {
	if err := s.RequireFitted("transform"); err != nil {
		return nil, err
	}

	b := table.NewBuilder(data)
	for _, p := range s.params {
		col, err := fittedColumn(s.Name(), data, p.Column, table.Numeric)
		if err != nil {
			return nil, err
		}
		values := col.Floats()
		for i, v := range values {
			values[i] = (v - p.Center) / (p.Spread + Epsilon)
		}
		b.Set(table.NewNumeric(p.Column, values))
	}

	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	s.Emit(EventTransform, map[string]interface{}{
		"method":  s.config.Method,
		"columns": s.fittedColumns(),
	})
	return out, nil
}

// FitTransform implements Transformer.
func (s *Scaler) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(s, data, target)
}

// Params returns the fitted parameters per column, keyed by their statistical names
// (min/max, mean/std or median/iqr).
func (s *Scaler) Params() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(s.params))
	for _, p := range s.params {
		switch s.config.Method {
		case MethodMinMax:
			out[p.Column] = map[string]float64{"min": p.Center, "max": p.Center + p.Spread}
		case MethodZScore:
			out[p.Column] = map[string]float64{"mean": p.Center, "std": p.Spread}
		case MethodRobust:
			out[p.Column] = map[string]float64{"median": p.Center, "iqr": p.Spread}
		}
	}
	return out
}

func (s *Scaler) fittedColumns() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Column
	}
	return names
}

// MarshalParams implements Persistable.
func (s *Scaler) MarshalParams() ([]byte, error) {
	return json.Marshal(s.params)
}

// UnmarshalParams implements Persistable.
func (s *Scaler) UnmarshalParams(data []byte) error {
	var params []scaleParams
	if err := json.Unmarshal(data, &params); err != nil {
		return errhandling.NewIOError(s.Name(), "decoding fitted parameters", err)
	}
	s.params = params
	s.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*Scaler)(nil)
