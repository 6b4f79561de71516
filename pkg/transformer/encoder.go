package transformer

import (
	"encoding/json"
	"fmt"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Encoding methods.
const (
	MethodLabel     = "label"
	MethodOneHot    = "onehot"
	MethodFrequency = "frequency"
)

// UnknownLabel is the label code of missing values and categories unseen at fit time.
const UnknownLabel = -1

// EncoderConfig represents the configuration of an Encoder.
type EncoderConfig struct {
	// Method is one of label, onehot, frequency.
	Method string `json:"method"`
	// Columns restricts encoding to these categorical columns.
	Columns []string `json:"columns,omitempty"`
	// LogFunc, when set, receives events from construction on without SetLogging.
	LogFunc LogFunc `json:"-"`
}

type encoding struct {
	Column     string             `json:"column"`
	Categories []string           `json:"categories"`
	Frequency  map[string]float64 `json:"frequency,omitempty"`
}

func (e encoding) index() map[string]int {
	idx := make(map[string]int, len(e.Categories))
	for i, c := range e.Categories {
		idx[c] = i
	}
	return idx
}

// Encoder turns categorical columns into numeric ones.
type Encoder struct {
	Base
	config    EncoderConfig
	encodings []encoding
}

// NewEncoderFromConfig creates an Encoder.
func NewEncoderFromConfig(config EncoderConfig) (*Encoder, error) {
	switch config.Method {
	case MethodLabel, MethodOneHot, MethodFrequency:
	default:
		return nil, errhandling.NewConfigurationError("Encoder", fmt.Sprintf("unsupported method %q", config.Method))
	}

	cfg := map[string]interface{}{"method": config.Method}
	putColumns(cfg, config.Columns)

	logger.Debug("encoder initialized", "method", config.Method)

	return &Encoder{Base: NewBase("Encoder", cfg).withLogFunc(config.LogFunc), config: config}, nil
}

// NewEncoder creates an Encoder with the given method.
func NewEncoder(method string) (*Encoder, error) {
	return NewEncoderFromConfig(EncoderConfig{Method: method})
}

// ParseEncoderConfig parses a raw configuration map into EncoderConfig.
func ParseEncoderConfig(raw map[string]interface{}) (EncoderConfig, error) {
	var cfg EncoderConfig
	var err error
	if cfg.Method, err = rawString("Encoder", raw, "method", MethodLabel); err != nil {
		return cfg, err
	}
	if cfg.Columns, err = rawStrings("Encoder", raw, "columns"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (e *Encoder) Kind() string { return "encoder" }

// Fit records the distinct non-missing categories of each categorical column, in
// first-seen order.
func (e *Encoder) Fit(data *table.Table, _ *table.Column) error {
	columns, err := selectColumns(e.Name(), data, e.config.Columns, table.Categorical)
	if err != nil {
		return err
	}

	encodings := make([]encoding, 0, len(columns))
	for _, name := range columns {
		col, _ := data.Column(name)
		observed := col.ObservedStrings()
		enc := encoding{Column: name, Categories: distinctInOrder(observed)}
		if e.config.Method == MethodFrequency && len(observed) > 0 {
			enc.Frequency = make(map[string]float64, len(enc.Categories))
			for _, v := range observed {
				enc.Frequency[v]++
			}
			for k, n := range enc.Frequency {
				enc.Frequency[k] = n / float64(len(observed))
			}
		}
		encodings = append(encodings, enc)
	}

	e.encodings = encodings
	e.MarkFitted()
	e.Emit(EventFit, map[string]interface{}{
		"method":     e.config.Method,
		"columns":    columns,
		"categories": e.Categories(),
	})
	return nil
}

// Transform encodes the fitted columns.
func (e *Encoder) Transform(data *table.Table) (*table.Table, error) {
	if err := e.RequireFitted("transform"); err != nil {
		return nil, err
	}

	b := table.NewBuilder(data)
	var newColumns []string
	unknown := 0

	for _, enc := range e.encodings {
		col, err := fittedColumn(e.Name(), data, enc.Column, table.Categorical)
		if err != nil {
			return nil, err
		}

		switch e.config.Method {
		case MethodLabel:
			idx := enc.index()
			values := make([]float64, col.Len())
			for i := range values {
				code, ok := idx[col.Str(i)]
				if col.IsMissing(i) || !ok {
					values[i] = UnknownLabel
					unknown++
					continue
				}
				values[i] = float64(code)
			}
			b.Set(table.NewNumeric(enc.Column, values))

		case MethodFrequency:
			values := make([]float64, col.Len())
			for i := range values {
				f, ok := enc.Frequency[col.Str(i)]
				if col.IsMissing(i) || !ok {
					unknown++
					continue
				}
				values[i] = f
			}
			b.Set(table.NewNumeric(enc.Column, values))

		case MethodOneHot:
			b.Drop(enc.Column)
			indicators := make([][]float64, len(enc.Categories))
			for k := range indicators {
				indicators[k] = make([]float64, col.Len())
			}
			idx := enc.index()
			for i := range col.Len() {
				k, ok := idx[col.Str(i)]
				if col.IsMissing(i) || !ok {
					unknown++
					continue
				}
				indicators[k][i] = 1
			}
			for k, category := range enc.Categories {
				name := fmt.Sprintf("%s_%s", enc.Column, category)
				if data.Has(name) {
					return nil, errhandling.NewSchemaError(e.Name(), fmt.Sprintf("indicator column %q collides with an existing column", name))
				}
				b.Set(table.NewNumeric(name, indicators[k]))
				newColumns = append(newColumns, name)
			}
		}
	}

	out, err := b.Build()
	if err != nil {
		return nil, errhandling.NewSchemaError(e.Name(), err.Error())
	}

	details := map[string]interface{}{
		"method":         e.config.Method,
		"columns":        e.fittedColumns(),
		"unknown_values": unknown,
	}
	if len(newColumns) > 0 {
		details["new_columns"] = newColumns
	}
	e.Emit(EventTransform, details)
	return out, nil
}

// FitTransform implements Transformer.
func (e *Encoder) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(e, data, target)
}

// Categories returns the fitted categories per column, in first-seen order.
func (e *Encoder) Categories() map[string][]string {
	out := make(map[string][]string, len(e.encodings))
	for _, enc := range e.encodings {
		out[enc.Column] = append([]string(nil), enc.Categories...)
	}
	return out
}

func (e *Encoder) fittedColumns() []string {
	names := make([]string, len(e.encodings))
	for i, enc := range e.encodings {
		names[i] = enc.Column
	}
	return names
}

// MarshalParams implements Persistable.
func (e *Encoder) MarshalParams() ([]byte, error) {
	return json.Marshal(e.encodings)
}

// UnmarshalParams implements Persistable.
func (e *Encoder) UnmarshalParams(data []byte) error {
	var encodings []encoding
	if err := json.Unmarshal(data, &encodings); err != nil {
		return errhandling.NewIOError(e.Name(), "decoding fitted parameters", err)
	}
	e.encodings = encodings
	e.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*Encoder)(nil)
