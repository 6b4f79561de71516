package transformer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// FeatureGeneratorConfig represents the configuration of a FeatureGenerator.
type FeatureGeneratorConfig struct {
	// Degree is the highest power generated, at least 1 (1 generates no powers).
	Degree int `json:"degree"`
	// Interactions adds the product of every pair of numeric columns.
	Interactions bool `json:"interactions"`
	// LogFunc is attached at construction.
	LogFunc LogFunc `json:"-"`
}

// FeatureGenerator appends polynomial and pairwise interaction columns.
type FeatureGenerator struct {
	Base
	config  FeatureGeneratorConfig
	columns []string
}

// NewFeatureGeneratorFromConfig creates a FeatureGenerator.
func NewFeatureGeneratorFromConfig(config FeatureGeneratorConfig) (*FeatureGenerator, error) {
	if config.Degree < 1 {
		return nil, errhandling.NewConfigurationError("FeatureGenerator", fmt.Sprintf("degree must be at least 1, got %d", config.Degree))
	}

	cfg := map[string]interface{}{
		"degree":       config.Degree,
		"interactions": config.Interactions,
	}

	logger.Debug("feature generator initialized", "degree", config.Degree, "interactions", config.Interactions)

	return &FeatureGenerator{Base: NewBase("FeatureGenerator", cfg).withLogFunc(config.LogFunc), config: config}, nil
}

// NewFeatureGenerator creates a FeatureGenerator.
func NewFeatureGenerator(degree int, interactions bool) (*FeatureGenerator, error) {
	return NewFeatureGeneratorFromConfig(FeatureGeneratorConfig{Degree: degree, Interactions: interactions})
}

// ParseFeatureGeneratorConfig parses a raw configuration map. Defaults: degree 2,
// interactions enabled.
func ParseFeatureGeneratorConfig(raw map[string]interface{}) (FeatureGeneratorConfig, error) {
	var cfg FeatureGeneratorConfig
	var err error
	if cfg.Degree, err = rawInt("FeatureGenerator", raw, "degree", 2); err != nil {
		return cfg, err
	}
	if cfg.Interactions, err = rawBool("FeatureGenerator", raw, "interactions", true); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Kind implements Persistable.
func (g *FeatureGenerator) Kind() string { return "feature_generator" }

// Fit records the numeric columns present at fit time.
func (g *FeatureGenerator) Fit(data *table.Table, _ *table.Column) error {
	g.columns = data.ColumnsOfKind(table.Numeric)
	g.MarkFitted()
	g.Emit(EventFit, map[string]interface{}{
		"degree":       g.config.Degree,
		"interactions": g.config.Interactions,
		"columns":      append([]string(nil), g.columns...),
	})
	return nil
}

// Transform appends "{col}^p{k}" for k in 2..degree, then "{a}_x_{b}" for every
// pair of fitted columns in fit order.
func (g *FeatureGenerator) Transform(data *table.Table) (*table.Table, error) {
	if err := g.RequireFitted("transform"); err != nil {
		return nil, err
	}

	cols := make([]*table.Column, len(g.columns))
	for i, name := range g.columns {
		col, err := fittedColumn(g.Name(), data, name, table.Numeric)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	b := table.NewBuilder(data)
	var newColumns []string

	for _, col := range cols {
		base := col.Floats()
		for p := 2; p <= g.config.Degree; p++ {
			values := make([]float64, len(base))
			for i, v := range base {
				values[i] = math.Pow(v, float64(p))
			}
			name := fmt.Sprintf("%s^p%d", col.Name(), p)
			b.Set(table.NewNumeric(name, values))
			newColumns = append(newColumns, name)
		}
	}

	if g.config.Interactions {
		for i := 0; i < len(cols); i++ {
			for j := i + 1; j < len(cols); j++ {
				a, c := cols[i].Floats(), cols[j].Floats()
				values := make([]float64, len(a))
				for r := range a {
					values[r] = a[r] * c[r]
				}
				name := fmt.Sprintf("%s_x_%s", cols[i].Name(), cols[j].Name())
				b.Set(table.NewNumeric(name, values))
				newColumns = append(newColumns, name)
			}
		}
	}

	out, err := b.Build()
	if err != nil {
		return nil, err
	}
	g.Emit(EventTransform, map[string]interface{}{
		"degree":       g.config.Degree,
		"interactions": g.config.Interactions,
		"columns":      append([]string(nil), g.columns...),
		"new_columns":  newColumns,
	})
	return out, nil
}

// FitTransform implements Transformer.
func (g *FeatureGenerator) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return FitThenTransform(g, data, target)
}

// MarshalParams implements Persistable.
func (g *FeatureGenerator) MarshalParams() ([]byte, error) {
	return json.Marshal(g.columns)
}

// UnmarshalParams implements Persistable.
func (g *FeatureGenerator) UnmarshalParams(data []byte) error {
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return errhandling.NewIOError(g.Name(), "decoding fitted parameters", err)
	}
	g.columns = columns
	g.MarkFitted()
	return nil
}

// Verify interface compliance at compile time
var _ Persistable = (*FeatureGenerator)(nil)
