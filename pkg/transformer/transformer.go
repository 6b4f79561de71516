// Package transformer provides the two-phase (fit/transform) transformer contract
// and its concrete implementations.
//
// A transformer starts unfitted. Fit computes its parameters from a table and
// replaces any previous parameters wholesale; Transform applies the stored
// parameters to a table and returns a new one without modifying its input.
//
// Transformers report what they did through an optional LogFunc, given in their
// configuration at construction or attached later with SetLogging. Each Fit and each Transform emits one payload whose Details use the
// following keys:
//
//	Imputer           strategy, columns, fill_values, skipped_columns, values_filled, rows_dropped
//	Encoder           method, columns, categories, new_columns, unknown_values
//	Scaler            method, columns, params
//	FeatureGenerator  degree, interactions, columns, new_columns
//	OutlierHandler    method, columns, bounds, values_clipped
//	ExpressionFeature column, rows
//	ScriptTransformer columns, new_columns, rows
package transformer

import (
	"fmt"
	"maps"

	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Event kinds emitted by transformers.
const (
	EventFit       = "fit"
	EventTransform = "transform"
)

// Payload is the structured content of one logged event.
type Payload struct {
	// Event is the event kind ("fit", "transform", "fit_start", ...).
	Event string
	// Transformer is the emitting transformer's name.
	Transformer string
	// Config echoes the transformer's construction configuration.
	Config map[string]interface{}
	// Details holds transformer-specific facts (columns touched, shapes, new columns).
	Details map[string]interface{}
}

// LogFunc receives events. step identifies the emitting step.
type LogFunc func(step string, payload Payload)

// Transformer is implemented by every preprocessing step and by the pipeline itself.
type Transformer interface {
	// Name returns the transformer name used in events.
	Name() string
	// Config returns the construction configuration.
	Config() map[string]interface{}
	// Fit computes parameters from data. target may be nil.
	Fit(data *table.Table, target *table.Column) error
	// Transform applies fitted parameters to data.
	Transform(data *table.Table) (*table.Table, error)
	// FitTransform is Fit followed by Transform on the same table.
	FitTransform(data *table.Table, target *table.Column) (*table.Table, error)
	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool
	// SetLogging attaches fn under the given step id and returns a function that
	// restores the previous attachment.
	SetLogging(step string, fn LogFunc) (restore func())
}

// Persistable is implemented by transformers whose fitted parameters can be saved
// and restored.
type Persistable interface {
	Transformer
	// Kind returns the registry key the transformer is constructed from.
	Kind() string
	// MarshalParams encodes the fitted parameters.
	MarshalParams() ([]byte, error)
	// UnmarshalParams restores fitted parameters and marks the transformer fitted.
	UnmarshalParams(data []byte) error
}

// FitThenTransform runs t.Fit then t.Transform on data.
func FitThenTransform(t Transformer, data *table.Table, target *table.Column) (*table.Table, error) {
	if err := t.Fit(data, target); err != nil {
		return nil, err
	}
	return t.Transform(data)
}

// Base carries the state shared by all transformers: name, configuration, fitted
// flag and logging attachment. Embed it by value.
type Base struct {
	name   string
	config map[string]interface{}
	fitted bool
	step   string
	logFn  LogFunc
}

// NewBase creates a Base for a transformer with the given name and configuration.
func NewBase(name string, config map[string]interface{}) Base {
	if config == nil {
		config = map[string]interface{}{}
	}
	return Base{name: name, config: config}
}

// withLogFunc attaches a construction-time LogFunc.
func (b Base) withLogFunc(fn LogFunc) Base {
	b.logFn = fn
	return b
}

// Name implements Transformer.
func (b *Base) Name() string { return b.name }

// Config implements Transformer.
func (b *Base) Config() map[string]interface{} { return maps.Clone(b.config) }

// IsFitted implements Transformer.
func (b *Base) IsFitted() bool { return b.fitted }

// SetLogging implements Transformer.
func (b *Base) SetLogging(step string, fn LogFunc) (restore func()) {
	prevStep, prevFn := b.step, b.logFn
	b.step, b.logFn = step, fn
	return func() {
		b.step, b.logFn = prevStep, prevFn
	}
}

// MarkFitted flags the transformer as fitted.
func (b *Base) MarkFitted() { b.fitted = true }

// RequireFitted returns a not-fitted error when Fit has not completed.
func (b *Base) RequireFitted(operation string) error {
	if !b.fitted {
		return errhandling.NewNotFittedError(b.name, operation)
	}
	return nil
}

// Emit sends one event through the attached LogFunc, if any.
func (b *Base) Emit(event string, details map[string]interface{}) {
	if b.logFn == nil {
		return
	}
	step := b.step
	if step == "" {
		step = b.name
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	b.logFn(step, Payload{
		Event:       event,
		Transformer: b.name,
		Config:      b.Config(),
		Details:     details,
	})
}

// =============================================================================
// Column helpers
// =============================================================================

// selectColumns returns the columns a transformer operates on: the requested names
// when given (each must exist and be of an accepted kind), otherwise every column of
// the accepted kinds in table order.
func selectColumns(component string, data *table.Table, requested []string, kinds ...table.Kind) ([]string, error) {
	accepted := func(k table.Kind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}

	if len(requested) == 0 {
		var names []string
		for _, c := range data.Columns() {
			if accepted(c.Kind()) {
				names = append(names, c.Name())
			}
		}
		return names, nil
	}

	for _, name := range requested {
		c, ok := data.Column(name)
		if !ok {
			return nil, errhandling.NewSchemaError(component, fmt.Sprintf("column %q not found", name))
		}
		if !accepted(c.Kind()) {
			return nil, errhandling.NewSchemaError(component, fmt.Sprintf("column %q is %s", name, c.Kind()))
		}
	}
	return append([]string(nil), requested...), nil
}

// fittedColumn looks up a column stored at fit time and checks its kind.
func fittedColumn(component string, data *table.Table, name string, kind table.Kind) (*table.Column, error) {
	c, ok := data.Column(name)
	if !ok {
		return nil, errhandling.NewSchemaError(component, fmt.Sprintf("fitted column %q not found", name))
	}
	if c.Kind() != kind {
		return nil, errhandling.NewSchemaError(component, fmt.Sprintf("fitted column %q is %s, expected %s", name, c.Kind(), kind))
	}
	return c, nil
}
