// Package pipeline composes transformers into an ordered chain that is itself a
// transformer.
//
// Fit runs each step's Fit on the output of the previous step's Transform, so later
// steps learn from already-transformed data. Transform replays the chain with the
// stored parameters and never refits. Every step boundary produces exactly one start
// and one end event; the payloads a step emits while running are folded into its end
// event.
package pipeline

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// DefaultName is the name of a pipeline built without WithName.
const DefaultName = "Pipeline"

// Pipeline event kinds.
const (
	EventFitStart       = "fit_start"
	EventFitEnd         = "fit_end"
	EventTransformStart = "transform_start"
	EventTransformEnd   = "transform_end"
)

// Step is a named transformer in a pipeline.
type Step struct {
	ID          string
	Transformer transformer.Transformer
}

// Pipeline is an ordered list of steps with unique ids.
type Pipeline struct {
	name   string
	steps  []Step
	fitted bool
	step   string
	logFn  transformer.LogFunc
}

// Verify interface compliance at compile time
var _ transformer.Transformer = (*Pipeline)(nil)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithName sets the pipeline name.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// WithLogFunc attaches the callback that receives step events, typically an
// insight reporter's Callback.
func WithLogFunc(fn transformer.LogFunc) Option {
	return func(p *Pipeline) {
		p.logFn = fn
	}
}

// New creates a pipeline. Step ids must be non-empty and unique, and every step
// needs a transformer.
func New(steps []Step, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{name: DefaultName}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range steps {
		if err := p.validateStep(s); err != nil {
			return nil, err
		}
		p.steps = append(p.steps, s)
	}
	return p, nil
}

func (p *Pipeline) validateStep(s Step) error {
	if strings.TrimSpace(s.ID) == "" {
		return errhandling.NewConfigurationError(p.name, "step id must not be empty")
	}
	if s.Transformer == nil {
		return errhandling.NewConfigurationError(p.name, fmt.Sprintf("step %q has no transformer", s.ID))
	}
	if s.Transformer == transformer.Transformer(p) {
		return errhandling.NewConfigurationError(p.name, fmt.Sprintf("step %q cannot contain the pipeline itself", s.ID))
	}
	if p.indexOf(s.ID) >= 0 {
		return errhandling.NewConfigurationError(p.name, fmt.Sprintf("duplicate step id %q", s.ID))
	}
	return nil
}

func (p *Pipeline) indexOf(id string) int {
	for i, s := range p.steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Name implements transformer.Transformer.
func (p *Pipeline) Name() string { return p.name }

// Config implements transformer.Transformer. It lists the step ids in order.
func (p *Pipeline) Config() map[string]interface{} {
	return map[string]interface{}{"steps": p.StepIDs()}
}

// IsFitted implements transformer.Transformer. A pipeline is fitted after a
// successful Fit and until the next structural change.
func (p *Pipeline) IsFitted() bool { return p.fitted }

// MarkFitted flags the pipeline fitted without running Fit. Every step must
// already be fitted, as after restoring saved parameters.
func (p *Pipeline) MarkFitted() error {
	for _, s := range p.steps {
		if !s.Transformer.IsFitted() {
			return fmt.Errorf("step %q: %w", s.ID, errhandling.NewNotFittedError(s.Transformer.Name(), "mark fitted"))
		}
	}
	p.fitted = true
	return nil
}

// SetLogging implements transformer.Transformer. When a pipeline runs as a step of
// another pipeline, its events are attributed to "<step>/<inner step id>".
func (p *Pipeline) SetLogging(step string, fn transformer.LogFunc) (restore func()) {
	prevStep, prevFn := p.step, p.logFn
	p.step, p.logFn = step, fn
	return func() {
		p.step, p.logFn = prevStep, prevFn
	}
}

// =============================================================================
// Fit / Transform
// =============================================================================

// Fit fits every step in order. Each step is fitted on the current table and then
// transforms it to produce the next step's input. target is passed to every step.
// On error the pipeline is left unfitted.
func (p *Pipeline) Fit(data *table.Table, target *table.Column) error {
	_, err := p.fit(data, target)
	return err
}

// FitTransform implements transformer.Transformer. It returns the output of the
// last step's transform from the fit pass without transforming twice.
func (p *Pipeline) FitTransform(data *table.Table, target *table.Column) (*table.Table, error) {
	return p.fit(data, target)
}

func (p *Pipeline) fit(data *table.Table, target *table.Column) (*table.Table, error) {
	p.fitted = false
	current := data
	for i, s := range p.steps {
		ctx := p.runContext("fit", i, s)
		start := time.Now()
		logger.LogStepStart(ctx, current.Shape())
		p.emit(s, EventFitStart, map[string]interface{}{"shape": current.Shape()})

		var out *table.Table
		captured, err := p.run(s, func() error {
			if err := s.Transformer.Fit(current, target); err != nil {
				return err
			}
			var terr error
			out, terr = s.Transformer.Transform(current)
			return terr
		})
		if err != nil {
			logger.WithStep(s.ID, s.Transformer.Name()).Debug("step fit failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("fitting step %q: %w", s.ID, err)
		}

		details := mergeDetails(captured)
		details["input_shape"] = current.Shape()
		details["output_shape"] = out.Shape()
		p.emit(s, EventFitEnd, details)
		logger.LogStepEnd(ctx, out.Shape(), time.Since(start))
		current = out
	}
	p.fitted = true
	return current, nil
}

// Transform runs every step's Transform in order. It fails with a not-fitted error
// before touching the data if any step is unfitted.
func (p *Pipeline) Transform(data *table.Table) (*table.Table, error) {
	for _, s := range p.steps {
		if !s.Transformer.IsFitted() {
			return nil, fmt.Errorf("step %q: %w", s.ID, errhandling.NewNotFittedError(s.Transformer.Name(), "transform"))
		}
	}

	current := data
	for i, s := range p.steps {
		ctx := p.runContext("transform", i, s)
		start := time.Now()
		logger.LogStepStart(ctx, current.Shape())
		p.emit(s, EventTransformStart, map[string]interface{}{"shape": current.Shape()})

		var out *table.Table
		captured, err := p.run(s, func() error {
			var terr error
			out, terr = s.Transformer.Transform(current)
			return terr
		})
		if err != nil {
			logger.WithStep(s.ID, s.Transformer.Name()).Debug("step transform failed", slog.String("error", err.Error()))
			return nil, fmt.Errorf("transforming step %q: %w", s.ID, err)
		}

		details := mergeDetails(captured)
		details["input_shape"] = current.Shape()
		details["output_shape"] = out.Shape()
		p.emit(s, EventTransformEnd, details)
		logger.LogStepEnd(ctx, out.Shape(), time.Since(start))
		current = out
	}
	return current, nil
}

// run executes fn with a capturing LogFunc attached to the step's transformer and
// returns the payloads the transformer emitted.
func (p *Pipeline) run(s Step, fn func() error) ([]transformer.Payload, error) {
	var captured []transformer.Payload
	restore := s.Transformer.SetLogging(s.ID, func(_ string, payload transformer.Payload) {
		captured = append(captured, payload)
	})
	err := fn()
	restore()
	return captured, err
}

// mergeDetails folds captured payload details into one map; later keys win.
func mergeDetails(payloads []transformer.Payload) map[string]interface{} {
	details := map[string]interface{}{}
	for _, payload := range payloads {
		maps.Copy(details, payload.Details)
	}
	return details
}

func (p *Pipeline) emit(s Step, event string, details map[string]interface{}) {
	if p.logFn == nil {
		return
	}
	step := s.ID
	if p.step != "" {
		step = p.step + "/" + s.ID
	}
	p.logFn(step, transformer.Payload{
		Event:       event,
		Transformer: s.Transformer.Name(),
		Config:      s.Transformer.Config(),
		Details:     details,
	})
}

func (p *Pipeline) runContext(mode string, index int, s Step) logger.RunContext {
	return logger.RunContext{
		PipelineName: p.name,
		Mode:         mode,
		Stage:        "pipeline",
		StepID:       s.ID,
		Transformer:  s.Transformer.Name(),
		StepIndex:    index,
	}
}

// =============================================================================
// Step management
// =============================================================================

// AddStep appends a step. The pipeline becomes unfitted; existing steps keep their
// fitted parameters.
func (p *Pipeline) AddStep(id string, t transformer.Transformer) error {
	s := Step{ID: id, Transformer: t}
	if err := p.validateStep(s); err != nil {
		return err
	}
	p.steps = append(p.steps, s)
	p.fitted = false
	return nil
}

// RemoveStep removes the step with the given id. The pipeline becomes unfitted.
func (p *Pipeline) RemoveStep(id string) error {
	i := p.indexOf(id)
	if i < 0 {
		return errhandling.NewNotFoundError(p.name, "step", id)
	}
	p.steps = append(p.steps[:i:i], p.steps[i+1:]...)
	p.fitted = false
	return nil
}

// GetStep returns the transformer of the step with the given id.
func (p *Pipeline) GetStep(id string) (transformer.Transformer, error) {
	i := p.indexOf(id)
	if i < 0 {
		return nil, errhandling.NewNotFoundError(p.name, "step", id)
	}
	return p.steps[i].Transformer, nil
}

// Steps returns a copy of the step list.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// StepIDs returns the step ids in order.
func (p *Pipeline) StepIDs() []string {
	ids := make([]string, len(p.steps))
	for i, s := range p.steps {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// String renders the pipeline as "<Pipeline (n steps): a → b>".
func (p *Pipeline) String() string {
	return fmt.Sprintf("<Pipeline (%d steps): %s>", len(p.steps), strings.Join(p.StepIDs(), " → "))
}
