// Package factory creates transformers, pipelines and input/output modules from
// recipe configuration using the registry.
//
// # Adding New Kinds
//
// To add a new transformer kind or module type, see the documentation in
// internal/registry. You do NOT need to modify this factory; just register your
// constructor.
package factory

import (
	"fmt"
	"strings"

	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/modules/output"
	"github.com/Troge-dev/Transfory/internal/registry"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/pipeline"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// CreateTransformer creates a transformer of the given kind from its raw
// configuration. Unknown kinds are configuration errors.
func CreateTransformer(kind string, raw map[string]interface{}) (transformer.Transformer, error) {
	constructor := registry.GetTransformerConstructor(kind)
	if constructor == nil {
		return nil, errhandling.NewConfigurationError("factory",
			fmt.Sprintf("unknown transformer kind %q (available: %s)", kind, strings.Join(registry.ListTransformerKinds(), ", ")))
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return constructor(raw)
}

// CreatePipeline creates an unfitted pipeline from the recipe's steps, in order.
// The pipeline is named after the recipe unless opts override it.
func CreatePipeline(r *recipe.Recipe, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if r == nil {
		return nil, errhandling.NewConfigurationError("factory", "recipe is nil")
	}
	steps := make([]pipeline.Step, 0, len(r.Steps))
	for i, sc := range r.Steps {
		t, err := CreateTransformer(sc.Kind, sc.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q at index %d: %w", sc.ID, i, err)
		}
		steps = append(steps, pipeline.Step{ID: sc.ID, Transformer: t})
	}
	if r.Name != "" {
		opts = append([]pipeline.Option{pipeline.WithName(r.Name)}, opts...)
	}
	return pipeline.New(steps, opts...)
}

// CreateInputModule creates an input module instance from configuration.
// A recipe always has an input, so a nil configuration is an error.
func CreateInputModule(cfg *recipe.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, errhandling.NewConfigurationError("factory", "input module configuration is required")
	}
	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewConfigurationError("factory",
			fmt.Sprintf("unknown input type %q (available: %s)", cfg.Type, strings.Join(registry.ListInputTypes(), ", ")))
	}
	return constructor(cfg)
}

// CreateOutputModule creates an output module instance from configuration.
// The output is optional: a nil configuration yields a nil module.
func CreateOutputModule(cfg *recipe.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, nil
	}
	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewConfigurationError("factory",
			fmt.Sprintf("unknown output type %q (available: %s)", cfg.Type, strings.Join(registry.ListOutputTypes(), ", ")))
	}
	return constructor(cfg)
}
