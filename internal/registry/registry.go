// Package registry provides registries for transformer kinds and for input and
// output module types.
//
// # Overview
//
// Recipes name their steps by kind ("imputer", "scaler", ...) and their input and
// output modules by type ("csv", "json"). Instead of hard-coded switch statements,
// constructors register themselves under these names, so new kinds can be added
// without modifying the factory.
//
// # Adding a New Transformer Kind
//
//  1. Implement transformer.Transformer (and transformer.Persistable to support
//     saved state)
//  2. Write a constructor taking the raw step configuration
//  3. Register the constructor in an init() function
//
// Example:
//
//	func init() {
//	    registry.RegisterTransformer("binner", func(raw map[string]interface{}) (transformer.Transformer, error) {
//	        return NewBinnerFromConfig(raw)
//	    })
//	}
//
// # Built-in Kinds
//
// The built-in transformers (imputer, encoder, scaler, feature_generator,
// outlier, expression, script), the csv input and the csv and json outputs are
// registered automatically via init().
package registry

import (
	"sort"
	"sync"

	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/modules/output"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// TransformerConstructor creates a transformer from a raw step configuration.
// It returns a configuration error when the configuration is invalid.
type TransformerConstructor func(raw map[string]interface{}) (transformer.Transformer, error)

// InputConstructor creates an input module from configuration.
type InputConstructor func(cfg *recipe.ModuleConfig) (input.Module, error)

// OutputConstructor creates an output module from configuration.
type OutputConstructor func(cfg *recipe.ModuleConfig) (output.Module, error)

// transformerRegistry holds registered transformer constructors.
var (
	transformerMu       sync.RWMutex
	transformerRegistry = make(map[string]TransformerConstructor)
)

// inputRegistry holds registered input module constructors.
var (
	inputMu       sync.RWMutex
	inputRegistry = make(map[string]InputConstructor)
)

// outputRegistry holds registered output module constructors.
var (
	outputMu       sync.RWMutex
	outputRegistry = make(map[string]OutputConstructor)
)

// RegisterTransformer registers a transformer constructor by kind.
// Registering an existing kind overwrites the previous constructor.
//
// This function is safe for concurrent use and is typically called from
// init() functions.
func RegisterTransformer(kind string, constructor TransformerConstructor) {
	transformerMu.Lock()
	defer transformerMu.Unlock()
	transformerRegistry[kind] = constructor
}

// RegisterInput registers an input module constructor by type string.
// Registering an existing type overwrites the previous constructor.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputMu.Lock()
	defer inputMu.Unlock()
	inputRegistry[moduleType] = constructor
}

// RegisterOutput registers an output module constructor by type string.
// Registering an existing type overwrites the previous constructor.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputMu.Lock()
	defer outputMu.Unlock()
	outputRegistry[moduleType] = constructor
}

// GetTransformerConstructor returns the registered constructor for a kind, or nil.
func GetTransformerConstructor(kind string) TransformerConstructor {
	transformerMu.RLock()
	defer transformerMu.RUnlock()
	return transformerRegistry[kind]
}

// GetInputConstructor returns the registered constructor for an input module type, or nil.
func GetInputConstructor(moduleType string) InputConstructor {
	inputMu.RLock()
	defer inputMu.RUnlock()
	return inputRegistry[moduleType]
}

// GetOutputConstructor returns the registered constructor for an output module type, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return outputRegistry[moduleType]
}

// ListTransformerKinds returns the registered transformer kinds, sorted.
func ListTransformerKinds() []string {
	transformerMu.RLock()
	defer transformerMu.RUnlock()
	return sortedKeys(transformerRegistry)
}

// ListInputTypes returns the registered input module types, sorted.
func ListInputTypes() []string {
	inputMu.RLock()
	defer inputMu.RUnlock()
	return sortedKeys(inputRegistry)
}

// ListOutputTypes returns the registered output module types, sorted.
func ListOutputTypes() []string {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return sortedKeys(outputRegistry)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClearRegistries removes all registered constructors.
// This is intended for testing purposes only.
func ClearRegistries() {
	transformerMu.Lock()
	transformerRegistry = make(map[string]TransformerConstructor)
	transformerMu.Unlock()

	inputMu.Lock()
	inputRegistry = make(map[string]InputConstructor)
	inputMu.Unlock()

	outputMu.Lock()
	outputRegistry = make(map[string]OutputConstructor)
	outputMu.Unlock()
}

// RegisterBuiltins (re)registers the built-in constructors. init() calls it; tests
// call it after ClearRegistries.
func RegisterBuiltins() {
	registerBuiltinTransformers()
	registerBuiltinInputModules()
	registerBuiltinOutputModules()
}
