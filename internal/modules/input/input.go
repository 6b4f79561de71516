// Package input provides implementations for input modules.
// Input modules are responsible for loading the table a recipe runs on.
package input

import (
	"context"
	"errors"

	"github.com/Troge-dev/Transfory/pkg/table"
)

// ErrNilConfig is returned when a constructor receives no configuration.
var ErrNilConfig = errors.New("input module configuration is nil")

// Module represents an input module that loads a table from a source.
type Module interface {
	// Read loads the table. The context can be used to cancel the read.
	Read(ctx context.Context) (*table.Table, error)
	// Close releases any resources held by the module.
	Close() error
}
