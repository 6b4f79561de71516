// Package output provides implementations for output modules.
// Output modules are responsible for writing the transformed table to a destination.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// ErrNilConfig is returned when a constructor receives no configuration.
var ErrNilConfig = errors.New("output module configuration is nil")

// Module represents an output module that writes a table to a destination.
type Module interface {
	// Write persists the table. The context can be used to cancel the write.
	Write(ctx context.Context, t *table.Table) error
	// Close releases any resources held by the module.
	Close() error
}

// writeFile creates path (and its parent directory) and hands the file to write.
// Failures are reported as IO errors attributed to component.
func writeFile(ctx context.Context, component, path string, write func(f *os.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := pathutil.EnsureParentDir(path); err != nil {
		return errhandling.NewIOError(component, "preparing output directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errhandling.NewIOError(component, fmt.Sprintf("creating %s", path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return errhandling.NewIOError(component, fmt.Sprintf("writing %s", path), err)
	}
	if err := f.Close(); err != nil {
		return errhandling.NewIOError(component, fmt.Sprintf("closing %s", path), err)
	}
	return nil
}

func logWritten(component, path string, t *table.Table) {
	logger.Debug("output written",
		slog.String("module", component),
		slog.String("path", path),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumCols()),
	)
}
