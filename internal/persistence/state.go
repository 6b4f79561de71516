// Package persistence saves fitted pipelines to disk and restores them.
// A state file records, for every step, its id, its registry kind, its
// construction configuration and its fitted parameters, so a pipeline fitted by
// one run can transform data in a later one.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Troge-dev/Transfory/internal/factory"
	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/pathutil"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/pipeline"
	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// DefaultStatePath is the default directory for state files.
const DefaultStatePath = "./transfory-data/state"

// StateVersion is the state file format version written by Save.
const StateVersion = 1

// Common errors
var (
	// ErrInvalidPipelineName is returned when the pipeline name is empty.
	ErrInvalidPipelineName = errors.New("pipeline name is required")

	// ErrNilPipeline is returned when the pipeline is nil.
	ErrNilPipeline = errors.New("pipeline is nil")
)

// State is the persisted form of a fitted pipeline.
type State struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// Pipeline is the pipeline name.
	Pipeline string `json:"pipeline"`

	// Steps lists the pipeline steps in order.
	Steps []StepState `json:"steps"`

	// SavedAt is when the state was written.
	SavedAt time.Time `json:"savedAt"`
}

// StepState is the persisted form of one fitted step.
type StepState struct {
	ID     string                 `json:"id"`
	Kind   string                 `json:"kind"`
	Config map[string]interface{} `json:"config,omitempty"`
	Params json.RawMessage        `json:"params"`
}

// StateStore provides thread-safe persistence of fitted pipelines.
// State files are stored as JSON, by default in the configured base path.
type StateStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewStateStore creates a new StateStore with the specified base path.
// If basePath is empty, DefaultStatePath is used.
func NewStateStore(basePath string) *StateStore {
	if basePath == "" {
		basePath = DefaultStatePath
	}
	return &StateStore{
		basePath: basePath,
	}
}

// PathFor returns the default state file for a pipeline name.
func (s *StateStore) PathFor(pipelineName string) string {
	// Sanitize the name to prevent directory traversal
	safeName := filepath.Base(pipelineName)
	return filepath.Join(s.basePath, safeName+".json")
}

// Save writes the fitted pipeline to PathFor(p.Name()).
func (s *StateStore) Save(p *pipeline.Pipeline) (string, error) {
	if p == nil {
		return "", ErrNilPipeline
	}
	if p.Name() == "" {
		return "", ErrInvalidPipelineName
	}
	path := s.PathFor(p.Name())
	return path, s.SaveFile(path, p)
}

// Load restores the pipeline saved under PathFor(pipelineName).
func (s *StateStore) Load(pipelineName string) (*pipeline.Pipeline, error) {
	if pipelineName == "" {
		return nil, ErrInvalidPipelineName
	}
	return s.LoadFile(s.PathFor(pipelineName))
}

// SaveFile writes the fitted pipeline to path.
// Uses atomic write (temp file + rename) to prevent corruption.
// The pipeline must be fitted, and every step must be persistable; nested
// pipelines are not supported.
func (s *StateStore) SaveFile(path string, p *pipeline.Pipeline) error {
	if p == nil {
		return ErrNilPipeline
	}
	if err := pathutil.ValidateDataPath(path); err != nil {
		return errhandling.NewConfigurationError("state", err.Error())
	}
	state, err := Snapshot(p)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errhandling.NewIOError("state", "marshaling state", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := pathutil.EnsureParentDir(path); err != nil {
		logger.Warn("failed to create state directory",
			"path", path,
			"error", err.Error(),
		)
		return errhandling.NewIOError("state", "creating state directory", err)
	}

	// Write to temp file first (atomic write)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		logger.Warn("failed to write temp state file",
			"pipeline_name", p.Name(),
			"path", tempPath,
			"error", err.Error(),
		)
		return errhandling.NewIOError("state", "writing temp state file", err)
	}

	// Rename temp file to final path (atomic on POSIX)
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		logger.Warn("failed to rename state file",
			"pipeline_name", p.Name(),
			"temp_path", tempPath,
			"final_path", path,
			"error", err.Error(),
		)
		return errhandling.NewIOError("state", "renaming state file", err)
	}

	logger.Info("state saved",
		"pipeline_name", p.Name(),
		"path", path,
		"steps", len(state.Steps),
	)
	return nil
}

// LoadFile restores a fitted pipeline from path. A missing file is a not-found
// error; an unreadable or malformed file is an IO error; an unknown kind or a
// rejected configuration is a configuration error.
func (s *StateStore) LoadFile(path string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errhandling.NewNotFoundError("state", "state file", path)
		}
		logger.Warn("failed to read state file",
			"path", path,
			"error", err.Error(),
		)
		return nil, errhandling.NewIOError("state", "reading state file", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errhandling.NewIOError("state", fmt.Sprintf("decoding %s", path), err)
	}

	p, err := Restore(&state)
	if err != nil {
		return nil, err
	}

	logger.Debug("state loaded",
		"pipeline_name", state.Pipeline,
		"path", path,
		"steps", len(state.Steps),
	)
	return p, nil
}

// Delete removes the state file for a pipeline.
// Returns nil if the file doesn't exist.
func (s *StateStore) Delete(pipelineName string) error {
	if pipelineName == "" {
		return ErrInvalidPipelineName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.PathFor(pipelineName)); err != nil && !os.IsNotExist(err) {
		return errhandling.NewIOError("state", "deleting state file", err)
	}
	return nil
}

// Exists checks if a state file exists at path.
func (s *StateStore) Exists(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errhandling.NewIOError("state", "checking state file", err)
	}
	return true, nil
}

// =============================================================================
// Snapshot / Restore
// =============================================================================

// Snapshot captures the fitted state of p.
func Snapshot(p *pipeline.Pipeline) (*State, error) {
	if !p.IsFitted() {
		return nil, errhandling.NewNotFittedError(p.Name(), "save")
	}
	state := &State{
		Version:  StateVersion,
		Pipeline: p.Name(),
		Steps:    make([]StepState, 0, p.Len()),
		SavedAt:  time.Now().UTC(),
	}
	for _, step := range p.Steps() {
		if _, nested := step.Transformer.(*pipeline.Pipeline); nested {
			return nil, errhandling.NewConfigurationError("state", fmt.Sprintf("step %q is a nested pipeline, which cannot be saved", step.ID))
		}
		persistable, ok := step.Transformer.(transformer.Persistable)
		if !ok {
			return nil, errhandling.NewConfigurationError("state", fmt.Sprintf("step %q (%s) does not support saving", step.ID, step.Transformer.Name()))
		}
		params, err := persistable.MarshalParams()
		if err != nil {
			return nil, errhandling.NewIOError("state", fmt.Sprintf("encoding parameters of step %q", step.ID), err)
		}
		state.Steps = append(state.Steps, StepState{
			ID:     step.ID,
			Kind:   persistable.Kind(),
			Config: persistable.Config(),
			Params: params,
		})
	}
	return state, nil
}

// Restore rebuilds a fitted pipeline from state through the registry.
func Restore(state *State, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	if state == nil {
		return nil, errhandling.NewConfigurationError("state", "state is nil")
	}
	if state.Version != StateVersion {
		return nil, errhandling.NewConfigurationError("state", fmt.Sprintf("unsupported state version %d (expected %d)", state.Version, StateVersion))
	}

	steps := make([]pipeline.Step, 0, len(state.Steps))
	for _, ss := range state.Steps {
		t, err := factory.CreateTransformer(ss.Kind, ss.Config)
		if err != nil {
			return nil, fmt.Errorf("restoring step %q: %w", ss.ID, err)
		}
		persistable, ok := t.(transformer.Persistable)
		if !ok {
			return nil, errhandling.NewConfigurationError("state", fmt.Sprintf("step %q: kind %q does not support restoring", ss.ID, ss.Kind))
		}
		if err := persistable.UnmarshalParams(ss.Params); err != nil {
			return nil, fmt.Errorf("restoring step %q: %w", ss.ID, err)
		}
		steps = append(steps, pipeline.Step{ID: ss.ID, Transformer: t})
	}

	if state.Pipeline != "" {
		opts = append([]pipeline.Option{pipeline.WithName(state.Pipeline)}, opts...)
	}
	p, err := pipeline.New(steps, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.MarkFitted(); err != nil {
		return nil, err
	}
	return p, nil
}
