// Package runtime provides the recipe execution engine.
// It orchestrates a run: read the input table, fit or apply the transformer
// pipeline, write the output, keep the fitted state and export the insight report.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Troge-dev/Transfory/internal/factory"
	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/modules/input"
	"github.com/Troge-dev/Transfory/internal/modules/output"
	"github.com/Troge-dev/Transfory/internal/persistence"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/insight"
	"github.com/Troge-dev/Transfory/pkg/pipeline"
	"github.com/Troge-dev/Transfory/pkg/recipe"
	"github.com/Troge-dev/Transfory/pkg/table"
)

// Executor is responsible for executing recipes.
// It orchestrates the execution flow: Input → Pipeline → Output, then saves the
// fitted state (fit mode) and exports the insight report.
//
// The Executor only interacts with modules through their public interfaces.
type Executor struct {
	inputModule  input.Module
	outputModule output.Module
	store        *persistence.StateStore
	reporter     *insight.Reporter
	dryRun       bool
}

// stageTimings holds the duration of each stage of one run.
type stageTimings struct {
	inputDuration    time.Duration
	pipelineDuration time.Duration
	outputDuration   time.Duration
}

// NewExecutorWithModules creates an executor with all collaborators configured.
//
// Parameters:
//   - inputModule: The input module that reads the table
//   - outputModule: Optional output module (nil skips the output stage)
//   - store: State store resolving the default state file (nil uses DefaultStatePath)
//   - reporter: Insight reporter receiving pipeline events (nil creates one)
//   - dryRun: If true, runs the pipeline but writes no output, state or report
func NewExecutorWithModules(
	inputModule input.Module,
	outputModule output.Module,
	store *persistence.StateStore,
	reporter *insight.Reporter,
	dryRun bool,
) *Executor {
	if store == nil {
		store = persistence.NewStateStore("")
	}
	if reporter == nil {
		reporter = insight.NewReporter()
	}
	return &Executor{
		inputModule:  inputModule,
		outputModule: outputModule,
		store:        store,
		reporter:     reporter,
		dryRun:       dryRun,
	}
}

// NewExecutorForRecipe creates the recipe's input and output modules through the
// factory and returns an executor using them.
func NewExecutorForRecipe(r *recipe.Recipe, store *persistence.StateStore, dryRun bool) (*Executor, error) {
	if r == nil {
		return nil, ErrNilRecipe
	}
	in, err := factory.CreateInputModule(r.Input)
	if err != nil {
		return nil, err
	}
	out, err := factory.CreateOutputModule(r.Output)
	if err != nil {
		return nil, err
	}
	return NewExecutorWithModules(in, out, store, nil, dryRun), nil
}

// Reporter returns the reporter that records the run's pipeline events.
func (e *Executor) Reporter() *insight.Reporter { return e.reporter }

// StatePath returns the state file used for r: the recipe's state path when set,
// otherwise the store's file for the recipe name.
func (e *Executor) StatePath(r *recipe.Recipe) string {
	if r.State != nil && r.State.Path != "" {
		return r.State.Path
	}
	return e.store.PathFor(r.Name)
}

// Fit builds the recipe's pipeline, fits it on the input table and writes the
// transformed table. The fitted pipeline is saved to StatePath(r).
//
// Returns both result and error; the result's Error describes the failed stage.
func (e *Executor) Fit(ctx context.Context, r *recipe.Recipe) (*recipe.ExecutionResult, error) {
	return e.execute(ctx, r, recipe.ModeFit)
}

// Transform restores the fitted pipeline from StatePath(r) and applies it to the
// input table.
//
// Returns both result and error; the result's Error describes the failed stage.
func (e *Executor) Transform(ctx context.Context, r *recipe.Recipe) (*recipe.ExecutionResult, error) {
	return e.execute(ctx, r, recipe.ModeTransform)
}

func (e *Executor) execute(ctx context.Context, r *recipe.Recipe, mode string) (*recipe.ExecutionResult, error) {
	startedAt := time.Now()
	result := &recipe.ExecutionResult{Mode: mode, Status: recipe.StatusError, StartedAt: startedAt}
	var timings stageTimings

	if err := e.validateExecution(r, result); err != nil {
		return result, err
	}
	result.PipelineName = r.Name

	runCtx := logger.RunContext{PipelineName: r.Name, Mode: mode, StepIndex: -1, DryRun: e.dryRun}
	logger.LogRunStart(runCtx)
	fail := func(stage string, rows int, err error) (*recipe.ExecutionResult, error) {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(stage, err)
		logStageError(runCtx, stage, err)
		logger.LogRunEnd(runCtx, recipe.StatusError, rows, time.Since(startedAt))
		return result, fmt.Errorf("executing %s stage: %w", stage, err)
	}

	if e.outputModule != nil {
		defer e.closeModule(r.Name, StageOutput, e.outputModule)
	}

	// Input
	data, inputDuration, err := e.executeInput(ctx, runCtx)
	timings.inputDuration = inputDuration
	e.closeModule(r.Name, StageInput, e.inputModule)
	if err != nil {
		return fail(StageInput, 0, err)
	}
	result.RowsIn, result.ColumnsIn = data.NumRows(), data.NumCols()

	features, target, err := splitTarget(data, r.Target, mode)
	if err != nil {
		return fail(StageInput, result.RowsIn, err)
	}

	// Pipeline (and, in transform mode, the state it is restored from)
	var p *pipeline.Pipeline
	if mode == recipe.ModeFit {
		p, err = factory.CreatePipeline(r, pipeline.WithLogFunc(e.reporter.Callback()))
		if err != nil {
			return fail(StagePipeline, result.RowsIn, err)
		}
	} else {
		statePath := e.StatePath(r)
		p, err = e.store.LoadFile(statePath)
		if err != nil {
			return fail(StageState, result.RowsIn, err)
		}
		result.StatePath = statePath
		warnOnStepMismatch(runCtx, r, p)
		p.SetLogging("", e.reporter.Callback())
	}
	result.StepsExecuted = p.Len()

	transformed, pipelineDuration, err := e.executePipeline(ctx, runCtx, p, features, target, mode)
	timings.pipelineDuration = pipelineDuration
	if err != nil {
		return fail(StagePipeline, result.RowsIn, err)
	}
	transformed = attachTarget(runCtx, transformed, target)
	result.RowsOut, result.ColumnsOut = transformed.NumRows(), transformed.NumCols()

	// Output, state and report are side effects skipped by a dry run.
	if !e.dryRun {
		outputDuration, err := e.executeOutput(ctx, runCtx, transformed)
		timings.outputDuration = outputDuration
		if err != nil {
			return fail(StageOutput, result.RowsOut, err)
		}

		if mode == recipe.ModeFit {
			statePath := e.StatePath(r)
			if err := e.store.SaveFile(statePath, p); err != nil {
				return fail(StageState, result.RowsOut, err)
			}
			result.StatePath = statePath
		}

		if r.Report != nil && r.Report.Path != "" {
			format := r.Report.Format
			if format == "" {
				format = insight.ExportJSON
			}
			if err := e.reporter.Export(r.Report.Path, format); err != nil {
				return fail(StageReport, result.RowsOut, err)
			}
			result.ReportPath = r.Report.Path
		}
	}

	e.finalizeSuccessWithMetrics(result, startedAt, runCtx, timings)
	return result, nil
}

// validateExecution validates the recipe and modules before execution.
func (e *Executor) validateExecution(r *recipe.Recipe, result *recipe.ExecutionResult) error {
	if r == nil {
		logger.Error("execution failed: nil recipe")
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError("", ErrNilRecipe)
		return ErrNilRecipe
	}
	if e.inputModule == nil {
		logger.WithPipeline(r.Name).Error("execution failed: input module is nil")
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(StageInput, ErrNilInputModule)
		return ErrNilInputModule
	}
	return nil
}

// moduleCloser interface for modules that can be closed.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(pipelineName, moduleName string, m moduleCloser) {
	if err := m.Close(); err != nil {
		logger.WithPipeline(pipelineName).Warn("failed to close module",
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}

// executeInput reads the input table.
func (e *Executor) executeInput(ctx context.Context, runCtx logger.RunContext) (*table.Table, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = StageInput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	data, err := e.inputModule.Read(ctx)
	duration := time.Since(start)
	if err != nil {
		logger.LogStageEnd(stageCtx, 0, duration, &logger.StageError{
			Category: string(errhandling.GetErrorCategory(err)),
			Message:  err.Error(),
		})
		return nil, duration, err
	}
	logger.LogStageEnd(stageCtx, data.NumRows(), duration, nil)
	return data, duration, nil
}

// executePipeline fits and transforms (fit mode) or only transforms the features.
func (e *Executor) executePipeline(ctx context.Context, runCtx logger.RunContext, p *pipeline.Pipeline, features *table.Table, target *table.Column, mode string) (*table.Table, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	stageCtx := runCtx
	stageCtx.Stage = StagePipeline
	logger.LogStageStart(stageCtx)

	start := time.Now()
	var out *table.Table
	var err error
	if mode == recipe.ModeFit {
		out, err = p.FitTransform(features, target)
	} else {
		out, err = p.Transform(features)
	}
	duration := time.Since(start)
	if err != nil {
		logger.LogStageEnd(stageCtx, features.NumRows(), duration, &logger.StageError{
			Category: string(errhandling.GetErrorCategory(err)),
			Message:  err.Error(),
		})
		return nil, duration, err
	}
	logger.LogStageEnd(stageCtx, out.NumRows(), duration, nil)
	return out, duration, nil
}

// executeOutput writes the transformed table when an output module is configured.
func (e *Executor) executeOutput(ctx context.Context, runCtx logger.RunContext, data *table.Table) (time.Duration, error) {
	if e.outputModule == nil {
		return 0, nil
	}
	stageCtx := runCtx
	stageCtx.Stage = StageOutput
	logger.LogStageStart(stageCtx)

	start := time.Now()
	err := e.outputModule.Write(ctx, data)
	duration := time.Since(start)
	if err != nil {
		logger.LogStageEnd(stageCtx, 0, duration, &logger.StageError{
			Category: string(errhandling.GetErrorCategory(err)),
			Message:  err.Error(),
		})
		return duration, err
	}
	logger.LogStageEnd(stageCtx, data.NumRows(), duration, nil)
	return duration, nil
}

// finalizeSuccessWithMetrics marks the execution as successful and logs completion with detailed metrics.
func (e *Executor) finalizeSuccessWithMetrics(result *recipe.ExecutionResult, startedAt time.Time, runCtx logger.RunContext, timings stageTimings) {
	result.Status = recipe.StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	totalDuration := time.Since(startedAt)
	var rowsPerSecond float64
	if result.RowsIn > 0 && totalDuration > 0 {
		rowsPerSecond = float64(result.RowsIn) / totalDuration.Seconds()
	}

	logger.LogRunEnd(runCtx, recipe.StatusSuccess, result.RowsOut, totalDuration)
	logger.LogMetrics(runCtx, logger.RunMetrics{
		TotalDuration:    totalDuration,
		InputDuration:    timings.inputDuration,
		PipelineDuration: timings.pipelineDuration,
		OutputDuration:   timings.outputDuration,
		RowsIn:           result.RowsIn,
		RowsOut:          result.RowsOut,
		ColumnsIn:        result.ColumnsIn,
		ColumnsOut:       result.ColumnsOut,
		StepsExecuted:    result.StepsExecuted,
		RowsPerSecond:    rowsPerSecond,
	})
}

// =============================================================================
// Target handling
// =============================================================================

// splitTarget removes the target column from data. The target must exist when
// fitting; at transform time it is optional.
func splitTarget(data *table.Table, name, mode string) (*table.Table, *table.Column, error) {
	if name == "" {
		return data, nil, nil
	}
	col, ok := data.Column(name)
	if !ok {
		if mode == recipe.ModeFit {
			return nil, nil, errhandling.NewSchemaError("runtime", fmt.Sprintf("target column %q not found in input", name))
		}
		return data, nil, nil
	}
	return data.Drop(name), col, nil
}

// attachTarget appends the target column to data when the row count is unchanged.
func attachTarget(runCtx logger.RunContext, data *table.Table, target *table.Column) *table.Table {
	if target == nil {
		return data
	}
	log := logger.WithRun(runCtx)
	if target.Len() != data.NumRows() {
		log.Warn("target column not re-attached: row count changed",
			slog.String("target", target.Name()),
			slog.Int("target_rows", target.Len()),
			slog.Int("rows", data.NumRows()),
		)
		return data
	}
	out, err := table.NewBuilder(data).Set(target).Build()
	if err != nil {
		log.Warn("target column not re-attached",
			slog.String("target", target.Name()),
			slog.String("error", err.Error()),
		)
		return data
	}
	return out
}

// warnOnStepMismatch logs when the saved pipeline's steps differ from the recipe's.
// The saved steps are authoritative at transform time.
func warnOnStepMismatch(runCtx logger.RunContext, r *recipe.Recipe, p *pipeline.Pipeline) {
	want, got := r.StepIDs(), p.StepIDs()
	same := len(want) == len(got)
	for i := 0; same && i < len(want); i++ {
		same = want[i] == got[i]
	}
	if !same {
		logger.WithRun(runCtx).Warn("saved pipeline steps differ from the recipe; using saved steps",
			slog.Any("recipe_steps", want),
			slog.Any("saved_steps", got),
		)
	}
}
