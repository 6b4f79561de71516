package runtime

import (
	"errors"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
	"github.com/Troge-dev/Transfory/pkg/recipe"
)

// Execution stages, used as the module of an ExecutionError.
const (
	StageInput    = "input"
	StagePipeline = "pipeline"
	StageState    = "state"
	StageOutput   = "output"
	StageReport   = "report"
)

// Common errors
var (
	// ErrNilRecipe is returned when the recipe is nil.
	ErrNilRecipe = errors.New("recipe is nil")

	// ErrNilInputModule is returned when the input module is nil.
	ErrNilInputModule = errors.New("input module is nil")
)

// buildExecutionError creates an ExecutionError coded with the error's category.
func buildExecutionError(stage string, err error) *recipe.ExecutionError {
	cl := errhandling.ClassifyError(err)
	ex := &recipe.ExecutionError{
		Code:    string(cl.Category),
		Message: err.Error(),
		Module:  stage,
	}
	if cl.Component != "" {
		ex.Details = map[string]interface{}{"component": cl.Component}
	}
	return ex
}

// logStageError logs a failed stage with its classified error.
func logStageError(ctx logger.RunContext, stage string, err error) {
	logger.LogError("execution stage failed", logger.ErrorContext{
		PipelineName:  ctx.PipelineName,
		Mode:          ctx.Mode,
		Stage:         stage,
		ErrorCategory: string(errhandling.GetErrorCategory(err)),
		ErrorMessage:  err.Error(),
		Err:           err,
		Extra:         map[string]interface{}{"user_error": errhandling.IsUserError(err)},
	})
}
