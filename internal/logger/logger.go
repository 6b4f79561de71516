// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across transformers,
// pipelines and the command line.
//
// Run context helpers log run start/end, stage start/end, step start/end and
// metrics with consistent snake_case field names.
//
// The package supports two output formats:
//   - JSON (default): Machine-readable structured logging
//   - Human: Human-readable console output with colors and prefixes
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Logger is the default logger instance.
var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithPipeline returns a logger with pipeline context.
func WithPipeline(pipelineName string) *slog.Logger {
	return Logger.With(slog.String("pipeline_name", pipelineName))
}

// WithStep returns a logger with step context.
func WithStep(stepID string, transformer string) *slog.Logger {
	return Logger.With(slog.String("step_id", stepID), slog.String("transformer", transformer))
}

// =============================================================================
// Run Context Types
// =============================================================================

// RunContext describes one fit or transform run for logging.
type RunContext struct {
	// PipelineName is the name of the pipeline (required)
	PipelineName string
	// Mode is fit or transform
	Mode string
	// Stage is the current stage (input, pipeline, output)
	Stage string
	// StepID is the id of the step being executed
	StepID string
	// Transformer is the name of the step's transformer
	Transformer string
	// StepIndex is the position of the step; negative when not in a step
	StepIndex int
	// DryRun indicates that no output is written
	DryRun bool
}

// StageError contains structured error information for stage logging.
type StageError struct {
	// Category is the error category (configuration, not_fitted, schema, ...)
	Category string
	// Message is the human-readable error message
	Message string
}

// ErrorContext contains structured context for error logging.
type ErrorContext struct {
	PipelineName string
	Mode         string
	Stage        string
	StepID       string
	Transformer  string

	ErrorCategory string
	ErrorMessage  string
	Err           error

	RowCount int
	Duration time.Duration

	// Extra holds additional key-value pairs
	Extra map[string]interface{}
}

// RunMetrics contains performance metrics of one run.
type RunMetrics struct {
	TotalDuration    time.Duration
	InputDuration    time.Duration
	PipelineDuration time.Duration
	OutputDuration   time.Duration
	RowsIn           int
	RowsOut          int
	ColumnsIn        int
	ColumnsOut       int
	StepsExecuted    int
	RowsPerSecond    float64
}

// =============================================================================
// Run Context Helpers
// =============================================================================

// WithRun returns a logger with the run context attached.
func WithRun(ctx RunContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogRunStart logs the start of a run.
func LogRunStart(ctx RunContext) {
	Logger.Info("run started", buildContextAttrs(ctx)...)
}

// LogRunEnd logs the end of a run with its final status.
func LogRunEnd(ctx RunContext, status string, rows int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("rows", rows),
		slog.Duration("duration", duration),
	)
	Logger.Info("run completed", attrs...)
}

// LogStageStart logs the start of a stage (input, pipeline, output).
func LogStageStart(ctx RunContext) {
	Logger.Info("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the end of a stage. A non-nil err logs at error level.
func LogStageEnd(ctx RunContext, rows int, duration time.Duration, err *StageError) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int("rows", rows),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("error_category", err.Category),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// LogStepStart logs the start of one pipeline step at debug level.
func LogStepStart(ctx RunContext, shape []int) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs, slog.Any("shape", shape))
	Logger.Debug("step started", attrs...)
}

// LogStepEnd logs the end of one pipeline step at debug level.
func LogStepEnd(ctx RunContext, shape []int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Any("output_shape", shape),
		slog.Duration("duration", duration),
	)
	Logger.Debug("step completed", attrs...)
}

// LogMetrics logs run metrics.
func LogMetrics(ctx RunContext, metrics RunMetrics) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Duration("total_duration", metrics.TotalDuration),
		slog.Duration("input_duration", metrics.InputDuration),
		slog.Duration("pipeline_duration", metrics.PipelineDuration),
		slog.Duration("output_duration", metrics.OutputDuration),
		slog.Int("rows_in", metrics.RowsIn),
		slog.Int("rows_out", metrics.RowsOut),
		slog.Int("columns_in", metrics.ColumnsIn),
		slog.Int("columns_out", metrics.ColumnsOut),
		slog.Int("steps_executed", metrics.StepsExecuted),
		slog.Float64("rows_per_second", metrics.RowsPerSecond),
	)
	Logger.Info("run metrics", attrs...)
}

// LogError logs an error with its run context and unwrapped error chain.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 16)

	if errCtx.PipelineName != "" {
		attrs = append(attrs, slog.String("pipeline_name", errCtx.PipelineName))
	}
	if errCtx.Mode != "" {
		attrs = append(attrs, slog.String("mode", errCtx.Mode))
	}
	if errCtx.Stage != "" {
		attrs = append(attrs, slog.String("stage", errCtx.Stage))
	}
	if errCtx.StepID != "" {
		attrs = append(attrs, slog.String("step_id", errCtx.StepID))
	}
	if errCtx.Transformer != "" {
		attrs = append(attrs, slog.String("transformer", errCtx.Transformer))
	}
	if errCtx.ErrorCategory != "" {
		attrs = append(attrs, slog.String("error_category", errCtx.ErrorCategory))
	}
	if errCtx.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", errCtx.ErrorMessage))
	}
	if errCtx.Err != nil {
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)))

		chain := []string{errCtx.Err.Error()}
		for current := errors.Unwrap(errCtx.Err); current != nil; current = errors.Unwrap(current) {
			chain = append(chain, current.Error())
		}
		if len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	if errCtx.RowCount > 0 {
		attrs = append(attrs, slog.Int("row_count", errCtx.RowCount))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds slog attributes from a RunContext.
// Only non-empty fields are included.
func buildContextAttrs(ctx RunContext) []any {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("pipeline_name", ctx.PipelineName))

	if ctx.Mode != "" {
		attrs = append(attrs, slog.String("mode", ctx.Mode))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.StepID != "" {
		attrs = append(attrs, slog.String("step_id", ctx.StepID))
	}
	if ctx.Transformer != "" {
		attrs = append(attrs, slog.String("transformer", ctx.Transformer))
	}
	if ctx.StepIndex >= 0 && ctx.StepID != "" {
		attrs = append(attrs, slog.Int("step_index", ctx.StepIndex))
	}
	if ctx.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	return attrs
}

// =============================================================================
// Human-Readable Log Format Support
// =============================================================================

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format with colors and prefixes
	FormatHuman
)

// ParseFormat maps "json" and "human" to an OutputFormat.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q", name)
	}
}

// SetLevelAndFormat sets both the log level and format. Logs go to stderr so that
// command output on stdout stays clean.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(consoleHandler(os.Stderr, level, format))
}

func consoleHandler(w io.Writer, level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	// Level is the minimum log level to output
	Level slog.Level
	// UseColors enables ANSI color codes
	UseColors bool
}

// HumanHandler is a slog handler that outputs human-readable log messages.
// Attribute keys are qualified with the open groups, as in "group.key".
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewHumanHandler creates a new human-readable log handler.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{
		opts:   *opts,
		writer: w,
	}
}

// Enabled returns true if the handler is enabled for the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// maxInlineAttrs bounds the attributes printed on one line.
const maxInlineAttrs = 6

// Handle outputs a log record in human-readable format.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(h.levelPrefix(r.Level, r.Message))
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	var keyAttrs []string
	r.Attrs(func(a slog.Attr) bool {
		keyAttrs = append(keyAttrs, formatAttr(h.qualify(a)))
		return true
	})
	for _, a := range h.attrs {
		keyAttrs = append(keyAttrs, formatAttr(a))
	}

	if len(keyAttrs) > 0 {
		sb.WriteString(" ")
		shown := min(len(keyAttrs), maxInlineAttrs)
		sb.WriteString(strings.Join(keyAttrs[:shown], " "))
		if len(keyAttrs) > maxInlineAttrs {
			fmt.Fprintf(&sb, " (+%d more)", len(keyAttrs)-maxInlineAttrs)
		}
	}

	sb.WriteString("\n")
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, h.qualify(a))
	}
	return &HumanHandler{opts: h.opts, writer: h.writer, attrs: merged, groups: h.groups}
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	groups := append(append([]string(nil), h.groups...), name)
	return &HumanHandler{opts: h.opts, writer: h.writer, attrs: h.attrs, groups: groups}
}

// qualify prefixes the attribute key with the handler's groups.
func (h *HumanHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	a.Key = strings.Join(h.groups, ".") + "." + a.Key
	return a
}

// levelPrefix returns the symbol of a level, ✓ for info messages reporting success.
func (h *HumanHandler) levelPrefix(level slog.Level, message string) string {
	lower := strings.ToLower(message)
	success := strings.Contains(lower, "completed") || strings.Contains(lower, "success")

	var prefix string
	var c *color.Color
	switch {
	case level >= slog.LevelError:
		prefix, c = "✗", color.New(color.FgRed)
	case level >= slog.LevelWarn:
		prefix, c = "⚠", color.New(color.FgYellow)
	case level >= slog.LevelInfo && success:
		prefix, c = "✓", color.New(color.FgGreen)
	case level >= slog.LevelInfo:
		prefix, c = "ℹ", color.New(color.FgCyan)
	default:
		return "·"
	}

	if !h.opts.UseColors {
		return prefix
	}
	c.EnableColor()
	return c.Sprint(prefix)
}

// formatAttr formats a single attribute for display.
func formatAttr(a slog.Attr) string {
	switch v := a.Value.Any().(type) {
	case time.Duration:
		return fmt.Sprintf("%s=%s", a.Key, FormatDuration(v))
	case float64:
		return fmt.Sprintf("%s=%.2f", a.Key, v)
	default:
		return fmt.Sprintf("%s=%v", a.Key, v)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// FormatMetricsHuman formats run metrics in a human-readable way.
func FormatMetricsHuman(metrics RunMetrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transformed %d rows x %d columns into %d rows x %d columns in %s",
		metrics.RowsIn, metrics.ColumnsIn, metrics.RowsOut, metrics.ColumnsOut,
		FormatDuration(metrics.TotalDuration))
	if metrics.StepsExecuted > 0 {
		fmt.Fprintf(&sb, " (%d steps)", metrics.StepsExecuted)
	}
	if metrics.RowsPerSecond > 0 {
		fmt.Fprintf(&sb, ", %.1f rows/sec", metrics.RowsPerSecond)
	}
	return sb.String()
}

// =============================================================================
// Log File Output Support
// =============================================================================

// logFile holds the currently open log file (if any)
var logFile *os.File

// maxLogFileSize is the size at which an existing log file is rotated (10MB)
const maxLogFileSize = 10 * 1024 * 1024

// rotateLogFile renames the log file with a timestamp suffix once it exceeds
// maxLogFileSize.
func rotateLogFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking log file size: %w", err)
	}
	if info.Size() < maxLogFileSize {
		return nil
	}
	rotated := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102-150405"))
	if err := os.Rename(path, rotated); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	return nil
}

// SetLogFile configures logging to write to both stderr and the given file.
// File logs are always JSON.
func SetLogFile(path string, level slog.Level, consoleFormat OutputFormat) error {
	CloseLogFile()

	if err := rotateLogFile(path); err != nil {
		Warn("log rotation failed", slog.String("error", err.Error()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	Logger = slog.New(&dualHandler{
		console: consoleHandler(os.Stderr, level, consoleFormat),
		file:    slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}),
	})

	Debug("log file opened",
		slog.String("path", path),
		slog.String("console_format", formatName(consoleFormat)),
	)
	return nil
}

// CloseLogFile closes the current log file if one is open.
func CloseLogFile() {
	if logFile == nil {
		return
	}
	if err := logFile.Sync(); err != nil {
		Warn("failed to sync log file", slog.String("error", err.Error()))
	}
	if err := logFile.Close(); err != nil {
		Warn("failed to close log file", slog.String("error", err.Error()))
	}
	logFile = nil
}

func formatName(f OutputFormat) string {
	if f == FormatHuman {
		return "human"
	}
	return "json"
}

// dualHandler writes every record to both a console and a file handler.
type dualHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (d *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.console.Enabled(ctx, level) || d.file.Enabled(ctx, level)
}

func (d *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	if d.console.Enabled(ctx, r.Level) {
		if err := d.console.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if d.file.Enabled(ctx, r.Level) {
		if err := d.file.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{console: d.console.WithAttrs(attrs), file: d.file.WithAttrs(attrs)}
}

func (d *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{console: d.console.WithGroup(name), file: d.file.WithGroup(name)}
}
