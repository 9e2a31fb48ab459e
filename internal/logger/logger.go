// Package logger provides structured logging for report execution.
// It wraps the standard log/slog package so every component logs through one
// configurable logger with consistent snake_case field names.
//
// Two output formats are supported:
//   - JSON (default): machine-readable structured logging
//   - Human: console output with level glyphs and optional colors
//
// Logs are written to stderr so report JSON written to stdout stays clean.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// OutputFormat represents the log output format.
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format.
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format.
	FormatHuman
)

var (
	mu      sync.Mutex
	output  io.Writer = os.Stderr
	level             = slog.LevelInfo
	format            = FormatJSON
	logFile *os.File
)

func init() {
	Logger = slog.New(newHandler(output, level, format))
}

func newHandler(w io.Writer, lvl slog.Level, f OutputFormat) slog.Handler {
	if f == FormatHuman {
		return NewHumanHandler(w, &HumanHandlerOptions{
			Level:     lvl,
			UseColors: isTerminal(w),
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}

// rebuild must be called with mu held.
func rebuild() {
	console := newHandler(output, level, format)
	if logFile != nil {
		Logger = slog.New(&dualHandler{
			console: console,
			file:    slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
		})
		return
	}
	Logger = slog.New(console)
}

// SetLevel configures the logging level.
func SetLevel(lvl slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	rebuild()
}

// SetFormat sets the console output format.
func SetFormat(f OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	format = f
	rebuild()
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(lvl slog.Level, f OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	format = f
	rebuild()
}

// SetOutput redirects console output. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// ParseFormat maps a flag value ("json", "human") to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (want json or human)", s)
	}
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

// WithReport returns a logger with report context.
func WithReport(reportID string) *slog.Logger {
	return Logger.With(slog.String("report_id", reportID))
}

// =============================================================================
// Execution Context Types
// =============================================================================

// ExecutionContext contains context information for report execution logging.
type ExecutionContext struct {
	// ReportID is the identifier of the report (required)
	ReportID string
	// ReportName is the human-readable report name
	ReportName string
	// Stage is the execution stage (load, view, section, output)
	Stage string
	// Source is the dataset source name
	Source string
	// View is the view being resolved
	View string
	// Section is the section being computed
	Section string
	// SectionType is the registered type of the section
	SectionType string
}

// ErrorContext contains structured context for error logging.
type ErrorContext struct {
	ExecutionContext

	// Category is the errhandling category of the error
	Category string
	// Err is the underlying error
	Err error
	// Path is the input file involved, if any
	Path string
	// Duration is how long the failing step ran
	Duration time.Duration
	// Extra holds additional key-value pairs
	Extra map[string]interface{}
}

// ExecutionMetrics contains summary metrics for one report execution.
type ExecutionMetrics struct {
	TotalDuration   time.Duration
	LoadDuration    time.Duration
	SectionDuration time.Duration
	OutputDuration  time.Duration
	SourcesLoaded   int
	RowsLoaded      int
	ViewsResolved   int
	SectionsOK      int
	SectionsNoData  int
	SectionsFailed  int
}

// =============================================================================
// Execution Context Helpers
// =============================================================================

// WithExecution returns a logger with execution context attached.
// Only non-empty fields are included.
func WithExecution(ctx ExecutionContext) *slog.Logger {
	return Logger.With(buildContextAttrs(ctx)...)
}

// LogExecutionStart logs the start of a report execution.
func LogExecutionStart(ctx ExecutionContext, params map[string]string) {
	attrs := buildContextAttrs(ctx)
	if len(params) > 0 {
		attrs = append(attrs, slog.Any("params", params))
	}
	Logger.Info("execution started", attrs...)
}

// LogExecutionEnd logs the completion of a report execution.
func LogExecutionEnd(ctx ExecutionContext, status string, sections int, duration time.Duration) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.String("status", status),
		slog.Int("sections", sections),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
	Logger.Info("execution completed", attrs...)
}

// LogStageStart logs the start of an execution stage.
func LogStageStart(ctx ExecutionContext) {
	Logger.Debug("stage started", buildContextAttrs(ctx)...)
}

// LogStageEnd logs the completion of an execution stage.
// rowsIn/rowsOut of -1 are omitted.
func LogStageEnd(ctx ExecutionContext, rowsIn, rowsOut int, duration time.Duration, err error) {
	attrs := buildContextAttrs(ctx)
	if rowsIn >= 0 {
		attrs = append(attrs, slog.Int("rows_in", rowsIn))
	}
	if rowsOut >= 0 {
		attrs = append(attrs, slog.Int("rows_out", rowsOut))
	}
	attrs = append(attrs, slog.Int64("duration_ms", duration.Milliseconds()))

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		Logger.Warn("stage failed", attrs...)
		return
	}
	Logger.Debug("stage completed", attrs...)
}

// LogMetrics logs execution metrics.
func LogMetrics(ctx ExecutionContext, m ExecutionMetrics) {
	attrs := buildContextAttrs(ctx)
	attrs = append(attrs,
		slog.Int64("total_duration_ms", m.TotalDuration.Milliseconds()),
		slog.Int64("load_duration_ms", m.LoadDuration.Milliseconds()),
		slog.Int64("section_duration_ms", m.SectionDuration.Milliseconds()),
		slog.Int64("output_duration_ms", m.OutputDuration.Milliseconds()),
		slog.Int("sources_loaded", m.SourcesLoaded),
		slog.Int("rows_loaded", m.RowsLoaded),
		slog.Int("views_resolved", m.ViewsResolved),
		slog.Int("sections_ok", m.SectionsOK),
		slog.Int("sections_no_data", m.SectionsNoData),
		slog.Int("sections_failed", m.SectionsFailed),
	)
	Logger.Info("execution metrics", attrs...)
}

// LogError logs an error with full execution context.
func LogError(message string, errCtx ErrorContext) {
	attrs := buildContextAttrs(errCtx.ExecutionContext)

	if errCtx.Category != "" {
		attrs = append(attrs, slog.String("error_category", errCtx.Category))
	}
	if errCtx.Path != "" {
		attrs = append(attrs, slog.String("path", errCtx.Path))
	}
	if errCtx.Err != nil {
		attrs = append(attrs,
			slog.String("error", errCtx.Err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)),
		)
		chain := []string{errCtx.Err.Error()}
		for cur := errors.Unwrap(errCtx.Err); cur != nil; cur = errors.Unwrap(cur) {
			chain = append(chain, cur.Error())
		}
		if len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Int64("duration_ms", errCtx.Duration.Milliseconds()))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// buildContextAttrs builds slog attributes from an ExecutionContext.
func buildContextAttrs(ctx ExecutionContext) []any {
	attrs := make([]any, 0, 8)
	if ctx.ReportID != "" {
		attrs = append(attrs, slog.String("report_id", ctx.ReportID))
	}
	if ctx.ReportName != "" {
		attrs = append(attrs, slog.String("report_name", ctx.ReportName))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.Source != "" {
		attrs = append(attrs, slog.String("source", ctx.Source))
	}
	if ctx.View != "" {
		attrs = append(attrs, slog.String("view", ctx.View))
	}
	if ctx.Section != "" {
		attrs = append(attrs, slog.String("section", ctx.Section))
	}
	if ctx.SectionType != "" {
		attrs = append(attrs, slog.String("section_type", ctx.SectionType))
	}
	return attrs
}

// FormatMetricsHuman formats execution metrics for console summaries.
func FormatMetricsHuman(m ExecutionMetrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Computed %d sections from %d rows in %s",
		m.SectionsOK+m.SectionsNoData+m.SectionsFailed, m.RowsLoaded, formatDuration(m.TotalDuration))
	if m.SectionsNoData > 0 {
		fmt.Fprintf(&sb, ", %d without data", m.SectionsNoData)
	}
	if m.SectionsFailed > 0 {
		fmt.Fprintf(&sb, ", %d failed", m.SectionsFailed)
	}
	return sb.String()
}

// =============================================================================
// Log File Output Support
// =============================================================================

const maxLogFileSize = 10 * 1024 * 1024

// rotateLogFile renames path with a timestamp suffix once it reaches maxLogFileSize.
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

// SetLogFile makes the logger write JSON records to path in addition to the console.
func SetLogFile(path string) error {
	if err := rotateLogFile(path); err != nil {
		Warn("log rotation failed", slog.String("error", err.Error()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	mu.Lock()
	closeLocked()
	logFile = f
	rebuild()
	mu.Unlock()

	Info("log file opened", slog.String("path", path))
	return nil
}

// CloseLogFile closes the current log file if one is open.
func CloseLogFile() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	rebuild()
}

func closeLocked() {
	if logFile == nil {
		return
	}
	_ = logFile.Sync()
	_ = logFile.Close()
	logFile = nil
}
