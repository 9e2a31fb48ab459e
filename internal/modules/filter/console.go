package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
)

// MaxLogMessageLength bounds a single console message (8KB).
const MaxLogMessageLength = 8 * 1024

// scriptConsole routes console.log/info/warn/error/debug from a predicate
// script to the structured logger, tagged with the row being evaluated.
type scriptConsole struct {
	table string
	row   int
}

func installConsole(vm *goja.Runtime) (*scriptConsole, error) {
	c := &scriptConsole{row: -1}
	console := vm.NewObject()
	levels := map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	}
	for name, level := range levels {
		level := level
		fn := func(call goja.FunctionCall) goja.Value {
			c.emit(level, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return nil, fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return nil, fmt.Errorf("runtime.Set(console): %w", err)
	}
	return c, nil
}

func (c *scriptConsole) emit(level slog.Level, args []goja.Value) {
	message := formatConsoleArgs(args)
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength-3] + "..."
	}

	attrs := []any{slog.String("source", "javascript")}
	if c.table != "" {
		attrs = append(attrs, slog.String("table", c.table))
	}
	if c.row >= 0 {
		attrs = append(attrs, slog.Int("row_index", c.row))
	}

	switch level {
	case slog.LevelDebug:
		logger.Debug(message, attrs...)
	case slog.LevelWarn:
		logger.Warn(message, attrs...)
	case slog.LevelError:
		logger.Error(message, attrs...)
	default:
		logger.Info(message, attrs...)
	}
}

func formatConsoleArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatConsoleValue(arg))
	}
	return strings.Join(parts, " ")
}

// formatConsoleValue prints strings bare and everything else as JSON.
// Values JSON cannot encode (cycles, functions) fall back to their JS string form.
func formatConsoleValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	exported := v.Export()
	if s, ok := exported.(string); ok {
		return s
	}
	data, err := json.Marshal(exported)
	if err != nil {
		return v.String()
	}
	return string(data)
}
