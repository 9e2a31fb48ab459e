package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Error codes for script module
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingInclude       = "MISSING_INCLUDE"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// includeFunc is the function a script must define.
const includeFunc = "include"

// ScriptConfig represents the configuration for a script filter module.
// Exactly one of Script or ScriptFile must be provided.
type ScriptConfig struct {
	// Script is inline JavaScript defining include(row) -> boolean
	Script string `json:"script,omitempty"`
	// ScriptFile is a path to a JavaScript file, relative to BaseDir
	ScriptFile string `json:"scriptFile,omitempty"`
	// BaseDir is the report directory
	BaseDir string `json:"-"`
	// OnError is "fail" (default), "skip", or "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule keeps rows for which a JavaScript include(row) function
// returns a truthy value. Rows are passed as objects of typed values
// (numbers, strings, Date, null).
//
// Goja runtimes are not goroutine-safe, so Apply calls on one module are
// serialized.
type ScriptModule struct {
	onError   string
	mu        sync.Mutex
	runtime   *goja.Runtime
	console   *scriptConsole
	includeFn goja.Callable
}

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code       string
	Message    string
	RowIndex   int
	StackTrace string
	Err        error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, row int, err error) *ScriptError {
	return &ScriptError{Code: code, Message: message, RowIndex: row, Err: err}
}

// ParseScriptConfig parses raw config into a ScriptConfig.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	script, err := moduleconfig.OptionalString(cfg, "script", "")
	if err != nil {
		return ScriptConfig{}, err
	}
	scriptFile, err := moduleconfig.OptionalString(cfg, "scriptFile", "")
	if err != nil {
		return ScriptConfig{}, err
	}
	if script != "" && scriptFile != "" {
		return ScriptConfig{}, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}
	if script == "" && scriptFile == "" {
		return ScriptConfig{}, fmt.Errorf("either 'script' or 'scriptFile' is required in script config")
	}
	onError, err := moduleconfig.OnError(cfg)
	if err != nil {
		return ScriptConfig{}, err
	}
	return ScriptConfig{Script: script, ScriptFile: scriptFile, OnError: onError}, nil
}

// NewScriptFromConfig compiles the script and verifies include exists.
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, nil)
	}
	if len(source) > MaxScriptLength {
		return nil, newScriptError(ErrCodeScriptTooLong,
			fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(source), MaxScriptLength), -1, nil)
	}

	onError := config.OnError
	if onError == "" {
		onError = OnErrorFail
	}
	if err := moduleconfig.ValidateOnError(onError); err != nil {
		return nil, err
	}

	vm := goja.New()
	console, err := installConsole(vm)
	if err != nil {
		return nil, err
	}
	if _, err := vm.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, err)
	}

	val := vm.Get(includeFunc)
	if val == nil || goja.IsUndefined(val) {
		return nil, newScriptError(ErrCodeMissingInclude, "include function not found in script", -1, nil)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, newScriptError(ErrCodeMissingInclude, "include is not a function", -1, nil)
	}

	logger.Debug("script module initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{onError: onError, runtime: vm, console: console, includeFn: fn}, nil
}

// resolveScriptSource returns the inline script or reads ScriptFile.
func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, nil)
	}
	if config.Script != "" {
		return config.Script, nil
	}
	if config.ScriptFile == "" {
		return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", -1, nil)
	}

	if err := validateScriptFilePath(config.ScriptFile); err != nil {
		return "", err
	}
	path := config.ScriptFile
	if !filepath.IsAbs(path) && config.BaseDir != "" {
		path = filepath.Join(config.BaseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", path, err), -1, err)
	}
	defer f.Close()

	// Read one byte past the limit so oversized files are detected without loading them fully.
	content, err := io.ReadAll(io.LimitReader(f, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", path, err), -1, err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong,
			fmt.Sprintf("script file %q exceeds maximum length of %d bytes", path, MaxScriptLength), -1, nil)
	}
	return string(content), nil
}

// validateScriptFilePath rejects null bytes and ".." segments. The check runs
// on the uncleaned path so "scripts/../../etc/x.js" cannot slip through.
func validateScriptFilePath(filePath string) error {
	if strings.Contains(filePath, "\x00") {
		return newScriptError(ErrCodeInvalidScriptFile, "scriptFile path contains invalid characters", -1, nil)
	}
	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return newScriptError(ErrCodeInvalidScriptFile, fmt.Sprintf("scriptFile path contains path traversal: %q", filePath), -1, nil)
		}
	}
	return nil
}

// Apply implements Module.
func (m *ScriptModule) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Interrupt the runtime if ctx is canceled mid-evaluation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.runtime.Interrupt(ctx.Err().Error())
		case <-done:
		}
	}()
	defer m.runtime.ClearInterrupt()

	var failure error
	skipped := 0
	m.console.table = t.Name()
	defer func() { m.console.row = -1 }()

	out := t.Where(func(row int) bool {
		if failure != nil {
			return false
		}
		m.console.row = row
		result, err := m.includeFn(goja.Undefined(), m.runtime.ToValue(t.Row(row)))
		if err != nil {
			if ctx.Err() != nil {
				failure = ctx.Err()
				return false
			}
			scriptErr := m.wrapJSError(err, row)
			switch m.onError {
			case OnErrorFail:
				failure = scriptErr
			case OnErrorLog:
				logger.Warn("script error (row excluded)",
					slog.String("table", t.Name()),
					slog.Int("row_index", row),
					slog.String("error", scriptErr.Error()),
				)
			}
			skipped++
			return false
		}
		return result.ToBoolean()
	})

	if failure != nil {
		return nil, failure
	}
	if skipped > 0 {
		logger.Debug("script excluded rows that failed to evaluate",
			slog.String("table", t.Name()),
			slog.Int("error_count", skipped),
		)
	}
	return out, nil
}

func (m *ScriptModule) wrapJSError(err error, row int) *ScriptError {
	if jsErr, ok := err.(*goja.Exception); ok {
		se := newScriptError(ErrCodeExecutionFailed,
			fmt.Sprintf("script execution failed at row %d: %v", row, jsErr.Value()), row, err)
		if obj, ok := jsErr.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				se.StackTrace = stack.String()
			}
		}
		return se
	}
	return newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script execution failed at row %d: %v", row, err), row, err)
}

var _ Module = (*ScriptModule)(nil)
