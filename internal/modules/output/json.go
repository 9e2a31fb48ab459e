package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// JSONConfig configures the json output.
type JSONConfig struct {
	// Path is the file to write, or "-" for stdout
	Path string `json:"path"`
	// Pretty indents the document
	Pretty bool `json:"pretty"`
}

// JSONModule writes the result as a JSON document.
type JSONModule struct {
	config JSONConfig
	stdout io.Writer
}

// ParseJSONConfig parses raw config into a JSONConfig.
func ParseJSONConfig(cfg map[string]interface{}) (JSONConfig, error) {
	path, err := moduleconfig.OptionalString(cfg, "path", StdoutPath)
	if err != nil {
		return JSONConfig{}, err
	}
	pretty, err := moduleconfig.Bool(cfg, "pretty", true)
	if err != nil {
		return JSONConfig{}, err
	}
	return JSONConfig{Path: path, Pretty: pretty}, nil
}

// NewJSON creates a json output writing to config.Path.
func NewJSON(config JSONConfig) *JSONModule {
	return &JSONModule{config: config, stdout: os.Stdout}
}

// WithStdout redirects "-" to w.
func (m *JSONModule) WithStdout(w io.Writer) *JSONModule {
	m.stdout = w
	return m
}

// Write implements Module.
func (m *JSONModule) Write(ctx context.Context, result *report.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := destination(m.config.Path, m.stdout)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	if m.config.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		_ = w.Close()
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", m.config.Path, err)
	}

	logger.Debug("result written",
		slog.String("module_type", "json"),
		slog.String("path", m.config.Path),
		slog.Int("sections", len(result.Sections)),
	)
	return nil
}

// Close implements Module.
func (m *JSONModule) Close() error { return nil }

var _ Module = (*JSONModule)(nil)
