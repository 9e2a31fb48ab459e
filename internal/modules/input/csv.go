package input

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Default configuration values for the CSV module.
const (
	defaultDelimiter = ","
)

// CSVConfig configures a CSV source.
type CSVConfig struct {
	// Name is the source name used by views and logs.
	Name string
	// Path is the file path, resolved against BaseDir when relative.
	Path string
	// BaseDir is the directory of the report file.
	BaseDir string
	// Delimiter is a single character; defaults to ",".
	Delimiter string
	// Columns declares semantic types for named columns.
	Columns map[string]table.ColumnType
}

// CSVModule loads one delimited file through a shared Loader.
type CSVModule struct {
	name    string
	path    string
	columns map[string]table.ColumnType
	loader  *Loader
}

// NewCSVModule creates a CSV source module.
func NewCSVModule(cfg CSVConfig, loader *Loader) (*CSVModule, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("csv source: name is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv source %q: path is required", cfg.Name)
	}
	if loader == nil {
		return nil, fmt.Errorf("csv source %q: loader is required", cfg.Name)
	}

	delim := cfg.Delimiter
	if delim == "" {
		delim = defaultDelimiter
	}
	runes := []rune(delim)
	if len(runes) != 1 {
		return nil, fmt.Errorf("csv source %q: delimiter must be a single character, got %q", cfg.Name, delim)
	}
	if runes[0] != ',' {
		loader = loader.WithDelimiter(runes[0])
	}

	return &CSVModule{
		name:    cfg.Name,
		path:    ResolvePath(cfg.BaseDir, cfg.Path),
		columns: cfg.Columns,
		loader:  loader,
	}, nil
}

// Path returns the resolved file path.
func (m *CSVModule) Path() string { return m.path }

// Load returns the typed source table named after the source.
func (m *CSVModule) Load(ctx context.Context) (*table.Table, error) {
	t, err := m.loader.Load(ctx, m.path)
	if err != nil {
		return nil, err
	}
	typed, err := t.WithName(m.name).WithTypes(m.columns)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", m.name, err)
	}
	return typed, nil
}

// ResolvePath joins a relative path onto baseDir.
func ResolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

var _ Module = (*CSVModule)(nil)
