// Package output provides implementations for output modules.
// Output modules write a finished report result to a destination.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// StdoutPath selects standard output as the destination.
const StdoutPath = "-"

// Module represents an output module that writes a report result.
type Module interface {
	// Write delivers the result to the destination.
	Write(ctx context.Context, result *report.Result) error

	// Close releases any resources held by the module.
	Close() error
}

// destination opens path for writing. "-" or an empty path is w. Parent
// directories are created.
func destination(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == StdoutPath {
		return nopCloser{stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file %q: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
