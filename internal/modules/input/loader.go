package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/TheUndivideProject/Prototype-1/internal/cache"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// cancelCheckInterval is how many rows are read between context checks.
const cancelCheckInterval = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads delimited files into tables, memoized through a Cache.
type Loader struct {
	cache     *cache.Cache
	delimiter rune
}

// NewLoader creates a Loader backed by c. A nil cache disables memoization.
func NewLoader(c *cache.Cache) *Loader {
	return &Loader{cache: c, delimiter: ','}
}

// WithDelimiter returns a copy of the loader that splits on d.
func (l *Loader) WithDelimiter(d rune) *Loader {
	c := *l
	c.delimiter = d
	return &c
}

// Load returns the table for path. Repeated calls with the same path and
// delimiter return the cached table. A missing file, malformed quoting, or rows with inconsistent
// column counts fail with a ParseError.
func (l *Loader) Load(ctx context.Context, path string) (*table.Table, error) {
	if l.cache == nil {
		return l.parseFile(ctx, path)
	}
	t, hit, err := l.cache.GetOrLoad(ctx, path, l.delimiter, l.parseFile)
	if err != nil {
		return nil, err
	}
	if hit {
		logger.Debug("dataset served from cache", slog.String("path", path), slog.Int("rows", t.Len()))
	}
	return t, nil
}

func (l *Loader) parseFile(ctx context.Context, path string) (*table.Table, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errhandling.NewParseError(path, 0, "file does not exist", err)
		}
		return nil, errhandling.NewParseError(path, 0, "cannot open file", err)
	}
	defer f.Close()

	t, err := ReadCSV(ctx, f, path, l.delimiter)
	if err != nil {
		return nil, err
	}

	metrics.RowsLoaded.WithLabelValues(path).Add(float64(t.Len()))
	logger.Info("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return t, nil
}

// ReadCSV parses delimited text with a header row into a table named name.
func ReadCSV(ctx context.Context, r io.Reader, name string, delimiter rune) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	// FieldsPerRecord = 0 makes the reader enforce the header's width on every row.
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errhandling.NewParseError(name, 0, "file is empty (no header row)", err)
	}
	if err != nil {
		return nil, csvParseError(name, err)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	}

	var rows [][]string
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvParseError(name, err)
		}
		rows = append(rows, rec)
	}

	t, err := table.New(name, header, rows)
	if err != nil {
		return nil, errhandling.NewParseError(name, 1, fmt.Sprintf("invalid header: %v", err), err)
	}
	return t, nil
}

func csvParseError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		msg := pe.Err.Error()
		if errors.Is(pe.Err, csv.ErrFieldCount) {
			msg = "inconsistent column count"
		}
		return errhandling.NewParseError(name, pe.Line, msg, err)
	}
	return errhandling.NewParseError(name, 0, err.Error(), err)
}
