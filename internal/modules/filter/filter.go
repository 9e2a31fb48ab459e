// Package filter provides the Entity Filter and Cross-Table Joiner modules.
//
// Every filter narrows a table to the rows matching a predicate. The result
// keeps the original row order and all columns, and shares row storage with
// its input: filter(T) is always a subset of T. Referencing a column that
// does not exist fails with a SchemaError.
package filter

import (
	"context"
	"log/slog"
	"time"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// cancelCheckInterval is how many rows are evaluated between context checks.
const cancelCheckInterval = 1024

// OnError behavior constants.
const (
	OnErrorFail = moduleconfig.OnErrorFail
	OnErrorSkip = moduleconfig.OnErrorSkip
	OnErrorLog  = moduleconfig.OnErrorLog
)

// Module represents a filter module that narrows a table.
type Module interface {
	// Apply returns the rows of t that match the module's predicate.
	Apply(ctx context.Context, t *table.Table) (*table.Table, error)
}

// RowMatcher decides whether one row of a table matches. col is the index of
// the column the filter was configured with.
type RowMatcher func(t *table.Table, row, col int) bool

// WhereColumn resolves column on t and keeps the rows for which match returns true.
func WhereColumn(t *table.Table, column string, match RowMatcher) (*table.Table, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	return t.Where(func(row int) bool { return match(t, row, col) }), nil
}

// Chain applies modules in order, logging the row count after each step.
func Chain(ctx context.Context, t *table.Table, modules []Module) (*table.Table, error) {
	current := t
	for i, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		rowsIn := current.Len()

		next, err := m.Apply(ctx, current)
		if err != nil {
			return nil, err
		}

		logger.Debug("filter applied",
			slog.String("table", t.Name()),
			slog.Int("filter_index", i),
			slog.Int("rows_in", rowsIn),
			slog.Int("rows_out", next.Len()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		current = next
	}
	return current, nil
}
