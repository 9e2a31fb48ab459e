// Package aggregate implements group-by reductions, ranking, and scalar
// statistics over tables.
//
// Reductions are pure functions of their input table. Group keys are the
// trimmed cell text; rows whose group key is null are excluded. Entries are
// reported in the order their key first appears in the table.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Op names a reduction.
type Op string

// Supported reductions.
const (
	OpSum     Op = "sum"
	OpCount   Op = "count"
	OpMedian  Op = "median"
	OpMean    Op = "mean"
	OpMin     Op = "min"
	OpMax     Op = "max"
	OpNUnique Op = "nunique"
)

// Valid reports whether op is a supported reduction.
func (op Op) Valid() bool {
	switch op {
	case OpSum, OpCount, OpMedian, OpMean, OpMin, OpMax, OpNUnique:
		return true
	}
	return false
}

// Reduction computes one value per group from Column.
// Column may be empty only for count, which then counts rows.
type Reduction struct {
	Op     Op     `json:"op"`
	Column string `json:"column,omitempty"`
	As     string `json:"as,omitempty"`
}

// Name is the key the reduction's values are reported under.
func (r Reduction) Name() string {
	switch {
	case r.As != "":
		return r.As
	case r.Column == "":
		return string(r.Op)
	default:
		return string(r.Op) + "_" + r.Column
	}
}

// Entry holds the reduced values of one group.
type Entry struct {
	Key    string
	Values map[string]float64
}

// Value returns the named reduction value.
func (e Entry) Value(name string) float64 { return e.Values[name] }

// Result is the output of GroupBy. Entries are in first-encountered key order.
type Result struct {
	GroupColumn string
	Reductions  []Reduction
	Entries     []Entry
}

// Len returns the number of groups.
func (r *Result) Len() int { return len(r.Entries) }

// Get returns the entry for key.
func (r *Result) Get(key string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Keys returns the group keys in entry order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Total sums the named value over all entries.
func (r *Result) Total(name string) float64 {
	total := decimal.Zero
	for _, e := range r.Entries {
		total = total.Add(decimal.NewFromFloat(e.Values[name]))
	}
	return total.InexactFloat64()
}

// GroupBy partitions t by groupColumn and applies each reduction to every group.
// With no reductions it counts rows per group.
func GroupBy(t *table.Table, groupColumn string, reductions ...Reduction) (*Result, error) {
	keyCol, err := t.ColumnIndex(groupColumn)
	if err != nil {
		return nil, err
	}
	if len(reductions) == 0 {
		reductions = []Reduction{{Op: OpCount}}
	}

	cols := make([]int, len(reductions))
	seen := make(map[string]bool, len(reductions))
	for i, r := range reductions {
		if !r.Op.Valid() {
			return nil, errhandling.NewValidationError(fmt.Sprintf("unknown reduction %q", r.Op), nil)
		}
		if seen[r.Name()] {
			return nil, errhandling.NewValidationError(fmt.Sprintf("duplicate reduction name %q", r.Name()), nil)
		}
		seen[r.Name()] = true

		cols[i] = -1
		if r.Column == "" {
			if r.Op != OpCount {
				return nil, errhandling.NewValidationError(fmt.Sprintf("reduction %q requires a column", r.Op), nil)
			}
			continue
		}
		if cols[i], err = t.ColumnIndex(r.Column); err != nil {
			return nil, err
		}
	}

	// Row indices per group, keys in first-seen order.
	var order []string
	groups := make(map[string][]int)
	for row := 0; row < t.Len(); row++ {
		key, ok := t.String(row, keyCol)
		if !ok {
			continue
		}
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	result := &Result{
		GroupColumn: groupColumn,
		Reductions:  reductions,
		Entries:     make([]Entry, 0, len(order)),
	}
	for _, key := range order {
		rows := groups[key]
		entry := Entry{Key: key, Values: make(map[string]float64, len(reductions))}
		for i, r := range reductions {
			v, err := reduce(t, rows, cols[i], r, key)
			if err != nil {
				return nil, err
			}
			entry.Values[r.Name()] = v
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func reduce(t *table.Table, rows []int, col int, r Reduction, group string) (float64, error) {
	switch r.Op {
	case OpCount:
		return float64(len(rows)), nil
	case OpSum:
		return sumRows(t, rows, col).InexactFloat64(), nil
	case OpNUnique:
		return float64(nuniqueRows(t, rows, col)), nil
	}

	values := numbersRows(t, rows, col)
	if len(values) == 0 {
		return 0, errhandling.NewEmptyGroupError(string(r.Op), r.Column, group)
	}
	switch r.Op {
	case OpMedian:
		sort.Float64s(values)
		return quantileSorted(values, 0.5), nil
	case OpMean:
		return mean(values), nil
	case OpMin:
		return minOf(values), nil
	case OpMax:
		return maxOf(values), nil
	}
	return 0, errhandling.NewValidationError(fmt.Sprintf("unknown reduction %q", r.Op), nil)
}

func sumRows(t *table.Table, rows []int, col int) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if d, ok := t.Decimal(row, col); ok {
			total = total.Add(d)
		}
	}
	return total
}

func nuniqueRows(t *table.Table, rows []int, col int) int {
	distinct := make(map[string]struct{})
	for _, row := range rows {
		if s, ok := t.String(row, col); ok {
			distinct[s] = struct{}{}
		}
	}
	return len(distinct)
}

func numbersRows(t *table.Table, rows []int, col int) []float64 {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := t.Float(row, col); ok {
			values = append(values, v)
		}
	}
	return values
}

func allRows(t *table.Table) []int {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return rows
}
