// Package classify buckets numeric values into labelled size classes.
package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/aggregate"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Unclassified is the default label for null or non-numeric values.
const Unclassified = "unclassified"

// Classifier maps a number to one of len(boundaries)+1 labels.
//
// With boundaries b0 < b1 < ... < bk the buckets are
//
//	(-inf, b0)  [b0, b1)  ...  [b(k-1), bk]  (bk, +inf)
//
// so the last bounded bucket includes its upper boundary. For boundaries
// [1e6, 1e7] and labels small, medium, large both 1e6 and 1e7 are medium.
// With a single boundary there is no bounded bucket: (-inf, b0) and [b0, +inf).
type Classifier struct {
	boundaries   []float64
	labels       []string
	unclassified string
}

// New validates boundaries and labels. An empty unclassified uses Unclassified.
func New(boundaries []float64, labels []string, unclassified string) (*Classifier, error) {
	if len(boundaries) == 0 {
		return nil, errhandling.NewValidationError("classifier needs at least one boundary", nil)
	}
	if len(labels) != len(boundaries)+1 {
		return nil, errhandling.NewValidationError(
			fmt.Sprintf("classifier with %d boundaries needs %d labels, got %d", len(boundaries), len(boundaries)+1, len(labels)), nil)
	}
	for i, b := range boundaries {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, errhandling.NewValidationError(fmt.Sprintf("boundary %d is not finite", i), nil)
		}
		if i > 0 && b <= boundaries[i-1] {
			return nil, errhandling.NewValidationError(
				fmt.Sprintf("boundaries must be strictly ascending: %v follows %v", b, boundaries[i-1]), nil)
		}
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, errhandling.NewValidationError("classifier labels cannot be empty", nil)
		}
		if seen[l] {
			return nil, errhandling.NewValidationError(fmt.Sprintf("duplicate classifier label %q", l), nil)
		}
		seen[l] = true
	}
	if unclassified == "" {
		unclassified = Unclassified
	}
	if seen[unclassified] {
		return nil, errhandling.NewValidationError(fmt.Sprintf("label %q collides with the unclassified label", unclassified), nil)
	}

	return &Classifier{
		boundaries:   append([]float64(nil), boundaries...),
		labels:       append([]string(nil), labels...),
		unclassified: unclassified,
	}, nil
}

// Labels returns every label the classifier can produce, bottom to top,
// followed by the unclassified label.
func (c *Classifier) Labels() []string {
	return append(append([]string(nil), c.labels...), c.unclassified)
}

// Classify labels a value. ok == false means the value is missing.
func (c *Classifier) Classify(v float64, ok bool) string {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return c.unclassified
	}
	b := c.boundaries
	last := len(b) - 1
	if v < b[0] {
		return c.labels[0]
	}
	if v > b[last] {
		return c.labels[last+1]
	}
	if v == b[last] {
		if last == 0 {
			return c.labels[1]
		}
		return c.labels[last]
	}
	for i := 1; i <= last; i++ {
		if v < b[i] {
			return c.labels[i]
		}
	}
	return c.labels[last]
}

// ClassifyRaw parses a raw cell and labels it.
func (c *Classifier) ClassifyRaw(raw string) string {
	return c.Classify(table.ParseNumber(raw))
}

// Tally counts the rows of t per label of column, and sums each of
// sumColumns per label. Every label appears, in Labels order, including
// those with no rows.
func (c *Classifier) Tally(t *table.Table, column string, sumColumns ...string) (*aggregate.Result, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	sumCols := make([]int, len(sumColumns))
	reductions := []aggregate.Reduction{{Op: aggregate.OpCount}}
	for i, name := range sumColumns {
		if sumCols[i], err = t.ColumnIndex(name); err != nil {
			return nil, err
		}
		reductions = append(reductions, aggregate.Reduction{Op: aggregate.OpSum, Column: name})
	}

	counts := make(map[string]int, len(c.labels)+1)
	sums := make(map[string][]decimal.Decimal, len(c.labels)+1)
	for _, label := range c.Labels() {
		sums[label] = make([]decimal.Decimal, len(sumCols))
	}
	for row := 0; row < t.Len(); row++ {
		label := c.Classify(t.Float(row, col))
		counts[label]++
		for i, sc := range sumCols {
			if d, ok := t.Decimal(row, sc); ok {
				sums[label][i] = sums[label][i].Add(d)
			}
		}
	}

	result := &aggregate.Result{GroupColumn: column, Reductions: reductions}
	for _, label := range c.Labels() {
		values := map[string]float64{string(aggregate.OpCount): float64(counts[label])}
		for i := range sumCols {
			values[reductions[i+1].Name()] = sums[label][i].InexactFloat64()
		}
		result.Entries = append(result.Entries, aggregate.Entry{Key: label, Values: values})
	}
	return result, nil
}
