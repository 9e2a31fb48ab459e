package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Skewness labels.
const (
	SkewRight  = "right-skewed"
	SkewLeft   = "left-skewed"
	SkewNormal = "Normal"
)

// Scalar is a statistic that is either a number or, for date columns, a time.
type Scalar struct {
	Number float64
	Time   time.Time
	IsTime bool
}

// String formats the scalar, dates as YYYY-MM-DD.
func (s Scalar) String() string {
	if s.IsTime {
		return s.Time.Format("2006-01-02")
	}
	return decimal.NewFromFloat(s.Number).String()
}

// Bin is one histogram bucket. Every bin is [Lower, Upper) except the
// last, which also includes Upper.
type Bin struct {
	Lower float64
	Upper float64
	Count int
}

// Numbers returns the non-null numeric values of column in row order.
func Numbers(t *table.Table, column string) ([]float64, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	return numbersRows(t, allRows(t), col), nil
}

// Sum adds the non-null values of column exactly. An empty column sums to zero.
func Sum(t *table.Table, column string) (decimal.Decimal, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return decimal.Zero, err
	}
	return sumRows(t, allRows(t), col), nil
}

// Count returns the number of rows, null values included. An empty column
// counts all rows of t.
func Count(t *table.Table, column string) (int, error) {
	if column != "" {
		if _, err := t.ColumnIndex(column); err != nil {
			return 0, err
		}
	}
	return t.Len(), nil
}

// NUnique returns the number of distinct non-null values of column.
func NUnique(t *table.Table, column string) (int, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return 0, err
	}
	return nuniqueRows(t, allRows(t), col), nil
}

// Median returns the middle value of the non-null values of column.
func Median(t *table.Table, column string) (float64, error) {
	return Quantile(t, column, 0.5)
}

// Mean returns the arithmetic mean of the non-null values of column.
func Mean(t *table.Table, column string) (float64, error) {
	values, err := nonEmpty(t, column, OpMean)
	if err != nil {
		return 0, err
	}
	return mean(values), nil
}

// Min returns the smallest value of column. Date columns compare chronologically.
func Min(t *table.Table, column string) (Scalar, error) {
	return extreme(t, column, OpMin)
}

// Max returns the largest value of column. Date columns compare chronologically.
func Max(t *table.Table, column string) (Scalar, error) {
	return extreme(t, column, OpMax)
}

func extreme(t *table.Table, column string, op Op) (Scalar, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return Scalar{}, err
	}

	if t.ColumnType(col) == table.TypeDate {
		var best time.Time
		found := false
		for row := 0; row < t.Len(); row++ {
			d, ok := t.Time(row, col)
			if !ok {
				continue
			}
			if !found || (op == OpMin && d.Before(best)) || (op == OpMax && d.After(best)) {
				best = d
				found = true
			}
		}
		if !found {
			return Scalar{}, errhandling.NewEmptyGroupError(string(op), column, "")
		}
		return Scalar{Time: best, IsTime: true}, nil
	}

	values, err := nonEmpty(t, column, op)
	if err != nil {
		return Scalar{}, err
	}
	if op == OpMin {
		return Scalar{Number: minOf(values)}, nil
	}
	return Scalar{Number: maxOf(values)}, nil
}

// Quantile returns the q-th quantile (0 <= q <= 1) of the non-null values of
// column, interpolating linearly between the closest ranks.
func Quantile(t *table.Table, column string, q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, errhandling.NewValidationError(fmt.Sprintf("quantile %v is outside [0, 1]", q), nil)
	}
	op := OpMedian
	if q != 0.5 {
		op = Op(fmt.Sprintf("quantile(%v)", q))
	}
	values, err := nonEmpty(t, column, op)
	if err != nil {
		return 0, err
	}
	sort.Float64s(values)
	return quantileSorted(values, q), nil
}

// Skewness returns the sample skewness m3 / m2^1.5 of column. A column with
// zero variance has skewness 0.
func Skewness(t *table.Table, column string) (float64, error) {
	values, err := nonEmpty(t, column, "skewness")
	if err != nil {
		return 0, err
	}
	return skewness(values), nil
}

// SkewLabel describes the direction of a skewness value.
func SkewLabel(skew float64) string {
	switch {
	case skew > 0:
		return SkewRight
	case skew < 0:
		return SkewLeft
	default:
		return SkewNormal
	}
}

// Histogram counts the non-null values of column in nbins equal-width bins
// spanning [min, max].
func Histogram(t *table.Table, column string, nbins int) ([]Bin, error) {
	if nbins <= 0 {
		return nil, errhandling.NewValidationError(fmt.Sprintf("histogram needs at least one bin, got %d", nbins), nil)
	}
	values, err := nonEmpty(t, column, "histogram")
	if err != nil {
		return nil, err
	}
	return histogram(values, nbins), nil
}

func nonEmpty(t *table.Table, column string, op Op) ([]float64, error) {
	values, err := Numbers(t, column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errhandling.NewEmptyGroupError(string(op), column, "")
	}
	return values, nil
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func skewness(values []float64) float64 {
	mu := mean(values)
	var m2, m3 float64
	for _, v := range values {
		d := v - mu
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(values))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

func histogram(values []float64, nbins int) []Bin {
	lo, hi := minOf(values), maxOf(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(nbins)

	bins := make([]Bin, nbins)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[nbins-1].Upper = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= nbins {
			i = nbins - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins
}
