// Package table provides the immutable in-memory Table that flows through the
// filing-aggregation pipeline.
//
// A Table is an ordered set of rows sharing a schema. Cells are stored as the
// raw strings read from the source file and converted on access according to
// the declared column type, so a malformed financial cell reads as null
// instead of failing the load. Derived tables (filters, joins, typed views)
// share row storage with their parent and never copy or mutate cells.
package table

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
)

// ColumnType is the declared semantic type of a column.
type ColumnType string

// Supported column types.
const (
	TypeString   ColumnType = "string"
	TypeDate     ColumnType = "date"
	TypeCurrency ColumnType = "currency"
	TypeInteger  ColumnType = "integer"
)

// Valid reports whether t is a supported column type.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeDate, TypeCurrency, TypeInteger:
		return true
	}
	return false
}

// Column is a named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is an immutable, ordered collection of rows.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
	rows    [][]string
	ids     []int
}

// New builds a Table named name from a header and its rows. All columns are
// typed as strings. Every row must have exactly len(header) cells.
func New(name string, header []string, rows [][]string) (*Table, error) {
	columns := make([]Column, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		index[h] = i
		columns[i] = Column{Name: h, Type: TypeString}
	}

	ids := make([]int, len(rows))
	for i, r := range rows {
		if len(r) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(r), len(header))
		}
		ids[i] = i
	}

	return &Table{name: name, columns: columns, index: index, rows: rows, ids: ids}, nil
}

// Name returns the table name (its source name or path).
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table has a column named name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex resolves a column name. A missing column is a SchemaError.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, errhandling.NewSchemaError(t.name, name)
	}
	return i, nil
}

// ColumnType returns the declared type of column col.
func (t *Table) ColumnType(col int) ColumnType { return t.columns[col].Type }

// RowID returns the position row i had in the originally loaded file.
// It identifies rows across derived tables.
func (t *Table) RowID(i int) int { return t.ids[i] }

// WithName returns a table sharing rows with t under a new name.
func (t *Table) WithName(name string) *Table {
	c := *t
	c.name = name
	return &c
}

// WithTypes returns a typed view of t. Declared columns must exist.
func (t *Table) WithTypes(types map[string]ColumnType) (*Table, error) {
	if len(types) == 0 {
		return t, nil
	}
	columns := t.Columns()

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		typ := types[name]
		i, ok := t.index[name]
		if !ok {
			return nil, errhandling.NewSchemaError(t.name, name)
		}
		if !typ.Valid() {
			return nil, errhandling.NewValidationError(fmt.Sprintf("column %q: unknown type %q", name, typ), nil)
		}
		columns[i].Type = typ
	}

	c := *t
	c.columns = columns
	return &c, nil
}

// Where returns the rows for which keep returns true, in their original order.
func (t *Table) Where(keep func(row int) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	ids := make([]int, 0, len(t.rows))
	for i := range t.rows {
		if keep(i) {
			rows = append(rows, t.rows[i])
			ids = append(ids, t.ids[i])
		}
	}
	c := *t
	c.rows = rows
	c.ids = ids
	return &c
}

// Slice returns rows [from, to) as a new table.
func (t *Table) Slice(from, to int) *Table {
	c := *t
	c.rows = t.rows[from:to:to]
	c.ids = t.ids[from:to:to]
	return &c
}

// Raw returns the raw cell text.
func (t *Table) Raw(row, col int) string { return t.rows[row][col] }

// IsNull reports whether a cell is missing. Cells of typed columns that do
// not parse as their type are also null.
func (t *Table) IsNull(row, col int) bool {
	raw := t.rows[row][col]
	if IsNullToken(raw) {
		return true
	}
	switch t.columns[col].Type {
	case TypeCurrency:
		_, ok := ParseNumber(raw)
		return !ok
	case TypeInteger:
		_, ok := ParseInteger(raw)
		return !ok
	case TypeDate:
		_, ok := ParseDate(raw)
		return !ok
	}
	return false
}

// String returns the trimmed cell text, or ok == false for a null cell.
func (t *Table) String(row, col int) (string, bool) {
	if t.IsNull(row, col) {
		return "", false
	}
	return strings.TrimSpace(t.rows[row][col]), true
}

// Float reads a cell as a number. Date columns never read as numbers.
func (t *Table) Float(row, col int) (float64, bool) {
	raw := t.rows[row][col]
	switch t.columns[col].Type {
	case TypeDate:
		return 0, false
	case TypeInteger:
		n, ok := ParseInteger(raw)
		return float64(n), ok
	default:
		return ParseNumber(raw)
	}
}

// Decimal reads a cell as an exact decimal.
func (t *Table) Decimal(row, col int) (decimal.Decimal, bool) {
	if t.columns[col].Type == TypeDate {
		return decimal.Zero, false
	}
	if t.columns[col].Type == TypeInteger {
		n, ok := ParseInteger(t.rows[row][col])
		return decimal.NewFromInt(n), ok
	}
	return ParseDecimal(t.rows[row][col])
}

// Time reads a cell as a date.
func (t *Table) Time(row, col int) (time.Time, bool) {
	return ParseDate(t.rows[row][col])
}

// Key reads a cell as a normalized join key.
func (t *Table) Key(row, col int) (string, bool) {
	return NormalizeKey(t.rows[row][col])
}

// Value returns the typed cell value: string, float64 (currency), int64
// (integer), time.Time (date), or nil for null.
func (t *Table) Value(row, col int) interface{} {
	raw := t.rows[row][col]
	switch t.columns[col].Type {
	case TypeCurrency:
		if f, ok := ParseNumber(raw); ok {
			return f
		}
	case TypeInteger:
		if n, ok := ParseInteger(raw); ok {
			return n
		}
	case TypeDate:
		if d, ok := ParseDate(raw); ok {
			return d
		}
	default:
		if !IsNullToken(raw) {
			return strings.TrimSpace(raw)
		}
	}
	return nil
}

// Row returns row i as a column-name keyed map of typed values.
func (t *Table) Row(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(t.columns))
	for c, col := range t.columns {
		m[col.Name] = t.Value(i, c)
	}
	return m
}
