package filter

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// NullModule keeps rows whose column is null (IsNull) or not null (!IsNull).
type NullModule struct {
	column string
	isNull bool
}

// NewNotNull keeps rows where column has a value.
func NewNotNull(column string) *NullModule { return &NullModule{column: column} }

// NewIsNull keeps rows where column is missing.
func NewIsNull(column string) *NullModule { return &NullModule{column: column, isNull: true} }

// ParseNullConfig builds a notNull or isNull module from raw config.
func ParseNullConfig(cfg map[string]interface{}, isNull bool) (*NullModule, error) {
	column, err := moduleconfig.String(cfg, "column")
	if err != nil {
		return nil, err
	}
	return &NullModule{column: column, isNull: isNull}, nil
}

// Apply implements Module.
func (m *NullModule) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	return WhereColumn(t, m.column, func(t *table.Table, row, col int) bool {
		return t.IsNull(row, col) == m.isNull
	})
}

// EqualsModule keeps rows whose column equals a value.
//
// Comparison is on the trimmed cell text. For numeric columns a numeric
// value is compared by value, so Detail == "1" matches a cell of "1.0".
type EqualsModule struct {
	column   string
	value    string
	optional bool
}

// NewEquals creates an equality filter.
func NewEquals(column, value string) *EqualsModule {
	return &EqualsModule{column: column, value: value}
}

// ParseEqualsConfig builds an equals module from raw config.
// With optional set, an empty or "None" value disables the filter.
func ParseEqualsConfig(cfg map[string]interface{}) (*EqualsModule, error) {
	column, err := moduleconfig.String(cfg, "column")
	if err != nil {
		return nil, err
	}
	value, err := moduleconfig.OptionalString(cfg, "value", "")
	if err != nil {
		return nil, err
	}
	optional, err := moduleconfig.Bool(cfg, "optional", false)
	if err != nil {
		return nil, err
	}
	return &EqualsModule{column: column, value: value, optional: optional}, nil
}

// Disabled reports whether an optional filter has no value to match.
func (m *EqualsModule) Disabled() bool {
	return m.optional && (strings.TrimSpace(m.value) == "" || m.value == "None")
}

// Apply implements Module.
func (m *EqualsModule) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	col, err := t.ColumnIndex(m.column)
	if err != nil {
		return nil, err
	}
	if m.Disabled() {
		return t, nil
	}

	want := strings.TrimSpace(m.value)
	numeric := false
	var wantNum float64
	if typ := t.ColumnType(col); typ == table.TypeCurrency || typ == table.TypeInteger {
		wantNum, numeric = table.ParseNumber(want)
	}

	return t.Where(func(row int) bool {
		if numeric {
			v, ok := t.Float(row, col)
			return ok && v == wantNum
		}
		s, ok := t.String(row, col)
		return ok && s == want
	}), nil
}

// RangeModule keeps rows whose numeric value v satisfies min <= v < max.
// Either bound may be absent. Null and non-numeric cells never match.
type RangeModule struct {
	column string
	min    float64
	max    float64
}

// NewRange creates a range filter. Use math.Inf for an open bound.
func NewRange(column string, min, max float64) (*RangeModule, error) {
	if min > max {
		return nil, fmt.Errorf("range on %q: min %v is greater than max %v", column, min, max)
	}
	return &RangeModule{column: column, min: min, max: max}, nil
}

// ParseRangeConfig builds a range module from raw config.
func ParseRangeConfig(cfg map[string]interface{}) (*RangeModule, error) {
	column, err := moduleconfig.String(cfg, "column")
	if err != nil {
		return nil, err
	}
	lo, err := moduleconfig.OptionalFloat(cfg, "min")
	if err != nil {
		return nil, err
	}
	hi, err := moduleconfig.OptionalFloat(cfg, "max")
	if err != nil {
		return nil, err
	}
	if lo == nil && hi == nil {
		return nil, fmt.Errorf("range on %q: at least one of min or max is required", column)
	}
	minV, maxV := math.Inf(-1), math.Inf(1)
	if lo != nil {
		minV = *lo
	}
	if hi != nil {
		maxV = *hi
	}
	return NewRange(column, minV, maxV)
}

// Apply implements Module.
func (m *RangeModule) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	return WhereColumn(t, m.column, func(t *table.Table, row, col int) bool {
		v, ok := t.Float(row, col)
		return ok && v >= m.min && v < m.max
	})
}

// PrefixModule keeps rows whose raw value starts with any of a set of codes.
// Matching is case-sensitive. Used for NTEE environmental-sector selection.
type PrefixModule struct {
	column   string
	prefixes []string
}

// NewPrefix creates a prefix-in-set filter.
func NewPrefix(column string, prefixes []string) (*PrefixModule, error) {
	if len(prefixes) == 0 {
		return nil, fmt.Errorf("prefix on %q: at least one prefix is required", column)
	}
	for i, p := range prefixes {
		if p == "" {
			return nil, fmt.Errorf("prefix on %q: prefix %d is empty", column, i)
		}
	}
	return &PrefixModule{column: column, prefixes: prefixes}, nil
}

// ParsePrefixConfig builds a prefix module from raw config.
func ParsePrefixConfig(cfg map[string]interface{}) (*PrefixModule, error) {
	column, err := moduleconfig.String(cfg, "column")
	if err != nil {
		return nil, err
	}
	prefixes, err := moduleconfig.StringSlice(cfg, "prefixes")
	if err != nil {
		return nil, err
	}
	return NewPrefix(column, prefixes)
}

// Apply implements Module.
func (m *PrefixModule) Apply(_ context.Context, t *table.Table) (*table.Table, error) {
	return WhereColumn(t, m.column, func(t *table.Table, row, col int) bool {
		if t.IsNull(row, col) {
			return false
		}
		raw := t.Raw(row, col)
		for _, p := range m.prefixes {
			if strings.HasPrefix(raw, p) {
				return true
			}
		}
		return false
	})
}

var (
	_ Module = (*NullModule)(nil)
	_ Module = (*EqualsModule)(nil)
	_ Module = (*RangeModule)(nil)
	_ Module = (*PrefixModule)(nil)
)
