package table

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
)

func sample(t *testing.T) *Table {
	t.Helper()
	tbl, err := New("sec", []string{"Name", "State", "Public Float", "Detail", "Date of Filing"}, [][]string{
		{"Acme", "CA", "$1,200.50", "1", "2024-03-01"},
		{"Birch", "TX", "", "0", "20240115"},
		{"Cobalt", "CA", "(300)", "1.0", "not a date"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tbl
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		rows    [][]string
		wantErr bool
	}{
		{"valid", []string{"a", "b"}, [][]string{{"1", "2"}}, false},
		{"empty header cell", []string{"a", ""}, nil, true},
		{"duplicate header", []string{"a", "a"}, nil, true},
		{"ragged row", []string{"a", "b"}, [][]string{{"1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("t", tt.header, tt.rows)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestColumnIndexMissingIsSchemaError(t *testing.T) {
	tbl := sample(t)
	if _, err := tbl.ColumnIndex("state"); !errhandling.IsSchema(err) {
		t.Errorf("ColumnIndex(state) error = %v, want SchemaError (names are case-sensitive)", err)
	}
}

func TestWithTypes(t *testing.T) {
	tbl := sample(t)

	typed, err := tbl.WithTypes(map[string]ColumnType{
		"Public Float":   TypeCurrency,
		"Detail":         TypeInteger,
		"Date of Filing": TypeDate,
	})
	if err != nil {
		t.Fatalf("WithTypes() error = %v", err)
	}
	if tbl.ColumnType(2) != TypeString {
		t.Error("WithTypes must not change the parent table")
	}

	row := typed.Row(0)
	want := map[string]interface{}{
		"Name":           "Acme",
		"State":          "CA",
		"Public Float":   1200.5,
		"Detail":         int64(1),
		"Date of Filing": time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, row); diff != "" {
		t.Errorf("Row(0) mismatch (-want +got):\n%s", diff)
	}

	if v := typed.Value(1, 2); v != nil {
		t.Errorf("empty currency = %v, want nil", v)
	}
	if v := typed.Value(2, 2); v != -300.0 {
		t.Errorf("parenthesized currency = %v, want -300", v)
	}
	if v := typed.Value(2, 3); v != int64(1) {
		t.Errorf("integer 1.0 = %v, want 1", v)
	}
	if !typed.IsNull(2, 4) {
		t.Error("unparseable date should read as null")
	}

	if _, err := tbl.WithTypes(map[string]ColumnType{"Revenue": TypeCurrency}); !errhandling.IsSchema(err) {
		t.Errorf("missing declared column error = %v, want SchemaError", err)
	}
	if _, err := tbl.WithTypes(map[string]ColumnType{"State": "money"}); !errhandling.IsValidation(err) {
		t.Errorf("unknown type error = %v, want validation error", err)
	}
}

func TestWherePreservesOrderAndIdentity(t *testing.T) {
	tbl := sample(t)
	state, _ := tbl.ColumnIndex("State")

	ca := tbl.Where(func(i int) bool { return tbl.Raw(i, state) == "CA" })

	if ca.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ca.Len())
	}
	var ids []int
	for i := 0; i < ca.Len(); i++ {
		ids = append(ids, ca.RowID(i))
	}
	if diff := cmp.Diff([]int{0, 2}, ids); diff != "" {
		t.Errorf("row ids mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 3 {
		t.Error("Where must not modify the parent")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"42", 42, true},
		{" $1,000,000 ", 1_000_000, true},
		{"(12.5)", -12.5, true},
		{"-3", -3, true},
		{"NaN", 0, false},
		{"", 0, false},
		{"N/A", 0, false},
		{"inf", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseNumber(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-01-15", "01/15/2024", "20240115", "20240115.0"} {
		got, ok := ParseDate(raw)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseDate("soon"); ok {
		t.Error("ParseDate(soon) should fail")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"123456789", "123456789", true},
		{"123456789.0", "123456789", true},
		{"012345678", "12345678", true},
		{" 01-2345678 ", "12345678", true},
		{"0", "0", true},
		{"ACME CORP", "ACME CORP", true},
		{"12.5", "12.5", true},
		{"", "", false},
		{"nan", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeKey(tt.raw)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
