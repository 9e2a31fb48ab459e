package classify

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

func sizes(t *testing.T) *Classifier {
	t.Helper()
	c, err := New([]float64{1_000_000, 10_000_000}, []string{"small", "medium", "large"}, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClassify(t *testing.T) {
	c := sizes(t)
	tests := []struct {
		name  string
		value float64
		ok    bool
		want  string
	}{
		{"below lower boundary", 999_999.99, true, "small"},
		{"negative", -5, true, "small"},
		{"lower boundary", 1_000_000, true, "medium"},
		{"inside", 5_000_000, true, "medium"},
		{"upper boundary is closed", 10_000_000, true, "medium"},
		{"above upper boundary", 10_000_000.01, true, "large"},
		{"null", 0, false, Unclassified},
		{"nan", math.NaN(), true, Unclassified},
		{"inf", math.Inf(1), true, Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.value, tt.ok); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}

	for raw, want := range map[string]string{"1000000": "medium", "None": Unclassified, "abc": Unclassified, "$12,000,000": "large"} {
		if got := c.ClassifyRaw(raw); got != want {
			t.Errorf("ClassifyRaw(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestClassifyIsExhaustiveAndOrdered(t *testing.T) {
	c, err := New([]float64{-10, 0, 2.5, 100}, []string{"a", "b", "c", "d", "e"}, "none")
	if err != nil {
		t.Fatal(err)
	}
	rank := map[string]int{"a": 0, "b": 1, "c": 2, "d": 3, "e": 4}
	prev := 0
	for v := -20.0; v <= 120; v += 0.25 {
		label := c.Classify(v, true)
		r, ok := rank[label]
		if !ok {
			t.Fatalf("Classify(%v) = %q, not a bucket label", v, label)
		}
		if r < prev {
			t.Fatalf("Classify(%v) = %q after a higher bucket: buckets overlap", v, label)
		}
		prev = r
	}
	if got := c.Classify(-10, true); got != "b" {
		t.Errorf("Classify(-10) = %q, want b", got)
	}
	if got := c.Classify(100, true); got != "d" {
		t.Errorf("Classify(100) = %q, want d", got)
	}
}

func TestSingleBoundary(t *testing.T) {
	c, err := New([]float64{0}, []string{"negative", "non-negative"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Classify(0, true); got != "non-negative" {
		t.Errorf("Classify(0) = %q", got)
	}
	if got := c.Classify(-1, true); got != "negative" {
		t.Errorf("Classify(-1) = %q", got)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name         string
		boundaries   []float64
		labels       []string
		unclassified string
	}{
		{"no boundaries", nil, []string{"a"}, ""},
		{"label count", []float64{1}, []string{"a"}, ""},
		{"not ascending", []float64{2, 1}, []string{"a", "b", "c"}, ""},
		{"equal boundaries", []float64{1, 1}, []string{"a", "b", "c"}, ""},
		{"infinite", []float64{math.Inf(1)}, []string{"a", "b"}, ""},
		{"duplicate label", []float64{1}, []string{"a", "a"}, ""},
		{"unclassified collision", []float64{1}, []string{"a", "unclassified"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.boundaries, tt.labels, tt.unclassified); !errhandling.IsValidation(err) {
				t.Errorf("New() error = %v, want validation error", err)
			}
		})
	}
}

func TestTally(t *testing.T) {
	tbl, err := table.New("990", []string{"ein", "totassetsend"}, [][]string{
		{"1", "500"},
		{"2", "1000000"},
		{"3", "None"},
		{"4", "2500000"},
		{"5", "7.5e5"},
	})
	if err != nil {
		t.Fatal(err)
	}
	tbl, err = tbl.WithTypes(map[string]table.ColumnType{"totassetsend": table.TypeCurrency})
	if err != nil {
		t.Fatal(err)
	}

	got, err := sizes(t).Tally(tbl, "totassetsend")
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}
	counts := map[string]float64{}
	for _, e := range got.Entries {
		counts[e.Key] = e.Values["count"]
	}
	want := map[string]float64{"small": 2, "medium": 2, "large": 0, Unclassified: 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"small", "medium", "large", Unclassified}, got.Keys()); diff != "" {
		t.Errorf("label order mismatch (-want +got):\n%s", diff)
	}

	withSums, err := sizes(t).Tally(tbl, "totassetsend", "totassetsend")
	if err != nil {
		t.Fatalf("Tally() with sums error = %v", err)
	}
	medium, _ := withSums.Get("medium")
	if medium.Values["sum_totassetsend"] != 3_500_000 {
		t.Errorf("medium sum = %v, want 3500000", medium.Values["sum_totassetsend"])
	}

	if _, err := sizes(t).Tally(tbl, "assets"); !errhandling.IsSchema(err) {
		t.Errorf("Tally() on missing column error = %v, want schema error", err)
	}
}
