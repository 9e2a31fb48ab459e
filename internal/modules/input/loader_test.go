package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheUndivideProject/Prototype-1/internal/cache"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "eo1.csv", "\ufeffEIN,NAME,STATE,REVENUE_AMT\n"+
		"010123456,River Keepers,CA,1500\n"+
		"\"020000001\",\"Trails, Inc.\",TX,\n")

	loader := NewLoader(cache.New())
	tbl, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if !tbl.HasColumn("EIN") {
		t.Error("byte order mark should be stripped from the first header")
	}
	name, _ := tbl.ColumnIndex("NAME")
	if got := tbl.Raw(1, name); got != "Trails, Inc." {
		t.Errorf("quoted cell = %q", got)
	}
	rev, _ := tbl.ColumnIndex("REVENUE_AMT")
	if !tbl.IsNull(1, rev) {
		t.Error("empty cell should be null")
	}

	again, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again != tbl {
		t.Error("second load should return the cached table")
	}
}

func TestLoaderParseErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		content  string
		missing  bool
		wantLine int
		wantMsg  string
	}{
		{name: "missing file", missing: true, wantMsg: "does not exist"},
		{name: "empty file", content: "", wantMsg: "empty"},
		{name: "inconsistent column count", content: "a,b\n1,2\n3\n", wantLine: 3, wantMsg: "inconsistent column count"},
		{name: "bad quoting", content: "a,b\n\"1,2\n", wantMsg: "quote"},
		{name: "duplicate header", content: "a,a\n1,2\n", wantLine: 1, wantMsg: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".csv")
			if !tt.missing {
				writeFile(t, dir, filepath.Base(path), tt.content)
			}

			_, err := NewLoader(nil).Load(context.Background(), path)

			var ce *errhandling.ClassifiedError
			if !errors.As(err, &ce) || ce.Category != errhandling.CategoryParse {
				t.Fatalf("Load() error = %v, want ParseError", err)
			}
			if tt.wantLine > 0 && ce.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", ce.Line, tt.wantLine)
			}
			if !strings.Contains(ce.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", ce.Message, tt.wantMsg)
			}
		})
	}
}

func TestReadCSVHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("a\n1\n"), "t", ',')
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadCSV() error = %v, want context.Canceled", err)
	}
}

func TestCSVModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "990.csv", "ein;totassetsend;totrevenue\n12;2500000;$1,000\n")
	loader := NewLoader(cache.New())

	t.Run("relative path and typed columns", func(t *testing.T) {
		m, err := NewCSVModule(CSVConfig{
			Name:      "form990",
			Path:      "990.csv",
			BaseDir:   dir,
			Delimiter: ";",
			Columns:   map[string]table.ColumnType{"totassetsend": table.TypeCurrency, "totrevenue": table.TypeCurrency},
		}, loader)
		if err != nil {
			t.Fatalf("NewCSVModule() error = %v", err)
		}
		tbl, err := m.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if tbl.Name() != "form990" {
			t.Errorf("Name() = %q, want form990", tbl.Name())
		}
		rev, _ := tbl.ColumnIndex("totrevenue")
		if v, ok := tbl.Float(0, rev); !ok || v != 1000 {
			t.Errorf("totrevenue = %v, %v; want 1000", v, ok)
		}
	})

	t.Run("declared column missing", func(t *testing.T) {
		m, err := NewCSVModule(CSVConfig{
			Name:      "form990",
			Path:      filepath.Join(dir, "990.csv"),
			Delimiter: ";",
			Columns:   map[string]table.ColumnType{"payrolltx": table.TypeCurrency},
		}, loader)
		if err != nil {
			t.Fatalf("NewCSVModule() error = %v", err)
		}
		if _, err := m.Load(context.Background()); !errhandling.IsSchema(err) {
			t.Errorf("Load() error = %v, want SchemaError", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cases := []CSVConfig{
			{Path: "x.csv"},
			{Name: "x"},
			{Name: "x", Path: "x.csv", Delimiter: "||"},
		}
		for _, cfg := range cases {
			if _, err := NewCSVModule(cfg, loader); err == nil {
				t.Errorf("NewCSVModule(%+v) should fail", cfg)
			}
		}
	})
}
