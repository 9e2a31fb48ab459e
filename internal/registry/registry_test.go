package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TheUndivideProject/Prototype-1/internal/modules/filter"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/input"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/output"
	"github.com/TheUndivideProject/Prototype-1/internal/modules/section"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

func TestRegisterFilter(t *testing.T) {
	ClearRegistries()
	defer RegisterBuiltins()
	defer ClearRegistries()

	var gotIndex int
	RegisterFilter("testFilter", func(cfg report.ModuleConfig, fc FilterContext) (filter.Module, error) {
		gotIndex = fc.Index
		return filter.NewNotNull("x"), nil
	})

	got := GetFilterConstructor("testFilter")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	if _, err := got(report.ModuleConfig{}, FilterContext{Index: 3}); err != nil {
		t.Fatal(err)
	}
	if gotIndex != 3 {
		t.Errorf("constructor saw index %d, want 3", gotIndex)
	}
}

func TestGetUnregisteredConstructor(t *testing.T) {
	ClearRegistries()
	defer RegisterBuiltins()
	defer ClearRegistries()

	if got := GetInputConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered input type")
	}
	if got := GetFilterConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered filter type")
	}
	if got := GetSectionConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered section type")
	}
	if got := GetOutputConstructor("unknown"); got != nil {
		t.Error("expected nil for unregistered output type")
	}
}

func TestOverwriteRegistration(t *testing.T) {
	ClearRegistries()
	defer RegisterBuiltins()
	defer ClearRegistries()

	callCount := 0
	RegisterSection("test", func(cfg report.ModuleConfig) (section.Module, error) {
		callCount = 1
		return nil, nil
	})
	RegisterSection("test", func(cfg report.ModuleConfig) (section.Module, error) {
		callCount = 2
		return nil, nil
	})

	_, _ = GetSectionConstructor("test")(report.ModuleConfig{})
	if callCount != 2 {
		t.Error("expected second constructor to be called after overwrite")
	}
}

func TestClearRegistries(t *testing.T) {
	defer RegisterBuiltins()

	RegisterInput("test", func(report.Source, string, *input.Loader) (input.Module, error) { return nil, nil })
	RegisterOutput("test", func(report.ModuleConfig) (output.Module, error) { return nil, nil })

	ClearRegistries()

	for kind, types := range map[string][]string{
		"input":   ListInputTypes(),
		"filter":  ListFilterTypes(),
		"section": ListSectionTypes(),
		"output":  ListOutputTypes(),
	} {
		if len(types) != 0 {
			t.Errorf("expected %s registry to be empty after clear, got %v", kind, types)
		}
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		list func() []string
		want []string
	}{
		{"inputs", ListInputTypes, []string{"csv", "tsv"}},
		{"filters", ListFilterTypes, []string{"condition", "equals", "isNull", "notNull", "prefix", "range", "script", "semiJoin"}},
		{"sections", ListSectionTypes, []string{"aggregate", "classify", "histogram", "points", "share", "summary"}},
		{"outputs", ListOutputTypes, []string{"json", "markdown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.list()); diff != "" {
				t.Errorf("registered types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTSVDefaultsToTabDelimiter(t *testing.T) {
	loader := input.NewLoader(nil)
	m, err := GetInputConstructor("tsv")(report.Source{Name: "eo", Path: "eo.tsv"}, "/data", loader)
	if err != nil {
		t.Fatal(err)
	}
	csv, ok := m.(*input.CSVModule)
	if !ok {
		t.Fatalf("tsv constructor returned %T", m)
	}
	if csv.Path() != "/data/eo.tsv" {
		t.Errorf("Path() = %q, want /data/eo.tsv", csv.Path())
	}
}

func TestUnknownColumnTypeIsRejected(t *testing.T) {
	src := report.Source{Name: "sec", Path: "sec.csv", Columns: map[string]string{"Public Float": "money"}}
	if _, err := GetInputConstructor("csv")(src, "", input.NewLoader(nil)); err == nil {
		t.Fatal("expected error for unknown column type")
	}
}
