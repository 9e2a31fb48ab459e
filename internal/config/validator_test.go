package config

import (
	"strings"
	"testing"
)

func parsedYAML(t *testing.T, content string) map[string]interface{} {
	t.Helper()
	result := ParseYAMLString(content)
	if !result.IsValid() {
		t.Fatalf("fixture does not parse: %v", result.Errors)
	}
	return result.Data
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	result := ValidateConfig(parsedYAML(t, validYAML))
	if !result.Valid {
		t.Errorf("expected valid config, got %v", result.Errors)
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(string) string
		wantPath string
	}{
		{
			name:     "missing sections",
			mutate:   func(s string) string { return s[:strings.Index(s, "  sections:")] },
			wantPath: "/report",
		},
		{
			name:     "unknown column type",
			mutate:   func(s string) string { return strings.Replace(s, "Detail: integer", "Detail: int", 1) },
			wantPath: "/report/sources/0/columns/Detail",
		},
		{
			name:     "view without source",
			mutate:   func(s string) string { return strings.Replace(s, "      source: sec\n", "", 1) },
			wantPath: "/report/views/0",
		},
		{
			name: "duplicate view name",
			mutate: func(s string) string {
				return strings.Replace(s, "    - name: metric\n      source", "    - name: sec\n      source", 1)
			},
			wantPath: "/report/views/0/name",
		},
		{
			name: "default outside allowed",
			mutate: func(s string) string {
				return strings.Replace(s, "default: Charitable Contributions", "default: Gross Profit", 1)
			},
			wantPath: "/report/parameters/0/default",
		},
		{
			name:     "unknown top-level field",
			mutate:   func(s string) string { return s + "extra: true\n" },
			wantPath: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateConfig(parsedYAML(t, tt.mutate(validYAML)))
			if result.Valid {
				t.Fatal("expected validation to fail")
			}
			var paths []string
			for _, e := range result.Errors {
				paths = append(paths, e.Path)
				if e.Path == tt.wantPath {
					return
				}
			}
			t.Errorf("expected an error at %s, got paths %v", tt.wantPath, paths)
		})
	}
}

func TestValidateConfig_NilAndEmpty(t *testing.T) {
	for name, data := range map[string]map[string]interface{}{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			result := ValidateConfig(data)
			if result.Valid || len(result.Errors) != 1 || result.Errors[0].Type != "required" {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

func TestGetEmbeddedSchema(t *testing.T) {
	if !strings.Contains(string(GetEmbeddedSchema()), `"report"`) {
		t.Error("embedded schema should describe the report object")
	}
}

func TestValidateConfig_ErrorsNameKeyword(t *testing.T) {
	content := strings.Replace(validYAML, "Detail: integer", "Detail: int", 1)
	result := ValidateConfig(parsedYAML(t, content))
	if len(result.Errors) != 1 {
		t.Fatalf("expected one leaf error, got %v", result.Errors)
	}
	e := result.Errors[0]
	if e.Type != "enum" {
		t.Errorf("Type = %q, want enum", e.Type)
	}
	if strings.Contains(e.Message, "jsonschema validation failed") {
		t.Errorf("Message keeps the library preamble: %q", e.Message)
	}
}
