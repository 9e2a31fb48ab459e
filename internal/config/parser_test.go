package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
)

const validYAML = `schemaVersion: "1.0.0"
report:
  id: corporate-environmental-giving
  name: Corporate Environmental Giving
  parameters:
    - name: metric
      default: Charitable Contributions
      allowed: [Charitable Contributions, Environmental Remediation Expenses]
  sources:
    - name: sec
      path: data/sec.csv
      columns: {Public Float: currency, Detail: integer}
  views:
    - name: metric
      source: sec
      filters:
        - type: notNull
          config: {column: "{{params.metric}}"}
  sections:
    - name: top-states
      type: aggregate
      title: Top states
      config: {view: metric, groupBy: State, rank: {order: top, n: 3}}
  outputs:
    - type: json
      config: {path: "-"}
`

const validJSON = `{
  "schemaVersion": "1.0.0",
  "report": {
    "id": "nonprofit-irs",
    "name": "Nonprofit IRS",
    "sources": [{"name": "eo", "path": "eo1.csv"}],
    "sections": [{"name": "by-state", "type": "aggregate", "config": {"view": "eo", "groupBy": "STATE"}}]
  }
}`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSONString_ValidJSON(t *testing.T) {
	result := ParseJSONString(validJSON)
	if !result.IsValid() {
		t.Fatalf("expected valid result, got errors: %v", result.Errors)
	}
	if result.Format != "json" {
		t.Errorf("expected format 'json', got '%s'", result.Format)
	}
	if _, ok := result.Data["report"]; !ok {
		t.Error("expected report field in parsed data")
	}
}

func TestParseJSONString_InvalidJSON(t *testing.T) {
	result := ParseJSONString("{\n  \"report\": {,}\n}")
	if result.IsValid() {
		t.Fatal("expected parsing to fail for invalid JSON")
	}
	e := result.Errors[0]
	if e.Type != ErrorTypeSyntax {
		t.Errorf("expected error type '%s', got '%s'", ErrorTypeSyntax, e.Type)
	}
	if e.Line != 2 {
		t.Errorf("expected line 2, got %d", e.Line)
	}
}

func TestParseJSONString_NotAnObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "   "},
		{"array", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ParseJSONString(tt.content); result.IsValid() {
				t.Error("expected parsing to fail")
			}
		})
	}
}

func TestParseYAMLString_InvalidYAML(t *testing.T) {
	result := ParseYAMLString("report:\n  id: x\n name: bad indent\n")
	if result.IsValid() {
		t.Fatal("expected parsing to fail for invalid YAML")
	}
	if result.Errors[0].Line == 0 {
		t.Errorf("expected a line number, got %+v", result.Errors[0])
	}
}

func TestParseYAMLString_OnlyComments(t *testing.T) {
	result := ParseYAMLString("# nothing here\n")
	if !result.IsValid() || result.Data != nil {
		t.Errorf("expected valid empty result, got %+v", result)
	}
}

func TestParseYAMLString_YAML12BooleanValues(t *testing.T) {
	// gopkg.in/yaml.v3 follows YAML 1.2: yes/no/on/off stay strings, so a
	// parameter default such as "no" is not turned into false.
	tests := []struct {
		name     string
		yaml     string
		expected interface{}
	}{
		{"yes as string", "value: yes", "yes"},
		{"no as string", "value: no", "no"},
		{"off as string", "value: off", "off"},
		{"true as boolean", "value: true", true},
		{"quoted true as string", `value: "true"`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseYAMLString(tt.yaml)
			if !result.IsValid() {
				t.Fatalf("expected valid YAML, got errors: %v", result.Errors)
			}
			if val := result.Data["value"]; val != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, val, val)
			}
		})
	}
}

func TestParseConfig_ByExtension(t *testing.T) {
	tests := []struct {
		name, file, content, format string
	}{
		{"yaml", "report.yaml", validYAML, "yaml"},
		{"yml", "report.yml", validYAML, "yaml"},
		{"json", "report.json", validJSON, "json"},
		{"unknown extension falls back to content", "report.conf", validJSON, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseConfig(writeConfig(t, tt.file, tt.content))
			if !result.IsValid() {
				t.Fatalf("expected valid result, got %v", result.AllErrors())
			}
			if result.Format != tt.format {
				t.Errorf("Format = %q, want %q", result.Format, tt.format)
			}
		})
	}
}

func TestParseConfig_NonExistentFile(t *testing.T) {
	result := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if result.IsValid() {
		t.Fatal("expected error for missing file")
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("expected io error, got %+v", result.ParseErrors[0])
	}
	if !errhandling.IsParse(result.Err()) {
		t.Errorf("Err() should be a parse error, got %v", result.Err())
	}
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	content := strings.Replace(validYAML, "      path: data/sec.csv\n", "", 1)
	result := ParseConfig(writeConfig(t, "report.yaml", content))
	if len(result.ValidationErrors) == 0 {
		t.Fatal("expected validation errors for a source without path")
	}
	if !errhandling.IsValidation(result.Err()) {
		t.Errorf("Err() should be a validation error, got %v", result.Err())
	}
}

func TestParseConfigString_EnvExpansion(t *testing.T) {
	t.Setenv("SEED_DATA_DIR", "/srv/data")
	content := strings.Replace(validJSON, `"eo1.csv"`, `"${SEED_DATA_DIR}/eo1.csv"`, 1)
	result := ParseConfigString(content, "")
	if !result.IsValid() {
		t.Fatalf("unexpected errors: %v", result.AllErrors())
	}
	src := result.Data["report"].(map[string]interface{})["sources"].([]interface{})[0].(map[string]interface{})
	if src["path"] != "/srv/data/eo1.csv" {
		t.Errorf("path = %v, want /srv/data/eo1.csv", src["path"])
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SEED_SET", "x")
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"set", "a-${SEED_SET}", "a-x", false},
		{"default unused", "${SEED_SET:-y}", "x", false},
		{"default used", "${SEED_UNSET_VAR:-y}", "y", false},
		{"empty default", "[${SEED_UNSET_VAR:-}]", "[]", false},
		{"unset", "${SEED_UNSET_VAR}", "${SEED_UNSET_VAR}", true},
		{"template untouched", "{{params.metric}}", "{{params.metric}}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errs := ExpandEnv(map[string]interface{}{"k": []interface{}{tt.in}})
			got := out["k"].([]interface{})[0]
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("errs = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"a.json": "json", "a.JSON": "json", "a.yaml": "yaml", "a.yml": "yaml", "a.txt": "",
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParseError_Error(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{Message: "boom"}, "boom"},
		{ParseError{Path: "r.yaml", Line: 3, Message: "boom"}, "r.yaml: line 3: boom"},
		{ParseError{Path: "r.json", Line: 2, Column: 5, Message: "boom"}, "r.json: line 2, column 5: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
