package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheUndivideProject/Prototype-1/internal/cli"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// runCLI runs the CLI in-process and returns stdout, stderr, and exit code.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	exitCode = run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), exitCode
}

const testReport = `schemaVersion: "1.0.0"
report:
  id: cli-test
  name: CLI test
  parameters:
    - name: state
      default: CA
      allowed: [CA, TX]
  sources:
    - name: sec
      path: sec.csv
      columns: {Public Float: currency}
  views:
    - name: by-state
      source: sec
      filters:
        - type: equals
          config: {column: State, value: "{{params.state}}"}
  sections:
    - name: total
      type: summary
      config:
        view: by-state
        metrics: [{name: float, column: Public Float, op: sum}]
    - name: broken
      type: aggregate
      config: {view: sec, groupBy: Country}
`

func writeReport(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	csv := "Name,State,Public Float\nAcme,CA,100\nBeta,CA,50\nGamma,TX,30\n"
	if err := os.WriteFile(filepath.Join(dir, "sec.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "report.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_Version(t *testing.T) {
	stdout, _, code := runCLI(t, "version")
	if code != cli.ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "Version: dev") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCLI_ValidateShippedConfigs(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "configs", "*.yaml"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("no shipped configs: %v", err)
	}
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			stdout, stderr, code := runCLI(t, "validate", p)
			if code != cli.ExitSuccess {
				t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
			}
			if !strings.Contains(stdout, "✓ Report is valid") {
				t.Errorf("stdout = %q", stdout)
			}
		})
	}
}

func TestCLI_ExitCodes(t *testing.T) {
	valid := writeReport(t, testReport)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"valid", []string{"validate", valid}, cli.ExitSuccess},
		{"missing file", []string{"validate", filepath.Join(t.TempDir(), "nope.yaml")}, cli.ExitParseError},
		{"bad yaml", []string{"validate", writeReport(t, "report: [unclosed")}, cli.ExitParseError},
		{"schema violation", []string{"validate", writeReport(t, "schemaVersion: \"1.0.0\"\nreport: {id: x}\n")}, cli.ExitValidationError},
		{"unknown section type", []string{"validate", writeReport(t, strings.Replace(testReport, "type: summary", "type: trend", 1))}, cli.ExitValidationError},
		{"param not allowed", []string{"run", valid, "--param", "state=NY"}, cli.ExitValidationError},
		{"malformed param", []string{"run", valid, "--param", "state"}, cli.ExitValidationError},
		{"unknown command", []string{"frobnicate"}, cli.ExitRuntimeError},
		{"bad log format", []string{"--log-format", "xml", "version"}, cli.ExitRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCLI(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestCLI_RunWritesOutput(t *testing.T) {
	path := writeReport(t, testReport)
	out := filepath.Join(t.TempDir(), "result.json")

	stdout, stderr, code := runCLI(t, "run", path, "--param", "state=TX", "--output", out)
	if code != cli.ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Status: partial") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "broken (aggregate) error: schema") {
		t.Errorf("degraded section not reported, stderr = %q", stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var result report.Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	m := result.Section("total").Metric("float")
	if m == nil || m.Value == nil || *m.Value != 30 {
		t.Errorf("total.float = %+v, want 30", m)
	}
	if result.Parameters["state"] != "TX" {
		t.Errorf("Parameters = %v", result.Parameters)
	}
}

func TestCLI_QuietRunStillReportsDegradation(t *testing.T) {
	path := writeReport(t, testReport)
	stdout, stderr, code := runCLI(t, "run", "--quiet", path)
	if code != cli.ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "" {
		t.Errorf("quiet stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "broken") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"state=CA", "metric=Gross Profit", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"state": "CA", "metric": "Gross Profit", "empty": ""}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if _, err := parseParams([]string{"=x"}); err == nil {
		t.Error("expected error for empty name")
	}
}
