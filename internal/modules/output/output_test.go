package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

func sampleResult() *report.Result {
	median := 60.0
	count := 3.0
	return &report.Result{
		ReportID:   "corporate-environmental-giving",
		ReportName: "Corporate Environmental Giving",
		Status:     report.StatusPartial,
		Parameters: map[string]string{"state": "CA", "metric": "Charitable Contributions"},
		Sections: []report.SectionResult{
			{
				Name: "summary", Type: "summary", Title: "Overview", Status: report.SectionOK,
				Narrative: "Median float is $60.00.",
				Metrics: []report.Metric{
					{Name: "median_float", Value: &median, Status: report.SectionOK},
					{Name: "first_filing", Text: "2024-01-20", Status: report.SectionOK},
					{Name: "empty", Status: report.SectionNoData},
				},
			},
			{
				Name: "top-states", Type: "aggregate", Status: report.SectionOK,
				Entries: []report.Entry{{Key: "CA", Label: "California", Values: map[string]float64{"count": count}}},
			},
			{
				Name: "broken", Type: "histogram", Title: "Distribution", Status: report.SectionError,
				Error: &report.ExecutionError{Category: "schema", Message: `column "x" does not exist`},
			},
		},
	}
}

func TestJSONWritesToStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := ParseJSONConfig(map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if err := NewJSON(cfg).WithStdout(&buf).Write(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var got report.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.ReportID != "corporate-environmental-giving" || len(got.Sections) != 3 {
		t.Errorf("decoded result = %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  \"reportId\"") {
		t.Error("expected indented output by default")
	}
}

func TestJSONWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "result.json")
	m := NewJSON(JSONConfig{Path: path})
	if err := m.Write(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("compact output should be a single line, got:\n%s", data)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdown(MarkdownConfig{}).WithStdout(&buf).Write(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := []string{
		"# Corporate Environmental Giving",
		"Parameters: metric = `Charitable Contributions`, state = `CA`",
		"## Overview",
		"Median float is $60.00.",
		"| median_float | 60 |",
		"| first_filing | 2024-01-20 |",
		"| empty | no data |",
		"## top-states",
		"| California | 3 |",
		"## Distribution",
		"_error: column \"x\" does not exist_",
	}
	got := buf.String()
	for _, line := range want {
		if !strings.Contains(got, line) {
			t.Errorf("markdown missing %q:\n%s", line, got)
		}
	}
}

func TestMarkdownMaxRows(t *testing.T) {
	r := &report.Result{ReportID: "r", Sections: []report.SectionResult{{
		Name: "s", Status: report.SectionOK,
		Entries: []report.Entry{
			{Label: "a", Values: map[string]float64{"n": 1}},
			{Label: "b", Values: map[string]float64{"n": 2}},
			{Label: "c", Values: map[string]float64{"n": 3}},
		},
	}}}
	got := RenderMarkdown(r, 2)
	lines := []string{}
	for _, l := range strings.Split(got, "\n") {
		if strings.HasPrefix(l, "| a") || strings.HasPrefix(l, "| b") || strings.HasPrefix(l, "| c") {
			lines = append(lines, l)
		}
	}
	if diff := cmp.Diff([]string{"| a | 1 |", "| b | 2 |"}, lines); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got, "_1 more rows_") {
		t.Errorf("missing truncation note:\n%s", got)
	}
}
