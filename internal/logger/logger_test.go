package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
)

// capture redirects the logger to a buffer for the duration of a test.
func capture(t *testing.T, lvl slog.Level, f logger.OutputFormat) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLevelAndFormat(lvl, f)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevelAndFormat(slog.LevelInfo, logger.FormatJSON)
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerInitialization(t *testing.T) {
	if logger.Logger == nil {
		t.Fatal("Logger should be initialized on package load")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.OutputFormat
		wantErr bool
	}{
		{"", logger.FormatJSON, false},
		{"json", logger.FormatJSON, false},
		{"HUMAN", logger.FormatHuman, false},
		{"xml", logger.FormatJSON, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logger.ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogExecutionStartAndEnd(t *testing.T) {
	buf := capture(t, slog.LevelInfo, logger.FormatJSON)
	ctx := logger.ExecutionContext{ReportID: "irs", ReportName: "Nonprofit IRS"}

	logger.LogExecutionStart(ctx, map[string]string{"state": "CA"})
	logger.LogExecutionEnd(ctx, "success", 4, 1500*time.Millisecond)

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d log lines, want 2", len(entries))
	}
	if entries[0]["msg"] != "execution started" || entries[0]["report_id"] != "irs" {
		t.Errorf("unexpected start entry: %v", entries[0])
	}
	end := entries[1]
	if end["status"] != "success" || end["sections"] != float64(4) || end["duration_ms"] != float64(1500) {
		t.Errorf("unexpected end entry: %v", end)
	}
	if _, ok := end["section"]; ok {
		t.Error("empty section field should be omitted")
	}
}

func TestLogStageEnd(t *testing.T) {
	buf := capture(t, slog.LevelDebug, logger.FormatJSON)
	ctx := logger.ExecutionContext{ReportID: "env", Stage: "view", View: "form990"}

	logger.LogStageEnd(ctx, 10, 4, time.Millisecond, nil)
	logger.LogStageEnd(ctx, -1, -1, 0, errors.New("column missing"))

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d log lines, want 2", len(entries))
	}
	if entries[0]["rows_in"] != float64(10) || entries[0]["rows_out"] != float64(4) {
		t.Errorf("unexpected row counts: %v", entries[0])
	}
	if entries[1]["level"] != "WARN" || entries[1]["error"] != "column missing" {
		t.Errorf("unexpected failure entry: %v", entries[1])
	}
	if _, ok := entries[1]["rows_in"]; ok {
		t.Error("rows_in = -1 should be omitted")
	}
}

func TestLogErrorIncludesChain(t *testing.T) {
	buf := capture(t, slog.LevelInfo, logger.FormatJSON)
	root := errors.New("no such file")
	err := fmt.Errorf("load sec: %w", root)

	logger.LogError("section failed", logger.ErrorContext{
		ExecutionContext: logger.ExecutionContext{ReportID: "sec", Section: "summary"},
		Category:         "parse",
		Err:              err,
		Path:             "data/sec.csv",
	})

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d log lines, want 1", len(entries))
	}
	e := entries[0]
	if e["error_category"] != "parse" || e["path"] != "data/sec.csv" {
		t.Errorf("unexpected error entry: %v", e)
	}
	if chain, _ := e["error_chain"].(string); !strings.Contains(chain, "load sec: no such file -> no such file") {
		t.Errorf("error_chain = %q", chain)
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})
	l := slog.New(h).With(slog.String("report_id", "irs"))

	l.Info("execution completed", slog.String("status", "success"))
	l.Debug("hidden")
	l.Error("stage failed", slog.String("error", "bad row"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, "✓ execution completed report_id=irs status=success") {
		t.Errorf("missing success line in %q", out)
	}
	if !strings.Contains(out, `✗ stage failed report_id=irs error="bad row"`) {
		t.Errorf("missing error line in %q", out)
	}
}

func TestFormatMetricsHuman(t *testing.T) {
	got := logger.FormatMetricsHuman(logger.ExecutionMetrics{
		TotalDuration:  250 * time.Millisecond,
		RowsLoaded:     1200,
		SectionsOK:     5,
		SectionsNoData: 1,
		SectionsFailed: 2,
	})
	want := "Computed 8 sections from 1200 rows in 250ms, 1 without data, 2 failed"
	if got != want {
		t.Errorf("FormatMetricsHuman() = %q, want %q", got, want)
	}
}

func TestSetLogFile(t *testing.T) {
	buf := capture(t, slog.LevelInfo, logger.FormatHuman)
	path := filepath.Join(t.TempDir(), "seed.log")

	if err := logger.SetLogFile(path); err != nil {
		t.Fatalf("SetLogFile() error = %v", err)
	}
	logger.Info("cache warmed", slog.Int("tables", 3))
	logger.CloseLogFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"cache warmed"`) {
		t.Errorf("log file missing JSON record: %s", data)
	}
	if !strings.Contains(buf.String(), "cache warmed tables=3") {
		t.Errorf("console missing human record: %s", buf.String())
	}
}
