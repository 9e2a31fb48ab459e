package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// MarkdownConfig configures the markdown output.
type MarkdownConfig struct {
	Path string `json:"path"`
	// MaxRows bounds the rows printed per entry table (0 = all)
	MaxRows int `json:"maxRows"`
}

// MarkdownModule writes a human-readable report.
type MarkdownModule struct {
	config MarkdownConfig
	stdout io.Writer
}

// ParseMarkdownConfig parses raw config into a MarkdownConfig.
func ParseMarkdownConfig(cfg map[string]interface{}) (MarkdownConfig, error) {
	path, err := moduleconfig.OptionalString(cfg, "path", StdoutPath)
	if err != nil {
		return MarkdownConfig{}, err
	}
	maxRows, err := moduleconfig.Int(cfg, "maxRows", 0)
	if err != nil {
		return MarkdownConfig{}, err
	}
	return MarkdownConfig{Path: path, MaxRows: maxRows}, nil
}

// NewMarkdown creates a markdown output.
func NewMarkdown(config MarkdownConfig) *MarkdownModule {
	return &MarkdownModule{config: config, stdout: os.Stdout}
}

// WithStdout redirects "-" to w.
func (m *MarkdownModule) WithStdout(w io.Writer) *MarkdownModule {
	m.stdout = w
	return m
}

// Write implements Module.
func (m *MarkdownModule) Write(ctx context.Context, result *report.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := destination(m.config.Path, m.stdout)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, RenderMarkdown(result, m.config.MaxRows)); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing markdown: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", m.config.Path, err)
	}
	logger.Debug("result written",
		slog.String("module_type", "markdown"),
		slog.String("path", m.config.Path),
	)
	return nil
}

// Close implements Module.
func (m *MarkdownModule) Close() error { return nil }

// RenderMarkdown formats a result as a markdown document.
func RenderMarkdown(result *report.Result, maxRows int) string {
	var b strings.Builder
	name := result.ReportName
	if name == "" {
		name = result.ReportID
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	if len(result.Parameters) > 0 {
		keys := make([]string, 0, len(result.Parameters))
		for k := range result.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = `%s`", k, result.Parameters[k])
		}
		fmt.Fprintf(&b, "Parameters: %s\n\n", strings.Join(parts, ", "))
	}
	if result.Error != nil {
		fmt.Fprintf(&b, "> **Error** (%s): %s\n\n", result.Error.Category, result.Error.Message)
	}

	for i := range result.Sections {
		writeSection(&b, &result.Sections[i], maxRows)
	}
	return b.String()
}

func writeSection(b *strings.Builder, s *report.SectionResult, maxRows int) {
	title := s.Title
	if title == "" {
		title = s.Name
	}
	fmt.Fprintf(b, "## %s\n\n", title)

	switch s.Status {
	case report.SectionError, report.SectionNoData:
		msg := "no data"
		if s.Error != nil {
			msg = s.Error.Message
		}
		fmt.Fprintf(b, "_%s: %s_\n\n", strings.ReplaceAll(s.Status, "_", " "), msg)
		return
	}

	if s.Narrative != "" {
		fmt.Fprintf(b, "%s\n\n", s.Narrative)
	}
	if len(s.Metrics) > 0 {
		b.WriteString("| Metric | Value |\n|---|---|\n")
		for _, m := range s.Metrics {
			fmt.Fprintf(b, "| %s | %s |\n", m.Name, metricText(m))
		}
		b.WriteString("\n")
	}
	if len(s.Entries) > 0 {
		writeEntries(b, s.Entries, maxRows)
	}
	if len(s.Bins) > 0 {
		b.WriteString("| Range | Count |\n|---|---|\n")
		for _, bin := range s.Bins {
			fmt.Fprintf(b, "| %s to %s | %d |\n", formatNumber(bin.Lower), formatNumber(bin.Upper), bin.Count)
		}
		b.WriteString("\n")
	}
	if s.Type == "points" {
		fmt.Fprintf(b, "%d locations", len(s.Points))
		if s.Center != nil {
			fmt.Fprintf(b, " centered on %s, %s", formatNumber(s.Center.Latitude), formatNumber(s.Center.Longitude))
		}
		b.WriteString("\n\n")
	}
}

func writeEntries(b *strings.Builder, entries []report.Entry, maxRows int) {
	var columns []string
	seen := map[string]bool{}
	for _, e := range entries {
		for k := range e.Values {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	b.WriteString("| | " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|---" + strings.Repeat("|---", len(columns)) + "|\n")
	for i, e := range entries {
		if maxRows > 0 && i >= maxRows {
			fmt.Fprintf(b, "\n_%d more rows_\n", len(entries)-maxRows)
			break
		}
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = formatNumber(e.Values[c])
		}
		fmt.Fprintf(b, "| %s | %s |\n", e.Label, strings.Join(cells, " | "))
	}
	b.WriteString("\n")
}

func metricText(m report.Metric) string {
	switch {
	case m.Status == report.SectionNoData:
		return "no data"
	case m.Value != nil && m.Text != "":
		return fmt.Sprintf("%s (%s)", formatNumber(*m.Value), m.Text)
	case m.Value != nil:
		return formatNumber(*m.Value)
	default:
		return m.Text
	}
}

func formatNumber(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

var _ Module = (*MarkdownModule)(nil)
