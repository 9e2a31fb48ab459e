package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// sectionMarks are the status glyphs printed before each section.
var sectionMarks = map[string]string{
	report.SectionOK:     "✓",
	report.SectionNoData: "○",
	report.SectionError:  "✗",
}

// PrintExecutionResult displays the report execution result. Degraded
// sections are always printed, to errW, even in quiet mode.
func PrintExecutionResult(w, errW io.Writer, result *report.Result, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(errW, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(errW, "✗ Report execution failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(errW, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(errW, "  Category: %s\n", result.Error.Category)
			fmt.Fprintf(errW, "  Error: %s\n", result.Error.Message)
		}
		return
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "✓ Report %s executed\n", result.ReportID)
		fmt.Fprintf(w, "  Status: %s\n", result.Status)
		if opts.Verbose {
			fmt.Fprintf(w, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))
			names := make([]string, 0, len(result.Parameters))
			for name := range result.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "  Parameter %s: %q\n", name, result.Parameters[name])
			}
		}
	}

	for _, s := range result.Sections {
		if s.Status == report.SectionOK {
			if !opts.Quiet {
				fmt.Fprintf(w, "  %s %s (%s)%s\n", sectionMarks[s.Status], s.Name, s.Type, sectionDetail(s, opts.Verbose))
			}
			continue
		}
		msg := ""
		if s.Error != nil {
			msg = fmt.Sprintf(": %s: %s", s.Error.Category, s.Error.Message)
		}
		fmt.Fprintf(errW, "  %s %s (%s) %s%s\n", sectionMarks[s.Status], s.Name, s.Type, s.Status, msg)
	}
}

func sectionDetail(s report.SectionResult, verbose bool) string {
	var d string
	switch {
	case len(s.Entries) > 0:
		d = fmt.Sprintf(" %d entries", len(s.Entries))
	case len(s.Bins) > 0:
		d = fmt.Sprintf(" %d bins", len(s.Bins))
	case len(s.Points) > 0:
		d = fmt.Sprintf(" %d points", len(s.Points))
	case len(s.Metrics) > 0:
		d = fmt.Sprintf(" %d metrics", len(s.Metrics))
	}
	if verbose {
		d += fmt.Sprintf(" in %dms", s.DurationMs)
	}
	return d
}

// PrintReportSummary prints the shape of a loaded report.
func PrintReportSummary(w io.Writer, r *report.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "  Report: %s (%s)\n", r.Name, r.ID)
	if r.Version != "" {
		fmt.Fprintf(w, "  Version: %s\n", r.Version)
	}
	fmt.Fprintf(w, "  Sources: %d, views: %d, sections: %d, outputs: %d\n",
		len(r.Sources), len(r.Views), len(r.Sections), len(r.Outputs))
	for _, p := range r.Parameters {
		fmt.Fprintf(w, "  Parameter %s (default %q)\n", p.Name, p.Default)
	}
}
