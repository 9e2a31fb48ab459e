// Package report provides public types for report configurations and their results.
// This package is intended to be importable by presentation layers (dashboards,
// notebooks) that consume the JSON results produced by the seed runtime.
package report

import "time"

// Report represents a complete report configuration: where the datasets live,
// how they are narrowed into views, and which sections are computed from them.
type Report struct {
	// ID is the unique identifier for this report
	ID string `json:"id"`

	// Name is the human-readable name of the report
	Name string `json:"name"`

	// Description provides additional context about the report
	Description string `json:"description,omitempty"`

	// Version is the report configuration version
	Version string `json:"version,omitempty"`

	// Parameters are the interactive selections (metric, state) a caller may override
	Parameters []Parameter `json:"parameters,omitempty"`

	// Sources are the dataset files the report reads
	Sources []Source `json:"sources"`

	// Views are named, filtered derivations of sources or other views
	Views []View `json:"views,omitempty"`

	// Sections are the computed widgets of the report, in display order
	Sections []ModuleConfig `json:"sections"`

	// Outputs receive the finished result
	Outputs []ModuleConfig `json:"outputs,omitempty"`

	// Concurrency bounds how many sections are computed in parallel (0 = default)
	Concurrency int `json:"concurrency,omitempty"`

	// BaseDir is the directory relative source paths resolve against.
	// It is set from the location of the configuration file.
	BaseDir string `json:"-"`
}

// Parameter declares one caller-selectable value.
type Parameter struct {
	// Name is referenced from module configs as {{params.<name>}}
	Name string `json:"name"`

	// Description is shown by the CLI and API
	Description string `json:"description,omitempty"`

	// Default is used when the caller does not supply a value
	Default string `json:"default"`

	// Allowed restricts the accepted values when non-empty
	Allowed []string `json:"allowed,omitempty"`
}

// Source declares a delimited dataset file.
type Source struct {
	// Name identifies the source for views and sections
	Name string `json:"name"`

	// Path is the file path, relative to the report file unless absolute
	Path string `json:"path"`

	// Format selects the input module: "csv" (default) or "tsv"
	Format string `json:"format,omitempty"`

	// Delimiter is the field separator (default ",")
	Delimiter string `json:"delimiter,omitempty"`

	// Columns declares semantic types: string, date, currency, integer
	Columns map[string]string `json:"columns,omitempty"`
}

// View is a named table derived from a source or another view by a filter chain.
type View struct {
	// Name identifies the view
	Name string `json:"name"`

	// From names the source or view this view narrows
	From string `json:"from"`

	// Filters is the ordered list of filter modules
	Filters []ModuleConfig `json:"filters,omitempty"`
}

// ModuleConfig represents the configuration for a filter, section, or output module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "prefix", "aggregate", "json")
	Type string `json:"type"`

	// Name identifies a section within its report (unused for filters and outputs)
	Name string `json:"name,omitempty"`

	// Title is the display title of a section
	Title string `json:"title,omitempty"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config,omitempty"`
}

// Execution status values.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Section status values.
const (
	SectionOK     = "ok"
	SectionNoData = "no_data"
	SectionError  = "error"
)

// Result represents the outcome of one report execution.
type Result struct {
	// ReportID is the ID of the executed report
	ReportID string `json:"reportId"`

	// ReportName is the display name of the executed report
	ReportName string `json:"reportName,omitempty"`

	// Status is "success", "partial" (some sections degraded), or "error"
	Status string `json:"status"`

	// Parameters are the resolved parameter values used by this execution
	Parameters map[string]string `json:"parameters,omitempty"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// Sections are the computed sections in configuration order
	Sections []SectionResult `json:"sections"`

	// Error contains details when the whole execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// Section returns the section named name, or nil.
func (r *Result) Section(name string) *SectionResult {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i]
		}
	}
	return nil
}

// SectionResult is the data behind one presentation widget.
type SectionResult struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`

	// Error is set when Status is "error" or "no_data"
	Error *ExecutionError `json:"error,omitempty"`

	// Entries is the (possibly ranked) aggregate table
	Entries []Entry `json:"entries,omitempty"`

	// TotalEntries is the entry count before pagination
	TotalEntries int `json:"totalEntries,omitempty"`

	// Metrics are the scalar values of summary, share, and histogram sections
	Metrics []Metric `json:"metrics,omitempty"`

	// Bins is the histogram distribution
	Bins []Bin `json:"bins,omitempty"`

	// Points are map markers
	Points []Point `json:"points,omitempty"`

	// Center is the map center for points sections
	Center *Coordinate `json:"center,omitempty"`

	// Narrative is the rendered context text
	Narrative string `json:"narrative,omitempty"`

	// DurationMs is how long the section took to compute
	DurationMs int64 `json:"durationMs"`
}

// Metric returns the metric named name, or nil.
func (s *SectionResult) Metric(name string) *Metric {
	for i := range s.Metrics {
		if s.Metrics[i].Name == name {
			return &s.Metrics[i]
		}
	}
	return nil
}

// Entry is one category of an aggregate result.
type Entry struct {
	// Key is the raw category value (state code, SIC code, size label)
	Key string `json:"key"`

	// Label is the display name of the key (state name), defaulting to Key
	Label string `json:"label"`

	// Values maps reduction names to their values
	Values map[string]float64 `json:"values"`
}

// Metric is a named scalar.
type Metric struct {
	Name string `json:"name"`

	// Value is the numeric value; nil when the metric has no data or is textual
	Value *float64 `json:"value,omitempty"`

	// Text is the textual value (dates, skewness labels)
	Text string `json:"text,omitempty"`

	// Status is "ok" or "no_data"
	Status string `json:"status"`
}

// Bin is one histogram bucket. The last bin is closed on both ends.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Coordinate is a latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point is one map marker with its display fields.
type Point struct {
	Coordinate
	Fields map[string]string `json:"fields,omitempty"`
}

// ExecutionError contains details about a failure.
type ExecutionError struct {
	// Category is the error category (parse, schema, empty_group, validation, unknown)
	Category string `json:"category"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the section, view, or output where the error occurred
	Module string `json:"module,omitempty"`
}
