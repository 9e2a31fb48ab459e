// Package section computes the data behind report widgets.
//
// A section reads one or more views through an Env, reduces them with the
// aggregate and classify packages, and returns a report.SectionResult. A
// section may carry a narrative template that is rendered against its own
// result, so labels such as the top-ranked state come from the data.
package section

import (
	"context"
	"strings"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
	"github.com/TheUndivideProject/Prototype-1/internal/template"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Env gives a section access to the resolved tables of one execution.
type Env interface {
	// View returns the named view or source table.
	View(ctx context.Context, name string) (*table.Table, error)
	// Dataset loads a reference file by path, relative to the report.
	Dataset(ctx context.Context, path string) (*table.Table, error)
	// Params returns the resolved report parameters.
	Params() map[string]string
}

// Module represents a section module.
type Module interface {
	// Compute produces the section result.
	Compute(ctx context.Context, env Env) (*report.SectionResult, error)
	// Views lists the views the section reads, for validation before execution.
	Views() []string
}

var narratives = template.NewEvaluator()

// base carries the fields every section shares.
type base struct {
	name      string
	typ       string
	title     string
	narrative string
}

func newBase(cfg report.ModuleConfig) (base, error) {
	narrative, err := moduleconfig.OptionalString(cfg.Config, "narrative", "")
	if err != nil {
		return base{}, errhandling.NewValidationError(err.Error(), err)
	}
	if err := template.ValidateSyntax(narrative); err != nil {
		return base{}, errhandling.NewValidationError("narrative: "+err.Error(), err)
	}
	return base{name: cfg.Name, typ: cfg.Type, title: cfg.Title, narrative: narrative}, nil
}

func (b base) result() *report.SectionResult {
	return &report.SectionResult{
		Name:   b.name,
		Type:   b.typ,
		Title:  b.title,
		Status: report.SectionOK,
	}
}

// finish renders the narrative against the computed result.
func (b base) finish(env Env, r *report.SectionResult) *report.SectionResult {
	if b.narrative != "" {
		r.Narrative = strings.TrimSpace(narratives.Evaluate(b.narrative, NarrativeData(r, env.Params())))
	}
	return r
}

// NarrativeData exposes a section result to templates:
//
//	{{title}}, {{params.state}}, {{total_entries}}
//	{{entries[0].label}}, {{entries[0].key}}, {{entries[0].values.count}}
//	{{metrics.median_float}}, {{bins[0].count}}
func NarrativeData(r *report.SectionResult, params map[string]string) map[string]interface{} {
	entries := make([]interface{}, len(r.Entries))
	for i, e := range r.Entries {
		values := make(map[string]interface{}, len(e.Values))
		for k, v := range e.Values {
			values[k] = v
		}
		entries[i] = map[string]interface{}{
			"rank":   i + 1,
			"key":    e.Key,
			"label":  e.Label,
			"values": values,
		}
	}

	metrics := make(map[string]interface{}, len(r.Metrics))
	for _, m := range r.Metrics {
		switch {
		case m.Text != "" && m.Value == nil:
			metrics[m.Name] = m.Text
		case m.Value != nil:
			metrics[m.Name] = *m.Value
		}
		if m.Text != "" {
			metrics[m.Name+"_label"] = m.Text
		}
	}

	bins := make([]interface{}, len(r.Bins))
	for i, b := range r.Bins {
		bins[i] = map[string]interface{}{"lower": b.Lower, "upper": b.Upper, "count": b.Count}
	}

	p := make(map[string]interface{}, len(params))
	for k, v := range params {
		p[k] = v
	}

	return map[string]interface{}{
		"name":          r.Name,
		"title":         r.Title,
		"params":        p,
		"entries":       entries,
		"total_entries": r.TotalEntries,
		"metrics":       metrics,
		"bins":          bins,
		"points":        len(r.Points),
	}
}

func numberMetric(name string, v float64) report.Metric {
	return report.Metric{Name: name, Value: &v, Status: report.SectionOK}
}

func noDataMetric(name string) report.Metric {
	return report.Metric{Name: name, Status: report.SectionNoData}
}

func requireView(cfg map[string]interface{}) (string, error) {
	view, err := moduleconfig.String(cfg, "view")
	if err != nil {
		return "", errhandling.NewValidationError(err.Error(), err)
	}
	return view, nil
}
