package section

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TheUndivideProject/Prototype-1/internal/aggregate"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Summary metric operations beyond the aggregate reductions.
const (
	opQuantile = "quantile"
	opSkewness = "skewness"
)

// MetricConfig is one scalar of a summary section.
type MetricConfig struct {
	Name   string
	View   string
	Column string
	Op     string
	Q      float64
}

// SummarySection computes named scalar metrics. A metric whose input has no
// values is reported with status no_data and the others still compute.
//
//	type: summary
//	config:
//	  view: sec
//	  metrics:
//	    - {name: companies, column: Name, op: nunique}
//	    - {name: median_float, column: Public Float, op: median}
//	    - {name: q1, column: Public Float, op: quantile, q: 0.25}
type SummarySection struct {
	base
	view    string
	metrics []MetricConfig
}

// NewSummary builds a summary section from its config.
func NewSummary(cfg report.ModuleConfig) (*SummarySection, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	view, err := moduleconfig.OptionalString(cfg.Config, "view", "")
	if err != nil {
		return nil, err
	}
	raw, err := moduleconfig.MapSlice(cfg.Config, "metrics")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errhandling.NewValidationError("summary needs at least one metric", nil)
	}

	s := &SummarySection{base: b, view: view}
	seen := make(map[string]bool, len(raw))
	for i, m := range raw {
		mc, err := parseMetric(m, view)
		if err != nil {
			return nil, errhandling.NewValidationError(fmt.Sprintf("metrics[%d]: %v", i, err), err)
		}
		if seen[mc.Name] {
			return nil, errhandling.NewValidationError(fmt.Sprintf("duplicate metric name %q", mc.Name), nil)
		}
		seen[mc.Name] = true
		s.metrics = append(s.metrics, mc)
	}
	return s, nil
}

func parseMetric(m map[string]interface{}, defaultView string) (MetricConfig, error) {
	op, err := moduleconfig.String(m, "op")
	if err != nil {
		return MetricConfig{}, err
	}
	column, err := moduleconfig.OptionalString(m, "column", "")
	if err != nil {
		return MetricConfig{}, err
	}
	view, err := moduleconfig.OptionalString(m, "view", defaultView)
	if err != nil {
		return MetricConfig{}, err
	}
	if view == "" {
		return MetricConfig{}, fmt.Errorf("metric needs a view")
	}
	name, err := moduleconfig.OptionalString(m, "name", "")
	if err != nil {
		return MetricConfig{}, err
	}

	mc := MetricConfig{Name: name, View: view, Column: column, Op: op}
	switch op {
	case opQuantile:
		q, err := moduleconfig.OptionalFloat(m, "q")
		if err != nil {
			return MetricConfig{}, err
		}
		if q == nil || *q < 0 || *q > 1 {
			return MetricConfig{}, fmt.Errorf("quantile needs q in [0, 1]")
		}
		mc.Q = *q
	case opSkewness:
	default:
		if !aggregate.Op(op).Valid() {
			return MetricConfig{}, fmt.Errorf("unknown op %q", op)
		}
	}
	if column == "" && op != string(aggregate.OpCount) {
		return MetricConfig{}, fmt.Errorf("op %q needs a column", op)
	}
	if mc.Name == "" {
		mc.Name = aggregate.Reduction{Op: aggregate.Op(op), Column: column}.Name()
	}
	return mc, nil
}

// Views implements Module.
func (s *SummarySection) Views() []string {
	views := make([]string, 0, len(s.metrics))
	seen := map[string]bool{}
	for _, m := range s.metrics {
		if !seen[m.View] {
			seen[m.View] = true
			views = append(views, m.View)
		}
	}
	return views
}

// Compute implements Module.
func (s *SummarySection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	r := s.result()
	for _, mc := range s.metrics {
		t, err := env.View(ctx, mc.View)
		if err != nil {
			return nil, err
		}
		m, err := computeMetric(t, mc)
		if err != nil {
			if !errhandling.IsEmptyGroup(err) {
				return nil, err
			}
			logger.Debug("metric has no data",
				slog.String("section", s.name),
				slog.String("metric", mc.Name),
				slog.String("error", err.Error()),
			)
			m = noDataMetric(mc.Name)
		}
		r.Metrics = append(r.Metrics, m)
	}
	return s.finish(env, r), nil
}

func computeMetric(t *table.Table, mc MetricConfig) (report.Metric, error) {
	switch mc.Op {
	case string(aggregate.OpSum):
		d, err := aggregate.Sum(t, mc.Column)
		return numberMetric(mc.Name, d.InexactFloat64()), err
	case string(aggregate.OpCount):
		n, err := aggregate.Count(t, mc.Column)
		return numberMetric(mc.Name, float64(n)), err
	case string(aggregate.OpNUnique):
		n, err := aggregate.NUnique(t, mc.Column)
		return numberMetric(mc.Name, float64(n)), err
	case string(aggregate.OpMedian):
		v, err := aggregate.Median(t, mc.Column)
		return numberMetric(mc.Name, v), err
	case string(aggregate.OpMean):
		v, err := aggregate.Mean(t, mc.Column)
		return numberMetric(mc.Name, v), err
	case opQuantile:
		v, err := aggregate.Quantile(t, mc.Column, mc.Q)
		return numberMetric(mc.Name, v), err
	case opSkewness:
		v, err := aggregate.Skewness(t, mc.Column)
		m := numberMetric(mc.Name, v)
		m.Text = aggregate.SkewLabel(v)
		return m, err
	case string(aggregate.OpMin), string(aggregate.OpMax):
		fn := aggregate.Min
		if mc.Op == string(aggregate.OpMax) {
			fn = aggregate.Max
		}
		v, err := fn(t, mc.Column)
		if err != nil {
			return report.Metric{}, err
		}
		if v.IsTime {
			return report.Metric{Name: mc.Name, Text: v.String(), Status: report.SectionOK}, nil
		}
		return numberMetric(mc.Name, v.Number), nil
	}
	return report.Metric{}, errhandling.NewValidationError(fmt.Sprintf("unknown op %q", mc.Op), nil)
}

var _ Module = (*SummarySection)(nil)
