package section

import (
	"context"

	"github.com/TheUndivideProject/Prototype-1/internal/aggregate"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// DefaultBins is the histogram bin count when none is configured.
const DefaultBins = 50

// HistogramSection bins one numeric column and describes its shape with
// skewness, median, and quartiles.
type HistogramSection struct {
	base
	view   string
	column string
	bins   int
}

// NewHistogram builds a histogram section from its config.
func NewHistogram(cfg report.ModuleConfig) (*HistogramSection, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	view, err := requireView(cfg.Config)
	if err != nil {
		return nil, err
	}
	column, err := moduleconfig.String(cfg.Config, "column")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	bins, err := moduleconfig.Int(cfg.Config, "bins", DefaultBins)
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if bins <= 0 {
		return nil, errhandling.NewValidationError("bins must be positive", nil)
	}
	return &HistogramSection{base: b, view: view, column: column, bins: bins}, nil
}

// Views implements Module.
func (s *HistogramSection) Views() []string { return []string{s.view} }

// Compute implements Module. A column with no values is an EmptyGroupError.
func (s *HistogramSection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	t, err := env.View(ctx, s.view)
	if err != nil {
		return nil, err
	}
	bins, err := aggregate.Histogram(t, s.column, s.bins)
	if err != nil {
		return nil, err
	}
	// Histogram succeeded, so the column has values and these cannot fail.
	skew, _ := aggregate.Skewness(t, s.column)
	median, _ := aggregate.Median(t, s.column)
	q1, _ := aggregate.Quantile(t, s.column, 0.25)
	q3, _ := aggregate.Quantile(t, s.column, 0.75)
	values, _ := aggregate.Numbers(t, s.column)

	r := s.result()
	for _, b := range bins {
		r.Bins = append(r.Bins, report.Bin{Lower: b.Lower, Upper: b.Upper, Count: b.Count})
	}
	skewMetric := numberMetric("skewness", skew)
	skewMetric.Text = aggregate.SkewLabel(skew)
	r.Metrics = []report.Metric{
		skewMetric,
		numberMetric("median", median),
		numberMetric("q1", q1),
		numberMetric("q3", q3),
		numberMetric("iqr", q3-q1),
		numberMetric("count", float64(len(values))),
	}
	return s.finish(env, r), nil
}

var _ Module = (*HistogramSection)(nil)
