package section

import (
	"context"

	"github.com/TheUndivideProject/Prototype-1/internal/classify"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// ClassifySection tallies a view by size class.
//
//	type: classify
//	config:
//	  view: filings990
//	  column: totassetsend
//	  boundaries: [1000000, 10000000]
//	  labels: [small, medium, large]
//	  sums: [totrevenue]
type ClassifySection struct {
	base
	view       string
	column     string
	sums       []string
	classifier *classify.Classifier
}

// NewClassify builds a classify section from its config.
func NewClassify(cfg report.ModuleConfig) (*ClassifySection, error) {
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
	boundaries, err := moduleconfig.FloatSlice(cfg.Config, "boundaries")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	labels, err := moduleconfig.StringSlice(cfg.Config, "labels")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	unclassified, err := moduleconfig.OptionalString(cfg.Config, "unclassified", "")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	sums, err := moduleconfig.StringSlice(cfg.Config, "sums")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	c, err := classify.New(boundaries, labels, unclassified)
	if err != nil {
		return nil, err
	}
	return &ClassifySection{base: b, view: view, column: column, sums: sums, classifier: c}, nil
}

// Views implements Module.
func (s *ClassifySection) Views() []string { return []string{s.view} }

// Compute implements Module.
func (s *ClassifySection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	t, err := env.View(ctx, s.view)
	if err != nil {
		return nil, err
	}
	tally, err := s.classifier.Tally(t, s.column, s.sums...)
	if err != nil {
		return nil, err
	}
	r := s.result()
	r.Entries = toEntries(tally.Entries, nil)
	r.TotalEntries = tally.Len()
	r.Metrics = []report.Metric{numberMetric("total_count", tally.Total("count"))}
	return s.finish(env, r), nil
}

var _ Module = (*ClassifySection)(nil)
