package section

import (
	"context"
	"fmt"

	"github.com/TheUndivideProject/Prototype-1/internal/aggregate"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// Measure counts the rows or distinct values of a view.
type Measure struct {
	View   string
	Column string
	Op     aggregate.Op
}

func parseMeasure(cfg map[string]interface{}, key string) (Measure, error) {
	raw, err := moduleconfig.Map(cfg, key)
	if err != nil {
		return Measure{}, err
	}
	if raw == nil {
		return Measure{}, fmt.Errorf("%s is required", key)
	}
	view, err := moduleconfig.String(raw, "view")
	if err != nil {
		return Measure{}, fmt.Errorf("%s: %w", key, err)
	}
	column, err := moduleconfig.OptionalString(raw, "column", "")
	if err != nil {
		return Measure{}, fmt.Errorf("%s: %w", key, err)
	}
	op, err := moduleconfig.OptionalString(raw, "op", string(aggregate.OpCount))
	if err != nil {
		return Measure{}, fmt.Errorf("%s: %w", key, err)
	}

	m := Measure{View: view, Column: column, Op: aggregate.Op(op)}
	switch m.Op {
	case aggregate.OpCount:
	case aggregate.OpNUnique, aggregate.OpSum:
		if column == "" {
			return Measure{}, fmt.Errorf("%s: op %q needs a column", key, op)
		}
	default:
		return Measure{}, fmt.Errorf("%s: op must be count, nunique, or sum, got %q", key, op)
	}
	return m, nil
}

func (m Measure) eval(ctx context.Context, env Env) (float64, error) {
	t, err := env.View(ctx, m.View)
	if err != nil {
		return 0, err
	}
	switch m.Op {
	case aggregate.OpNUnique:
		n, err := aggregate.NUnique(t, m.Column)
		return float64(n), err
	case aggregate.OpSum:
		d, err := aggregate.Sum(t, m.Column)
		return d.InexactFloat64(), err
	default:
		n, err := aggregate.Count(t, m.Column)
		return float64(n), err
	}
}

// ShareSection compares a part to a whole, as in "companies that report a
// metric" against "all companies".
//
//	type: share
//	config:
//	  part:  {view: detailed, column: Name, op: nunique}
//	  whole: {view: sec, column: Name, op: nunique}
//
// Metrics: part, whole, rest, part_percent, rest_percent.
type ShareSection struct {
	base
	part  Measure
	whole Measure
}

// NewShare builds a share section from its config.
func NewShare(cfg report.ModuleConfig) (*ShareSection, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	part, err := parseMeasure(cfg.Config, "part")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	whole, err := parseMeasure(cfg.Config, "whole")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	return &ShareSection{base: b, part: part, whole: whole}, nil
}

// Views implements Module.
func (s *ShareSection) Views() []string {
	if s.part.View == s.whole.View {
		return []string{s.part.View}
	}
	return []string{s.part.View, s.whole.View}
}

// Compute implements Module.
func (s *ShareSection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	part, err := s.part.eval(ctx, env)
	if err != nil {
		return nil, err
	}
	whole, err := s.whole.eval(ctx, env)
	if err != nil {
		return nil, err
	}

	r := s.result()
	rest := whole - part
	r.Metrics = []report.Metric{
		numberMetric("part", part),
		numberMetric("whole", whole),
		numberMetric("rest", rest),
	}
	if whole == 0 {
		r.Metrics = append(r.Metrics, noDataMetric("part_percent"), noDataMetric("rest_percent"))
	} else {
		r.Metrics = append(r.Metrics,
			numberMetric("part_percent", part/whole*100),
			numberMetric("rest_percent", rest/whole*100),
		)
	}
	return s.finish(env, r), nil
}

var _ Module = (*ShareSection)(nil)
