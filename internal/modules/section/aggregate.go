package section

import (
	"context"
	"fmt"

	"github.com/TheUndivideProject/Prototype-1/internal/aggregate"
	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/reference"
	"github.com/TheUndivideProject/Prototype-1/pkg/report"
)

// RankConfig selects the top or bottom n entries by one reduction.
type RankConfig struct {
	Order aggregate.Order
	N     int
	By    string
}

// AggregateSection groups a view and reports one entry per group.
//
//	type: aggregate
//	config:
//	  view: filings
//	  groupBy: STATE
//	  reductions: [{op: sum, column: REVENUE_AMT, as: revenue}]
//	  rank: {order: top, n: 3, by: revenue}
//	  labels: states
type AggregateSection struct {
	base
	view       string
	groupBy    string
	reductions []aggregate.Reduction
	rank       *RankConfig
	labeler    reference.Labeler
}

// NewAggregate builds an aggregate section from its config.
func NewAggregate(cfg report.ModuleConfig) (*AggregateSection, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	view, err := requireView(cfg.Config)
	if err != nil {
		return nil, err
	}
	groupBy, err := moduleconfig.String(cfg.Config, "groupBy")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	reductions, err := parseReductions(cfg.Config)
	if err != nil {
		return nil, err
	}
	rank, err := parseRank(cfg.Config, reductions)
	if err != nil {
		return nil, err
	}

	s := &AggregateSection{base: b, view: view, groupBy: groupBy, reductions: reductions, rank: rank}

	labels, err := moduleconfig.OptionalString(cfg.Config, "labels", "")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if labels != "" {
		l, ok := reference.LookupLabeler(labels)
		if !ok {
			return nil, errhandling.NewValidationError(fmt.Sprintf("unknown labels %q", labels), nil)
		}
		s.labeler = l
	}
	return s, nil
}

func parseReductions(cfg map[string]interface{}) ([]aggregate.Reduction, error) {
	raw, err := moduleconfig.MapSlice(cfg, "reductions")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if len(raw) == 0 {
		return []aggregate.Reduction{{Op: aggregate.OpCount}}, nil
	}
	reductions := make([]aggregate.Reduction, 0, len(raw))
	for i, r := range raw {
		op, err := moduleconfig.String(r, "op")
		if err != nil {
			return nil, errhandling.NewValidationError(fmt.Sprintf("reductions[%d]: %v", i, err), err)
		}
		column, err := moduleconfig.OptionalString(r, "column", "")
		if err != nil {
			return nil, errhandling.NewValidationError(fmt.Sprintf("reductions[%d]: %v", i, err), err)
		}
		as, err := moduleconfig.OptionalString(r, "as", "")
		if err != nil {
			return nil, errhandling.NewValidationError(fmt.Sprintf("reductions[%d]: %v", i, err), err)
		}
		red := aggregate.Reduction{Op: aggregate.Op(op), Column: column, As: as}
		if !red.Op.Valid() {
			return nil, errhandling.NewValidationError(fmt.Sprintf("reductions[%d]: unknown op %q", i, op), nil)
		}
		reductions = append(reductions, red)
	}
	return reductions, nil
}

func parseRank(cfg map[string]interface{}, reductions []aggregate.Reduction) (*RankConfig, error) {
	raw, err := moduleconfig.Map(cfg, "rank")
	if err != nil {
		return nil, errhandling.NewValidationError(err.Error(), err)
	}
	if raw == nil {
		return nil, nil
	}
	order, err := moduleconfig.OptionalString(raw, "order", string(aggregate.OrderTop))
	if err != nil {
		return nil, errhandling.NewValidationError("rank: "+err.Error(), err)
	}
	n, err := moduleconfig.Int(raw, "n", 0)
	if err != nil {
		return nil, errhandling.NewValidationError("rank: "+err.Error(), err)
	}
	by, err := moduleconfig.OptionalString(raw, "by", reductions[0].Name())
	if err != nil {
		return nil, errhandling.NewValidationError("rank: "+err.Error(), err)
	}

	switch aggregate.Order(order) {
	case aggregate.OrderTop, aggregate.OrderBottom:
	default:
		return nil, errhandling.NewValidationError(fmt.Sprintf("rank: unknown order %q", order), nil)
	}
	found := false
	for _, r := range reductions {
		found = found || r.Name() == by
	}
	if !found {
		return nil, errhandling.NewValidationError(fmt.Sprintf("rank: no reduction named %q", by), nil)
	}
	return &RankConfig{Order: aggregate.Order(order), N: n, By: by}, nil
}

// Views implements Module.
func (s *AggregateSection) Views() []string { return []string{s.view} }

// Compute implements Module.
func (s *AggregateSection) Compute(ctx context.Context, env Env) (*report.SectionResult, error) {
	t, err := env.View(ctx, s.view)
	if err != nil {
		return nil, err
	}
	grouped, err := aggregate.GroupBy(t, s.groupBy, s.reductions...)
	if err != nil {
		return nil, err
	}

	entries := grouped.Entries
	if s.rank != nil {
		if entries, err = aggregate.Rank(grouped, s.rank.Order, s.rank.By, s.rank.N); err != nil {
			return nil, err
		}
	}

	r := s.result()
	r.TotalEntries = grouped.Len()
	r.Entries = toEntries(entries, s.labeler)
	for _, red := range s.reductions {
		if red.Op == aggregate.OpSum || red.Op == aggregate.OpCount {
			r.Metrics = append(r.Metrics, numberMetric("total_"+red.Name(), grouped.Total(red.Name())))
		}
	}
	return s.finish(env, r), nil
}

func toEntries(entries []aggregate.Entry, labeler reference.Labeler) []report.Entry {
	out := make([]report.Entry, len(entries))
	for i, e := range entries {
		label := e.Key
		if labeler != nil {
			label = labeler(e.Key)
		}
		values := make(map[string]float64, len(e.Values))
		for k, v := range e.Values {
			values[k] = v
		}
		out[i] = report.Entry{Key: e.Key, Label: label, Values: values}
	}
	return out
}

var _ Module = (*AggregateSection)(nil)
