package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/TheUndivideProject/Prototype-1/internal/logger"
	"github.com/TheUndivideProject/Prototype-1/internal/metrics"
	"github.com/TheUndivideProject/Prototype-1/internal/moduleconfig"
	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// EntitySet is a set of normalized join keys (EINs).
type EntitySet map[string]struct{}

// NewEntitySet builds a set from raw keys, normalizing each one.
func NewEntitySet(keys ...string) EntitySet {
	s := make(EntitySet, len(keys))
	for _, k := range keys {
		if n, ok := table.NormalizeKey(k); ok {
			s[n] = struct{}{}
		}
	}
	return s
}

// BuildEntitySet collects the normalized non-null keys of column in t.
func BuildEntitySet(t *table.Table, column string) (EntitySet, error) {
	col, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	s := make(EntitySet)
	for row := 0; row < t.Len(); row++ {
		if k, ok := t.Key(row, col); ok {
			s[k] = struct{}{}
		}
	}
	return s, nil
}

// Contains reports whether the raw key, once normalized, is in the set.
func (s EntitySet) Contains(raw string) bool {
	n, ok := table.NormalizeKey(raw)
	if !ok {
		return false
	}
	_, found := s[n]
	return found
}

// Len returns the number of distinct keys.
func (s EntitySet) Len() int { return len(s) }

// Keys returns the keys in sorted order.
func (s EntitySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JoinStats describes what a semi-join kept and removed.
type JoinStats struct {
	Matched  int
	Dropped  int
	NullKeys int
}

// SemiJoin keeps the rows of target whose column value is in set. Rows with
// a null key never match. Row order is preserved and no columns are added,
// so joining twice with the same set is the same as joining once.
func SemiJoin(target *table.Table, column string, set EntitySet) (*table.Table, JoinStats, error) {
	col, err := target.ColumnIndex(column)
	if err != nil {
		return nil, JoinStats{}, err
	}

	var stats JoinStats
	out := target.Where(func(row int) bool {
		k, ok := target.Key(row, col)
		if !ok {
			stats.NullKeys++
			return false
		}
		if _, found := set[k]; found {
			stats.Matched++
			return true
		}
		stats.Dropped++
		return false
	})
	return out, stats, nil
}

// recordJoin logs the outcome of a semi-join and counts removed rows
// against the view that applied it.
func recordJoin(view, column string, set EntitySet, stats JoinStats) {
	if removed := stats.Dropped + stats.NullKeys; removed > 0 {
		metrics.JoinRowsDropped.WithLabelValues(view).Add(float64(removed))
	}
	logger.Info("semi-join applied",
		slog.String("view", view),
		slog.String("column", column),
		slog.Int("set_size", set.Len()),
		slog.Int("matched", stats.Matched),
		slog.Int("dropped", stats.Dropped),
		slog.Int("null_keys", stats.NullKeys),
	)
}

// SetSource resolves the entity set a semi-join filter draws its keys from.
type SetSource interface {
	EntitySet(ctx context.Context, view, column string) (EntitySet, error)
}

// SemiJoinConfig represents the configuration for a semiJoin filter module.
//
//	type: semiJoin
//	config:
//	  column: ein
//	  from: {view: environmental, column: EIN}
type SemiJoinConfig struct {
	// View is the view applying the join, used to label logs and metrics
	View       string `json:"view,omitempty"`
	Column     string `json:"column"`
	FromView   string `json:"fromView"`
	FromColumn string `json:"fromColumn"`
}

// SemiJoinModule restricts a table to the entities present in another view.
type SemiJoinModule struct {
	config SemiJoinConfig
	source SetSource
}

// ParseSemiJoinConfig parses raw config into a SemiJoinConfig.
func ParseSemiJoinConfig(cfg map[string]interface{}) (SemiJoinConfig, error) {
	column, err := moduleconfig.String(cfg, "column")
	if err != nil {
		return SemiJoinConfig{}, err
	}
	from, err := moduleconfig.Map(cfg, "from")
	if err != nil {
		return SemiJoinConfig{}, err
	}
	if from == nil {
		return SemiJoinConfig{}, fmt.Errorf("from is required in semiJoin config")
	}
	view, err := moduleconfig.String(from, "view")
	if err != nil {
		return SemiJoinConfig{}, fmt.Errorf("from: %w", err)
	}
	fromColumn, err := moduleconfig.String(from, "column")
	if err != nil {
		return SemiJoinConfig{}, fmt.Errorf("from: %w", err)
	}
	return SemiJoinConfig{Column: column, FromView: view, FromColumn: fromColumn}, nil
}

// NewSemiJoin returns a module that resolves its set from source on Apply.
func NewSemiJoin(config SemiJoinConfig, source SetSource) (*SemiJoinModule, error) {
	if source == nil {
		return nil, fmt.Errorf("semiJoin filter requires a set source")
	}
	return &SemiJoinModule{config: config, source: source}, nil
}

// Dependency returns the view the module draws its keys from.
func (m *SemiJoinModule) Dependency() string { return m.config.FromView }

// Apply implements Module.
func (m *SemiJoinModule) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	set, err := m.source.EntitySet(ctx, m.config.FromView, m.config.FromColumn)
	if err != nil {
		return nil, err
	}
	out, stats, err := SemiJoin(t, m.config.Column, set)
	if err != nil {
		return nil, err
	}
	view := m.config.View
	if view == "" {
		view = t.Name()
	}
	recordJoin(view, m.config.Column, set, stats)
	return out, nil
}

var _ Module = (*SemiJoinModule)(nil)
