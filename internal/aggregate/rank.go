package aggregate

import (
	"fmt"
	"sort"

	"github.com/TheUndivideProject/Prototype-1/internal/errhandling"
)

// Order selects the end of the ranking.
type Order string

const (
	OrderTop    Order = "top"
	OrderBottom Order = "bottom"
)

// Top returns the n entries with the largest value of the named reduction.
// Ties keep first-encountered order.
func Top(r *Result, by string, n int) ([]Entry, error) {
	return Rank(r, OrderTop, by, n)
}

// Bottom returns the n entries with the smallest value of the named reduction.
func Bottom(r *Result, by string, n int) ([]Entry, error) {
	return Rank(r, OrderBottom, by, n)
}

// Rank sorts a copy of r's entries by the named value and keeps the first n.
// An empty by ranks on the first reduction. n <= 0 returns no entries.
func Rank(r *Result, order Order, by string, n int) ([]Entry, error) {
	if by == "" && len(r.Reductions) > 0 {
		by = r.Reductions[0].Name()
	}
	if !hasReduction(r, by) {
		return nil, errhandling.NewValidationError(fmt.Sprintf("cannot rank by %q: no such reduction", by), nil)
	}
	if order != OrderTop && order != OrderBottom {
		return nil, errhandling.NewValidationError(fmt.Sprintf("unknown rank order %q", order), nil)
	}
	if n <= 0 {
		return []Entry{}, nil
	}

	ranked := make([]Entry, len(r.Entries))
	copy(ranked, r.Entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if order == OrderTop {
			return ranked[i].Values[by] > ranked[j].Values[by]
		}
		return ranked[i].Values[by] < ranked[j].Values[by]
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func hasReduction(r *Result, name string) bool {
	for _, red := range r.Reductions {
		if red.Name() == name {
			return true
		}
	}
	return false
}
