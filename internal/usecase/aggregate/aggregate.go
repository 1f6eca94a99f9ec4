// Package aggregate merges per-variant candidate lists into one ranked pool.
package aggregate

import (
	"fmt"

	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
)

// Strategy names accepted by ByName.
const (
	StrategyMax = "max"
	StrategyRRF = "rrf"
)

// Func merges candidate lists. Output is deduplicated by id and sorted
// by score desc, ties by id asc. Nil lists (dropped branches) are ignored.
type Func func(lists [][]candidate.Candidate) []candidate.Candidate

// ByName resolves a configured strategy; "" means max.
func ByName(name string) (Func, error) {
	switch name {
	case "", StrategyMax:
		return Max, nil
	case StrategyRRF:
		return RRF, nil
	default:
		return nil, fmt.Errorf("unknown aggregation strategy %q", name)
	}
}

// Max keeps, for each item id, the hit with the highest score (and its variant).
func Max(lists [][]candidate.Candidate) []candidate.Candidate {
	best := make(map[string]candidate.Candidate)
	for _, list := range lists {
		for _, c := range list {
			cur, ok := best[c.ID()]
			if !ok || c.Score() > cur.Score() {
				best[c.ID()] = c
			}
		}
	}
	return sorted(best)
}

func sorted(m map[string]candidate.Candidate) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	candidate.Sort(out)
	return out
}
