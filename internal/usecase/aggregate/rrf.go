package aggregate

import (
	"github.com/kailas-cloud/vidsearch/internal/domain/search/candidate"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// RRF merges lists via Reciprocal Rank Fusion:
// score(d) = sum of 1/(k + rank_i(d)) over every list where d appears.
// The variant kept is the one from the list where d ranked best (earliest list on ties).
func RRF(lists [][]candidate.Candidate) []candidate.Candidate {
	type fused struct {
		score    float64
		bestRank int
		variant  string
	}

	merged := make(map[string]*fused)
	for _, list := range lists {
		for rank, c := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if f, ok := merged[c.ID()]; ok {
				f.score += s
				if rank < f.bestRank {
					f.bestRank = rank
					f.variant = c.Variant()
				}
				continue
			}
			merged[c.ID()] = &fused{score: s, bestRank: rank, variant: c.Variant()}
		}
	}

	out := make(map[string]candidate.Candidate, len(merged))
	for id, f := range merged {
		out[id] = candidate.New(id, f.score, f.variant)
	}
	return sorted(out)
}
