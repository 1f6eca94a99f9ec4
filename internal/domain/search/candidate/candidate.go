package candidate

import (
	"cmp"
	"slices"
)

// Candidate is a scored item produced by the retriever for one query variant.
type Candidate struct {
	id      string
	score   float64
	variant string
}

// New creates a scored candidate.
func New(id string, score float64, variant string) Candidate {
	return Candidate{id: id, score: score, variant: variant}
}

// ID returns the item identifier.
func (c *Candidate) ID() string { return c.id }

// Score returns the similarity score in [-1, 1].
func (c *Candidate) Score() float64 { return c.score }

// Variant returns the query variant that produced the hit.
func (c *Candidate) Variant() string { return c.variant }

// WithScore returns a copy with the given score.
func (c *Candidate) WithScore(score float64) Candidate {
	return Candidate{id: c.id, score: score, variant: c.variant}
}

// Compare orders candidates by descending score, ties by ascending id.
func Compare(a, b Candidate) int {
	if a.score != b.score {
		if a.score > b.score {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.id, b.id)
}

// Sort orders candidates in place (score desc, id asc).
func Sort(cs []Candidate) {
	slices.SortFunc(cs, Compare)
}

// IDs returns candidate ids in order.
func IDs(cs []Candidate) []string {
	ids := make([]string, len(cs))
	for i := range cs {
		ids[i] = cs[i].id
	}
	return ids
}
