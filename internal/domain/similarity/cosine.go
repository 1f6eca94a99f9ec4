package similarity

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// Cosine returns dot(a,b) / (|a|·|b|), accumulated in float64 and clamped to [-1, 1].
// Fails with domain.ErrVectorDimMismatch on empty or unequal-length input and with
// domain.ErrDegenerateVector when either vector has zero magnitude.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cosine %d vs %d: %w", len(a), len(b), domain.ErrVectorDimMismatch)
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, domain.ErrDegenerateVector
	}

	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, s)), nil
}

// IsDegenerate reports whether v has zero magnitude (or is empty).
func IsDegenerate(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
