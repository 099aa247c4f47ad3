package matching

import "math"

// Cosine returns the cosine similarity of a and b clamped to [0, 1]. Nil or
// zero-magnitude vectors score 0.
func Cosine(a, b *TermVector) float64 {
	if a == nil || b == nil || a.Magnitude == 0 || b.Magnitude == 0 {
		return 0
	}

	small, large := a.Terms, b.Terms
	if len(small) > len(large) {
		small, large = large, small
	}

	var dot float64
	for term, n := range small {
		if m, ok := large[term]; ok {
			dot += float64(n * m)
		}
	}
	if dot == 0 {
		return 0
	}
	// sqrt(|a|²·|b|²) keeps Cosine(a, a) exactly 1: the dot product equals
	// |a|² and the square root of a perfect square is exact.
	return clamp01(dot / math.Sqrt(a.SumSquare*b.SumSquare))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
