package similarity

import (
	"math"
)

// Cosine computes the cosine similarity between two vectors.
// Returns a value in [-1, 1], where 1 means identical direction.
// Mismatched lengths and zero vectors yield 0 (undefined similarity is
// treated as no similarity, not an error).
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
