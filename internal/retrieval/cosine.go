package retrieval

import "math"

// similarityEpsilon guards the cosine denominator so zero or empty vectors
// score 0 instead of dividing by zero.
const similarityEpsilon = 1e-9

// cosineSimilarity computes dot(a,b) / (||a||*||b|| + epsilon) in float64.
// Vectors of different lengths are compared over their common prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + similarityEpsilon)
}
