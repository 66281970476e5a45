package embeddings

import (
	"encoding/json"
	"math"
)

// Cosine computes cosine similarity over the shared prefix of a and b (both
// truncated to the shorter length). Returns 0 when either truncated vector
// has zero norm or the shared prefix is empty.
func Cosine(a, b []float64) float64 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	if minLen == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom <= 0 {
		return 0
	}
	return dot / denom
}

// DecodeStored decodes a builder-serialized (JSON array) node embedding.
// Malformed data yields nil: a stored embedding that cannot be decoded
// contributes nothing to scoring instead of failing the request.
func DecodeStored(serialized string) []float64 {
	var vec []float64
	if err := json.Unmarshal([]byte(serialized), &vec); err != nil {
		return nil
	}
	return vec
}
