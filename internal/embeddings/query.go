// Package embeddings vectorizes free-text queries against the builder's
// TF-IDF vocabulary and compares them with stored node embeddings.
//
// Node embeddings themselves are computed offline by the graph builder; this
// package only produces the query-side vector and the similarity measure.
package embeddings

import (
	"math"
	"regexp"
	"strings"

	"github.com/calderb/synapse-go/internal/vocab"
)

var nonTokenRuns = regexp.MustCompile(`[^a-z0-9_.]+`)

// Tokenize lowercases text, splits it into runs of [a-z0-9_.], and drops
// tokens of length <= 1.
func Tokenize(text string) []string {
	parts := nonTokenRuns.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > 1 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// EstimateTokens estimates the LLM token cost of text as ceil(len/3.5) with a
// floor of 1.
func EstimateTokens(text string) int {
	est := int(math.Ceil(float64(len(text)) / 3.5))
	if est < 1 {
		return 1
	}
	return est
}

// QueryVector builds the TF-IDF vector for a query against the vocabulary
// snapshot: each recognized term contributes (tf / tokenCount) * idf, in
// first-occurrence order. Terms absent from the vocabulary are dropped; an
// unrecognized query yields an empty vector and the caller treats semantic
// similarity as 0.
func QueryVector(query string, snap vocab.Snapshot) []float64 {
	tokens := Tokenize(query)

	tf := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, seen := tf[tok]; !seen {
			order = append(order, tok)
		}
		tf[tok]++
	}

	n := len(tokens)
	if n < 1 {
		n = 1
	}

	vec := make([]float64, 0, len(order))
	for _, term := range order {
		entry, ok := snap[term]
		if !ok {
			continue
		}
		vec = append(vec, float64(tf[term])/float64(n)*entry.IDF)
	}
	return vec
}
