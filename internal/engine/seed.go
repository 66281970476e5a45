package engine

import (
	"context"
	"errors"

	"github.com/calderb/synapse-go/internal/embeddings"
	"github.com/calderb/synapse-go/internal/storage"
)

// resolveSeed picks the node the expansion starts from. The fallback chain:
// explicit name, lexical search, token overlap against the top-ranked pool,
// highest pagerank overall. Returns "" only when the graph has no nodes.
func (e *Engine) resolveSeed(ctx context.Context, query, explicitName string) (string, error) {
	if explicitName != "" {
		node, err := e.store.GetNodeByName(ctx, explicitName)
		if err != nil {
			return "", err
		}
		if node != nil {
			return node.ID, nil
		}
		// Unknown explicit seed falls through to query-driven resolution.
	}

	tokens := embeddings.Tokenize(query)

	if len(tokens) > 0 {
		terms := tokens
		if len(terms) > maxSeedTokens {
			terms = terms[:maxSeedTokens]
		}
		hits, err := e.store.SearchByTerms(ctx, terms, 1)
		if err != nil && !errors.Is(err, storage.ErrSearchUnavailable) {
			return "", err
		}
		if len(hits) > 0 {
			return hits[0].NodeID, nil
		}
	}

	pool, err := e.store.TopByPagerank(ctx, seedCandidates)
	if err != nil {
		return "", err
	}

	querySet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		querySet[tok] = struct{}{}
	}

	var bestID string
	bestScore := 0.0
	for _, node := range pool {
		overlap := 0
		for _, tok := range embeddings.Tokenize(node.Name) {
			if _, ok := querySet[tok]; ok {
				overlap++
			}
		}
		score := float64(overlap) + node.PagerankOf()
		if score > bestScore {
			bestScore = score
			bestID = node.ID
		}
	}
	if bestID != "" {
		return bestID, nil
	}

	if len(pool) > 0 {
		return pool[0].ID, nil
	}
	return "", nil
}
