package engine

import (
	"sort"

	"github.com/calderb/synapse-go/internal/embeddings"
	"github.com/calderb/synapse-go/internal/graph"
)

// score assigns each candidate its composite relevance and reorders the
// slice best-first. The blend: 40% TF-IDF similarity between the query and
// the stored node embedding, 35% structural importance (pagerank), 15%
// historical task weight, 10% proximity to the seed.
func (e *Engine) score(candidates []*graph.Candidate, query string) {
	queryVec := embeddings.QueryVector(query, e.vocab.Current())

	for _, c := range candidates {
		semantic := 0.0
		if len(queryVec) > 0 && c.Node.Embedding != nil {
			if nodeVec := embeddings.DecodeStored(*c.Node.Embedding); nodeVec != nil {
				if len(nodeVec) > len(queryVec) {
					nodeVec = nodeVec[:len(queryVec)]
				}
				semantic = embeddings.Cosine(queryVec, nodeVec)
			}
		}

		proximity := 1.0 / (1.0 + 0.5*float64(c.Depth))

		c.Score = 0.4*semantic +
			0.35*c.Node.PagerankOf() +
			0.15*c.Node.TaskWeightOf() +
			0.1*proximity
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}
