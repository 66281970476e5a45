package engine

import (
	"context"
	"sort"

	"github.com/calderb/synapse-go/internal/graph"
)

type frontierEntry struct {
	id    string
	depth int
}

// expand walks outgoing edges breadth-first from the seed, collecting every
// node reachable within maxDepth hops. Results are ordered by depth ascending
// then pagerank descending (missing pagerank sorts last within a depth tier)
// and truncated to maxNodes.
func (e *Engine) expand(ctx context.Context, seedID string, maxDepth, maxNodes int) ([]*graph.Candidate, error) {
	visited := map[string]int{seedID: 0}
	queue := []frontierEntry{{id: seedID, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		targets, err := e.store.OutgoingTargets(ctx, cur.id)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			if _, seen := visited[target]; seen {
				continue
			}
			visited[target] = cur.depth + 1
			queue = append(queue, frontierEntry{id: target, depth: cur.depth + 1})
		}
	}

	candidates := make([]*graph.Candidate, 0, len(visited))
	for id, depth := range visited {
		node, err := e.store.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if node == nil {
			// Dangling edge target; skip rather than fail the query.
			continue
		}
		candidates = append(candidates, &graph.Candidate{Node: node, Depth: depth})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if (a.Node.Pagerank == nil) != (b.Node.Pagerank == nil) {
			return b.Node.Pagerank == nil
		}
		if a.Node.Pagerank != nil && *a.Node.Pagerank != *b.Node.Pagerank {
			return *a.Node.Pagerank > *b.Node.Pagerank
		}
		return a.Node.ID < b.Node.ID
	})

	if len(candidates) > maxNodes {
		candidates = candidates[:maxNodes]
	}
	return candidates, nil
}
