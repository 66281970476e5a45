package engine

import (
	"context"
	"errors"

	"github.com/calderb/synapse-go/internal/embeddings"
	"github.com/calderb/synapse-go/internal/graph"
	"github.com/calderb/synapse-go/internal/storage"
)

// NodeInfo looks up a node by exact name and attaches its caller, callee,
// and test relationships. When the name is unknown the detail is nil and the
// returned slice holds near-miss suggestions (possibly empty).
func (e *Engine) NodeInfo(ctx context.Context, name string, includeSource bool) (*graph.NodeDetail, []string, error) {
	node, err := e.store.GetNodeByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if node == nil {
		suggestions, err := e.SimilarNodes(ctx, name, maxSuggestions)
		if err != nil {
			return nil, nil, err
		}
		return nil, suggestions, nil
	}

	if !includeSource {
		node.BodyText = nil
	}

	detail := &graph.NodeDetail{Node: *node}
	if detail.Callers, err = e.store.CallerNames(ctx, node.ID, maxEdgeNames); err != nil {
		return nil, nil, err
	}
	if detail.Callees, err = e.store.CalleeNames(ctx, node.ID, maxEdgeNames); err != nil {
		return nil, nil, err
	}
	if detail.Tests, err = e.store.TestNames(ctx, node.ID, maxEdgeNames); err != nil {
		return nil, nil, err
	}
	return detail, nil, nil
}

// SimilarNodes suggests node names resembling the given one via prefix
// search over its tokens. Search being unavailable means no suggestions,
// never an error.
func (e *Engine) SimilarNodes(ctx context.Context, name string, limit int) ([]string, error) {
	tokens := embeddings.Tokenize(name)
	if len(tokens) == 0 {
		return []string{}, nil
	}
	names, err := e.store.PrefixSearch(ctx, tokens, limit)
	if err != nil {
		if errors.Is(err, storage.ErrSearchUnavailable) {
			return []string{}, nil
		}
		return nil, err
	}
	return names, nil
}
