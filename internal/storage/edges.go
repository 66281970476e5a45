package storage

import (
	"context"
	"fmt"

	"github.com/calderb/synapse-go/internal/graph"
)

// OutgoingTargets returns the target IDs of all edges leaving nodeID,
// regardless of edge type. This is the adjacency cursor the graph expander
// pages through; cost is proportional to the node's out-degree.
func (s *Store) OutgoingTargets(ctx context.Context, nodeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT target_id FROM edges WHERE source_id = ?", nodeID)
	if err != nil {
		return nil, fmt.Errorf("querying outgoing edges of %s: %w", nodeID, err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// CallerNames returns names of nodes with a CALLS edge targeting nodeID,
// capped at limit.
func (s *Store) CallerNames(ctx context.Context, nodeID string, limit int) ([]string, error) {
	return s.edgeNames(ctx,
		`SELECT n.name FROM edges e JOIN nodes n ON n.node_id = e.source_id
		 WHERE e.target_id = ? AND e.edge_type = ? LIMIT ?`,
		nodeID, graph.EdgeCalls, limit)
}

// CalleeNames returns names of nodes nodeID has a CALLS edge to, capped at
// limit.
func (s *Store) CalleeNames(ctx context.Context, nodeID string, limit int) ([]string, error) {
	return s.edgeNames(ctx,
		`SELECT n.name FROM edges e JOIN nodes n ON n.node_id = e.target_id
		 WHERE e.source_id = ? AND e.edge_type = ? LIMIT ?`,
		nodeID, graph.EdgeCalls, limit)
}

// TestNames returns names of nodes with a TESTS edge targeting nodeID,
// capped at limit.
func (s *Store) TestNames(ctx context.Context, nodeID string, limit int) ([]string, error) {
	return s.edgeNames(ctx,
		`SELECT n.name FROM edges e JOIN nodes n ON n.node_id = e.source_id
		 WHERE e.target_id = ? AND e.edge_type = ? LIMIT ?`,
		nodeID, graph.EdgeTests, limit)
}

func (s *Store) edgeNames(ctx context.Context, query string, nodeID string, edgeType graph.EdgeType, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, nodeID, string(edgeType), limit)
	if err != nil {
		return nil, fmt.Errorf("querying edges of %s: %w", nodeID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
