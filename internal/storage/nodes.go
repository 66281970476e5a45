package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calderb/synapse-go/internal/graph"
)

// nodeColumns is the canonical column list for scanning a full node row.
const nodeColumns = `node_id, name, file, node_type, signature, body_text,
	doc_text, complexity, pagerank, task_weight, pkg_name, pkg_version, embedding`

// scanNode reads one full node row from a *sql.Row or *sql.Rows.
func scanNode(sc interface{ Scan(...any) error }) (*graph.Node, error) {
	var (
		n          graph.Node
		file       sql.NullString
		nodeType   sql.NullString
		signature  sql.NullString
		bodyText   sql.NullString
		docText    sql.NullString
		complexity sql.NullFloat64
		pagerank   sql.NullFloat64
		taskWeight sql.NullFloat64
		pkgName    sql.NullString
		pkgVersion sql.NullString
		embedding  sql.NullString
	)

	err := sc.Scan(&n.ID, &n.Name, &file, &nodeType, &signature, &bodyText,
		&docText, &complexity, &pagerank, &taskWeight, &pkgName, &pkgVersion,
		&embedding)
	if err != nil {
		return nil, err
	}

	n.File = nullStr(file)
	n.NodeType = nullStr(nodeType)
	n.Signature = nullStr(signature)
	n.BodyText = nullStr(bodyText)
	n.DocText = nullStr(docText)
	n.Complexity = nullFloat(complexity)
	n.Pagerank = nullFloat(pagerank)
	n.TaskWeight = nullFloat(taskWeight)
	n.PackageName = nullStr(pkgName)
	n.PackageVersion = nullStr(pkgVersion)
	n.Embedding = nullStr(embedding)
	return &n, nil
}

// GetNode returns the node with the given ID, or nil if it does not exist.
func (s *Store) GetNode(ctx context.Context, nodeID string) (*graph.Node, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE node_id = ? LIMIT 1", nodeID)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up node %s: %w", nodeID, err)
	}
	return n, nil
}

// GetNodeByName returns the first node with the given exact name, or nil.
func (s *Store) GetNodeByName(ctx context.Context, name string) (*graph.Node, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE name = ? LIMIT 1", name)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up node by name %q: %w", name, err)
	}
	return n, nil
}

// TopByPagerank returns up to limit nodes ordered by descending pagerank,
// nodes without a pagerank sorted last.
func (s *Store) TopByPagerank(ctx context.Context, limit int) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes ORDER BY pagerank DESC NULLS LAST LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying top pagerank nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodesInFile returns nodes whose file attribute equals path or ends with
// path as a suffix, so a relative path matches a stored absolute one.
func (s *Store) NodesInFile(ctx context.Context, path string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE file = ? OR file LIKE ?",
		path, "%"+path)
	if err != nil {
		return nil, fmt.Errorf("querying nodes in %s: %w", path, err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// NodeCount returns the total number of nodes.
func (s *Store) NodeCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}

// EdgeCount returns the total number of edges.
func (s *Store) EdgeCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&count)
	return count, err
}

// CountNodesByType returns node counts grouped by node_type, with NULL
// reported as "unknown".
func (s *Store) CountNodesByType(ctx context.Context) (map[string]int, error) {
	return s.countGrouped(ctx, "SELECT node_type, COUNT(*) FROM nodes GROUP BY node_type")
}

// CountEdgesByType returns edge counts grouped by edge_type, with NULL
// reported as "unknown".
func (s *Store) CountEdgesByType(ctx context.Context) (map[string]int, error) {
	return s.countGrouped(ctx, "SELECT edge_type, COUNT(*) FROM edges GROUP BY edge_type")
}

func (s *Store) countGrouped(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("grouped count: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category sql.NullString
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		key := "unknown"
		if category.Valid {
			key = category.String
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// TopHubs returns the limit highest-pagerank nodes as (name, pagerank)
// pairs, nodes without a pagerank sorted last and reported as 0.
func (s *Store) TopHubs(ctx context.Context, limit int) ([]graph.Hub, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, pagerank FROM nodes ORDER BY pagerank DESC NULLS LAST LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying top hubs: %w", err)
	}
	defer rows.Close()

	var hubs []graph.Hub
	for rows.Next() {
		var name string
		var pr sql.NullFloat64
		if err := rows.Scan(&name, &pr); err != nil {
			return nil, err
		}
		hubs = append(hubs, graph.Hub{Name: name, Pagerank: pr.Float64})
	}
	return hubs, rows.Err()
}
