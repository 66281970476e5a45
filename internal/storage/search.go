package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSearchUnavailable reports that the full-text index has not been
// provisioned (the builder has not run, or FTS5 is not compiled in). Callers
// degrade to their fallback heuristics instead of failing.
var ErrSearchUnavailable = errors.New("lexical search index unavailable")

// SearchHit is one lexical search match.
type SearchHit struct {
	NodeID string
	Name   string
}

// SearchByTerms runs a disjunctive full-text query over node name/text and
// returns hits in relevance-rank order, capped at limit.
func (s *Store) SearchByTerms(ctx context.Context, terms []string, limit int) ([]SearchHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	match := strings.Join(terms, " OR ")
	return s.ftsQuery(ctx, match, limit)
}

// PrefixSearch runs a disjunctive prefix query (each token matched as tok*)
// and returns the matching node names, capped at limit.
func (s *Store) PrefixSearch(ctx context.Context, tokens []string, limit int) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(tokens))
	for i, tok := range tokens {
		prefixed[i] = tok + "*"
	}
	hits, err := s.ftsQuery(ctx, strings.Join(prefixed, " OR "), limit)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}
	return names, nil
}

func (s *Store) ftsQuery(ctx context.Context, match string, limit int) ([]SearchHit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.node_id, n.name FROM nodes_fts f
		 JOIN nodes n ON n.rowid = f.rowid
		 WHERE nodes_fts MATCH ? ORDER BY rank LIMIT ?`,
		match, limit)
	if err != nil {
		if isMissingTable(err) {
			return nil, ErrSearchUnavailable
		}
		// A malformed MATCH expression also degrades: the caller falls back
		// rather than surfacing an FTS syntax error for user query text.
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.NodeID, &h.Name); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
