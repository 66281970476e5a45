package storage

import (
	"context"
	"fmt"

	"github.com/calderb/synapse-go/internal/graph"
)

// LoadVocab reads the full TF-IDF vocabulary. A missing vocabulary table
// (builder has not run yet) yields an empty vocabulary, not an error.
func (s *Store) LoadVocab(ctx context.Context) ([]graph.VocabTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT term, idf, doc_count, term_count FROM tfidf_vocab")
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}
	defer rows.Close()

	var terms []graph.VocabTerm
	for rows.Next() {
		var t graph.VocabTerm
		if err := rows.Scan(&t.Term, &t.IDF, &t.DocCount, &t.TermCount); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
