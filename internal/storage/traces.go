package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calderb/synapse-go/internal/graph"
)

// AddTrace appends one task trace and returns its store-assigned ID. The
// insert commits durably before returning; polarity validation is the
// caller's responsibility.
func (s *Store) AddTrace(ctx context.Context, query *string, nodes []string, polarity float64, sessionID *string) (int64, error) {
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return 0, fmt.Errorf("serializing trace nodes: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task_traces(query, nodes_json, polarity, session_id, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		query, string(nodesJSON), polarity, sessionID, now)
	if err != nil {
		return 0, fmt.Errorf("inserting task trace: %w", err)
	}
	return res.LastInsertId()
}

// TraceHistory returns up to maxEntries traces ordered most recent first.
// A trace whose stored node list fails to decode degrades to an empty node
// list rather than failing the read.
func (s *Store) TraceHistory(ctx context.Context, maxEntries int) ([]graph.TaskTrace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trace_id, query, nodes_json, polarity, session_id, created_at
		 FROM task_traces ORDER BY trace_id DESC LIMIT ?`, maxEntries)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var traces []graph.TaskTrace
	for rows.Next() {
		var (
			t         graph.TaskTrace
			query     sql.NullString
			nodesJSON sql.NullString
			polarity  sql.NullFloat64
			sessionID sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(&t.TraceID, &query, &nodesJSON, &polarity, &sessionID, &createdAt); err != nil {
			return nil, err
		}

		t.Query = nullStr(query)
		t.SessionID = nullStr(sessionID)
		t.Polarity = polarity.Float64
		t.Nodes = []string{}
		if nodesJSON.Valid {
			var nodes []string
			if err := json.Unmarshal([]byte(nodesJSON.String), &nodes); err == nil {
				t.Nodes = nodes
			}
		}
		if createdAt.Valid {
			if ts, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
				t.CreatedAt = ts
			}
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
