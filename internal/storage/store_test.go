package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "graph.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustExec(t *testing.T, s *Store, query string, args ...any) {
	t.Helper()
	_, err := s.DB().Exec(query, args...)
	require.NoError(t, err)
}

// seedNode inserts a minimal node row; pagerank may be nil.
func seedNode(t *testing.T, s *Store, id, name, file, nodeType string, pagerank *float64) {
	t.Helper()
	mustExec(t, s,
		`INSERT INTO nodes (node_id, name, file, node_type, pagerank) VALUES (?, ?, ?, ?, ?)`,
		id, name, nullable(file), nullable(nodeType), pagerank)
}

func seedEdge(t *testing.T, s *Store, source, target, edgeType string) {
	t.Helper()
	mustExec(t, s,
		`INSERT INTO edges (source_id, target_id, edge_type) VALUES (?, ?, ?)`,
		source, target, edgeType)
}

// indexFTS mirrors the nodes table into the full-text index, as the graph
// builder does after a rebuild.
func indexFTS(t *testing.T, s *Store) {
	t.Helper()
	mustExec(t, s,
		`INSERT INTO nodes_fts(rowid, name, body_text, doc_text)
		 SELECT rowid, name, body_text, doc_text FROM nodes`)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fptr(f float64) *float64 { return &f }

func TestOpenCreatesEngineTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Engine-owned tables are usable on a fresh database.
	_, err = store.AddTrace(ctx, nil, nil, 0, nil)
	assert.NoError(t, err)
	assert.NoError(t, store.SetMeta(ctx, "k", "v"))
}

func TestGetNode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "n1", "parse_config", "R/config.R", "function", fptr(0.3))

	t.Run("found", func(t *testing.T) {
		n, err := store.GetNode(ctx, "n1")
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "parse_config", n.Name)
		assert.Equal(t, "R/config.R", *n.File)
		assert.Equal(t, 0.3, *n.Pagerank)
		assert.Nil(t, n.Signature)
	})

	t.Run("missing is nil without error", func(t *testing.T) {
		n, err := store.GetNode(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, n)
	})
}

func TestGetNodeByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "n1", "fit_model", "", "function", nil)

	n, err := store.GetNodeByName(ctx, "fit_model")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "n1", n.ID)

	n, err = store.GetNodeByName(ctx, "no_such")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestTopByPagerankNullsLast(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "low", "low", "", "", fptr(0.1))
	seedNode(t, store, "none", "none", "", "", nil)
	seedNode(t, store, "high", "high", "", "", fptr(0.9))

	nodes, err := store.TopByPagerank(ctx, 10)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "high", nodes[0].ID)
	assert.Equal(t, "low", nodes[1].ID)
	assert.Equal(t, "none", nodes[2].ID)
}

func TestNodesInFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "n1", "a", "/abs/path/R/model.R", "function", nil)
	seedNode(t, store, "n2", "b", "/abs/path/R/model.R", "function", nil)
	seedNode(t, store, "n3", "c", "/abs/path/R/other.R", "function", nil)

	t.Run("exact match", func(t *testing.T) {
		nodes, err := store.NodesInFile(ctx, "/abs/path/R/model.R")
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("relative suffix match", func(t *testing.T) {
		nodes, err := store.NodesInFile(ctx, "R/model.R")
		require.NoError(t, err)
		assert.Len(t, nodes, 2)
	})

	t.Run("no match", func(t *testing.T) {
		nodes, err := store.NodesInFile(ctx, "R/missing.R")
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}

func TestGroupedCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "n1", "a", "", "function", nil)
	seedNode(t, store, "n2", "b", "", "function", nil)
	seedNode(t, store, "n3", "c", "", "", nil)
	seedEdge(t, store, "n1", "n2", "CALLS")
	seedEdge(t, store, "n3", "n1", "TESTS")

	nodeTypes, err := store.CountNodesByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"function": 2, "unknown": 1}, nodeTypes)

	edgeTypes, err := store.CountEdgesByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"CALLS": 1, "TESTS": 1}, edgeTypes)

	edges, err := store.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, edges)
}

func TestTopHubs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "n1", "hub", "", "", fptr(0.8))
	seedNode(t, store, "n2", "minor", "", "", fptr(0.1))
	seedNode(t, store, "n3", "unranked", "", "", nil)

	hubs, err := store.TopHubs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, hubs, 2)
	assert.Equal(t, "hub", hubs[0].Name)
	assert.Equal(t, 0.8, hubs[0].Pagerank)
	assert.Equal(t, "minor", hubs[1].Name)
}

func TestEdgeQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedNode(t, store, "f", "target_fn", "", "function", nil)
	seedNode(t, store, "c1", "caller_one", "", "function", nil)
	seedNode(t, store, "c2", "caller_two", "", "function", nil)
	seedNode(t, store, "d", "dependency", "", "function", nil)
	seedNode(t, store, "t1", "test_target_fn", "", "test", nil)
	seedEdge(t, store, "c1", "f", "CALLS")
	seedEdge(t, store, "c2", "f", "CALLS")
	seedEdge(t, store, "f", "d", "CALLS")
	seedEdge(t, store, "t1", "f", "TESTS")

	callers, err := store.CallerNames(ctx, "f", 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"caller_one", "caller_two"}, callers)

	callees, err := store.CalleeNames(ctx, "f", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"dependency"}, callees)

	tests, err := store.TestNames(ctx, "f", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"test_target_fn"}, tests)

	t.Run("limit applies", func(t *testing.T) {
		callers, err := store.CallerNames(ctx, "f", 1)
		require.NoError(t, err)
		assert.Len(t, callers, 1)
	})

	t.Run("outgoing targets span edge types", func(t *testing.T) {
		targets, err := store.OutgoingTargets(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, targets)

		targets, err = store.OutgoingTargets(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, []string{"f"}, targets)
	})
}

func TestMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v, err := store.GetMeta(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, store.SetMeta(ctx, "build_time", "2026-01-01T00:00:00Z"))
	require.NoError(t, store.SetMeta(ctx, "build_time", "2026-02-01T00:00:00Z"))

	v, err = store.GetMeta(ctx, "build_time")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00Z", v)
}

func TestTraceRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	query := "add retry logic"
	session := "s-1"
	id1, err := store.AddTrace(ctx, &query, []string{"n1", "n2"}, 1.0, &session)
	require.NoError(t, err)
	id2, err := store.AddTrace(ctx, nil, nil, -0.5, nil)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	traces, err := store.TraceHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	// Newest first.
	assert.Equal(t, id2, traces[0].TraceID)
	assert.Equal(t, -0.5, traces[0].Polarity)
	assert.Nil(t, traces[0].Query)
	assert.Empty(t, traces[0].Nodes)

	assert.Equal(t, id1, traces[1].TraceID)
	assert.Equal(t, "add retry logic", *traces[1].Query)
	assert.Equal(t, []string{"n1", "n2"}, traces[1].Nodes)
	assert.Equal(t, "s-1", *traces[1].SessionID)
	assert.False(t, traces[1].CreatedAt.IsZero())
}

func TestTraceHistoryMalformedNodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustExec(t, store,
		`INSERT INTO task_traces (query, nodes_json, polarity, created_at) VALUES (?, ?, ?, ?)`,
		"q", "{broken", 0.0, "2026-01-01T00:00:00Z")

	traces, err := store.TraceHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Empty(t, traces[0].Nodes)
}

func TestTraceHistoryLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.AddTrace(ctx, nil, nil, 0, nil)
		require.NoError(t, err)
	}

	traces, err := store.TraceHistory(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, traces, 3)
}

func TestLoadVocab(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustExec(t, store,
		`INSERT INTO tfidf_vocab (term, idf, doc_count, term_count) VALUES (?, ?, ?, ?)`,
		"parse", 2.5, 3, 7)

	terms, err := store.LoadVocab(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "parse", terms[0].Term)
	assert.Equal(t, 2.5, terms[0].IDF)
	assert.Equal(t, 3, terms[0].DocCount)
	assert.Equal(t, 7, terms[0].TermCount)
}
