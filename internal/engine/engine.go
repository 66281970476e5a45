// Package engine implements the Synapse retrieval core: seed resolution,
// bounded graph expansion, relevance scoring, budget-constrained context
// packing, node detail lookup, and the task-trace feedback log.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/calderb/synapse-go/internal/graph"
	"github.com/calderb/synapse-go/internal/storage"
	"github.com/calderb/synapse-go/internal/vocab"
)

// Defaults for context queries and history reads.
const (
	DefaultBudgetTokens   = 6000
	DefaultMaxDepth       = 3
	DefaultMaxNodes       = 80
	DefaultHistoryEntries = 20
)

// Caps fixed by the engine's contracts.
const (
	maxEdgeNames     = 20  // callers/callees/tests per node detail
	maxSuggestions   = 5   // "did you mean" candidates
	seedCandidates   = 200 // pagerank pool for the token-overlap fallback
	maxSeedTokens    = 10  // query tokens fed to the lexical search
	topHubCount      = 10  // hubs reported in the summary
	docExcerptChars  = 400
	bodyExcerptChars = 1200
)

// ErrInvalidPolarity rejects feedback outside the [-1, 1] range.
var ErrInvalidPolarity = errors.New("polarity must be in [-1, 1]")

// Store is the storage surface the engine depends on. *storage.Store
// satisfies it; tests may substitute pieces.
type Store interface {
	GetNode(ctx context.Context, nodeID string) (*graph.Node, error)
	GetNodeByName(ctx context.Context, name string) (*graph.Node, error)
	TopByPagerank(ctx context.Context, limit int) ([]*graph.Node, error)
	NodesInFile(ctx context.Context, path string) ([]*graph.Node, error)
	NodeCount(ctx context.Context) (int, error)
	EdgeCount(ctx context.Context) (int, error)
	CountNodesByType(ctx context.Context) (map[string]int, error)
	CountEdgesByType(ctx context.Context) (map[string]int, error)
	TopHubs(ctx context.Context, limit int) ([]graph.Hub, error)
	OutgoingTargets(ctx context.Context, nodeID string) ([]string, error)
	CallerNames(ctx context.Context, nodeID string, limit int) ([]string, error)
	CalleeNames(ctx context.Context, nodeID string, limit int) ([]string, error)
	TestNames(ctx context.Context, nodeID string, limit int) ([]string, error)
	SearchByTerms(ctx context.Context, terms []string, limit int) ([]storage.SearchHit, error)
	PrefixSearch(ctx context.Context, tokens []string, limit int) ([]string, error)
	GetMeta(ctx context.Context, key string) (string, error)
	AddTrace(ctx context.Context, query *string, nodes []string, polarity float64, sessionID *string) (int64, error)
	TraceHistory(ctx context.Context, maxEntries int) ([]graph.TaskTrace, error)
}

// Engine ties the store adapter and the vocabulary cache together and
// exposes the operations served to the protocol layer.
type Engine struct {
	store Store
	vocab *vocab.Cache
}

// New creates an engine over an opened store and a loaded vocabulary cache.
func New(store Store, cache *vocab.Cache) *Engine {
	return &Engine{store: store, vocab: cache}
}

// QueryOptions carries the per-request overrides of a context query.
// Zero values select the defaults.
type QueryOptions struct {
	BudgetTokens int
	SeedNode     string
	MaxDepth     int
	MaxNodes     int
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.BudgetTokens <= 0 {
		o.BudgetTokens = DefaultBudgetTokens
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	return o
}

// QueryContext resolves a seed for the task description, expands the graph
// around it, scores the candidates, and packs the best ones into a response
// that fits the token budget.
func (e *Engine) QueryContext(ctx context.Context, query string, opts QueryOptions) (*graph.ContextResult, error) {
	opts = opts.withDefaults()

	seedID, err := e.resolveSeed(ctx, query, opts.SeedNode)
	if err != nil {
		return nil, err
	}
	if seedID == "" {
		// Empty graph: distinct from "found but empty context".
		return &graph.ContextResult{
			ContextString: "# No graph data available.\n",
			NodeIDs:       []string{},
			TokenEstimate: 0,
		}, nil
	}

	candidates, err := e.expand(ctx, seedID, opts.MaxDepth, opts.MaxNodes)
	if err != nil {
		return nil, err
	}

	e.score(candidates, query)

	result := pack(query, candidates, opts.BudgetTokens)
	result.SeedNode = seedID
	return result, nil
}

// FileNodes returns the nodes extracted from a source file; path may be
// relative to the stored absolute path.
func (e *Engine) FileNodes(ctx context.Context, path string) ([]*graph.Node, error) {
	return e.store.NodesInFile(ctx, path)
}

// TaskHistory returns the most recent feedback traces, newest first.
func (e *Engine) TaskHistory(ctx context.Context, maxEntries int) ([]graph.TaskTrace, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultHistoryEntries
	}
	return e.store.TraceHistory(ctx, maxEntries)
}

// AddTaskTrace validates and appends one feedback record, returning the
// store-assigned trace ID. Nothing is persisted when validation fails.
func (e *Engine) AddTaskTrace(ctx context.Context, query string, nodes []string, polarity float64, sessionID string) (int64, error) {
	if polarity < -1 || polarity > 1 {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidPolarity, polarity)
	}

	var q, sid *string
	if query != "" {
		q = &query
	}
	if sessionID != "" {
		sid = &sessionID
	}
	return e.store.AddTrace(ctx, q, nodes, polarity, sid)
}

// Reload re-reads the vocabulary cache after an external rebuild.
func (e *Engine) Reload(ctx context.Context) error {
	return e.vocab.Reload(ctx)
}
