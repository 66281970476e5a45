// Package graph provides the data model for the Synapse code graph.
//
// It defines the node and edge types produced by the external graph builder
// (functions, files, tests and the relations between them) together with the
// result types the retrieval engine hands back to callers. All of the numeric
// analysis fields (pagerank, task weight, embeddings) are computed offline by
// the builder; the engine only reads them.
package graph

import "time"

// EdgeType represents the type of a directed edge between graph nodes.
type EdgeType string

const (
	EdgeCalls EdgeType = "CALLS"
	EdgeTests EdgeType = "TESTS"
)

// Node represents a node in the code graph.
//
// Nullable columns are modeled as pointers so that "absent" is distinguishable
// from zero; default substitution (pagerank 0, task weight 0.5) happens in the
// scorer, not here.
type Node struct {
	// ID is the stable unique identifier, the join key for all relations.
	ID string

	// Name is the symbol name (function, method, class).
	Name string

	// File is the source file path, if known.
	File *string

	// NodeType is the category tag (e.g. "function", "method", "class").
	NodeType *string

	// Signature is the declaration text.
	Signature *string

	// BodyText is the full source text of the symbol.
	BodyText *string

	// DocText is the free-form documentation attached to the symbol.
	DocText *string

	// Complexity is the builder-computed complexity score.
	Complexity *float64

	// Pagerank is the builder-computed centrality score.
	Pagerank *float64

	// TaskWeight is the relevance prior learned from task feedback.
	TaskWeight *float64

	// PackageName and PackageVersion identify the owning package, if any.
	PackageName    *string
	PackageVersion *string

	// Embedding is the serialized (JSON array) numeric vector for the node,
	// written by the builder. Decoded lazily at scoring time.
	Embedding *string
}

// Edge represents a directed edge in the code graph.
// Both endpoints reference existing Node IDs.
type Edge struct {
	SourceID string
	TargetID string
	Type     EdgeType
}

// VocabTerm is one row of the builder-computed TF-IDF vocabulary.
type VocabTerm struct {
	Term      string
	IDF       float64
	DocCount  int
	TermCount int
}

// TaskTrace is one append-only feedback record: which nodes were involved in
// an LLM task and whether the outcome was accepted (+) or rejected (-).
type TaskTrace struct {
	TraceID   int64
	Query     *string
	Nodes     []string
	Polarity  float64
	SessionID *string
	CreatedAt time.Time
}

// NodeDetail is the enriched single-node view returned by the detail service.
type NodeDetail struct {
	Node

	// Callers are names of nodes with a CALLS edge targeting this node.
	Callers []string

	// Callees are names of nodes this node has a CALLS edge to.
	Callees []string

	// Tests are names of nodes with a TESTS edge targeting this node.
	Tests []string
}

// ContextResult is the packed response of a context query.
type ContextResult struct {
	// ContextString is the rendered, budget-bounded context text.
	ContextString string

	// NodeIDs lists the nodes included in the context, in packing order.
	NodeIDs []string

	// TokenEstimate is the estimated token cost of the included chunks.
	TokenEstimate int

	// SeedNode is the resolved traversal seed, empty when the graph is empty.
	SeedNode string
}

// Summary aggregates graph-wide statistics and build provenance.
type Summary struct {
	NodeCount int
	EdgeCount int

	// NodeTypes and EdgeTypes map category tags to counts; a NULL category
	// is reported under "unknown".
	NodeTypes map[string]int
	EdgeTypes map[string]int

	// TopHubs are the ten highest-pagerank nodes.
	TopHubs []Hub

	// Build provenance from the graph_metadata table.
	BuildTime      string
	BuilderVersion string
	EmbedMethod    string
	ProjectRoot    string
}

// Hub is one entry of the top-pagerank list.
type Hub struct {
	Name     string
	Pagerank float64
}

// Candidate is a node reached by graph expansion, annotated with its BFS
// depth and, after scoring, its composite relevance score.
type Candidate struct {
	Node  *Node
	Depth int
	Score float64
}

// PagerankOf returns the node's pagerank or 0 when absent.
func (n *Node) PagerankOf() float64 {
	if n.Pagerank == nil {
		return 0
	}
	return *n.Pagerank
}

// TaskWeightOf returns the node's task weight or the 0.5 neutral prior.
func (n *Node) TaskWeightOf() float64 {
	if n.TaskWeight == nil {
		return 0.5
	}
	return *n.TaskWeight
}
