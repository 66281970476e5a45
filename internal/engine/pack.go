package engine

import (
	"fmt"
	"strings"

	"github.com/calderb/synapse-go/internal/embeddings"
	"github.com/calderb/synapse-go/internal/graph"
)

// pack renders scored candidates best-first and greedily accumulates them
// until the next chunk would overflow the budget. Packing stops at the first
// chunk that does not fit; it never skips ahead to smaller ones, so the
// result is always a prefix of the ranking.
func pack(query string, candidates []*graph.Candidate, budgetTokens int) *graph.ContextResult {
	var chunks []string
	usedIDs := []string{}
	usedTokens := 0

	for _, c := range candidates {
		chunk := formatNode(c.Node)
		cost := embeddings.EstimateTokens(chunk)
		if usedTokens+cost > budgetTokens {
			break
		}
		chunks = append(chunks, chunk)
		usedIDs = append(usedIDs, c.Node.ID)
		usedTokens += cost
	}

	header := fmt.Sprintf("# Synapse context\n# Query: %s\n# Nodes: %d | Tokens: ~%d\n\n",
		query, len(usedIDs), usedTokens)

	return &graph.ContextResult{
		ContextString: header + strings.Join(chunks, "\n---\n"),
		NodeIDs:       usedIDs,
		TokenEstimate: usedTokens,
	}
}

// formatNode renders one node as a markdown chunk: heading, signature,
// doc excerpt, fenced body excerpt. Missing fields are simply omitted.
func formatNode(n *graph.Node) string {
	var lines []string

	ntype := "node"
	if n.NodeType != nil && *n.NodeType != "" {
		ntype = *n.NodeType
	}
	heading := fmt.Sprintf("## %s  <%s>", n.Name, ntype)
	if n.File != nil && *n.File != "" {
		heading += fmt.Sprintf(" [%s]", *n.File)
	}
	lines = append(lines, heading)

	if n.Signature != nil && *n.Signature != "" {
		lines = append(lines, fmt.Sprintf("**Signature**: `%s`", *n.Signature))
	}
	if n.DocText != nil && *n.DocText != "" {
		lines = append(lines, "**Documentation**:", excerpt(*n.DocText, docExcerptChars))
	}
	if n.BodyText != nil && *n.BodyText != "" {
		lines = append(lines, "```", excerpt(*n.BodyText, bodyExcerptChars), "```")
	}
	return strings.Join(lines, "\n")
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
