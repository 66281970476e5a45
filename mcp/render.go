package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calderb/synapse-go/internal/engine"
	"github.com/calderb/synapse-go/internal/rebuild"
)

// Tool handlers. Expected conditions (unknown node, invalid polarity,
// missing builder) render as text for the LLM rather than protocol errors.

func (s *Server) handleQueryContext(ctx context.Context, query string, opts engine.QueryOptions) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	result, err := s.engine.QueryContext(ctx, query, opts)
	if err != nil {
		return "", err
	}

	seed := result.SeedNode
	if seed == "" {
		seed = "(none)"
	}
	footer := fmt.Sprintf("---\n**Nodes retrieved**: %d\n**Token estimate**: ~%d\n**Seed node**: %s",
		len(result.NodeIDs), result.TokenEstimate, seed)
	return result.ContextString + "\n" + footer, nil
}

func (s *Server) handleNodeInfo(ctx context.Context, nodeName string, includeSource bool) (string, error) {
	if nodeName == "" {
		return "No node name provided", nil
	}

	info, suggestions, err := s.engine.NodeInfo(ctx, nodeName, includeSource)
	if err != nil {
		return "", err
	}
	if info == nil {
		hint := ""
		if len(suggestions) > 0 {
			hint = fmt.Sprintf("\n\nDid you mean one of: %s?", backtickJoin(suggestions))
		}
		return fmt.Sprintf("Node `%s` not found in the graph.%s", nodeName, hint), nil
	}

	lines := []string{
		fmt.Sprintf("# %s", info.Name),
		fmt.Sprintf("**Type**: %s", strOr(info.NodeType, "unknown")),
		fmt.Sprintf("**File**: %s", strOr(info.File, "unknown")),
	}
	if info.PackageName != nil {
		pkg := *info.PackageName
		if info.PackageVersion != nil {
			pkg += " v" + *info.PackageVersion
		}
		lines = append(lines, fmt.Sprintf("**Package**: %s", pkg))
	}
	if info.Signature != nil {
		lines = append(lines, fmt.Sprintf("\n**Signature**:\n```\n%s\n```", *info.Signature))
	}
	if info.DocText != nil {
		lines = append(lines, fmt.Sprintf("\n**Documentation**:\n%s", *info.DocText))
	}
	if len(info.Callers) > 0 {
		lines = append(lines, fmt.Sprintf("\n**Called by**: %s", backtickJoin(info.Callers)))
	}
	if len(info.Callees) > 0 {
		lines = append(lines, fmt.Sprintf("\n**Calls**: %s", backtickJoin(info.Callees)))
	}
	if len(info.Tests) > 0 {
		lines = append(lines, fmt.Sprintf("\n**Tested by**: %s", backtickJoin(info.Tests)))
	}

	var metrics []string
	if info.Pagerank != nil {
		metrics = append(metrics, fmt.Sprintf("PageRank: %.4f", *info.Pagerank))
	}
	if info.Complexity != nil {
		metrics = append(metrics, fmt.Sprintf("Complexity: %g", *info.Complexity))
	}
	if info.TaskWeight != nil {
		metrics = append(metrics, fmt.Sprintf("Task weight: %.3f", *info.TaskWeight))
	}
	if len(metrics) > 0 {
		lines = append(lines, fmt.Sprintf("\n**Metrics**: %s", strings.Join(metrics, " | ")))
	}

	if includeSource && info.BodyText != nil {
		lines = append(lines, fmt.Sprintf("\n**Source**:\n```\n%s\n```", *info.BodyText))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Server) handleRebuild(ctx context.Context, opts rebuild.Options) (string, error) {
	if s.rebuilder == nil {
		return "Rebuild is not available: no builder configured for this server.", nil
	}

	output, err := s.rebuilder.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, rebuild.ErrBuilderNotFound) {
			return fmt.Sprintf("**Error**: %v", err), nil
		}
		return fmt.Sprintf("❌ Rebuild failed: %v\n\n**Output:**\n```\n%s\n```",
			err, strings.TrimSpace(output)), nil
	}
	label := "incremental"
	if opts.Full {
		label = "full"
	}
	return fmt.Sprintf("✅ Graph rebuilt successfully (%s).\n\n**Output:**\n```\n%s\n```",
		label, strings.TrimSpace(output)), nil
}

func (s *Server) handleAddTrace(ctx context.Context, query string, nodes []string, polarity float64, sessionID string) (string, error) {
	traceID, err := s.engine.AddTaskTrace(ctx, query, nodes, polarity, sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPolarity) {
			return fmt.Sprintf("Error: polarity must be in [-1, 1], got %v", polarity), nil
		}
		return "", err
	}

	sign := ""
	if polarity >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("✅ Task trace recorded.\n**Trace ID**: %d\n**Polarity**: %s%v\n**Nodes**: %d recorded",
		traceID, sign, polarity, len(nodes)), nil
}

// Resource handlers.

func (s *Server) renderSummary(ctx context.Context) (string, error) {
	sum, err := s.engine.Summary(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Synapse Graph Summary\n\n")
	sb.WriteString("| Property | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Nodes | %d |\n", sum.NodeCount)
	fmt.Fprintf(&sb, "| Edges | %d |\n", sum.EdgeCount)
	fmt.Fprintf(&sb, "| Build time | %s |\n", orUnknown(sum.BuildTime))
	fmt.Fprintf(&sb, "| Builder version | %s |\n", orUnknown(sum.BuilderVersion))
	fmt.Fprintf(&sb, "| Embed method | %s |\n", orDefault(sum.EmbedMethod, "tfidf"))
	fmt.Fprintf(&sb, "| Project root | %s |\n", orUnknown(sum.ProjectRoot))

	sb.WriteString("\n## Node types\n")
	for t, c := range sum.NodeTypes {
		fmt.Fprintf(&sb, "- **%s**: %d\n", t, c)
	}
	sb.WriteString("\n## Edge types\n")
	for t, c := range sum.EdgeTypes {
		fmt.Fprintf(&sb, "- **%s**: %d\n", t, c)
	}

	sb.WriteString("\n## Top PageRank hubs\n")
	for i, h := range sum.TopHubs {
		fmt.Fprintf(&sb, "%d. `%s` — PageRank %.5f\n", i+1, h.Name, h.Pagerank)
	}
	return sb.String(), nil
}

func (s *Server) renderFileNodes(ctx context.Context, path string) (string, error) {
	nodes, err := s.engine.FileNodes(ctx, path)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Nodes in `%s`\n\n", path)
	fmt.Fprintf(&sb, "**%d %s found.**\n\n", len(nodes), plural("node", len(nodes)))
	if len(nodes) == 0 {
		fmt.Fprintf(&sb, "No nodes found for `%s`.\n", path)
		return sb.String(), nil
	}

	for _, n := range nodes {
		fmt.Fprintf(&sb, "## `%s`\n", n.Name)
		if n.NodeType != nil {
			fmt.Fprintf(&sb, "**Type**: %s\n", *n.NodeType)
		}
		if n.Signature != nil {
			fmt.Fprintf(&sb, "**Signature**:\n```\n%s\n```\n", *n.Signature)
		}
		if n.DocText != nil {
			doc := *n.DocText
			if len(doc) > 300 {
				doc = doc[:300]
			}
			fmt.Fprintf(&sb, "**Documentation**:\n%s\n", doc)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (s *Server) renderTaskHistory(ctx context.Context) (string, error) {
	traces, err := s.engine.TaskHistory(ctx, engine.DefaultHistoryEntries)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Task History\n\n")
	fmt.Fprintf(&sb, "**%d %s recorded.**\n\n", len(traces), plural("trace", len(traces)))
	if len(traces) == 0 {
		sb.WriteString("No task traces recorded yet. Call `add_task_trace` after coding tasks.\n")
		return sb.String(), nil
	}

	for _, t := range traces {
		label := "➖ neutral"
		switch {
		case t.Polarity > 0.1:
			label = "✅ positive"
		case t.Polarity < -0.1:
			label = "❌ negative"
		}
		fmt.Fprintf(&sb, "## Trace #%d\n", t.TraceID)
		fmt.Fprintf(&sb, "- **Query**: %s\n", strOr(t.Query, "(none)"))
		fmt.Fprintf(&sb, "- **Polarity**: %s (%v)\n", label, t.Polarity)
		nodes := "(none)"
		if len(t.Nodes) > 0 {
			nodes = strings.Join(t.Nodes, ", ")
		}
		fmt.Fprintf(&sb, "- **Nodes**: %s\n", nodes)
		fmt.Fprintf(&sb, "- **Time**: %s\n\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return sb.String(), nil
}

// Formatting helpers.

func backtickJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}

func strOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func orUnknown(s string) string {
	return orDefault(s, "unknown")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
