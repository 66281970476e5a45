package engine

import (
	"context"

	"github.com/calderb/synapse-go/internal/graph"
)

// Metadata keys written by the graph builder and surfaced in the summary.
const (
	MetaBuildTime      = "build_time"
	MetaBuilderVersion = "builder_version"
	MetaEmbedMethod    = "embed_method"
	MetaProjectRoot    = "project_root"
)

// Summary aggregates the graph's shape: totals, per-type counts, the
// highest-pagerank hubs, and the builder's provenance metadata.
func (e *Engine) Summary(ctx context.Context) (*graph.Summary, error) {
	s := &graph.Summary{}
	var err error

	if s.NodeCount, err = e.store.NodeCount(ctx); err != nil {
		return nil, err
	}
	if s.EdgeCount, err = e.store.EdgeCount(ctx); err != nil {
		return nil, err
	}
	if s.NodeTypes, err = e.store.CountNodesByType(ctx); err != nil {
		return nil, err
	}
	if s.EdgeTypes, err = e.store.CountEdgesByType(ctx); err != nil {
		return nil, err
	}
	if s.TopHubs, err = e.store.TopHubs(ctx, topHubCount); err != nil {
		return nil, err
	}

	if s.BuildTime, err = e.store.GetMeta(ctx, MetaBuildTime); err != nil {
		return nil, err
	}
	if s.BuilderVersion, err = e.store.GetMeta(ctx, MetaBuilderVersion); err != nil {
		return nil, err
	}
	if s.EmbedMethod, err = e.store.GetMeta(ctx, MetaEmbedMethod); err != nil {
		return nil, err
	}
	if s.ProjectRoot, err = e.store.GetMeta(ctx, MetaProjectRoot); err != nil {
		return nil, err
	}
	return s, nil
}
