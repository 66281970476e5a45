// Package vocab caches the builder-computed TF-IDF vocabulary for the
// lifetime of the process.
//
// The cache is the engine's only piece of mutable process-wide state. Reload
// publishes a freshly built immutable snapshot via an atomic pointer swap, so
// readers concurrent with a reload always observe a complete mapping — either
// the old one or the new one, never a partial update.
package vocab

import (
	"context"
	"sync/atomic"

	"github.com/calderb/synapse-go/internal/graph"
)

// Term holds the cached statistics for one vocabulary term.
type Term struct {
	IDF       float64
	DocCount  int
	TermCount int
}

// Snapshot is an immutable term → statistics mapping.
type Snapshot map[string]Term

// Loader supplies vocabulary rows, typically the store adapter.
type Loader interface {
	LoadVocab(ctx context.Context) ([]graph.VocabTerm, error)
}

// Cache is the process-lifetime vocabulary cache.
type Cache struct {
	loader   Loader
	snapshot atomic.Pointer[Snapshot]
}

// New creates a cache and performs the initial load. A store without a
// vocabulary table yields an empty (but valid) snapshot.
func New(ctx context.Context, loader Loader) (*Cache, error) {
	c := &Cache{loader: loader}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the vocabulary and atomically publishes the new snapshot.
// Safe to call while lookups are in flight.
func (c *Cache) Reload(ctx context.Context) error {
	terms, err := c.loader.LoadVocab(ctx)
	if err != nil {
		return err
	}

	snap := make(Snapshot, len(terms))
	for _, t := range terms {
		snap[t.Term] = Term{IDF: t.IDF, DocCount: t.DocCount, TermCount: t.TermCount}
	}
	c.snapshot.Store(&snap)
	return nil
}

// Current returns the published snapshot.
func (c *Cache) Current() Snapshot {
	snap := c.snapshot.Load()
	if snap == nil {
		return Snapshot{}
	}
	return *snap
}

// Len returns the number of cached terms.
func (c *Cache) Len() int {
	return len(c.Current())
}
