package jobloader

import (
	"context"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/jobgraph/pkg/graph"
)

// Loader fetches, decodes and caches job graphs
type Loader struct {
	fetchers *FetcherRegistry
	cache    *Cache
}

// NewLoader creates a loader over the given fetchers with an empty cache
func NewLoader(fetchers *FetcherRegistry) *Loader {
	return &Loader{
		fetchers: fetchers,
		cache:    NewCache(),
	}
}

// Load fetches the document named by ref from the given source type and
// builds its graph. The graph is structurally sound (no duplicate or dangling
// names) but not yet validated. The fetch result is returned alongside so
// callers can report where the graph came from.
func (l *Loader) Load(ctx context.Context, sourceType, ref string) (*graph.Graph, *FetchResult, error) {
	logger := log.FromContext(ctx).WithValues("source", sourceType)

	start := time.Now()
	result, err := l.fetchers.Fetch(ctx, sourceType, ref)
	if err != nil {
		RecordFetch(sourceType, "error", time.Since(start).Seconds())
		return nil, nil, fmt.Errorf("failed to fetch job definitions: %w", err)
	}
	RecordFetch(sourceType, "success", time.Since(start).Seconds())

	cacheKey := result.Source + "@" + result.Digest
	if cached, found := l.cache.Get(cacheKey); found {
		RecordCacheHit()
		logger.V(1).Info("using cached job graph", "origin", result.Source, "digest", result.Digest)
		return cached, result, nil
	}
	RecordCacheMiss()

	doc, err := Decode(result.Format, result.Source, result.Content)
	if err != nil {
		RecordDecodeError(result.Format)
		return nil, result, fmt.Errorf("failed to decode %s: %w", result.Source, err)
	}

	name := doc.Name
	if name == "" {
		name = result.Name
	}

	g, err := graph.NewGraph(name, doc.Jobs)
	if err != nil {
		return nil, result, fmt.Errorf("invalid job definitions in %s: %w", result.Source, err)
	}

	l.cache.Set(cacheKey, g)
	UpdateCacheStats(l.cache.Size())

	logger.V(1).Info("loaded job graph",
		"origin", result.Source, "format", result.Format, "graph", g.Name(), "jobs", g.Len())
	return g, result, nil
}

// Cache returns the loader's graph cache
func (l *Loader) Cache() *Cache {
	return l.cache
}
