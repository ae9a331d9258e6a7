package jobloader

import (
	"context"
	"fmt"
	"sort"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// FetchResult contains the result of fetching a job definition document
type FetchResult struct {
	// Content is the raw document
	Content []byte

	// Digest is a content-addressable identifier for the document
	// For files and inline text: xxhash of the content
	// For ConfigMap: UID and resourceVersion
	Digest string

	// Source describes where the document was fetched from (for logging/debugging)
	Source string

	// Name is the default graph name when the document does not set one
	Name string

	// Format is the document format used to decode Content
	Format Format
}

// Fetcher defines the interface for fetching job definitions from various sources
type Fetcher interface {
	// Fetch retrieves a job definition document
	// ctx: context for cancellation and timeouts
	// ref: the reference string (path, inline document, ConfigMap name)
	Fetch(ctx context.Context, ref string) (*FetchResult, error)

	// Type returns the type of fetcher (for logging and metrics)
	Type() string
}

// FetcherRegistry manages all available fetchers
type FetcherRegistry struct {
	fetchers map[string]Fetcher
}

// NewFetcherRegistry creates a registry with the file and inline fetchers, and
// the ConfigMap fetcher when a Kubernetes client is given
func NewFetcherRegistry(k8sClient client.Client, namespace string) *FetcherRegistry {
	registry := &FetcherRegistry{
		fetchers: make(map[string]Fetcher),
	}

	registry.Register(NewFileFetcher())
	registry.Register(NewInlineFetcher())
	if k8sClient != nil {
		registry.Register(NewConfigMapFetcher(k8sClient, namespace))
	}

	return registry
}

// Register adds a fetcher, replacing any fetcher of the same type
func (r *FetcherRegistry) Register(fetcher Fetcher) {
	r.fetchers[fetcher.Type()] = fetcher
}

// Types returns the registered fetcher types in sorted order
func (r *FetcherRegistry) Types() []string {
	types := make([]string, 0, len(r.fetchers))
	for t := range r.fetchers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// GetFetcher returns the fetcher for the given type
func (r *FetcherRegistry) GetFetcher(fetcherType string) (Fetcher, error) {
	fetcher, ok := r.fetchers[fetcherType]
	if !ok {
		return nil, fmt.Errorf("unsupported source type: %s", fetcherType)
	}
	return fetcher, nil
}

// Fetch fetches a document using the appropriate fetcher
func (r *FetcherRegistry) Fetch(ctx context.Context, fetcherType, ref string) (*FetchResult, error) {
	fetcher, err := r.GetFetcher(fetcherType)
	if err != nil {
		return nil, err
	}
	return fetcher.Fetch(ctx, ref)
}
