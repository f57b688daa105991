package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider defines the interface that all lyrics providers must implement
type Provider interface {
	// Name returns the provider's display name (e.g., "Musixmatch", "LrcLib")
	Name() string

	// Source returns the tag stamped on results this provider produces
	Source() Source

	// Attempt tries every internal strategy in order and returns the first
	// non-empty result, or nil when all of them came back empty. Upstream
	// failures are logged and swallowed; they never reach the caller.
	Attempt(ctx context.Context, query TrackQuery) *LyricsResult
}

// Registry holds providers keyed by their Source
type Registry struct {
	mu        sync.RWMutex
	providers map[Source]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Source]Provider)}
}

// Register adds a provider to the registry, replacing any provider with the same Source
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Source()] = p
}

// Get retrieves a provider by source
func (r *Registry) Get(src Source) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[src]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", src)
	}
	return p, nil
}

// Has checks if a provider is registered for src
func (r *Registry) Has(src Source) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[src]
	return ok
}

// List returns all registered sources in sorted order
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.providers))
	for src := range r.providers {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
