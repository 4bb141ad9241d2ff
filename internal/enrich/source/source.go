// Package source defines the contract and implementations for enrichment
// source adapters.
package source

import (
	"context"
	"sync"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// Adapter names, in merge priority order.
const (
	NameIP        = "ip"
	NameDomain    = "domain"
	NameEmail     = "email"
	NameDirectory = "directory"
)

// LookupContext carries whichever identifiers an adapter needs.
type LookupContext struct {
	Domain string
	IP     string
}

// Adapter is one independent external lookup. Implementations apply their
// own timeout and never panic: a failed or empty lookup returns (nil, err)
// or (nil, nil), so one adapter can never block or fail the others.
type Adapter interface {
	// Name returns the adapter identifier used in enrichment source lists.
	Name() string
	// Lookup resolves a partial company profile, or nil when the adapter
	// has nothing for this context.
	Lookup(ctx context.Context, lc LookupContext) (*model.EnrichmentResult, error)
}

// Registry holds adapters in fixed priority order. The order determines
// field-merge precedence in the aggregator, so it is set at construction
// and never re-sorted.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry creates a registry with adapters in the given priority order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Register appends an adapter at the lowest priority.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, a)
}

// Ordered returns the adapters in priority order.
func (r *Registry) Ordered() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}
