package source

import (
	"context"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// DirectoryAdapter is a placeholder for a business-directory lookup. It
// always returns nil but stays registered so the aggregation logic is
// source-count-agnostic.
//
// TODO: wire a directory provider once one is contracted; the merge order
// already reserves the lowest priority slot for it.
type DirectoryAdapter struct{}

// NewDirectory creates the directory placeholder adapter.
func NewDirectory() *DirectoryAdapter { return &DirectoryAdapter{} }

// Name implements Adapter.
func (a *DirectoryAdapter) Name() string { return NameDirectory }

// Lookup implements Adapter.
func (a *DirectoryAdapter) Lookup(ctx context.Context, lc LookupContext) (*model.EnrichmentResult, error) {
	return nil, nil
}
