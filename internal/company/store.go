// Package company persists tenant-scoped company profiles with atomic
// visit counting.
package company

import (
	"context"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// Filter specifies criteria for listing company profiles.
type Filter struct {
	Status model.LeadStatus
	Limit  int
	Offset int
}

// Store is the persistence interface for company profiles, keyed by
// (tenantID, domain). Upsert must be safe under concurrent calls for the
// same key: the visit counter is incremented atomically, never via
// read-modify-write in the caller.
type Store interface {
	// Upsert inserts the profile on first sight (totalVisits = 1) or, on
	// repeat sight, increments the visit counter, refreshes lastVisit,
	// fills only empty profile fields, and applies the given score and
	// status. Returns the stored profile.
	Upsert(ctx context.Context, tenantID string, profile *model.CompanyProfile, score int, status model.LeadStatus) (*model.CompanyProfile, error)

	// SetScore updates score and status for an existing profile. A no-op
	// when the profile does not exist.
	SetScore(ctx context.Context, tenantID, domain string, score int, status model.LeadStatus) error

	// Get returns the profile, or (nil, nil) when absent.
	Get(ctx context.Context, tenantID, domain string) (*model.CompanyProfile, error)

	// List returns profiles for one tenant, highest score first.
	List(ctx context.Context, tenantID string, filter Filter) ([]model.CompanyProfile, error)

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	Close() error
}

// fillEmpty copies src fields into dst only where dst is unset. Fields
// already present in dst are never overwritten.
func fillEmpty(dst, src *model.CompanyProfile) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Industry == "" {
		dst.Industry = src.Industry
	}
	if dst.Size == "" {
		dst.Size = src.Size
	}
	if dst.Location == nil {
		dst.Location = src.Location
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Website == "" {
		dst.Website = src.Website
	}
}

// mergeSources appends sources from src that dst has not recorded yet,
// preserving order.
func mergeSources(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
