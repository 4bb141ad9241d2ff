package company

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// MemoryStore keeps company profiles in process memory. Used in tests and
// in single-process deployments that do not need durability.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*model.CompanyProfile
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*model.CompanyProfile)}
}

func profileKey(tenantID, domain string) string {
	return tenantID + ":" + domain
}

func (s *MemoryStore) Upsert(_ context.Context, tenantID string, profile *model.CompanyProfile, score int, status model.LeadStatus) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey(tenantID, profile.Domain)
	existing, ok := s.profiles[key]
	if !ok {
		stored := cloneProfile(profile)
		stored.TenantID = tenantID
		stored.TotalVisits = 1
		stored.LastVisit = now
		stored.Score = score
		stored.Status = status
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.profiles[key] = stored
		return cloneProfile(stored), nil
	}

	existing.TotalVisits++
	existing.LastVisit = now
	existing.UpdatedAt = now
	existing.Score = score
	existing.Status = status
	fillEmpty(existing, profile)
	existing.Enrichment.Sources = mergeSources(existing.Enrichment.Sources, profile.Enrichment.Sources)
	if existing.Enrichment.Confidence == 0 {
		existing.Enrichment.Confidence = profile.Enrichment.Confidence
		existing.Enrichment.EnrichedAt = profile.Enrichment.EnrichedAt
	}
	return cloneProfile(existing), nil
}

func (s *MemoryStore) SetScore(_ context.Context, tenantID, domain string, score int, status model.LeadStatus) error {
	if tenantID == "" {
		return model.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[profileKey(tenantID, domain)]
	if !ok {
		return nil
	}
	existing.Score = score
	existing.Status = status
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tenantID, domain string) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[profileKey(tenantID, domain)]
	if !ok {
		return nil, nil
	}
	return cloneProfile(existing), nil
}

func (s *MemoryStore) List(_ context.Context, tenantID string, filter Filter) ([]model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.CompanyProfile
	for _, p := range s.profiles {
		if p.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Domain < out[j].Domain
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func cloneProfile(p *model.CompanyProfile) *model.CompanyProfile {
	out := *p
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	if p.Enrichment.Sources != nil {
		out.Enrichment.Sources = append([]string(nil), p.Enrichment.Sources...)
	}
	return &out
}
