package session

import (
	"context"
	"sync"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// MemoryStore implements Store with an in-process map. Suitable for tests
// and single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.VisitorSession
	visitors map[string]struct{}
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.VisitorSession),
		visitors: make(map[string]struct{}),
	}
}

func memKey(tenantID, sessionID string) string {
	return tenantID + ":" + sessionID
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(ctx context.Context, tenantID string, seed Seed) (*model.VisitorSession, bool, error) {
	if tenantID == "" {
		return nil, false, model.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(tenantID, seed.SessionID)
	if existing, ok := s.sessions[key]; ok {
		return cloneSession(existing), false, nil
	}

	created := newSession(tenantID, seed)
	s.sessions[key] = created
	return cloneSession(created), true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, tenantID, sessionID string) (*model.VisitorSession, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[memKey(tenantID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

// AppendPage implements Store.
func (s *MemoryStore) AppendPage(ctx context.Context, tenantID, sessionID string, page model.PageView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[memKey(tenantID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	sess.Pages = append(sess.Pages, page)
	if page.Timestamp.After(sess.LastActivity) {
		sess.LastActivity = page.Timestamp
	}
	return nil
}

// AppendEvent implements Store.
func (s *MemoryStore) AppendEvent(ctx context.Context, tenantID, sessionID string, event model.BehaviorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[memKey(tenantID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	sess.Events = append(sess.Events, event)
	if event.Timestamp.After(sess.LastActivity) {
		sess.LastActivity = event.Timestamp
	}
	return nil
}

// SetCompanyInfo implements Store. First enrichment wins.
func (s *MemoryStore) SetCompanyInfo(ctx context.Context, tenantID, sessionID string, profile *model.CompanyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[memKey(tenantID, sessionID)]
	if !ok {
		return ErrNotFound
	}
	if sess.CompanyInfo != nil {
		return nil
	}
	sess.CompanyInfo = profile
	return nil
}

// MarkVisitor implements Store.
func (s *MemoryStore) MarkVisitor(ctx context.Context, tenantID, visitorID string) (bool, error) {
	if tenantID == "" {
		return false, model.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(tenantID, visitorID)
	_, seen := s.visitors[key]
	s.visitors[key] = struct{}{}
	return seen, nil
}

// Close implements Store. The maps stay allocated: a store may still be
// used after Close, it just holds no external resources to release.
func (s *MemoryStore) Close() error {
	return nil
}

// cloneSession returns a copy so callers cannot mutate stored state
// outside Store operations.
func cloneSession(in *model.VisitorSession) *model.VisitorSession {
	out := *in
	out.Pages = append([]model.PageView(nil), in.Pages...)
	out.Events = append([]model.BehaviorEvent(nil), in.Events...)
	return &out
}
