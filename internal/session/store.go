// Package session holds in-progress visitor sessions, scoped by tenant.
package session

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = eris.New("session: not found")

// Seed carries the initial attributes for a session created on first sight.
type Seed struct {
	SessionID string
	VisitorID string
	Domain    string
	IPAddress string
	UserAgent string
	Returning bool
	Now       time.Time
}

// Store is the persistence interface for visitor sessions. Every operation
// is keyed by (tenantID, sessionID); implementations namespace storage by
// tenant so equal session ids from different tenants never collide.
type Store interface {
	// GetOrCreate returns the session for the key, creating it from seed
	// when absent. The second return is true when a session was created.
	GetOrCreate(ctx context.Context, tenantID string, seed Seed) (*model.VisitorSession, bool, error)

	// Get returns the session, or ErrNotFound.
	Get(ctx context.Context, tenantID, sessionID string) (*model.VisitorSession, error)

	// AppendPage appends to the session's page sequence in arrival order
	// and advances LastActivity.
	AppendPage(ctx context.Context, tenantID, sessionID string, page model.PageView) error

	// AppendEvent appends to the session's event sequence in arrival order
	// and advances LastActivity.
	AppendEvent(ctx context.Context, tenantID, sessionID string, event model.BehaviorEvent) error

	// SetCompanyInfo attaches the enriched profile to the session. It is a
	// no-op if the session already has one: first enrichment wins.
	SetCompanyInfo(ctx context.Context, tenantID, sessionID string, profile *model.CompanyProfile) error

	// MarkVisitor records a visitor identity for the tenant and reports
	// whether it had been seen before.
	MarkVisitor(ctx context.Context, tenantID, visitorID string) (bool, error)

	Close() error
}

func newSession(tenantID string, seed Seed) *model.VisitorSession {
	now := seed.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &model.VisitorSession{
		SessionID:    seed.SessionID,
		TenantID:     tenantID,
		VisitorID:    seed.VisitorID,
		Domain:       seed.Domain,
		IPAddress:    seed.IPAddress,
		UserAgent:    seed.UserAgent,
		Returning:    seed.Returning,
		StartTime:    now,
		LastActivity: now,
	}
}
