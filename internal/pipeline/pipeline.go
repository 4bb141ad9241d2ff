// Package pipeline processes inbound tracking events end to end: session
// resolution, page and event recording, enrichment, and lead rescoring.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadgrid/tracker-cli/internal/company"
	"github.com/leadgrid/tracker-cli/internal/identity"
	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/internal/scorer"
	"github.com/leadgrid/tracker-cli/internal/session"
)

// Enricher resolves a session's domain into a persisted company profile.
// Implemented by enrich.Aggregator.
type Enricher interface {
	Enrich(ctx context.Context, tenantID, sessionID, domain, ip string) (*model.CompanyProfile, error)
}

// Result summarizes what one processed event did.
type Result struct {
	SessionID string
	Enriched  bool
	Score     int
	Status    model.LeadStatus
}

// Pipeline is the event processing core shared by the HTTP API and the
// CLI commands.
type Pipeline struct {
	sessions  session.Store
	companies company.Store
	enricher  Enricher
	engine    *scorer.Engine
}

// New wires a Pipeline from its collaborators.
func New(sessions session.Store, companies company.Store, enricher Enricher, engine *scorer.Engine) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		companies: companies,
		enricher:  enricher,
		engine:    engine,
	}
}

// Process handles one tracking event. Enrichment failures are logged but
// never fail the event: the page or behavior record always lands.
func (p *Pipeline) Process(ctx context.Context, event *model.TrackingEvent) (*Result, error) {
	if event.TenantID == "" {
		return nil, model.ErrMissingTenant
	}
	now := event.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	returning := false
	if event.VisitorID != "" {
		seen, err := p.sessions.MarkVisitor(ctx, event.TenantID, event.VisitorID)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: mark visitor")
		}
		returning = seen
	}

	sessionID := identity.Resolve(event.IP, event.UserAgent, now)
	sess, _, err := p.sessions.GetOrCreate(ctx, event.TenantID, session.Seed{
		SessionID: sessionID,
		VisitorID: event.VisitorID,
		Domain:    event.Domain,
		IPAddress: event.IP,
		UserAgent: event.UserAgent,
		Returning: returning,
		Now:       now,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve session")
	}

	switch event.EventType {
	case "", "pageview":
		err = p.sessions.AppendPage(ctx, event.TenantID, sessionID, model.PageView{
			URL:       event.URL,
			Title:     event.Title,
			Timestamp: now,
		})
	default:
		err = p.sessions.AppendEvent(ctx, event.TenantID, sessionID, model.BehaviorEvent{
			EventType: event.EventType,
			Timestamp: now,
			Payload:   event.Data,
		})
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: record activity")
	}

	enriched := false
	if sess.CompanyInfo == nil && event.Domain != "" {
		profile, err := p.enricher.Enrich(ctx, event.TenantID, sessionID, event.Domain, event.IP)
		if err != nil {
			zap.S().Warnw("enrichment failed",
				"tenant", event.TenantID, "session", sessionID,
				"domain", event.Domain, "error", err)
		}
		enriched = profile != nil
	}

	// Reload: this event's page or behavior record must be reflected in
	// the score, and enrichment may have attached company info.
	sess, err = p.sessions.Get(ctx, event.TenantID, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reload session")
	}

	result := &Result{SessionID: sessionID, Enriched: enriched}
	if sess.CompanyInfo != nil {
		score := p.engine.ScoreSession(sess)
		status := p.engine.Classify(score)
		if err := p.companies.SetScore(ctx, event.TenantID, sess.CompanyInfo.Domain, score, status); err != nil {
			return nil, eris.Wrap(err, "pipeline: update score")
		}
		result.Score = score
		result.Status = status
	}
	return result, nil
}
