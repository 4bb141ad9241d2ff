// Package enrich fans visitor domains out to the registered source
// adapters and assembles company profiles from their partial results.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leadgrid/tracker-cli/internal/company"
	"github.com/leadgrid/tracker-cli/internal/enrich/source"
	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/internal/scorer"
	"github.com/leadgrid/tracker-cli/internal/session"
)

// Aggregator queries all registered adapters for a domain, merges their
// results in priority order, and persists profiles that clear the
// confidence gate.
type Aggregator struct {
	registry  *source.Registry
	sessions  session.Store
	companies company.Store
	engine    *scorer.Engine

	adapterTimeout time.Duration
	minConfidence  float64

	// flight collapses concurrent lookups for the same (tenant, domain)
	// into one fan-out. Only the external calls are deduplicated; each
	// session still records its own visit.
	flight singleflight.Group
}

// New creates an Aggregator. adapterTimeout bounds each individual source
// call; minConfidence is the persistence gate (profiles at or below it are
// discarded).
func New(registry *source.Registry, sessions session.Store, companies company.Store, engine *scorer.Engine, adapterTimeout time.Duration, minConfidence float64) *Aggregator {
	return &Aggregator{
		registry:       registry,
		sessions:       sessions,
		companies:      companies,
		engine:         engine,
		adapterTimeout: adapterTimeout,
		minConfidence:  minConfidence,
	}
}

// lookup is one adapter's settled outcome, in registry order.
type lookup struct {
	name   string
	result *model.EnrichmentResult
}

// merged is the fan-out product shared across deduplicated callers.
type merged struct {
	profile    model.CompanyProfile
	sources    []string
	confidence float64
}

// Enrich resolves the company behind a session's domain and persists the
// profile when confident enough. A session that already carries company
// info is left untouched. Returns the stored profile, or nil when nothing
// was persisted.
func (a *Aggregator) Enrich(ctx context.Context, tenantID, sessionID, domain, ip string) (*model.CompanyProfile, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	if domain == "" {
		return nil, nil
	}

	sess, err := a.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: load session %s", sessionID)
	}
	if sess.CompanyInfo != nil {
		return nil, nil
	}

	v, err, _ := a.flight.Do(tenantID+":"+domain, func() (any, error) {
		return a.fanOut(ctx, domain, ip), nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: fan out")
	}
	m := v.(*merged)
	if len(m.sources) == 0 || m.confidence <= a.minConfidence {
		zap.S().Debugw("enrichment discarded",
			"tenant", tenantID, "domain", domain,
			"sources", len(m.sources), "confidence", m.confidence)
		return nil, nil
	}

	profile := m.profile
	profile.TenantID = tenantID
	profile.Domain = domain
	profile.Enrichment = model.Enrichment{
		Sources:    m.sources,
		Confidence: m.confidence,
		EnrichedAt: time.Now().UTC(),
	}

	score := a.engine.ScoreSession(sess)
	stored, err := a.companies.Upsert(ctx, tenantID, &profile, score, a.engine.Classify(score))
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: upsert company %s", domain)
	}
	if err := a.sessions.SetCompanyInfo(ctx, tenantID, sessionID, stored); err != nil {
		return nil, eris.Wrapf(err, "enrich: attach company to session %s", sessionID)
	}

	zap.S().Infow("company enriched",
		"tenant", tenantID, "domain", domain,
		"sources", m.sources, "confidence", m.confidence, "score", stored.Score)
	return stored, nil
}

// fanOut queries every adapter concurrently and waits for all of them to
// settle. Adapter failures are logged and treated as no-result; one slow
// or broken source never blocks the rest beyond its own timeout.
func (a *Aggregator) fanOut(ctx context.Context, domain, ip string) *merged {
	adapters := a.registry.Ordered()
	lc := source.LookupContext{Domain: domain, IP: ip}

	// The outer deadline backstops adapters that ignore their per-call
	// timeout. Detached from the caller so one session's cancellation
	// does not starve deduplicated siblings.
	outer, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.adapterTimeout+time.Second)
	defer cancel()

	results := make(chan lookup, len(adapters))
	for _, ad := range adapters {
		go func(ad source.Adapter) {
			callCtx, callCancel := context.WithTimeout(outer, a.adapterTimeout)
			defer callCancel()

			res, err := ad.Lookup(callCtx, lc)
			if err != nil {
				zap.S().Warnw("enrichment source failed",
					"source", ad.Name(), "domain", domain, "error", err)
				res = nil
			}
			results <- lookup{name: ad.Name(), result: res}
		}(ad)
	}

	settled := make(map[string]*model.EnrichmentResult, len(adapters))
	for range adapters {
		l := <-results
		settled[l.name] = l.result
	}

	// Merge in registry order: earlier adapters win, later ones only fill
	// fields still empty. Confidence is the mean over adapters that
	// returned anything at all.
	m := &merged{}
	var sum float64
	for _, ad := range adapters {
		res := settled[ad.Name()]
		if res == nil {
			continue
		}
		m.sources = append(m.sources, ad.Name())
		sum += res.Confidence
		applyResult(&m.profile, res)
	}
	if len(m.sources) > 0 {
		m.confidence = sum / float64(len(m.sources))
	}
	return m
}

// applyResult copies fields from a source result into the profile where
// the profile has no value yet.
func applyResult(p *model.CompanyProfile, res *model.EnrichmentResult) {
	if p.Name == "" {
		p.Name = res.Name
	}
	if p.Industry == "" {
		p.Industry = res.Industry
	}
	if p.Size == "" {
		p.Size = res.Size
	}
	if p.Location == nil {
		p.Location = res.Location
	}
	if p.Email == "" {
		p.Email = res.Email
	}
	if p.Phone == "" {
		p.Phone = res.Phone
	}
	if p.Website == "" {
		p.Website = res.Website
	}
}
