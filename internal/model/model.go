// Package model defines the shared domain types for the visitor tracking
// and enrichment pipeline.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrMissingTenant is returned when an inbound event or store call lacks a
// tenant identifier. There is no default tenant: defaulting would let data
// cross tenant boundaries.
var ErrMissingTenant = eris.New("model: tenant id required")

// LeadStatus classifies a company profile by lead score.
type LeadStatus string

// Lead status values.
const (
	StatusHot  LeadStatus = "hot"
	StatusWarm LeadStatus = "warm"
	StatusCold LeadStatus = "cold"
)

// TrackingEvent is one inbound event from the tracking script, already
// extracted from transport by the API layer.
type TrackingEvent struct {
	TenantID  string         `json:"tenant_id"`
	VisitorID string         `json:"visitor_id,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"user_agent"`
	Domain    string         `json:"domain,omitempty"`
	URL       string         `json:"url,omitempty"`
	Title     string         `json:"title,omitempty"`
	Referrer  string         `json:"referrer,omitempty"`
	EventType string         `json:"event_type,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// PageView is one entry in a session's page sequence.
type PageView struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BehaviorEvent is one entry in a session's event sequence.
type BehaviorEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// VisitorSession is one browsing episode. The session id is derived from
// (ip, user agent, calendar day), so all traffic sharing those three values
// collapses into one session until the date rolls over.
type VisitorSession struct {
	SessionID string `json:"session_id"`
	TenantID  string `json:"tenant_id"`
	VisitorID string `json:"visitor_id,omitempty"`
	Domain    string `json:"domain,omitempty"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	// Pages and Events are append-only and order-preserving.
	Pages  []PageView      `json:"pages"`
	Events []BehaviorEvent `json:"events"`

	// CompanyInfo is set at most once per session; enrichment is attempted
	// only while it is unset.
	CompanyInfo *CompanyProfile `json:"company_info,omitempty"`

	// Returning is true when the event's visitor id was seen before for
	// this tenant.
	Returning bool `json:"returning,omitempty"`

	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
}

// Duration returns the session length.
func (s *VisitorSession) Duration() time.Duration {
	return s.LastActivity.Sub(s.StartTime)
}

// Location is a company's resolved location.
type Location struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// EnrichmentResult is the partial profile returned by a single source
// adapter. It is transient and never persisted standalone.
type EnrichmentResult struct {
	Name     string    `json:"name,omitempty"`
	Industry string    `json:"industry,omitempty"`
	Size     string    `json:"size,omitempty"`
	Location *Location `json:"location,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Website  string    `json:"website,omitempty"`

	// Confidence is the source-local confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// Enrichment records how a company profile was assembled.
type Enrichment struct {
	// Sources lists contributing adapters in priority order.
	Sources []string `json:"sources"`
	// Confidence is the arithmetic mean over adapters that returned a
	// non-nil result, regardless of whether their fields were retained.
	Confidence float64   `json:"confidence"`
	EnrichedAt time.Time `json:"enriched_at"`
}

// CompanyProfile is the enrichment target, one per (tenant, domain).
type CompanyProfile struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`

	Name     string    `json:"name,omitempty"`
	Industry string    `json:"industry,omitempty"`
	Size     string    `json:"size,omitempty"`
	Location *Location `json:"location,omitempty"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Website  string    `json:"website,omitempty"`

	Enrichment Enrichment `json:"enrichment"`

	TotalVisits int        `json:"total_visits"`
	LastVisit   time.Time  `json:"last_visit"`
	Score       int        `json:"score"`
	Status      LeadStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
