package source

import (
	"context"
	"net"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/pkg/ipapi"
)

// Confidence levels for IP-based resolution.
const (
	ipConfidenceCompany = 0.9
	ipConfidenceOrg     = 0.7
)

// asPrefix matches the leading AS number in raw organization strings,
// e.g. "AS64496 Acme Corp".
var asPrefix = regexp.MustCompile(`^AS\d+\s+`)

// IPGeoAdapter resolves company identity from the visitor's IP address via
// a geolocation/organization service.
type IPGeoAdapter struct {
	client  ipapi.Client
	timeout time.Duration
	caser   cases.Caser
}

// NewIPGeo creates the IP geolocation adapter.
func NewIPGeo(client ipapi.Client, timeout time.Duration) *IPGeoAdapter {
	return &IPGeoAdapter{
		client:  client,
		timeout: timeout,
		caser:   cases.Title(language.English),
	}
}

// Name implements Adapter.
func (a *IPGeoAdapter) Name() string { return NameIP }

// Lookup implements Adapter. Malformed, private, or placeholder IPs
// short-circuit to nil without a network call.
func (a *IPGeoAdapter) Lookup(ctx context.Context, lc LookupContext) (*model.EnrichmentResult, error) {
	if !routableIP(lc.IP) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Lookup(ctx, lc.IP)
	if err != nil {
		return nil, err
	}

	result := &model.EnrichmentResult{
		Location: &model.Location{
			City:    resp.City,
			Country: resp.Country,
			Region:  resp.Region,
		},
	}

	switch {
	case resp.Company != nil && resp.Company.Name != "":
		result.Name = resp.Company.Name
		result.Industry = a.caser.String(resp.Company.Type)
		result.Confidence = ipConfidenceCompany
	case resp.Org != "":
		result.Name = a.caser.String(strings.ToLower(asPrefix.ReplaceAllString(resp.Org, "")))
		result.Confidence = ipConfidenceOrg
	default:
		return nil, nil
	}

	return result, nil
}

// routableIP reports whether ip is worth a lookup: parseable, public, and
// not a placeholder the tracking script sends when it cannot determine
// the address.
func routableIP(ip string) bool {
	trimmed := strings.TrimSpace(ip)
	if trimmed == "" || strings.EqualFold(trimmed, "unknown") {
		return false
	}
	parsed := net.ParseIP(trimmed)
	if parsed == nil {
		return false
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return false
	}
	return true
}
