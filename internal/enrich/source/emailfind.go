package source

import (
	"context"
	"strings"
	"time"

	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/pkg/emailfind"
)

// genericLocalParts are role addresses preferred over personal ones.
var genericLocalParts = []string{"contact", "info", "sales"}

// EmailFindAdapter discovers a contact email for the visited domain.
type EmailFindAdapter struct {
	client  emailfind.Client
	timeout time.Duration
}

// NewEmailFind creates the email discovery adapter.
func NewEmailFind(client emailfind.Client, timeout time.Duration) *EmailFindAdapter {
	return &EmailFindAdapter{client: client, timeout: timeout}
}

// Name implements Adapter.
func (a *EmailFindAdapter) Name() string { return NameEmail }

// Lookup implements Adapter. Among the returned candidates it prefers a
// generic role address (contact/info/sales), falling back to the first.
func (a *EmailFindAdapter) Lookup(ctx context.Context, lc LookupContext) (*model.EnrichmentResult, error) {
	if lc.Domain == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.client.DomainSearch(ctx, lc.Domain)
	if err != nil {
		return nil, err
	}
	if len(result.Data.Emails) == 0 {
		return nil, nil
	}

	chosen := result.Data.Emails[0]
	for _, candidate := range result.Data.Emails {
		if genericLocalPart(candidate.Value) {
			chosen = candidate
			break
		}
	}

	return &model.EnrichmentResult{
		Name:       result.Data.Organization,
		Email:      chosen.Value,
		Confidence: float64(chosen.Confidence) / 100,
	}, nil
}

func genericLocalPart(email string) bool {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return false
	}
	local = strings.ToLower(local)
	for _, g := range genericLocalParts {
		if strings.Contains(local, g) {
			return true
		}
	}
	return false
}
