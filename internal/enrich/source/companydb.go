package source

import (
	"context"
	"time"

	"github.com/leadgrid/tracker-cli/internal/model"
	"github.com/leadgrid/tracker-cli/pkg/companydb"
)

const domainConfidence = 0.9

// CompanyDBAdapter resolves firmographics from the visited domain via a
// company database service.
type CompanyDBAdapter struct {
	client  companydb.Client
	timeout time.Duration
}

// NewCompanyDB creates the domain-registry adapter.
func NewCompanyDB(client companydb.Client, timeout time.Duration) *CompanyDBAdapter {
	return &CompanyDBAdapter{client: client, timeout: timeout}
}

// Name implements Adapter.
func (a *CompanyDBAdapter) Name() string { return NameDomain }

// Lookup implements Adapter.
func (a *CompanyDBAdapter) Lookup(ctx context.Context, lc LookupContext) (*model.EnrichmentResult, error) {
	if lc.Domain == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	company, err := a.client.Find(ctx, lc.Domain)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, nil
	}

	return &model.EnrichmentResult{
		Name:     company.Name,
		Industry: company.Category.Industry,
		Size:     sizeBucket(company.Metrics.Employees),
		Location: &model.Location{
			City:    company.Geo.City,
			Country: company.Geo.Country,
			Region:  company.Geo.State,
		},
		Phone:      company.Phone,
		Website:    "https://" + company.Domain,
		Confidence: domainConfidence,
	}, nil
}

// sizeBucket maps an employee count into the fixed size scheme used across
// the dashboard.
func sizeBucket(employees int) string {
	switch {
	case employees <= 0:
		return "Unknown"
	case employees < 10:
		return "1-10"
	case employees < 50:
		return "11-50"
	case employees < 200:
		return "51-200"
	case employees < 1000:
		return "201-1000"
	default:
		return "1000+"
	}
}
