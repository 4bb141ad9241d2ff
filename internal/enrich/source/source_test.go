package source

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/tracker-cli/pkg/companydb"
	"github.com/leadgrid/tracker-cli/pkg/emailfind"
	"github.com/leadgrid/tracker-cli/pkg/ipapi"
)

type fakeIPClient struct {
	resp  *ipapi.Response
	err   error
	calls int
}

func (f *fakeIPClient) Lookup(ctx context.Context, ip string) (*ipapi.Response, error) {
	f.calls++
	return f.resp, f.err
}

type fakeCompanyClient struct {
	company *companydb.Company
	err     error
}

func (f *fakeCompanyClient) Find(ctx context.Context, domain string) (*companydb.Company, error) {
	return f.company, f.err
}

type fakeEmailClient struct {
	result *emailfind.SearchResult
	err    error
}

func (f *fakeEmailClient) DomainSearch(ctx context.Context, domain string) (*emailfind.SearchResult, error) {
	return f.result, f.err
}

func TestIPGeo_SkipsUnroutableIPsWithoutCall(t *testing.T) {
	client := &fakeIPClient{}
	a := NewIPGeo(client, time.Second)

	for _, ip := range []string{"", "unknown", "Unknown", "not-an-ip", "127.0.0.1", "10.1.2.3", "192.168.0.5", "0.0.0.0", "169.254.1.1", "::1"} {
		result, err := a.Lookup(context.Background(), LookupContext{IP: ip})
		require.NoError(t, err, "ip %q", ip)
		assert.Nil(t, result, "ip %q", ip)
	}
	assert.Zero(t, client.calls)
}

func TestIPGeo_StructuredCompany(t *testing.T) {
	client := &fakeIPClient{resp: &ipapi.Response{
		City:    "Austin",
		Region:  "Texas",
		Country: "US",
		Org:     "AS64496 ACME CORP",
		Company: &ipapi.Company{Name: "Acme Corp", Type: "business"},
	}}
	a := NewIPGeo(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{IP: "203.0.113.7"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Acme Corp", result.Name)
	assert.Equal(t, "Business", result.Industry)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	require.NotNil(t, result.Location)
	assert.Equal(t, "Austin", result.Location.City)
	assert.Equal(t, "US", result.Location.Country)
}

func TestIPGeo_OrgStringFallback(t *testing.T) {
	client := &fakeIPClient{resp: &ipapi.Response{
		Country: "DE",
		Org:     "AS64500 EXAMPLE NETWORKS GMBH",
	}}
	a := NewIPGeo(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{IP: "203.0.113.9"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Example Networks Gmbh", result.Name)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestIPGeo_NoOrgNoCompany(t *testing.T) {
	client := &fakeIPClient{resp: &ipapi.Response{City: "Austin"}}
	a := NewIPGeo(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{IP: "203.0.113.9"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestIPGeo_PropagatesClientError(t *testing.T) {
	client := &fakeIPClient{err: eris.New("boom")}
	a := NewIPGeo(client, time.Second)

	_, err := a.Lookup(context.Background(), LookupContext{IP: "203.0.113.9"})
	require.Error(t, err)
}

func TestCompanyDB_MapsRecord(t *testing.T) {
	company := &companydb.Company{Name: "Acme Corp", Domain: "acme.com", Phone: "+1 512-555-0100"}
	company.Category.Industry = "Software"
	company.Metrics.Employees = 175
	company.Geo.City = "Austin"
	company.Geo.State = "TX"
	company.Geo.Country = "US"

	a := NewCompanyDB(&fakeCompanyClient{company: company}, time.Second)
	result, err := a.Lookup(context.Background(), LookupContext{Domain: "acme.com"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Acme Corp", result.Name)
	assert.Equal(t, "Software", result.Industry)
	assert.Equal(t, "51-200", result.Size)
	assert.Equal(t, "https://acme.com", result.Website)
	assert.Equal(t, "TX", result.Location.Region)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}

func TestCompanyDB_EmptyDomainAndNotFound(t *testing.T) {
	a := NewCompanyDB(&fakeCompanyClient{}, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = a.Lookup(context.Background(), LookupContext{Domain: "unknown.example"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSizeBucket(t *testing.T) {
	cases := map[int]string{
		0:    "Unknown",
		-3:   "Unknown",
		1:    "1-10",
		9:    "1-10",
		10:   "11-50",
		49:   "11-50",
		50:   "51-200",
		199:  "51-200",
		200:  "201-1000",
		999:  "201-1000",
		1000: "1000+",
		5000: "1000+",
	}
	for employees, want := range cases {
		assert.Equal(t, want, sizeBucket(employees), "employees=%d", employees)
	}
}

func TestEmailFind_PrefersGenericLocalPart(t *testing.T) {
	client := &fakeEmailClient{result: &emailfind.SearchResult{Data: emailfind.SearchData{
		Organization: "Acme Corp",
		Emails: []emailfind.Email{
			{Value: "jane.doe@acme.com", Confidence: 95},
			{Value: "sales@acme.com", Confidence: 80},
		},
	}}}
	a := NewEmailFind(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{Domain: "acme.com"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "sales@acme.com", result.Email)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Equal(t, "Acme Corp", result.Name)
}

func TestEmailFind_FallsBackToFirstCandidate(t *testing.T) {
	client := &fakeEmailClient{result: &emailfind.SearchResult{Data: emailfind.SearchData{
		Emails: []emailfind.Email{
			{Value: "jane.doe@acme.com", Confidence: 72},
			{Value: "john@acme.com", Confidence: 64},
		},
	}}}
	a := NewEmailFind(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{Domain: "acme.com"})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "jane.doe@acme.com", result.Email)
	assert.InDelta(t, 0.72, result.Confidence, 1e-9)
}

func TestEmailFind_NoCandidates(t *testing.T) {
	client := &fakeEmailClient{result: &emailfind.SearchResult{}}
	a := NewEmailFind(client, time.Second)

	result, err := a.Lookup(context.Background(), LookupContext{Domain: "acme.com"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDirectory_AlwaysNil(t *testing.T) {
	a := NewDirectory()
	result, err := a.Lookup(context.Background(), LookupContext{Domain: "acme.com", IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, NameDirectory, a.Name())
}

func TestRegistry_PreservesOrder(t *testing.T) {
	r := NewRegistry(
		NewIPGeo(&fakeIPClient{}, time.Second),
		NewCompanyDB(&fakeCompanyClient{}, time.Second),
		NewEmailFind(&fakeEmailClient{}, time.Second),
	)
	r.Register(NewDirectory())

	names := []string{}
	for _, a := range r.Ordered() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{NameIP, NameDomain, NameEmail, NameDirectory}, names)
}
