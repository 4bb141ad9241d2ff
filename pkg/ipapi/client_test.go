package ipapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ParsesCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7/json", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ip": "203.0.113.7",
			"city": "Austin",
			"region": "Texas",
			"country": "US",
			"org": "AS64496 Acme Corp",
			"company": {"name": "Acme Corp", "domain": "acme.com", "type": "business"}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-token", WithBaseURL(srv.URL))
	resp, err := c.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "Austin", resp.City)
	assert.Equal(t, "Texas", resp.Region)
	assert.Equal(t, "US", resp.Country)
	require.NotNil(t, resp.Company)
	assert.Equal(t, "Acme Corp", resp.Company.Name)
}

func TestLookup_OrgOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip": "203.0.113.7", "org": "AS64496 Example Networks"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "AS64496 Example Networks", resp.Org)
	assert.Nil(t, resp.Company)
}

func TestLookup_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ip": "203.0.113.7", "org": "AS64496 Acme"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "AS64496 Acme", resp.Org)
}

func TestLookup_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "bad token"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Lookup(context.Background(), "203.0.113.7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
