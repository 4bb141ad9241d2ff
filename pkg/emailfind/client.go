// Package emailfind provides a client for the domain-to-contact discovery
// service.
package emailfind

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the contact discovery operations.
type Client interface {
	// DomainSearch returns candidate contact emails for a domain.
	DomainSearch(ctx context.Context, domain string) (*SearchResult, error)
}

// SearchResult is the parsed domain-search payload.
type SearchResult struct {
	Data SearchData `json:"data"`
}

// SearchData holds the discovered contacts.
type SearchData struct {
	Domain       string  `json:"domain"`
	Organization string  `json:"organization,omitempty"`
	Emails       []Email `json:"emails"`
}

// Email is one candidate contact address.
type Email struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
	// Confidence is provider-reported in [0,100].
	Confidence int `json:"confidence"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a contact discovery client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.hunter.io/v2",
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) DomainSearch(ctx context.Context, domain string) (*SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "emailfind: rate limit wait")
	}

	reqURL := fmt.Sprintf("%s/domain-search?domain=%s&api_key=%s",
		c.baseURL, url.QueryEscape(domain), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "emailfind: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "emailfind: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "emailfind: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("emailfind: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "emailfind: unmarshal response")
	}
	return &result, nil
}
