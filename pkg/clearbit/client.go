// Package clearbit is a client for the keyless Clearbit company
// autocomplete API.
package clearbit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://autocomplete.clearbit.com/v1"

// Client suggests companies matching a name.
type Client interface {
	Suggest(ctx context.Context, company string) ([]Company, error)
}

// Company is one autocomplete suggestion.
type Company struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Logo   string `json:"logo"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Clearbit autocomplete client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 8 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Suggest(ctx context.Context, company string) ([]Company, error) {
	u := c.baseURL + "/companies/suggest?" + url.Values{"query": {company}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "clearbit: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("clearbit", resp.StatusCode, body)
	}

	var out []Company
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "clearbit: unmarshal response")
	}
	return out, nil
}
