// Package dropcontact is a client for the asynchronous Dropcontact batch
// enrichment API.
package dropcontact

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultBaseURL = "https://api.dropcontact.com"

// Client submits contact batches and fetches their results.
type Client interface {
	Submit(ctx context.Context, contacts []Contact) (string, error)
	Result(ctx context.Context, requestID string) (*BatchResult, error)
}

// Contact is one person to enrich.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
}

// BatchResult is the state of a submitted batch. Data is filled once
// Success is true, in submission order.
type BatchResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Error   bool   `json:"error"`
	Data    []Item `json:"data"`
}

// Ready reports whether the batch finished with data.
func (r *BatchResult) Ready() bool {
	return r.Success && len(r.Data) > 0
}

// Item is the enrichment result for one contact.
type Item struct {
	Email Values `json:"email"`
	Phone Values `json:"phone"`
}

// Values decodes fields the API returns either as a plain string or as a
// list of objects carrying the value under "email" or "number".
type Values []string

func (v *Values) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*v = Values{s}
		}
		return nil
	}

	var objs []map[string]any
	if err := json.Unmarshal(data, &objs); err != nil {
		// Unknown shapes carry no usable value.
		return nil
	}
	for _, o := range objs {
		for _, key := range []string{"email", "number"} {
			if s, ok := o[key].(string); ok && s != "" {
				*v = append(*v, s)
				break
			}
		}
	}
	return nil
}

// First returns the first value, or "".
func (v Values) First() string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Dropcontact client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type submitRequest struct {
	Data     []Contact `json:"data"`
	Siren    bool      `json:"siren"`
	Language string    `json:"language"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

// Submit posts a batch and returns its request id.
func (c *httpClient) Submit(ctx context.Context, contacts []Contact) (string, error) {
	body, err := json.Marshal(submitRequest{Data: contacts, Siren: true, Language: "FR"})
	if err != nil {
		return "", eris.Wrap(err, "dropcontact: marshal request")
	}

	var out submitResponse
	if err := c.do(ctx, http.MethodPost, "/batch", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.RequestID == "" {
		return "", eris.Errorf("dropcontact: batch rejected: %s", out.Reason)
	}
	return out.RequestID, nil
}

// Result fetches the current state of a batch.
func (c *httpClient) Result(ctx context.Context, requestID string) (*BatchResult, error) {
	var out BatchResult
	if err := c.do(ctx, http.MethodGet, "/batch/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "dropcontact: create request")
	}
	req.Header.Set("X-Access-Token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "dropcontact: %s %s", method, path)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "dropcontact: read response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resilience.StatusError("dropcontact", resp.StatusCode, respBody)
	}
	return eris.Wrap(json.Unmarshal(respBody, out), "dropcontact: unmarshal response")
}
