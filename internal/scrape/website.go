package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// HTTPScraper fetches HTML over plain HTTP and extracts its text.
type HTTPScraper struct {
	client *http.Client
	limit  int
}

// NewHTTPScraper creates an HTTPScraper returning at most limit runes.
func NewHTTPScraper(limit int) *HTTPScraper {
	return &HTTPScraper{
		limit: limit,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (s *HTTPScraper) Name() string { return "http" }

// Scrape fetches targetURL, detects blocks and strips it to text.
func (s *HTTPScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http scrape: create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "http scrape: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, eris.Wrap(err, "http scrape: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("http scrape: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("http scrape: status %d", resp.StatusCode)
	}

	title, text, err := ExtractText(string(body), s.limit)
	if err != nil {
		return nil, eris.Wrap(err, "http scrape: parse html")
	}
	return &Page{URL: targetURL, Title: title, Text: text, Source: s.Name()}, nil
}
