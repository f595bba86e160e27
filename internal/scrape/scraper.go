// Package scrape drives the browser and HTTP scraping used by the pipeline:
// the Apollo listing fetch, LinkedIn profile text and company website text.
package scrape

import (
	"context"
)

// Page is the visible text of one fetched URL.
type Page struct {
	URL    string
	Title  string
	Text   string
	Source string // e.g. "http", "browser", "cache"
}

// Scraper fetches a single URL and returns its text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
}
