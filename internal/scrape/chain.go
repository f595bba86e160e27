package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// minUsefulText is the text length below which a page probably needs
// JavaScript rendering.
const minUsefulText = 200

// PageCache stores fetched page text by URL.
type PageCache interface {
	GetPage(ctx context.Context, url string) ([]byte, error)
	SetPage(ctx context.Context, url string, content []byte) error
}

// Chain tries scrapers in order. A page with too little text is kept as a
// fallback while later scrapers get a chance to render it properly.
type Chain struct {
	scrapers []Scraper
	cache    PageCache
	log      *zap.Logger
}

// NewChain creates a Chain. cache may be nil.
func NewChain(log *zap.Logger, cache PageCache, scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers, cache: cache, log: log}
}

// Scrape returns the first page with useful text, the best short page if
// none had enough, or an error when every scraper failed.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, eris.New("scrape: empty url")
	}

	if c.cache != nil {
		if b, err := c.cache.GetPage(ctx, targetURL); err == nil && b != nil {
			return &Page{URL: targetURL, Text: string(b), Source: "cache"}, nil
		}
	}

	var best *Page
	var lastErr error
	for _, s := range c.scrapers {
		page, err := s.Scrape(ctx, targetURL)
		if err != nil {
			c.log.Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if best == nil || len(page.Text) > len(best.Text) {
			best = page
		}
		if len(page.Text) >= minUsefulText {
			break
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = eris.New("no scrapers configured")
		}
		return nil, eris.Wrapf(lastErr, "scrape: all scrapers failed for %s", targetURL)
	}

	if c.cache != nil && best.Text != "" {
		if err := c.cache.SetPage(ctx, targetURL, []byte(best.Text)); err != nil {
			c.log.Warn("scrape: cache write failed", zap.String("url", targetURL), zap.Error(err))
		}
	}
	return best, nil
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }
