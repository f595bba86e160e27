package scrape

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// hideWebdriverJS masks the most common automation fingerprints.
const hideWebdriverJS = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = { runtime: {} };`

// BrowserOptions configures a Chrome instance.
type BrowserOptions struct {
	Headless  bool
	UserAgent string
}

// Browser is one Chrome process with a single tab.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrowser starts Chrome. Cancelling parent stops the browser.
func NewBrowser(parent context.Context, opts BrowserOptions) (*Browser, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.NoSandbox,
			chromedp.UserAgent(ua),
			chromedp.WindowSize(1440, 900),
		)...,
	)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriverJS).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, eris.Wrap(err, "browser: start chrome")
	}
	return &Browser{ctx: ctx, cancel: cancel}, nil
}

// SetCookies injects cookies into the browser session.
func (b *Browser) SetCookies(cookies []*network.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return eris.Wrap(chromedp.Run(b.ctx, network.Enable(), network.SetCookies(cookies)), "browser: set cookies")
}

// Navigate loads url, waits settle for scripts to render and returns the
// URL the tab ended on.
func (b *Browser) Navigate(ctx context.Context, url string, settle time.Duration) (string, error) {
	var location string
	err := b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.Location(&location),
	)
	return location, eris.Wrapf(err, "browser: navigate %s", url)
}

// Location returns the tab's current URL.
func (b *Browser) Location(ctx context.Context) (string, error) {
	var location string
	err := b.run(ctx, chromedp.Location(&location))
	return location, eris.Wrap(err, "browser: location")
}

// Evaluate runs a JavaScript expression and decodes its result into out.
func (b *Browser) Evaluate(ctx context.Context, expr string, out any) error {
	return eris.Wrap(b.run(ctx, chromedp.Evaluate(expr, out)), "browser: evaluate")
}

// OuterHTML returns the rendered document.
func (b *Browser) OuterHTML(ctx context.Context) (string, error) {
	var html string
	err := b.run(ctx, chromedp.OuterHTML("html", &html))
	return html, eris.Wrap(err, "browser: outer html")
}

// Close stops Chrome.
func (b *Browser) Close() {
	b.cancel()
}

// run executes actions on the tab while also honouring ctx, which may be
// shorter-lived than the browser.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tabCtx, actions...)
}

// BrowserScraper renders a page in a fresh headless Chrome. It is the
// fallback for sites that block plain HTTP or need JavaScript.
type BrowserScraper struct {
	limit   int
	timeout time.Duration
}

// NewBrowserScraper creates a BrowserScraper returning at most limit runes.
func NewBrowserScraper(limit int, timeout time.Duration) *BrowserScraper {
	return &BrowserScraper{limit: limit, timeout: timeout}
}

func (s *BrowserScraper) Name() string { return "browser" }

func (s *BrowserScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := NewBrowser(ctx, BrowserOptions{Headless: true})
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if _, err := b.Navigate(ctx, targetURL, 2*time.Second); err != nil {
		return nil, err
	}
	html, err := b.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}
	title, text, err := ExtractText(html, s.limit)
	if err != nil {
		return nil, eris.Wrap(err, "browser scrape: parse html")
	}
	return &Page{URL: targetURL, Title: title, Text: text, Source: s.Name()}, nil
}
