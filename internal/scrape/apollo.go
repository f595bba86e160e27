package scrape

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// ErrLoginTimeout is returned when nobody logs in to Apollo in time.
var ErrLoginTimeout = errors.New("apollo: login timeout; log in within the allotted time in the browser window and retry")

// extractLeadsJS reads the lead rows of an Apollo people or contacts list.
// Apollo renders rows as nested divs; a contact link carries a query string.
const extractLeadsJS = `(() => {
  const results = [];
  const seen = new Set();
  const links = Array.from(document.querySelectorAll('a')).filter(a => {
    const h = a.getAttribute('href') || '';
    return (h.includes('/contacts/') || h.includes('/people/')) && h.includes('?');
  });
  const SKIP = ['no email', 'unlock email', 'no phone', 'request phone', 'click to run', 'add to sequence'];
  for (const link of links) {
    const name = (link.textContent || '').trim();
    if (!name || name.length < 2 || seen.has(name)) continue;
    seen.add(name);
    let row = null;
    let el = link.parentElement;
    for (let i = 0; i < 8 && el; i++) {
      if (el.querySelectorAll('a[href*="/contacts/"], a[href*="/accounts/"]').length >= 2) { row = el; break; }
      el = el.parentElement;
    }
    if (!row) row = link.parentElement && link.parentElement.parentElement;
    if (!row) continue;
    const first = el => ((el && el.innerText) || '').trim().split('\n')[0].trim();
    const lead = { name: name, job_title: '', company: '', location: '' };
    const children = Array.from(row.children);
    const nameIdx = children.findIndex(c => c === link || c.contains(link));
    const companyDiv = children.find(c => c.querySelector('a[href*="/accounts/"]') || c.querySelector('a[href*="/companies/"]'));
    if (companyDiv) lead.company = first(companyDiv);
    if (nameIdx + 1 < children.length) {
      const jt = first(children[nameIdx + 1]);
      if (jt && jt.length < 100) lead.job_title = jt;
    }
    for (let i = nameIdx + 2; i < children.length; i++) {
      if (children[i] === companyDiv) continue;
      const text = first(children[i]);
      if (!text || text.length > 60 || /^\d+$/.test(text)) continue;
      if (SKIP.some(p => text.toLowerCase().includes(p))) continue;
      if (text.includes('@') || /^https?:\/\//.test(text)) continue;
      lead.location = text;
      break;
    }
    results.push(lead);
  }
  return results;
})()`

// nextPageJS clicks the first pagination button it finds. It returns
// "clicked", "disabled" or "missing".
const nextPageJS = `(() => {
  const selectors = [
    "button[aria-label='Next']",
    "button[data-cy='next-page']",
    "button[aria-label='Next page']",
    "button[aria-label='Go to next page']",
    "[class*='pagination'] button:last-child",
    "[class*='Pagination'] button:last-child",
  ];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (!btn) continue;
    if (btn.hasAttribute('disabled') || btn.getAttribute('aria-disabled') === 'true') return 'disabled';
    btn.click();
    return 'clicked';
  }
  return 'missing';
})()`

// listedLead is one row as read by extractLeadsJS.
type listedLead struct {
	Name     string `json:"name"`
	JobTitle string `json:"job_title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

func (r listedLead) toLead() model.Lead {
	first, last, _ := strings.Cut(strings.Join(strings.Fields(r.Name), " "), " ")
	return model.NewLead(first, last,
		strings.TrimSpace(r.Company),
		strings.TrimSpace(r.JobTitle),
		strings.TrimSpace(r.Location),
	)
}

// isLoginPage reports whether an Apollo URL is part of the sign-in flow.
func isLoginPage(u string) bool {
	for _, k := range []string{"login", "sign_in", "signin", "auth"} {
		if strings.Contains(u, k) {
			return true
		}
	}
	return false
}

// tab is the slice of Browser the listing fetch needs.
type tab interface {
	SetCookies(cookies []*network.CookieParam) error
	Navigate(ctx context.Context, url string, settle time.Duration) (string, error)
	Location(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expr string, out any) error
	Close()
}

// ApolloOptions configures the Apollo listing fetch.
type ApolloOptions struct {
	CookiesPath string
	Headless    bool
	LoginWait   time.Duration
	PageDelay   time.Duration
}

// Apollo scrapes lead rows from an Apollo search URL in Chrome. When Apollo
// shows its login page the user gets LoginWait to sign in by hand.
type Apollo struct {
	opts    ApolloOptions
	open    func(ctx context.Context) (tab, error)
	settle  time.Duration
	pollGap time.Duration
}

var _ pipeline.Fetcher = (*Apollo)(nil)

// NewApollo creates the listing fetcher.
func NewApollo(opts ApolloOptions) *Apollo {
	a := &Apollo{opts: opts, settle: 4 * time.Second, pollGap: time.Second}
	a.open = func(ctx context.Context) (tab, error) {
		b, err := NewBrowser(ctx, BrowserOptions{Headless: opts.Headless})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return a
}

// Fetch implements pipeline.Fetcher. maxLeads <= 0 means no limit.
func (a *Apollo) Fetch(ctx context.Context, run pipeline.Run, sourceURL string, maxLeads int) ([]model.Lead, error) {
	log := run.Log
	log.Info("Step 2: Scraping Apollo listing", zap.Bool("headless", a.opts.Headless))

	b, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	a.injectCookies(log, b)

	location, err := b.Navigate(ctx, sourceURL, a.settle)
	if err != nil {
		return nil, err
	}
	if isLoginPage(location) {
		if err := a.waitForLogin(ctx, log, b); err != nil {
			return nil, err
		}
		log.Info("apollo: navigating to search URL after login")
		if _, err := b.Navigate(ctx, sourceURL, a.settle); err != nil {
			return nil, err
		}
	}

	var leads []model.Lead
	for page := 1; maxLeads <= 0 || len(leads) < maxLeads; page++ {
		log.Info(fmt.Sprintf("Scraping page %d (%d leads so far)", page, len(leads)))

		var rows []listedLead
		if err := b.Evaluate(ctx, extractLeadsJS, &rows); err != nil {
			log.Error("apollo: lead extraction failed", zap.Int("page", page), zap.Error(err))
		}
		if len(rows) == 0 {
			log.Warn(fmt.Sprintf("apollo: no leads found on page %d, stopping", page))
			break
		}
		for _, r := range rows {
			leads = append(leads, r.toLead())
		}
		log.Info(fmt.Sprintf("Page %d: +%d leads (total: %d)", page, len(rows), len(leads)))
		if maxLeads > 0 {
			run.Progress.Report(progress.StageFetch, float64(len(leads))/float64(maxLeads),
				fmt.Sprintf("Scraped %d/%d leads", min(len(leads), maxLeads), maxLeads))
			if len(leads) >= maxLeads {
				break
			}
		}

		var state string
		if err := b.Evaluate(ctx, nextPageJS, &state); err != nil || state != "clicked" {
			log.Info("apollo: no more pages", zap.String("pagination", state))
			break
		}
		if err := sleep(ctx, a.opts.PageDelay+2*time.Second); err != nil {
			return nil, eris.Wrap(err, "apollo: paginate")
		}
	}

	if maxLeads > 0 && len(leads) > maxLeads {
		leads = leads[:maxLeads]
	}
	log.Info("apollo: scraping complete", zap.Int("leads", len(leads)))
	return leads, nil
}

func (a *Apollo) injectCookies(log *zap.Logger, b tab) {
	if a.opts.CookiesPath == "" {
		return
	}
	cookies, err := LoadCookies(a.opts.CookiesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("apollo: no cookie file, relying on manual login", zap.String("path", a.opts.CookiesPath))
		} else {
			log.Warn("apollo: cookie file unreadable", zap.Error(err))
		}
		return
	}
	if err := b.SetCookies(cookies); err != nil {
		log.Warn("apollo: cookie injection failed, continuing", zap.Error(err))
		return
	}
	log.Info("apollo: injected cookies", zap.Int("count", len(cookies)))
}

func (a *Apollo) waitForLogin(ctx context.Context, log *zap.Logger, b tab) error {
	log.Warn("apollo: login page detected, log in manually in the browser window",
		zap.Duration("timeout", a.opts.LoginWait))

	deadline := time.Now().Add(a.opts.LoginWait)
	for time.Now().Before(deadline) {
		if err := sleep(ctx, a.pollGap); err != nil {
			return eris.Wrap(err, "apollo: waiting for login")
		}
		location, err := b.Location(ctx)
		if err != nil {
			continue
		}
		if !isLoginPage(location) {
			log.Info("apollo: login detected, continuing")
			return nil
		}
	}
	return ErrLoginTimeout
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
