package scrape

import (
	"context"
	"errors"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrAuthWall means LinkedIn redirected to its login or authwall page.
var ErrAuthWall = errors.New("linkedin: auth wall")

// profileTextJS gathers the headline, experience and about sections of a
// profile, falling back to the whole <main> element.
const profileTextJS = `(() => {
  const text = el => (el && el.innerText ? el.innerText.trim() : '');
  const sections = [];
  for (const sel of ['.pv-text-details__left-panel', '.ph5.pb5', '[data-generated-suggestion-target]', '.artdeco-card']) {
    const t = text(document.querySelector(sel));
    if (t) sections.push(t);
  }
  for (const group of [["#experience", "section[data-section='experience']"], ["#about"]]) {
    for (const sel of group) {
      const t = text(document.querySelector(sel));
      if (t) { sections.push(t); break; }
    }
  }
  if (sections.length === 0) return text(document.querySelector('main'));
  return sections.join('\n\n');
})()`

var blankLines = regexp.MustCompile(`\n{3,}`)

// ProfileSession reads profile pages in one logged-in browser tab.
type ProfileSession interface {
	ProfileText(ctx context.Context, profileURL string) (string, error)
	Close()
}

// LinkedIn opens profile sessions authenticated with exported cookies.
type LinkedIn struct {
	cookiesPath string
	open        func(ctx context.Context) (tab, error)
	settle      time.Duration
}

// NewLinkedIn creates a profile reader using the cookie export at
// cookiesPath. Profiles are read in headless Chrome.
func NewLinkedIn(cookiesPath string) *LinkedIn {
	return &LinkedIn{
		cookiesPath: cookiesPath,
		settle:      3 * time.Second,
		open: func(ctx context.Context) (tab, error) {
			b, err := NewBrowser(ctx, BrowserOptions{Headless: true})
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}

// Open starts a browser session. A missing cookie file is logged and the
// session continues unauthenticated, which usually ends at the auth wall.
func (l *LinkedIn) Open(ctx context.Context, log *zap.Logger) (ProfileSession, error) {
	b, err := l.open(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: open session")
	}

	cookies, err := LoadCookies(l.cookiesPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("linkedin: no cookie file, profiles may not be accessible", zap.String("path", l.cookiesPath))
	case err != nil:
		log.Warn("linkedin: cookie file unreadable", zap.Error(err))
	default:
		if err := b.SetCookies(cookies); err != nil {
			log.Warn("linkedin: cookie injection failed", zap.Error(err))
		}
	}
	return &linkedInSession{tab: b, settle: l.settle}, nil
}

type linkedInSession struct {
	tab    tab
	settle time.Duration
}

func (s *linkedInSession) ProfileText(ctx context.Context, profileURL string) (string, error) {
	location, err := s.tab.Navigate(ctx, profileURL, s.settle)
	if err != nil {
		return "", err
	}
	if IsAuthWall(location) {
		return "", eris.Wrapf(ErrAuthWall, "linkedin: %s", profileURL)
	}

	var text string
	if err := s.tab.Evaluate(ctx, profileTextJS, &text); err != nil {
		return "", err
	}
	text = strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
	return Truncate(text, MaxLinkedInText), nil
}

func (s *linkedInSession) Close() {
	s.tab.Close()
}
