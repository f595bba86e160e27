package scrape

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/rotisserie/eris"
)

// exportedCookie is one entry of a browser-extension cookie export
// (Cookie-Editor and similar).
type exportedCookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	HTTPOnly       bool    `json:"httpOnly"`
	Secure         bool    `json:"secure"`
	SameSite       *string `json:"sameSite"`
	ExpirationDate float64 `json:"expirationDate"`
	Expires        float64 `json:"expires"`
}

var sameSiteMap = map[string]network.CookieSameSite{
	"no_restriction": network.CookieSameSiteNone,
	"none":           network.CookieSameSiteNone,
	"lax":            network.CookieSameSiteLax,
	"strict":         network.CookieSameSiteStrict,
	"unspecified":    network.CookieSameSiteLax,
}

// LoadCookies reads a cookie export file. A missing file returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
func LoadCookies(path string) ([]*network.CookieParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cookies: read %s", path)
	}
	return ParseCookies(data)
}

// ParseCookies converts an exported cookie list into Chrome cookie params.
func ParseCookies(data []byte) ([]*network.CookieParam, error) {
	var raw []exportedCookie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "cookies: parse")
	}

	out := make([]*network.CookieParam, 0, len(raw))
	for _, c := range raw {
		if c.Name == "" {
			continue
		}
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: network.CookieSameSiteLax,
		}
		if p.Path == "" {
			p.Path = "/"
		}
		if c.SameSite != nil {
			if ss, ok := sameSiteMap[strings.ToLower(*c.SameSite)]; ok {
				p.SameSite = ss
			}
		}

		exp := c.ExpirationDate
		if exp == 0 {
			exp = c.Expires
		}
		if exp > 0 {
			ts := cdp.TimeSinceEpoch(time.Unix(int64(exp), 0))
			p.Expires = &ts
		}
		out = append(out, p)
	}
	return out, nil
}
