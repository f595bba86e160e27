package scrape

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Text limits passed to the deepen prompt.
const (
	MaxWebsiteText  = 2000
	MaxLinkedInText = 3000
)

// ExtractText returns the visible text of an HTML document, whitespace
// collapsed, cut to at most limit runes. limit <= 0 means no limit.
func ExtractText(html string, limit int) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, nav, footer, svg, iframe").Remove()
	return title, Truncate(strings.Join(strings.Fields(doc.Find("body").Text()), " "), limit), nil
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
