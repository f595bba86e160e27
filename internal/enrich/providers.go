// Package enrich implements the enrichment stages: search lookups for the
// LinkedIn profile and company website, Dropcontact email and phone
// batches, and the Claude-generated sales angle for hit leads.
package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/waterfall"
	"github.com/sells-group/leadgen-cli/internal/waterfall/provider"
	"github.com/sells-group/leadgen-cli/pkg/clearbit"
	"github.com/sells-group/leadgen-cli/pkg/duckduckgo"
	"github.com/sells-group/leadgen-cli/pkg/google"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

var linkedInProfileRe = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/`)

// blockedDomains are never accepted as a company website.
var blockedDomains = []string{
	"linkedin.com", "facebook.com", "twitter.com", "instagram.com",
	"youtube.com", "wikipedia.org", "glassdoor.com", "indeed.com",
	"crunchbase.com", "bloomberg.com", "forbes.com", "x.com",
}

// linkedInQuery builds the profile search query for a lead.
func linkedInQuery(lead provider.LeadIdentifier) string {
	return strings.Join(strings.Fields(lead.FullName()+" "+lead.Company), " ") + " site:linkedin.com/in"
}

// PickLinkedIn returns the first personal profile URL in links.
func PickLinkedIn(links []string) string {
	for _, l := range links {
		if linkedInProfileRe.MatchString(l) {
			return l
		}
	}
	return ""
}

// PickWebsite returns the first link whose host is not a blocked domain.
func PickWebsite(links []string) string {
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil || u.Host == "" {
			continue
		}
		if !isBlocked(u.Hostname()) {
			return l
		}
	}
	return ""
}

func isBlocked(host string) bool {
	host = strings.ToLower(host)
	for _, d := range blockedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// GoogleCSE finds LinkedIn profiles through Google Custom Search.
type GoogleCSE struct {
	client google.Client
	guard  *Guard
}

// NewGoogleCSE creates the Google Custom Search provider.
func NewGoogleCSE(client google.Client, guard *Guard) *GoogleCSE {
	return &GoogleCSE{client: client, guard: guard}
}

func (p *GoogleCSE) Name() string              { return waterfall.SourceGoogleCSE }
func (p *GoogleCSE) SupportedFields() []string { return []string{model.FieldLinkedInURL} }

func (p *GoogleCSE) Lookup(ctx context.Context, lead provider.LeadIdentifier, _ string) (string, error) {
	resp, err := guarded(ctx, p.guard, p.Name(), "search", func(ctx context.Context) (*google.SearchResponse, error) {
		return p.client.Search(ctx, linkedInQuery(lead), 5)
	})
	if err != nil {
		return "", err
	}
	return PickLinkedIn(resp.Links()), nil
}

// Serper finds LinkedIn profiles through the Serper Google search API.
type Serper struct {
	client serper.Client
	guard  *Guard
}

// NewSerper creates the Serper provider.
func NewSerper(client serper.Client, guard *Guard) *Serper {
	return &Serper{client: client, guard: guard}
}

func (p *Serper) Name() string              { return waterfall.SourceSerper }
func (p *Serper) SupportedFields() []string { return []string{model.FieldLinkedInURL} }

func (p *Serper) Lookup(ctx context.Context, lead provider.LeadIdentifier, _ string) (string, error) {
	resp, err := guarded(ctx, p.guard, p.Name(), "search", func(ctx context.Context) (*serper.SearchResponse, error) {
		return p.client.Search(ctx, linkedInQuery(lead), 5)
	})
	if err != nil {
		return "", err
	}
	return PickLinkedIn(resp.Links()), nil
}

// Clearbit resolves a company website from its name with the Clearbit
// autocomplete API.
type Clearbit struct {
	client clearbit.Client
	guard  *Guard
}

// NewClearbit creates the Clearbit provider.
func NewClearbit(client clearbit.Client, guard *Guard) *Clearbit {
	return &Clearbit{client: client, guard: guard}
}

func (p *Clearbit) Name() string              { return waterfall.SourceClearbit }
func (p *Clearbit) SupportedFields() []string { return []string{model.FieldWebsite} }

func (p *Clearbit) Lookup(ctx context.Context, lead provider.LeadIdentifier, _ string) (string, error) {
	if lead.Company == "" {
		return "", nil
	}
	companies, err := guarded(ctx, p.guard, p.Name(), "suggest", func(ctx context.Context) ([]clearbit.Company, error) {
		return p.client.Suggest(ctx, lead.Company)
	})
	if err != nil {
		return "", err
	}
	for _, c := range companies {
		if d := strings.TrimSpace(c.Domain); d != "" {
			return "https://" + d, nil
		}
	}
	return "", nil
}

// DuckDuckGo resolves a company website from a DuckDuckGo HTML search.
type DuckDuckGo struct {
	client duckduckgo.Client
	guard  *Guard
}

// NewDuckDuckGo creates the DuckDuckGo provider.
func NewDuckDuckGo(client duckduckgo.Client, guard *Guard) *DuckDuckGo {
	return &DuckDuckGo{client: client, guard: guard}
}

func (p *DuckDuckGo) Name() string              { return waterfall.SourceDuckDuckGo }
func (p *DuckDuckGo) SupportedFields() []string { return []string{model.FieldWebsite} }

func (p *DuckDuckGo) Lookup(ctx context.Context, lead provider.LeadIdentifier, _ string) (string, error) {
	if lead.Company == "" {
		return "", nil
	}
	links, err := guarded(ctx, p.guard, p.Name(), "search", func(ctx context.Context) ([]string, error) {
		return p.client.Search(ctx, lead.Company+" official website", 10)
	})
	if err != nil {
		return "", err
	}
	return PickWebsite(links), nil
}
