package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/waterfall"
	"github.com/sells-group/leadgen-cli/internal/waterfall/provider"
)

// Resolver resolves one field of a lead through a source waterfall.
type Resolver interface {
	Resolve(ctx context.Context, lead provider.LeadIdentifier, fieldKey string) waterfall.Resolution
}

// SearchEnricher fills linkedin_url and website from web search sources.
type SearchEnricher struct {
	resolver Resolver
}

var _ pipeline.Enricher = (*SearchEnricher)(nil)

// NewSearchEnricher creates a SearchEnricher.
func NewSearchEnricher(resolver Resolver) *SearchEnricher {
	return &SearchEnricher{resolver: resolver}
}

// Enrich sets linkedin_url and website on every lead, nil when no source
// found a value. Leads without a company get no website lookup.
func (e *SearchEnricher) Enrich(ctx context.Context, run pipeline.Run, leads []model.Lead) ([]model.Lead, error) {
	total := len(leads)
	var linkedIn, websites int
	for i, lead := range leads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := provider.FromLead(lead)
		run.Log.Info(fmt.Sprintf("Google enrichment [%d/%d]: %s", i+1, total, id.FullName()))

		res := e.resolver.Resolve(ctx, id, model.FieldLinkedInURL)
		lead.SetOptional(model.FieldLinkedInURL, res.Value)
		if res.Resolved() {
			linkedIn++
		}

		if id.Company == "" {
			lead[model.FieldWebsite] = nil
			continue
		}
		res = e.resolver.Resolve(ctx, id, model.FieldWebsite)
		lead.SetOptional(model.FieldWebsite, res.Value)
		if res.Resolved() {
			websites++
		}
	}

	run.Log.Info("search enrichment complete",
		zap.Int("leads", total),
		zap.Int("linkedin_found", linkedIn),
		zap.Int("websites_found", websites),
	)
	return leads, nil
}
