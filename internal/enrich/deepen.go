package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

const deepenSystemPrompt = `Tu es un expert en prospection B2B.
À partir des informations sur un prospect (profil LinkedIn, site web de l'entreprise),
tu génères deux éléments concis pour personnaliser une approche commerciale :

1. activity_summary: résumé de l'activité professionnelle de la personne en 2-3 phrases.
2. conversion_angle: un angle d'approche personnalisé et actionnable pour décrocher un rendez-vous
   (ex: "automatiser sa gestion de stock", "réduire ses coûts d'acquisition client", etc.).

Réponds UNIQUEMENT en JSON avec exactement deux clés : "activity_summary" et "conversion_angle".
Pas d'explication, pas de markdown, juste le JSON brut.`

var deepenUserPrompt = template.Must(template.New("deepen").Parse(`Prospect :
Prénom : {{.FirstName}}
Nom : {{.LastName}}
Poste : {{.JobTitle}}
Entreprise : {{.Company}}
Localisation : {{.Location}}

Profil LinkedIn (extrait) :
{{.LinkedInText}}

Site web de l'entreprise (extrait) :
{{.WebsiteText}}

Génère le JSON avec activity_summary et conversion_angle.`))

// Prompt excerpt limits.
const (
	promptLinkedInChars = 2000
	promptWebsiteChars  = 1500
	missingText         = "Non disponible"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-z]*\n?")
	fenceCloseRe = regexp.MustCompile("\n?```$")
)

// TextCollector gathers the LinkedIn and website text of hit leads.
type TextCollector interface {
	Collect(ctx context.Context, run pipeline.Run, hits []model.Lead) error
}

// DeepenOptions configures the Claude call.
type DeepenOptions struct {
	Model     string
	MaxTokens int64
	// Pause separates consecutive Claude calls.
	Pause time.Duration
}

// Deepener writes activity_summary and conversion_angle for hit leads
// from their scraped LinkedIn profile and company website.
type Deepener struct {
	collector TextCollector
	client    anthropic.Client
	opts      DeepenOptions
}

var _ pipeline.Deepener = (*Deepener)(nil)

// NewDeepener creates a Deepener. A nil client leaves both AI fields null;
// a nil collector sends the prompt without scraped text.
func NewDeepener(collector TextCollector, client anthropic.Client, opts DeepenOptions) *Deepener {
	return &Deepener{collector: collector, client: client, opts: opts}
}

// Deepen implements pipeline.Deepener. Per-lead Claude failures null the
// lead's AI fields; only cancellation fails the stage.
func (d *Deepener) Deepen(ctx context.Context, run pipeline.Run, hits []model.Lead) ([]model.Lead, error) {
	log := run.Log
	if d.client == nil {
		log.Error("ANTHROPIC_API_KEY not set, skipping Claude enrichment")
		for _, l := range hits {
			l[model.FieldActivitySummary] = nil
			l[model.FieldConversionAngle] = nil
		}
		return hits, nil
	}

	// Text collection takes the first half of the stage, Claude the rest.
	claudeProgress := progress.Scaled(run.Progress, 0, 1)
	if d.collector != nil {
		scrapeRun := run
		scrapeRun.Progress = progress.Scaled(run.Progress, 0, 0.5)
		if err := d.collector.Collect(ctx, scrapeRun, hits); err != nil {
			return nil, eris.Wrap(err, "deepen: collect text")
		}
		claudeProgress = progress.Scaled(run.Progress, 0.5, 1)
	}

	var usage anthropic.TokenUsage
	total, enriched := len(hits), 0
	for i, lead := range hits {
		msg := fmt.Sprintf("Claude enrichment [%d/%d]: %s", i+1, total, lead.FullName())
		claudeProgress.Report(progress.StageDeepen, float64(i)/float64(total), msg)
		log.Debug(msg)

		fields, u, err := d.generate(ctx, lead)
		usage.Add(u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error("Claude error for "+lead.FullName(), zap.Error(err))
			lead[model.FieldActivitySummary] = nil
			lead[model.FieldConversionAngle] = nil
		} else {
			lead.SetOptional(model.FieldActivitySummary, fields.ActivitySummary)
			lead.SetOptional(model.FieldConversionAngle, fields.ConversionAngle)
			if lead.Has(model.FieldActivitySummary) {
				enriched++
			}
		}

		if i < total-1 && d.opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.opts.Pause):
			}
		}
	}

	usage.LogCost(log, d.opts.Model, "deepen")
	log.Info(fmt.Sprintf("Claude enrichment complete. %d/%d leads enriched.", enriched, total))
	return hits, nil
}

type aiFields struct {
	ActivitySummary string `json:"activity_summary"`
	ConversionAngle string `json:"conversion_angle"`
}

func (d *Deepener) generate(ctx context.Context, lead model.Lead) (aiFields, anthropic.TokenUsage, error) {
	prompt, err := buildPrompt(lead)
	if err != nil {
		return aiFields{}, anthropic.TokenUsage{}, err
	}

	resp, err := d.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.opts.Model,
		MaxTokens: d.opts.MaxTokens,
		System:    []anthropic.SystemBlock{{Text: deepenSystemPrompt, Cached: true}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return aiFields{}, anthropic.TokenUsage{}, err
	}

	fields, err := parseAIFields(resp.Text())
	return fields, resp.Usage, err
}

func buildPrompt(lead model.Lead) (string, error) {
	excerpt := func(key string, limit int) string {
		text := lead.Str(key)
		if strings.TrimSpace(text) == "" {
			return missingText
		}
		return scrape.Truncate(text, limit)
	}

	var b strings.Builder
	err := deepenUserPrompt.Execute(&b, map[string]string{
		"FirstName":    lead.Str(model.FieldFirstName),
		"LastName":     lead.Str(model.FieldLastName),
		"JobTitle":     lead.Str(model.FieldJobTitle),
		"Company":      lead.Str(model.FieldCompany),
		"Location":     lead.Str(model.FieldLocation),
		"LinkedInText": excerpt(model.FieldLinkedInText, promptLinkedInChars),
		"WebsiteText":  excerpt(model.FieldWebsiteText, promptWebsiteChars),
	})
	return b.String(), eris.Wrap(err, "deepen: render prompt")
}

// parseAIFields decodes the model's JSON answer, tolerating a markdown
// code fence around it.
func parseAIFields(text string) (aiFields, error) {
	content := strings.TrimSpace(text)
	if strings.HasPrefix(content, "```") {
		content = fenceOpenRe.ReplaceAllString(content, "")
		content = strings.TrimSpace(fenceCloseRe.ReplaceAllString(content, ""))
	}

	var f aiFields
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return aiFields{}, eris.Wrapf(err, "deepen: decode response %q", truncateForLog(content))
	}
	f.ActivitySummary = strings.TrimSpace(f.ActivitySummary)
	f.ConversionAngle = strings.TrimSpace(f.ConversionAngle)
	return f, nil
}

func truncateForLog(s string) string {
	return scrape.Truncate(s, 120)
}
