package scrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// ProfileOpener starts a LinkedIn profile session.
type ProfileOpener interface {
	Open(ctx context.Context, log *zap.Logger) (ProfileSession, error)
}

// HitScraper collects the raw text the deepen prompt is built from: the
// LinkedIn profile and the company homepage of each hit lead.
type HitScraper struct {
	profiles ProfileOpener
	website  Scraper
	delay    time.Duration
}

// NewHitScraper creates a HitScraper. profiles may be nil, in which case
// no LinkedIn text is collected.
func NewHitScraper(profiles ProfileOpener, website Scraper, delay time.Duration) *HitScraper {
	return &HitScraper{profiles: profiles, website: website, delay: delay}
}

// Collect sets linkedin_text and website_text on every lead, reporting
// per-lead progress on the deepen stage. Lookup failures leave the text
// empty; only context cancellation is returned.
func (h *HitScraper) Collect(ctx context.Context, run pipeline.Run, hits []model.Lead) error {
	if len(hits) == 0 {
		return nil
	}
	log := run.Log

	var session ProfileSession
	if h.profiles != nil {
		s, err := h.profiles.Open(ctx, log)
		if err != nil {
			log.Warn("linkedin: session unavailable, skipping profiles", zap.Error(err))
		} else {
			session = s
			defer session.Close()
		}
	}

	total := len(hits)
	for i, lead := range hits {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := fmt.Sprintf("Scraping hit lead [%d/%d]: %s", i+1, total, lead.FullName())
		if run.Progress != nil {
			run.Progress.Report(progress.StageDeepen, float64(i)/float64(total), msg)
		}
		log.Debug(msg)

		var linkedInText, websiteText string
		g, gctx := errgroup.WithContext(ctx)
		if profileURL := lead.Str(model.FieldLinkedInURL); session != nil && profileURL != "" {
			g.Go(func() error {
				text, err := session.ProfileText(gctx, profileURL)
				if err != nil {
					log.Warn("linkedin: profile scrape failed", zap.String("url", profileURL), zap.Error(err))
					return nil
				}
				linkedInText = text
				return nil
			})
		}
		if site := lead.Str(model.FieldWebsite); h.website != nil && site != "" {
			g.Go(func() error {
				page, err := h.website.Scrape(gctx, site)
				if err != nil {
					log.Warn("website: scrape failed", zap.String("url", site), zap.Error(err))
					return nil
				}
				websiteText = Truncate(page.Text, MaxWebsiteText)
				return nil
			})
		}
		_ = g.Wait()

		lead[model.FieldLinkedInText] = linkedInText
		lead[model.FieldWebsiteText] = websiteText

		if i < total-1 {
			if err := sleep(ctx, h.delay); err != nil {
				return err
			}
		}
	}
	log.Info("scrape: hit lead text collected", zap.Int("leads", total))
	return nil
}
