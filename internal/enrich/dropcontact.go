package enrich

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/waterfall"
	"github.com/sells-group/leadgen-cli/pkg/dropcontact"
)

// DropcontactEnricher fills email and phone through Dropcontact batches.
type DropcontactEnricher struct {
	client    dropcontact.Client
	batchSize int
	poll      waterfall.PollConfig
	guard     *Guard
}

var _ pipeline.Enricher = (*DropcontactEnricher)(nil)

// NewDropcontactEnricher creates the enricher. A nil client disables
// lookups: every lead gets null email and phone.
func NewDropcontactEnricher(client dropcontact.Client, batchSize int, poll waterfall.PollConfig, guard *Guard) *DropcontactEnricher {
	if batchSize < 1 {
		batchSize = 50
	}
	return &DropcontactEnricher{client: client, batchSize: batchSize, poll: poll, guard: guard}
}

// Enrich submits leads in batches and waits for each result. A batch that
// fails to submit or never completes leaves its leads with null contacts.
func (e *DropcontactEnricher) Enrich(ctx context.Context, run pipeline.Run, leads []model.Lead) ([]model.Lead, error) {
	log := run.Log
	if e.client == nil {
		log.Info("Dropcontact API key not set, skipping email/phone enrichment")
		setContactDefaults(leads)
		return leads, nil
	}

	found := 0
	for start := 0; start < len(leads); start += e.batchSize {
		end := min(start+e.batchSize, len(leads))
		batch := leads[start:end]
		num := start/e.batchSize + 1

		log.Info(fmt.Sprintf("Dropcontact batch %d: submitting %d leads", num, len(batch)))
		items, err := e.runBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn(fmt.Sprintf("Batch %d failed, email/phone left empty", num), zap.Error(err))
			setContactDefaults(batch)
			continue
		}

		emails := 0
		for i, lead := range batch {
			if i >= len(items) {
				lead[model.FieldEmail] = nil
				lead[model.FieldPhone] = nil
				continue
			}
			lead.SetOptional(model.FieldEmail, items[i].Email.First())
			lead.SetOptional(model.FieldPhone, items[i].Phone.First())
			if lead.Has(model.FieldEmail) {
				emails++
			}
		}
		found += emails
		log.Info(fmt.Sprintf("Batch %d done. %d emails found in this batch.", num, emails))
	}

	log.Info(fmt.Sprintf("Dropcontact enrichment complete. %d/%d emails found.", found, len(leads)))
	return leads, nil
}

func (e *DropcontactEnricher) runBatch(ctx context.Context, batch []model.Lead) ([]dropcontact.Item, error) {
	contacts := make([]dropcontact.Contact, len(batch))
	for i, l := range batch {
		contacts[i] = dropcontact.Contact{
			FirstName: l.Str(model.FieldFirstName),
			LastName:  l.Str(model.FieldLastName),
			Company:   l.Str(model.FieldCompany),
		}
	}

	requestID, err := guarded(ctx, e.guard, "dropcontact", "submit", func(ctx context.Context) (string, error) {
		return e.client.Submit(ctx, contacts)
	})
	if err != nil {
		return nil, eris.Wrap(err, "dropcontact: submit")
	}

	res, err := waterfall.Poll(ctx, e.poll, func(ctx context.Context) (*dropcontact.BatchResult, bool, error) {
		r, err := e.client.Result(ctx, requestID)
		if err != nil {
			return nil, false, err
		}
		return r, r.Ready(), nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dropcontact: poll %s", requestID)
	}
	return res.Data, nil
}

func setContactDefaults(leads []model.Lead) {
	for _, l := range leads {
		l.SetDefault(model.FieldEmail, nil)
		l.SetDefault(model.FieldPhone, nil)
	}
}
