package enrich

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
)

// Chain runs enrichers in order, each seeing the previous one's output.
type Chain []pipeline.Enricher

// Enrich implements pipeline.Enricher.
func (c Chain) Enrich(ctx context.Context, run pipeline.Run, leads []model.Lead) ([]model.Lead, error) {
	var err error
	for _, e := range c {
		leads, err = e.Enrich(ctx, run, leads)
		if err != nil {
			return nil, err
		}
	}
	return leads, nil
}
