package scorer

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// HitScorer scores leads by the contact channels they carry.
type HitScorer struct {
	weights   config.ScoringConfig
	threshold int
}

// NewHitScorer creates a scorer flagging leads at or above threshold.
func NewHitScorer(weights config.ScoringConfig, threshold int) *HitScorer {
	return &HitScorer{weights: weights, threshold: threshold}
}

// ScoreLead returns the hit score of one lead.
func (s *HitScorer) ScoreLead(l model.Lead) int {
	score := 0
	if l.Has(model.FieldEmail) {
		score += s.weights.Email
	}
	if l.Has(model.FieldLinkedInURL) {
		score += s.weights.LinkedIn
	}
	if l.Has(model.FieldPhone) {
		score += s.weights.Phone
	}
	if l.Has(model.FieldWebsite) {
		score += s.weights.Website
	}
	return score
}

// Score sets hit_score and is_hit on every lead.
func (s *HitScorer) Score(ctx context.Context, run pipeline.Run, leads []model.Lead) ([]model.Lead, error) {
	hits := 0
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := s.ScoreLead(l)
		l[model.FieldHitScore] = score
		l[model.FieldIsHit] = score >= s.threshold
		if score >= s.threshold {
			hits++
		}
	}

	run.Progress.Report(progress.StageScore, 1, "Hit score complete")
	run.Log.Info("Hit score complete",
		zap.Int("hits", hits),
		zap.Int("no_hits", len(leads)-hits),
		zap.Int("threshold", s.threshold),
	)
	return leads, nil
}
