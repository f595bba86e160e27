// Package pipeline runs lead-generation jobs: fetch, enrich, score, deepen
// and export, one worker per job.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// Run is the per-job handle given to every stage. Log is tagged with the
// job id and feeds progress detection; Progress accepts explicit reports.
type Run struct {
	JobID    string
	Log      *zap.Logger
	Progress progress.Reporter
}

// Fetcher scrapes up to maxLeads lead records from a listing URL.
type Fetcher interface {
	Fetch(ctx context.Context, run Run, sourceURL string, maxLeads int) ([]model.Lead, error)
}

// Enricher adds contact fields to leads.
type Enricher interface {
	Enrich(ctx context.Context, run Run, leads []model.Lead) ([]model.Lead, error)
}

// Scorer sets hit_score and is_hit on every lead.
type Scorer interface {
	Score(ctx context.Context, run Run, leads []model.Lead) ([]model.Lead, error)
}

// Deepener adds AI-derived fields to hit leads.
type Deepener interface {
	Deepen(ctx context.Context, run Run, hits []model.Lead) ([]model.Lead, error)
}

// Artifact locates the files written by an Exporter.
type Artifact struct {
	CSVPath  string
	XLSXPath string
}

// Exporter persists the final lead set.
type Exporter interface {
	Export(ctx context.Context, run Run, leads []model.Lead) (Artifact, error)
}

// Stages bundles the collaborators of an Orchestrator. Deepener may be nil,
// in which case every job behaves as if deepening was skipped.
type Stages struct {
	Fetcher  Fetcher
	Enricher Enricher
	Scorer   Scorer
	Deepener Deepener
	Exporter Exporter
}

// Hits returns the leads flagged is_hit, in order, with their indices.
func Hits(leads []model.Lead) ([]model.Lead, []int) {
	var hits []model.Lead
	var idx []int
	for i, l := range leads {
		if l.Bool(model.FieldIsHit) {
			hits = append(hits, l)
			idx = append(idx, i)
		}
	}
	return hits, idx
}
