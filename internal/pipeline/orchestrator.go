package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

var (
	// ErrEmptyURL rejects a run request without a source URL.
	ErrEmptyURL = errors.New("pipeline: url is required")
	// ErrNoLeads fails a job whose fetch stage returned nothing.
	ErrNoLeads = errors.New("no leads scraped from source; check cookies and URL")
)

// RunRequest describes one pipeline run.
type RunRequest struct {
	URL        string
	MaxLeads   int
	SkipDeepen bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the maximum number of concurrently executing jobs.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithStages replaces the default progress stage layout.
func WithStages(stages []progress.Stage) Option {
	return func(o *Orchestrator) { o.stages = stages }
}

// WithLogger sets the base logger per-job loggers derive from.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithProgressLevel sets the minimum log level that drives progress
// detection.
func WithProgressLevel(level zapcore.LevelEnabler) Option {
	return func(o *Orchestrator) { o.level = level }
}

// Orchestrator accepts run requests and executes each job on its own
// goroutine, bounded by a fixed-size worker pool.
type Orchestrator struct {
	registry *jobs.Registry
	stages   []progress.Stage
	st       Stages
	log      *zap.Logger
	level    zapcore.LevelEnabler
	workers  int
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

// New creates an Orchestrator writing job state to registry.
func New(registry *jobs.Registry, st Stages, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		st:       st,
		stages:   progress.DefaultStages(),
		level:    zapcore.InfoLevel,
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.L()
	}
	o.sem = semaphore.NewWeighted(int64(o.workers))
	return o
}

// Registry returns the job store the orchestrator writes to.
func (o *Orchestrator) Registry() *jobs.Registry {
	return o.registry
}

// Start registers a job and schedules it. It returns as soon as the job and
// its channel exist. ctx bounds the job's lifetime: cancel it only on
// process shutdown. Jobs still waiting for a worker when ctx ends fail.
func (o *Orchestrator) Start(ctx context.Context, req RunRequest) (string, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return "", ErrEmptyURL
	}
	if req.MaxLeads < 0 {
		return "", eris.Errorf("pipeline: max_leads must be >= 0, got %d", req.MaxLeads)
	}

	job, ch := o.registry.Create(req.URL)
	o.log.Info("pipeline: job queued",
		zap.String("job_id", job.ID),
		zap.String("url", req.URL),
		zap.Int("max_leads", req.MaxLeads),
		zap.Bool("skip_deepen", req.SkipDeepen),
	)

	o.wg.Add(1)
	go o.work(ctx, job.ID, ch, req)
	return job.ID, nil
}

// Wait blocks until every started job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) work(ctx context.Context, jobID string, ch *jobs.Channel, req RunRequest) {
	defer o.wg.Done()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		out := &outbox{ch: ch}
		o.fail(jobID, out, o.log.With(zap.String("job_id", jobID)), eris.Wrap(err, "pipeline: waiting for worker"))
		ch.Close()
		return
	}
	defer o.sem.Release(1)

	o.execute(ctx, jobID, ch, req)
}

// outbox serializes pushes to a job channel so that nothing follows the
// terminal event.
type outbox struct {
	mu       sync.Mutex
	ch       *jobs.Channel
	finished bool
}

func (b *outbox) progress(ev model.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.finished {
		b.ch.Push(model.ProgressOf(ev))
	}
}

func (b *outbox) terminal(ev model.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return false
	}
	b.finished = true
	b.ch.Push(ev)
	return true
}

func (o *Orchestrator) execute(ctx context.Context, jobID string, ch *jobs.Channel, req RunRequest) {
	out := &outbox{ch: ch}
	tracker := progress.NewTracker(o.stages, out.progress)
	core := progress.NewCore(tracker, o.level)
	log := zap.New(zapcore.NewTee(o.log.Core(), core)).With(zap.String("job_id", jobID))

	defer func() {
		core.Detach()
		ch.Close()
	}()
	defer func() {
		if r := recover(); r != nil {
			core.Detach()
			o.fail(jobID, out, log, eris.Errorf("pipeline: panic: %v", r))
		}
	}()

	run := Run{JobID: jobID, Log: log, Progress: tracker}
	leads, err := o.runStages(ctx, run, req)
	if err != nil {
		core.Detach()
		o.fail(jobID, out, log, err)
		return
	}

	art, err := o.st.Exporter.Export(ctx, run, leads)
	core.Detach()
	if err != nil {
		o.fail(jobID, out, log, eris.Wrap(err, "pipeline: export"))
		return
	}
	o.succeed(jobID, out, log, leads, art)
}

func (o *Orchestrator) runStages(ctx context.Context, run Run, req RunRequest) ([]model.Lead, error) {
	run.Progress.Report(progress.StageInput, 0, "Input URL: "+req.URL)

	run.Progress.Report(progress.StageFetch, 0, "Step 2: scraping listing")
	leads, err := o.st.Fetcher.Fetch(ctx, run, req.URL, req.MaxLeads)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch")
	}
	if len(leads) == 0 {
		return nil, ErrNoLeads
	}
	run.Log.Info("pipeline: leads scraped", zap.Int("leads", len(leads)))

	run.Progress.Report(progress.StageEnrich, 0, fmt.Sprintf("Step 3: enriching %d leads", len(leads)))
	leads, err = o.st.Enricher.Enrich(ctx, run, leads)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: enrich")
	}

	run.Progress.Report(progress.StageScore, 0, "Step 4: hit scoring")
	leads, err = o.st.Scorer.Score(ctx, run, leads)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: score")
	}

	hits, idx := Hits(leads)
	if !req.SkipDeepen && len(hits) > 0 && o.st.Deepener != nil {
		run.Progress.Report(progress.StageDeepen, 0, fmt.Sprintf("Step 5: AI enrichment of %d hit leads", len(hits)))
		deepened, err := o.st.Deepener.Deepen(ctx, run, hits)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: deepen")
		}
		if len(deepened) != len(idx) {
			return nil, eris.Errorf("pipeline: deepen returned %d leads for %d hits", len(deepened), len(idx))
		}
		for i, l := range deepened {
			leads[idx[i]] = l
		}
	} else {
		run.Log.Info("pipeline: deepen skipped",
			zap.Bool("requested", req.SkipDeepen),
			zap.Int("hits", len(hits)),
		)
	}

	for _, i := range idx {
		leads[i].SetDefault(model.FieldActivitySummary, nil)
		leads[i].SetDefault(model.FieldConversionAngle, nil)
	}
	return leads, nil
}

func (o *Orchestrator) succeed(jobID string, out *outbox, log *zap.Logger, leads []model.Lead, art Artifact) {
	hits, _ := Hits(leads)
	job := model.Job{
		Status:     model.JobStatusDone,
		TotalLeads: len(leads),
		HitLeads:   len(hits),
		NoHitLeads: len(leads) - len(hits),
		Stats:      model.ComputeStats(leads),
		Leads:      leads,
		CSVPath:    art.CSVPath,
		XLSXPath:   art.XLSXPath,
	}
	if err := o.registry.Update(jobID, job); err != nil {
		log.Error("pipeline: record job result", zap.Error(err))
		return
	}
	out.terminal(model.DoneEvent(jobID))
	log.Info("pipeline: job done",
		zap.Int("total", job.TotalLeads),
		zap.Int("hits", job.HitLeads),
		zap.String("csv", art.CSVPath),
	)
}

func (o *Orchestrator) fail(jobID string, out *outbox, log *zap.Logger, err error) {
	msg := err.Error()
	if uerr := o.registry.Update(jobID, model.Job{Status: model.JobStatusError, Error: msg}); uerr != nil {
		log.Warn("pipeline: failure after terminal state", zap.Error(err), zap.NamedError("update_error", uerr))
		return
	}
	out.terminal(model.ErrorEvent(msg))
	log.Error("pipeline: job failed", zap.Error(err))
}
