// Package jobs holds the in-memory job registry and per-job event channels.
package jobs

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	// ErrNotFound is returned for an unknown job id.
	ErrNotFound = errors.New("jobs: job not found")
	// ErrAlreadyTerminal is returned when a finished job is updated again.
	ErrAlreadyTerminal = errors.New("jobs: job already terminal")
	// ErrInvalidTransition is returned for any update other than running to
	// a terminal status.
	ErrInvalidTransition = errors.New("jobs: invalid status transition")
	// ErrSubscribed is returned when a channel already has a reader.
	ErrSubscribed = errors.New("jobs: channel already has a subscriber")
)

type entry struct {
	job model.Job
	ch  *Channel
}

// Registry is the process-wide job store. Each job is written by exactly
// one worker and read by any number of request handlers.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*entry
	now  func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*entry),
		now:  time.Now,
	}
}

// Create registers a new running job and its event channel.
func (r *Registry) Create(sourceURL string) (model.Job, *Channel) {
	job := model.Job{
		ID:        uuid.New().String(),
		Status:    model.JobStatusRunning,
		SourceURL: sourceURL,
		CreatedAt: r.now().UTC(),
	}
	ch := NewChannel()

	r.mu.Lock()
	r.jobs[job.ID] = &entry{job: job, ch: ch}
	r.mu.Unlock()

	return job, ch
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[id]
	if !ok {
		return model.Job{}, eris.Wrapf(ErrNotFound, "jobs: get %s", id)
	}
	job := e.job
	job.Leads = slices.Clone(e.job.Leads)
	return job, nil
}

// Channel returns the job's event channel.
func (r *Registry) Channel(id string) (*Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "jobs: channel %s", id)
	}
	return e.ch, nil
}

// Update replaces the stored job with job, which must carry a terminal
// status. The stored job must still be running.
func (r *Registry) Update(id string, job model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "jobs: update %s", id)
	}
	if e.job.Status.Terminal() {
		return eris.Wrapf(ErrAlreadyTerminal, "jobs: update %s (status %s)", id, e.job.Status)
	}
	if !e.job.Status.CanTransition(job.Status) {
		return eris.Wrapf(ErrInvalidTransition, "jobs: update %s %s -> %s", id, e.job.Status, job.Status)
	}

	job.ID = id
	job.CreatedAt = e.job.CreatedAt
	if job.SourceURL == "" {
		job.SourceURL = e.job.SourceURL
	}
	if job.FinishedAt.IsZero() {
		job.FinishedAt = r.now().UTC()
	}
	e.job = job
	return nil
}

// List returns snapshots of every job, newest first, without lead records.
func (r *Registry) List() []model.Job {
	r.mu.RLock()
	out := make([]model.Job, 0, len(r.jobs))
	for _, e := range r.jobs {
		j := e.job
		j.Leads = nil
		out = append(out, j)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
