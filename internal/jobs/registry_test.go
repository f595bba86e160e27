package jobs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestRegistry_CreateGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	job, ch := r.Create("https://app.apollo.io/#/people?x=1")
	require.NotNil(t, ch)
	assert.Equal(t, model.JobStatusRunning, job.Status)
	assert.Len(t, job.ID, 36)

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "https://app.apollo.io/#/people?x=1", got.SourceURL)

	gotCh, err := r.Channel(job.ID)
	require.NoError(t, err)
	assert.Same(t, ch, gotCh)
}

func TestRegistry_UniqueIDs(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	seen := make(map[string]bool)
	for range 100 {
		job, _ := r.Create("u")
		assert.False(t, seen[job.ID])
		seen[job.ID] = true
	}
}

func TestRegistry_NotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Channel("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = r.Update("missing", model.Job{Status: model.JobStatusDone})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_SingleTerminalTransition(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	job, _ := r.Create("u")

	err := r.Update(job.ID, model.Job{Status: model.JobStatusRunning})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, r.Update(job.ID, model.Job{
		Status:     model.JobStatusDone,
		TotalLeads: 3,
		HitLeads:   1,
		NoHitLeads: 2,
		CSVPath:    "output/leads.csv",
	}))

	err = r.Update(job.ID, model.Job{Status: model.JobStatusError, Error: "late"})
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, got.Status)
	assert.Equal(t, 3, got.TotalLeads)
	assert.Empty(t, got.Error)
	assert.Equal(t, job.CreatedAt, got.CreatedAt)
	assert.False(t, got.FinishedAt.IsZero())
	assert.Equal(t, "u", got.SourceURL)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	job, _ := r.Create("u")
	require.NoError(t, r.Update(job.ID, model.Job{
		Status: model.JobStatusDone,
		Leads:  []model.Lead{{model.FieldFirstName: "Ana"}},
	}))

	a, err := r.Get(job.ID)
	require.NoError(t, err)
	a.Leads[0] = model.Lead{model.FieldFirstName: "Bob"}

	b, err := r.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", b.Leads[0].Str(model.FieldFirstName))
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	job, _ := r.Create("u")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				got, err := r.Get(job.ID)
				assert.NoError(t, err)
				assert.NotEqual(t, model.JobStatus(""), got.Status)
			}
		}()
	}
	require.NoError(t, r.Update(job.ID, model.Job{Status: model.JobStatusError, Error: "boom"}))
	wg.Wait()

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusError, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestRegistry_List(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first, _ := r.Create("a")
	second, _ := r.Create("b")

	list := r.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}
