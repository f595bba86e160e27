package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

type fakeProfiles struct {
	texts  map[string]string
	err    error
	closed bool
}

func (f *fakeProfiles) Open(context.Context, *zap.Logger) (ProfileSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f, nil
}

func (f *fakeProfiles) ProfileText(_ context.Context, url string) (string, error) {
	text, ok := f.texts[url]
	if !ok {
		return "", ErrAuthWall
	}
	return text, nil
}

func (f *fakeProfiles) Close() { f.closed = true }

func TestHitScraper_Collect(t *testing.T) {
	profiles := &fakeProfiles{texts: map[string]string{"https://linkedin.com/in/a": "profile A"}}
	site := &fakeScraper{name: "http", text: "homepage"}

	a := model.NewLead("A", "One", "Acme", "CEO", "Paris")
	a[model.FieldLinkedInURL] = "https://linkedin.com/in/a"
	a[model.FieldWebsite] = "https://acme.fr"
	b := model.NewLead("B", "Two", "Beta", "CTO", "Lyon")
	b[model.FieldLinkedInURL] = "https://linkedin.com/in/blocked"
	b[model.FieldWebsite] = nil

	err := NewHitScraper(profiles, site, 0).Collect(context.Background(), pipeline.Run{Log: zap.NewNop()}, []model.Lead{a, b})
	require.NoError(t, err)

	assert.Equal(t, "profile A", a[model.FieldLinkedInText])
	assert.Equal(t, "homepage", a[model.FieldWebsiteText])
	assert.Equal(t, "", b[model.FieldLinkedInText])
	assert.Equal(t, "", b[model.FieldWebsiteText])
	assert.Equal(t, 1, site.calls)
	assert.True(t, profiles.closed)
}

func TestHitScraper_SessionUnavailable(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("no chrome")}
	site := &fakeScraper{name: "http", err: errors.New("timeout")}

	a := model.NewLead("A", "One", "Acme", "CEO", "Paris")
	a[model.FieldLinkedInURL] = "https://linkedin.com/in/a"
	a[model.FieldWebsite] = "https://acme.fr"

	err := NewHitScraper(profiles, site, 0).Collect(context.Background(), pipeline.Run{Log: zap.NewNop()}, []model.Lead{a})
	require.NoError(t, err)
	assert.Equal(t, "", a[model.FieldLinkedInText])
	assert.Equal(t, "", a[model.FieldWebsiteText])
}

func TestHitScraper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewHitScraper(nil, nil, 0).Collect(ctx, pipeline.Run{Log: zap.NewNop()}, []model.Lead{model.NewLead("A", "", "", "", "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHitScraper_ReportsProgress(t *testing.T) {
	rep := &recordReporter{}
	leads := []model.Lead{
		model.NewLead("A", "One", "", "", ""),
		model.NewLead("B", "Two", "", "", ""),
	}

	err := NewHitScraper(nil, nil, 0).Collect(context.Background(), pipeline.Run{Log: zap.NewNop(), Progress: rep}, leads)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.5}, rep.fractions)
	for _, st := range rep.stages {
		assert.Equal(t, progress.StageDeepen, st)
	}
}
