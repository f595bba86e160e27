package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// leadsFunc lets a stage mock compute its return value from its input.
type leadsFunc func([]model.Lead) []model.Lead

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, run Run, sourceURL string, maxLeads int) ([]model.Lead, error) {
	args := m.Called(ctx, run, sourceURL, maxLeads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

// --- Enricher Mock ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, run Run, leads []model.Lead) ([]model.Lead, error) {
	args := m.Called(ctx, run, leads)
	if fn, ok := args.Get(0).(leadsFunc); ok {
		return fn(leads), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

// --- Scorer Mock ---

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, run Run, leads []model.Lead) ([]model.Lead, error) {
	args := m.Called(ctx, run, leads)
	if fn, ok := args.Get(0).(leadsFunc); ok {
		return fn(leads), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

// --- Deepener Mock ---

type mockDeepener struct {
	mock.Mock
}

func (m *mockDeepener) Deepen(ctx context.Context, run Run, hits []model.Lead) ([]model.Lead, error) {
	args := m.Called(ctx, run, hits)
	if fn, ok := args.Get(0).(leadsFunc); ok {
		return fn(hits), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

// --- Exporter Mock ---

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Export(ctx context.Context, run Run, leads []model.Lead) (Artifact, error) {
	args := m.Called(ctx, run, leads)
	return args.Get(0).(Artifact), args.Error(1)
}
