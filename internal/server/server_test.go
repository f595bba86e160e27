package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/jobs"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/stream"
)

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) Start(ctx context.Context, req pipeline.RunRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	starter  *mockStarter
	registry *jobs.Registry
	gateway  *stream.Gateway
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		starter:  &mockStarter{},
		registry: jobs.NewRegistry(),
	}
	env.gateway = stream.NewGateway(env.registry, 20*time.Millisecond)
	srv := New(context.Background(), env.starter, env.registry, env.gateway, Options{
		CORSOrigins: []string{"http://localhost:5173"},
		MaxLeads:    500,
		Health: func() any {
			return map[string]any{"status": "ok", "missing_keys": []string{"GOOGLE_API_KEY"}}
		},
	})
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestRun_Accepted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.starter.On("Start", mock.Anything, pipeline.RunRequest{
		URL: "https://app.apollo.io/#/people", MaxLeads: 25, SkipDeepen: true,
	}).Return("job-1", nil)

	rec := env.do(http.MethodPost, "/api/run", `{"url":"https://app.apollo.io/#/people","max_leads":25,"skip_deepen":true}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	env.starter.AssertExpectations(t)
}

func TestRun_DefaultsAndLegacyAlias(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.starter.On("Start", mock.Anything, pipeline.RunRequest{
		URL: "https://app.apollo.io/x", MaxLeads: 500, SkipDeepen: true,
	}).Return("job-2", nil)

	rec := env.do(http.MethodPost, "/api/run", `{"url":"  https://app.apollo.io/x ","skip_gpt":true}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	env.starter.AssertExpectations(t)
}

func TestRun_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty url", `{"url":""}`, "url is required"},
		{"blank url", `{"url":"   "}`, "url is required"},
		{"missing url", `{}`, "url is required"},
		{"negative max", `{"url":"https://x","max_leads":-1}`, "max_leads"},
		{"malformed", `{"url":`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			rec := env.do(http.MethodPost, "/api/run", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			env.starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
		})
	}
}

func TestUnknownJob_NotFoundEverywhere(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/stream/unknown",
		"/api/results/unknown",
		"/api/download/unknown",
	} {
		rec := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestResults(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, _ := env.registry.Create("https://app.apollo.io/x")

	rec := env.do(http.MethodGet, "/api/results/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got["job_id"])
	assert.Equal(t, "running", got["status"])
	assert.Equal(t, []any{}, got["leads"])

	require.NoError(t, env.registry.Update(job.ID, model.Job{
		Status:     model.JobStatusDone,
		TotalLeads: 1,
		HitLeads:   1,
		Leads:      []model.Lead{{model.FieldFirstName: "Ana", model.FieldEmail: nil}},
	}))

	rec = env.do(http.MethodGet, "/api/results/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "done", got["status"])
	assert.EqualValues(t, 1, got["hit_leads"])
	leads := got["leads"].([]any)
	require.Len(t, leads, 1)
	lead := leads[0].(map[string]any)
	assert.Equal(t, "Ana", lead["first_name"])
	assert.Contains(t, lead, "email")
	assert.Nil(t, lead["email"])
}

func TestDownload_RunningIsConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, _ := env.registry.Create("u")
	rec := env.do(http.MethodGet, "/api/download/"+job.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownload_ErrorJobIsConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, _ := env.registry.Create("u")
	require.NoError(t, env.registry.Update(job.ID, model.Job{Status: model.JobStatusError, Error: "boom"}))

	rec := env.do(http.MethodGet, "/api/download/"+job.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownload_MissingArtifact(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, _ := env.registry.Create("u")
	require.NoError(t, env.registry.Update(job.ID, model.Job{
		Status:  model.JobStatusDone,
		CSVPath: filepath.Join(t.TempDir(), "gone.csv"),
	}))

	rec := env.do(http.MethodGet, "/api/download/"+job.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/download/"+job.ID+"?format=xlsx", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_ServesCSV(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "leads_final_x.csv")
	require.NoError(t, os.WriteFile(path, []byte("first_name\nAna\n"), 0o644))

	job, _ := env.registry.Create("u")
	require.NoError(t, env.registry.Update(job.ID, model.Job{Status: model.JobStatusDone, CSVPath: path}))

	rec := env.do(http.MethodGet, "/api/download/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leads_final_x.csv")
	assert.Equal(t, "first_name\nAna\n", rec.Body.String())
}

func TestStream_TerminalOnlyAfterCompletion(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, ch := env.registry.Create("u")
	ch.Push(model.ProgressOf(model.ProgressEvent{Step: 2, StepName: "Scraping listing"}))
	ch.Push(model.DoneEvent(job.ID))
	ch.Close()

	rec := env.do(http.MethodGet, "/api/stream/"+job.ID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: done\ndata: {\"job_id\":\""+job.ID+"\"}\n\n", rec.Body.String())
}

func TestStream_SecondSubscriberConflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	job, _ := env.registry.Create("u")
	sub, err := env.gateway.Subscribe(job.ID)
	require.NoError(t, err)
	defer sub.Close()

	rec := env.do(http.MethodGet, "/api/stream/"+job.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStream_PingThenError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, ch := env.registry.Create("u")
	job := env.registry.List()[0]
	go func() {
		time.Sleep(60 * time.Millisecond)
		ch.Push(model.ErrorEvent("no leads"))
		ch.Close()
	}()

	rec := env.do(http.MethodGet, "/api/stream/"+job.ID, "")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: ping\ndata: {}\n\n"), body)
	assert.True(t, strings.HasSuffix(body, "event: error\ndata: {\"message\":\"no leads\"}\n\n"), body)
}

func TestJobsList(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registry.Create("a")
	rec := env.do(http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","missing_keys":["GOOGLE_API_KEY"]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
