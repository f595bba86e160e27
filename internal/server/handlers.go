package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/stream"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	URL        string `json:"url" validate:"required"`
	MaxLeads   *int   `json:"max_leads" validate:"omitempty,gte=0"`
	SkipDeepen *bool  `json:"skip_deepen"`
	// SkipGPT is the legacy name of SkipDeepen.
	SkipGPT *bool `json:"skip_gpt"`
}

// RunResponse is returned by POST /api/run.
type RunResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	run := pipeline.RunRequest{URL: req.URL, MaxLeads: s.opts.MaxLeads}
	if req.MaxLeads != nil {
		run.MaxLeads = *req.MaxLeads
	}
	switch {
	case req.SkipDeepen != nil:
		run.SkipDeepen = *req.SkipDeepen
	case req.SkipGPT != nil:
		run.SkipDeepen = *req.SkipGPT
	}

	jobID, err := s.runner.Start(s.ctx, run)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, RunResponse{JobID: jobID})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Field() == "MaxLeads" {
			field = "max_leads"
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	sub, err := s.gateway.Subscribe(jobID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	defer sub.Close()

	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)

	for msg := range sub.Messages(r.Context()) {
		if err := sse.WriteMessage(msg); err != nil {
			zap.L().Debug("server: stream write", zap.String("job_id", jobID), zap.Error(err))
			return
		}
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	job, err := s.registry.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, statusFor(err), "job not found")
		return
	}
	if job.Leads == nil {
		job.Leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.registry.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, statusFor(err), "job not found")
		return
	}
	if job.Status != model.JobStatusDone {
		writeError(w, http.StatusConflict, "job not finished")
		return
	}

	path, contentType := job.CSVPath, "text/csv; charset=utf-8"
	if r.URL.Query().Get("format") == "xlsx" {
		path, contentType = job.XLSXPath, xlsxContentType
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Health())
}
