package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/db"
	"github.com/jonathan/career-agent/internal/ingestion"
	"github.com/jonathan/career-agent/internal/pipeline"
	"github.com/jonathan/career-agent/internal/report"
	"github.com/jonathan/career-agent/internal/types"
)

// RunRequest represents the request body for POST /runs and POST /runs/stream
type RunRequest struct {
	ResumeText string `json:"resume_text" validate:"required"`
	TargetRole string `json:"target_role,omitempty" validate:"max=200"`
}

// RunDetail is the response for GET /runs/{id}
type RunDetail struct {
	Run      db.Run       `json:"run"`
	Attempts []db.Attempt `json:"attempts"`
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// decodeRunRequest reads and validates a run request body.
func (s *Server) decodeRunRequest(w http.ResponseWriter, r *http.Request) (*RunRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, ingestion.MaxResumeBytes+4096)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	if err := s.validate.Struct(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, &ErrValidation{Field: fieldErrs[0].Field(), Message: "failed on " + fieldErrs[0].Tag()}
		}
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return &req, nil
}

// handleCreateRun plans synchronously and returns the report.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	rep, err := s.planner.Plan(r.Context(), req.ResumeText, pipeline.ForRole(req.TargetRole))
	if err != nil {
		s.fail(w, err)
		return
	}

	if wantsMarkdown(r) {
		s.markdownResponse(w, rep)
		return
	}
	s.jsonResponse(w, http.StatusOK, rep)
}

// handleRunStream plans and streams progress events, then the report.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	stop := stream.keepAlive(s.keepAlive)
	defer stop()

	observe := pipeline.Observe(func(e pipeline.ProgressEvent) {
		if err := stream.send(EventProgress, e); err != nil {
			s.log.Debug("client stopped reading progress", zap.Error(err))
		}
	})
	rep, err := s.planner.Plan(r.Context(), req.ResumeText, pipeline.ForRole(req.TargetRole), observe)
	if err != nil {
		stream.fail(err.Error())
		return
	}

	if err := stream.send(EventReport, rep); err != nil {
		s.log.Debug("client stopped reading report", zap.Error(err))
		return
	}
	stream.complete(rep.Metadata.RunID, string(rep.Metadata.Status))
}

// handleListRuns lists archived runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.fail(w, ErrArchiveDisabled)
		return
	}

	filters := db.RunFilters{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			s.fail(w, &ErrValidation{Field: "limit", Message: "must be an integer between 1 and 500"})
			return
		}
		filters.Limit = limit
	}

	runs, err := s.archive.ListRuns(r.Context(), filters)
	if err != nil {
		s.fail(w, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns a run and its stage attempts
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.archive.GetRun(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if run == nil {
		s.fail(w, &ErrRunNotFound{RunID: runID})
		return
	}
	attempts, err := s.archive.ListAttempts(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if attempts == nil {
		attempts = []db.Attempt{}
	}
	s.jsonResponse(w, http.StatusOK, RunDetail{Run: *run, Attempts: attempts})
}

// handleGetReport returns the archived report as JSON, or Markdown when wantsMarkdown.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}

	rep, err := s.archive.GetReport(r.Context(), runID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if rep == nil {
		s.fail(w, &ErrRunNotFound{RunID: runID})
		return
	}

	if wantsMarkdown(r) {
		s.markdownResponse(w, rep)
		return
	}
	s.jsonResponse(w, http.StatusOK, rep)
}

// runID parses the {id} path value; it writes the error response itself.
func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.archive == nil {
		s.fail(w, ErrArchiveDisabled)
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.fail(w, &ErrValidation{Field: "id", Message: "invalid run ID format"})
		return uuid.Nil, false
	}
	return runID, true
}

// wantsMarkdown reports whether the client asked for Markdown, by ?format=markdown or an
// Accept header listing text/markdown.
func wantsMarkdown(r *http.Request) bool {
	if r.URL.Query().Get("format") == "markdown" {
		return true
	}
	for _, accept := range r.Header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err == nil && mediaType == "text/markdown" {
				return true
			}
		}
	}
	return false
}

func (s *Server) markdownResponse(w http.ResponseWriter, rep *types.Report) {
	md, err := report.RenderMarkdown(rep)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}
