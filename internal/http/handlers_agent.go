// Package httpx provides HTTP handlers and utilities for the opsdeck agent engine API.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain/model"
	"github.com/opsdeck/opsdeck/internal/service"
)

// SchedulerRunner is the scheduler surface the HTTP layer consumes.
type SchedulerRunner interface {
	Run(ctx context.Context, now time.Time) (*service.RunResult, error)
}

// ActionDispatcher is the dispatch surface the HTTP layer consumes.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, req service.DispatchRequest) []model.ActionResult
}

// JobDirectory is the agent-job registry surface the HTTP layer consumes.
type JobDirectory interface {
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.Job, error)
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// RunLister lists a tenant's job run history.
type RunLister interface {
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.JobRun, error)
}

// AgentHandlers provides HTTP handlers for the agent engine API.
type AgentHandlers struct {
	Scheduler  SchedulerRunner
	Dispatcher ActionDispatcher
	Jobs       JobDirectory
	Runs       RunLister
	Logger     *slog.Logger
}

// RunScheduler handles HTTP requests to trigger one scheduler pass. An
// optional "now" query parameter (RFC 3339) pins the pass to a point in time
// for manual or test invocations.
func (h *AgentHandlers) RunScheduler(w http.ResponseWriter, r *http.Request) {
	var now time.Time
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_now", Err: err})
			return
		}
		now = parsed
	}

	result, err := h.Scheduler.Run(r.Context(), now)
	if err != nil {
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "scheduler pass failed", "error", err)
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "scheduler_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// SubmitActionsRequest is the body of POST /api/agent/actions.
type SubmitActionsRequest struct {
	TenantID    string         `json:"tenant_id"`
	SourceLabel string         `json:"source_label"`
	Actions     []model.Action `json:"actions"`
}

// SubmitActionsResponse is the body of a successful action submission.
type SubmitActionsResponse struct {
	Results  []model.ActionResult `json:"results"`
	Executed int                  `json:"executed"`
	Failed   int                  `json:"failed"`
}

// SubmitActions handles HTTP requests to dispatch a batch of actions
// directly. Invalid or unknown actions come back as failed results in a 200
// response; only a malformed request is a client error.
func (h *AgentHandlers) SubmitActions(w http.ResponseWriter, r *http.Request) {
	var req SubmitActionsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_tenant",
			Err:     errors.New("tenant_id is required"),
		})
		return
	}
	if req.SourceLabel == "" {
		req.SourceLabel = "api"
	}

	results := h.Dispatcher.Dispatch(r.Context(), service.DispatchRequest{
		TenantID:    req.TenantID,
		SourceLabel: req.SourceLabel,
		Actions:     req.Actions,
	})
	executed, failed := model.CountResults(results)

	WriteJSON(w, http.StatusOK, SubmitActionsResponse{
		Results:  results,
		Executed: executed,
		Failed:   failed,
	})
}

const defaultListLimit = 50

// ListJobs handles HTTP requests for a tenant's registered agent jobs.
func (h *AgentHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenantQuery(w, r)
	if !ok {
		return
	}
	jobs, err := h.Jobs.ListByTenant(r.Context(), tenantID, parseIntQuery(r, "limit", defaultListLimit))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// ListRuns handles HTTP requests for a tenant's job run history.
func (h *AgentHandlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenantQuery(w, r)
	if !ok {
		return
	}
	runs, err := h.Runs.ListByTenant(r.Context(), tenantID, parseIntQuery(r, "limit", defaultListLimit))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// CreateJob handles HTTP requests to register a recurring agent job.
func (h *AgentHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
		return
	}

	job, err := h.Jobs.Create(r.Context(), &req)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "create_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// SetJobActiveRequest is the body of PATCH /api/agent/jobs/{id}/active.
type SetJobActiveRequest struct {
	Active bool `json:"active"`
}

// SetJobActive handles HTTP requests to pause or resume a job.
func (h *AgentHandlers) SetJobActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("job id is required"),
		})
		return
	}

	var req SetJobActiveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Jobs.SetActive(r.Context(), id, req.Active); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "update_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

func requireTenantQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_tenant",
			Err:     errors.New("tenant_id query parameter is required"),
		})
		return "", false
	}
	return tenantID, true
}

func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
