package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/internal/domain/model"
	"github.com/opsdeck/opsdeck/internal/service"
)

type stubScheduler struct {
	result  *service.RunResult
	err     error
	lastNow time.Time
	calls   int
}

func (s *stubScheduler) Run(_ context.Context, now time.Time) (*service.RunResult, error) {
	s.calls++
	s.lastNow = now
	return s.result, s.err
}

type stubDispatcher struct {
	results []model.ActionResult
	lastReq service.DispatchRequest
}

func (s *stubDispatcher) Dispatch(_ context.Context, req service.DispatchRequest) []model.ActionResult {
	s.lastReq = req
	return s.results
}

type stubJobDirectory struct {
	jobs       []model.Job
	err        error
	created    *model.CreateJobRequest
	lastActive *bool
}

func (s *stubJobDirectory) ListByTenant(_ context.Context, _ string, _ int) ([]model.Job, error) {
	return s.jobs, s.err
}

func (s *stubJobDirectory) Create(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = req
	return &model.Job{ID: "job-new", TenantID: req.TenantID, Type: req.Type, Schedule: req.Schedule, Active: req.Active}, nil
}

func (s *stubJobDirectory) SetActive(_ context.Context, _ string, active bool) error {
	if s.err != nil {
		return s.err
	}
	s.lastActive = &active
	return nil
}

type stubRunLister struct {
	runs []model.JobRun
	err  error
}

func (s *stubRunLister) ListByTenant(_ context.Context, _ string, _ int) ([]model.JobRun, error) {
	return s.runs, s.err
}

func TestRunSchedulerHandler(t *testing.T) {
	scheduler := &stubScheduler{result: &service.RunResult{
		JobsRun: 1,
		Results: []model.JobRunSummary{{JobID: "job-1", Status: model.RunStatusSuccess}},
	}}
	handlers := &AgentHandlers{Scheduler: scheduler}

	req := httptest.NewRequest(http.MethodPost, "/api/agent/scheduler/run", nil)
	rec := httptest.NewRecorder()
	handlers.RunScheduler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body service.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.JobsRun)
	assert.True(t, scheduler.lastNow.IsZero(), "no now param leaves the clock to the scheduler")
}

func TestRunSchedulerHandlerPinnedNow(t *testing.T) {
	scheduler := &stubScheduler{result: &service.RunResult{}}
	handlers := &AgentHandlers{Scheduler: scheduler}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/scheduler/run?now=2024-03-01T14:00:00Z", nil)
	rec := httptest.NewRecorder()
	handlers.RunScheduler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), scheduler.lastNow.UTC())
}

func TestRunSchedulerHandlerBadNow(t *testing.T) {
	scheduler := &stubScheduler{result: &service.RunResult{}}
	handlers := &AgentHandlers{Scheduler: scheduler}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/scheduler/run?now=yesterday", nil)
	rec := httptest.NewRecorder()
	handlers.RunScheduler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, scheduler.calls)
}

func TestRunSchedulerHandlerFailure(t *testing.T) {
	scheduler := &stubScheduler{err: errors.New("find due jobs: connection refused")}
	handlers := &AgentHandlers{Scheduler: scheduler}

	req := httptest.NewRequest(http.MethodPost, "/api/agent/scheduler/run", nil)
	rec := httptest.NewRecorder()
	handlers.RunScheduler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "scheduler_failed")
}

func TestSubmitActionsHandler(t *testing.T) {
	dispatcher := &stubDispatcher{results: []model.ActionResult{
		{Success: true, Kind: "create_task"},
		{Success: false, Kind: "bogus_kind", Error: `unknown action kind "bogus_kind"`},
	}}
	handlers := &AgentHandlers{Dispatcher: dispatcher}

	body := `{"tenant_id": "tenant-1", "source_label": "manual", "actions": [
		{"type": "create_task", "params": {"title": "x"}, "reason": "r"},
		{"type": "bogus_kind", "params": {}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent/actions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.SubmitActions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "unknown kinds are failed results, not client errors")
	var resp SubmitActionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Executed)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "tenant-1", dispatcher.lastReq.TenantID)
	assert.Equal(t, "manual", dispatcher.lastReq.SourceLabel)
}

func TestSubmitActionsHandlerMissingTenant(t *testing.T) {
	handlers := &AgentHandlers{Dispatcher: &stubDispatcher{}}

	req := httptest.NewRequest(http.MethodPost, "/api/agent/actions", strings.NewReader(`{"actions": []}`))
	rec := httptest.NewRecorder()
	handlers.SubmitActions(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_tenant")
}

func TestSubmitActionsHandlerInvalidJSON(t *testing.T) {
	handlers := &AgentHandlers{Dispatcher: &stubDispatcher{}}

	req := httptest.NewRequest(http.MethodPost, "/api/agent/actions", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handlers.SubmitActions(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestSubmitActionsHandlerDefaultSourceLabel(t *testing.T) {
	dispatcher := &stubDispatcher{results: []model.ActionResult{}}
	handlers := &AgentHandlers{Dispatcher: dispatcher}

	req := httptest.NewRequest(http.MethodPost, "/api/agent/actions",
		strings.NewReader(`{"tenant_id": "tenant-1", "actions": []}`))
	rec := httptest.NewRecorder()
	handlers.SubmitActions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "api", dispatcher.lastReq.SourceLabel)
}

func TestListJobsHandler(t *testing.T) {
	handlers := &AgentHandlers{Jobs: &stubJobDirectory{jobs: []model.Job{
		{ID: "job-1", TenantID: "tenant-1", Type: model.JobTypeMorningBriefing},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/jobs?tenant_id=tenant-1", nil)
	rec := httptest.NewRecorder()
	handlers.ListJobs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "morning_briefing")
}

func TestListJobsHandlerRequiresTenant(t *testing.T) {
	handlers := &AgentHandlers{Jobs: &stubJobDirectory{}}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/jobs", nil)
	rec := httptest.NewRecorder()
	handlers.ListJobs(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobHandler(t *testing.T) {
	jobs := &stubJobDirectory{}
	handlers := &AgentHandlers{Jobs: jobs}

	body := `{"tenant_id": "tenant-1", "job_type": "morning_briefing", "schedule": "daily", "active": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.CreateJob(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, jobs.created)
	assert.Equal(t, model.JobTypeMorningBriefing, jobs.created.Type)
	assert.Equal(t, "daily", jobs.created.Schedule)
}

func TestCreateJobHandlerRejectsInvalidType(t *testing.T) {
	jobs := &stubJobDirectory{}
	handlers := &AgentHandlers{Jobs: jobs}

	body := `{"tenant_id": "tenant-1", "job_type": "evening_briefing", "schedule": "daily"}`
	req := httptest.NewRequest(http.MethodPost, "/api/agent/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlers.CreateJob(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, jobs.created)
}

func TestSetJobActiveHandler(t *testing.T) {
	jobs := &stubJobDirectory{}
	handlers := &AgentHandlers{Jobs: jobs}

	req := httptest.NewRequest(http.MethodPatch, "/api/agent/jobs/job-1/active", strings.NewReader(`{"active": false}`))
	req.SetPathValue("id", "job-1")
	rec := httptest.NewRecorder()
	handlers.SetJobActive(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, jobs.lastActive)
	assert.False(t, *jobs.lastActive)
}

func TestListRunsHandler(t *testing.T) {
	handlers := &AgentHandlers{Runs: &stubRunLister{runs: []model.JobRun{
		{ID: "run-1", JobID: "job-1", Status: model.RunStatusSuccess},
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/runs?tenant_id=tenant-1&limit=5", nil)
	rec := httptest.NewRecorder()
	handlers.ListRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")
}

func TestListRunsHandlerStoreFailure(t *testing.T) {
	handlers := &AgentHandlers{Runs: &stubRunLister{err: errors.New("boom")}}

	req := httptest.NewRequest(http.MethodGet, "/api/agent/runs?tenant_id=tenant-1", nil)
	rec := httptest.NewRecorder()
	handlers.ListRuns(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&bad=x&neg=-2", nil)
	assert.Equal(t, 7, parseIntQuery(req, "limit", 50))
	assert.Equal(t, 50, parseIntQuery(req, "bad", 50))
	assert.Equal(t, 50, parseIntQuery(req, "neg", 50))
	assert.Equal(t, 50, parseIntQuery(req, "missing", 50))
}
