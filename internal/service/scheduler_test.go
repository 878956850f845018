package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

func newTestScheduler(t *testing.T, now time.Time) (*SchedulerService, *mockJobStore, *mockExecutor) {
	t.Helper()
	jobs := &mockJobStore{}
	executor := &mockExecutor{}
	svc := NewSchedulerService(SchedulerServiceOptions{
		Jobs:         jobs,
		Executor:     executor,
		Config:       &config.SchedulerConfig{BatchSize: 10},
		TimeProvider: data.NewFixedTimeProvider(now),
	})
	return svc, jobs, executor
}

func TestSchedulerRunExecutesDueJobsInOrder(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	due := []model.Job{
		{ID: "job-1", TenantID: "tenant-a", Type: model.JobTypeMorningBriefing, Schedule: model.ScheduleDaily},
		{ID: "job-2", TenantID: "tenant-b", Type: model.JobTypeDeadlineMonitor, Schedule: model.ScheduleHourly},
	}
	jobs.On("FindDue", mock.Anything, now, 10).Return(due, nil)

	executor.On("Execute", mock.Anything, due[0]).
		Return(model.JobRunSummary{JobID: "job-1", JobType: due[0].Type, Status: model.RunStatusSuccess, ActionsExecuted: 2}, nil)
	executor.On("Execute", mock.Anything, due[1]).
		Return(model.JobRunSummary{JobID: "job-2", JobType: due[1].Type, Status: model.RunStatusSuccess}, nil)

	jobs.On("RecordRun", mock.Anything, data.RecordRunParams{
		JobID:     "job-1",
		RanAt:     now,
		Status:    model.RunStatusSuccess,
		NextRunAt: time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC),
	}).Return(nil)
	jobs.On("RecordRun", mock.Anything, data.RecordRunParams{
		JobID:     "job-2",
		RanAt:     now,
		Status:    model.RunStatusSuccess,
		NextRunAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}).Return(nil)

	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.JobsRun)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "job-1", result.Results[0].JobID)
	assert.Equal(t, "job-2", result.Results[1].JobID)
	jobs.AssertExpectations(t)
	executor.AssertExpectations(t)
}

func TestSchedulerRunFindDueFailureAborts(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	jobs.On("FindDue", mock.Anything, now, 10).Return(nil, errors.New("connection refused"))

	result, err := svc.Run(context.Background(), now)
	require.Error(t, err)
	assert.Nil(t, result)
	executor.AssertNotCalled(t, "Execute")
}

func TestSchedulerRunFailedJobStillAdvances(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	due := []model.Job{
		{ID: "job-1", TenantID: "tenant-a", Type: model.JobTypeMorningBriefing, Schedule: model.ScheduleDaily},
		{ID: "job-2", TenantID: "tenant-a", Type: model.JobTypeRelationshipCheck, Schedule: model.ScheduleWeekly},
	}
	jobs.On("FindDue", mock.Anything, now, 10).Return(due, nil)

	executor.On("Execute", mock.Anything, due[0]).
		Return(model.JobRunSummary{JobID: "job-1", Status: model.RunStatusFailed, Error: "generation service down"}, nil)
	executor.On("Execute", mock.Anything, due[1]).
		Return(model.JobRunSummary{JobID: "job-2", Status: model.RunStatusSuccess}, nil)

	// Failed runs advance next_run_at too; a broken upstream must not wedge
	// the job into running on every pass.
	jobs.On("RecordRun", mock.Anything, mock.MatchedBy(func(p data.RecordRunParams) bool {
		return p.JobID == "job-1" && p.Status == model.RunStatusFailed
	})).Return(nil)
	jobs.On("RecordRun", mock.Anything, mock.MatchedBy(func(p data.RecordRunParams) bool {
		return p.JobID == "job-2" && p.Status == model.RunStatusSuccess
	})).Return(nil)

	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.JobsRun)
	assert.Equal(t, model.RunStatusFailed, result.Results[0].Status)
	assert.Equal(t, model.RunStatusSuccess, result.Results[1].Status)
	jobs.AssertExpectations(t)
}

func TestSchedulerRunRecordRunFailureContinues(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	due := []model.Job{
		{ID: "job-1", TenantID: "tenant-a", Type: model.JobTypeDeadlineMonitor, Schedule: model.ScheduleHourly},
		{ID: "job-2", TenantID: "tenant-a", Type: model.JobTypeDeadlineMonitor, Schedule: model.ScheduleHourly},
	}
	jobs.On("FindDue", mock.Anything, now, 10).Return(due, nil)
	executor.On("Execute", mock.Anything, mock.Anything).
		Return(model.JobRunSummary{Status: model.RunStatusSuccess}, nil).Twice()
	jobs.On("RecordRun", mock.Anything, mock.MatchedBy(func(p data.RecordRunParams) bool {
		return p.JobID == "job-1"
	})).Return(errors.New("write failed"))
	jobs.On("RecordRun", mock.Anything, mock.MatchedBy(func(p data.RecordRunParams) bool {
		return p.JobID == "job-2"
	})).Return(nil)

	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, result.JobsRun)
}

func TestSchedulerRunNoDueJobs(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	jobs.On("FindDue", mock.Anything, now, 10).Return([]model.Job{}, nil)

	result, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, result.JobsRun)
	assert.Empty(t, result.Results)
	executor.AssertNotCalled(t, "Execute")
}

func TestSchedulerRunZeroNowUsesClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, _ := newTestScheduler(t, now)

	jobs.On("FindDue", mock.Anything, now, 10).Return([]model.Job{}, nil)

	result, err := svc.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now, result.RanAt)
	jobs.AssertExpectations(t)
}

func TestSchedulerRunTwiceRecordsIndependentRuns(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	svc, jobs, executor := newTestScheduler(t, now)

	// The same job stays due across both passes, as it would if a caller
	// retried before next_run_at was observed. Each pass opens its own run
	// and records its own outcome.
	job := model.Job{ID: "job-1", TenantID: "tenant-a", Type: model.JobTypeDeadlineMonitor, Schedule: model.ScheduleHourly}
	jobs.On("FindDue", mock.Anything, now, 10).Return([]model.Job{job}, nil).Twice()
	executor.On("Execute", mock.Anything, job).
		Return(model.JobRunSummary{JobID: "job-1", JobType: job.Type, Status: model.RunStatusSuccess, ActionsExecuted: 1}, nil).Twice()
	jobs.On("RecordRun", mock.Anything, data.RecordRunParams{
		JobID:     "job-1",
		RanAt:     now,
		Status:    model.RunStatusSuccess,
		NextRunAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
	}).Return(nil).Twice()

	first, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, first.JobsRun)
	assert.Equal(t, 1, second.JobsRun)
	executor.AssertNumberOfCalls(t, "Execute", 2)
	jobs.AssertExpectations(t)
}
