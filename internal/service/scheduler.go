package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/model"
	"github.com/opsdeck/opsdeck/internal/domain/schedule"
)

// Executor is the job-execution surface the scheduler consumes.
type Executor interface {
	Execute(ctx context.Context, job model.Job) (model.JobRunSummary, error)
}

// SchedulerService drives one scheduler pass: find due jobs, execute them
// sequentially, and advance each job's next_run_at. Sequential execution is
// deliberate; one pass is cheap and ordering keeps the audit trail readable.
type SchedulerService struct {
	jobs         JobStore
	executor     Executor
	cfg          config.SchedulerConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
type SchedulerServiceOptions struct {
	Jobs         JobStore
	Executor     Executor
	Config       *config.SchedulerConfig
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// NewSchedulerService creates a new SchedulerService with the given dependencies.
func NewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := config.SchedulerConfig{}
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.Sanitize()
	return &SchedulerService{
		jobs:         opts.Jobs,
		executor:     opts.Executor,
		cfg:          cfg,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger,
	}
}

// RunResult is the outcome of one scheduler pass.
type RunResult struct {
	JobsRun int                   `json:"jobs_run"`
	Results []model.JobRunSummary `json:"results"`
	RanAt   time.Time             `json:"ran_at"`
}

// Run executes one scheduler pass as of now. A due-query failure aborts the
// pass with zero jobs run; per-job failures are recorded in the result and
// the pass continues with the next job.
func (s *SchedulerService) Run(ctx context.Context, now time.Time) (*RunResult, error) {
	if now.IsZero() {
		now = s.timeProvider.Now()
	}

	due, err := s.jobs.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find due jobs: %w", err)
	}

	result := &RunResult{RanAt: now, Results: make([]model.JobRunSummary, 0, len(due))}
	for _, job := range due {
		summary, err := s.executor.Execute(ctx, job)
		if err != nil {
			s.logger.ErrorContext(ctx, "job execution failed before a run was opened",
				"job_id", job.ID,
				"job_type", job.Type,
				"error", err,
			)
		}
		result.Results = append(result.Results, summary)
		result.JobsRun++

		next := schedule.NextRun(job.Schedule, now)
		if err := s.jobs.RecordRun(ctx, data.RecordRunParams{
			JobID:     job.ID,
			RanAt:     now,
			Status:    summary.Status,
			NextRunAt: next,
		}); err != nil {
			// The job stays due and will be retried next pass; at-least-once
			// is the accepted failure mode here.
			s.logger.ErrorContext(ctx, "record run failed",
				"job_id", job.ID,
				"error", err,
			)
		}

		s.logger.InfoContext(ctx, "job executed",
			"job_id", job.ID,
			"job_type", job.Type,
			"tenant_id", job.TenantID,
			"status", summary.Status,
			"actions_executed", summary.ActionsExecuted,
			"actions_failed", summary.ActionsFailed,
			"next_run_at", next,
		)
	}
	return result, nil
}
