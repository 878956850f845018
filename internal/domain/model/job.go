// Package model defines the core data types and structures used throughout the opsdeck agent engine.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the type of recurring agent job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// RunStatus represents the status of a job run.
type RunStatus string

const (
	// JobTypeMorningBriefing aggregates context and asks the generation service for a daily plan.
	JobTypeMorningBriefing JobType = "morning_briefing"
	// JobTypeDeadlineMonitor runs deterministic deadline threshold checks.
	JobTypeDeadlineMonitor JobType = "deadline_monitor"
	// JobTypeRelationshipCheck finds stale contacts and proposes follow-ups.
	JobTypeRelationshipCheck JobType = "relationship_check"
	// JobTypeWeeklyReview aggregates a week-scoped context for a generated review.
	JobTypeWeeklyReview JobType = "weekly_review"

	// RunStatusRunning indicates a run is in progress.
	RunStatusRunning RunStatus = "running"
	// RunStatusSuccess indicates a run completed successfully. Terminal.
	RunStatusSuccess RunStatus = "success"
	// RunStatusFailed indicates a run failed. Terminal.
	RunStatusFailed RunStatus = "failed"
)

// Schedule keywords understood by the scheduler. Any other string is treated
// as a raw cron-like schedule and falls back to tomorrow at the current time.
const (
	ScheduleHourly = "hourly"
	ScheduleDaily  = "daily"
	ScheduleWeekly = "weekly"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeMorningBriefing || t == JobTypeDeadlineMonitor ||
		t == JobTypeRelationshipCheck || t == JobTypeWeeklyReview
}

// Valid returns true if the RunStatus is valid.
func (s RunStatus) Valid() bool {
	return s == RunStatusRunning || s == RunStatusSuccess || s == RunStatusFailed
}

// Terminal returns true if the RunStatus is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// Job represents a recurring tenant-scoped agent directive.
// next_run_at is nullable; null means the job is due immediately.
type Job struct {
	ID            string     `json:"id"                        db:"id"`
	TenantID      string     `json:"tenant_id"                 db:"tenant_id"`
	Type          JobType    `json:"job_type"                  db:"job_type"`
	Schedule      string     `json:"schedule"                  db:"schedule"`
	Active        bool       `json:"active"                    db:"active"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"     db:"last_run_at"`
	LastRunStatus *RunStatus `json:"last_run_status,omitempty" db:"last_run_status"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"     db:"next_run_at"`
	CreatedAt     time.Time  `json:"created_at"                db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"                db:"updated_at"`
}

// JobRun represents one execution attempt of a Job. Immutable once terminal.
type JobRun struct {
	ID          string          `json:"id"                     db:"id"`
	JobID       string          `json:"job_id"                 db:"job_id"`
	TenantID    string          `json:"tenant_id"              db:"tenant_id"`
	JobType     JobType         `json:"job_type"               db:"job_type"`
	Status      RunStatus       `json:"status"                 db:"status"`
	Actions     json.RawMessage `json:"actions"                db:"actions"`
	Summary     string          `json:"summary"                db:"summary"`
	Error       *string         `json:"error,omitempty"        db:"error"`
	StartedAt   time.Time       `json:"started_at"             db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// CreateJobRequest represents a request to register a recurring agent job.
type CreateJobRequest struct {
	TenantID string  `json:"tenant_id"`
	Type     JobType `json:"job_type"`
	Schedule string  `json:"schedule"`
	Active   bool    `json:"active"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid job type: %q", r.Type)
	}
	if strings.TrimSpace(r.Schedule) == "" {
		return errors.New("schedule is required")
	}
	return nil
}

// JobRunSummary is the per-job entry in a scheduler invocation response.
type JobRunSummary struct {
	JobID           string    `json:"job_id"`
	JobType         JobType   `json:"job_type"`
	Status          RunStatus `json:"status"`
	ActionsExecuted int       `json:"actions_executed"`
	ActionsFailed   int       `json:"actions_failed"`
	Summary         string    `json:"summary,omitempty"`
	Error           string    `json:"error,omitempty"`
}
