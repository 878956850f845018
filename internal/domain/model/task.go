package model

import (
	"encoding/json"
	"errors"
	"time"
)

// TaskPriority represents the priority of a task or notification.
type TaskPriority string

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// PriorityLow is the lowest priority.
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh is the highest priority.
	PriorityHigh TaskPriority = "high"

	// TaskStatusOpen indicates a task that still needs doing.
	TaskStatusOpen TaskStatus = "open"
	// TaskStatusCompleted indicates a finished task.
	TaskStatusCompleted TaskStatus = "completed"
)

// SourceAgent marks records created by the agent engine so the UI layer can
// distinguish them from user-created ones.
const SourceAgent = "agent"

// Valid returns true if the TaskPriority is valid.
func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Valid returns true if the TaskStatus is valid.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusOpen || s == TaskStatusCompleted
}

// Task represents a task row owned by a tenant.
type Task struct {
	ID          string          `json:"id"                     db:"id"`
	TenantID    string          `json:"tenant_id"              db:"tenant_id"`
	Title       string          `json:"title"                  db:"title"`
	Status      TaskStatus      `json:"status"                 db:"status"`
	Priority    TaskPriority    `json:"priority"               db:"priority"`
	DueDate     *time.Time      `json:"due_date,omitempty"     db:"due_date"`
	Tags        []string        `json:"tags"                   db:"tags"`
	Source      string          `json:"source"                 db:"source"`
	Metadata    json.RawMessage `json:"metadata,omitempty"     db:"metadata"`
	ProposalID  *string         `json:"proposal_id,omitempty"  db:"proposal_id"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"             db:"updated_at"`
}

// CreateTaskRequest represents a request to create a new task.
type CreateTaskRequest struct {
	TenantID   string          `json:"tenant_id"`
	Title      string          `json:"title"`
	Priority   TaskPriority    `json:"priority,omitempty"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Source     string          `json:"source,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	ProposalID *string         `json:"proposal_id,omitempty"`
}

// Normalize fills defaults on a CreateTaskRequest.
func (r *CreateTaskRequest) Normalize() {
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Source == "" {
		r.Source = SourceAgent
	}
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if r.Title == "" {
		return errors.New("title is required")
	}
	if !r.Priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}
