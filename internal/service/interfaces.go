// Package service provides the business logic of the opsdeck agent engine:
// action dispatch, context aggregation, decision proposing, job execution,
// and scheduling.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// TaskStore is the task repository surface the engine consumes.
type TaskStore interface {
	Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error)
	UpdatePriority(ctx context.Context, p data.UpdatePriorityParams) (*model.Task, error)
	Reschedule(ctx context.Context, p data.RescheduleParams) (*model.Task, error)
	Complete(ctx context.Context, tenantID, taskID string) (*model.Task, error)
	ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]model.Task, error)
	ListDueWithin(ctx context.Context, p data.DueWindowParams) ([]model.Task, error)
}

// ContactStore is the contact repository surface the engine consumes.
type ContactStore interface {
	ListStale(ctx context.Context, tenantID string, olderThan time.Time) ([]model.Contact, error)
	UpdateHealth(ctx context.Context, p data.UpdateHealthParams) (*model.Contact, error)
	LogInteraction(ctx context.Context, p data.LogInteractionParams) (*model.Interaction, error)
}

// PipelineStore is the RFP/proposal repository surface the engine consumes.
type PipelineStore interface {
	ListRFPDeadlines(ctx context.Context, p data.DeadlineWindowParams) ([]model.RFP, error)
	UpdateRFPStatus(ctx context.Context, p data.UpdateRFPStatusParams) (*model.RFP, error)
	ListProposalDeadlines(ctx context.Context, p data.DeadlineWindowParams) ([]model.Proposal, error)
	GetProposal(ctx context.Context, tenantID, proposalID string) (*model.Proposal, error)
}

// NotificationStore is the notification repository surface the engine consumes.
type NotificationStore interface {
	Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error)
}

// ContentStore is the draft/time-block/research repository surface the engine consumes.
type ContentStore interface {
	CreateDraft(ctx context.Context, p data.CreateDraftParams) (*model.Draft, error)
	CreateTimeBlock(ctx context.Context, p data.CreateTimeBlockParams) (*model.TimeBlock, error)
	CreateResearchFinding(ctx context.Context, p data.CreateResearchFindingParams) (*model.ResearchFinding, error)
}

// AuditStore appends to the action audit log.
type AuditStore interface {
	Append(ctx context.Context, entry model.AuditEntry) error
}

// JobStore is the agent job repository surface the scheduler consumes.
type JobStore interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
	RecordRun(ctx context.Context, p data.RecordRunParams) error
}

// RunStore is the job run repository surface the executor consumes.
type RunStore interface {
	Start(ctx context.Context, p data.StartRunParams) (*model.JobRun, error)
	Finish(ctx context.Context, p data.FinishRunParams) error
}

// ContextCache caches aggregated context summaries. Implementations must be
// best-effort; errors are logged, never fatal.
type ContextCache interface {
	Get(ctx context.Context, tenantID, scope string) (string, bool, error)
	Set(ctx context.Context, tenantID, scope, summary string) error
}

// actionsJSON marshals dispatched actions for the run audit record.
func actionsJSON(actions []model.Action) json.RawMessage {
	b, err := json.Marshal(actions)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return b
}
