package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/action"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// DispatcherService executes batches of actions against the persistent store.
// Per-action isolation is the core guarantee: a failure on one action is
// recorded as a failed ActionResult and execution continues with the next.
// Actions within a batch run sequentially so the audit trail stays ordered
// and later actions can see the effects of earlier ones.
type DispatcherService struct {
	tasks         TaskStore
	contacts      ContactStore
	pipeline      PipelineStore
	notifications NotificationStore
	content       ContentStore
	audit         AuditStore
	cfg           config.AgentConfig
	timeProvider  data.TimeProvider
	logger        *slog.Logger

	handlers map[string]actionHandler
}

// DispatcherServiceOptions holds the dependencies for creating a DispatcherService.
type DispatcherServiceOptions struct {
	Tasks         TaskStore
	Contacts      ContactStore
	Pipeline      PipelineStore
	Notifications NotificationStore
	Content       ContentStore
	Audit         AuditStore
	Config        *config.AgentConfig
	TimeProvider  data.TimeProvider
	Logger        *slog.Logger
}

// actionHandler executes one validated action and returns the persisted record.
type actionHandler func(ctx context.Context, tenantID string, a model.Action) (any, error)

// NewDispatcherService creates a new DispatcherService with the given dependencies.
func NewDispatcherService(opts DispatcherServiceOptions) *DispatcherService {
	if opts.TimeProvider == nil {
		opts.TimeProvider = &data.RealTimeProvider{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := config.AgentConfig{}
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.Sanitize()

	s := &DispatcherService{
		tasks:         opts.Tasks,
		contacts:      opts.Contacts,
		pipeline:      opts.Pipeline,
		notifications: opts.Notifications,
		content:       opts.Content,
		audit:         opts.Audit,
		cfg:           cfg,
		timeProvider:  opts.TimeProvider,
		logger:        opts.Logger,
	}
	s.registerHandlers()
	return s
}

// registerHandlers binds every taxonomy kind to its handler. Adding an action
// kind means one Spec in the taxonomy and one entry here.
func (s *DispatcherService) registerHandlers() {
	s.handlers = map[string]actionHandler{
		action.KindCreateTask:         s.createTask,
		action.KindUpdateTaskPriority: s.updateTaskPriority,
		action.KindRescheduleTask:     s.rescheduleTask,
		action.KindCompleteTask:       s.completeTask,

		action.KindCreateNotification: s.createNotification,
		action.KindCreateFollowUp:     s.createFollowUp,

		action.KindUpdateRFPStatus:    s.updateRFPStatus,
		action.KindFlagRFPOpportunity: s.flagRFPOpportunity,
		action.KindCreateProposalTask: s.createProposalTask,

		action.KindSaveDraft:        s.saveDraft,
		action.KindSuggestTimeBlock: s.suggestTimeBlock,

		action.KindSaveResearchFinding: s.saveResearchFinding,
		action.KindLogInteraction:      s.logInteraction,
		action.KindUpdateContactHealth: s.updateContactHealth,
	}
}

// DispatchRequest groups parameters for Dispatch.
type DispatchRequest struct {
	TenantID    string
	SourceLabel string
	Actions     []model.Action
}

// Dispatch executes each action in order and returns one ActionResult per
// action, in the same order. Validation failures and storage failures are
// both recorded as failed results; the batch never aborts.
func (s *DispatcherService) Dispatch(ctx context.Context, req DispatchRequest) []model.ActionResult {
	results := make([]model.ActionResult, 0, len(req.Actions))
	for _, a := range req.Actions {
		result := s.dispatchOne(ctx, req, a)
		s.writeAudit(ctx, req, a, result)
		results = append(results, result)
	}
	return results
}

func (s *DispatcherService) dispatchOne(ctx context.Context, req DispatchRequest, a model.Action) model.ActionResult {
	if err := action.Validate(a); err != nil {
		return model.ActionResult{Kind: a.Type, Error: err.Error()}
	}

	handler, ok := s.handlers[a.Type]
	if !ok {
		// Kind is in the taxonomy but has no handler; a registration bug.
		return model.ActionResult{Kind: a.Type, Error: fmt.Sprintf("no handler registered for action kind %q", a.Type)}
	}

	record, err := handler(ctx, req.TenantID, a)
	if err != nil {
		s.logger.WarnContext(ctx, "action dispatch failed",
			"tenant_id", req.TenantID,
			"kind", a.Type,
			"error", err,
		)
		return model.ActionResult{Kind: a.Type, Error: err.Error()}
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		encoded = nil
	}
	return model.ActionResult{Success: true, Kind: a.Type, Record: encoded}
}

// writeAudit appends an audit row for every action outcome. Audit failures
// are logged but do not fail the action; the action's own effect already
// stands or fell on its own.
func (s *DispatcherService) writeAudit(ctx context.Context, req DispatchRequest, a model.Action, result model.ActionResult) {
	entry := model.AuditEntry{
		TenantID:    req.TenantID,
		SourceLabel: req.SourceLabel,
		ActionKind:  a.Type,
		Reason:      a.Reason,
		Success:     result.Success,
	}
	if result.Error != "" {
		msg := result.Error
		entry.Error = &msg
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"tenant_id", req.TenantID,
			"kind", a.Type,
			"error", err,
		)
	}
}

func (s *DispatcherService) createTask(ctx context.Context, tenantID string, a model.Action) (any, error) {
	req := &model.CreateTaskRequest{
		TenantID: tenantID,
		Title:    action.String(a.Params, "title"),
		Priority: model.TaskPriority(action.String(a.Params, "priority")),
		Tags:     action.Strings(a.Params, "tags"),
		Metadata: reasonMetadata(a.Reason),
	}
	if _, ok := a.Params["due_date"]; ok {
		due, err := action.Time(a.Params, "due_date")
		if err != nil {
			return nil, err
		}
		req.DueDate = &due
	}
	return s.tasks.Create(ctx, req)
}

func (s *DispatcherService) updateTaskPriority(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.tasks.UpdatePriority(ctx, data.UpdatePriorityParams{
		TenantID: tenantID,
		TaskID:   action.String(a.Params, "task_id"),
		Priority: model.TaskPriority(action.String(a.Params, "priority")),
	})
}

func (s *DispatcherService) rescheduleTask(ctx context.Context, tenantID string, a model.Action) (any, error) {
	due, err := action.Time(a.Params, "new_due_date")
	if err != nil {
		return nil, err
	}
	return s.tasks.Reschedule(ctx, data.RescheduleParams{
		TenantID: tenantID,
		TaskID:   action.String(a.Params, "task_id"),
		DueDate:  due,
	})
}

func (s *DispatcherService) completeTask(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.tasks.Complete(ctx, tenantID, action.String(a.Params, "task_id"))
}

func (s *DispatcherService) createNotification(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.notifications.Create(ctx, &model.CreateNotificationRequest{
		TenantID: tenantID,
		Title:    action.String(a.Params, "title"),
		Message:  action.String(a.Params, "message"),
		Priority: model.TaskPriority(action.String(a.Params, "priority")),
		Type:     action.String(a.Params, "type"),
	})
}

// createFollowUp creates a tagged follow-up task. The due date comes from
// follow_up_date when present, otherwise now plus days_from_now (default from
// config).
func (s *DispatcherService) createFollowUp(ctx context.Context, tenantID string, a model.Action) (any, error) {
	due, err := s.followUpDueDate(a)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"reason": a.Reason}
	if c := action.String(a.Params, "context"); c != "" {
		metadata["context"] = c
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal follow-up metadata: %w", err)
	}

	return s.tasks.Create(ctx, &model.CreateTaskRequest{
		TenantID: tenantID,
		Title:    "Follow up: " + action.String(a.Params, "subject"),
		Priority: model.PriorityMedium,
		DueDate:  &due,
		Tags:     []string{"follow-up"},
		Metadata: encoded,
	})
}

func (s *DispatcherService) followUpDueDate(a model.Action) (time.Time, error) {
	if _, ok := a.Params["follow_up_date"]; ok {
		return action.Time(a.Params, "follow_up_date")
	}
	days := s.cfg.FollowUpDefaultDays
	if n, ok := action.Int(a.Params, "days_from_now"); ok && n > 0 {
		days = n
	}
	return s.timeProvider.Now().AddDate(0, 0, days), nil
}

func (s *DispatcherService) updateRFPStatus(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.pipeline.UpdateRFPStatus(ctx, data.UpdateRFPStatusParams{
		TenantID: tenantID,
		RFPID:    action.String(a.Params, "rfp_id"),
		Status:   action.String(a.Params, "status"),
	})
}

// flagRFPOpportunity emits a high-priority notification about an opportunity.
// It deliberately does not mutate the RFP's status; flagging is advisory and
// the status change stays a human decision.
func (s *DispatcherService) flagRFPOpportunity(ctx context.Context, tenantID string, a model.Action) (any, error) {
	title := "RFP opportunity: " + action.String(a.Params, "rfp_title")
	message := fmt.Sprintf("%s (rfp %s)", action.String(a.Params, "reason"), action.String(a.Params, "rfp_id"))
	return s.notifications.Create(ctx, &model.CreateNotificationRequest{
		TenantID: tenantID,
		Title:    title,
		Message:  message,
		Priority: model.PriorityHigh,
		Type:     "opportunity",
	})
}

func (s *DispatcherService) createProposalTask(ctx context.Context, tenantID string, a model.Action) (any, error) {
	due, err := action.Time(a.Params, "due_date")
	if err != nil {
		return nil, err
	}
	proposalID := action.String(a.Params, "proposal_id")
	// Tenant-scoped existence check keeps the task from dangling off a
	// proposal the tenant doesn't own (or that the model hallucinated).
	if _, err := s.pipeline.GetProposal(ctx, tenantID, proposalID); err != nil {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, err)
	}
	return s.tasks.Create(ctx, &model.CreateTaskRequest{
		TenantID:   tenantID,
		Title:      action.String(a.Params, "title"),
		Priority:   model.PriorityMedium,
		DueDate:    &due,
		Tags:       []string{"proposal"},
		Metadata:   reasonMetadata(a.Reason),
		ProposalID: &proposalID,
	})
}

func (s *DispatcherService) saveDraft(ctx context.Context, tenantID string, a model.Action) (any, error) {
	var metadata json.RawMessage
	if raw, ok := a.Params["metadata"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal draft metadata: %w", err)
		}
		metadata = encoded
	}
	return s.content.CreateDraft(ctx, data.CreateDraftParams{
		TenantID: tenantID,
		Type:     action.String(a.Params, "type"),
		Title:    action.String(a.Params, "title"),
		Content:  action.String(a.Params, "content"),
		Metadata: metadata,
	})
}

func (s *DispatcherService) suggestTimeBlock(ctx context.Context, tenantID string, a model.Action) (any, error) {
	suggested, err := action.Time(a.Params, "suggested_date")
	if err != nil {
		return nil, err
	}
	minutes, ok := action.Int(a.Params, "duration_minutes")
	if !ok {
		return nil, fmt.Errorf("parameter duration_minutes is not a number")
	}
	return s.content.CreateTimeBlock(ctx, data.CreateTimeBlockParams{
		TenantID:        tenantID,
		Title:           action.String(a.Params, "title"),
		SuggestedDate:   suggested,
		DurationMinutes: minutes,
		BlockType:       action.String(a.Params, "block_type"),
	})
}

func (s *DispatcherService) saveResearchFinding(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.content.CreateResearchFinding(ctx, data.CreateResearchFindingParams{
		TenantID: tenantID,
		Topic:    action.String(a.Params, "topic"),
		Type:     action.String(a.Params, "type"),
		Title:    action.String(a.Params, "title"),
		Summary:  action.String(a.Params, "summary"),
	})
}

func (s *DispatcherService) logInteraction(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.contacts.LogInteraction(ctx, data.LogInteractionParams{
		TenantID:  tenantID,
		ContactID: action.String(a.Params, "contact_id"),
		Type:      action.String(a.Params, "type"),
		Summary:   action.String(a.Params, "summary"),
	})
}

func (s *DispatcherService) updateContactHealth(ctx context.Context, tenantID string, a model.Action) (any, error) {
	return s.contacts.UpdateHealth(ctx, data.UpdateHealthParams{
		TenantID:  tenantID,
		ContactID: action.String(a.Params, "contact_id"),
		Health:    model.ContactHealth(action.String(a.Params, "health")),
	})
}

func reasonMetadata(reason string) json.RawMessage {
	encoded, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}
