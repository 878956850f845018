package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsdeck/opsdeck/config"
	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/action"
	"github.com/opsdeck/opsdeck/internal/domain/decide"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// Proposer is the decision-proposal surface the executor consumes.
type Proposer interface {
	Propose(ctx context.Context, p ProposeParams) (decide.Decision, error)
}

// Aggregator is the context-aggregation surface the executor consumes.
type Aggregator interface {
	Aggregate(ctx context.Context, p AggregateParams) (string, error)
}

// Dispatcher is the action-execution surface the executor consumes.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) []model.ActionResult
}

// ExecutorService runs one agent job end to end: it opens a run record,
// produces actions per the job type, dispatches them, and closes the run in
// a terminal state. Generated job types (morning_briefing, weekly_review) go
// through the generation service; deadline_monitor and relationship_check are
// fully deterministic and never call it.
type ExecutorService struct {
	runs         RunStore
	tasks        TaskStore
	contacts     ContactStore
	pipeline     PipelineStore
	aggregator   Aggregator
	proposer     Proposer
	dispatcher   Dispatcher
	cfg          config.AgentConfig
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// ExecutorServiceOptions holds the dependencies for creating an ExecutorService.
type ExecutorServiceOptions struct {
	Runs         RunStore
	Tasks        TaskStore
	Contacts     ContactStore
	Pipeline     PipelineStore
	Aggregator   Aggregator
	Proposer     Proposer
	Dispatcher   Dispatcher
	Config       *config.AgentConfig
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// NewExecutorService creates a new ExecutorService with the given dependencies.
func NewExecutorService(opts ExecutorServiceOptions) *ExecutorService {
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
	return &ExecutorService{
		runs:         opts.Runs,
		tasks:        opts.Tasks,
		contacts:     opts.Contacts,
		pipeline:     opts.Pipeline,
		aggregator:   opts.Aggregator,
		proposer:     opts.Proposer,
		dispatcher:   opts.Dispatcher,
		cfg:          cfg,
		timeProvider: opts.TimeProvider,
		logger:       opts.Logger,
	}
}

// jobInstructions frames the generation call per job type.
var jobInstructions = map[model.JobType]string{
	model.JobTypeMorningBriefing: "You are an operations assistant preparing a morning briefing. " +
		"Review the snapshot and propose concrete actions for today. " +
		"Respond with a JSON object: {\"analysis\": string, \"actions\": [{\"type\": string, \"params\": object, \"reason\": string}], \"summary\": string}.",
	model.JobTypeWeeklyReview: "You are an operations assistant writing a weekly review. " +
		"Review the snapshot, including neglected contacts, and propose actions for the coming week. " +
		"Respond with a JSON object: {\"analysis\": string, \"actions\": [{\"type\": string, \"params\": object, \"reason\": string}], \"summary\": string}.",
}

// Execute runs one job attempt and returns its summary. The run record
// always reaches a terminal state: failures after Start are recorded via
// Finish with status failed. Only a Start failure leaves no run row.
func (s *ExecutorService) Execute(ctx context.Context, job model.Job) (model.JobRunSummary, error) {
	now := s.timeProvider.Now()
	run, err := s.runs.Start(ctx, data.StartRunParams{
		JobID:     job.ID,
		TenantID:  job.TenantID,
		JobType:   job.Type,
		StartedAt: now,
	})
	if err != nil {
		return model.JobRunSummary{
			JobID:   job.ID,
			JobType: job.Type,
			Status:  model.RunStatusFailed,
			Error:   fmt.Sprintf("start run: %v", err),
		}, fmt.Errorf("start run for job %s: %w", job.ID, err)
	}

	actions, summary, execErr := s.produceActions(ctx, job)
	if execErr != nil {
		s.finish(ctx, run.ID, data.FinishRunParams{
			RunID:       run.ID,
			Status:      model.RunStatusFailed,
			Actions:     []byte(`[]`),
			Summary:     summary,
			Error:       strPtr(execErr.Error()),
			CompletedAt: s.timeProvider.Now(),
		})
		return model.JobRunSummary{
			JobID:   job.ID,
			JobType: job.Type,
			Status:  model.RunStatusFailed,
			Error:   execErr.Error(),
		}, nil
	}

	results := s.dispatcher.Dispatch(ctx, DispatchRequest{
		TenantID:    job.TenantID,
		SourceLabel: string(job.Type),
		Actions:     actions,
	})
	executed, failed := model.CountResults(results)

	s.finish(ctx, run.ID, data.FinishRunParams{
		RunID:       run.ID,
		Status:      model.RunStatusSuccess,
		Actions:     actionsJSON(actions),
		Summary:     summary,
		CompletedAt: s.timeProvider.Now(),
	})

	return model.JobRunSummary{
		JobID:           job.ID,
		JobType:         job.Type,
		Status:          model.RunStatusSuccess,
		ActionsExecuted: executed,
		ActionsFailed:   failed,
		Summary:         summary,
	}, nil
}

// finish closes a run; a Finish failure is logged, not surfaced, since the
// job's effects already happened.
func (s *ExecutorService) finish(ctx context.Context, runID string, p data.FinishRunParams) {
	if err := s.runs.Finish(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "finish run failed", "run_id", runID, "error", err)
	}
}

func (s *ExecutorService) produceActions(ctx context.Context, job model.Job) ([]model.Action, string, error) {
	switch job.Type {
	case model.JobTypeMorningBriefing, model.JobTypeWeeklyReview:
		return s.generatedActions(ctx, job)
	case model.JobTypeDeadlineMonitor:
		return s.deadlineActions(ctx, job)
	case model.JobTypeRelationshipCheck:
		return s.relationshipActions(ctx, job)
	default:
		return nil, "", fmt.Errorf("unknown job type %q", job.Type)
	}
}

// generatedActions runs the aggregate-propose pipeline for LLM-backed jobs.
func (s *ExecutorService) generatedActions(ctx context.Context, job model.Job) ([]model.Action, string, error) {
	snapshot, err := s.aggregator.Aggregate(ctx, AggregateParams{
		TenantID:        job.TenantID,
		Now:             s.timeProvider.Now(),
		Scope:           string(job.Type),
		IncludeContacts: job.Type == model.JobTypeWeeklyReview,
	})
	if err != nil {
		return nil, "", fmt.Errorf("aggregate context: %w", err)
	}

	d, err := s.proposer.Propose(ctx, ProposeParams{
		Instruction: jobInstructions[job.Type],
		Context:     snapshot,
	})
	if err != nil {
		return nil, "", err
	}
	return d.Actions, d.Summary, nil
}

// deadlineActions runs the deterministic threshold checks: one notification
// per non-empty category (overdue tasks, tasks due tomorrow, near RFP
// deadlines). Does not call the generation service.
func (s *ExecutorService) deadlineActions(ctx context.Context, job model.Job) ([]model.Action, string, error) {
	now := s.timeProvider.Now()
	var actions []model.Action

	overdue, err := s.tasks.ListOverdue(ctx, job.TenantID, now)
	if err != nil {
		return nil, "", fmt.Errorf("list overdue tasks: %w", err)
	}
	if len(overdue) > 0 {
		actions = append(actions, model.Action{
			Type: action.KindCreateNotification,
			Params: map[string]any{
				"title":    fmt.Sprintf("%d overdue task(s)", len(overdue)),
				"message":  taskLines(overdue),
				"priority": string(model.PriorityHigh),
				"type":     "deadline",
			},
			Reason: "tasks past their due date",
		})
	}

	dueTomorrow, err := s.tasks.ListDueWithin(ctx, data.DueWindowParams{
		TenantID: job.TenantID,
		From:     now,
		Until:    now.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, "", fmt.Errorf("list tasks due tomorrow: %w", err)
	}
	if len(dueTomorrow) > 0 {
		actions = append(actions, model.Action{
			Type: action.KindCreateNotification,
			Params: map[string]any{
				"title":    fmt.Sprintf("%d task(s) due within a day", len(dueTomorrow)),
				"message":  taskLines(dueTomorrow),
				"priority": string(model.PriorityMedium),
				"type":     "deadline",
			},
			Reason: "tasks approaching their due date",
		})
	}

	rfps, err := s.pipeline.ListRFPDeadlines(ctx, data.DeadlineWindowParams{
		TenantID: job.TenantID,
		From:     now,
		Until:    now.AddDate(0, 0, s.cfg.RFPLookaheadDays),
	})
	if err != nil {
		return nil, "", fmt.Errorf("list rfp deadlines: %w", err)
	}
	if len(rfps) > 0 {
		actions = append(actions, model.Action{
			Type: action.KindCreateNotification,
			Params: map[string]any{
				"title":    fmt.Sprintf("%d RFP deadline(s) within %d days", len(rfps), s.cfg.RFPLookaheadDays),
				"message":  rfpLines(rfps),
				"priority": string(model.PriorityHigh),
				"type":     "deadline",
			},
			Reason: "rfp deadlines approaching",
		})
	}

	summary := fmt.Sprintf("Deadline check: %d overdue, %d due within a day, %d RFP deadlines near.",
		len(overdue), len(dueTomorrow), len(rfps))
	return actions, summary, nil
}

// relationshipActions proposes follow-ups for the stalest contacts: per
// contact one create_follow_up and one update_contact_health, plus one
// summary notification when anything was found.
func (s *ExecutorService) relationshipActions(ctx context.Context, job model.Job) ([]model.Action, string, error) {
	now := s.timeProvider.Now()
	stale, err := s.contacts.ListStale(ctx, job.TenantID, now.AddDate(0, 0, -s.cfg.ContactStalenessDays))
	if err != nil {
		return nil, "", fmt.Errorf("list stale contacts: %w", err)
	}
	if len(stale) == 0 {
		return nil, "Relationship check: no contacts need attention.", nil
	}

	picked := stale
	if len(picked) > s.cfg.RelationshipTopN {
		picked = picked[:s.cfg.RelationshipTopN]
	}

	var actions []model.Action
	names := make([]string, 0, len(picked))
	for _, c := range picked {
		names = append(names, c.Name)
		gap := "never contacted"
		if c.LastInteractionAt != nil {
			gap = fmt.Sprintf("no interaction since %s", c.LastInteractionAt.Format("2006-01-02"))
		}
		actions = append(actions,
			model.Action{
				Type: action.KindCreateFollowUp,
				Params: map[string]any{
					"subject": c.Name,
					"context": gap,
				},
				Reason: fmt.Sprintf("%s: %s", c.Name, gap),
			},
			model.Action{
				Type: action.KindUpdateContactHealth,
				Params: map[string]any{
					"contact_id": c.ID,
					"health":     string(model.HealthNeedsAttention),
				},
				Reason: gap,
			},
		)
	}

	actions = append(actions, model.Action{
		Type: action.KindCreateNotification,
		Params: map[string]any{
			"title":    fmt.Sprintf("%d contact(s) need attention", len(picked)),
			"message":  "Follow-ups suggested for: " + strings.Join(names, ", "),
			"priority": string(model.PriorityMedium),
			"type":     "relationship",
		},
		Reason: "contacts past the staleness threshold",
	})

	summary := fmt.Sprintf("Relationship check: follow-ups proposed for %d of %d stale contacts.", len(picked), len(stale))
	return actions, summary, nil
}

func taskLines(tasks []model.Task) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("%s (due %s)", t.Title, formatDue(t.DueDate)))
	}
	return strings.Join(lines, "; ")
}

func rfpLines(rfps []model.RFP) string {
	lines := make([]string, 0, len(rfps))
	for _, r := range rfps {
		lines = append(lines, fmt.Sprintf("%s (deadline %s)", r.Title, formatDue(r.Deadline)))
	}
	return strings.Join(lines, "; ")
}

func strPtr(s string) *string { return &s }
