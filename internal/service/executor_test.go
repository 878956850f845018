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
	"github.com/opsdeck/opsdeck/internal/domain/action"
	"github.com/opsdeck/opsdeck/internal/domain/decide"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

type executorFixture struct {
	svc        *ExecutorService
	runs       *mockRunStore
	tasks      *mockTaskStore
	contacts   *mockContactStore
	pipeline   *mockPipelineStore
	aggregator *mockAggregator
	proposer   *mockProposer
	dispatcher *mockDispatcher
	now        time.Time
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()
	f := &executorFixture{
		runs:       &mockRunStore{},
		tasks:      &mockTaskStore{},
		contacts:   &mockContactStore{},
		pipeline:   &mockPipelineStore{},
		aggregator: &mockAggregator{},
		proposer:   &mockProposer{},
		dispatcher: &mockDispatcher{},
		now:        time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
	}
	f.svc = NewExecutorService(ExecutorServiceOptions{
		Runs:         f.runs,
		Tasks:        f.tasks,
		Contacts:     f.contacts,
		Pipeline:     f.pipeline,
		Aggregator:   f.aggregator,
		Proposer:     f.proposer,
		Dispatcher:   f.dispatcher,
		Config:       &config.AgentConfig{},
		TimeProvider: data.NewFixedTimeProvider(f.now),
	})
	return f
}

func testJob(jobType model.JobType) model.Job {
	return model.Job{
		ID:       "job-1",
		TenantID: testTenantID,
		Type:     jobType,
		Schedule: model.ScheduleDaily,
		Active:   true,
	}
}

func (f *executorFixture) expectRun() {
	f.runs.On("Start", mock.Anything, mock.MatchedBy(func(p data.StartRunParams) bool {
		return p.JobID == "job-1" && p.TenantID == testTenantID
	})).Return(&model.JobRun{ID: "run-1", Status: model.RunStatusRunning}, nil)
}

func TestExecutorMorningBriefing(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	f.aggregator.On("Aggregate", mock.Anything, mock.MatchedBy(func(p AggregateParams) bool {
		return p.TenantID == testTenantID && p.Scope == "morning_briefing" && !p.IncludeContacts
	})).Return("snapshot text", nil)

	decision := decide.Decision{
		Summary: "Two things need attention today.",
		Actions: []model.Action{
			{Type: action.KindCreateTask, Params: map[string]any{"title": "Prep client call"}},
			{Type: action.KindCreateNotification, Params: map[string]any{"title": "Heads up", "message": "deadline near"}},
		},
	}
	f.proposer.On("Propose", mock.Anything, mock.MatchedBy(func(p ProposeParams) bool {
		return p.Context == "snapshot text" && p.Instruction != ""
	})).Return(decision, nil)

	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req DispatchRequest) bool {
		return req.TenantID == testTenantID && req.SourceLabel == "morning_briefing" && len(req.Actions) == 2
	})).Return([]model.ActionResult{
		{Success: true, Kind: action.KindCreateTask},
		{Success: false, Kind: action.KindCreateNotification, Error: "boom"},
	})

	f.runs.On("Finish", mock.Anything, mock.MatchedBy(func(p data.FinishRunParams) bool {
		return p.RunID == "run-1" && p.Status == model.RunStatusSuccess && p.Summary == decision.Summary
	})).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeMorningBriefing))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, summary.Status)
	assert.Equal(t, 1, summary.ActionsExecuted)
	assert.Equal(t, 1, summary.ActionsFailed)
	f.runs.AssertExpectations(t)
}

func TestExecutorWeeklyReviewIncludesContacts(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	f.aggregator.On("Aggregate", mock.Anything, mock.MatchedBy(func(p AggregateParams) bool {
		return p.Scope == "weekly_review" && p.IncludeContacts
	})).Return("weekly snapshot", nil)
	f.proposer.On("Propose", mock.Anything, mock.Anything).
		Return(decide.Decision{Summary: "quiet week", Actions: []model.Action{
			{Type: action.KindCreateNotification, Params: map[string]any{"title": "Review", "message": "quiet week"}},
		}}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).
		Return([]model.ActionResult{{Success: true, Kind: action.KindCreateNotification}})
	f.runs.On("Finish", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeWeeklyReview))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, summary.Status)
	f.aggregator.AssertExpectations(t)
}

func TestExecutorGenerationFailureFailsRun(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	f.aggregator.On("Aggregate", mock.Anything, mock.Anything).Return("snapshot", nil)
	f.proposer.On("Propose", mock.Anything, mock.Anything).
		Return(decide.Decision{}, errors.New("generation service call: status 503"))

	f.runs.On("Finish", mock.Anything, mock.MatchedBy(func(p data.FinishRunParams) bool {
		return p.Status == model.RunStatusFailed && p.Error != nil
	})).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeMorningBriefing))
	require.NoError(t, err, "a failed run is a recorded outcome, not an Execute error")
	assert.Equal(t, model.RunStatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "503")
	f.dispatcher.AssertNotCalled(t, "Dispatch")
	f.runs.AssertExpectations(t)
}

func TestExecutorStartFailureReturnsError(t *testing.T) {
	f := newExecutorFixture(t)
	f.runs.On("Start", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeMorningBriefing))
	require.Error(t, err)
	assert.Equal(t, model.RunStatusFailed, summary.Status)
	f.runs.AssertNotCalled(t, "Finish")
}

func TestExecutorDeadlineMonitorOneNotificationPerCategory(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	due := f.now.AddDate(0, 0, -1)
	f.tasks.On("ListOverdue", mock.Anything, testTenantID, f.now).Return([]model.Task{
		{ID: "t1", Title: "Send invoice", DueDate: &due},
		{ID: "t2", Title: "File report", DueDate: &due},
	}, nil)
	f.tasks.On("ListDueWithin", mock.Anything, mock.MatchedBy(func(p data.DueWindowParams) bool {
		return p.Until.Equal(f.now.AddDate(0, 0, 1))
	})).Return([]model.Task{{ID: "t3", Title: "Draft memo"}}, nil)
	deadline := f.now.AddDate(0, 0, 2)
	f.pipeline.On("ListRFPDeadlines", mock.Anything, mock.MatchedBy(func(p data.DeadlineWindowParams) bool {
		return p.Until.Equal(f.now.AddDate(0, 0, 3))
	})).Return([]model.RFP{{ID: "r1", Title: "City audit", Deadline: &deadline}}, nil)

	var dispatched []model.Action
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req DispatchRequest) bool {
		dispatched = req.Actions
		return req.SourceLabel == "deadline_monitor"
	})).Return([]model.ActionResult{
		{Success: true, Kind: action.KindCreateNotification},
		{Success: true, Kind: action.KindCreateNotification},
		{Success: true, Kind: action.KindCreateNotification},
	})
	f.runs.On("Finish", mock.Anything, mock.MatchedBy(func(p data.FinishRunParams) bool {
		return p.Status == model.RunStatusSuccess
	})).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeDeadlineMonitor))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ActionsExecuted)

	require.Len(t, dispatched, 3, "one notification per non-empty category")
	for _, a := range dispatched {
		assert.Equal(t, action.KindCreateNotification, a.Type)
	}
	assert.Equal(t, "high", dispatched[0].Params["priority"])
	assert.Equal(t, "medium", dispatched[1].Params["priority"])
	assert.Equal(t, "high", dispatched[2].Params["priority"])
	f.proposer.AssertNotCalled(t, "Propose")
}

func TestExecutorDeadlineMonitorQuietDay(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	f.tasks.On("ListOverdue", mock.Anything, testTenantID, f.now).Return([]model.Task{}, nil)
	f.tasks.On("ListDueWithin", mock.Anything, mock.Anything).Return([]model.Task{}, nil)
	f.pipeline.On("ListRFPDeadlines", mock.Anything, mock.Anything).Return([]model.RFP{}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req DispatchRequest) bool {
		return len(req.Actions) == 0
	})).Return([]model.ActionResult{})
	f.runs.On("Finish", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeDeadlineMonitor))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, summary.Status)
	assert.Zero(t, summary.ActionsExecuted)
}

func TestExecutorRelationshipCheckTopN(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	last := f.now.AddDate(0, 0, -45)
	stale := []model.Contact{
		{ID: "c1", Name: "Ada", LastInteractionAt: nil},
		{ID: "c2", Name: "Ben", LastInteractionAt: &last},
		{ID: "c3", Name: "Cy", LastInteractionAt: &last},
		{ID: "c4", Name: "Dee", LastInteractionAt: &last},
		{ID: "c5", Name: "Eli", LastInteractionAt: &last},
	}
	f.contacts.On("ListStale", mock.Anything, testTenantID, f.now.AddDate(0, 0, -30)).Return(stale, nil)

	var dispatched []model.Action
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req DispatchRequest) bool {
		dispatched = req.Actions
		return req.SourceLabel == "relationship_check"
	})).Return(make([]model.ActionResult, 7))
	f.runs.On("Finish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Execute(context.Background(), testJob(model.JobTypeRelationshipCheck))
	require.NoError(t, err)

	// Top 3 contacts, each with a follow-up and a health update, plus one summary.
	require.Len(t, dispatched, 7)
	followUps, healthUpdates, notifications := 0, 0, 0
	for _, a := range dispatched {
		switch a.Type {
		case action.KindCreateFollowUp:
			followUps++
		case action.KindUpdateContactHealth:
			healthUpdates++
		case action.KindCreateNotification:
			notifications++
		}
	}
	assert.Equal(t, 3, followUps)
	assert.Equal(t, 3, healthUpdates)
	assert.Equal(t, 1, notifications)
}

func TestExecutorRelationshipCheckNoStaleContacts(t *testing.T) {
	f := newExecutorFixture(t)
	f.expectRun()

	f.contacts.On("ListStale", mock.Anything, testTenantID, mock.Anything).Return([]model.Contact{}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req DispatchRequest) bool {
		return len(req.Actions) == 0
	})).Return([]model.ActionResult{})
	f.runs.On("Finish", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.svc.Execute(context.Background(), testJob(model.JobTypeRelationshipCheck))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSuccess, summary.Status)
	assert.Contains(t, summary.Summary, "no contacts need attention")
}
