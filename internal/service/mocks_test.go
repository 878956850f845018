package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/opsdeck/opsdeck/internal/data"
	"github.com/opsdeck/opsdeck/internal/domain/decide"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// Mock implementations for testing.

type mockTaskStore struct {
	mock.Mock
}

func (m *mockTaskStore) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *mockTaskStore) UpdatePriority(ctx context.Context, p data.UpdatePriorityParams) (*model.Task, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *mockTaskStore) Reschedule(ctx context.Context, p data.RescheduleParams) (*model.Task, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *mockTaskStore) Complete(ctx context.Context, tenantID, taskID string) (*model.Task, error) {
	args := m.Called(ctx, tenantID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *mockTaskStore) ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]model.Task, error) {
	args := m.Called(ctx, tenantID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *mockTaskStore) ListDueWithin(ctx context.Context, p data.DueWindowParams) ([]model.Task, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

type mockContactStore struct {
	mock.Mock
}

func (m *mockContactStore) ListStale(ctx context.Context, tenantID string, olderThan time.Time) ([]model.Contact, error) {
	args := m.Called(ctx, tenantID, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

func (m *mockContactStore) UpdateHealth(ctx context.Context, p data.UpdateHealthParams) (*model.Contact, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockContactStore) LogInteraction(ctx context.Context, p data.LogInteractionParams) (*model.Interaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Interaction), args.Error(1)
}

type mockPipelineStore struct {
	mock.Mock
}

func (m *mockPipelineStore) ListRFPDeadlines(ctx context.Context, p data.DeadlineWindowParams) ([]model.RFP, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RFP), args.Error(1)
}

func (m *mockPipelineStore) UpdateRFPStatus(ctx context.Context, p data.UpdateRFPStatusParams) (*model.RFP, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RFP), args.Error(1)
}

func (m *mockPipelineStore) GetProposal(ctx context.Context, tenantID, proposalID string) (*model.Proposal, error) {
	args := m.Called(ctx, tenantID, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockPipelineStore) ListProposalDeadlines(ctx context.Context, p data.DeadlineWindowParams) ([]model.Proposal, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Proposal), args.Error(1)
}

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

type mockContentStore struct {
	mock.Mock
}

func (m *mockContentStore) CreateDraft(ctx context.Context, p data.CreateDraftParams) (*model.Draft, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Draft), args.Error(1)
}

func (m *mockContentStore) CreateTimeBlock(ctx context.Context, p data.CreateTimeBlockParams) (*model.TimeBlock, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TimeBlock), args.Error(1)
}

func (m *mockContentStore) CreateResearchFinding(ctx context.Context, p data.CreateResearchFindingParams) (*model.ResearchFinding, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResearchFinding), args.Error(1)
}

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) Append(ctx context.Context, entry model.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Job), args.Error(1)
}

func (m *mockJobStore) RecordRun(ctx context.Context, p data.RecordRunParams) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) Start(ctx context.Context, p data.StartRunParams) (*model.JobRun, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobRun), args.Error(1)
}

func (m *mockRunStore) Finish(ctx context.Context, p data.FinishRunParams) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, job model.Job) (model.JobRunSummary, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(model.JobRunSummary), args.Error(1)
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Aggregate(ctx context.Context, p AggregateParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type mockProposer struct {
	mock.Mock
}

func (m *mockProposer) Propose(ctx context.Context, p ProposeParams) (decide.Decision, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(decide.Decision), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req DispatchRequest) []model.ActionResult {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.ActionResult)
}
