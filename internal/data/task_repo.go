package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsdeck/opsdeck/internal/data/pgxutil"
	"github.com/opsdeck/opsdeck/internal/domain/model"
	apperrors "github.com/opsdeck/opsdeck/internal/errors"
)

// taskColumns defines the column list for Task SELECT queries to ensure consistent field mapping.
const taskColumns = `id, tenant_id, title, status, priority, due_date, tags, source, metadata, proposal_id, completed_at, created_at, updated_at`

// TaskRepo provides database operations for tenant tasks.
type TaskRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTaskRepo creates a new TaskRepo instance with the given database connection.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a task. Agent-created tasks carry source='agent' and the
// triggering reason in metadata so the UI can tell them apart from user ones.
func (r *TaskRepo) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	if req == nil {
		return nil, apperrors.Validation("create task request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create task request")
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO tasks (id, tenant_id, title, status, priority, due_date, tags, source, metadata, proposal_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + taskColumns

	var task model.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), req.TenantID, req.Title, model.TaskStatusOpen, req.Priority,
			req.DueDate, tags, req.Source, metadata, req.ProposalID, now.UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Task])
		if collectErr != nil {
			return collectErr
		}
		task = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create task: %w", err))
	}

	return &task, nil
}

// UpdatePriorityParams groups parameters for UpdatePriority.
type UpdatePriorityParams struct {
	TenantID string
	TaskID   string
	Priority model.TaskPriority
}

// UpdatePriority changes a task's priority. Tenant-scoped.
func (r *TaskRepo) UpdatePriority(ctx context.Context, p UpdatePriorityParams) (*model.Task, error) {
	if !p.Priority.Valid() {
		return nil, apperrors.Validationf("invalid priority %q", p.Priority)
	}

	query := `
		UPDATE tasks SET priority = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + taskColumns

	return r.updateOne(ctx, query, p.TaskID, p.TenantID, p.Priority, r.timeProvider.Now().UTC())
}

// RescheduleParams groups parameters for Reschedule.
type RescheduleParams struct {
	TenantID string
	TaskID   string
	DueDate  time.Time
}

// Reschedule moves a task's due date. Tenant-scoped.
func (r *TaskRepo) Reschedule(ctx context.Context, p RescheduleParams) (*model.Task, error) {
	query := `
		UPDATE tasks SET due_date = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + taskColumns

	return r.updateOne(ctx, query, p.TaskID, p.TenantID, p.DueDate.UTC(), r.timeProvider.Now().UTC())
}

// Complete marks a task completed. Tenant-scoped.
func (r *TaskRepo) Complete(ctx context.Context, tenantID, taskID string) (*model.Task, error) {
	now := r.timeProvider.Now().UTC()
	query := `
		UPDATE tasks SET status = $3, completed_at = $4, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + taskColumns

	return r.updateOne(ctx, query, taskID, tenantID, model.TaskStatusCompleted, now)
}

// updateOne runs a single-row RETURNING update and maps the no-row case to NotFound.
func (r *TaskRepo) updateOne(ctx context.Context, query string, args ...any) (*model.Task, error) {
	var task model.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, args...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Task])
		if collectErr != nil {
			return collectErr
		}
		task = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("update task: %w", err))
	}

	return &task, nil
}

// ListOverdue returns open tasks with a due date strictly before now, most overdue first.
func (r *TaskRepo) ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND status = $2 AND due_date IS NOT NULL AND due_date < $3
		ORDER BY due_date ASC
	`
	return r.list(ctx, query, tenantID, model.TaskStatusOpen, now.UTC())
}

// DueWindowParams groups parameters for ListDueWithin.
type DueWindowParams struct {
	TenantID string
	From     time.Time
	Until    time.Time
}

// ListDueWithin returns open tasks due in [From, Until], soonest first.
func (r *TaskRepo) ListDueWithin(ctx context.Context, p DueWindowParams) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND status = $2 AND due_date >= $3 AND due_date <= $4
		ORDER BY due_date ASC
	`
	return r.list(ctx, query, p.TenantID, model.TaskStatusOpen, p.From.UTC(), p.Until.UTC())
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	var tasks []model.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, args...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.Task])
		if collectErr != nil {
			return collectErr
		}
		tasks = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}
