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

// jobRunColumns defines the column list for JobRun SELECT queries to ensure consistent field mapping.
const jobRunColumns = `id, job_id, tenant_id, job_type, status, actions, summary, error, started_at, completed_at`

// JobRunRepo provides database operations for job run audit records.
// A run row is created at the start of an attempt, so the audit trail survives
// even when the attempt subsequently fails.
type JobRunRepo struct {
	DB *sql.DB
}

// NewJobRunRepo creates a new JobRunRepo instance with the given database connection.
func NewJobRunRepo(db *sql.DB) *JobRunRepo {
	return &JobRunRepo{DB: db}
}

// StartRunParams groups parameters for Start.
type StartRunParams struct {
	JobID     string
	TenantID  string
	JobType   model.JobType
	StartedAt time.Time
}

// Start creates a JobRun in the running state.
func (r *JobRunRepo) Start(ctx context.Context, p StartRunParams) (*model.JobRun, error) {
	query := `
		INSERT INTO agent_job_runs (id, job_id, tenant_id, job_type, status, actions, summary, started_at)
		VALUES ($1, $2, $3, $4, $5, '[]'::jsonb, '', $6)
		RETURNING ` + jobRunColumns

	var run model.JobRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), p.JobID, p.TenantID, p.JobType, model.RunStatusRunning, p.StartedAt.UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobRun])
		if collectErr != nil {
			return collectErr
		}
		run = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("start job run: %w", err))
	}

	return &run, nil
}

// FinishRunParams groups parameters for Finish.
type FinishRunParams struct {
	RunID       string
	Status      model.RunStatus
	Actions     json.RawMessage
	Summary     string
	Error       *string
	CompletedAt time.Time
}

// Finish moves a run to a terminal state. Terminal runs are immutable: the
// WHERE clause refuses to touch rows that already left the running state.
func (r *JobRunRepo) Finish(ctx context.Context, p FinishRunParams) error {
	if !p.Status.Terminal() {
		return apperrors.Validationf("finish requires a terminal status, got %q", p.Status)
	}

	actions := p.Actions
	if len(actions) == 0 {
		actions = json.RawMessage(`[]`)
	}

	query := `
		UPDATE agent_job_runs
		SET status = $2, actions = $3, summary = $4, error = $5, completed_at = $6
		WHERE id = $1 AND status = $7
	`

	res, err := r.DB.ExecContext(ctx, query,
		p.RunID, p.Status, actions, p.Summary, p.Error, p.CompletedAt.UTC(), model.RunStatusRunning,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("finish job run: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish job run rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.Conflict("job run is not running or does not exist")
	}
	return nil
}

// ListByTenant returns a tenant's runs, newest first.
func (r *JobRunRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.JobRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + jobRunColumns + `
		FROM agent_job_runs
		WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	var runs []model.JobRun
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, tenantID, limit)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.JobRun])
		if collectErr != nil {
			return collectErr
		}
		runs = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}

	return runs, nil
}
