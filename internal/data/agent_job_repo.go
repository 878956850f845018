// Package data provides Postgres and Redis repositories for the opsdeck agent engine.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsdeck/opsdeck/internal/data/pgxutil"
	"github.com/opsdeck/opsdeck/internal/domain/model"
	apperrors "github.com/opsdeck/opsdeck/internal/errors"
)

// agentJobColumns defines the column list for Job SELECT queries to ensure consistent field mapping.
const agentJobColumns = `id, tenant_id, job_type, schedule, active, last_run_at, last_run_status, next_run_at, created_at, updated_at`

// AgentJobRepo provides database operations for recurring agent jobs.
// Jobs are mutated only through the scheduler; executor code never touches
// job rows directly.
type AgentJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAgentJobRepo creates a new AgentJobRepo instance with the given database connection.
func NewAgentJobRepo(db *sql.DB) *AgentJobRepo {
	return &AgentJobRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// FindDue returns active jobs whose next_run_at is null or at/before now,
// oldest first. Null next_run_at means due immediately.
func (r *AgentJobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT ` + agentJobColumns + `
		FROM agent_jobs
		WHERE active AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY
			CASE WHEN next_run_at IS NULL THEN 0 ELSE 1 END,
			next_run_at ASC,
			created_at ASC
		LIMIT $2
	`

	var jobs []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, now.UTC(), limit)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		if collectErr != nil {
			return collectErr
		}
		jobs = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query due agent jobs: %w", err)
	}

	return jobs, nil
}

// Create registers a new recurring agent job. Jobs start with a null
// next_run_at, which makes them due on the next scheduler pass.
func (r *AgentJobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create job request")
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO agent_jobs (id, tenant_id, job_type, schedule, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + agentJobColumns

	var job model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), req.TenantID, req.Type, req.Schedule, req.Active, now.UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		if collectErr != nil {
			return collectErr
		}
		job = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create agent job: %w", err))
	}

	return &job, nil
}

// RecordRunParams groups parameters for RecordRun.
type RecordRunParams struct {
	JobID     string
	RanAt     time.Time
	Status    model.RunStatus
	NextRunAt time.Time
}

// RecordRun advances a job after an execution attempt: stamps last_run_at and
// last_run_status, and moves next_run_at forward. next_run_at only advances;
// a failed run does not block future due-detection.
func (r *AgentJobRepo) RecordRun(ctx context.Context, p RecordRunParams) error {
	query := `
		UPDATE agent_jobs
		SET last_run_at = $2,
		    last_run_status = $3,
		    next_run_at = GREATEST(COALESCE(next_run_at, $4), $4),
		    updated_at = $2
		WHERE id = $1
	`

	res, err := r.DB.ExecContext(ctx, query, p.JobID, p.RanAt.UTC(), p.Status, p.NextRunAt.UTC())
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("record agent job run: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record agent job run rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("agent job %s not found", p.JobID)
	}
	return nil
}

// SetActive toggles a job's active flag.
func (r *AgentJobRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE agent_jobs SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("set agent job active: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set agent job active rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("agent job %s not found", id)
	}
	return nil
}

// ListByTenant returns a tenant's jobs, newest first.
func (r *AgentJobRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + agentJobColumns + `
		FROM agent_jobs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var jobs []model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, tenantID, limit)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		if collectErr != nil {
			return collectErr
		}
		jobs = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list agent jobs: %w", err)
	}

	return jobs, nil
}
