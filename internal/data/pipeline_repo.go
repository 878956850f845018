package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsdeck/opsdeck/internal/data/pgxutil"
	"github.com/opsdeck/opsdeck/internal/domain/model"
	apperrors "github.com/opsdeck/opsdeck/internal/errors"
)

// rfpColumns defines the column list for RFP SELECT queries to ensure consistent field mapping.
const rfpColumns = `id, tenant_id, title, status, deadline, created_at, updated_at`

// proposalColumns defines the column list for Proposal SELECT queries.
const proposalColumns = `id, tenant_id, rfp_id, title, status, due_date, created_at, updated_at`

// PipelineRepo provides database operations for tracked opportunities (RFPs)
// and proposals.
type PipelineRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPipelineRepo creates a new PipelineRepo instance with the given database connection.
func NewPipelineRepo(db *sql.DB) *PipelineRepo {
	return &PipelineRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// DeadlineWindowParams groups parameters for deadline window queries.
type DeadlineWindowParams struct {
	TenantID string
	From     time.Time
	Until    time.Time
}

// ListRFPDeadlines returns open RFPs with deadlines in [From, Until], soonest first.
func (r *PipelineRepo) ListRFPDeadlines(ctx context.Context, p DeadlineWindowParams) ([]model.RFP, error) {
	query := `
		SELECT ` + rfpColumns + `
		FROM rfps
		WHERE tenant_id = $1
		  AND status NOT IN ($2, $3, $4)
		  AND deadline IS NOT NULL AND deadline >= $5 AND deadline <= $6
		ORDER BY deadline ASC
	`

	var rfps []model.RFP
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			p.TenantID, model.RFPStatusDeclined, model.RFPStatusWon, model.RFPStatusLost,
			p.From.UTC(), p.Until.UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.RFP])
		if collectErr != nil {
			return collectErr
		}
		rfps = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rfp deadlines: %w", err)
	}

	return rfps, nil
}

// UpdateRFPStatusParams groups parameters for UpdateRFPStatus.
type UpdateRFPStatusParams struct {
	TenantID string
	RFPID    string
	Status   string
}

// UpdateRFPStatus moves an RFP to a new pipeline status. Tenant-scoped.
func (r *PipelineRepo) UpdateRFPStatus(ctx context.Context, p UpdateRFPStatusParams) (*model.RFP, error) {
	if !model.ValidRFPStatus(p.Status) {
		return nil, apperrors.Validationf("invalid rfp status %q", p.Status)
	}

	query := `
		UPDATE rfps SET status = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + rfpColumns

	var rfp model.RFP
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			p.RFPID, p.TenantID, p.Status, r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.RFP])
		if collectErr != nil {
			return collectErr
		}
		rfp = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("update rfp status: %w", err))
	}

	return &rfp, nil
}

// ListProposalDeadlines returns in-flight proposals due in [From, Until], soonest first.
func (r *PipelineRepo) ListProposalDeadlines(ctx context.Context, p DeadlineWindowParams) ([]model.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE tenant_id = $1
		  AND status NOT IN ('submitted', 'won', 'lost')
		  AND due_date IS NOT NULL AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date ASC
	`

	var proposals []model.Proposal
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, p.TenantID, p.From.UTC(), p.Until.UTC())
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.Proposal])
		if collectErr != nil {
			return collectErr
		}
		proposals = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list proposal deadlines: %w", err)
	}

	return proposals, nil
}

// GetProposal fetches one proposal by id. Tenant-scoped.
func (r *PipelineRepo) GetProposal(ctx context.Context, tenantID, proposalID string) (*model.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE id = $1 AND tenant_id = $2
	`

	var proposal model.Proposal
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, proposalID, tenantID)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Proposal])
		if collectErr != nil {
			return collectErr
		}
		proposal = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get proposal: %w", err))
	}

	return &proposal, nil
}
