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

const draftColumns = `id, tenant_id, type, title, content, status, metadata, created_at`

const timeBlockColumns = `id, tenant_id, title, suggested_date, duration_minutes, block_type, status, created_at`

const researchColumns = `id, tenant_id, topic, type, title, summary, created_at`

// ContentRepo provides database operations for agent-generated content pending
// human review: drafts, suggested time blocks, and research findings.
type ContentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewContentRepo creates a new ContentRepo instance with the given database connection.
func NewContentRepo(db *sql.DB) *ContentRepo {
	return &ContentRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// CreateDraftParams groups parameters for CreateDraft.
type CreateDraftParams struct {
	TenantID string
	Type     string
	Title    string
	Content  string
	Metadata json.RawMessage
}

// CreateDraft saves a content draft in pending_review status.
func (r *ContentRepo) CreateDraft(ctx context.Context, p CreateDraftParams) (*model.Draft, error) {
	metadata := p.Metadata
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO drafts (id, tenant_id, type, title, content, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + draftColumns

	var draft model.Draft
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), p.TenantID, p.Type, p.Title, p.Content,
			model.DraftStatusPending, metadata, r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Draft])
		if collectErr != nil {
			return collectErr
		}
		draft = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create draft: %w", err))
	}

	return &draft, nil
}

// CreateTimeBlockParams groups parameters for CreateTimeBlock.
type CreateTimeBlockParams struct {
	TenantID        string
	Title           string
	SuggestedDate   time.Time
	DurationMinutes int
	BlockType       string
}

// CreateTimeBlock saves a suggested calendar block in pending_review status.
func (r *ContentRepo) CreateTimeBlock(ctx context.Context, p CreateTimeBlockParams) (*model.TimeBlock, error) {
	if p.DurationMinutes <= 0 {
		return nil, apperrors.Validation("duration_minutes must be positive")
	}

	query := `
		INSERT INTO time_blocks (id, tenant_id, title, suggested_date, duration_minutes, block_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + timeBlockColumns

	var block model.TimeBlock
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), p.TenantID, p.Title, p.SuggestedDate.UTC(), p.DurationMinutes,
			p.BlockType, model.DraftStatusPending, r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.TimeBlock])
		if collectErr != nil {
			return collectErr
		}
		block = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create time block: %w", err))
	}

	return &block, nil
}

// CreateResearchFindingParams groups parameters for CreateResearchFinding.
type CreateResearchFindingParams struct {
	TenantID string
	Topic    string
	Type     string
	Title    string
	Summary  string
}

// CreateResearchFinding saves a research finding.
func (r *ContentRepo) CreateResearchFinding(ctx context.Context, p CreateResearchFindingParams) (*model.ResearchFinding, error) {
	query := `
		INSERT INTO research_findings (id, tenant_id, topic, type, title, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + researchColumns

	var finding model.ResearchFinding
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), p.TenantID, p.Topic, p.Type, p.Title, p.Summary,
			r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.ResearchFinding])
		if collectErr != nil {
			return collectErr
		}
		finding = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create research finding: %w", err))
	}

	return &finding, nil
}
