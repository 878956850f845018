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

// contactColumns defines the column list for Contact SELECT queries to ensure consistent field mapping.
const contactColumns = `id, tenant_id, name, company, health, last_interaction_at, created_at, updated_at`

// interactionColumns defines the column list for Interaction SELECT queries.
const interactionColumns = `id, tenant_id, contact_id, type, summary, source, occurred_at`

// ContactRepo provides database operations for contacts and their interactions.
type ContactRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewContactRepo creates a new ContactRepo instance with the given database connection.
func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// ListStale returns contacts with no recorded interaction since olderThan,
// stalest first. Contacts with no interactions at all sort first.
func (r *ContactRepo) ListStale(ctx context.Context, tenantID string, olderThan time.Time) ([]model.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE tenant_id = $1 AND (last_interaction_at IS NULL OR last_interaction_at < $2)
		ORDER BY last_interaction_at ASC NULLS FIRST, name ASC
	`

	var contacts []model.Contact
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query, tenantID, olderThan.UTC())
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectRows(rows, pgx.RowToStructByName[model.Contact])
		if collectErr != nil {
			return collectErr
		}
		contacts = collected
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stale contacts: %w", err)
	}

	return contacts, nil
}

// UpdateHealthParams groups parameters for UpdateHealth.
type UpdateHealthParams struct {
	TenantID  string
	ContactID string
	Health    model.ContactHealth
}

// UpdateHealth sets a contact's relationship health. Tenant-scoped.
func (r *ContactRepo) UpdateHealth(ctx context.Context, p UpdateHealthParams) (*model.Contact, error) {
	if !p.Health.Valid() {
		return nil, apperrors.Validationf("invalid contact health %q", p.Health)
	}

	query := `
		UPDATE contacts SET health = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + contactColumns

	var contact model.Contact
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			p.ContactID, p.TenantID, p.Health, r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Contact])
		if collectErr != nil {
			return collectErr
		}
		contact = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("update contact health: %w", err))
	}

	return &contact, nil
}

// LogInteractionParams groups parameters for LogInteraction.
type LogInteractionParams struct {
	TenantID  string
	ContactID string
	Type      string
	Summary   string
	Source    string
}

// LogInteraction records a touchpoint and advances the contact's
// last_interaction_at in the same transaction so the staleness window stays
// consistent with the interaction log.
func (r *ContactRepo) LogInteraction(ctx context.Context, p LogInteractionParams) (*model.Interaction, error) {
	if p.Source == "" {
		p.Source = model.SourceAgent
	}
	now := r.timeProvider.Now().UTC()

	var interaction model.Interaction
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		rows, queryErr := tx.Query(ctx, `
			INSERT INTO interactions (id, tenant_id, contact_id, type, summary, source, occurred_at)
			SELECT $1, c.tenant_id, c.id, $4, $5, $6, $7
			FROM contacts c
			WHERE c.id = $2 AND c.tenant_id = $3
			RETURNING `+interactionColumns,
			uuid.NewString(), p.ContactID, p.TenantID, p.Type, p.Summary, p.Source, now,
		)
		if queryErr != nil {
			return queryErr
		}

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Interaction])
		if collectErr != nil {
			return collectErr
		}
		interaction = collected

		_, updateErr := tx.Exec(ctx, `
			UPDATE contacts SET last_interaction_at = $3, updated_at = $3
			WHERE id = $1 AND tenant_id = $2`,
			p.ContactID, p.TenantID, now,
		)
		return updateErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("log interaction: %w", err))
	}

	return &interaction, nil
}
