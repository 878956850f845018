package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// AuditRepo provides append-only access to the action audit log. Every
// dispatched action, success or failure, lands here; rows are never updated
// or deleted.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditRepo creates a new AuditRepo instance with the given database connection.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Append writes one audit entry.
func (r *AuditRepo) Append(ctx context.Context, entry model.AuditEntry) error {
	query := `
		INSERT INTO agent_audit_log (id, tenant_id, source_label, action_kind, reason, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.DB.ExecContext(ctx, query,
		uuid.NewString(), entry.TenantID, entry.SourceLabel, entry.ActionKind,
		entry.Reason, entry.Success, entry.Error, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
