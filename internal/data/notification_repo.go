package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/opsdeck/opsdeck/internal/data/pgxutil"
	"github.com/opsdeck/opsdeck/internal/domain/model"
	apperrors "github.com/opsdeck/opsdeck/internal/errors"
)

// notificationColumns defines the column list for Notification SELECT queries.
const notificationColumns = `id, tenant_id, title, message, priority, type, read, source, created_at`

// NotificationRepo provides database operations for in-app notifications.
type NotificationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewNotificationRepo creates a new NotificationRepo instance with the given database connection.
func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, req *model.CreateNotificationRequest) (*model.Notification, error) {
	if req == nil {
		return nil, apperrors.Validation("create notification request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid create notification request")
	}

	query := `
		INSERT INTO notifications (id, tenant_id, title, message, priority, type, read, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7, $8)
		RETURNING ` + notificationColumns

	var notification model.Notification
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, queryErr := pgxConn.Query(ctx, query,
			uuid.NewString(), req.TenantID, req.Title, req.Message, req.Priority, req.Type,
			req.Source, r.timeProvider.Now().UTC(),
		)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		collected, collectErr := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Notification])
		if collectErr != nil {
			return collectErr
		}
		notification = collected
		return nil
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("create notification: %w", err))
	}

	return &notification, nil
}
