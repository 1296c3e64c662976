package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/model"
)

// NotificationRepository handles database operations for notifications.
// It is the sole writer of the notifications table; it holds no state
// beyond the pool and is safe for concurrent use.
type NotificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// ListNotifications retrieves notifications for a user matching the
// filter, newest first. An empty result is not an error.
func (r *NotificationRepository) ListNotifications(
	ctx context.Context,
	userID string,
	filter model.NotificationFilter,
) ([]model.Notification, error) {
	query, args := buildListQuery(userID, filter)

	notifications := []model.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, args...)
	if err != nil {
		r.logger.Error("Failed to list notifications",
			zap.Error(err),
			zap.String("user_id", userID))
		return nil, err
	}

	return notifications, nil
}

// GetNotificationByID retrieves a notification by primary key. The
// lookup is not user-scoped; ownership checks belong to the caller.
// Returns nil without error when no row matches.
func (r *NotificationRepository) GetNotificationByID(ctx context.Context, id string) (*model.Notification, error) {
	query := selectNotification + ` WHERE id = $1`

	var n model.Notification
	err := r.db.GetContext(ctx, &n, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get notification by ID", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	return &n, nil
}

// GetScopeNotification retrieves the live notification for a
// (user, origin, scope) triple. Returns nil without error when no row
// matches. Scope must be non-empty; empty scopes are never deduplicated.
func (r *NotificationRepository) GetScopeNotification(
	ctx context.Context,
	userID, origin, scope string,
) (*model.Notification, error) {
	query := selectNotification + ` WHERE user_id = $1 AND origin = $2 AND scope = $3`

	var n model.Notification
	err := r.db.GetContext(ctx, &n, query, userID, origin, scope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get notification by scope",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("origin", origin),
			zap.String("scope", scope))
		return nil, err
	}

	return &n, nil
}

// GetStatus computes the unread/read counts for a user in a single
// grouped query, so both counts come from the same snapshot.
func (r *NotificationRepository) GetStatus(ctx context.Context, userID string) (*model.NotificationStatus, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE read_at IS NULL) AS unread,
			COUNT(*) FILTER (WHERE read_at IS NOT NULL) AS read
		FROM notifications
		WHERE user_id = $1`

	var status model.NotificationStatus
	err := r.db.GetContext(ctx, &status, query, userID)
	if err != nil {
		r.logger.Error("Failed to get notification status",
			zap.Error(err),
			zap.String("user_id", userID))
		return nil, err
	}

	return &status, nil
}

// SaveNotification inserts a notification, or restores the existing one
// when the (user, origin, scope) triple already has a live record. The
// lookup-then-insert-or-restore decision is a single conditional write
// against the partial unique index, so concurrent saves of the same
// scope converge on one row. On restore the payload is overwritten,
// updated_at is set, read state resets to unread, and the original id,
// created_at, and saved state are kept.
func (r *NotificationRepository) SaveNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	query := `
		INSERT INTO notifications (
			id, user_id, origin, created_at, title,
			description, link, severity, topic, scope, icon
		) VALUES (
			$1, $2, $3, $4, $5,
			NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, '')
		)
		ON CONFLICT (user_id, origin, scope) WHERE scope IS NOT NULL
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			link = EXCLUDED.link,
			severity = EXCLUDED.severity,
			topic = EXCLUDED.topic,
			icon = EXCLUDED.icon,
			updated_at = $12,
			read_at = NULL
		RETURNING ` + notificationColumns

	now := time.Now().UTC()
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var saved model.Notification
	err := r.db.GetContext(ctx, &saved, query,
		n.ID,
		n.UserID,
		n.Origin,
		createdAt,
		n.Title,
		n.Description,
		n.Link,
		n.Severity,
		n.Topic,
		n.Scope,
		n.Icon,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to save notification",
			zap.Error(err),
			zap.String("user_id", n.UserID),
			zap.String("origin", n.Origin),
			zap.String("scope", n.Scope))
		return nil, err
	}

	return &saved, nil
}

// RestoreNotification overwrites the payload of the notification at id,
// sets updated_at, and resets it to unread. Saved state is untouched.
// Returns nil without error when no row matches.
func (r *NotificationRepository) RestoreNotification(
	ctx context.Context,
	id string,
	payload model.NotificationPayload,
) (*model.Notification, error) {
	query := `
		UPDATE notifications SET
			title = $2,
			description = NULLIF($3, ''),
			link = NULLIF($4, ''),
			severity = $5,
			topic = NULLIF($6, ''),
			icon = NULLIF($7, ''),
			updated_at = $8,
			read_at = NULL
		WHERE id = $1
		RETURNING ` + notificationColumns

	var restored model.Notification
	err := r.db.GetContext(ctx, &restored, query,
		id,
		payload.Title,
		payload.Description,
		payload.Link,
		payload.Severity,
		payload.Topic,
		payload.Icon,
		time.Now().UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to restore notification", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	return &restored, nil
}

// MarkRead sets the read timestamp on the given notifications. Ids not
// owned by the user, unknown, or already read are skipped; the returned
// count reflects rows actually transitioned.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `
		UPDATE notifications SET read_at = $1
		WHERE user_id = $2 AND id = ANY($3) AND read_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to mark notifications as read",
			zap.Error(err),
			zap.String("user_id", userID))
		return 0, err
	}

	return result.RowsAffected()
}

// MarkUnread clears the read timestamp on the given notifications, with
// the same ownership filtering and best-effort semantics as MarkRead.
func (r *NotificationRepository) MarkUnread(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `
		UPDATE notifications SET read_at = NULL
		WHERE user_id = $1 AND id = ANY($2) AND read_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to mark notifications as unread",
			zap.Error(err),
			zap.String("user_id", userID))
		return 0, err
	}

	return result.RowsAffected()
}

// MarkSaved sets the saved timestamp on the given notifications
func (r *NotificationRepository) MarkSaved(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `
		UPDATE notifications SET saved_at = $1
		WHERE user_id = $2 AND id = ANY($3) AND saved_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to mark notifications as saved",
			zap.Error(err),
			zap.String("user_id", userID))
		return 0, err
	}

	return result.RowsAffected()
}

// MarkUnsaved clears the saved timestamp on the given notifications
func (r *NotificationRepository) MarkUnsaved(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `
		UPDATE notifications SET saved_at = NULL
		WHERE user_id = $1 AND id = ANY($2) AND saved_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to mark notifications as unsaved",
			zap.Error(err),
			zap.String("user_id", userID))
		return 0, err
	}

	return result.RowsAffected()
}
