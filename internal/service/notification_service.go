package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/model"
)

// defaultListLimit caps unbounded list queries
const defaultListLimit = 100

// NotificationStore is the persistence contract the service drives.
// Implemented by repository.NotificationRepository.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, filter model.NotificationFilter) ([]model.Notification, error)
	GetNotificationByID(ctx context.Context, id string) (*model.Notification, error)
	GetScopeNotification(ctx context.Context, userID, origin, scope string) (*model.Notification, error)
	GetStatus(ctx context.Context, userID string) (*model.NotificationStatus, error)
	SaveNotification(ctx context.Context, n *model.Notification) (*model.Notification, error)
	RestoreNotification(ctx context.Context, id string, payload model.NotificationPayload) (*model.Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	MarkUnread(ctx context.Context, userID string, ids []string) (int64, error)
	MarkSaved(ctx context.Context, userID string, ids []string) (int64, error)
	MarkUnsaved(ctx context.Context, userID string, ids []string) (int64, error)
}

// NotificationService handles notification operations: validation,
// defaulting, and delegation to the store. Storage errors pass through
// unmodified; retry policy belongs to the caller.
type NotificationService struct {
	store    NotificationStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// GetNotifications retrieves notifications for a user matching the filter
func (s *NotificationService) GetNotifications(
	ctx context.Context,
	userID string,
	filter model.NotificationFilter,
) ([]model.Notification, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "user", Reason: "must not be empty"}
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.store.ListNotifications(ctx, userID, filter)
}

// GetNotification retrieves a single notification by id. Returns
// model.ErrNotFound when no record matches; callers treat that as a
// normal branch.
func (s *NotificationService) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	if id == "" {
		return nil, &model.ValidationError{Field: "id", Reason: "must not be empty"}
	}

	n, err := s.store.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, model.ErrNotFound
	}
	return n, nil
}

// GetStatus retrieves the unread/read counts for a user
func (s *NotificationService) GetStatus(ctx context.Context, userID string) (*model.NotificationStatus, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "user", Reason: "must not be empty"}
	}

	return s.store.GetStatus(ctx, userID)
}

// GetExistingScopeNotification looks up the live notification for a
// (user, origin, scope) triple. Returns model.ErrNotFound when the
// triple has no live record.
func (s *NotificationService) GetExistingScopeNotification(
	ctx context.Context,
	userID, origin, scope string,
) (*model.Notification, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "user", Reason: "must not be empty"}
	}
	if scope == "" {
		return nil, &model.ValidationError{Field: "scope", Reason: "must not be empty"}
	}

	n, err := s.store.GetScopeNotification(ctx, userID, origin, scope)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, model.ErrNotFound
	}
	return n, nil
}

// SaveNotification persists a notification. When the notification
// carries a scope and a live record already exists for its
// (user, origin, scope) triple, the existing record is restored with
// the new payload and reset to unread instead of inserting a duplicate.
func (s *NotificationService) SaveNotification(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if err := s.validate.Struct(n); err != nil {
		return nil, asValidationError(err)
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	saved, err := s.store.SaveNotification(ctx, n)
	if err != nil {
		return nil, err
	}

	if saved.ID != n.ID {
		s.logger.Debug("Notification restored into existing scoped record",
			zap.String("user_id", saved.UserID),
			zap.String("origin", saved.Origin),
			zap.String("scope", saved.Scope),
			zap.String("id", saved.ID))
	}

	return saved, nil
}

// RestoreNotification overwrites the payload of an existing
// notification and resets it to unread. Exposed for callers that
// already hold the record id; SaveNotification reaches the same
// semantics through the scope upsert.
func (s *NotificationService) RestoreNotification(
	ctx context.Context,
	id string,
	payload model.NotificationPayload,
) (*model.Notification, error) {
	if id == "" {
		return nil, &model.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, asValidationError(err)
	}

	restored, err := s.store.RestoreNotification(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return nil, model.ErrNotFound
	}
	return restored, nil
}

// MarkRead marks the given notifications as read for the user. Ids not
// owned by the user or unknown are skipped silently.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	return s.mark(ctx, userID, ids, s.store.MarkRead)
}

// MarkUnread marks the given notifications as unread for the user
func (s *NotificationService) MarkUnread(ctx context.Context, userID string, ids []string) (int64, error) {
	return s.mark(ctx, userID, ids, s.store.MarkUnread)
}

// MarkSaved bookmarks the given notifications for the user
func (s *NotificationService) MarkSaved(ctx context.Context, userID string, ids []string) (int64, error) {
	return s.mark(ctx, userID, ids, s.store.MarkSaved)
}

// MarkUnsaved removes the bookmark from the given notifications
func (s *NotificationService) MarkUnsaved(ctx context.Context, userID string, ids []string) (int64, error) {
	return s.mark(ctx, userID, ids, s.store.MarkUnsaved)
}

func (s *NotificationService) mark(
	ctx context.Context,
	userID string,
	ids []string,
	op func(ctx context.Context, userID string, ids []string) (int64, error),
) (int64, error) {
	if userID == "" {
		return 0, &model.ValidationError{Field: "user", Reason: "must not be empty"}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return op(ctx, userID, ids)
}

// asValidationError converts the first validator failure into the
// service's validation error type
func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &model.ValidationError{Field: verrs[0].Field(), Reason: "failed " + verrs[0].Tag() + " validation"}
	}
	return err
}
