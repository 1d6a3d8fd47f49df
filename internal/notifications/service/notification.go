package service

import (
	"context"
	"errors"
	"time"

	notificationserrors "roomly/internal/notifications/errors"
	"roomly/internal/notifications/repository"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
	"roomly/pkg/model"
	"roomly/pkg/sanitizer"
)

type NotificationService interface {
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkDelivered(ctx context.Context, id string) error
	HandleDelivery(ctx context.Context, msg kafka.Message) error
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, log *logger.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	userID = sanitizer.SanitizeID(userID)
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	total, err := s.repo.CountByUser(ctx, userID, unreadOnly)
	if err != nil {
		s.log.Error("Failed to count notifications", "user_id", userID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count notifications", err)
	}

	notifications, err := s.repo.FindByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		s.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve notifications", err)
	}
	return notifications, total, nil
}

// MarkRead stamps read_at once. Marking another user's notification reads as not found.
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	id = sanitizer.SanitizeID(id)
	userID = sanitizer.SanitizeID(userID)
	if id == "" || userID == "" {
		return apperrors.InvalidInput("Notification ID and user ID are required")
	}

	if err := s.repo.MarkRead(ctx, id, userID, s.now().UTC()); err != nil {
		return s.mapError(id, "Failed to mark notification read", err)
	}
	return nil
}

func (s *notificationService) MarkDelivered(ctx context.Context, id string) error {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return apperrors.InvalidInput("Notification ID cannot be empty")
	}

	if err := s.repo.MarkDelivered(ctx, id, s.now().UTC()); err != nil {
		return s.mapError(id, "Failed to mark notification delivered", err)
	}
	return nil
}

// HandleDelivery consumes a published notification event and stamps
// delivered_at. Events for unknown rows are not retried.
func (s *notificationService) HandleDelivery(ctx context.Context, msg kafka.Message) error {
	var event model.NotificationEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("malformed notification event", err)
	}

	err := s.MarkDelivered(ctx, event.NotificationID)
	switch {
	case err == nil:
		s.log.Debug("Notification delivered",
			"notification_id", event.NotificationID,
			"user_id", event.UserID,
			"kind", event.Kind,
			"correlation_id", msg.GetCorrelationID(),
		)
		return nil
	case apperrors.HasCode(err, apperrors.CodeNotFound), apperrors.HasCode(err, apperrors.CodeInvalidInput):
		return kafka.NewPermanentError("notification cannot be delivered", err)
	default:
		return kafka.NewTransientError("failed to record delivery", err)
	}
}

func (s *notificationService) mapError(id, message string, err error) error {
	switch {
	case errors.Is(err, notificationserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Notification", id)
	case errors.Is(err, notificationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid notification ID format")
	default:
		s.log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
