package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/logger"
	"course-marketplace-backend/pkg/validator"
)

const notificationFeedLimit = 50

// Notifier delivers in-app notifications. Delivery failures are logged and never
// fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification)
}

type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Notify(ctx context.Context, notification models.Notification) {
	if s == nil || s.repo == nil || notification.UserID == 0 {
		return
	}
	notification.ID = 0
	notification.IsRead = false
	notification.Title = strings.TrimSpace(validator.SanitizeString(notification.Title))
	notification.Message = strings.TrimSpace(validator.SanitizeString(notification.Message))

	if err := s.repo.Create(ctx, &notification); err != nil {
		logger.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"user_id": notification.UserID,
			"type":    notification.Type,
		}).Warn("Failed to store notification")
	}
}

// List returns the newest notifications with the unread total across all of them.
func (s *NotificationService) List(ctx context.Context, actor models.Actor) (*models.NotificationFeed, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("notification repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}

	notifications, err := s.repo.ListForUser(ctx, actor.UserID, notificationFeedLimit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &models.NotificationFeed{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id uint) error {
	if s == nil || s.repo == nil {
		return errors.New("notification repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	return s.repo.MarkRead(ctx, actor.UserID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, errors.New("notification repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return 0, ErrAuthRequired
	}
	return s.repo.MarkAllRead(ctx, actor.UserID)
}

func (s *NotificationService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	if s == nil || s.repo == nil {
		return errors.New("notification repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	return s.repo.Delete(ctx, actor.UserID, id)
}

// cleanContent sanitises user text and enforces a non-empty body of at most maxRunes characters.
func cleanContent(raw, field string, maxRunes int) (string, error) {
	if !utf8.ValidString(raw) {
		return "", newValidationError("%s contains invalid characters", field)
	}
	content := strings.TrimSpace(validator.SanitizeHTML(strings.TrimSpace(raw)))
	if content == "" {
		return "", newValidationError("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(content) > maxRunes {
		return "", newValidationError("%s must be at most %d characters", field, maxRunes)
	}
	return content, nil
}
