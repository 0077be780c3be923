package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/validator"
)

const maxMessageLength = 5000

type MessagingService struct {
	repo       repository.MessagingRepository
	courseRepo repository.CourseRepository
	notifier   Notifier
	now        func() time.Time
}

func NewMessagingService(repo repository.MessagingRepository, courseRepo repository.CourseRepository, notifier Notifier) *MessagingService {
	return &MessagingService{
		repo:       repo,
		courseRepo: courseRepo,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *MessagingService) ListConversations(ctx context.Context, actor models.Actor) ([]models.ConversationSummary, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("messaging repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return s.repo.ListForUser(ctx, actor.UserID)
}

// StartConversation reuses a thread the two users already share, otherwise opens a new one.
// A non-empty opening message is posted either way.
func (s *MessagingService) StartConversation(ctx context.Context, actor models.Actor, req models.StartConversationRequest) (*models.Conversation, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("messaging repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	if req.RecipientID == 0 {
		return nil, newValidationError("a recipient is required")
	}
	if req.RecipientID == actor.UserID {
		return nil, newValidationError("cannot start a conversation with yourself")
	}

	conversation, err := s.repo.FindSharedConversation(ctx, actor.UserID, req.RecipientID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.ensureCourse(ctx, req.CourseID); err != nil {
			return nil, err
		}
		now := s.now()
		conversation = &models.Conversation{
			CreatedAt: now,
			UpdatedAt: now,
			Subject:   strings.TrimSpace(validator.SanitizeString(req.Subject)),
			CourseID:  req.CourseID,
		}
		if err := s.repo.CreateConversation(ctx, conversation, actor.UserID, []uint{req.RecipientID}); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if strings.TrimSpace(req.Message) != "" {
		if _, err := s.SendMessage(ctx, actor, conversation.ID, models.SendMessageRequest{Content: req.Message}); err != nil {
			return nil, err
		}
	}
	return conversation, nil
}

func (s *MessagingService) Messages(ctx context.Context, actor models.Actor, conversationID uint) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

func (s *MessagingService) SendMessage(ctx context.Context, actor models.Actor, conversationID uint, req models.SendMessageRequest) (*models.Message, error) {
	conversation, err := s.participantConversation(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(req.Content, "message", maxMessageLength)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       actor.UserID,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		title := "New message"
		if conversation.Subject != "" {
			title = "New message: " + conversation.Subject
		}
		for _, participant := range conversation.Participants {
			if participant.UserID == actor.UserID {
				continue
			}
			s.notifier.Notify(ctx, models.Notification{
				UserID:  participant.UserID,
				Type:    models.NotificationMessage,
				Title:   title,
				Message: preview(content, 140),
				Link:    fmt.Sprintf("/messages/%d", conversation.ID),
			})
		}
	}
	return message, nil
}

// DeleteMessage removes one of the caller's own messages.
func (s *MessagingService) DeleteMessage(ctx context.Context, actor models.Actor, messageID uint) error {
	if s == nil || s.repo == nil {
		return errors.New("messaging repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	message, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != actor.UserID {
		return ErrForbidden
	}
	return s.repo.DeleteMessage(ctx, message.ID)
}

func (s *MessagingService) MarkRead(ctx context.Context, actor models.Actor, conversationID uint) error {
	if _, err := s.participantConversation(ctx, actor, conversationID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conversationID, actor.UserID, s.now())
}

// participantConversation loads the conversation and rejects callers outside it.
func (s *MessagingService) participantConversation(ctx context.Context, actor models.Actor, conversationID uint) (*models.Conversation, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("messaging repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, participant := range conversation.Participants {
		if participant.UserID == actor.UserID {
			return conversation, nil
		}
	}
	return nil, ErrForbidden
}

func (s *MessagingService) ensureCourse(ctx context.Context, courseID *uint) error {
	if courseID == nil {
		return nil
	}
	if s.courseRepo == nil {
		return errors.New("course repository is not configured")
	}
	if _, err := s.courseRepo.GetByID(ctx, *courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newValidationError("course %d does not exist", *courseID)
		}
		return err
	}
	return nil
}

func preview(content string, limit int) string {
	plain := validator.NormalizeSpaces(validator.SanitizeString(content))
	runes := []rune(plain)
	if len(runes) <= limit {
		return plain
	}
	return string(runes[:limit]) + "..."
}
