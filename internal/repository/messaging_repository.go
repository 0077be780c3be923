package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type MessagingRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation, initiatorID uint, recipientIDs []uint) error
	FindSharedConversation(ctx context.Context, userID, otherID uint) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error

	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uint) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id uint) error
}

type messagingRepository struct {
	db *gorm.DB
}

func NewMessagingRepository(db *gorm.DB) MessagingRepository {
	return &messagingRepository{db: db}
}

// CreateConversation stores the thread and its participants together. The initiator starts read.
func (r *messagingRepository) CreateConversation(ctx context.Context, conversation *models.Conversation, initiatorID uint, recipientIDs []uint) error {
	if r == nil || r.db == nil {
		return errors.New("messaging repository is not initialised")
	}
	if conversation == nil {
		return errors.New("conversation is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants").Create(conversation).Error; err != nil {
			return err
		}

		now := conversation.CreatedAt
		participants := make([]models.ConversationParticipant, 0, len(recipientIDs)+1)
		participants = append(participants, models.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         initiatorID,
			IsRead:         true,
			LastReadAt:     &now,
		})
		for _, id := range recipientIDs {
			participants = append(participants, models.ConversationParticipant{ConversationID: conversation.ID, UserID: id})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}
		conversation.Participants = participants
		return nil
	})
}

// FindSharedConversation returns the most recently active thread both users take part in.
func (r *messagingRepository) FindSharedConversation(ctx context.Context, userID, otherID uint) (*models.Conversation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("messaging repository is not initialised")
	}

	shared := r.db.Model(&models.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ?", otherID)

	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND conversations.id IN (?)", userID, shared).
		Order("conversations.updated_at DESC, conversations.id DESC").
		Preload("Participants").
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *messagingRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("messaging repository is not initialised")
	}
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Preload("Participants").First(&conversation, id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListForUser builds the inbox: newest activity first, each row with the other
// participants, the latest message and the caller's read flag.
func (r *messagingRepository) ListForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	summaries := make([]models.ConversationSummary, 0)
	if r == nil || r.db == nil {
		return summaries, errors.New("messaging repository is not initialised")
	}

	db := r.db.WithContext(ctx)

	var rows []struct {
		ID        uint
		Subject   string
		CourseID  *uint
		UpdatedAt time.Time
		IsRead    bool
	}
	err := db.Model(&models.Conversation{}).
		Select("conversations.id, conversations.subject, conversations.course_id, conversations.updated_at, cp.is_read").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("conversations.updated_at DESC, conversations.id DESC").
		Scan(&rows).Error
	if err != nil {
		return summaries, err
	}
	if len(rows) == 0 {
		return summaries, nil
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var others []models.ConversationParticipant
	if err := db.Where("conversation_id IN ? AND user_id <> ?", ids, userID).
		Order("id ASC").
		Find(&others).Error; err != nil {
		return summaries, err
	}
	othersByConversation := make(map[uint][]uint, len(rows))
	for _, p := range others {
		othersByConversation[p.ConversationID] = append(othersByConversation[p.ConversationID], p.UserID)
	}

	latestIDs := db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", ids).
		Group("conversation_id")
	var latest []models.Message
	if err := db.Where("id IN (?)", latestIDs).Find(&latest).Error; err != nil {
		return summaries, err
	}
	latestByConversation := make(map[uint]models.Message, len(latest))
	for _, m := range latest {
		latestByConversation[m.ConversationID] = m
	}

	for _, row := range rows {
		summary := models.ConversationSummary{
			ID:           row.ID,
			Subject:      row.Subject,
			CourseID:     row.CourseID,
			UpdatedAt:    row.UpdatedAt,
			OtherUserIDs: othersByConversation[row.ID],
			IsRead:       row.IsRead,
		}
		if summary.OtherUserIDs == nil {
			summary.OtherUserIDs = make([]uint, 0)
		}
		if m, ok := latestByConversation[row.ID]; ok {
			message := m
			summary.LastMessage = &message
			summary.LastMessageAt = &message.CreatedAt
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *messagingRepository) MarkRead(ctx context.Context, conversationID, userID uint, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("messaging repository is not initialised")
	}
	result := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{"is_read": true, "last_read_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateMessage appends to the thread, bumps its activity time and flips every
// other participant to unread, all in one transaction.
func (r *messagingRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if r == nil || r.db == nil {
		return errors.New("messaging repository is not initialised")
	}
	if message == nil {
		return errors.New("message is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			UpdateColumn("updated_at", message.CreatedAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id <> ?", message.ConversationID, message.SenderID).
			Update("is_read", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", message.ConversationID, message.SenderID).
			Updates(map[string]interface{}{"is_read": true, "last_read_at": message.CreatedAt}).Error
	})
}

func (r *messagingRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("messaging repository is not initialised")
	}
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messagingRepository) ListMessages(ctx context.Context, conversationID uint) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	if r == nil || r.db == nil {
		return messages, errors.New("messaging repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messagingRepository) DeleteMessage(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("messaging repository is not initialised")
	}
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
