package models

import "time"

// Conversation is a thread between participants, optionally about one course.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Subject  string `gorm:"type:varchar(200)" json:"subject,omitempty"`
	CourseID *uint  `gorm:"index" json:"course_id,omitempty"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// ConversationParticipant carries the per-user read flag of a conversation.
type ConversationParticipant struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	ConversationID uint       `gorm:"uniqueIndex:idx_conversation_participant;not null" json:"conversation_id"`
	UserID         uint       `gorm:"uniqueIndex:idx_conversation_participant;index;not null" json:"user_id"`
	IsRead         bool       `gorm:"not null;default:false" json:"is_read"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

type Message struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"index;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
}

// ConversationSummary is one inbox row as seen by a single participant.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	Subject       string     `json:"subject,omitempty"`
	CourseID      *uint      `json:"course_id,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
	OtherUserIDs  []uint     `json:"other_user_ids"`
	LastMessage   *Message   `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	IsRead        bool       `json:"is_read"`
}
