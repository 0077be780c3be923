package models

import (
	"time"

	"course-marketplace-backend/internal/authorization"
)

// LessonComment is a discussion entry under a lesson. Replies point at their parent.
type LessonComment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LessonID uint   `gorm:"index;not null" json:"lesson_id"`
	UserID   uint   `gorm:"index;not null" json:"user_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ParentID *uint  `gorm:"index" json:"parent_id,omitempty"`
}

type NotificationType string

const (
	NotificationMessage         NotificationType = "message"
	NotificationCourseApproved  NotificationType = "course_approved"
	NotificationCourseRejected  NotificationType = "course_rejected"
	NotificationComplaintAnswer NotificationType = "complaint_response"
	NotificationCommentReply    NotificationType = "comment_reply"
)

type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID  uint             `gorm:"index;not null" json:"user_id"`
	Type    NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title   string           `gorm:"type:varchar(200);not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Link    string           `json:"link,omitempty"`
	IsRead  bool             `gorm:"not null;default:false;index" json:"is_read"`
}

type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}

type ComplaintCategory string

const (
	ComplaintCategoryComplaint ComplaintCategory = "complaint"
	ComplaintCategoryInquiry   ComplaintCategory = "inquiry"
	ComplaintCategoryTechnical ComplaintCategory = "technical"
	ComplaintCategoryFeedback  ComplaintCategory = "feedback"
)

func (c ComplaintCategory) IsValid() bool {
	switch c {
	case ComplaintCategoryComplaint, ComplaintCategoryInquiry, ComplaintCategoryTechnical, ComplaintCategoryFeedback:
		return true
	}
	return false
}

type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusClosed     ComplaintStatus = "closed"
)

func (s ComplaintStatus) IsValid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusClosed:
		return true
	}
	return false
}

// Complaint is a support ticket raised by a student or instructor and answered by an admin.
type Complaint struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      uint                   `gorm:"index;not null" json:"user_id"`
	UserRole    authorization.UserRole `gorm:"type:varchar(16);not null" json:"user_role"`
	Subject     string                 `gorm:"type:varchar(200);not null" json:"subject"`
	Description string                 `gorm:"type:text;not null" json:"description"`
	Category    ComplaintCategory      `gorm:"type:varchar(16);not null;index" json:"category"`
	Status      ComplaintStatus        `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`

	AdminResponse string     `gorm:"type:text" json:"admin_response,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	RespondedBy   *uint      `json:"responded_by,omitempty"`
}

type ComplaintFilter struct {
	Status   ComplaintStatus
	Category ComplaintCategory
	Role     authorization.UserRole
}

type InstructorCourseStats struct {
	CourseID      uint         `json:"course_id"`
	Title         string       `json:"title"`
	Status        CourseStatus `json:"status"`
	Students      int64        `json:"students"`
	AverageRating float64      `json:"average_rating"`
	Reviews       int64        `json:"reviews"`
}

type InstructorStatistics struct {
	TotalCourses  int                     `json:"total_courses"`
	TotalStudents int64                   `json:"total_students"`
	AverageRating float64                 `json:"average_rating"`
	Courses       []InstructorCourseStats `json:"courses"`
}
