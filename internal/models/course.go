package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseStatusDraft    CourseStatus = "draft"
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
	CourseStatusRejected CourseStatus = "rejected"
)

func (s CourseStatus) IsValid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPending, CourseStatusApproved, CourseStatusRejected:
		return true
	}
	return false
}

type CourseLevel string

const (
	CourseLevelBeginner     CourseLevel = "beginner"
	CourseLevelIntermediate CourseLevel = "intermediate"
	CourseLevelAdvanced     CourseLevel = "advanced"
)

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`
}

type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title         string       `gorm:"not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	Price         float64      `gorm:"type:decimal(10,2);default:0" json:"price"`
	Level         CourseLevel  `gorm:"type:varchar(32);not null;default:'beginner'" json:"level"`
	DurationHours int          `gorm:"default:0" json:"duration_hours"`
	ThumbnailURL  string       `json:"thumbnail_url,omitempty"`
	Status        CourseStatus `gorm:"type:varchar(16);index;not null;default:'draft'" json:"status"`

	CategoryID   *uint     `gorm:"index" json:"category_id,omitempty"`
	Category     *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	InstructorID uint      `gorm:"index;not null" json:"instructor_id"`

	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy      *uint      `json:"reviewed_by,omitempty"`

	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

// CourseReviewHistory is the audit trail of moderation decisions.
type CourseReviewHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CourseID   uint         `gorm:"index;not null" json:"course_id"`
	ReviewerID uint         `gorm:"not null" json:"reviewer_id"`
	Action     CourseStatus `gorm:"type:varchar(16);not null" json:"action"`
	Reason     string       `gorm:"type:text" json:"reason,omitempty"`
}

func (CourseReviewHistory) TableName() string {
	return "course_review_history"
}

type CourseFilter struct {
	Search     string
	CategoryID *uint
	Level      CourseLevel
	Status     CourseStatus
	Limit      int
	Offset     int
}

type CourseStatistics struct {
	Draft       int64 `json:"draft"`
	Pending     int64 `json:"pending"`
	Approved    int64 `json:"approved"`
	Rejected    int64 `json:"rejected"`
	Enrollments int64 `json:"enrollments"`
}
