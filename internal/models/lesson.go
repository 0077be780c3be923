package models

import (
	"time"

	"gorm.io/gorm"
)

type LessonType string

const (
	LessonTypeVideo LessonType = "video"
	LessonTypeText  LessonType = "text"
	LessonTypePDF   LessonType = "pdf"
	LessonTypeQuiz  LessonType = "quiz"
)

// Lesson order is by OrderIndex then ID; duplicate indexes are allowed.
type Lesson struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CourseID        uint       `gorm:"index;not null" json:"course_id"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Type            LessonType `gorm:"type:varchar(16);not null" json:"type"`
	OrderIndex      int        `gorm:"index;default:0" json:"order_index"`
	DurationMinutes int        `gorm:"default:0" json:"duration_minutes"`
	VideoURL        string     `json:"video_url,omitempty"`
	PDFURL          string     `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	Content         string     `gorm:"type:text" json:"content,omitempty"`
}
