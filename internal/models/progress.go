package models

import "time"

type CompletionState string

const (
	CompletionNotStarted CompletionState = "not_started"
	CompletionCompleted  CompletionState = "completed"
)

type Enrollment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentID          uint `gorm:"uniqueIndex:idx_enrollment_student_course;not null" json:"student_id"`
	CourseID           uint `gorm:"uniqueIndex:idx_enrollment_student_course;index;not null" json:"course_id"`
	ProgressPercentage int  `gorm:"not null;default:0" json:"progress_percentage"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// LessonProgress is keyed by (student, lesson); unmarking flips Status instead of deleting the row.
type LessonProgress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentID   uint            `gorm:"uniqueIndex:idx_progress_student_lesson;not null" json:"student_id"`
	LessonID    uint            `gorm:"uniqueIndex:idx_progress_student_lesson;index;not null" json:"lesson_id"`
	Status      CompletionState `gorm:"type:varchar(16);not null;default:'not_started'" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

type LessonKey struct {
	StudentID uint
	LessonID  uint
}
