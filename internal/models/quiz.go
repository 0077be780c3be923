package models

import (
	"time"

	"gorm.io/datatypes"
)

type Quiz struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LessonID         uint   `gorm:"uniqueIndex;not null" json:"lesson_id"`
	Title            string `gorm:"not null" json:"title"`
	Description      string `gorm:"type:text" json:"description"`
	PassingScore     int    `gorm:"not null;default:70" json:"passing_score"`
	TimeLimitMinutes *int   `json:"time_limit_minutes,omitempty"`

	Questions []QuizQuestion `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TimeLimit returns zero when the quiz is untimed.
func (q *Quiz) TimeLimit() time.Duration {
	if q == nil || q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute
}

type QuizQuestion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	QuizID        uint                        `gorm:"index;not null" json:"quiz_id"`
	Question      string                      `gorm:"type:text;not null" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"not null" json:"correct_answer"`
	Explanation   string                      `gorm:"type:text" json:"explanation,omitempty"`
	OrderIndex    int                         `gorm:"default:0" json:"order_index"`
}

// HasOption reports an exact, case-sensitive match against the question options.
func (q QuizQuestion) HasOption(option string) bool {
	for _, candidate := range q.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// AttemptAnswers maps question id to the option the student chose.
type AttemptAnswers map[uint]string

// QuizAttempt rows are append-only.
type QuizAttempt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	QuizID    uint                               `gorm:"index;not null" json:"quiz_id"`
	StudentID uint                               `gorm:"index;not null" json:"student_id"`
	Score     int                                `gorm:"not null" json:"score"`
	Answers   datatypes.JSONType[AttemptAnswers] `json:"answers"`
	Passed    bool                               `gorm:"not null" json:"passed"`
}

// StudentQuestion is what a student sees while a quiz is running.
type StudentQuestion struct {
	ID       uint     `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type StudentQuiz struct {
	ID               uint              `json:"id"`
	LessonID         uint              `json:"lesson_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	PassingScore     int               `json:"passing_score"`
	TimeLimitMinutes *int              `json:"time_limit_minutes,omitempty"`
	Questions        []StudentQuestion `json:"questions"`
}

// ForStudent strips correct answers and explanations.
func (q *Quiz) ForStudent() StudentQuiz {
	view := StudentQuiz{
		ID:               q.ID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Questions:        make([]StudentQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		view.Questions = append(view.Questions, StudentQuestion{
			ID:       question.ID,
			Question: question.Question,
			Options:  options,
		})
	}
	return view
}
