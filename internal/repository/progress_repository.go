package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-marketplace-backend/internal/models"
)

// ErrEnrollmentMissing is returned when progress is written for a course the student is not enrolled in.
var ErrEnrollmentMissing = errors.New("enrollment not found")

type ProgressRepository interface {
	SetCompletion(ctx context.Context, studentID, lessonID uint, state models.CompletionState, at time.Time) (*models.Enrollment, error)
	Recompute(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error)
	ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

// SetCompletion writes the lesson state and the enrollment percentage in one transaction.
// Marking an already completed lesson keeps its original timestamp; unmarking an absent row is a no-op.
func (r *progressRepository) SetCompletion(ctx context.Context, studentID, lessonID uint, state models.CompletionState, at time.Time) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}

	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson models.Lesson
		if err := tx.Select("id", "course_id").First(&lesson, lessonID).Error; err != nil {
			return err
		}

		found, err := loadEnrollment(tx, studentID, lesson.CourseID)
		if err != nil {
			return err
		}
		enrollment = *found

		switch state {
		case models.CompletionCompleted:
			if err := markCompleted(tx, studentID, lessonID, at); err != nil {
				return err
			}
		case models.CompletionNotStarted:
			if err := tx.Model(&models.LessonProgress{}).
				Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
				Updates(map[string]interface{}{
					"status":       models.CompletionNotStarted,
					"completed_at": nil,
					"updated_at":   at,
				}).Error; err != nil {
				return err
			}
		default:
			return errors.New("unknown completion state")
		}

		return recomputeEnrollment(tx, &enrollment)
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *progressRepository) Recompute(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("progress repository is not initialised")
	}

	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := loadEnrollment(tx, studentID, courseID)
		if err != nil {
			return err
		}
		enrollment = *found
		return recomputeEnrollment(tx, &enrollment)
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *progressRepository) ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error) {
	rows := make([]models.LessonProgress, 0)
	if r == nil || r.db == nil {
		return rows, errors.New("progress repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_progress.student_id = ? AND lessons.course_id = ?", studentID, courseID).
		Order("lesson_progress.lesson_id ASC").
		Find(&rows).Error
	return rows, err
}

func loadEnrollment(tx *gorm.DB, studentID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := tx.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentMissing
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func markCompleted(tx *gorm.DB, studentID, lessonID uint, at time.Time) error {
	var existing models.LessonProgress
	err := tx.Where("student_id = ? AND lesson_id = ?", studentID, lessonID).First(&existing).Error
	switch {
	case err == nil && existing.Status == models.CompletionCompleted:
		return nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	completedAt := at
	row := models.LessonProgress{
		StudentID:   studentID,
		LessonID:    lessonID,
		Status:      models.CompletionCompleted,
		CompletedAt: &completedAt,
	}

	// A concurrent insert for the same pair turns into an update on the unique key.
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":       models.CompletionCompleted,
			"completed_at": completedAt,
			"updated_at":   at,
		}),
	}).Create(&row).Error
}

func recomputeEnrollment(tx *gorm.DB, enrollment *models.Enrollment) error {
	var total int64
	if err := tx.Model(&models.Lesson{}).Where("course_id = ?", enrollment.CourseID).Count(&total).Error; err != nil {
		return err
	}

	var completed int64
	err := tx.Model(&models.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_progress.student_id = ? AND lessons.course_id = ? AND lesson_progress.status = ?",
			enrollment.StudentID, enrollment.CourseID, models.CompletionCompleted).
		Count(&completed).Error
	if err != nil {
		return err
	}

	percentage := models.RoundPercent(int(completed), int(total))
	if err := tx.Model(&models.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Update("progress_percentage", percentage).Error; err != nil {
		return err
	}
	enrollment.ProgressPercentage = percentage
	return nil
}
