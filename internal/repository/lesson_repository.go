package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type LessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Lesson, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error)
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
}

type lessonRepository struct {
	db *gorm.DB
}

func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func (r *lessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if r == nil || r.db == nil {
		return errors.New("lesson repository is not initialised")
	}
	if lesson == nil {
		return errors.New("lesson is required")
	}
	return r.db.WithContext(ctx).Create(lesson).Error
}

func (r *lessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	if r == nil || r.db == nil {
		return errors.New("lesson repository is not initialised")
	}
	if lesson == nil {
		return errors.New("lesson is required")
	}
	return r.db.WithContext(ctx).Save(lesson).Error
}

// Delete soft-deletes the lesson; progress rows stay but no longer count.
func (r *lessonRepository) Delete(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("lesson repository is not initialised")
	}
	result := r.db.WithContext(ctx).Delete(&models.Lesson{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *lessonRepository) GetByID(ctx context.Context, id uint) (*models.Lesson, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("lesson repository is not initialised")
	}
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	lessons := make([]models.Lesson, 0)
	if r == nil || r.db == nil {
		return lessons, errors.New("lesson repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_index ASC, id ASC").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("lesson repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
