package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error)
	IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
	ListForReconcile(ctx context.Context, courseID uint) ([]models.Enrollment, error)
	Count(ctx context.Context) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// Create relies on the (student_id, course_id) unique index to reject duplicates.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if r == nil || r.db == nil {
		return errors.New("enrollment repository is not initialised")
	}
	if enrollment == nil {
		return errors.New("enrollment is required")
	}
	return r.db.WithContext(ctx).Omit("Course").Create(enrollment).Error
}

func (r *enrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("enrollment repository is not initialised")
	}
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("enrollment repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	enrollments := make([]models.Enrollment, 0)
	if r == nil || r.db == nil {
		return enrollments, errors.New("enrollment repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Category").
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// ListForReconcile returns every enrollment, or only those of courseID when it is non-zero.
func (r *enrollmentRepository) ListForReconcile(ctx context.Context, courseID uint) ([]models.Enrollment, error) {
	enrollments := make([]models.Enrollment, 0)
	if r == nil || r.db == nil {
		return enrollments, errors.New("enrollment repository is not initialised")
	}
	query := r.db.WithContext(ctx).Select("id", "student_id", "course_id", "progress_percentage")
	if courseID != 0 {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("id ASC").Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("enrollment repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).Count(&count).Error
	return count, err
}
