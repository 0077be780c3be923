package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	GetWithLessons(ctx context.Context, id uint) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int64, error)
	ListByInstructor(ctx context.Context, instructorID uint) ([]models.Course, error)
	ChangeStatus(ctx context.Context, course *models.Course, entry *models.CourseReviewHistory) error
	ListReviewHistory(ctx context.Context, courseID uint) ([]models.CourseReviewHistory, error)
	CountByStatus(ctx context.Context) (map[models.CourseStatus]int64, error)
	InstructorStats(ctx context.Context, instructorID uint) ([]models.InstructorCourseStats, error)
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}
	return r.db.WithContext(ctx).Omit("Category", "Lessons").Save(course).Error
}

func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	result := r.db.WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var course models.Course
	if err := r.db.WithContext(ctx).Preload("Category").First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetWithLessons(ctx context.Context, id uint) (*models.Course, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("course repository is not initialised")
	}
	var course models.Course
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Lessons", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_index ASC, id ASC")
		}).
		First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int64, error) {
	courses := make([]models.Course, 0)
	if r == nil || r.db == nil {
		return courses, 0, errors.New("course repository is not initialised")
	}

	query := r.db.WithContext(ctx).Model(&models.Course{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return courses, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Preload("Category").Order("created_at DESC, id DESC").Find(&courses).Error
	return courses, total, err
}

func (r *courseRepository) ListByInstructor(ctx context.Context, instructorID uint) ([]models.Course, error) {
	courses := make([]models.Course, 0)
	if r == nil || r.db == nil {
		return courses, errors.New("course repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("instructor_id = ?", instructorID).
		Order("created_at DESC, id DESC").
		Find(&courses).Error
	return courses, err
}

// ChangeStatus writes the moderation columns and the audit entry atomically.
func (r *courseRepository) ChangeStatus(ctx context.Context, course *models.Course, entry *models.CourseReviewHistory) error {
	if r == nil || r.db == nil {
		return errors.New("course repository is not initialised")
	}
	if course == nil {
		return errors.New("course is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Course{}).
			Where("id = ?", course.ID).
			Updates(map[string]interface{}{
				"status":           course.Status,
				"rejection_reason": course.RejectionReason,
				"submitted_at":     course.SubmittedAt,
				"reviewed_at":      course.ReviewedAt,
				"reviewed_by":      course.ReviewedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if entry == nil {
			return nil
		}
		entry.CourseID = course.ID
		return tx.Create(entry).Error
	})
}

func (r *courseRepository) ListReviewHistory(ctx context.Context, courseID uint) ([]models.CourseReviewHistory, error) {
	history := make([]models.CourseReviewHistory, 0)
	if r == nil || r.db == nil {
		return history, errors.New("course repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&history).Error
	return history, err
}

func (r *courseRepository) CountByStatus(ctx context.Context) (map[models.CourseStatus]int64, error) {
	counts := make(map[models.CourseStatus]int64)
	if r == nil || r.db == nil {
		return counts, errors.New("course repository is not initialised")
	}

	type statusCount struct {
		Status models.CourseStatus
		Total  int64
	}

	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}

	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// InstructorStats reports enrollment and rating figures for every live course of one instructor.
func (r *courseRepository) InstructorStats(ctx context.Context, instructorID uint) ([]models.InstructorCourseStats, error) {
	stats := make([]models.InstructorCourseStats, 0)
	if r == nil || r.db == nil {
		return stats, errors.New("course repository is not initialised")
	}

	var rows []struct {
		CourseID      uint
		Title         string
		Status        models.CourseStatus
		Students      int64
		AverageRating *float64
		Reviews       int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Select(`courses.id AS course_id, courses.title, courses.status,
			(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id) AS students,
			(SELECT AVG(rating) FROM reviews WHERE reviews.course_id = courses.id) AS average_rating,
			(SELECT COUNT(*) FROM reviews WHERE reviews.course_id = courses.id) AS reviews`).
		Where("courses.instructor_id = ?", instructorID).
		Order("courses.created_at DESC, courses.id DESC").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, row := range rows {
		entry := models.InstructorCourseStats{
			CourseID: row.CourseID,
			Title:    row.Title,
			Status:   row.Status,
			Students: row.Students,
			Reviews:  row.Reviews,
		}
		if row.AverageRating != nil {
			entry.AverageRating = *row.AverageRating
		}
		stats = append(stats, entry)
	}
	return stats, nil
}
