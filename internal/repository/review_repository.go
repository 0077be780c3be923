package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-marketplace-backend/internal/models"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Review, error)
	AverageRating(ctx context.Context, courseID uint) (float64, int64, error)
}

type WishlistRepository interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	Remove(ctx context.Context, studentID, courseID uint) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.WishlistItem, error)
}

type reviewRepository struct {
	db *gorm.DB
}

type wishlistRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	if review == nil {
		return errors.New("review is required")
	}
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	if review == nil {
		return errors.New("review is required")
	}
	return r.db.WithContext(ctx).Save(review).Error
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("review repository is not initialised")
	}
	result := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("review repository is not initialised")
	}
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	if r == nil || r.db == nil {
		return reviews, errors.New("review repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) AverageRating(ctx context.Context, courseID uint) (float64, int64, error) {
	if r == nil || r.db == nil {
		return 0, 0, errors.New("review repository is not initialised")
	}

	var row struct {
		Average *float64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("course_id = ?", courseID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Average == nil {
		return 0, row.Total, nil
	}
	return *row.Average, row.Total, nil
}

func (r *wishlistRepository) Add(ctx context.Context, item *models.WishlistItem) error {
	if r == nil || r.db == nil {
		return errors.New("wishlist repository is not initialised")
	}
	if item == nil {
		return errors.New("wishlist item is required")
	}
	return r.db.WithContext(ctx).Omit("Course").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (r *wishlistRepository) Remove(ctx context.Context, studentID, courseID uint) error {
	if r == nil || r.db == nil {
		return errors.New("wishlist repository is not initialised")
	}
	return r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&models.WishlistItem{}).Error
}

func (r *wishlistRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.WishlistItem, error) {
	items := make([]models.WishlistItem, 0)
	if r == nil || r.db == nil {
		return items, errors.New("wishlist repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	return items, err
}
