package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if r == nil || r.db == nil {
		return errors.New("category repository is not initialised")
	}
	if category == nil {
		return errors.New("category is required")
	}
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("category repository is not initialised")
	}
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0)
	if r == nil || r.db == nil {
		return categories, errors.New("category repository is not initialised")
	}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("category repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
