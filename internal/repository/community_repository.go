package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
)

type LessonCommentRepository interface {
	Create(ctx context.Context, comment *models.LessonComment) error
	Update(ctx context.Context, comment *models.LessonComment) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.LessonComment, error)
	ListByLesson(ctx context.Context, lessonID uint) ([]models.LessonComment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	Update(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id uint) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Complaint, error)
}

type lessonCommentRepository struct {
	db *gorm.DB
}

type notificationRepository struct {
	db *gorm.DB
}

type complaintRepository struct {
	db *gorm.DB
}

func NewLessonCommentRepository(db *gorm.DB) LessonCommentRepository {
	return &lessonCommentRepository{db: db}
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *lessonCommentRepository) Create(ctx context.Context, comment *models.LessonComment) error {
	if r == nil || r.db == nil {
		return errors.New("comment repository is not initialised")
	}
	if comment == nil {
		return errors.New("comment is required")
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *lessonCommentRepository) Update(ctx context.Context, comment *models.LessonComment) error {
	if r == nil || r.db == nil {
		return errors.New("comment repository is not initialised")
	}
	if comment == nil {
		return errors.New("comment is required")
	}
	return r.db.WithContext(ctx).Save(comment).Error
}

// Delete removes the comment together with the replies beneath it.
func (r *lessonCommentRepository) Delete(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("comment repository is not initialised")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		for frontier := ids; len(frontier) > 0; {
			var children []uint
			if err := tx.Model(&models.LessonComment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		result := tx.Delete(&models.LessonComment{}, ids)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *lessonCommentRepository) GetByID(ctx context.Context, id uint) (*models.LessonComment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("comment repository is not initialised")
	}
	var comment models.LessonComment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByLesson returns the whole thread oldest first; clients nest replies by parent_id.
func (r *lessonCommentRepository) ListByLesson(ctx context.Context, lessonID uint) ([]models.LessonComment, error) {
	comments := make([]models.LessonComment, 0)
	if r == nil || r.db == nil {
		return comments, errors.New("comment repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if r == nil || r.db == nil {
		return errors.New("notification repository is not initialised")
	}
	if notification == nil {
		return errors.New("notification is required")
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	notifications := make([]models.Notification, 0)
	if r == nil || r.db == nil {
		return notifications, errors.New("notification repository is not initialised")
	}
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("notification repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("notification repository is not initialised")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("notification repository is not initialised")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("notification repository is not initialised")
	}
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if r == nil || r.db == nil {
		return errors.New("complaint repository is not initialised")
	}
	if complaint == nil {
		return errors.New("complaint is required")
	}
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *complaintRepository) Update(ctx context.Context, complaint *models.Complaint) error {
	if r == nil || r.db == nil {
		return errors.New("complaint repository is not initialised")
	}
	if complaint == nil {
		return errors.New("complaint is required")
	}
	return r.db.WithContext(ctx).Save(complaint).Error
}

func (r *complaintRepository) GetByID(ctx context.Context, id uint) (*models.Complaint, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("complaint repository is not initialised")
	}
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).First(&complaint, id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	complaints := make([]models.Complaint, 0)
	if r == nil || r.db == nil {
		return complaints, errors.New("complaint repository is not initialised")
	}

	query := r.db.WithContext(ctx).Model(&models.Complaint{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Role != "" {
		query = query.Where("user_role = ?", filter.Role)
	}

	err := query.Order("created_at DESC, id DESC").Find(&complaints).Error
	return complaints, err
}

func (r *complaintRepository) ListByUser(ctx context.Context, userID uint) ([]models.Complaint, error) {
	complaints := make([]models.Complaint, 0)
	if r == nil || r.db == nil {
		return complaints, errors.New("complaint repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&complaints).Error
	return complaints, err
}
