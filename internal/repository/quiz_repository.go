package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-marketplace-backend/internal/models"
)

type QuizRepository interface {
	Upsert(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetByLessonID(ctx context.Context, lessonID uint) (*models.Quiz, error)

	CreateQuestion(ctx context.Context, question *models.QuizQuestion) error
	UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error
	DeleteQuestion(ctx context.Context, id uint) error
	GetQuestion(ctx context.Context, id uint) (*models.QuizQuestion, error)
	CountQuestions(ctx context.Context, quizID uint) (int64, error)

	// Attempts are append-only.
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	ListAttempts(ctx context.Context, quizID, studentID uint) ([]models.QuizAttempt, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

// Upsert keys the quiz on its lesson and reloads the stored row into quiz.
func (r *quizRepository) Upsert(ctx context.Context, quiz *models.Quiz) error {
	if r == nil || r.db == nil {
		return errors.New("quiz repository is not initialised")
	}
	if quiz == nil {
		return errors.New("quiz is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := clause.Assignments(map[string]interface{}{
			"title":              quiz.Title,
			"description":        quiz.Description,
			"passing_score":      quiz.PassingScore,
			"time_limit_minutes": quiz.TimeLimitMinutes,
			"updated_at":         time.Now().UTC(),
		})

		err := tx.Omit("Questions").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}},
			DoUpdates: assignments,
		}).Create(quiz).Error
		if err != nil {
			return err
		}

		var stored models.Quiz
		if err := tx.Where("lesson_id = ?", quiz.LessonID).First(&stored).Error; err != nil {
			return err
		}
		*quiz = stored
		return nil
	})
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("quiz repository is not initialised")
	}
	var quiz models.Quiz
	if err := r.withQuestions(ctx).First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) GetByLessonID(ctx context.Context, lessonID uint) (*models.Quiz, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("quiz repository is not initialised")
	}
	var quiz models.Quiz
	if err := r.withQuestions(ctx).Where("lesson_id = ?", lessonID).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) withQuestions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Questions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_index ASC, id ASC")
	})
}

func (r *quizRepository) CreateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	if r == nil || r.db == nil {
		return errors.New("quiz repository is not initialised")
	}
	if question == nil {
		return errors.New("question is required")
	}
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *quizRepository) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	if r == nil || r.db == nil {
		return errors.New("quiz repository is not initialised")
	}
	if question == nil {
		return errors.New("question is required")
	}
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *quizRepository) DeleteQuestion(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return errors.New("quiz repository is not initialised")
	}
	result := r.db.WithContext(ctx).Delete(&models.QuizQuestion{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *quizRepository) GetQuestion(ctx context.Context, id uint) (*models.QuizQuestion, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("quiz repository is not initialised")
	}
	var question models.QuizQuestion
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *quizRepository) CountQuestions(ctx context.Context, quizID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("quiz repository is not initialised")
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizQuestion{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *quizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if r == nil || r.db == nil {
		return errors.New("quiz repository is not initialised")
	}
	if attempt == nil {
		return errors.New("attempt is required")
	}
	if attempt.ID != 0 {
		return errors.New("quiz attempts are append-only")
	}
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *quizRepository) ListAttempts(ctx context.Context, quizID, studentID uint) ([]models.QuizAttempt, error) {
	attempts := make([]models.QuizAttempt, 0)
	if r == nil || r.db == nil {
		return attempts, errors.New("quiz repository is not initialised")
	}
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("created_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}
