package service

import (
	"context"
	"errors"
	"strings"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/cache"
	"course-marketplace-backend/pkg/logger"
	"course-marketplace-backend/pkg/validator"
)

// ProgressReconciler queues a recompute of every enrollment in a course.
type ProgressReconciler interface {
	ScheduleCourseReconcile(courseID uint)
}

type LessonService struct {
	lessonRepo repository.LessonRepository
	courseRepo repository.CourseRepository
	reconciler ProgressReconciler
	cache      *cache.Cache
}

func NewLessonService(lessonRepo repository.LessonRepository, courseRepo repository.CourseRepository, cacheService *cache.Cache) *LessonService {
	return &LessonService{
		lessonRepo: lessonRepo,
		courseRepo: courseRepo,
		cache:      cacheService,
	}
}

func (s *LessonService) SetReconciler(reconciler ProgressReconciler) {
	if s == nil {
		return
	}
	s.reconciler = reconciler
}

// ListByCourse returns lessons ordered by order_index then id.
func (s *LessonService) ListByCourse(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	if s == nil || s.lessonRepo == nil {
		return nil, errors.New("lesson repository is not configured")
	}
	return s.lessonRepo.ListByCourse(ctx, courseID)
}

func (s *LessonService) Create(ctx context.Context, actor models.Actor, courseID uint, req models.CreateLessonRequest) (*models.Lesson, error) {
	if s == nil || s.lessonRepo == nil || s.courseRepo == nil {
		return nil, errors.New("lesson repository is not configured")
	}
	if err := s.authorize(ctx, actor, courseID); err != nil {
		return nil, err
	}

	title := validator.NormalizeSpaces(validator.SanitizeString(req.Title))
	if title == "" {
		return nil, newValidationError("lesson title is required")
	}
	if !validator.IsLessonType(string(req.Type)) {
		return nil, newValidationError("unknown lesson type %q", req.Type)
	}
	if req.DurationMinutes < 0 {
		return nil, newValidationError("duration cannot be negative")
	}
	if !validator.ValidateMediaURL(req.VideoURL) || !validator.ValidateMediaURL(req.PDFURL) {
		return nil, newValidationError("media URLs must be http(s)")
	}

	orderIndex := 0
	if req.OrderIndex != nil {
		if *req.OrderIndex < 0 {
			return nil, newValidationError("order index cannot be negative")
		}
		orderIndex = *req.OrderIndex
	} else {
		count, err := s.lessonRepo.CountByCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		orderIndex = int(count)
	}

	lesson := &models.Lesson{
		CourseID:        courseID,
		Title:           title,
		Description:     strings.TrimSpace(validator.SanitizeString(req.Description)),
		Type:            req.Type,
		OrderIndex:      orderIndex,
		DurationMinutes: req.DurationMinutes,
		VideoURL:        strings.TrimSpace(req.VideoURL),
		PDFURL:          strings.TrimSpace(req.PDFURL),
		Content:         validator.SanitizeHTML(req.Content),
	}
	if err := s.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, err
	}

	s.lessonSetChanged(courseID)
	return lesson, nil
}

func (s *LessonService) Update(ctx context.Context, actor models.Actor, lessonID uint, req models.UpdateLessonRequest) (*models.Lesson, error) {
	if s == nil || s.lessonRepo == nil || s.courseRepo == nil {
		return nil, errors.New("lesson repository is not configured")
	}
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := validator.NormalizeSpaces(validator.SanitizeString(*req.Title))
		if title == "" {
			return nil, newValidationError("lesson title is required")
		}
		lesson.Title = title
	}
	if req.Description != nil {
		lesson.Description = strings.TrimSpace(validator.SanitizeString(*req.Description))
	}
	if req.Type != nil {
		if !validator.IsLessonType(string(*req.Type)) {
			return nil, newValidationError("unknown lesson type %q", *req.Type)
		}
		lesson.Type = *req.Type
	}
	if req.OrderIndex != nil {
		if *req.OrderIndex < 0 {
			return nil, newValidationError("order index cannot be negative")
		}
		lesson.OrderIndex = *req.OrderIndex
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < 0 {
			return nil, newValidationError("duration cannot be negative")
		}
		lesson.DurationMinutes = *req.DurationMinutes
	}
	if req.VideoURL != nil {
		if !validator.ValidateMediaURL(*req.VideoURL) {
			return nil, newValidationError("media URLs must be http(s)")
		}
		lesson.VideoURL = strings.TrimSpace(*req.VideoURL)
	}
	if req.PDFURL != nil {
		if !validator.ValidateMediaURL(*req.PDFURL) {
			return nil, newValidationError("media URLs must be http(s)")
		}
		lesson.PDFURL = strings.TrimSpace(*req.PDFURL)
	}
	if req.Content != nil {
		lesson.Content = validator.SanitizeHTML(*req.Content)
	}

	if err := s.lessonRepo.Update(ctx, lesson); err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateCourse(lesson.CourseID); err != nil {
		logger.Warn("Failed to invalidate course cache", map[string]interface{}{"course_id": lesson.CourseID, "error": err.Error()})
	}
	return lesson, nil
}

func (s *LessonService) Delete(ctx context.Context, actor models.Actor, lessonID uint) error {
	if s == nil || s.lessonRepo == nil || s.courseRepo == nil {
		return errors.New("lesson repository is not configured")
	}
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, lesson.CourseID); err != nil {
		return err
	}
	if err := s.lessonRepo.Delete(ctx, lessonID); err != nil {
		return err
	}

	s.lessonSetChanged(lesson.CourseID)
	return nil
}

func (s *LessonService) authorize(ctx context.Context, actor models.Actor, courseID uint) error {
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	return authorizeCourseOwner(actor, course)
}

// lessonSetChanged runs whenever the lesson count of a course moves.
func (s *LessonService) lessonSetChanged(courseID uint) {
	if err := s.cache.InvalidateCourse(courseID); err != nil {
		logger.Warn("Failed to invalidate course cache", map[string]interface{}{"course_id": courseID, "error": err.Error()})
	}
	if s.reconciler != nil {
		s.reconciler.ScheduleCourseReconcile(courseID)
	}
}
