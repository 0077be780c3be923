package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
)

const maxCommentLength = 2000

type LessonCommentService struct {
	commentRepo    repository.LessonCommentRepository
	lessonRepo     repository.LessonRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	notifier       Notifier
}

func NewLessonCommentService(commentRepo repository.LessonCommentRepository, lessonRepo repository.LessonRepository, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository, notifier Notifier) *LessonCommentService {
	return &LessonCommentService{
		commentRepo:    commentRepo,
		lessonRepo:     lessonRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		notifier:       notifier,
	}
}

func (s *LessonCommentService) List(ctx context.Context, actor models.Actor, lessonID uint) ([]models.LessonComment, error) {
	if _, err := s.discussionAccess(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByLesson(ctx, lessonID)
}

func (s *LessonCommentService) Create(ctx context.Context, actor models.Actor, lessonID uint, req models.LessonCommentRequest) (*models.LessonComment, error) {
	lesson, err := s.discussionAccess(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(req.Content, "comment", maxCommentLength)
	if err != nil {
		return nil, err
	}

	var parent *models.LessonComment
	if req.ParentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, newValidationError("parent comment %d does not exist", *req.ParentID)
			}
			return nil, err
		}
		if parent.LessonID != lesson.ID {
			return nil, newValidationError("parent comment belongs to another lesson")
		}
	}

	comment := &models.LessonComment{
		LessonID: lesson.ID,
		UserID:   actor.UserID,
		Content:  content,
		ParentID: req.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	if parent != nil && parent.UserID != actor.UserID && s.notifier != nil {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  parent.UserID,
			Type:    models.NotificationCommentReply,
			Title:   "New reply in " + lesson.Title,
			Message: preview(content, 140),
			Link:    fmt.Sprintf("/courses/%d/lessons/%d#comment-%d", lesson.CourseID, lesson.ID, comment.ID),
		})
	}
	return comment, nil
}

// Update lets authors edit their own text; nobody else may.
func (s *LessonCommentService) Update(ctx context.Context, actor models.Actor, commentID uint, req models.LessonCommentRequest) (*models.LessonComment, error) {
	if s == nil || s.commentRepo == nil {
		return nil, errors.New("comment repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	content, err := cleanContent(req.Content, "comment", maxCommentLength)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete is open to the author and to admins. Replies go with the comment.
func (s *LessonCommentService) Delete(ctx context.Context, actor models.Actor, commentID uint) error {
	if s == nil || s.commentRepo == nil {
		return errors.New("comment repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return s.commentRepo.Delete(ctx, comment.ID)
}

// discussionAccess admits enrolled students, the course's instructor and admins.
func (s *LessonCommentService) discussionAccess(ctx context.Context, actor models.Actor, lessonID uint) (*models.Lesson, error) {
	if s == nil || s.commentRepo == nil || s.lessonRepo == nil || s.courseRepo == nil || s.enrollmentRepo == nil {
		return nil, errors.New("comment repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}

	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return lesson, nil
	}

	course, err := s.courseRepo.GetByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID == actor.UserID {
		return lesson, nil
	}

	enrolled, err := s.enrollmentRepo.IsEnrolled(ctx, actor.UserID, course.ID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}
	return lesson, nil
}
