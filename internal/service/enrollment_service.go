package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/logger"
)

type EnrollmentService struct {
	enrollmentRepo repository.EnrollmentRepository
	courseRepo     repository.CourseRepository
}

func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, courseRepo repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{enrollmentRepo: enrollmentRepo, courseRepo: courseRepo}
}

// Enroll relies on the storage unique key; a second enrollment returns ErrConflict.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, courseID uint) (*models.Enrollment, error) {
	if s == nil || s.enrollmentRepo == nil || s.courseRepo == nil {
		return nil, errors.New("enrollment repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionLearn); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusApproved {
		return nil, gorm.ErrRecordNotFound
	}
	if course.InstructorID == actor.UserID {
		return nil, newValidationError("instructors cannot enroll in their own course")
	}

	enrollment := &models.Enrollment{StudentID: actor.UserID, CourseID: courseID}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"course_id":  courseID,
		"student_id": actor.UserID,
	}).Info("Student enrolled")

	enrollment.Course = course
	return enrollment, nil
}

func (s *EnrollmentService) ListMine(ctx context.Context, actor models.Actor) ([]models.Enrollment, error) {
	if s == nil || s.enrollmentRepo == nil {
		return nil, errors.New("enrollment repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return s.enrollmentRepo.ListByStudent(ctx, actor.UserID)
}

// Require returns the caller's enrollment or ErrNotEnrolled.
func (s *EnrollmentService) Require(ctx context.Context, actor models.Actor, courseID uint) (*models.Enrollment, error) {
	if s == nil || s.enrollmentRepo == nil {
		return nil, errors.New("enrollment repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	enrollment, err := s.enrollmentRepo.GetByStudentAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	return enrollment, nil
}
