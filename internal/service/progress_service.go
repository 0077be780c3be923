package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/logger"
)

var (
	progressMetricsOnce   sync.Once
	completionWritesTotal *prometheus.CounterVec
)

func initProgressMetrics() {
	progressMetricsOnce.Do(func() {
		completionWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "course_marketplace",
			Subsystem: "progress",
			Name:      "completion_writes_total",
			Help:      "Lesson completion writes by target state and outcome",
		}, []string{"state", "outcome"})
	})
}

// ProgressService tracks per-lesson completion and the enrollment percentage derived from it.
type ProgressService struct {
	progressRepo   repository.ProgressRepository
	enrollmentRepo repository.EnrollmentRepository
	now            func() time.Time
}

func NewProgressService(progressRepo repository.ProgressRepository, enrollmentRepo repository.EnrollmentRepository) *ProgressService {
	initProgressMetrics()
	return &ProgressService{
		progressRepo:   progressRepo,
		enrollmentRepo: enrollmentRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProgressService) MarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error) {
	return s.setCompletion(ctx, actor, lessonID, models.CompletionCompleted)
}

func (s *ProgressService) UnmarkLessonComplete(ctx context.Context, actor models.Actor, lessonID uint) (*models.Enrollment, error) {
	return s.setCompletion(ctx, actor, lessonID, models.CompletionNotStarted)
}

func (s *ProgressService) setCompletion(ctx context.Context, actor models.Actor, lessonID uint, state models.CompletionState) (*models.Enrollment, error) {
	if s == nil || s.progressRepo == nil {
		return nil, errors.New("progress repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionLearn); err != nil {
		return nil, err
	}

	enrollment, err := s.progressRepo.SetCompletion(ctx, actor.UserID, lessonID, state, s.now())
	if err != nil {
		completionWritesTotal.WithLabelValues(string(state), "error").Inc()
		if errors.Is(err, repository.ErrEnrollmentMissing) {
			return nil, ErrNotEnrolled
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
				"student_id": actor.UserID,
				"lesson_id":  lessonID,
				"state":      state,
			}).Error("Failed to write lesson completion")
		}
		return nil, err
	}

	completionWritesTotal.WithLabelValues(string(state), "ok").Inc()
	return enrollment, nil
}

// RecomputeProgress rewrites the stored percentage from the current completion rows and lesson count.
func (s *ProgressService) RecomputeProgress(ctx context.Context, studentID, courseID uint) (*models.Enrollment, error) {
	if s == nil || s.progressRepo == nil {
		return nil, errors.New("progress repository is not configured")
	}
	enrollment, err := s.progressRepo.Recompute(ctx, studentID, courseID)
	if errors.Is(err, repository.ErrEnrollmentMissing) {
		return nil, ErrNotEnrolled
	}
	return enrollment, err
}

func (s *ProgressService) ListCompletions(ctx context.Context, studentID, courseID uint) ([]models.LessonProgress, error) {
	if s == nil || s.progressRepo == nil {
		return nil, errors.New("progress repository is not configured")
	}
	return s.progressRepo.ListCompletions(ctx, studentID, courseID)
}

// ReconcileProgress recomputes every enrollment, or those of one course when courseID is non-zero.
// It keeps going past individual failures and returns the first one.
func (s *ProgressService) ReconcileProgress(ctx context.Context, courseID uint) (int, error) {
	if s == nil || s.progressRepo == nil || s.enrollmentRepo == nil {
		return 0, errors.New("progress repository is not configured")
	}

	enrollments, err := s.enrollmentRepo.ListForReconcile(ctx, courseID)
	if err != nil {
		return 0, err
	}

	updated := 0
	var firstErr error
	for _, enrollment := range enrollments {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		result, err := s.progressRepo.Recompute(ctx, enrollment.StudentID, enrollment.CourseID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result.ProgressPercentage != enrollment.ProgressPercentage {
			updated++
		}
	}

	if updated > 0 {
		logger.Info("Reconciled enrollment progress", map[string]interface{}{
			"course_id": courseID,
			"checked":   len(enrollments),
			"updated":   updated,
		})
	}
	return updated, firstErr
}
