package service

import (
	"context"
	"errors"
	"testing"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
)

func TestMarkLessonCompleteMapsMissingEnrollment(t *testing.T) {
	progressRepo := &stubProgressRepository{err: repository.ErrEnrollmentMissing}
	svc := NewProgressService(progressRepo, &stubEnrollmentRepository{})

	if _, err := svc.MarkLessonComplete(context.Background(), studentActor, 3); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestMarkLessonCompleteRequiresLearner(t *testing.T) {
	progressRepo := &stubProgressRepository{}
	svc := NewProgressService(progressRepo, &stubEnrollmentRepository{})
	ctx := context.Background()

	if _, err := svc.MarkLessonComplete(ctx, anonymousActor, 3); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if _, err := svc.MarkLessonComplete(ctx, adminActor, 3); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected admins to be forbidden, got %v", err)
	}
	if progressRepo.calls != 0 {
		t.Fatalf("rejected calls must not reach storage")
	}

	enrollment, err := svc.MarkLessonComplete(ctx, studentActor, 3)
	if err != nil || enrollment.ProgressPercentage != 100 {
		t.Fatalf("unexpected mark result %+v err=%v", enrollment, err)
	}
	enrollment, err = svc.UnmarkLessonComplete(ctx, studentActor, 3)
	if err != nil || enrollment.ProgressPercentage != 0 {
		t.Fatalf("unexpected unmark result %+v err=%v", enrollment, err)
	}
}

func TestMarkLessonCompleteSurfacesStorageErrors(t *testing.T) {
	storageErr := errors.New("connection reset")
	svc := NewProgressService(&stubProgressRepository{err: storageErr}, &stubEnrollmentRepository{})

	if _, err := svc.MarkLessonComplete(context.Background(), studentActor, 3); !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error to surface, got %v", err)
	}
}

func TestReconcileProgressCountsChangedEnrollments(t *testing.T) {
	enrollments := &stubEnrollmentRepository{enrollments: []models.Enrollment{
		{StudentID: 10, CourseID: 1, ProgressPercentage: 50},
		{StudentID: 11, CourseID: 1, ProgressPercentage: 40},
		{StudentID: 12, CourseID: 2, ProgressPercentage: 0},
	}}
	progressRepo := &stubProgressRepository{recomputed: map[uint]int{10: 50, 11: 60, 12: 100}}
	svc := NewProgressService(progressRepo, enrollments)

	updated, err := svc.ReconcileProgress(context.Background(), 1)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected one changed enrollment in course 1, got %d", updated)
	}

	updated, err = svc.ReconcileProgress(context.Background(), 0)
	if err != nil || updated != 2 {
		t.Fatalf("expected two changed enrollments overall, got %d err=%v", updated, err)
	}
}
