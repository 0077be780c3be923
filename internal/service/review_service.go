package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/validator"
)

type ReviewService struct {
	reviewRepo     repository.ReviewRepository
	enrollmentRepo repository.EnrollmentRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, enrollmentRepo repository.EnrollmentRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, enrollmentRepo: enrollmentRepo}
}

func (s *ReviewService) Create(ctx context.Context, actor models.Actor, courseID uint, req models.ReviewRequest) (*models.Review, error) {
	if s == nil || s.reviewRepo == nil || s.enrollmentRepo == nil {
		return nil, errors.New("review repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	enrolled, err := s.enrollmentRepo.IsEnrolled(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	review := &models.Review{
		CourseID:  courseID,
		StudentID: actor.UserID,
		Rating:    req.Rating,
		Comment:   validator.SanitizeHTML(strings.TrimSpace(req.Comment)),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, actor models.Actor, reviewID uint, req models.ReviewRequest) (*models.Review, error) {
	review, err := s.ownedReview(ctx, actor, reviewID)
	if err != nil {
		return nil, err
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	review.Rating = req.Rating
	review.Comment = validator.SanitizeHTML(strings.TrimSpace(req.Comment))
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor models.Actor, reviewID uint) error {
	review, err := s.ownedReview(ctx, actor, reviewID)
	if err != nil {
		return err
	}
	return s.reviewRepo.Delete(ctx, review.ID)
}

func (s *ReviewService) ListByCourse(ctx context.Context, courseID uint) (*models.ReviewSummary, error) {
	if s == nil || s.reviewRepo == nil {
		return nil, errors.New("review repository is not configured")
	}
	reviews, err := s.reviewRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	average, _, err := s.reviewRepo.AverageRating(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &models.ReviewSummary{
		Reviews:       reviews,
		AverageRating: math.Round(average*10) / 10,
		Count:         len(reviews),
	}, nil
}

// ownedReview allows the author or an admin.
func (s *ReviewService) ownedReview(ctx context.Context, actor models.Actor, reviewID uint) (*models.Review, error) {
	if s == nil || s.reviewRepo == nil {
		return nil, errors.New("review repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.StudentID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return review, nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return newValidationError("rating must be between 1 and 5")
	}
	return nil
}
