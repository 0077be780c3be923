package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
)

type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	courseRepo   repository.CourseRepository
}

func NewWishlistService(wishlistRepo repository.WishlistRepository, courseRepo repository.CourseRepository) *WishlistService {
	return &WishlistService{wishlistRepo: wishlistRepo, courseRepo: courseRepo}
}

func (s *WishlistService) Add(ctx context.Context, actor models.Actor, courseID uint) error {
	if s == nil || s.wishlistRepo == nil || s.courseRepo == nil {
		return errors.New("wishlist repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course.Status != models.CourseStatusApproved {
		return gorm.ErrRecordNotFound
	}
	return s.wishlistRepo.Add(ctx, &models.WishlistItem{StudentID: actor.UserID, CourseID: courseID})
}

func (s *WishlistService) Remove(ctx context.Context, actor models.Actor, courseID uint) error {
	if s == nil || s.wishlistRepo == nil {
		return errors.New("wishlist repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	return s.wishlistRepo.Remove(ctx, actor.UserID, courseID)
}

func (s *WishlistService) List(ctx context.Context, actor models.Actor) ([]models.WishlistItem, error) {
	if s == nil || s.wishlistRepo == nil {
		return nil, errors.New("wishlist repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return s.wishlistRepo.ListByStudent(ctx, actor.UserID)
}
