package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/validator"
)

const maxComplaintLength = 5000

type ComplaintService struct {
	repo     repository.ComplaintRepository
	notifier Notifier
	now      func() time.Time
}

func NewComplaintService(repo repository.ComplaintRepository, notifier Notifier) *ComplaintService {
	return &ComplaintService{
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ComplaintService) Create(ctx context.Context, actor models.Actor, req models.CreateComplaintRequest) (*models.Complaint, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("complaint repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	if !req.Category.IsValid() {
		return nil, newValidationError("unknown complaint category %q", req.Category)
	}
	subject := strings.TrimSpace(validator.SanitizeString(req.Subject))
	if subject == "" {
		return nil, newValidationError("subject cannot be empty")
	}
	description, err := cleanContent(req.Description, "description", maxComplaintLength)
	if err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		UserID:      actor.UserID,
		UserRole:    actor.Role,
		Subject:     subject,
		Description: description,
		Category:    req.Category,
		Status:      models.ComplaintStatusOpen,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, err
	}
	return complaint, nil
}

func (s *ComplaintService) ListMine(ctx context.Context, actor models.Actor) ([]models.Complaint, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("complaint repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	return s.repo.ListByUser(ctx, actor.UserID)
}

func (s *ComplaintService) List(ctx context.Context, actor models.Actor, filter models.ComplaintFilter) ([]models.Complaint, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("complaint repository is not configured")
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, newValidationError("unknown complaint status %q", filter.Status)
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, newValidationError("unknown complaint category %q", filter.Category)
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, newValidationError("unknown role %q", filter.Role)
	}
	return s.repo.List(ctx, filter)
}

// Respond moves the ticket to a new status. A non-empty response is stamped with the
// responding admin and the user is notified.
func (s *ComplaintService) Respond(ctx context.Context, actor models.Actor, id uint, req models.RespondComplaintRequest) (*models.Complaint, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("complaint repository is not configured")
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() {
		return nil, newValidationError("unknown complaint status %q", req.Status)
	}

	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	complaint.Status = req.Status
	if strings.TrimSpace(req.Response) != "" {
		response, err := cleanContent(req.Response, "response", maxComplaintLength)
		if err != nil {
			return nil, err
		}
		now := s.now()
		responder := actor.UserID
		complaint.AdminResponse = response
		complaint.RespondedAt = &now
		complaint.RespondedBy = &responder
	}
	if err := s.repo.Update(ctx, complaint); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, models.Notification{
			UserID:  complaint.UserID,
			Type:    models.NotificationComplaintAnswer,
			Title:   "Your request was updated: " + complaint.Subject,
			Message: fmt.Sprintf("Status: %s", strings.ReplaceAll(string(complaint.Status), "_", " ")),
			Link:    fmt.Sprintf("/support/%d", complaint.ID),
		})
	}
	return complaint, nil
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
