package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/pkg/cache"
	"course-marketplace-backend/pkg/logger"
	"course-marketplace-backend/pkg/utils"
	"course-marketplace-backend/pkg/validator"
)

const maxCatalogPageSize = 100

type CourseService struct {
	courseRepo     repository.CourseRepository
	categoryRepo   repository.CategoryRepository
	enrollmentRepo repository.EnrollmentRepository
	cache          *cache.Cache
	notifier       Notifier
	now            func() time.Time
}

type CatalogPage struct {
	Courses []models.Course `json:"courses"`
	Total   int64           `json:"total"`
}

func NewCourseService(courseRepo repository.CourseRepository, categoryRepo repository.CategoryRepository, enrollmentRepo repository.EnrollmentRepository, cacheService *cache.Cache) *CourseService {
	return &CourseService{
		courseRepo:     courseRepo,
		categoryRepo:   categoryRepo,
		enrollmentRepo: enrollmentRepo,
		cache:          cacheService,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ListCatalog only ever returns approved courses.
// SetNotifier enables moderation notices to instructors.
func (s *CourseService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *CourseService) ListCatalog(ctx context.Context, filter models.CourseFilter) (*CatalogPage, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	filter.Status = models.CourseStatusApproved
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 || filter.Limit > maxCatalogPageSize {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	key := catalogCacheKey(filter)
	if s.cache.Enabled() {
		var cached CatalogPage
		if err := s.cache.GetCachedCourseList(key, &cached); err == nil {
			return &cached, nil
		}
	}

	courses, total, err := s.courseRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &CatalogPage{Courses: courses, Total: total}
	if err := s.cache.CacheCourseList(key, page); err != nil {
		logger.Warn("Failed to cache course catalogue", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return page, nil
}

func catalogCacheKey(filter models.CourseFilter) string {
	category := "any"
	if filter.CategoryID != nil {
		category = fmt.Sprintf("%d", *filter.CategoryID)
	}
	return fmt.Sprintf("q=%s:cat=%s:lvl=%s:l=%d:o=%d",
		strings.ToLower(filter.Search), category, filter.Level, filter.Limit, filter.Offset)
}

// GetPublicCourse hides anything that is not approved behind a not-found error.
func (s *CourseService) GetPublicCourse(ctx context.Context, id uint) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}

	if s.cache.Enabled() {
		var cached models.Course
		if err := s.cache.GetCachedCourse(id, &cached); err == nil {
			return &cached, nil
		}
	}

	course, err := s.courseRepo.GetWithLessons(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusApproved {
		return nil, gorm.ErrRecordNotFound
	}

	if err := s.cache.CacheCourse(id, course); err != nil {
		logger.Warn("Failed to cache course", map[string]interface{}{"course_id": id, "error": err.Error()})
	}
	return course, nil
}

func (s *CourseService) ListCategories(ctx context.Context) ([]models.Category, error) {
	if s == nil || s.categoryRepo == nil {
		return nil, errors.New("category repository is not configured")
	}
	return s.categoryRepo.List(ctx)
}

func (s *CourseService) CreateCategory(ctx context.Context, actor models.Actor, req models.CreateCategoryRequest) (*models.Category, error) {
	if s == nil || s.categoryRepo == nil {
		return nil, errors.New("category repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionManageCatalog); err != nil {
		return nil, err
	}

	name := validator.NormalizeSpaces(validator.SanitizeString(req.Name))
	if name == "" {
		return nil, newValidationError("category name is required")
	}
	slug := utils.GenerateSlug(name)
	if slug == "" {
		return nil, newValidationError("category name must contain letters or digits")
	}

	exists, err := s.categoryRepo.ExistsBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check category existence: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(validator.SanitizeString(req.Description)),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return category, nil
}

func (s *CourseService) CreateCourse(ctx context.Context, actor models.Actor, req models.CreateCourseRequest) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionAuthorCourses); err != nil {
		return nil, err
	}

	title := validator.NormalizeSpaces(validator.SanitizeString(req.Title))
	if title == "" {
		return nil, newValidationError("course title is required")
	}
	if !validator.IsCourseLevel(string(req.Level)) {
		return nil, newValidationError("unknown course level %q", req.Level)
	}
	if req.Price < 0 {
		return nil, newValidationError("price cannot be negative")
	}
	if req.DurationHours < 0 {
		return nil, newValidationError("duration cannot be negative")
	}
	if !validator.ValidateMediaURL(req.ThumbnailURL) {
		return nil, newValidationError("thumbnail must be an http(s) URL")
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:         title,
		Description:   validator.SanitizeHTML(strings.TrimSpace(req.Description)),
		Price:         req.Price,
		Level:         req.Level,
		DurationHours: req.DurationHours,
		ThumbnailURL:  strings.TrimSpace(req.ThumbnailURL),
		Status:        models.CourseStatusDraft,
		CategoryID:    req.CategoryID,
		InstructorID:  actor.UserID,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, actor models.Actor, id uint, req models.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := validator.NormalizeSpaces(validator.SanitizeString(*req.Title))
		if title == "" {
			return nil, newValidationError("course title is required")
		}
		course.Title = title
	}
	if req.Description != nil {
		course.Description = validator.SanitizeHTML(strings.TrimSpace(*req.Description))
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, newValidationError("price cannot be negative")
		}
		course.Price = *req.Price
	}
	if req.Level != nil {
		if !validator.IsCourseLevel(string(*req.Level)) {
			return nil, newValidationError("unknown course level %q", *req.Level)
		}
		course.Level = *req.Level
	}
	if req.DurationHours != nil {
		if *req.DurationHours < 0 {
			return nil, newValidationError("duration cannot be negative")
		}
		course.DurationHours = *req.DurationHours
	}
	if req.ThumbnailURL != nil {
		if !validator.ValidateMediaURL(*req.ThumbnailURL) {
			return nil, newValidationError("thumbnail must be an http(s) URL")
		}
		course.ThumbnailURL = strings.TrimSpace(*req.ThumbnailURL)
	}
	if req.CategoryID.Set {
		if err := s.ensureCategory(ctx, req.CategoryID.Value); err != nil {
			return nil, err
		}
		course.CategoryID = req.CategoryID.Or(course.CategoryID)
		course.Category = nil
	}

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	s.invalidate(course.ID)
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, actor models.Actor, id uint) error {
	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.courseRepo.Delete(ctx, course.ID); err != nil {
		return err
	}
	s.invalidate(course.ID)
	return nil
}

func (s *CourseService) ListInstructorCourses(ctx context.Context, actor models.Actor) ([]models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionAuthorCourses); err != nil {
		return nil, err
	}
	return s.courseRepo.ListByInstructor(ctx, actor.UserID)
}

// GetManagedCourse returns a course in any status to its instructor or an admin.
func (s *CourseService) GetManagedCourse(ctx context.Context, actor models.Actor, id uint) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	course, err := s.courseRepo.GetWithLessons(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeCourseOwner(actor, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) SubmitForReview(ctx context.Context, actor models.Actor, id uint) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusDraft && course.Status != models.CourseStatusRejected {
		return nil, ErrInvalidStatus
	}

	now := s.now()
	course.Status = models.CourseStatusPending
	course.SubmittedAt = &now
	course.RejectionReason = ""

	entry := &models.CourseReviewHistory{ReviewerID: actor.UserID, Action: models.CourseStatusPending}
	if err := s.courseRepo.ChangeStatus(ctx, course, entry); err != nil {
		return nil, err
	}
	s.invalidate(course.ID)
	return course, nil
}

func (s *CourseService) ListByStatus(ctx context.Context, actor models.Actor, status models.CourseStatus) ([]models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionReviewCourses); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, newValidationError("unknown course status %q", status)
	}
	courses, _, err := s.courseRepo.List(ctx, models.CourseFilter{Status: status})
	return courses, err
}

func (s *CourseService) Approve(ctx context.Context, actor models.Actor, id uint) (*models.Course, error) {
	return s.review(ctx, actor, id, models.CourseStatusApproved, "")
}

func (s *CourseService) Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Course, error) {
	reason = strings.TrimSpace(validator.SanitizeString(reason))
	if reason == "" {
		return nil, newValidationError("a rejection reason is required")
	}
	return s.review(ctx, actor, id, models.CourseStatusRejected, reason)
}

func (s *CourseService) review(ctx context.Context, actor models.Actor, id uint, decision models.CourseStatus, reason string) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionReviewCourses); err != nil {
		return nil, err
	}

	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusPending {
		return nil, ErrInvalidStatus
	}

	now := s.now()
	reviewer := actor.UserID
	course.Status = decision
	course.ReviewedAt = &now
	course.ReviewedBy = &reviewer
	course.RejectionReason = reason

	entry := &models.CourseReviewHistory{ReviewerID: reviewer, Action: decision, Reason: reason}
	if err := s.courseRepo.ChangeStatus(ctx, course, entry); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"course_id": course.ID,
		"decision":  decision,
		"reviewer":  reviewer,
	}).Info("Course reviewed")

	s.invalidate(course.ID)
	s.notifyDecision(ctx, course)
	return course, nil
}

func (s *CourseService) notifyDecision(ctx context.Context, course *models.Course) {
	if s.notifier == nil {
		return
	}
	notification := models.Notification{
		UserID:  course.InstructorID,
		Type:    models.NotificationCourseApproved,
		Title:   "Course approved: " + course.Title,
		Message: "Your course is now listed in the catalog.",
		Link:    fmt.Sprintf("/instructor/courses/%d", course.ID),
	}
	if course.Status == models.CourseStatusRejected {
		notification.Type = models.NotificationCourseRejected
		notification.Title = "Course rejected: " + course.Title
		notification.Message = course.RejectionReason
	}
	s.notifier.Notify(ctx, notification)
}

func (s *CourseService) ReviewHistory(ctx context.Context, actor models.Actor, id uint) ([]models.CourseReviewHistory, error) {
	if _, err := s.GetManagedCourse(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.courseRepo.ListReviewHistory(ctx, id)
}

func (s *CourseService) Statistics(ctx context.Context, actor models.Actor) (*models.CourseStatistics, error) {
	if s == nil || s.courseRepo == nil || s.enrollmentRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionViewStatistics); err != nil {
		return nil, err
	}

	counts, err := s.courseRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollmentRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &models.CourseStatistics{
		Draft:       counts[models.CourseStatusDraft],
		Pending:     counts[models.CourseStatusPending],
		Approved:    counts[models.CourseStatusApproved],
		Rejected:    counts[models.CourseStatusRejected],
		Enrollments: enrollments,
	}, nil
}

// InstructorStatistics summarises the caller's own courses. The overall rating is weighted by review count.
func (s *CourseService) InstructorStatistics(ctx context.Context, actor models.Actor) (*models.InstructorStatistics, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if err := requirePermission(actor, authorization.PermissionAuthorCourses); err != nil {
		return nil, err
	}

	courses, err := s.courseRepo.InstructorStats(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	stats := &models.InstructorStatistics{TotalCourses: len(courses), Courses: courses}
	var ratingSum float64
	var reviews int64
	for i := range courses {
		stats.TotalStudents += courses[i].Students
		ratingSum += courses[i].AverageRating * float64(courses[i].Reviews)
		reviews += courses[i].Reviews
		courses[i].AverageRating = math.Round(courses[i].AverageRating*10) / 10
	}
	if reviews > 0 {
		stats.AverageRating = math.Round(ratingSum/float64(reviews)*10) / 10
	}
	return stats, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, actor models.Actor, id uint) (*models.Course, error) {
	if s == nil || s.courseRepo == nil {
		return nil, errors.New("course repository is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, ErrAuthRequired
	}
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeCourseOwner(actor, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ensureCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	if s.categoryRepo == nil {
		return errors.New("category repository is not configured")
	}
	if _, err := s.categoryRepo.GetByID(ctx, *categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newValidationError("category %d does not exist", *categoryID)
		}
		return err
	}
	return nil
}

func (s *CourseService) invalidate(courseID uint) {
	if err := s.cache.InvalidateCourse(courseID); err != nil {
		logger.Warn("Failed to invalidate course cache", map[string]interface{}{"course_id": courseID, "error": err.Error()})
	}
}

func requirePermission(actor models.Actor, permission authorization.Permission) error {
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	if !actor.Can(permission) {
		return ErrForbidden
	}
	return nil
}

// authorizeCourseOwner lets the owning instructor or any admin through.
func authorizeCourseOwner(actor models.Actor, course *models.Course) error {
	if !actor.IsAuthenticated() {
		return ErrAuthRequired
	}
	if actor.IsAdmin() {
		return nil
	}
	if course == nil || course.InstructorID != actor.UserID || !actor.Can(authorization.PermissionAuthorCourses) {
		return ErrForbidden
	}
	return nil
}
