package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

// CourseService is everything the course endpoints need from the service layer.
type CourseService interface {
	service.CatalogUseCase
	service.CourseAuthoringUseCase
	service.CourseReviewUseCase
	service.InstructorStatisticsUseCase
}

type CourseHandler struct {
	courseService CourseService
}

func NewCourseHandler(courseService CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// SetService updates the course service reference.
func (h *CourseHandler) SetService(courseService CourseService) {
	if h == nil {
		return
	}
	h.courseService = courseService
}

func (h *CourseHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.courseService == nil {
		serviceUnavailable(c, "course")
		return false
	}
	return true
}

// ListCatalog serves the public catalog. Only approved courses are ever listed.
func (h *CourseHandler) ListCatalog(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	filter := models.CourseFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Level:  models.CourseLevel(strings.ToLower(strings.TrimSpace(c.Query("level")))),
	}
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	page, err := h.courseService.ListCatalog(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": page.Courses, "total": page.Total})
}

func (h *CourseHandler) GetPublic(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.GetPublicCourse(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) ListCategories(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	categories, err := h.courseService.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CourseHandler) CreateCategory(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.courseService.CreateCategory(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *CourseHandler) Create(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.CreateCourse(c.Request.Context(), currentActor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) Update(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.UpdateCourse(c.Request.Context(), currentActor(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := h.courseService.DeleteCourse(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "course deleted"})
}

func (h *CourseHandler) ListMine(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	courses, err := h.courseService.ListInstructorCourses(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) GetManaged(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.GetManagedCourse(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Submit(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.SubmitForReview(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

// ListForReview returns courses in the requested status, pending by default.
func (h *CourseHandler) ListForReview(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	status := models.CourseStatus(strings.ToLower(strings.TrimSpace(c.DefaultQuery("status", string(models.CourseStatusPending)))))
	courses, err := h.courseService.ListByStatus(c.Request.Context(), currentActor(c), status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Approve(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.Approve(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Reject(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.RejectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	course, err := h.courseService.Reject(c.Request.Context(), currentActor(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) History(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	history, err := h.courseService.ReviewHistory(c.Request.Context(), currentActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *CourseHandler) Statistics(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	stats, err := h.courseService.Statistics(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

func (h *CourseHandler) InstructorStatistics(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	stats, err := h.courseService.InstructorStatistics(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}
