package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/service"
)

type LessonHandler struct {
	lessonService service.LessonUseCase
	courseService service.CourseAuthoringUseCase
}

func NewLessonHandler(lessonService service.LessonUseCase, courseService service.CourseAuthoringUseCase) *LessonHandler {
	return &LessonHandler{lessonService: lessonService, courseService: courseService}
}

func (h *LessonHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.lessonService == nil || h.courseService == nil {
		serviceUnavailable(c, "lesson")
		return false
	}
	return true
}

// List returns the lessons of a course the caller manages, drafts included.
func (h *LessonHandler) List(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.courseService.GetManagedCourse(ctx, currentActor(c), courseID); err != nil {
		writeError(c, err)
		return
	}

	lessons, err := h.lessonService.ListByCourse(ctx, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

func (h *LessonHandler) Create(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.Create(c.Request.Context(), currentActor(c), courseID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Update(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	var req models.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lesson, err := h.lessonService.Update(c.Request.Context(), currentActor(c), lessonID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lesson": lesson})
}

func (h *LessonHandler) Delete(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lessonID, ok := parseUintParam(c, "lessonId")
	if !ok {
		return
	}

	if err := h.lessonService.Delete(c.Request.Context(), currentActor(c), lessonID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "lesson deleted"})
}
