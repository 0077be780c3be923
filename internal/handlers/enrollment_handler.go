package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/service"
)

type EnrollmentHandler struct {
	enrollmentService service.EnrollmentUseCase
}

func NewEnrollmentHandler(enrollmentService service.EnrollmentUseCase) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

func (h *EnrollmentHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.enrollmentService == nil {
		serviceUnavailable(c, "enrollment")
		return false
	}
	return true
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), currentActor(c), courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	enrollments, err := h.enrollmentService.ListMine(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) Get(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	courseID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Require(c.Request.Context(), currentActor(c), courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollment": enrollment})
}
