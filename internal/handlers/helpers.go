package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/player"
	"course-marketplace-backend/internal/service"
	"course-marketplace-backend/pkg/logger"
)

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return uint(value), true
}

// currentActor reads the identity AuthMiddleware stored on the context.
// Requests without a token resolve to the zero Actor.
func currentActor(c *gin.Context) models.Actor {
	role, ok := authorization.ParseUserRole(c.GetString("role"))
	if !ok {
		return models.Actor{}
	}
	return models.Actor{UserID: c.GetUint("user_id"), Role: role}
}

func writeError(c *gin.Context, err error) {
	switch {
	case service.IsValidationError(err), player.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, player.ErrSessionNotFound),
		errors.Is(err, player.ErrLessonNotInCourse),
		errors.Is(err, player.ErrNoCurrentLesson),
		errors.Is(err, service.ErrQuizUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, player.ErrNotInProgress),
		errors.Is(err, player.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func serviceUnavailable(c *gin.Context, name string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": name + " service is not available"})
}
