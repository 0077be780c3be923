package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"course-marketplace-backend/pkg/logger"
)

const maxRequestIDLength = 128

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.Request.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		ctx := logger.ContextWithFields(c.Request.Context(), map[string]interface{}{"request_id": requestID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
