package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/pkg/cache"
)

// ClearCache drops every cached course and catalogue page.
func ClearCache(cacheService *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cacheService.Enabled() {
			c.JSON(http.StatusOK, gin.H{"message": "cache is disabled"})
			return
		}

		if err := cacheService.InvalidateAllCourses(); err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
	}
}
