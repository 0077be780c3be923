package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"course-marketplace-backend/internal/config"
)

const rateLimitManagerKey = "rateLimitManager"

// RateLimitManagerMiddleware makes manager available to the limiting middlewares below.
func RateLimitManagerMiddleware(manager *RateLimitManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(rateLimitManagerKey, manager)
		c.Next()
	}
}

func managerFromContext(c *gin.Context) *RateLimitManager {
	value, exists := c.Get(rateLimitManagerKey)
	if !exists {
		return nil
	}
	manager, _ := value.(*RateLimitManager)
	return manager
}

// RateLimitMiddleware limits the request rate per client IP.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(c.ClientIP(), cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// QuizStartRateLimitMiddleware caps how many quiz sessions one user may open per window.
// It must run after AuthMiddleware.
func QuizStartRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	requestsPerWindow := cfg.QuizStartRateLimitRequests
	windowSeconds := cfg.QuizStartRateLimitWindow
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	return func(c *gin.Context) {
		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("quiz:user:%d", c.GetUint("user_id"))
		limiter := manager.GetUserLimiter(key, requestsPerWindow, windowSeconds)
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":          "quiz start rate limit exceeded",
				"retry_after":    windowSeconds,
				"max_requests":   requestsPerWindow,
				"window_seconds": windowSeconds,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PostRateLimitMiddleware throttles how fast one user can post comments and messages.
// It must run after AuthMiddleware.
func PostRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	requestsPerWindow := cfg.PostRateLimitRequests
	windowSeconds := cfg.PostRateLimitWindow
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	return func(c *gin.Context) {
		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetUserLimiter(fmt.Sprintf("post:user:%d", c.GetUint("user_id")), requestsPerWindow, windowSeconds)
		if limiter == nil {
			c.Next()
			return
		}

		reservation := limiter.Reserve()
		if delay := reservation.Delay(); !reservation.OK() || delay > 0 {
			reservation.Cancel()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "posting rate limit exceeded",
				"retry_after": int(math.Ceil(delay.Seconds())),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
