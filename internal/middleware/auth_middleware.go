package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/pkg/logger"
)

const authTokenCookieName = "auth_token"

// AuthMiddleware accepts HMAC signed tokens issued by the identity provider. The token
// must carry a numeric user_id and one of the known roles.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization credentials required"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			c.Abort()
			return
		}

		userID, ok := claims["user_id"].(float64)
		if !ok || userID < 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}
		role, ok := authorization.ParseUserRole(claims["role"])
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token role"})
			c.Abort()
			return
		}

		c.Set("user_id", uint(userID))
		c.Set("role", role.String())

		ctx := logger.ContextWithFields(c.Request.Context(), map[string]interface{}{"user_id": uint(userID)})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, true
			}
		}
	}
	if cookie, err := c.Cookie(authTokenCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie), true
	}
	return "", false
}

// RequireRoles lets through only callers whose role is listed.
func RequireRoles(roles ...authorization.UserRole) gin.HandlerFunc {
	allowed := make(map[authorization.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := authorization.ParseUserRole(c.GetString("role"))
		if _, permitted := allowed[role]; !ok || !permitted {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return RequireRoles(authorization.RoleAdmin)
}
