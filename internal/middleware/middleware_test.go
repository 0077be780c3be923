package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id"), "role": c.GetString("role")})
	})
	router.GET("/admin", AuthMiddleware(testSecret), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := newAuthRouter()
	future := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"user_id": 5, "role": "student", "exp": future}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": 5, "role": "student", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"unknown role", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": 5, "role": "owner", "exp": future}), http.StatusUnauthorized},
		{"missing user", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "student", "exp": future}), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": 5, "role": "Student", "exp": future}), http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d (%s)", tc.name, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 9, "role": "admin"})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: authTokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected admin cookie to pass, got %d", rec.Code)
	}

	studentToken := signToken(t, testSecret, jwt.MapClaims{"user_id": 10, "role": "student"})
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected students to be rejected, got %d", rec.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/author", func(c *gin.Context) {
		c.Set("role", c.GetHeader("X-Role"))
		c.Next()
	}, RequireRoles(authorization.RoleInstructor, authorization.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for role, code := range map[string]int{
		"instructor": http.StatusNoContent,
		"admin":      http.StatusNoContent,
		"student":    http.StatusForbidden,
		"":           http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/author", nil)
		req.Header.Set("X-Role", role)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != code {
			t.Errorf("role %q: expected %d, got %d", role, code, rec.Code)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc-123" || rec.Body.String() != "abc-123" {
		t.Fatalf("expected incoming request id to be kept, got %q", rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewRateLimitManager(t.Context())
	t.Cleanup(func() { _ = manager.Shutdown() })

	cfg := &config.Config{RateLimitRequests: 2, RateLimitWindow: 3600}
	router := gin.New()
	router.Use(RateLimitManagerMiddleware(manager), RateLimitMiddleware(cfg))
	router.GET("/courses", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courses", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health checks must bypass the limiter, got %d", rec.Code)
	}
}

func TestQuizStartLimiterIsPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewRateLimitManager(t.Context())
	t.Cleanup(func() { _ = manager.Shutdown() })

	cfg := &config.Config{QuizStartRateLimitRequests: 1, QuizStartRateLimitWindow: 3600}
	router := gin.New()
	router.POST("/start", RateLimitManagerMiddleware(manager), func(c *gin.Context) {
		if c.GetHeader("X-User") == "b" {
			c.Set("user_id", uint(2))
		} else {
			c.Set("user_id", uint(1))
		}
		c.Next()
	}, QuizStartRateLimitMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/start", nil)
		req.Header.Set("X-User", user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("a"); code != http.StatusCreated {
		t.Fatalf("first start: %d", code)
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second start to be limited, got %d", code)
	}
	if code := send("b"); code != http.StatusCreated {
		t.Fatalf("other users keep their own budget, got %d", code)
	}
}

func TestRateLimitManagerCleanup(t *testing.T) {
	manager := NewRateLimitManager(t.Context())
	t.Cleanup(func() { _ = manager.Shutdown() })

	manager.GetVisitor("10.0.0.1", 10, 60, 0)
	manager.GetUserLimiter("quiz:user:1", 5, 60)
	if manager.GetVisitor("10.0.0.2", 0, 60, 0) != nil {
		t.Fatalf("expected non-positive limits to disable limiting")
	}

	manager.cleanup(time.Now().Add(5 * time.Minute))
	if len(manager.visitors) != 0 {
		t.Fatalf("expected idle visitors to be evicted")
	}
	if len(manager.users) != 1 {
		t.Fatalf("per-user limiters live longer than visitor limiters")
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware(), SecurityHeadersMiddleware())
	router.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courses/42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

func TestPostLimiterIsSeparateFromQuizStarts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := NewRateLimitManager(t.Context())
	t.Cleanup(func() { _ = manager.Shutdown() })

	cfg := &config.Config{
		QuizStartRateLimitRequests: 1, QuizStartRateLimitWindow: 3600,
		PostRateLimitRequests: 2, PostRateLimitWindow: 3600,
	}
	router := gin.New()
	router.Use(RateLimitManagerMiddleware(manager), func(c *gin.Context) {
		c.Set("user_id", uint(7))
		c.Next()
	})
	router.POST("/start", QuizStartRateLimitMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.POST("/comments", PostRateLimitMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	if rec := send("/start"); rec.Code != http.StatusCreated {
		t.Fatalf("quiz start: %d", rec.Code)
	}
	for i := 0; i < 2; i++ {
		if rec := send("/comments"); rec.Code != http.StatusCreated {
			t.Fatalf("post %d should not be charged to the quiz budget, got %d", i+1, rec.Code)
		}
	}
	rec := send("/comments")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected third post to be limited, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "posting rate limit exceeded") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
