package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"course-marketplace-backend/internal/authorization"
	"course-marketplace-backend/internal/background"
	"course-marketplace-backend/internal/config"
	"course-marketplace-backend/internal/handlers"
	"course-marketplace-backend/internal/middleware"
	"course-marketplace-backend/internal/models"
	"course-marketplace-backend/internal/player"
	"course-marketplace-backend/internal/repository"
	"course-marketplace-backend/internal/service"
	"course-marketplace-backend/pkg/cache"
	"course-marketplace-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db    *gorm.DB
	cache *cache.Cache

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	registry  *player.Registry
	sessions  *player.Manager
	scheduler *background.Scheduler
	jobs      *background.Jobs
	cron      *background.Cron
	limits    *middleware.RateLimitManager

	ctx    context.Context
	cancel context.CancelFunc

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	Category     repository.CategoryRepository
	Course       repository.CourseRepository
	Lesson       repository.LessonRepository
	Quiz         repository.QuizRepository
	Enrollment   repository.EnrollmentRepository
	Progress     repository.ProgressRepository
	Review       repository.ReviewRepository
	Wishlist     repository.WishlistRepository
	Messaging    repository.MessagingRepository
	Comment      repository.LessonCommentRepository
	Notification repository.NotificationRepository
	Complaint    repository.ComplaintRepository
}

type serviceContainer struct {
	Course       *service.CourseService
	Lesson       *service.LessonService
	Quiz         *service.QuizService
	Enrollment   *service.EnrollmentService
	Progress     *service.ProgressService
	Review       *service.ReviewService
	Wishlist     *service.WishlistService
	Messaging    *service.MessagingService
	Comment      *service.LessonCommentService
	Notification *service.NotificationService
	Complaint    *service.ComplaintService
}

type handlerContainer struct {
	Course     *handlers.CourseHandler
	Lesson     *handlers.LessonHandler
	Quiz       *handlers.QuizHandler
	Enrollment *handlers.EnrollmentHandler
	Review     *handlers.ReviewHandler
	Player     *handlers.PlayerHandler
	Messaging  *handlers.MessagingHandler
	Community  *handlers.CommunityHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{cfg: cfg, ctx: ctx, cancel: cancel}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, err
	}
	if err := app.runMigrations(); err != nil {
		cancel()
		return nil, err
	}
	if err := app.createIndexes(); err != nil {
		cancel()
		return nil, err
	}

	app.initCache()
	app.initRepositories()
	app.initServices()
	app.initPlayer()

	if err := app.initBackground(); err != nil {
		cancel()
		return nil, err
	}

	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
		"db_driver":   a.cfg.DBDriver,
	})

	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, then drains quiz sessions so finished runs are
// persisted before the background workers and storage go away.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if a.cron != nil {
		select {
		case <-a.cron.Stop().Done():
		case <-ctx.Done():
		}
	}

	if a.sessions != nil {
		if err := a.sessions.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("quiz sessions: %w", err))
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	if a.limits != nil {
		_ = a.limits.Shutdown()
	}
	a.cancel()

	if a.cache.Enabled() {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", map[string]interface{}{"driver": a.cfg.DBDriver})

	var dialector gorm.Dialector
	switch {
	case a.cfg.UsesSQLite():
		dialector = sqlite.Open(a.cfg.SQLitePath)
	case a.cfg.DBDriver == "postgres":
		dialector = postgres.Open(a.cfg.DatabaseURL)
	default:
		return fmt.Errorf("unsupported database driver %q", a.cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if a.cfg.UsesSQLite() {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.Category{},
		&models.Course{},
		&models.CourseReviewHistory{},
		&models.Lesson{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAttempt{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Review{},
		&models.WishlistItem{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.LessonComment{},
		&models.Notification{},
		&models.Complaint{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_courses_catalog ON courses(status, created_at DESC) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_lessons_sequence ON lessons(course_id, order_index, id) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_quiz_attempts_history ON quiz_attempts(student_id, quiz_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(conversation_id, created_at, id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_feed ON notifications(user_id, created_at DESC)",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (a *Application) initCache() {
	if !a.cfg.EnableCache {
		a.cache, _ = cache.NewCache("", false)
		return
	}

	c, err := cache.NewCache(a.cfg.RedisURL, true)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", map[string]interface{}{"error": err.Error()})
		c, _ = cache.NewCache("", false)
	}
	a.cache = c
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		Category:     repository.NewCategoryRepository(a.db),
		Course:       repository.NewCourseRepository(a.db),
		Lesson:       repository.NewLessonRepository(a.db),
		Quiz:         repository.NewQuizRepository(a.db),
		Enrollment:   repository.NewEnrollmentRepository(a.db),
		Progress:     repository.NewProgressRepository(a.db),
		Review:       repository.NewReviewRepository(a.db),
		Wishlist:     repository.NewWishlistRepository(a.db),
		Messaging:    repository.NewMessagingRepository(a.db),
		Comment:      repository.NewLessonCommentRepository(a.db),
		Notification: repository.NewNotificationRepository(a.db),
		Complaint:    repository.NewComplaintRepository(a.db),
	}
}

func (a *Application) initServices() {
	r := a.repositories
	notifications := service.NewNotificationService(r.Notification)
	a.services = serviceContainer{
		Course:       service.NewCourseService(r.Course, r.Category, r.Enrollment, a.cache),
		Lesson:       service.NewLessonService(r.Lesson, r.Course, a.cache),
		Quiz:         service.NewQuizService(r.Quiz, r.Lesson, r.Course, r.Enrollment),
		Enrollment:   service.NewEnrollmentService(r.Enrollment, r.Course),
		Progress:     service.NewProgressService(r.Progress, r.Enrollment),
		Review:       service.NewReviewService(r.Review, r.Enrollment),
		Wishlist:     service.NewWishlistService(r.Wishlist, r.Course),
		Messaging:    service.NewMessagingService(r.Messaging, r.Course, notifications),
		Comment:      service.NewLessonCommentService(r.Comment, r.Lesson, r.Course, r.Enrollment, notifications),
		Notification: notifications,
		Complaint:    service.NewComplaintService(r.Complaint, notifications),
	}
	a.services.Course.SetNotifier(notifications)
}

func (a *Application) initPlayer() {
	s := a.services
	a.registry = player.NewRegistry(s.Lesson, s.Progress, s.Enrollment, s.Progress, int(a.cfg.VideoCompletionThreshold))
	a.sessions = player.NewManager(s.Quiz, s.Quiz, player.ManagerOptions{IdleTTL: a.cfg.QuizSessionTTL})
	a.sessions.OnResult(a.registry.OnQuizResult)
}

func (a *Application) initBackground() error {
	a.scheduler = background.NewScheduler(background.SchedulerConfig{
		WorkerCount: a.cfg.SchedulerWorkers,
		QueueSize:   a.cfg.SchedulerQueueSize,
	})
	a.scheduler.Start(a.ctx)

	a.jobs = background.NewJobs(a.scheduler, a.services.Progress, a.sessions, a.registry, a.registry, a.cfg.QuizSessionTTL)
	a.services.Lesson.SetReconciler(a.jobs)

	c, err := background.NewCron(a.jobs, background.CronSpecs{
		ReconcileProgress: a.cfg.ReconcileProgressCron,
		PruneSessions:     a.cfg.PruneSessionsCron,
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}
	a.cron = c
	a.cron.Start()
	return nil
}

func (a *Application) initHandlers() {
	s := a.services
	a.handlers = handlerContainer{
		Course:     handlers.NewCourseHandler(s.Course),
		Lesson:     handlers.NewLessonHandler(s.Lesson, s.Course),
		Quiz:       handlers.NewQuizHandler(s.Quiz),
		Enrollment: handlers.NewEnrollmentHandler(s.Enrollment),
		Review:     handlers.NewReviewHandler(s.Review, s.Wishlist),
		Player:     handlers.NewPlayerHandler(a.registry, a.sessions),
		Messaging:  handlers.NewMessagingHandler(s.Messaging),
		Community:  handlers.NewCommunityHandler(s.Comment, s.Notification, s.Complaint),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a.limits = middleware.NewRateLimitManager(a.ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	router.Use(middleware.SecurityHeadersMiddleware())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitManagerMiddleware(a.limits))
	router.Use(middleware.RateLimitMiddleware(a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	h := a.handlers
	auth := middleware.AuthMiddleware(a.cfg.JWTSecret)
	posting := middleware.PostRateLimitMiddleware(a.cfg)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.GET("/courses", h.Course.ListCatalog)
			public.GET("/courses/:id", h.Course.GetPublic)
			public.GET("/courses/:id/reviews", h.Review.List)
			public.GET("/categories", h.Course.ListCategories)
		}

		learner := v1.Group("")
		learner.Use(auth)
		{
			learner.GET("/enrollments", h.Enrollment.ListMine)
			learner.POST("/courses/:id/enroll", h.Enrollment.Enroll)
			learner.GET("/courses/:id/enrollment", h.Enrollment.Get)

			learner.POST("/courses/:id/reviews", h.Review.Create)
			learner.PUT("/reviews/:reviewId", h.Review.Update)
			learner.DELETE("/reviews/:reviewId", h.Review.Delete)

			learner.GET("/wishlist", h.Review.Wishlist)
			learner.POST("/wishlist/:id", h.Review.AddToWishlist)
			learner.DELETE("/wishlist/:id", h.Review.RemoveFromWishlist)

			learner.GET("/lessons/:lessonId/quiz", h.Quiz.GetForStudent)
			learner.GET("/quizzes/:quizId/attempts", h.Quiz.ListAttempts)

			learner.GET("/courses/:id/player", h.Player.View)
			learner.POST("/courses/:id/player/select", h.Player.SelectLesson)
			learner.POST("/courses/:id/player/video/progress", h.Player.VideoProgress)
			learner.POST("/courses/:id/player/video/ended", h.Player.VideoEnded)
			learner.PUT("/courses/:id/player/lessons/:lessonId/completion", h.Player.SetCompletion)
			learner.POST("/courses/:id/player/quiz-sessions", middleware.QuizStartRateLimitMiddleware(a.cfg), h.Player.StartQuiz)

			learner.GET("/quiz-sessions/:sessionId", h.Player.GetSession)
			learner.POST("/quiz-sessions/:sessionId/answer", h.Player.SelectAnswer)
			learner.POST("/quiz-sessions/:sessionId/advance", h.Player.Advance)
			learner.POST("/quiz-sessions/:sessionId/retake", middleware.QuizStartRateLimitMiddleware(a.cfg), h.Player.Retake)
			learner.DELETE("/quiz-sessions/:sessionId", h.Player.Abandon)

			learner.GET("/lessons/:lessonId/comments", h.Community.ListComments)
			learner.POST("/lessons/:lessonId/comments", posting, h.Community.CreateComment)
			learner.PUT("/comments/:commentId", h.Community.UpdateComment)
			learner.DELETE("/comments/:commentId", h.Community.DeleteComment)

			learner.GET("/conversations", h.Messaging.ListConversations)
			learner.POST("/conversations", posting, h.Messaging.StartConversation)
			learner.GET("/conversations/:conversationId/messages", h.Messaging.Messages)
			learner.POST("/conversations/:conversationId/messages", posting, h.Messaging.Send)
			learner.POST("/conversations/:conversationId/read", h.Messaging.MarkRead)
			learner.DELETE("/messages/:messageId", h.Messaging.DeleteMessage)

			learner.GET("/notifications", h.Community.Notifications)
			learner.POST("/notifications/read", h.Community.MarkAllNotificationsRead)
			learner.POST("/notifications/:notificationId/read", h.Community.MarkNotificationRead)
			learner.DELETE("/notifications/:notificationId", h.Community.DeleteNotification)

			learner.GET("/complaints", h.Community.MyComplaints)
			learner.POST("/complaints", posting, h.Community.CreateComplaint)
		}

		instructor := v1.Group("/instructor")
		instructor.Use(auth, middleware.RequireRoles(authorization.RoleInstructor, authorization.RoleAdmin))
		{
			instructor.GET("/stats", h.Course.InstructorStatistics)
			instructor.GET("/courses", h.Course.ListMine)
			instructor.POST("/courses", h.Course.Create)
			instructor.GET("/courses/:id", h.Course.GetManaged)
			instructor.PUT("/courses/:id", h.Course.Update)
			instructor.DELETE("/courses/:id", h.Course.Delete)
			instructor.POST("/courses/:id/submit", h.Course.Submit)
			instructor.GET("/courses/:id/history", h.Course.History)

			instructor.GET("/courses/:id/lessons", h.Lesson.List)
			instructor.POST("/courses/:id/lessons", h.Lesson.Create)
			instructor.PUT("/lessons/:lessonId", h.Lesson.Update)
			instructor.DELETE("/lessons/:lessonId", h.Lesson.Delete)

			instructor.GET("/lessons/:lessonId/quiz", h.Quiz.GetForAuthor)
			instructor.PUT("/lessons/:lessonId/quiz", h.Quiz.Upsert)
			instructor.POST("/quizzes/:quizId/questions", h.Quiz.AddQuestion)
			instructor.PUT("/questions/:questionId", h.Quiz.UpdateQuestion)
			instructor.DELETE("/questions/:questionId", h.Quiz.DeleteQuestion)
		}

		admin := v1.Group("/admin")
		admin.Use(auth, middleware.AdminMiddleware())
		{
			admin.GET("/courses", h.Course.ListForReview)
			admin.POST("/courses/:id/approve", h.Course.Approve)
			admin.POST("/courses/:id/reject", h.Course.Reject)
			admin.GET("/courses/:id/history", h.Course.History)
			admin.POST("/categories", h.Course.CreateCategory)
			admin.GET("/stats", h.Course.Statistics)
			admin.GET("/complaints", h.Community.ListComplaints)
			admin.PUT("/complaints/:complaintId", h.Community.RespondComplaint)
			admin.POST("/progress/reconcile", a.reconcileProgress)
			admin.DELETE("/cache", handlers.ClearCache(a.cache))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "path": c.Request.URL.Path})
	})

	a.router = router
}

func (a *Application) health(c *gin.Context) {
	status := http.StatusOK
	database := "up"
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		database = "down"
	}

	c.JSON(status, gin.H{
		"status":       strings.ToLower(http.StatusText(status)),
		"database":     database,
		"cache":        a.cache.Enabled(),
		"quiz_session": a.sessions.Active(),
		"time":         time.Now().Format(time.RFC3339),
	})
}

// reconcileProgress queues a full recompute, or a single course with ?course_id=.
func (a *Application) reconcileProgress(c *gin.Context) {
	var courseID uint
	if raw := strings.TrimSpace(c.Query("course_id")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &courseID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course_id"})
			return
		}
	}

	if err := a.scheduler.ScheduleUnique(a.jobs.ReconcileJob(courseID)); err != nil {
		if errors.Is(err, background.ErrJobAlreadyScheduled) {
			c.JSON(http.StatusAccepted, gin.H{"message": "reconciliation already queued"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "reconciliation queued"})
}
