package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBDriver    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string
	DatabaseURL string

	// Redis
	EnableRedis bool
	RedisURL    string

	// JWT
	JWTSecret string

	// Server
	Port        string
	Environment string
	LogLevel    string

	// CORS
	CORSOrigins []string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int
	RateLimitBurst    int

	QuizStartRateLimitRequests int
	QuizStartRateLimitWindow   int

	PostRateLimitRequests int
	PostRateLimitWindow   int

	// Features
	EnableCache   bool
	EnableMetrics bool

	// Player
	VideoCompletionThreshold float64
	QuizSessionTTL           time.Duration

	// Background
	SchedulerWorkers      int
	SchedulerQueueSize    int
	ReconcileProgressCron string
	PruneSessionsCron     string
}

func New() *Config {
	c := &Config{
		// Database
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "courseuser"),
		DBPassword: getEnv("DB_PASSWORD", "coursepassword"),
		DBName:     getEnv("DB_NAME", "coursedb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "./courses.db"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", true),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 0),

		QuizStartRateLimitRequests: getEnvAsInt("QUIZ_START_RATE_LIMIT_REQUESTS", 20),
		QuizStartRateLimitWindow:   getEnvAsInt("QUIZ_START_RATE_LIMIT_WINDOW", 300),

		PostRateLimitRequests: getEnvAsInt("POST_RATE_LIMIT_REQUESTS", 10),
		PostRateLimitWindow:   getEnvAsInt("POST_RATE_LIMIT_WINDOW", 60),

		// Features
		EnableCache:   getEnvAsBool("ENABLE_CACHE", true),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Player
		VideoCompletionThreshold: getEnvAsFloat("VIDEO_COMPLETION_THRESHOLD", 90),
		QuizSessionTTL:           getEnvAsDuration("QUIZ_SESSION_TTL", 2*time.Hour),

		// Background
		SchedulerWorkers:      getEnvAsInt("SCHEDULER_WORKERS", 2),
		SchedulerQueueSize:    getEnvAsInt("SCHEDULER_QUEUE_SIZE", 32),
		ReconcileProgressCron: getEnv("RECONCILE_PROGRESS_CRON", "30 3 * * *"),
		PruneSessionsCron:     getEnv("PRUNE_SESSIONS_CRON", "*/10 * * * *"),
	}

	if c.VideoCompletionThreshold <= 0 || c.VideoCompletionThreshold >= 100 {
		c.VideoCompletionThreshold = 90
	}
	if !c.EnableRedis {
		c.EnableCache = false
	}

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value float64
	if _, err := fmt.Sscanf(valueStr, "%g", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) UsesSQLite() bool {
	return c.DBDriver == "sqlite"
}
