package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	// FrontendURL is the base used when building guest signing links.
	FrontendURL string

	AuthJWTSecret  string
	AuthTokenTTLHr int

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// StorageDir is where uploaded and finalized blobs live.
	// StorageBaseURL is the externally reachable prefix for those blobs.
	StorageDir     string
	StorageBaseURL string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	return Config{
		AppName:        getenv("APP_SERVICE", "securesign"),
		AppVersion:     getenv("APP_VERSION", "0.1.0"),
		Environment:    environment,
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		FrontendURL:    strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:5173"), "/"),
		AuthJWTSecret:  strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTLHr: getenvInt("AUTH_TOKEN_TTL_HOURS", 24*7),
		DBType:         getenv("DATABASE_TYPE", "postgres"),
		DBHost:         getenv("DATABASE_HOST", "localhost"),
		DBPort:         getenv("DATABASE_PORT", "5432"),
		DBName:         getenv("DATABASE_NAME", "securesign"),
		DBUser:         getenv("DATABASE_USER", "postgres"),
		DBPassword:     getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:      getenv("DATABASE_SSLMODE", "disable"),
		SMTPHost:       getenv("SMTP_HOST", ""),
		SMTPPort:       getenvInt("SMTP_PORT", 587),
		SMTPUsername:   getenv("SMTP_USER", ""),
		SMTPPassword:   getenv("SMTP_PASS", ""),
		SMTPFrom:       getenv("SMTP_FROM", "SecureSign <no-reply@securesign.local>"),
		StorageDir:     getenv("STORAGE_DIR", "./data/blobs"),
		StorageBaseURL: strings.TrimRight(getenv("STORAGE_BASE_URL", "http://localhost:8080"), "/"),
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
