package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	Environment     string
	MigrationsDir   string
	RunMigrations   bool
	RunSeed         bool
	SeedAdminCode   string
	SeedAdminName   string
	SeedAdminEmail  string
	AccrualInterval time.Duration
	MetricsEnabled  bool
	MaxBodyBytes    int64
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getEnv("APP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		Environment:     getEnv("APP_ENV", "development"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
		RunMigrations:   getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:         getEnvBool("RUN_SEED", true),
		SeedAdminCode:   getEnv("SEED_ADMIN_CODE", "ADM001"),
		SeedAdminName:   getEnv("SEED_ADMIN_NAME", "System Admin"),
		SeedAdminEmail:  getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
		AccrualInterval: getEnvDuration("ACCRUAL_INTERVAL", 24*time.Hour),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}
