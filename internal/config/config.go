package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// LogLevel is the minimum level emitted ("debug", "info", "warn",
	// "error"). LogFile, when set, duplicates log output to that file.
	LogLevel string
	LogFile  string

	// PostgresDSN selects the SQL store; when empty the service runs on the
	// in-memory store.
	PostgresDSN string

	// RedisAddr enables the inventory read cache when set.
	RedisAddr string
	CacheTTL  time.Duration

	// RabbitURL enables the event mirror when set.
	RabbitURL  string
	EventQueue string
}

func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "workbox"),
		Env:         getEnv("ENV", "dev"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		CacheTTL:    getEnvDuration("CACHE_TTL_SECONDS", 60) * time.Second,
		RabbitURL:   getEnv("RABBITMQ_URL", ""),
		EventQueue:  getEnv("RABBITMQ_EVENT_QUEUE", "workbox.events"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(defaultSeconds)
}
