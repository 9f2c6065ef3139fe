package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings, populated from environment variables
type Config struct {
	Environment string
	Port        int

	// Persistence
	StorageBackend string // "memory" or "dynamodb"
	TableName      string
	IndexName      string
	AWSRegion      string

	// Realtime sync
	RealtimeEnabled bool
	RealtimeURL     string

	// HTTP
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
}

// LoadConfig reads configuration from the environment with sane defaults
func LoadConfig() Config {
	return Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnvInt("PORT", 8080),
		StorageBackend:  getEnv("STORAGE_BACKEND", "memory"),
		TableName:       getEnv("TABLE_NAME", "serendipity-graph"),
		IndexName:       getEnv("INDEX_NAME", "EventIndex"),
		AWSRegion:       getEnv("AWS_REGION", "us-west-2"),
		RealtimeEnabled: getEnvBool("REALTIME_ENABLED", false),
		RealtimeURL:     getEnv("REALTIME_URL", ""),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks configuration consistency before startup
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.StorageBackend {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("unknown storage backend: %q", c.StorageBackend)
	}
	if c.StorageBackend == "dynamodb" && c.TableName == "" {
		return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
	}
	if c.RealtimeEnabled && c.RealtimeURL == "" {
		return fmt.Errorf("REALTIME_URL is required when realtime sync is enabled")
	}
	return nil
}

// IsDevelopment checks for the development environment
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
