package config

import (
	"fmt"
	"os"
	"strconv"
)

// Backend selection values
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds all application configuration. It is an explicit value passed
// into constructors so multiple engine instances (tests included) can run
// side by side with different backends.
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Backend selection: "file" or "redis"
	Backend string

	// Durable log configuration
	MemoryDir string

	// Remote store configuration
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Retention window for the remote backend, refreshed per append
	RetentionDays int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		Backend:   getEnv("MEMORY_BACKEND", BackendFile),
		MemoryDir: getEnv("MEMORY_DIR", "./.memory_store"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisDB:       getEnvInt("REDIS_DB", 1),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RetentionDays: getEnvInt("MEMORY_RETENTION_DAYS", 90),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "memoryd"),

		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Backend != BackendFile && c.Backend != BackendRedis {
		return fmt.Errorf("MEMORY_BACKEND must be %q or %q (got %q)", BackendFile, BackendRedis, c.Backend)
	}
	if c.Backend == BackendFile && c.MemoryDir == "" {
		return fmt.Errorf("MEMORY_DIR is required for the file backend")
	}
	if c.Backend == BackendRedis && c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required for the redis backend")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("MEMORY_RETENTION_DAYS must be positive (got %d)", c.RetentionDays)
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
