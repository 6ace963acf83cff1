/*
Package config reads the service configuration from the environment.
A local .env file is loaded automatically when present.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Cache backends understood by CacheBackend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds every tunable of the service.
type Config struct {
	Port     int
	AppEnv   string
	LogLevel string

	// SessionSecret signs the browser session cookie.
	SessionSecret string
	// SessionLimit bounds how many browser sessions are kept in memory.
	SessionLimit int

	GeminiAPIKey string
	GeminiAPIURL string
	GeminiModel  string

	ImageAPIURL   string
	ImageTimeout  time.Duration
	ImageCooldown time.Duration

	// ImageProxyRPS and ImageProxyBurst limit the raw /api/image proxy per client IP.
	ImageProxyRPS   float64
	ImageProxyBurst int

	CacheBackend    string
	CacheSQLitePath string
	CacheLRUSize    int

	// Postgres connection, same variables the database package has always used.
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
}

// Load builds a Config from the environment, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     envInt("PORT", 8080),
		AppEnv:   envString("APP_ENV", "development"),
		LogLevel: envString("LOG_LEVEL", "info"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionLimit:  envInt("SESSION_LIMIT", 1024),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiAPIURL: envString("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:  envString("GEMINI_MODEL", "gemini-2.5-flash"),

		ImageAPIURL:   envString("IMAGE_API_URL", "https://image.pollinations.ai"),
		ImageTimeout:  envMillis("IMAGE_TIMEOUT_MS", 30*time.Second),
		ImageCooldown: envMillis("IMAGE_COOLDOWN_MS", 5*time.Second),

		ImageProxyRPS:   envFloat("IMAGE_PROXY_RPS", 1),
		ImageProxyBurst: envInt("IMAGE_PROXY_BURST", 3),

		CacheBackend:    strings.ToLower(envString("CACHE_BACKEND", BackendSQLite)),
		CacheSQLitePath: envString("CACHE_SQLITE_PATH", "data/image-cache.db"),
		CacheLRUSize:    envInt("CACHE_LRU_SIZE", 256),

		DBHost:     os.Getenv("BLUEPRINT_DB_HOST"),
		DBPort:     os.Getenv("BLUEPRINT_DB_PORT"),
		DBName:     os.Getenv("BLUEPRINT_DB_DATABASE"),
		DBUser:     os.Getenv("BLUEPRINT_DB_USERNAME"),
		DBPassword: os.Getenv("BLUEPRINT_DB_PASSWORD"),
		DBSchema:   envString("BLUEPRINT_DB_SCHEMA", "public"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.ImageTimeout <= 0 {
		return fmt.Errorf("IMAGE_TIMEOUT_MS must be positive")
	}
	if c.ImageCooldown < 0 {
		return fmt.Errorf("IMAGE_COOLDOWN_MS must not be negative")
	}
	if c.SessionLimit <= 0 {
		return fmt.Errorf("SESSION_LIMIT must be positive")
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.CacheSQLitePath == "" {
			return fmt.Errorf("CACHE_SQLITE_PATH is required for the sqlite cache backend")
		}
	case BackendPostgres:
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("BLUEPRINT_DB_HOST and BLUEPRINT_DB_DATABASE are required for the postgres cache backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PostgresDSN renders the connection string for the postgres cache backend.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSchema)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v == 0 {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envMillis(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
