// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	ExamPrep ExamPrepConfig
	Compose  ComposeConfig
	Session  SessionConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL keeps saved quizzes in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
// An empty URL keeps sessions in memory.
type CacheConfig struct {
	URL string
}

// ExamPrepConfig holds settings for the remote taxonomy and question-generation service.
type ExamPrepConfig struct {
	BaseURL     string
	Timeout     time.Duration
	FixturePath string // optional YAML taxonomy used instead of the remote lists
}

// ComposeConfig holds cascade controller settings.
type ComposeConfig struct {
	FetchTimeout time.Duration
}

// SessionConfig holds authenticated session settings.
type SessionConfig struct {
	TTL time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
		},
		ExamPrep: ExamPrepConfig{
			BaseURL:     envStr("LEARN_EXAMPREP_BASE_URL", "https://ai.excelsoftcorp.com"),
			Timeout:     time.Duration(envInt("LEARN_EXAMPREP_TIMEOUT", 120)) * time.Second,
			FixturePath: envStr("LEARN_EXAMPREP_FIXTURE_PATH", ""),
		},
		Compose: ComposeConfig{
			FetchTimeout: time.Duration(envInt("LEARN_COMPOSE_FETCH_TIMEOUT", 15)) * time.Second,
		},
		Session: SessionConfig{
			TTL: time.Duration(envInt("LEARN_SESSION_TTL", 12)) * time.Hour,
		},
		Log: LogConfig{
			Level:     envStr("LEARN_LOG_LEVEL", "info"),
			Format:    envStr("LEARN_LOG_FORMAT", "json"),
			AddSource: envBool("LEARN_LOG_ADD_SOURCE", false),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ExamPrep.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LEARN_EXAMPREP_BASE_URL must be an absolute URL, got %q", c.ExamPrep.BaseURL)
	}

	if c.ExamPrep.Timeout <= 0 {
		return fmt.Errorf("LEARN_EXAMPREP_TIMEOUT must be positive")
	}
	if c.Compose.FetchTimeout <= 0 {
		return fmt.Errorf("LEARN_COMPOSE_FETCH_TIMEOUT must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("LEARN_SESSION_TTL must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// UsesDatabase reports whether saved quizzes and events go to PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

// UsesCache reports whether sessions are kept in Redis/Dragonfly.
func (c *Config) UsesCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
