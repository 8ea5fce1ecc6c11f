package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/taskAuth"
)

// appConfig is everything the binary reads from the environment.
type appConfig struct {
	Auth              taskAuth.Config
	DBPath            string
	ListenAddr        string
	RedisAddr         string
	OwnershipCacheTTL time.Duration
	LogLevel          string
	AuditLog          bool
}

// loadConfig reads TASKAUTH_* variables over taskAuth.DefaultConfig. Malformed
// values are errors; missing ones keep their defaults.
func loadConfig() (*appConfig, error) {
	cfg := &appConfig{
		Auth:       taskAuth.DefaultConfig(),
		DBPath:     os.Getenv("TASKAUTH_DB_PATH"),
		ListenAddr: os.Getenv("TASKAUTH_LISTEN_ADDR"),
		RedisAddr:  os.Getenv("TASKAUTH_REDIS_ADDR"),
		LogLevel:   os.Getenv("TASKAUTH_LOG_LEVEL"),
	}

	if v := os.Getenv("TASKAUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWT.Secret = []byte(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TASKAUTH_ACCESS_TTL", &cfg.Auth.JWT.AccessTTL},
		{"TASKAUTH_REFRESH_TTL", &cfg.Auth.JWT.RefreshTTL},
		{"TASKAUTH_LOGIN_WINDOW", &cfg.Auth.RateLimit.LoginWindow},
		{"TASKAUTH_REFRESH_WINDOW", &cfg.Auth.RateLimit.RefreshWindow},
		{"TASKAUTH_OWNERSHIP_CACHE_TTL", &cfg.OwnershipCacheTTL},
	}
	for _, d := range durations {
		if err := parseDurationEnv(d.key, d.dst); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TASKAUTH_MAX_LOGIN_ATTEMPTS", &cfg.Auth.RateLimit.MaxLoginAttempts},
		{"TASKAUTH_MAX_REFRESH_ATTEMPTS", &cfg.Auth.RateLimit.MaxRefreshAttempts},
	}
	for _, n := range ints {
		if err := parseIntEnv(n.key, n.dst); err != nil {
			return nil, err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"TASKAUTH_RATE_LIMIT_ENABLED", &cfg.Auth.RateLimit.Enabled},
		{"TASKAUTH_METRICS_ENABLED", &cfg.Auth.Metrics.Enabled},
		{"TASKAUTH_LATENCY_HISTOGRAMS", &cfg.Auth.Metrics.EnableLatencyHistograms},
		{"TASKAUTH_AUDIT_LOG", &cfg.AuditLog},
	}
	for _, b := range bools {
		if err := parseBoolEnv(b.key, b.dst); err != nil {
			return nil, err
		}
	}
	cfg.Auth.Audit.Enabled = cfg.AuditLog

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "taskauth.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// slogLevel maps LogLevel to an slog.Level, defaulting to info.
func (c *appConfig) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDurationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseIntEnv(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func parseBoolEnv(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
