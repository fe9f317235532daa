// Package config reads runtime configuration from environment variables.
//
// Both executables (the eventd server and anything embedding the client)
// configure themselves from the environment so the same binary runs unchanged
// in development, CI, and a container. Every setting has a default except
// JWT_SECRET, which must be supplied for the server.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server holds the settings for cmd/eventd.
type Server struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration

	// Mutation rate limit, per authenticated user.
	RateLimitRPS   float64
	RateLimitBurst int

	// SecureCookies marks the token cookie Secure; enable behind TLS.
	SecureCookies bool

	LogLevel slog.Level
}

// Client holds the settings for the client-side models.
type Client struct {
	BaseURL        string
	RedisURL       string // empty selects the in-memory cache store
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	LogLevel       slog.Level
}

// minSecretLen matches the shortest HMAC key we are willing to sign with.
const minSecretLen = 16

// LoadServer builds a Server config from the environment.
func LoadServer() (*Server, error) {
	cfg := &Server{
		DBPath:    getEnv("DB_PATH", "data/eventhub.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = getBool("SECURE_COOKIES", false); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minSecretLen {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLen)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return cfg, nil
}

// LoadClient builds a Client config from the environment.
func LoadClient() (*Client, error) {
	cfg := &Client{
		BaseURL:  strings.TrimRight(getEnv("EVENTHUB_URL", "http://localhost:8080"), "/"),
		RedisURL: os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, v)
	}
	return d, nil
}

// getLevel accepts the names slog understands: debug, info, warn, error.
func getLevel(key string, fallback slog.Level) (slog.Level, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return lvl, nil
}
