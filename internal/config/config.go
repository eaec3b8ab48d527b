package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	PaymentAmount   int64
	PaymentCurrency string
	GatewayTimeout  time.Duration

	AuthJWTSecret string
	AuthIssuer    string
	AuthAudience  string
	AuthClockSkew time.Duration

	SessionTTL       time.Duration
	VerifyRateLimit  int64
	VerifyRateWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RazorpayKeyID:      strings.TrimSpace(k.String("RAZORPAY_KEY_ID")),
		RazorpayKeySecret:  strings.TrimSpace(k.String("RAZORPAY_KEY_SECRET")),
		RazorpayBaseURL:    strings.TrimSpace(k.String("RAZORPAY_BASE_URL")),
		PaymentAmount:      parseInt64(k.String("PAYMENT_AMOUNT"), 100),
		PaymentCurrency:    valueOrDefault(strings.TrimSpace(k.String("PAYMENT_CURRENCY")), "INR"),
		GatewayTimeout:     parseDuration(k.String("GATEWAY_TIMEOUT"), "10s"),
		AuthJWTSecret:      k.String("AUTH_JWT_SECRET"),
		AuthIssuer:         strings.TrimSpace(k.String("AUTH_ISSUER")),
		AuthAudience:       strings.TrimSpace(k.String("AUTH_AUDIENCE")),
		AuthClockSkew:      parseDuration(k.String("AUTH_CLOCK_SKEW"), "30s"),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "30m"),
		VerifyRateLimit:    parseInt64(k.String("VERIFY_RATE_LIMIT"), 30),
		VerifyRateWindow:   parseDuration(k.String("VERIFY_RATE_WINDOW"), "1m"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.RazorpayKeyID == "" {
		return nil, errors.New("RAZORPAY_KEY_ID is required")
	}
	if cfg.RazorpayKeySecret == "" {
		return nil, errors.New("RAZORPAY_KEY_SECRET is required")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.PaymentAmount <= 0 {
		return nil, errors.New("PAYMENT_AMOUNT must be a positive integer in minor units")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
