package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration values.
type Config struct {
	AppPort               string
	AppEnv                string
	DatabaseURL           string
	JWTSecret             string
	StorefrontAPIURL      string
	StorefrontTimeout     time.Duration
	FreeDeliveryThreshold decimal.Decimal
	Currency              string
	ShapesFile            string
	SessionTTL            time.Duration
	CORSOrigins           string
	TelegramBotToken      string
	TelegramAdminChat     string
}

// Load reads environment variables and returns a populated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	threshold, err := getEnvDecimal("FREE_DELIVERY_THRESHOLD", "499")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:               getEnv("APP_PORT", "8080"),
		AppEnv:                getEnv("APP_ENV", "development"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		StorefrontAPIURL:      strings.TrimRight(getEnv("STOREFRONT_API_URL", "http://localhost:5000/api"), "/"),
		StorefrontTimeout:     getEnvDuration("STOREFRONT_TIMEOUT_SECONDS", 15) * time.Second,
		FreeDeliveryThreshold: threshold,
		Currency:              getEnv("CURRENCY", "INR"),
		ShapesFile:            getEnv("SHAPES_FILE", ""),
		SessionTTL:            getEnvDuration("SESSION_TTL_HOURS", 720) * time.Hour,
		CORSOrigins:           getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAdminChat:     getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
	}

	if cfg.AppPort == "" {
		return nil, errors.New("APP_PORT must be set")
	}

	if cfg.StorefrontAPIURL == "" {
		return nil, errors.New("STOREFRONT_API_URL must be set")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed)
		}
	}
	return time.Duration(fallback)
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getEnv(key, fallback)
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", key, err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return value, nil
}
