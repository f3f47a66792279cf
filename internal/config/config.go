package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	BaseURL        string
	DatabaseURL    string
	RedisURL       string
	LogFile        string
	JWTSigningKey  string
	AccessTokenTTL time.Duration
	NoEmailVerify  bool
	TokenTTL       time.Duration
	Email          EmailConfig
	PlanAPI        PlanAPIConfig
	TrustedProxies []string
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

// PlanAPIConfig points at the external floor-plan generation service the
// server proxies to.
type PlanAPIConfig struct {
	URL    string
	APIKey string
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	rawPort := strings.Trim(getenvDefault("EMAIL_SERVER_PORT", "587"), "\"' ")
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:           getenvDefault("PORT", "8080"),
		BaseURL:        getenvDefault("APP_BASE_URL", "http://localhost:3000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:        getenvDefault("LOG_FILE", "logs/server.log"),
		JWTSigningKey:  clean(os.Getenv("JWT_SIGNING_KEY")),
		AccessTokenTTL: parseDuration(os.Getenv("ACCESS_TOKEN_TTL"), 7*24*time.Hour),
		NoEmailVerify:  parseBool(os.Getenv("NO_EMAIL_VERIFY")),
		TokenTTL:       parseDays(os.Getenv("DISPOSABLE_TOKEN_TTL_DAYS"), 2),
		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	cfg.PlanAPI = PlanAPIConfig{
		URL:    getenvDefault("PLAN_API_URL", "http://localhost:8031"),
		APIKey: os.Getenv("PLAN_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseDays(val string, defDays int) time.Duration {
	days := defDays
	if val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && n > 0 {
			days = n
		}
	}
	return time.Duration(days) * 24 * time.Hour
}
