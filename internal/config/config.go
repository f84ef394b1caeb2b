package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string // dev, prod
	HTTPPort    string // default 8080
	DatabaseURL string // postgres DSN or sqlite path
	JWTSecret   string
	JWTTTL      time.Duration

	// Single configured zone per deployment; all slot math and email
	// date formatting use it.
	Timezone *time.Location

	DefaultClientID string

	// ConfirmOnCreate books new reservations as confirmed instead of
	// pending.
	ConfirmOnCreate bool

	SweepInterval    time.Duration // due-schedule pass, on the order of a minute
	RetryInterval    time.Duration // failed-schedule pass, on the order of an hour
	RetryMaxAttempts int           // 0 keeps retrying forever
	MirrorTimeout    time.Duration // bound on any external calendar call
	MailTimeout      time.Duration // bound on one SMTP send

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTTTL:           getDuration("JWT_TTL", 24*time.Hour),
		DefaultClientID:  getEnv("DEFAULT_CLIENT_ID", "default"),
		ConfirmOnCreate:  getBool("CONFIRM_ON_CREATE", false),
		SweepInterval:    getDuration("SWEEP_INTERVAL", time.Minute),
		RetryInterval:    getDuration("RETRY_INTERVAL", time.Hour),
		RetryMaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 0),
		MirrorTimeout:    getDuration("MIRROR_TIMEOUT", 10*time.Second),
		MailTimeout:      getDuration("MAIL_TIMEOUT", 15*time.Second),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnv("SMTP_FROM", "noreply@localhost"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	tzName := getEnv("TIMEZONE", "UTC")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = tz

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
