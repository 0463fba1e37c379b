package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Spok95/compliance-audits/internal/scoring"
)

type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	LogLevel      string
	Env           string // dev|prod
	SentryDSN     string
	Release       string
	Location      *time.Location
	Scoring       scoring.Policy
	StatsInterval time.Duration
	DBTimeout     time.Duration
}

// Load читает окружение; .env подхватывается, если лежит рядом (необязателен).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных (удобно в тестах).
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	dsn := getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("required env DATABASE_URL is empty")
	}

	loc, err := time.LoadLocation(get("TZ", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TZ: %w", err)
	}

	unanswered, err := scoring.ParseUnansweredPolicy(getenv("SCORING_UNANSWERED"))
	if err != nil {
		return nil, fmt.Errorf("SCORING_UNANSWERED: %w", err)
	}
	critical, err := scoring.ParseCriticalRule(getenv("SCORING_CRITICAL"))
	if err != nil {
		return nil, fmt.Errorf("SCORING_CRITICAL: %w", err)
	}

	statsEvery, err := parseDuration(get("STATS_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("STATS_INTERVAL: %w", err)
	}
	dbTimeout, err := parseDuration(get("DB_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("DB_TIMEOUT: %w", err)
	}

	return &Config{
		DatabaseURL:   dsn,
		HTTPAddr:      get("HTTP_ADDR", ":8080"),
		LogLevel:      get("LOG_LEVEL", "info"),
		Env:           get("ENV", "dev"),
		SentryDSN:     getenv("SENTRY_DSN"),
		Release:       get("RELEASE", "dev"),
		Location:      loc,
		Scoring:       scoring.Policy{Unanswered: unanswered, Critical: critical},
		StatsInterval: statsEvery,
		DBTimeout:     dbTimeout,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
