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

const (
	ExtractorHTTP   = "http"
	ExtractorGemini = "gemini"
)

type Config struct {
	TelegramBotToken string
	WebhookURL       string
	Port             string

	Extractor      string
	ExtractorURL   string
	ExtractorToken string
	GeminiAPIKey   string
	GeminiModel    string

	LedgerURL   string
	LedgerToken string

	DatabaseURL string
	LinkURL     string

	Debounce       time.Duration
	ExtractTimeout time.Duration
	PageSize       int
	LowConfidence  float64
	HighConfidence float64
	BatchTTL       time.Duration
	EditTTL        time.Duration
	SweepEvery     time.Duration

	LogLevel slog.Level
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the configuration from the environment. All problems are
// reported together.
func Load() (*Config, error) {
	var errs []error
	need := func(k string) string {
		v := getEnv(k, "")
		if v == "" {
			errs = append(errs, fmt.Errorf("missing required env %s", k))
		}
		return v
	}
	dur := func(k, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(k, def))
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("env %s: invalid duration %q", k, getEnv(k, def)))
		}
		return d
	}
	num := func(k, def string) float64 {
		f, err := strconv.ParseFloat(getEnv(k, def), 64)
		if err != nil || f < 0 || f > 1 {
			errs = append(errs, fmt.Errorf("env %s: want a number in [0,1], got %q", k, getEnv(k, def)))
		}
		return f
	}

	c := &Config{
		TelegramBotToken: need("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		Port:             getEnv("PORT", "8080"),

		Extractor:      strings.ToLower(getEnv("EXTRACTOR", ExtractorHTTP)),
		ExtractorToken: getEnv("EXTRACTOR_TOKEN", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		LedgerURL:   need("LEDGER_URL"),
		LedgerToken: getEnv("LEDGER_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		LinkURL:     getEnv("LINK_URL", ""),

		Debounce:       dur("DEBOUNCE", "1200ms"),
		ExtractTimeout: dur("EXTRACT_TIMEOUT", "90s"),
		LowConfidence:  num("LOW_CONFIDENCE", "0.6"),
		HighConfidence: num("HIGH_CONFIDENCE", "0.85"),
		BatchTTL:       dur("BATCH_TTL", "30m"),
		EditTTL:        dur("EDIT_TTL", "10m"),
		SweepEvery:     dur("SWEEP_EVERY", "1m"),
	}

	switch c.Extractor {
	case ExtractorHTTP:
		c.ExtractorURL = need("EXTRACTOR_URL")
	case ExtractorGemini:
		c.GeminiAPIKey = need("GEMINI_API_KEY")
	default:
		errs = append(errs, fmt.Errorf("env EXTRACTOR: unknown extractor %q", c.Extractor))
	}

	if n, err := strconv.Atoi(getEnv("PAGE_SIZE", "6")); err != nil || n <= 0 {
		errs = append(errs, fmt.Errorf("env PAGE_SIZE: want a positive integer, got %q", getEnv("PAGE_SIZE", "6")))
	} else {
		c.PageSize = n
	}
	if c.LowConfidence > c.HighConfidence {
		errs = append(errs, fmt.Errorf("LOW_CONFIDENCE %.2f is above HIGH_CONFIDENCE %.2f", c.LowConfidence, c.HighConfidence))
	}
	if c.ExtractTimeout == 0 {
		errs = append(errs, errors.New("env EXTRACT_TIMEOUT must be positive"))
	}
	if c.SweepEvery == 0 {
		errs = append(errs, errors.New("env SWEEP_EVERY must be positive"))
	}
	if err := c.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("env LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}
