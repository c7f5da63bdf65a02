package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Mail transport (external email API)
	MailerBaseURL string
	MailerAPIKey  string
	MailerTimeout time.Duration
	SenderEmail   string
	SiteBaseURL   string

	// Sending limits. The defaults mirror the external provider's free
	// tier: 200 mails per calendar day, one mail per second, no burst.
	DailyQuota   int
	SendInterval time.Duration

	// Dispatch
	BatchSize  int
	BatchPause time.Duration
	MaxRetries int

	// Distribution schedule (cron expression); empty disables the
	// scheduled trigger so runs happen only on demand.
	DistributionSchedule string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Minute), // runs are synchronous
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		MailerBaseURL: getEnv("MAILER_BASE_URL", "https://api.mailer.example.com/v1/send"),
		MailerAPIKey:  getEnv("MAILER_API_KEY", ""),
		MailerTimeout: getDuration("MAILER_TIMEOUT", 10*time.Second),
		SenderEmail:   getEnv("SENDER_EMAIL", "newsletter@example.com"),
		SiteBaseURL:   getEnv("SITE_BASE_URL", "https://newsletter.example.com"),

		DailyQuota:   getInt("DAILY_QUOTA", 200),
		SendInterval: getDuration("SEND_INTERVAL", time.Second),

		BatchSize:  getInt("BATCH_SIZE", 50),
		BatchPause: getDuration("BATCH_PAUSE", 2*time.Second),
		MaxRetries: getInt("MAX_RETRIES", 2),

		DistributionSchedule: getEnv("DISTRIBUTION_SCHEDULE", ""),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
