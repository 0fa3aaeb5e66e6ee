package app

import (
	"math"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	LogLevel    string
	SentryDSN   string
	Environment string

	// Optional; enables the speech event log
	DatabaseURL string

	// Speech engine
	SpeechDriver        string // auto, espeak, say, log
	SpeechBinary        string // override synthesizer path
	SpeechMaxConcurrent int    // 0 = unlimited
	SpeechTimeout       time.Duration

	// Optional JWT secret guarding POST /speak
	SpeakJWTSecret    string
	// POST /speak body limit in bytes, 0 = unlimited
	SpeakMaxBodyBytes int64

	// Notifications
	DiscordWebhookURL string

	ShutdownTimeout time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":5000"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		Environment: getenv("ENVIRONMENT", "development"),

		DatabaseURL: getenv("DATABASE_URL", ""),

		SpeechDriver:        getenv("SPEECH_DRIVER", "auto"),
		SpeechBinary:        getenv("SPEECH_BINARY", ""),
		SpeechMaxConcurrent: getenvIntClamped("SPEECH_MAX_CONCURRENT", 0, 0, 64),
		SpeechTimeout:       getenvDuration("SPEECH_TIMEOUT", 0),

		SpeakJWTSecret:    os.Getenv("SPEAK_JWT_SECRET"),
		SpeakMaxBodyBytes: int64(getenvIntClamped("SPEAK_MAX_BODY_BYTES", 0, 0, math.MaxInt32)),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),

		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvIntClamped parses an int env var, falling back to def when unset
// or invalid and clamping to [min, max].
func getenvIntClamped(k string, def, min, max int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// getenvDuration parses a duration env var; negative or invalid values use def.
func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
