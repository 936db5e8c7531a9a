package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the discussion service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// Turn-taking knobs. GracePeriod is the window after discussion start
	// during which autonomous agent-to-agent continuation is suppressed;
	// InterTurnPause is the silence between one agent utterance ending and
	// the next agent being addressed.
	GracePeriod    time.Duration
	InterTurnPause time.Duration
	HistoryLimit   int

	AgentBaseURL string
	// AgentRequestTimeout of 0 means no timeout: a stalled backend keeps the
	// session in-flight until the user interrupts or the session is torn down.
	AgentRequestTimeout time.Duration

	SpeechLogMode string
	DatabaseURL   string
	SpeechLogURL  string
}

// Load reads environment variables and applies safe defaults. A .env file in
// the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "interactive_gd"),
		AllowAnyOrigin:           false,
		GracePeriod:              10 * time.Second,
		InterTurnPause:           3 * time.Second,
		HistoryLimit:             10,
		AgentBaseURL:             envOrDefault("AGENT_BASE_URL", "http://localhost:8085"),
		AgentRequestTimeout:      0,
		SpeechLogMode:            envOrDefault("SPEECH_LOG_MODE", "auto"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		SpeechLogURL:             stringsTrimSpace("SPEECH_LOG_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GracePeriod, err = durationFromEnv("DISCUSSION_GRACE_PERIOD", cfg.GracePeriod)
	if err != nil {
		return Config{}, err
	}
	cfg.InterTurnPause, err = durationFromEnv("DISCUSSION_INTER_TURN_PAUSE", cfg.InterTurnPause)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("DISCUSSION_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AgentRequestTimeout, err = durationFromEnv("AGENT_REQUEST_TIMEOUT", cfg.AgentRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.GracePeriod <= 0 {
		return Config{}, fmt.Errorf("DISCUSSION_GRACE_PERIOD must be positive")
	}
	if cfg.InterTurnPause <= 0 {
		return Config{}, fmt.Errorf("DISCUSSION_INTER_TURN_PAUSE must be positive")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("DISCUSSION_HISTORY_LIMIT must be positive")
	}
	if cfg.AgentRequestTimeout < 0 {
		return Config{}, fmt.Errorf("AGENT_REQUEST_TIMEOUT must not be negative")
	}
	if strings.TrimSpace(cfg.AgentBaseURL) == "" {
		return Config{}, fmt.Errorf("AGENT_BASE_URL must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SpeechLogMode)) {
	case "auto", "postgres", "http", "off":
	default:
		return Config{}, fmt.Errorf("invalid SPEECH_LOG_MODE: %q (expected auto|postgres|http|off)", cfg.SpeechLogMode)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
