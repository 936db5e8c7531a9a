package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GracePeriod != 10*time.Second {
		t.Fatalf("GracePeriod = %v, want 10s", cfg.GracePeriod)
	}
	if cfg.InterTurnPause != 3*time.Second {
		t.Fatalf("InterTurnPause = %v, want 3s", cfg.InterTurnPause)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}
	if cfg.AgentRequestTimeout != 0 {
		t.Fatalf("AgentRequestTimeout = %v, want 0 (no timeout)", cfg.AgentRequestTimeout)
	}
	if cfg.SpeechLogMode != "auto" {
		t.Fatalf("SpeechLogMode = %q, want %q", cfg.SpeechLogMode, "auto")
	}
}

func TestLoadOverridesTurnTimers(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DISCUSSION_GRACE_PERIOD", "4s")
	t.Setenv("DISCUSSION_INTER_TURN_PAUSE", "750ms")
	t.Setenv("AGENT_REQUEST_TIMEOUT", "20s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GracePeriod != 4*time.Second {
		t.Fatalf("GracePeriod = %v, want 4s", cfg.GracePeriod)
	}
	if cfg.InterTurnPause != 750*time.Millisecond {
		t.Fatalf("InterTurnPause = %v, want 750ms", cfg.InterTurnPause)
	}
	if cfg.AgentRequestTimeout != 20*time.Second {
		t.Fatalf("AgentRequestTimeout = %v, want 20s", cfg.AgentRequestTimeout)
	}
}

func TestLoadRejectsBadSpeechLogMode(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SPEECH_LOG_MODE", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want invalid SPEECH_LOG_MODE error")
	}
}

func TestLoadRejectsNonPositiveGrace(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("DISCUSSION_GRACE_PERIOD", "-1s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want positive grace period error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"DISCUSSION_GRACE_PERIOD",
		"DISCUSSION_INTER_TURN_PAUSE",
		"DISCUSSION_HISTORY_LIMIT",
		"AGENT_BASE_URL",
		"AGENT_REQUEST_TIMEOUT",
		"SPEECH_LOG_MODE",
		"DATABASE_URL",
		"SPEECH_LOG_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
