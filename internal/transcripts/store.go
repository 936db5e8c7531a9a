// Package transcripts persists what the human actually said during a
// discussion. Writes are best effort; the turn-taking loop never waits on
// them.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record is one logged human utterance.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	Text        string    `json:"text"`
	Topic       string    `json:"topic,omitempty"`
	ModelUsed   string    `json:"model_used,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrUnsupported is returned by stores that can write but not read back.
var ErrUnsupported = errors.New("operation not supported by this store")

type Store interface {
	LogSpeech(ctx context.Context, rec Record) error
	Recent(ctx context.Context, userID string, limit int) ([]Record, error)
	Close() error
}

// Store modes.
const (
	ModeAuto     = "auto"
	ModePostgres = "postgres"
	ModeHTTP     = "http"
	ModeOff      = "off"
)

// Open picks a store from the configured mode. In auto mode a database URL
// wins over a forwarding URL, and with neither the store is a no-op. The
// returned mode names what was actually opened.
func Open(ctx context.Context, mode, databaseURL, speechLogURL string) (Store, string, error) {
	switch mode {
	case ModePostgres:
		if databaseURL == "" {
			return nil, "", errors.New("postgres speech log requires DATABASE_URL")
		}
		s, err := NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, ModePostgres, nil
	case ModeHTTP:
		if speechLogURL == "" {
			return nil, "", errors.New("http speech log requires SPEECH_LOG_URL")
		}
		return NewHTTPStore(speechLogURL), ModeHTTP, nil
	case ModeOff:
		return NoopStore{}, ModeOff, nil
	case ModeAuto:
		if databaseURL != "" {
			s, err := NewPostgresStore(ctx, databaseURL)
			if err != nil {
				return nil, "", err
			}
			return s, ModePostgres, nil
		}
		if speechLogURL != "" {
			return NewHTTPStore(speechLogURL), ModeHTTP, nil
		}
		return NoopStore{}, ModeOff, nil
	default:
		return nil, "", fmt.Errorf("unknown speech log mode %q", mode)
	}
}

// NoopStore discards everything. Used when no persistence is configured.
type NoopStore struct{}

func (NoopStore) LogSpeech(ctx context.Context, rec Record) error { return nil }

func (NoopStore) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	return nil, ErrUnsupported
}

func (NoopStore) Close() error { return nil }
