package discussion

import (
	"context"

	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

type CaptureEventType string

const (
	CaptureStarted     CaptureEventType = "started"
	CaptureInterim     CaptureEventType = "interim"
	CaptureFinal       CaptureEventType = "final"
	CaptureError       CaptureEventType = "error"
	CaptureStopped     CaptureEventType = "stopped"
	CaptureUnavailable CaptureEventType = "unavailable"
)

type CaptureEvent struct {
	Type   CaptureEventType
	Text   string
	Code   string
	Detail string
}

// CapturePort drives a continuous speech recognizer. Start and Stop are
// idempotent: starting while capturing or stopping while idle is a no-op.
type CapturePort interface {
	Start()
	Stop()
	Events() <-chan CaptureEvent
}

type PlaybackEventType string

const (
	PlaybackStarted     PlaybackEventType = "started"
	PlaybackEnded       PlaybackEventType = "ended"
	PlaybackInterrupted PlaybackEventType = "interrupted"
)

type PlaybackEvent struct {
	Type   PlaybackEventType
	TurnID string
}

// Clip is one playable agent utterance. When LocalSynthesis is set the
// remote synthesis failed and Text is to be voiced by the client's own
// speech synthesis capability.
type Clip struct {
	TurnID         string
	Format         string
	Audio          []byte
	Text           string
	LocalSynthesis bool
}

// Player owns at most one active playback. Play implicitly cancels any
// active playback first; Cancel emits an interrupted event, distinct from
// the natural ended event.
type Player interface {
	Play(clip Clip)
	Cancel()
	Events() <-chan PlaybackEvent
}

type TurnRequest struct {
	Text           string
	Topic          string
	InitialMessage bool
	UserMessage    bool
	FromAgentOne   bool
	Context        []Entry
}

type TurnReply struct {
	Text      string
	ModelUsed string
}

// AgentClient reaches the two discussion backends.
type AgentClient interface {
	SendTurn(ctx context.Context, agent session.AgentID, req TurnRequest) (TurnReply, error)
	Synthesize(ctx context.Context, agent session.AgentID, text string) (format string, audio []byte, err error)
	// NotifyHandRaise tells agent two, out of band, that the user seized the
	// turn. The target is fixed regardless of which agent was speaking.
	NotifyHandRaise(ctx context.Context, topic string) error
}

type SpeechRecord struct {
	UserID    string
	Role      Role
	Text      string
	Topic     string
	ModelUsed string
}

// SpeechLogger is the best-effort persistence collaborator. Failures must
// never affect turn-taking.
type SpeechLogger interface {
	LogSpeech(ctx context.Context, rec SpeechRecord) error
}
