package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl   MessageType = "client_control"
	TypeCaptureEvent    MessageType = "capture_event"
	TypePlaybackEvent   MessageType = "playback_event"
	TypeDiscussionState MessageType = "discussion_state"
	TypeCaptureCommand  MessageType = "capture_command"
	TypeAgentUtterance  MessageType = "agent_utterance"
	TypePlayAudio       MessageType = "play_audio"
	TypeSpeakText       MessageType = "speak_text"
	TypePlaybackCancel  MessageType = "playback_cancel"
	TypeSystemEvent     MessageType = "system_event"
	TypeErrorEvent      MessageType = "error_event"
)

// Client control actions.
const (
	ActionStartDiscussion = "start_discussion"
	ActionRaiseHand       = "raise_hand"
	ActionLowerHand       = "lower_hand"
	ActionDismissError    = "dismiss_error"
)

// Capture event kinds relayed by the browser speech recognizer.
const (
	CaptureStarted     = "started"
	CaptureInterim     = "interim"
	CaptureFinal       = "final"
	CaptureError       = "error"
	CaptureStopped     = "stopped"
	CaptureUnavailable = "unavailable"
)

// Playback event kinds reported by the browser audio element.
const (
	PlaybackStarted     = "started"
	PlaybackEnded       = "ended"
	PlaybackInterrupted = "interrupted"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type CaptureEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Code      string      `json:"code,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

type PlaybackEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	TurnID    string      `json:"turn_id,omitempty"`
}

type DiscussionState struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"session_id"`
	State             string      `json:"state"`
	Agent             string      `json:"agent,omitempty"`
	GrantStartAllowed bool        `json:"grant_start_allowed"`
	HandRaiseEnabled  bool        `json:"hand_raise_enabled"`
}

type CaptureCommand struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Command   string      `json:"command"` // start | stop
}

type AgentUtterance struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Agent     string      `json:"agent"`
	Text      string      `json:"text"`
	ModelUsed string      `json:"model_used,omitempty"`
}

type PlayAudio struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	TurnID      string      `json:"turn_id"`
	Format      string      `json:"format"`
	AudioBase64 string      `json:"audio_base64"`
}

// SpeakText instructs the client to voice the reply with its local speech
// synthesis capability; sent when remote synthesis failed.
type SpeakText struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
}

type PlaybackCancel struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ActionStartDiscussion, ActionRaiseHand, ActionLowerHand, ActionDismissError:
		default:
			return nil, fmt.Errorf("unknown control action %q", msg.Action)
		}
		return msg, nil
	case TypeCaptureEvent:
		var msg CaptureEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Kind == "" {
			return nil, errors.New("invalid capture_event")
		}
		return msg, nil
	case TypePlaybackEvent:
		var msg PlaybackEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Kind == "" {
			return nil, errors.New("invalid playback_event")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
