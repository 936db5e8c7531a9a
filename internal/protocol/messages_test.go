package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"raise_hand"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != ActionRaiseHand {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageCaptureFinal(t *testing.T) {
	raw := []byte(`{"type":"capture_event","session_id":"s1","kind":"final","text":"Jobs will grow","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	evt, ok := msg.(CaptureEvent)
	if !ok {
		t.Fatalf("message type = %T, want CaptureEvent", msg)
	}
	if evt.Kind != CaptureFinal || evt.Text != "Jobs will grow" {
		t.Fatalf("unexpected capture event: %+v", evt)
	}
}

func TestParseClientMessagePlaybackEnded(t *testing.T) {
	raw := []byte(`{"type":"playback_event","session_id":"s1","kind":"ended","turn_id":"t9"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	evt, ok := msg.(PlaybackEvent)
	if !ok {
		t.Fatalf("message type = %T, want PlaybackEvent", msg)
	}
	if evt.Kind != PlaybackEnded || evt.TurnID != "t9" {
		t.Fatalf("unexpected playback event: %+v", evt)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsUnknownAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","session_id":"s1","action":"dance"}`))
	if err == nil {
		t.Fatalf("expected validation error for unknown action")
	}
}

func TestParseClientMessageRejectsMissingSession(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"capture_event","kind":"final","text":"hi"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
