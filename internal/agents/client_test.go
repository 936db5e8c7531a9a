package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vijaykv5/Intereractive-GD/internal/discussion"
	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

func TestSendTurnSuccess(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"response":   "automation changes work",
			"model_used": "gemini-pro",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	reply, err := c.SendTurn(context.Background(), session.AgentOne, discussion.TurnRequest{
		Text:           "Let's begin the discussion about AI and Jobs",
		Topic:          "AI and Jobs",
		InitialMessage: true,
	})
	if err != nil {
		t.Fatalf("SendTurn: %v", err)
	}
	if reply.Text != "automation changes work" || reply.ModelUsed != "gemini-pro" {
		t.Fatalf("reply = %+v", reply)
	}
	if gotPath != "/api/llm1/llm" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["is_initial_message"] != true {
		t.Fatalf("is_initial_message missing: %v", gotBody)
	}
	if _, present := gotBody["is_user_message"]; present {
		t.Fatalf("false flags should be omitted: %v", gotBody)
	}
}

func TestSendTurnNon200IsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "overloaded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.SendTurn(context.Background(), session.AgentTwo, discussion.TurnRequest{Text: "hi"})

	var be *discussion.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}
	if be.Status != http.StatusServiceUnavailable || be.Agent != session.AgentTwo {
		t.Fatalf("backend error = %+v", be)
	}
	if be.Detail != "overloaded" {
		t.Fatalf("detail = %q", be.Detail)
	}
}

func TestSendTurnMalformedResponseIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.SendTurn(context.Background(), session.AgentOne, discussion.TurnRequest{Text: "hi"})

	var be *discussion.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}
	if be.Status != http.StatusOK || be.Agent != session.AgentOne {
		t.Fatalf("backend error = %+v", be)
	}
}

func TestSendTurnApplicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model quota exceeded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.SendTurn(context.Background(), session.AgentOne, discussion.TurnRequest{Text: "hi"})

	var be *discussion.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}
	if be.Status != http.StatusOK || be.Detail != "model quota exceeded" {
		t.Fatalf("backend error = %+v", be)
	}
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/llm2/tts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte{0xff, 0xfb, 0x90})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	format, audio, err := c.Synthesize(context.Background(), session.AgentTwo, "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if format != "audio/mpeg" || len(audio) != 3 {
		t.Fatalf("format = %q, audio len = %d", format, len(audio))
	}
}

func TestSynthesizeFailureIsSynthesisError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tts backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, _, err := c.Synthesize(context.Background(), session.AgentOne, "hello")

	var se *discussion.SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if se.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", se.Status)
	}
}

func TestNotifyHandRaiseTargetsAgentTwo(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "should_respond": false})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	if err := c.NotifyHandRaise(context.Background(), "AI and Jobs"); err != nil {
		t.Fatalf("NotifyHandRaise: %v", err)
	}
	if gotPath != "/api/llm2/llm" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["text"] != "User raised hand" || gotBody["user_interrupted"] != true {
		t.Fatalf("payload = %v", gotBody)
	}
	if gotBody["topic"] != "AI and Jobs" {
		t.Fatalf("topic = %v", gotBody["topic"])
	}
}
