// Package agents talks to the two discussion backends over HTTP.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vijaykv5/Intereractive-GD/internal/discussion"
	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

const errorBodyLimit = 512

// Client implements discussion.AgentClient against the agent backend's
// /api/{agent}/llm and /api/{agent}/tts endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL. A zero timeout means
// requests are bounded only by their context; agent replies can take a
// long time.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type turnPayload struct {
	Text             string             `json:"text"`
	Topic            string             `json:"topic,omitempty"`
	IsInitialMessage bool               `json:"is_initial_message,omitempty"`
	IsUserMessage    bool               `json:"is_user_message,omitempty"`
	FromLLM1         bool               `json:"from_llm1,omitempty"`
	UserInterrupted  bool               `json:"user_interrupted,omitempty"`
	Context          []discussion.Entry `json:"context,omitempty"`
}

type turnResult struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	ModelUsed string `json:"model_used"`
	Error     string `json:"error"`
}

func (c *Client) SendTurn(ctx context.Context, agent session.AgentID, req discussion.TurnRequest) (discussion.TurnReply, error) {
	payload := turnPayload{
		Text:             req.Text,
		Topic:            req.Topic,
		IsInitialMessage: req.InitialMessage,
		IsUserMessage:    req.UserMessage,
		FromLLM1:         req.FromAgentOne,
		Context:          req.Context,
	}

	var res turnResult
	status, err := c.postJSON(ctx, agent, payload, &res)
	if err != nil {
		return discussion.TurnReply{}, err
	}
	if status != http.StatusOK {
		return discussion.TurnReply{}, &discussion.BackendError{Agent: agent, Status: status, Detail: res.Error}
	}
	if !res.Success {
		detail := res.Error
		if detail == "" {
			detail = "agent reported failure"
		}
		return discussion.TurnReply{}, &discussion.BackendError{Agent: agent, Status: status, Detail: detail}
	}
	return discussion.TurnReply{Text: res.Response, ModelUsed: res.ModelUsed}, nil
}

func (c *Client) Synthesize(ctx context.Context, agent session.AgentID, text string) (string, []byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", nil, err
	}
	url := fmt.Sprintf("%s/api/%s/tts", c.baseURL, agent)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", nil, &discussion.SynthesisError{Agent: agent, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &discussion.SynthesisError{
			Agent:  agent,
			Status: resp.StatusCode,
			Detail: readErrorBody(resp.Body),
		}
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &discussion.SynthesisError{Agent: agent, Status: resp.StatusCode, Detail: err.Error()}
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "audio/mpeg"
	}
	return format, audio, nil
}

// NotifyHandRaise tells agent two that the user took the floor. The agent
// acknowledges without producing a spoken reply.
func (c *Client) NotifyHandRaise(ctx context.Context, topic string) error {
	payload := turnPayload{
		Text:            "User raised hand",
		Topic:           topic,
		UserInterrupted: true,
	}
	var res turnResult
	status, err := c.postJSON(ctx, session.AgentTwo, payload, &res)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &discussion.BackendError{Agent: session.AgentTwo, Status: status, Detail: res.Error}
	}
	return nil
}

func (c *Client) llmURL(agent session.AgentID) string {
	return fmt.Sprintf("%s/api/%s/llm", c.baseURL, agent)
}

// postJSON posts the payload to the agent's llm endpoint and decodes
// whatever JSON comes back, on any status. The caller decides what the
// status means; a malformed body on a success status is itself a backend
// failure.
func (c *Client) postJSON(ctx context.Context, agent session.AgentID, payload any, out *turnResult) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.llmURL(agent), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading agent response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode == http.StatusOK {
		return resp.StatusCode, &discussion.BackendError{
			Agent:  agent,
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("malformed agent response: %v", err),
		}
	}
	return resp.StatusCode, nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	if err != nil || len(b) == 0 {
		return "no response body"
	}
	return string(b)
}
