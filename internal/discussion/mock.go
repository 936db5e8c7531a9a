package discussion

import (
	"context"
	"sync"

	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

// Test doubles for the session loop collaborators. They are deterministic:
// nothing happens until the test injects an event.

type MockCapture struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
	events  chan CaptureEvent
}

func NewMockCapture() *MockCapture {
	return &MockCapture{events: make(chan CaptureEvent, portEventBuffer)}
}

func (c *MockCapture) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.starts++
}

func (c *MockCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.stops++
}

func (c *MockCapture) Events() <-chan CaptureEvent { return c.events }

func (c *MockCapture) Emit(ev CaptureEvent) { c.events <- ev }

func (c *MockCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MockCapture) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

type MockPlayer struct {
	mu      sync.Mutex
	clips   []Clip
	cancels int
	events  chan PlaybackEvent
}

func NewMockPlayer() *MockPlayer {
	return &MockPlayer{events: make(chan PlaybackEvent, portEventBuffer)}
}

func (p *MockPlayer) Play(clip Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips = append(p.clips, clip)
}

func (p *MockPlayer) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
}

func (p *MockPlayer) Events() <-chan PlaybackEvent { return p.events }

func (p *MockPlayer) EmitStarted(turnID string) {
	p.events <- PlaybackEvent{Type: PlaybackStarted, TurnID: turnID}
}

func (p *MockPlayer) EmitEnded(turnID string) {
	p.events <- PlaybackEvent{Type: PlaybackEnded, TurnID: turnID}
}

func (p *MockPlayer) Clips() []Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Clip, len(p.clips))
	copy(out, p.clips)
	return out
}

func (p *MockPlayer) LastClip() (Clip, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.clips) == 0 {
		return Clip{}, false
	}
	return p.clips[len(p.clips)-1], true
}

func (p *MockPlayer) Cancels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancels
}

// AgentCall records one SendTurn invocation.
type AgentCall struct {
	Agent   session.AgentID
	Request TurnRequest
}

type MockAgentClient struct {
	mu         sync.Mutex
	calls      []AgentCall
	handRaises int

	// TurnFn overrides the canned reply when set.
	TurnFn func(agent session.AgentID, req TurnRequest) (TurnReply, error)
	// SynthesizeErr forces the local synthesis fallback when set.
	SynthesizeErr error
	// Gate, when set, is received from before SendTurn returns so tests can
	// hold a reply in flight.
	Gate chan struct{}
}

func NewMockAgentClient() *MockAgentClient {
	return &MockAgentClient{}
}

func (a *MockAgentClient) SendTurn(ctx context.Context, agent session.AgentID, req TurnRequest) (TurnReply, error) {
	a.mu.Lock()
	a.calls = append(a.calls, AgentCall{Agent: agent, Request: req})
	fn := a.TurnFn
	gate := a.Gate
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return TurnReply{}, ctx.Err()
		}
	}
	if fn != nil {
		return fn(agent, req)
	}
	return TurnReply{Text: "reply from " + string(agent), ModelUsed: "mock-model"}, nil
}

func (a *MockAgentClient) Synthesize(ctx context.Context, agent session.AgentID, text string) (string, []byte, error) {
	a.mu.Lock()
	err := a.SynthesizeErr
	a.mu.Unlock()
	if err != nil {
		return "", nil, err
	}
	return "audio/mpeg", []byte("mock-audio:" + text), nil
}

func (a *MockAgentClient) NotifyHandRaise(ctx context.Context, topic string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handRaises++
	return nil
}

func (a *MockAgentClient) Calls() []AgentCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AgentCall, len(a.calls))
	copy(out, a.calls)
	return out
}

func (a *MockAgentClient) HandRaises() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handRaises
}

type MockSpeechLogger struct {
	mu      sync.Mutex
	records []SpeechRecord
}

func NewMockSpeechLogger() *MockSpeechLogger { return &MockSpeechLogger{} }

func (s *MockSpeechLogger) LogSpeech(ctx context.Context, rec SpeechRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MockSpeechLogger) Records() []SpeechRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpeechRecord, len(s.records))
	copy(out, s.records)
	return out
}
