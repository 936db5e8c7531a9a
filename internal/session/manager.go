package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// AgentID names one of the two fixed discussion participants.
type AgentID string

const (
	AgentOne AgentID = "llm1"
	AgentTwo AgentID = "llm2"
)

// Other returns the peer agent.
func (a AgentID) Other() AgentID {
	if a == AgentOne {
		return AgentTwo
	}
	return AgentOne
}

var ErrNotFound = errors.New("session not found")

// Session is the single live instance of a discussion. Turn-level fields
// (CurrentAgent, HumanTurnRequested, GrantStartAllowed) are owned by the
// orchestrator loop and mirrored here via UpdateTurnState so that HTTP
// reads observe them; the manager itself only tracks lifecycle.
type Session struct {
	ID                 string    `json:"session_id"`
	UserID             string    `json:"user_id"`
	Topic              string    `json:"topic"`
	Status             Status    `json:"status"`
	CurrentAgent       AgentID   `json:"current_agent"`
	HumanTurnRequested bool      `json:"human_turn_requested"`
	GrantStartAllowed  bool      `json:"grant_start_allowed"`
	InterruptionCount  int       `json:"interruption_count"`
	StartedAt          time.Time `json:"started_at"`
	LastActivityAt     time.Time `json:"last_activity_at"`
}

type CreateRequest struct {
	UserID string `json:"user_id"`
	Topic  string `json:"topic"`
}

type CreateResponse struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	Topic            string    `json:"topic"`
	Status           Status    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	LastActivityAt   time.Time `json:"last_activity_at"`
	GracePeriodMS    int64     `json:"grace_period_ms"`
	InterTurnPauseMS int64     `json:"inter_turn_pause_ms"`
	InactivityTTLMS  int64     `json:"inactivity_ttl_ms"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	sessionByUser     map[string]string
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		sessionByUser:     make(map[string]string),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(userID, topic string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Topic:          topic,
		Status:         StatusActive,
		CurrentAgent:   AgentOne,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	if userID != "" {
		m.sessionByUser[userID] = s.ID
	}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// UpdateTurnState mirrors the loop-owned turn fields on a transition.
func (m *Manager) UpdateTurnState(sessionID string, agent AgentID, humanTurnRequested, grantStartAllowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.CurrentAgent = agent
	s.HumanTurnRequested = humanTurnRequested
	s.GrantStartAllowed = grantStartAllowed
	return nil
}

func (m *Manager) Interrupt(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.InterruptionCount++
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	if s.UserID != "" {
		delete(m.sessionByUser, s.UserID)
	}
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if s.UserID != "" {
			delete(m.sessionByUser, s.UserID)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
