package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "AI and Jobs")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Topic != "AI and Jobs" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}
	if got.CurrentAgent != AgentOne {
		t.Fatalf("CurrentAgent = %q, want %q", got.CurrentAgent, AgentOne)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerInterruptCounts(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "AI and Jobs")
	if err := m.Interrupt(s.ID); err != nil {
		t.Fatalf("Interrupt() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.InterruptionCount != 1 {
		t.Fatalf("InterruptionCount = %d, want 1", got.InterruptionCount)
	}
}

func TestManagerUpdateTurnState(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "AI and Jobs")

	if err := m.UpdateTurnState(s.ID, AgentTwo, true, true); err != nil {
		t.Fatalf("UpdateTurnState() error = %v", err)
	}
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CurrentAgent != AgentTwo || !got.HumanTurnRequested || !got.GrantStartAllowed {
		t.Fatalf("turn state not mirrored: %+v", got)
	}

	if err := m.UpdateTurnState("missing", AgentOne, false, false); err != ErrNotFound {
		t.Fatalf("UpdateTurnState(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAgentIDOther(t *testing.T) {
	if AgentOne.Other() != AgentTwo {
		t.Fatalf("AgentOne.Other() = %q, want %q", AgentOne.Other(), AgentTwo)
	}
	if AgentTwo.Other() != AgentOne {
		t.Fatalf("AgentTwo.Other() = %q, want %q", AgentTwo.Other(), AgentOne)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("u1", "AI and Jobs")

	expired := make(chan struct{}, 1)
	m.SetExpireHook(func(_ *Session) {
		select {
		case expired <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for expire hook")
	}
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
