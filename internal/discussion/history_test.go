package discussion

import (
	"fmt"
	"testing"
)

func TestHistoryAppendAndSnapshot(t *testing.T) {
	h := NewHistory(10)
	h.Append(RoleAgentOne, "opening")
	h.Append(RoleHuman, "reply")

	snap := h.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len = %d, want 2", len(snap))
	}
	if snap[0].Role != RoleAgentOne || snap[1].Role != RoleHuman {
		t.Fatalf("unexpected order: %+v", snap)
	}
}

func TestHistoryEvictsOldestFIFO(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 15; i++ {
		h.Append(RoleHuman, fmt.Sprintf("m%d", i))
	}

	if h.Len() != 10 {
		t.Fatalf("Len = %d, want 10", h.Len())
	}
	snap := h.Snapshot()
	if snap[0].Text != "m5" {
		t.Fatalf("oldest = %q, want %q", snap[0].Text, "m5")
	}
	if snap[9].Text != "m14" {
		t.Fatalf("newest = %q, want %q", snap[9].Text, "m14")
	}
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Append(RoleHuman, "original")

	snap := h.Snapshot()
	snap[0].Text = "mutated"

	if got := h.Snapshot()[0].Text; got != "original" {
		t.Fatalf("history mutated through snapshot: %q", got)
	}
}
