package discussion

// Role tags a conversation entry with its speaker.
type Role string

const (
	RoleHuman    Role = "user"
	RoleAgentOne Role = "assistant_llm1"
	RoleAgentTwo Role = "assistant_llm2"
)

// Entry is one immutable line of the discussion transcript.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is a bounded, append-only conversation log. When the capacity is
// exceeded the oldest entry is evicted.
type History struct {
	limit   int
	entries []Entry
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{limit: limit}
}

func (h *History) Append(role Role, text string) {
	h.entries = append(h.entries, Entry{Role: role, Text: text})
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Snapshot returns the entries in chronological order, most recent last.
// The returned slice is a copy; mutating it does not affect the history.
func (h *History) Snapshot() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int { return len(h.entries) }
