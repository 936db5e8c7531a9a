package discussion

import (
	"fmt"

	"github.com/Vijaykv5/Intereractive-GD/internal/session"
)

// BackendError is a failed agent turn: non-2xx status, malformed payload,
// or an application-level success:false flag. It blocks turn progress and
// is surfaced to the user.
type BackendError struct {
	Agent  session.AgentID
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("agent %s backend error (status %d): %s", e.Agent, e.Status, e.Detail)
}

// SynthesisError is a failed remote text-to-speech call. It is recovered by
// falling back to the client's local synthesis and never surfaced.
type SynthesisError struct {
	Agent  session.AgentID
	Status int
	Detail string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("agent %s synthesis error (status %d): %s", e.Agent, e.Status, e.Detail)
}
