// Package transform rewrites assistant reply text: inline Markdown images
// are stripped and uploaded while a reply streams, then re-appended in
// normalized form once the reply completes.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
)

// Phase classifies a response event within one streamed reply.
type Phase string

const (
	// PhaseInterim marks an in-progress content chunk.
	PhaseInterim Phase = "interim"
	// PhaseTerminal marks the completion event for the reply.
	PhaseTerminal Phase = "terminal"
)

// EndMarkerName is the reserved name carried by the final element of a
// reply's response-message sequence.
const EndMarkerName = "__end__"

// ResponseMessage is one element of the host's response-message sequence.
type ResponseMessage struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// PhaseFromMessages derives the phase from the response-message sequence:
// the reply is terminal when the last element carries the end marker name.
func PhaseFromMessages(messages []ResponseMessage) Phase {
	if len(messages) == 0 {
		return PhaseInterim
	}
	if messages[len(messages)-1].Name == EndMarkerName {
		return PhaseTerminal
	}
	return PhaseInterim
}

// SessionIDFrom derives a stable session identifier from the session
// context's string form. A content hash keeps the ID deterministic across
// representations of the same session.
func SessionIDFrom(session string) string {
	sum := sha256.Sum256([]byte(session))
	return hex.EncodeToString(sum[:])
}
