// Package ledger accumulates uploaded image records per conversation session
// while a streamed reply is in flight.
package ledger

import (
	"strings"
	"sync"
)

// ImageReference records one uploaded image for a session. Immutable once
// appended; owned by the session entry that holds it.
type ImageReference struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	DisplayText string `json:"display_text"`
}

// Ledger maps a session ID to the ordered images uploaded during that
// session's streamed reply. Entries are created lazily on first append and
// removed wholesale by Drain once the reply completes.
type Ledger struct {
	mu       sync.Mutex
	sessions map[string][]ImageReference
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{sessions: make(map[string][]ImageReference)}
}

// Append records ref for the session unless an entry with the same URL is
// already present. Returns true when the reference was appended.
func (l *Ledger) Append(sessionID string, ref ImageReference) bool {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || strings.TrimSpace(ref.URL) == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.sessions[sessionID] {
		if existing.URL == ref.URL {
			return false
		}
	}
	l.sessions[sessionID] = append(l.sessions[sessionID], ref)
	return true
}

// Has reports whether the session already holds an entry for url.
func (l *Ledger) Has(sessionID, url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.sessions[sessionID] {
		if existing.URL == url {
			return true
		}
	}
	return false
}

// Drain returns the session's references in upload-completion order and
// deletes the entry. One-shot: a second drain returns nil.
func (l *Ledger) Drain(sessionID string) []ImageReference {
	l.mu.Lock()
	defer l.mu.Unlock()
	refs := l.sessions[sessionID]
	delete(l.sessions, sessionID)
	return refs
}

// Sessions returns the number of sessions with pending images.
func (l *Ledger) Sessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
