package core

import (
	"sync"
	"time"
)

// Transcript is the ordered turn history for one conversation session. It
// lives in process memory only and is never the source of truth for long-term
// memory (the memory store is). It is safe for concurrent access.
//
// Contract:
//   - Append-only within a session; Clear only at session end or scope switch
//   - Turns returns a defensive copy to avoid external mutation
//   - Mutations update the Updated timestamp.
type Transcript struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript creates an empty transcript. An empty id is replaced with a
// generated one.
func NewTranscript(id string) *Transcript {
	if id == "" {
		id = NewID()
	}
	now := time.Now()
	return &Transcript{ID: id, Created: now, Updated: now}
}

// Append adds a turn to the history.
func (t *Transcript) Append(turn Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	t.Updated = time.Now()
}

// Turns returns a copy of the full turn slice to prevent callers from
// mutating internal state.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	turns := make([]Turn, len(t.turns))
	copy(turns, t.turns)
	return turns
}

// Len reports the number of turns recorded so far.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Clear drops all recorded turns, ending the session's history.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
	t.Updated = time.Now()
}

// Clone returns a deep copy of the transcript safe for independent mutation.
func (t *Transcript) Clone() *Transcript {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := &Transcript{ID: t.ID, Created: t.Created, Updated: t.Updated, turns: make([]Turn, len(t.turns))}
	copy(clone.turns, t.turns)
	return clone
}
