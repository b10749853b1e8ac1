package core

import "strings"

// Scope is the addressing tuple that partitions all memory operations. UserID
// is the primary partition key and is always required; AgentID and RunID are
// optional refinements attached to writes and filters only when non-empty.
//
// A Scope is an immutable value. Construct one per session via NewScope and
// replace it wholesale when the caller switches identity.
type Scope struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// NewScope builds a validated scope from raw caller-supplied settings. Inputs
// are trimmed but otherwise preserved; case-sensitive partitioning is the
// backing service's concern, not this package's. An empty user id fails with
// ErrInvalidIdentity.
func NewScope(userID, agentID, runID string) (Scope, error) {
	s := Scope{
		UserID:  strings.TrimSpace(userID),
		AgentID: strings.TrimSpace(agentID),
		RunID:   strings.TrimSpace(runID),
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Validate reports ErrInvalidIdentity when the scope lacks a user id. Every
// memory store implementation must call this before any remote call.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// Key returns a stable cache key for the scope tuple.
func (s Scope) Key() string {
	return s.UserID + "\x00" + s.AgentID + "\x00" + s.RunID
}

// String renders the scope for logs.
func (s Scope) String() string {
	var b strings.Builder
	b.WriteString("user=" + s.UserID)
	if s.AgentID != "" {
		b.WriteString(" agent=" + s.AgentID)
	}
	if s.RunID != "" {
		b.WriteString(" run=" + s.RunID)
	}
	return b.String()
}
