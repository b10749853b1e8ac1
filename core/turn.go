package core

import (
	"time"

	"github.com/google/uuid"
)

// Turn roles. Only these two appear in transcripts and write-backs.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one side of a conversation step: a role plus its textual content.
// A user/assistant pair produced by a completed step is what gets written
// back to the memory store.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserTurn creates a user-authored turn.
func NewUserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// NewAssistantTurn creates an assistant-authored turn.
func NewAssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// RetrievedMemory is an ephemeral, ranked memory excerpt returned by a search
// call. It lives for one turn and is never persisted by the caller.
type RetrievedMemory struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// MemoryRecord is a durable fact held by a memory store, surfaced for
// display and administration.
type MemoryRecord struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MemoryPage is one page of records plus the total count reported by the
// backing store (the count covers the whole scope, not just this page).
type MemoryPage struct {
	Count   int            `json:"count"`
	Records []MemoryRecord `json:"records"`
}

// NewID generates a unique identifier for records and transcripts.
func NewID() string { return uuid.NewString() }
