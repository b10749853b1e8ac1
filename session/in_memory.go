package session

import (
	"sync"

	"github.com/hupe1980/memchat/core"
)

// TranscriptStore tracks live conversation transcripts by session id.
type TranscriptStore interface {
	// Get returns the transcript for id, creating it lazily.
	Get(id string) (*core.Transcript, error)
	// End clears and forgets the transcript for id.
	End(id string) error
}

// InMemoryStore is a volatile TranscriptStore keeping transcripts in a
// process local map. It is safe for concurrent access. Transcripts are shared
// by reference: the runner mutates them, the store only tracks lifecycle.
type InMemoryStore struct {
	mu          sync.Mutex
	transcripts map[string]*core.Transcript
}

// Interface compliance (compile-time assertion)
var _ TranscriptStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{transcripts: make(map[string]*core.Transcript)}
}

// Get returns an existing transcript or creates a new one lazily.
func (s *InMemoryStore) Get(id string) (*core.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tr, ok := s.transcripts[id]; ok {
		return tr, nil
	}
	tr := core.NewTranscript(id)
	s.transcripts[tr.ID] = tr
	return tr, nil
}

// End clears the transcript's history and removes it from the store.
func (s *InMemoryStore) End(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tr, ok := s.transcripts[id]; ok {
		tr.Clear()
		delete(s.transcripts, id)
	}
	return nil
}
