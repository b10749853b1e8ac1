package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/memchat/core"
)

// storedMemory is the internal representation persisted by InMemoryStore. It
// carries the full owner tuple so reads can refine on agent/run while deletes
// stay user-wide.
type storedMemory struct {
	record core.MemoryRecord
	owner  core.Scope
}

// InMemoryStore is a naive process-local MemoryStore partitioned by user id.
//
// Concurrency: protected by RWMutex.
// Search: linear scan with case-insensitive substring matching assigning a
// constant score of 1.0 to every hit, newest first. Suitable only for tests /
// demos; swap for the mem0, chromem or postgres backends for real retrieval.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]storedMemory // userID -> stored memories, insertion order
}

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]storedMemory)}
}

// Search performs a simple substring match over the scope's memories. Hits
// are returned newest first with a constant score of 1.0, up to topK. A
// threshold above 1.0 therefore excludes everything.
func (m *InMemoryStore) Search(_ context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []core.RetrievedMemory{}
	if threshold > 1.0 {
		return results, nil
	}
	owned := m.storage[scope.UserID]
	needle := strings.ToLower(query)
	for i := len(owned) - 1; i >= 0 && len(results) < topK; i-- {
		sm := owned[i]
		if !scopeMatches(scope, sm.owner) {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(sm.record.Text), needle) {
			results = append(results, core.RetrievedMemory{Text: sm.record.Text, Score: 1.0})
		}
	}
	return results, nil
}

// Add appends one record per turn under the scope's user and returns the
// reference of the first created record.
func (m *InMemoryStore) Add(_ context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "", core.NewPersistenceError("add", errNoTurns)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var ref string
	now := time.Now()
	for _, turn := range turns {
		md := map[string]string{"role": turn.Role}
		for k, v := range metadata {
			md[k] = v
		}
		rec := core.MemoryRecord{ID: core.NewID(), Text: turn.Content, Metadata: md, CreatedAt: now}
		if ref == "" {
			ref = rec.ID
		}
		m.storage[scope.UserID] = append(m.storage[scope.UserID], storedMemory{record: rec, owner: scope})
	}
	return ref, nil
}

// List returns the scope's first pageSize records (oldest first) together
// with the scope's total count.
func (m *InMemoryStore) List(_ context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error) {
	if err := scope.Validate(); err != nil {
		return core.MemoryPage{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	page := core.MemoryPage{Records: []core.MemoryRecord{}}
	for _, sm := range m.storage[scope.UserID] {
		if !scopeMatches(scope, sm.owner) {
			continue
		}
		page.Count++
		if len(page.Records) < pageSize {
			rec := sm.record
			rec.Metadata = copyMetadata(sm.record.Metadata)
			page.Records = append(page.Records, rec)
		}
	}
	return page, nil
}

// DeleteAll removes every record owned by the scope's user. Agent/run
// refinements are deliberately ignored: deletion is user-wide but must never
// cross users.
func (m *InMemoryStore) DeleteAll(_ context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, scope.UserID)
	return nil
}

// scopeMatches reports whether a record owned by owner is visible to reads
// under scope: the user must match exactly and agent/run must match whenever
// the querying scope carries them.
func scopeMatches(scope, owner core.Scope) bool {
	if scope.UserID != owner.UserID {
		return false
	}
	if scope.AgentID != "" && scope.AgentID != owner.AgentID {
		return false
	}
	if scope.RunID != "" && scope.RunID != owner.RunID {
		return false
	}
	return true
}

func copyMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
