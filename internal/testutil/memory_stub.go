package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/memchat/core"
)

// AddCall records one observed MemoryStore.Add invocation.
type AddCall struct {
	Scope    core.Scope
	Turns    []core.Turn
	Metadata map[string]string
}

// StubMemoryStore implements core.MemoryStore with per-operation hooks and
// call recording. Unset hooks succeed with zero values, so tests only script
// the behavior they care about.
type StubMemoryStore struct {
	mu       sync.Mutex
	addCalls []AddCall

	SearchFn    func(ctx context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error)
	AddFn       func(ctx context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error)
	ListFn      func(ctx context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error)
	DeleteAllFn func(ctx context.Context, scope core.Scope) error
}

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*StubMemoryStore)(nil)

// Search implements core.MemoryStore.
func (s *StubMemoryStore) Search(ctx context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if s.SearchFn != nil {
		return s.SearchFn(ctx, scope, query, topK, threshold)
	}
	return []core.RetrievedMemory{}, nil
}

// Add implements core.MemoryStore, recording every call.
func (s *StubMemoryStore) Add(ctx context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.addCalls = append(s.addCalls, AddCall{Scope: scope, Turns: turns, Metadata: metadata})
	s.mu.Unlock()
	if s.AddFn != nil {
		return s.AddFn(ctx, scope, turns, metadata)
	}
	return core.NewID(), nil
}

// List implements core.MemoryStore.
func (s *StubMemoryStore) List(ctx context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error) {
	if err := scope.Validate(); err != nil {
		return core.MemoryPage{}, err
	}
	if s.ListFn != nil {
		return s.ListFn(ctx, scope, pageSize)
	}
	return core.MemoryPage{Records: []core.MemoryRecord{}}, nil
}

// DeleteAll implements core.MemoryStore.
func (s *StubMemoryStore) DeleteAll(ctx context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if s.DeleteAllFn != nil {
		return s.DeleteAllFn(ctx, scope)
	}
	return nil
}

// AddCalls returns a copy of the observed Add invocations in dispatch order.
func (s *StubMemoryStore) AddCalls() []AddCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]AddCall, len(s.addCalls))
	copy(calls, s.addCalls)
	return calls
}
