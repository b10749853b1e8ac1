package core

import (
	"errors"
	"testing"
)

func TestNewScope_Validation(t *testing.T) {
	if _, err := NewScope("", "", ""); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := NewScope("   ", "agent", "run"); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for blank user id, got %v", err)
	}
	s, err := NewScope(" alice ", " helper ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != "alice" || s.AgentID != "helper" || s.RunID != "" {
		t.Fatalf("unexpected scope: %#v", s)
	}
}

func TestScope_CasePreserved(t *testing.T) {
	s, err := NewScope("Alice", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No normalization beyond trimming; the backend owns case semantics.
	if s.UserID != "Alice" {
		t.Fatalf("expected case preserved, got %q", s.UserID)
	}
}

func TestScope_Key(t *testing.T) {
	a, _ := NewScope("alice", "helper", "")
	b, _ := NewScope("alice", "", "helper")
	if a.Key() == b.Key() {
		t.Fatalf("expected distinct keys for distinct tuples")
	}
	a2, _ := NewScope("alice", "helper", "")
	if a.Key() != a2.Key() {
		t.Fatalf("expected stable keys for equal tuples")
	}
}
