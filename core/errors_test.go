package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetrievalError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewRetrievalError("search", cause)

	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetrievalError, got %T", err)
	}
	if re.Op != "search" {
		t.Fatalf("unexpected op: %q", re.Op)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
}

func TestPersistenceError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := NewPersistenceError("delete_all", cause)

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	if pe.Op != "delete_all" {
		t.Fatalf("unexpected op: %q", pe.Op)
	}
}

func TestGenerationError_Message(t *testing.T) {
	err := &GenerationError{Model: "gpt-4o", Err: fmt.Errorf("rate limited")}
	if err.Error() != "generation failed (model gpt-4o): rate limited" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	bare := &GenerationError{Err: fmt.Errorf("boom")}
	if bare.Error() != "generation failed: boom" {
		t.Fatalf("unexpected message: %q", bare.Error())
	}
}
