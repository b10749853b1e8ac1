package core

import (
	"sync"
	"testing"
)

func TestTranscript_AppendAndCopyIsolation(t *testing.T) {
	tr := NewTranscript("s1")
	tr.Append(NewUserTurn("hello"))
	tr.Append(NewAssistantTurn("hi there"))

	turns := tr.Turns()
	if len(turns) != 2 || turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Fatalf("unexpected turns: %#v", turns)
	}
	// mutation safety (returned slice is a copy)
	turns[0].Content = "changed"
	if tr.Turns()[0].Content != "hello" {
		t.Fatalf("expected copy isolation, got %q", tr.Turns()[0].Content)
	}
}

func TestTranscript_Clear(t *testing.T) {
	tr := NewTranscript("")
	if tr.ID == "" {
		t.Fatalf("expected generated id")
	}
	tr.Append(NewUserTurn("hello"))
	tr.Clear()
	if tr.Len() != 0 {
		t.Fatalf("expected empty transcript after clear, got %d turns", tr.Len())
	}
}

func TestTranscript_ConcurrentAppend(t *testing.T) {
	tr := NewTranscript("s2")
	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(NewUserTurn("x"))
			_ = tr.Turns()
		}()
	}
	wg.Wait()
	if tr.Len() != 25 {
		t.Fatalf("expected 25 turns, got %d", tr.Len())
	}
}
