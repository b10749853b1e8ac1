package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/memchat/core"
)

func mustScope(t *testing.T, user, agent, run string) core.Scope {
	t.Helper()
	s, err := core.NewScope(user, agent, run)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	return s
}

func TestInMemoryStore_InvalidScope(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	empty := core.Scope{}

	if _, err := svc.Search(ctx, empty, "q", 3, 0.3); !errors.Is(err, core.ErrInvalidIdentity) {
		t.Fatalf("search: expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := svc.Add(ctx, empty, []core.Turn{core.NewUserTurn("x")}, nil); !errors.Is(err, core.ErrInvalidIdentity) {
		t.Fatalf("add: expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := svc.List(ctx, empty, 50); !errors.Is(err, core.ErrInvalidIdentity) {
		t.Fatalf("list: expected ErrInvalidIdentity, got %v", err)
	}
	if err := svc.DeleteAll(ctx, empty); !errors.Is(err, core.ErrInvalidIdentity) {
		t.Fatalf("delete: expected ErrInvalidIdentity, got %v", err)
	}
}

func TestInMemoryStore_AddSearchList(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")

	ref, err := svc.Add(ctx, alice, []core.Turn{
		core.NewUserTurn("I love Italian food"),
		core.NewAssistantTurn("Noted, Italian it is"),
	}, map[string]string{"category": "food"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if ref == "" {
		t.Fatalf("expected non-empty record ref")
	}

	res, err := svc.Search(ctx, alice, "italian", 3, 0.3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res))
	}

	// zero matches is an empty slice, not an error
	none, err := svc.Search(ctx, alice, "sushi", 3, 0.3)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v / %v", none, err)
	}

	page, err := svc.List(ctx, alice, 50)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Count != 2 || len(page.Records) != 2 {
		t.Fatalf("unexpected page: %#v", page)
	}
	if page.Records[0].Metadata["category"] != "food" {
		t.Fatalf("expected metadata to round-trip: %#v", page.Records[0].Metadata)
	}
}

func TestInMemoryStore_ListIdempotent(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")
	if _, err := svc.Add(ctx, alice, []core.Turn{core.NewUserTurn("fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	first, err := svc.List(ctx, alice, 50)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	second, err := svc.List(ctx, alice, 50)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if first.Count != second.Count || len(first.Records) != len(second.Records) {
		t.Fatalf("expected identical pages, got %#v vs %#v", first, second)
	}
	if first.Records[0].ID != second.Records[0].ID || first.Records[0].Text != second.Records[0].Text {
		t.Fatalf("expected identical records across calls")
	}
}

func TestInMemoryStore_TopKAndOrder(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")
	for _, text := range []string{"note one", "note two", "note three"} {
		if _, err := svc.Add(ctx, alice, []core.Turn{core.NewUserTurn(text)}, nil); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	res, err := svc.Search(ctx, alice, "note", 2, 0.3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(res))
	}
	// newest first
	if res[0].Text != "note three" || res[1].Text != "note two" {
		t.Fatalf("unexpected order: %#v", res)
	}
}

func TestInMemoryStore_ThresholdAboveConstantScore(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")
	if _, err := svc.Add(ctx, alice, []core.Turn{core.NewUserTurn("fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	res, err := svc.Search(ctx, alice, "fact", 3, 1.5)
	if err != nil || len(res) != 0 {
		t.Fatalf("expected no results above threshold, got %v / %v", res, err)
	}
}

func TestInMemoryStore_DeleteAllScopedToUser(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")
	bob := mustScope(t, "bob", "", "")

	if _, err := svc.Add(ctx, alice, []core.Turn{core.NewUserTurn("alice fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Add(ctx, bob, []core.Turn{core.NewUserTurn("bob fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.DeleteAll(ctx, bob); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	bobPage, _ := svc.List(ctx, bob, 50)
	if bobPage.Count != 0 {
		t.Fatalf("expected bob's memories gone, got %d", bobPage.Count)
	}
	alicePage, _ := svc.List(ctx, alice, 50)
	if alicePage.Count != 1 {
		t.Fatalf("delete must never cross users; alice lost records: %#v", alicePage)
	}
}

func TestInMemoryStore_AgentRunRefinement(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	plain := mustScope(t, "alice", "", "")
	agented := mustScope(t, "alice", "helper", "")

	if _, err := svc.Add(ctx, plain, []core.Turn{core.NewUserTurn("general fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Add(ctx, agented, []core.Turn{core.NewUserTurn("agent fact")}, nil); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// user-only scope sees everything of that user
	all, _ := svc.Search(ctx, plain, "fact", 10, 0.3)
	if len(all) != 2 {
		t.Fatalf("expected 2 results for user scope, got %d", len(all))
	}
	// agent-refined scope narrows to matching agent records
	narrowed, _ := svc.Search(ctx, agented, "fact", 10, 0.3)
	if len(narrowed) != 1 || narrowed[0].Text != "agent fact" {
		t.Fatalf("unexpected refined results: %#v", narrowed)
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	alice := mustScope(t, "alice", "", "")
	wg := sync.WaitGroup{}
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Add(ctx, alice, []core.Turn{core.NewUserTurn("concurrent fact")}, nil); err != nil {
				t.Errorf("add error: %v", err)
			}
			if _, err := svc.Search(ctx, alice, "fact", 5, 0.3); err != nil {
				t.Errorf("search error: %v", err)
			}
		}()
	}
	wg.Wait()
	page, _ := svc.List(ctx, alice, 100)
	if page.Count != 25 {
		t.Fatalf("expected 25 records, got %d", page.Count)
	}
}
