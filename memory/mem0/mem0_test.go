package mem0

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/memchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope(t *testing.T, user string) core.Scope {
	t.Helper()
	s, err := core.NewScope(user, "", "")
	require.NoError(t, err)
	return s
}

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStore(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test-key"
	})
}

func TestStore_Search(t *testing.T) {
	var gotBody map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/memories/search/", r.URL.Path)
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			{"id": "m1", "memory": "Likes Italian food", "score": 0.82},
			{"id": "m2", "memory": "Enjoys cricket", "score": 0.44},
		}})
	})

	res, err := store.Search(context.Background(), testScope(t, "alice"), "food", 3, 0.3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Likes Italian food", res[0].Text)
	assert.InDelta(t, 0.82, res[0].Score, 1e-9)

	// request carries the scope filter and the tuned knobs
	assert.Equal(t, "food", gotBody["query"])
	assert.EqualValues(t, 3, gotBody["top_k"])
	assert.EqualValues(t, 0.3, gotBody["threshold"])
	filters := gotBody["filters"].(map[string]any)
	and := filters["AND"].([]any)
	require.Len(t, and, 1)
	assert.Equal(t, "alice", and[0].(map[string]any)["user_id"])
}

func TestStore_SearchBareArrayResponse(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "m1", "memory": "fact", "score": 0.5}})
	})
	res, err := store.Search(context.Background(), testScope(t, "alice"), "q", 3, 0.3)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestStore_SearchFailure(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := store.Search(context.Background(), testScope(t, "alice"), "q", 3, 0.3)
	var re *core.RetrievalError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "search", re.Op)
}

func TestStore_InvalidScopeFailsBeforeRemoteCall(t *testing.T) {
	called := false
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := store.Search(context.Background(), core.Scope{}, "q", 3, 0.3)
	assert.ErrorIs(t, err, core.ErrInvalidIdentity)
	_, err = store.Add(context.Background(), core.Scope{}, []core.Turn{core.NewUserTurn("x")}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidIdentity)
	err = store.DeleteAll(context.Background(), core.Scope{})
	assert.ErrorIs(t, err, core.ErrInvalidIdentity)
	assert.False(t, called, "no remote call may be attempted for an invalid scope")
}

func TestStore_AddIncludesOptionalScopeAndMetadata(t *testing.T) {
	var gotBody map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/memories/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{{"id": "rec-1"}}})
	})

	scope, err := core.NewScope("alice", "helper", "run-7")
	require.NoError(t, err)
	ref, err := store.Add(context.Background(), scope, []core.Turn{
		core.NewUserTurn("hi"),
		core.NewAssistantTurn("hello"),
	}, map[string]string{"category": "greeting"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", ref)

	assert.Equal(t, "alice", gotBody["user_id"])
	assert.Equal(t, "helper", gotBody["agent_id"])
	assert.Equal(t, "run-7", gotBody["run_id"])
	assert.Equal(t, map[string]any{"category": "greeting"}, gotBody["metadata"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestStore_AddOmitsEmptyRefinements(t *testing.T) {
	var gotBody map[string]any
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	ref, err := store.Add(context.Background(), testScope(t, "alice"), []core.Turn{core.NewUserTurn("x")}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ref, "a client-side ref is synthesized when the service omits one")
	_, hasAgent := gotBody["agent_id"]
	_, hasRun := gotBody["run_id"]
	_, hasMetadata := gotBody["metadata"]
	assert.False(t, hasAgent || hasRun || hasMetadata)
}

func TestStore_AddFailure(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	_, err := store.Add(context.Background(), testScope(t, "alice"), []core.Turn{core.NewUserTurn("x")}, nil)
	var pe *core.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "add", pe.Op)
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/memories/", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("page_size"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count": 2,
			"results": []map[string]any{
				{"id": "m1", "memory": "fact one", "metadata": map[string]any{"category": "misc"}},
				{"id": "m2", "memory": "fact two"},
			},
		})
	})

	page, err := store.List(context.Background(), testScope(t, "alice"), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "fact one", page.Records[0].Text)
	assert.Equal(t, "misc", page.Records[0].Metadata["category"])
}

func TestStore_DeleteAllSendsOnlyUserID(t *testing.T) {
	var gotQuery string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/memories/", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	scope, err := core.NewScope("bob", "helper", "run-1")
	require.NoError(t, err)
	require.NoError(t, store.DeleteAll(context.Background(), scope))
	assert.Equal(t, "user_id=bob", gotQuery)
}
