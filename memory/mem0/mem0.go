// Package mem0 implements core.MemoryStore against a mem0-compatible remote
// memory service. The wire encoding (v2 filter documents, versioned endpoint
// paths, token auth) stays inside this package; callers only ever see the
// strongly-shaped core types.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hupe1980/memchat/core"
)

const defaultBaseURL = "https://api.mem0.ai"

// Options configure the mem0 store.
type Options struct {
	// BaseURL of the memory service. Defaults to the hosted mem0 API.
	BaseURL string
	// APIKey sent as "Authorization: Token <key>". Optional for self-hosted
	// deployments without auth.
	APIKey string
	// HTTPClient used for all requests. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds each remote call when no HTTPClient is supplied.
	Timeout time.Duration
}

// Store is a remote mem0 v2 client implementing core.MemoryStore.
type Store struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*Store)(nil)

// NewStore creates a mem0-backed memory store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		BaseURL: defaultBaseURL,
		Timeout: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Store{baseURL: opts.BaseURL, apiKey: opts.APIKey, client: client}
}

// filterDoc builds the v2 AND-filter narrowing every read to the scope. The
// user id clause is always present; agent/run clauses join only when set.
func filterDoc(scope core.Scope) map[string]any {
	clauses := []map[string]string{{"user_id": scope.UserID}}
	if scope.AgentID != "" {
		clauses = append(clauses, map[string]string{"agent_id": scope.AgentID})
	}
	if scope.RunID != "" {
		clauses = append(clauses, map[string]string{"run_id": scope.RunID})
	}
	return map[string]any{"AND": clauses}
}

// wireMemory is the service-side record shape shared by search and list
// responses.
type wireMemory struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	Score     float64        `json:"score"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Search implements core.MemoryStore via POST /v2/memories/search/.
func (s *Store) Search(ctx context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"query":     query,
		"filters":   filterDoc(scope),
		"top_k":     topK,
		"rerank":    false,
		"threshold": threshold,
	}
	raw, err := s.do(ctx, http.MethodPost, "/v2/memories/search/", nil, body)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}

	memories, err := decodeMemories(raw)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}
	results := make([]core.RetrievedMemory, 0, len(memories))
	for _, m := range memories {
		results = append(results, core.RetrievedMemory{Text: m.Memory, Score: m.Score})
	}
	return results, nil
}

// Add implements core.MemoryStore via POST /v1/memories/. Retrying a failed
// Add may duplicate a memory; the service owns deduplication, not this client.
func (s *Store) Add(ctx context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	messages := make([]map[string]string, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, map[string]string{"role": t.Role, "content": t.Content})
	}
	body := map[string]any{
		"messages": messages,
		"user_id":  scope.UserID,
	}
	if scope.AgentID != "" {
		body["agent_id"] = scope.AgentID
	}
	if scope.RunID != "" {
		body["run_id"] = scope.RunID
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	raw, err := s.do(ctx, http.MethodPost, "/v1/memories/", nil, body)
	if err != nil {
		return "", core.NewPersistenceError("add", err)
	}

	memories, err := decodeMemories(raw)
	if err == nil && len(memories) > 0 && memories[0].ID != "" {
		return memories[0].ID, nil
	}
	// The service accepted the write but reported no record body (e.g. async
	// ingestion). Hand back a client-side reference so callers can correlate.
	return core.NewID(), nil
}

// List implements core.MemoryStore via the paginated POST /v2/memories/.
func (s *Store) List(ctx context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error) {
	if err := scope.Validate(); err != nil {
		return core.MemoryPage{}, err
	}
	q := url.Values{}
	q.Set("page", "1")
	q.Set("page_size", strconv.Itoa(pageSize))
	body := map[string]any{"filters": filterDoc(scope)}

	raw, err := s.do(ctx, http.MethodPost, "/v2/memories/", q, body)
	if err != nil {
		return core.MemoryPage{}, core.NewRetrievalError("list", err)
	}

	var envelope struct {
		Count   int          `json:"count"`
		Results []wireMemory `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return core.MemoryPage{}, core.NewRetrievalError("list", err)
	}
	page := core.MemoryPage{Count: envelope.Count, Records: make([]core.MemoryRecord, 0, len(envelope.Results))}
	for _, m := range envelope.Results {
		page.Records = append(page.Records, core.MemoryRecord{
			ID:        m.ID,
			Text:      m.Memory,
			Metadata:  stringifyMetadata(m.Metadata),
			CreatedAt: m.CreatedAt,
		})
	}
	return page, nil
}

// DeleteAll implements core.MemoryStore via DELETE /v1/memories/. Only the
// user id is sent: deletion is user-wide and must never cross users.
func (s *Store) DeleteAll(ctx context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	q := url.Values{}
	q.Set("user_id", scope.UserID)
	if _, err := s.do(ctx, http.MethodDelete, "/v1/memories/", q, nil); err != nil {
		return core.NewPersistenceError("delete_all", err)
	}
	return nil
}

// do performs one HTTP exchange returning the raw response body.
func (s *Store) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Token "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("memory service returned %s: %s", resp.Status, truncate(raw, 256))
	}
	return raw, nil
}

// decodeMemories accepts both response shapes the service emits: a bare array
// of memories, or an object wrapping them under "results".
func decodeMemories(raw []byte) ([]wireMemory, error) {
	var list []wireMemory
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Results []wireMemory `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return envelope.Results, nil
}

func stringifyMetadata(md map[string]any) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
