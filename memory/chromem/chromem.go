// Package chromem implements core.MemoryStore on top of chromem-go, a pure Go
// embedded vector database. Each user gets their own collection for namespace
// isolation; agent/run refinements are metadata filters within it.
//
// Suitable for single-process deployments that want semantic retrieval
// without running a remote memory service.
package chromem

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/embedding"
	chromem "github.com/philippgille/chromem-go"
)

var errNoTurns = errors.New("no turns to persist")

// Options configure the chromem store.
type Options struct {
	// Embedder computes document and query vectors. Required.
	Embedder embedding.Embedder
}

// Store is an embedded vector-backed MemoryStore.
type Store struct {
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc

	mu      sync.RWMutex
	records map[string][]core.MemoryRecord // userID -> records, insertion order
}

// Interface compliance (compile-time assertion)
var _ core.MemoryStore = (*Store)(nil)

// NewStore creates an embedded vector memory store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = embedding.NewOpenAI()
	}
	return &Store{
		db: chromem.NewDB(),
		embedFn: func(ctx context.Context, text string) ([]float32, error) {
			return embedder.Embed(ctx, text)
		},
		records: make(map[string][]core.MemoryRecord),
	}
}

// collection returns the per-user collection, creating it on first use.
func (s *Store) collection(userID string) (*chromem.Collection, error) {
	return s.db.GetOrCreateCollection("user_"+userID, nil, s.embedFn)
}

// whereFilter narrows a query to the scope's agent/run refinements. The user
// boundary is already enforced by the per-user collection.
func whereFilter(scope core.Scope) map[string]string {
	where := map[string]string{}
	if scope.AgentID != "" {
		where["agent_id"] = scope.AgentID
	}
	if scope.RunID != "" {
		where["run_id"] = scope.RunID
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

// Search implements core.MemoryStore via cosine similarity over the user's
// collection. Results below threshold are dropped.
func (s *Store) Search(ctx context.Context, scope core.Scope, query string, topK int, threshold float64) ([]core.RetrievedMemory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	col, err := s.collection(scope.UserID)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}

	// chromem rejects nResults larger than the collection.
	n := topK
	if count := col.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return []core.RetrievedMemory{}, nil
	}

	hits, err := col.Query(ctx, query, n, whereFilter(scope), nil)
	if err != nil {
		return nil, core.NewRetrievalError("search", err)
	}
	results := make([]core.RetrievedMemory, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Similarity)
		if score < threshold {
			continue
		}
		results = append(results, core.RetrievedMemory{Text: hit.Content, Score: score})
	}
	return results, nil
}

// Add embeds and stores one document per turn.
func (s *Store) Add(ctx context.Context, scope core.Scope, turns []core.Turn, metadata map[string]string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	col, err := s.collection(scope.UserID)
	if err != nil {
		return "", core.NewPersistenceError("add", err)
	}

	var ref string
	now := time.Now()
	for _, turn := range turns {
		md := map[string]string{"role": turn.Role}
		if scope.AgentID != "" {
			md["agent_id"] = scope.AgentID
		}
		if scope.RunID != "" {
			md["run_id"] = scope.RunID
		}
		for k, v := range metadata {
			md[k] = v
		}
		id := core.NewID()
		if err := col.AddDocument(ctx, chromem.Document{ID: id, Content: turn.Content, Metadata: md}); err != nil {
			return "", core.NewPersistenceError("add", err)
		}
		if ref == "" {
			ref = id
		}
		s.mu.Lock()
		s.records[scope.UserID] = append(s.records[scope.UserID], core.MemoryRecord{
			ID: id, Text: turn.Content, Metadata: md, CreatedAt: now,
		})
		s.mu.Unlock()
	}
	if ref == "" {
		return "", core.NewPersistenceError("add", errNoTurns)
	}
	return ref, nil
}

// List returns the scope's first pageSize records from the side index kept
// alongside the vector store (chromem has no enumeration API).
func (s *Store) List(_ context.Context, scope core.Scope, pageSize int) (core.MemoryPage, error) {
	if err := scope.Validate(); err != nil {
		return core.MemoryPage{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := core.MemoryPage{Records: []core.MemoryRecord{}}
	for _, rec := range s.records[scope.UserID] {
		if scope.AgentID != "" && rec.Metadata["agent_id"] != scope.AgentID {
			continue
		}
		if scope.RunID != "" && rec.Metadata["run_id"] != scope.RunID {
			continue
		}
		page.Count++
		if len(page.Records) < pageSize {
			page.Records = append(page.Records, rec)
		}
	}
	return page, nil
}

// DeleteAll drops the user's entire collection.
func (s *Store) DeleteAll(_ context.Context, scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.db.DeleteCollection("user_" + scope.UserID); err != nil {
		return core.NewPersistenceError("delete_all", err)
	}
	s.mu.Lock()
	delete(s.records, scope.UserID)
	s.mu.Unlock()
	return nil
}
