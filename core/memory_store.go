package core

import "context"

// MemoryStore defines retrieval, write-back and administration over durable
// conversational memory. Implementations can back search with embeddings,
// keywords or a remote service; scoring semantics belong to the backend.
//
// Contract:
//   - Every operation narrows strictly to the provided Scope; no operation
//     can read or delete another user's memories. This is the core safety
//     invariant of the whole system.
//   - Every operation validates the scope first and returns
//     ErrInvalidIdentity before touching the backend when the user id is
//     empty.
//   - Zero matches from Search is an empty slice, not an error.
//   - Read failures are wrapped in RetrievalError, write failures in
//     PersistenceError, so callers can apply a uniform degradation policy.
//   - Add is not required to deduplicate; retrying an Add may duplicate a
//     memory, which the design accepts.
type MemoryStore interface {
	// Search returns up to topK memories relevant to query, ordered by
	// relevance as reported by the backend. Results scoring below threshold
	// are excluded.
	Search(ctx context.Context, scope Scope, query string, topK int, threshold float64) ([]RetrievedMemory, error)

	// Add persists the given turns as new memory under the scope, returning
	// a backend record reference. Metadata is attached verbatim when the
	// backend supports it.
	Add(ctx context.Context, scope Scope, turns []Turn, metadata map[string]string) (string, error)

	// List returns the first page of stored records for display, with the
	// scope's total count.
	List(ctx context.Context, scope Scope, pageSize int) (MemoryPage, error)

	// DeleteAll irreversibly removes every record owned by the scope's user.
	DeleteAll(ctx context.Context, scope Scope) error
}
