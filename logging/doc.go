// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer MemChatLogger with contextual
// helpers (session, scope, component) and domain specific logging helpers for
// model calls and memory store operations.
package logging
