// Package core provides the foundational domain types and interfaces used by
// MemChat. It defines the core abstractions for:
//
//   - Scopes (the user/agent/run tuple partitioning every memory operation)
//   - Turns (one side of a user/assistant exchange)
//   - Transcripts (per-session ordered turn history)
//   - Pluggable memory stores for retrieval, write-back and administration
//   - The typed failure taxonomy shared by gateways and the runner
//
// The package intentionally keeps implementation concerns (wire protocols,
// vector indexes, orchestration) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
