// Package runner implements the core orchestration layer for MemChat.
//
// The Runner owns the per-turn pipeline: retrieve relevant memories, compose
// the prompt, drive generation and schedule the best-effort write-back of the
// completed turn. It also owns the session transcript and the turn-level
// failure policy: retrieval failures degrade to an empty memory set,
// generation failures become a visible error turn, and write-back failures
// are observable (logged, counted) but never surfaced as errors.
//
// # Responsibilities (abridged)
//   - Turn orchestration (search → compose → complete → persist)
//   - Transcript lifecycle (append-only per session, ended on scope switch)
//   - Write-back sequencing (single worker, FIFO per runner)
//   - Per-call timeout enforcement for all remote calls
//
// See runner.go for the operational implementation details.
package runner
