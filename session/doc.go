// Package session houses concrete implementations of the TranscriptStore used
// by callers that juggle multiple concurrent conversations. The Transcript
// struct itself lives in the core package to centralize domain contracts.
//
// Add additional backends in sub-packages without changing any calling code –
// only the wiring layer needs to decide which implementation to instantiate.
// Note that transcripts are deliberately volatile: long-term memory belongs to
// the memory store, never to a session backend.
package session
