// Package memory contains concrete MemoryStore implementations. The store
// interface and result types reside in the core package. Import
// github.com/hupe1980/memchat/core and depend on core.MemoryStore in your
// code; select an implementation (the in-memory store below, or one of the
// subpackages: mem0, chromem, postgres) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (remote memory services, vector databases, embedded indexes) to be
// added without introducing dependency cycles.
package memory
