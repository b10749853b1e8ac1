// Package memchat provides a high-level façade over the runner pipeline and
// memory store abstractions for building memory-augmented chat applications.
// Most applications interact with this package by:
//  1. Creating an Assistant via New() with a memory store and a model
//  2. Exchanging turns with SendTurn
//  3. Inspecting or administering the active user's memories (ViewMemories,
//     AddMemory, ClearMemories, MemoryCount)
//
// The façade delegates turn orchestration to runner.Runner while keeping
// setup and usage ergonomics concise. Defaults are safe for local development
// and testing; production deployments typically supply a durable memory store
// and a structured logger.
package memchat

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/logging"
	"github.com/hupe1980/memchat/memory"
	"github.com/hupe1980/memchat/metrics"
	"github.com/hupe1980/memchat/model"
	"github.com/hupe1980/memchat/runner"
	"github.com/hupe1980/memchat/session"
)

// Options configures the Assistant instance.
type Options struct {
	// MemoryStore persists and retrieves long-term memories. Defaults to an
	// in-memory implementation.
	MemoryStore core.MemoryStore

	// TopK is the maximum number of memories retrieved per turn.
	TopK int

	// ScoreThreshold filters retrieved memories below this relevance score.
	ScoreThreshold float64

	// PageSize limits how many memory records ViewMemories returns.
	PageSize int

	// DefaultCategory is attached as metadata to memories created through
	// AddMemory when no category is given.
	DefaultCategory string

	// Metadata is attached to every conversational write-back.
	Metadata map[string]string

	// Sessions tracks per-scope transcripts. Defaults to a private in-memory
	// store.
	Sessions session.TranscriptStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Metrics collects turn and memory counters. Nil disables collection.
	Metrics *metrics.Collector
}

// Assistant is the high-level façade aggregating the turn runner and the
// memory administration surface for a single active identity scope.
type Assistant struct {
	opts   Options
	mdl    model.Model
	store  core.MemoryStore
	runner *runner.Runner
	counts *ristretto.Cache
}

// New creates a new Assistant for the given scope with optional overrides.
func New(scope core.Scope, mdl model.Model, optFns ...func(o *Options)) (*Assistant, error) {
	opts := Options{
		MemoryStore:     memory.NewInMemoryStore(),
		TopK:            3,
		ScoreThreshold:  0.3,
		PageSize:        50,
		DefaultCategory: "manual",
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r, err := runner.New(scope, opts.MemoryStore, mdl, func(o *runner.Options) {
		o.TopK = opts.TopK
		o.ScoreThreshold = opts.ScoreThreshold
		o.Metadata = opts.Metadata
		o.Sessions = opts.Sessions
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	if err != nil {
		return nil, err
	}

	counts, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create count cache: %w", err)
	}

	return &Assistant{
		opts:   opts,
		mdl:    mdl,
		store:  opts.MemoryStore,
		runner: r,
		counts: counts,
	}, nil
}

// Scope returns the currently active identity scope.
func (a *Assistant) Scope() core.Scope { return a.runner.Scope() }

// Transcript exposes the current short-term conversation transcript.
func (a *Assistant) Transcript() *core.Transcript { return a.runner.Transcript() }

// SendTurn sends one user utterance through the retrieve, generate and
// write-back pipeline and returns the assistant's reply.
func (a *Assistant) SendTurn(ctx context.Context, utterance string) (runner.TurnResult, error) {
	res, err := a.runner.SendTurn(ctx, utterance)
	if err == nil && res.Persisted {
		a.counts.Del(a.Scope().Key())
	}

	return res, err
}

// AddMemory stores a standalone memory for the active scope, outside the
// conversational flow. An empty category falls back to DefaultCategory.
func (a *Assistant) AddMemory(ctx context.Context, text, category string) (string, error) {
	if category == "" {
		category = a.opts.DefaultCategory
	}

	ref, err := a.store.Add(ctx, a.Scope(), []core.Turn{core.NewUserTurn(text)}, map[string]string{
		"category": category,
	})
	if err != nil {
		return "", err
	}

	a.counts.Del(a.Scope().Key())

	return ref, nil
}

// ViewMemories lists the stored memories for the active scope.
func (a *Assistant) ViewMemories(ctx context.Context) (core.MemoryPage, error) {
	page, err := a.store.List(ctx, a.Scope(), a.opts.PageSize)
	if err != nil {
		return core.MemoryPage{}, err
	}

	a.counts.Set(a.Scope().Key(), page.Count, 1)

	return page, nil
}

// MemoryCount reports how many memories the active scope has stored. The
// result is cached until the next mutation of the scope's memories.
func (a *Assistant) MemoryCount(ctx context.Context) (int, error) {
	if v, ok := a.counts.Get(a.Scope().Key()); ok {
		if n, ok := v.(int); ok {
			return n, nil
		}
	}

	page, err := a.store.List(ctx, a.Scope(), a.opts.PageSize)
	if err != nil {
		return 0, err
	}

	a.counts.Set(a.Scope().Key(), page.Count, 1)

	return page.Count, nil
}

// ClearMemories deletes every memory stored for the active scope's user.
func (a *Assistant) ClearMemories(ctx context.Context) error {
	if err := a.store.DeleteAll(ctx, a.Scope()); err != nil {
		return err
	}

	a.counts.Del(a.Scope().Key())

	return nil
}

// SwitchScope changes the active identity scope. Switching to a different
// scope clears the short-term transcript; the previous scope's long-term
// memories remain stored.
func (a *Assistant) SwitchScope(scope core.Scope) error {
	return a.runner.SetScope(scope)
}

// Close drains pending memory write-backs and releases resources.
func (a *Assistant) Close() error {
	err := a.runner.Close()
	a.counts.Close()

	return err
}
