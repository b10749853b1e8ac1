package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/logging"
	"github.com/hupe1980/memchat/metrics"
	"github.com/hupe1980/memchat/model"
	"github.com/hupe1980/memchat/prompt"
	"github.com/hupe1980/memchat/session"
)

// ErrClosed is returned by SendTurn after Close has been called.
var ErrClosed = errors.New("runner is closed")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// TopK bounds how many memories a turn retrieves.
	TopK int
	// ScoreThreshold excludes low-relevance memories from retrieval.
	ScoreThreshold float64
	// SearchTimeout bounds the retrieval call.
	SearchTimeout time.Duration
	// CompleteTimeout bounds the generation call.
	CompleteTimeout time.Duration
	// AddTimeout bounds each write-back attempt.
	AddTimeout time.Duration
	// WritebackQueueSize bounds the background write-back queue.
	WritebackQueueSize int
	// Metadata is attached to every write-back (e.g. a default category).
	Metadata map[string]string
	// Sessions tracks the transcript for each scope. Defaults to a private
	// in-memory store.
	Sessions session.TranscriptStore
	// Logging services.
	Logger logging.Logger
	// Metrics collector. Optional; nil disables instrumentation.
	Metrics *metrics.Collector
}

// TurnResult is the caller-facing outcome of one conversation turn.
type TurnResult struct {
	// AssistantText is never empty: on generation failure it carries the
	// user-visible error message.
	AssistantText string
	// UsedMemoryCount is the number of retrieved memories fused into the
	// prompt (0 when retrieval degraded).
	UsedMemoryCount int
	// Persisted reports whether the turn's write-back succeeded.
	Persisted bool
	// RetrievalDegraded is the non-fatal warning that memory search failed
	// and the turn proceeded without memories.
	RetrievalDegraded bool
}

// writebackJob carries one completed turn pair to the background worker.
type writebackJob struct {
	scope    core.Scope
	turns    []core.Turn
	metadata map[string]string
	result   chan error
}

// Runner coordinates conversation turns for a single identity scope. Public
// methods are safe for concurrent use; the per-turn pipeline is serialized so
// write-backs from consecutive turns can never interleave out of order.
type Runner struct {
	store core.MemoryStore
	model model.Model

	topK            int
	scoreThreshold  float64
	searchTimeout   time.Duration
	completeTimeout time.Duration
	addTimeout      time.Duration
	metadata        map[string]string

	logger  logging.Logger
	metrics *metrics.Collector

	mu         sync.Mutex // serializes the per-turn pipeline + scope switches
	scope      core.Scope
	sessions   session.TranscriptStore
	transcript *core.Transcript

	jobs       chan writebackJob
	workerDone chan struct{}
	closeOnce  sync.Once
	closed     bool
}

// New constructs a Runner for the given scope with optional overrides. The
// scope is validated up front so no remote call can ever run unscoped.
func New(scope core.Scope, store core.MemoryStore, mdl model.Model, optFns ...func(o *Options)) (*Runner, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	opts := Options{
		TopK:               3,
		ScoreThreshold:     0.3,
		SearchTimeout:      10 * time.Second,
		CompleteTimeout:    60 * time.Second,
		AddTimeout:         30 * time.Second,
		WritebackQueueSize: 16,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewInMemoryStore()
	}
	transcript, err := sessions.Get(scope.Key())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		store:           store,
		model:           mdl,
		topK:            opts.TopK,
		scoreThreshold:  opts.ScoreThreshold,
		searchTimeout:   opts.SearchTimeout,
		completeTimeout: opts.CompleteTimeout,
		addTimeout:      opts.AddTimeout,
		metadata:        opts.Metadata,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		scope:           scope,
		sessions:        sessions,
		transcript:      transcript,
		jobs:            make(chan writebackJob, opts.WritebackQueueSize),
		workerDone:      make(chan struct{}),
	}
	go r.writebackWorker()
	return r, nil
}

// Scope returns the active identity scope.
func (r *Runner) Scope() core.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scope
}

// Transcript returns the active session transcript.
func (r *Runner) Transcript() *core.Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

// SetScope switches the active identity. The current session ends and the
// new identity continues (or starts) its own session.
func (r *Runner) SetScope(scope core.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if scope == r.scope {
		return nil
	}
	if err := r.sessions.End(r.scope.Key()); err != nil {
		return err
	}
	transcript, err := r.sessions.Get(scope.Key())
	if err != nil {
		return err
	}
	r.scope = scope
	r.transcript = transcript
	return nil
}

// SendTurn runs one full conversation turn. It never returns an error for
// retrieval, generation or persistence failures; those are contained and
// reflected in the TurnResult. The only errors are an invalid scope (checked
// at construction and on SetScope) and use after Close.
func (r *Runner) SendTurn(ctx context.Context, utterance string) (TurnResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return TurnResult{}, ErrClosed
	}
	scope := r.scope
	started := time.Now()

	// The user turn is recorded immediately so it survives generation failure.
	r.transcript.Append(core.NewUserTurn(utterance))

	// Retrieving. Failure degrades to an empty memory set; it must never
	// block generation.
	retrieved := r.search(ctx, scope, utterance)
	degraded := retrieved == nil

	// Composing.
	messages := prompt.Compose(utterance, retrieved)

	// Generating. Failure becomes a visible error turn.
	assistantText, genErr := r.complete(ctx, messages)

	r.transcript.Append(core.NewAssistantTurn(assistantText))

	// Persisting. The completed pair goes to the write-back worker; its
	// outcome only ever shows up in Persisted, never as an error.
	persisted := r.dispatchWriteback(scope, []core.Turn{
		core.NewUserTurn(utterance),
		core.NewAssistantTurn(assistantText),
	})

	status := "ok"
	if genErr != nil {
		status = "generation_failed"
	}
	r.metrics.ObserveTurn(status, time.Since(started))

	return TurnResult{
		AssistantText:     assistantText,
		UsedMemoryCount:   len(retrieved),
		Persisted:         persisted,
		RetrievalDegraded: degraded,
	}, nil
}

// search retrieves memories for the utterance, returning nil (not an empty
// slice) when retrieval degraded so callers can distinguish the two.
func (r *Runner) search(ctx context.Context, scope core.Scope, utterance string) []core.RetrievedMemory {
	sctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	retrieved, err := r.store.Search(sctx, scope, utterance, r.topK, r.scoreThreshold)
	if err != nil {
		r.logger.Warn("memory search failed, proceeding without memories", "error", err)
		r.metrics.RetrievalFailure()
		return nil
	}
	if retrieved == nil {
		retrieved = []core.RetrievedMemory{}
	}
	return retrieved
}

// complete drives generation, converting failures into the user-visible
// error text required at the turn boundary.
func (r *Runner) complete(ctx context.Context, messages []model.Message) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, r.completeTimeout)
	defer cancel()

	started := time.Now()
	resp, err := r.model.Complete(gctx, model.Request{Messages: messages})
	r.metrics.ObserveModelCall(time.Since(started))
	if err != nil {
		r.logger.Error("generation failed", "error", err)
		return fmt.Sprintf("Failed to generate response: %v", err), err
	}
	return resp.Text, nil
}

// dispatchWriteback hands the turn pair to the worker and waits for its
// outcome so the result can report Persisted truthfully. The worker consumes
// jobs in FIFO order, which preserves chronological write order across turns.
func (r *Runner) dispatchWriteback(scope core.Scope, turns []core.Turn) bool {
	// Close takes the pipeline mutex before closing the queue, so this send
	// cannot hit a closed channel.
	job := writebackJob{scope: scope, turns: turns, metadata: r.metadata, result: make(chan error, 1)}
	r.jobs <- job
	return <-job.result == nil
}

// writebackWorker persists completed turn pairs one at a time. Failures are
// logged and counted but intentionally not retried: a duplicate memory is
// worse than a missing one.
func (r *Runner) writebackWorker() {
	defer close(r.workerDone)
	for job := range r.jobs {
		// Independent of the caller's context: the turn already completed.
		ctx, cancel := context.WithTimeout(context.Background(), r.addTimeout)
		_, err := r.store.Add(ctx, job.scope, job.turns, job.metadata)
		cancel()
		if err != nil {
			r.logger.Warn("memory write-back failed", "error", err)
			r.metrics.ObserveWriteback("failed")
		} else {
			r.metrics.ObserveWriteback("ok")
		}
		job.result <- err
	}
}

// Close drains the write-back queue and stops the worker. Subsequent
// SendTurn calls fail with ErrClosed.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.jobs)
		<-r.workerDone
	})
	return nil
}
