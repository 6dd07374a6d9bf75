// Package engine implements the in-sandbox deterministic workflow execution
// core: given a sequence of activations, it replays a user-supplied workflow
// program deterministically, tracks every logical asynchronous operation by
// sequence number, manages a tree of cancellation scopes, intercepts the
// ambient asynchronous primitives to make replay bit-exact, and produces the
// outbound command sequence. One Engine exists per workflow run; it is never
// shared across runs, the same isolation Temporal's Go SDK gives each
// workflow execution its own interpreter state.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/flowcorelabs/workflowcore/telemetry"
)

// Engine is the singleton-per-run state machine driving one workflow
// execution. All mutable state lives here and is only ever touched from the
// single fiber executing at a given instant; determinism is guaranteed by
// that exclusive hand-off, never by locking.
type Engine struct {
	completions  *completionTable
	scopes       map[int]*cancelScope
	childScopes  map[int][]int
	scopeStack   []int
	nextScopeIdx int

	interceptors *interceptorChain
	commands     *commandBuffer
	pendingExternal []ExternalCall

	completed bool
	cancelled bool

	nextSeq int64
	now     int64 // milliseconds, set at the start of every activation
	random  *rng

	workflow *WorkflowDefinition
	info     *WorkflowInfo

	dependencies  *dependencyRegistry
	dataConverter DataConverter

	scheduler    *scheduler
	runningFiber *fiber
	rootDone     chan struct{}

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	runID string
}

// Option configures an Engine at construction time. Construction goes
// through functional options rather than environment variables or a config
// file, since the core has no process lifecycle of its own to read either
// from.
type Option func(*Engine)

// WithLogger overrides the engine's logger. Defaults to a no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics overrides the engine's metrics recorder. Defaults to a no-op recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithTracer overrides the engine's tracer. Defaults to a no-op tracer.
func WithTracer(t telemetry.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithDataConverter overrides the payload codec. Defaults to Temporal's
// composite JSON converter.
func WithDataConverter(dc DataConverter) Option { return func(e *Engine) { e.dataConverter = dc } }

// WithRunID sets the run identifier used in encoded completions. If unset,
// NewEngine generates one.
func WithRunID(runID string) Option { return func(e *Engine) { e.runID = runID } }

// NewEngine constructs a fresh engine for a single workflow run. Call
// InitWorkflow before the first Activate.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		completions:   newCompletionTable(),
		scopes:        make(map[int]*cancelScope),
		childScopes:   make(map[int][]int),
		interceptors:  &interceptorChain{},
		commands:      &commandBuffer{},
		dependencies:  newDependencyRegistry(),
		dataConverter: defaultDataConverter(),
		logger:        telemetry.NewNoopLogger(),
		metrics:       telemetry.NewNoopMetrics(),
		tracer:        telemetry.NewNoopTracer(),
	}
	e.scheduler = newScheduler(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	return e
}

// DataConverter returns the engine's configured payload codec.
func (e *Engine) DataConverter() DataConverter { return e.dataConverter }

// RunID returns the run identifier this engine encodes completions under.
func (e *Engine) RunID() string { return e.runID }

// Now returns the current deterministic workflow time, derived from the
// timestamp of the most recently dispatched activation. Calling this before
// InitWorkflow is an IllegalState; between InitWorkflow and the first
// activation it returns 0.
func (e *Engine) Now() (int64, error) {
	if e.info == nil {
		return 0, &IllegalStateError{Reason: "Now() called before workflow init"}
	}
	return e.now, nil
}

// Random returns the next draw from the engine's seeded PRNG.
func (e *Engine) Random() (float64, error) {
	if e.random == nil {
		return 0, &IllegalStateError{Reason: "Random() called before workflow init"}
	}
	return e.random.Float64(), nil
}

// logCtx is a stand-in context.Context for the engine's own logging calls,
// which never carry request-scoped values since the engine performs no I/O
// of its own.
var logCtx = context.Background()
