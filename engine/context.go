package engine

// Context is the per-fiber handle passed to workflow, signal, and query
// code. It is the only way user code touches engine state: the ambient
// clock/random shims, the timer/activity suspension primitives, the
// external-dependency bridge, and child-scope spawning.
type Context struct {
	eng   *Engine
	scope *cancelScope
	done  chan struct{}
}

// RootContext returns the Context bound to the engine's root scope. The
// dispatcher uses this to invoke workflow.main, signal handlers, and query
// handlers.
func (e *Engine) RootContext() *Context {
	return &Context{eng: e, scope: e.scopes[rootScopeIdx], done: e.rootDone}
}

// Now returns the current deterministic workflow time in epoch milliseconds.
func (ctx *Context) Now() (int64, error) { return ctx.eng.Now() }

// Random returns the next draw from the engine's seeded PRNG.
func (ctx *Context) Random() (float64, error) { return ctx.eng.Random() }

// Done returns a channel that closes when ctx's scope is cancelled. A nil
// return never happens; the root scope's channel closes only on an external
// cancelWorkflow job.
func (ctx *Context) Done() <-chan struct{} { return ctx.done }

// Err returns the scope's recorded cancellation error, or nil if the scope
// has not been cancelled.
func (ctx *Context) Err() error {
	if ctx.scope.cancelErr == nil {
		return nil
	}
	return ctx.scope.cancelErr
}

// NewWeakRef always aborts the run with a DeterminismViolationError. Go has
// no weak-reference primitive, and even a simulated one would tie workflow
// state to garbage-collection timing, which varies from replay to replay.
// Code that needs this pattern should model the relationship as ordinary
// state instead. Mirrors the Cadence/Temporal Go SDKs' refusal to let
// workflow code observe GC or finalizers.
func (ctx *Context) NewWeakRef(target any) {
	panic(&DeterminismViolationError{Operation: "weak reference"})
}

// CallDependency invokes a host-registered external dependency under this
// context's current scope.
func (ctx *Context) CallDependency(ifaceName, fnName string, args ...any) (*Future, error) {
	return ctx.eng.CallDependency(ifaceName, fnName, args...)
}

// Go opens a child scope and spawns fn on its own fiber, returning a handle
// that can request cancellation of that subtree. fn does not begin running
// until the scheduler's next drain.
func (ctx *Context) Go(fn func(childCtx *Context)) *ScopeHandle {
	eng := ctx.eng
	done := make(chan struct{})
	closeDone := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}

	var scope *cancelScope
	scope = eng.openScope(scopeKindScope,
		func(source CancellationSource) error {
			closeDone()
			return nil
		},
		func(err error) error {
			closeDone()
			return nil
		},
	)

	child := &Context{eng: eng, scope: scope, done: done}
	eng.scheduler.spawn(scope, func() {
		fn(child)
		eng.closeScope(scope.idx)
	})
	return &ScopeHandle{eng: eng, scope: scope}
}

// ScopeHandle lets a parent fiber request cancellation of a scope it opened
// via Go. Activities and timers are cancelled through their own handles
// (Activity.RequestCancel, Timer.Cancel).
type ScopeHandle struct {
	eng   *Engine
	scope *cancelScope
}

// RequestCancel requests cancellation of the handle's scope and every
// descendant.
func (h *ScopeHandle) RequestCancel() error {
	return h.eng.requestCancelScope(h.scope)
}
