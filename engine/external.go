package engine

// ApplyMode selects how a host-exposed dependency function is invoked from
// user code.
type ApplyMode int

const (
	// ApplyModeSync dispatches immediately in-sandbox and returns the value
	// synchronously; no sequence number or pending entry is allocated.
	ApplyModeSync ApplyMode = iota
	// ApplyModeAsyncAwaited allocates a sequence number, records a
	// completion, and enqueues a pending external call; the result arrives
	// in a later resolveExternalDependencies batch.
	ApplyModeAsyncAwaited
	// ApplyModeAsyncIgnored enqueues the call with no sequence number and
	// returns immediately; any result is discarded.
	ApplyModeAsyncIgnored
)

// DependencyFunc is a host-exposed function reachable from user code. Only
// ApplyModeSync invokes it directly in-sandbox; the async modes merely
// record the call for the host to execute out of band.
type DependencyFunc func(args ...any) (any, error)

// ExternalCall describes a single invocation enqueued for the host, with an
// optional sequence number correlating it to a completion.
type ExternalCall struct {
	IfaceName string
	FnName    string
	Args      []any
	Seq       *int64
}

// dependencyRegistry maps (ifaceName, fnName) to a host-injected function
// and its configured apply mode.
type dependencyRegistry struct {
	entries map[string]dependencyEntry
}

type dependencyEntry struct {
	fn   DependencyFunc
	mode ApplyMode
}

func newDependencyRegistry() *dependencyRegistry {
	return &dependencyRegistry{entries: make(map[string]dependencyEntry)}
}

func depKey(ifaceName, fnName string) string { return ifaceName + "." + fnName }

// Inject registers a host-exposed dependency function.
func (r *dependencyRegistry) Inject(ifaceName, fnName string, fn DependencyFunc, mode ApplyMode) {
	r.entries[depKey(ifaceName, fnName)] = dependencyEntry{fn: fn, mode: mode}
}

func (r *dependencyRegistry) lookup(ifaceName, fnName string) (dependencyEntry, bool) {
	e, ok := r.entries[depKey(ifaceName, fnName)]
	return e, ok
}

// CallDependency dispatches a call to a registered external dependency per
// its configured ApplyMode. The sync mode runs fn to completion and returns
// an already-settled Future with its outcome; the async-awaited mode
// returns a pending Future whose completion is recorded under the scope on
// top of the active-scope stack (the root scope when called outside a
// fiber); the async-ignored mode returns an already-resolved Future with a
// nil value. Both async modes enqueue a pending-external-buffer entry.
func (e *Engine) CallDependency(ifaceName, fnName string, args ...any) (*Future, error) {
	entry, ok := e.dependencies.lookup(ifaceName, fnName)
	if !ok {
		return nil, &IllegalStateError{Reason: "external dependency not registered: " + depKey(ifaceName, fnName)}
	}

	switch entry.mode {
	case ApplyModeSync:
		v, err := entry.fn(args...)
		return settledFuture(e, v, err), nil

	case ApplyModeAsyncAwaited:
		seq := e.nextSeq
		e.nextSeq++
		f := newFuture(e)
		scope := e.currentScope()
		e.completions.put(seq, &completion{
			resolve: func(v any) { f.resolve(v) },
			reject:  func(err error) { f.reject(err) },
			scope:   scope,
		})
		seqCopy := seq
		e.pendingExternal = append(e.pendingExternal, ExternalCall{
			IfaceName: ifaceName, FnName: fnName, Args: args, Seq: &seqCopy,
		})
		return f, nil

	case ApplyModeAsyncIgnored:
		e.pendingExternal = append(e.pendingExternal, ExternalCall{
			IfaceName: ifaceName, FnName: fnName, Args: args,
		})
		return settledFuture(e, nil, nil), nil

	default:
		return nil, &IllegalStateError{Reason: "unknown apply mode"}
	}
}

// drainPendingExternal returns and clears the pending external-call buffer.
// Conclude checks this before encoding a completion: a non-empty result
// means the activation is waiting on the host to run these calls, not done.
func (e *Engine) drainPendingExternal() []ExternalCall {
	out := e.pendingExternal
	e.pendingExternal = nil
	return out
}

// ExternalResult is a single resolution delivered by the host via
// resolveExternalDependencies.
type ExternalResult struct {
	Seq    int64
	Result any
	Err    error
}

// ResolveExternalDependencies consumes completions for a batch of external
// results and resolves or rejects them, resuming any fibers blocked on them.
func (e *Engine) ResolveExternalDependencies(results []ExternalResult) error {
	for _, r := range results {
		c := e.completions.take(r.Seq)
		if c == nil {
			return &IllegalStateError{Reason: "resolveExternalDependencies: unknown seq"}
		}
		if r.Err != nil {
			c.reject(r.Err)
		} else {
			c.resolve(r.Result)
		}
	}
	return e.scheduler.drain()
}
