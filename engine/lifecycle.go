package engine

// WorkflowInfo describes the run this engine executes.
type WorkflowInfo struct {
	WorkflowID  string
	RunID       string
	TaskQueue   string
	IsReplaying bool
}

// WorkflowMainFunc is the workflow entry point. It runs on its own fiber
// bound to the root scope and must be deterministic: given the same
// activation history, it must reach the same suspension points and produce
// the same commands on every replay.
type WorkflowMainFunc func(ctx *Context, args []*Payload) (*Payload, error)

// QueryHandler answers a queryWorkflow job. Query handlers may run on a
// completed workflow and must not mutate durable state.
type QueryHandler func(ctx *Context, args []*Payload) (*Payload, error)

// SignalHandler handles a signalWorkflow job.
type SignalHandler func(ctx *Context, input []*Payload) error

// WorkflowDefinition binds the handlers invoked by the activation dispatcher:
// the entry point plus the query/signal maps the dispatcher consults by
// name.
type WorkflowDefinition struct {
	Main    WorkflowMainFunc
	Queries map[string]QueryHandler
	Signals map[string]SignalHandler
}

// InitWorkflow binds a workflow definition to this engine instance,
// installs the deterministic shims, seeds the RNG, and registers
// interceptors. It must be called exactly once, before the first Activate.
func (e *Engine) InitWorkflow(def WorkflowDefinition, info WorkflowInfo, randomnessSeed []byte, execInterceptors []Interceptor, signalInterceptors []SignalInterceptor) error {
	if e.workflow != nil {
		return &IllegalStateError{Reason: "InitWorkflow called twice"}
	}
	if def.Main == nil {
		return &IllegalStateError{Reason: "workflow definition missing Main"}
	}

	e.workflow = &def
	e.info = &info
	e.random = newRNG(randomnessSeed)
	e.interceptors.execute = append(e.interceptors.execute, execInterceptors...)
	e.interceptors.signal = append(e.interceptors.signal, signalInterceptors...)

	root := &cancelScope{idx: rootScopeIdx, parent: -1, kind: scopeKindScope}
	e.scopes[rootScopeIdx] = root
	e.nextScopeIdx = rootScopeIdx + 1
	e.scopeStack = []int{rootScopeIdx}
	e.rootDone = make(chan struct{})

	// The root scope can only be completed-cancelled by the engine in
	// response to an external cancelWorkflow job; requestCancel from user
	// code is rejected in scope.go.
	root.completeCancel = func(err error) error {
		e.cancelled = true
		select {
		case <-e.rootDone:
		default:
			close(e.rootDone)
		}
		return nil
	}

	e.logger.Info(logCtx, "workflow initialized", "workflowID", info.WorkflowID, "runID", e.runID, "taskQueue", info.TaskQueue)
	return nil
}

// Inject registers a host-exposed external dependency function that
// workflow code can reach via Context.CallDependency.
func (e *Engine) Inject(ifaceName, fnName string, fn DependencyFunc, mode ApplyMode) {
	e.dependencies.Inject(ifaceName, fnName, fn, mode)
}
