package engine

import "fmt"

// scopeKind tags the kind of cancellable region a scope represents.
type scopeKind int

const (
	scopeKindScope scopeKind = iota
	scopeKindActivity
	scopeKindTimer
)

func (k scopeKind) String() string {
	switch k {
	case scopeKindActivity:
		return "activity"
	case scopeKindTimer:
		return "timer"
	default:
		return "scope"
	}
}

// rootScopeIdx is the reserved index of the engine's root scope.
const rootScopeIdx = 0

// cancelScope is a node in the cancellation tree. Scopes are held in an
// arena (engine.scopes) keyed by their monotonic idx, and reference each
// other by index rather than pointer so identity comparison is O(1) and the
// parent/child graph never needs cycle-aware GC reasoning.
type cancelScope struct {
	idx        int
	parent     int // -1 only for the root
	kind       scopeKind
	associated bool

	requestCancel  func(source CancellationSource) error
	completeCancel func(err error) error

	// cancelErr is set the first time this scope is cancelled, so repeated
	// propagate() calls (e.g. from both a parent fan-out and a direct
	// completeCancel) are idempotent.
	cancelErr *CancellationError
}

// openScope allocates a fresh non-root scope as a child of the current scope
// and records it in the arena and in the parent's child set. It does not
// push the scope onto the active-scope stack and runs no code itself; the
// caller binds the scope to a fiber (Go) or a completion (NewTimer,
// ExecuteActivity), and the scheduler's pushScope/popScope bracket every
// turn of a fiber bound to it.
func (e *Engine) openScope(kind scopeKind, requestCancel func(CancellationSource) error, completeCancel func(error) error) *cancelScope {
	parent := e.currentScope()
	s := &cancelScope{
		idx:            e.nextScopeIdx,
		parent:         parent.idx,
		kind:           kind,
		requestCancel:  requestCancel,
		completeCancel: completeCancel,
	}
	e.nextScopeIdx++
	e.scopes[s.idx] = s
	e.childScopes[parent.idx] = append(e.childScopes[parent.idx], s.idx)
	return s
}

// closeScope removes a resolved/rejected scope from its parent's child set.
// A scope is present in childScopes[parent] iff its governing future is
// still unresolved.
func (e *Engine) closeScope(idx int) {
	if idx == rootScopeIdx {
		return
	}
	s, ok := e.scopes[idx]
	if !ok {
		return
	}
	children := e.childScopes[s.parent]
	for i, c := range children {
		if c == idx {
			e.childScopes[s.parent] = append(children[:i], children[i+1:]...)
			break
		}
	}
	if len(e.childScopes[s.parent]) == 0 {
		delete(e.childScopes, s.parent)
	}
	delete(e.scopes, idx)
}

// currentScope returns the scope on top of the active-scope stack. The
// stack is never empty after init: the root scope sits at index 0.
func (e *Engine) currentScope() *cancelScope {
	top := e.scopeStack[len(e.scopeStack)-1]
	return e.scopes[top]
}

// pushScope walks up from s to the nearest ancestor of kind scopeKindScope
// (the "container" scope) and pushes it onto the active-scope stack.
// Timer- and activity-typed scopes are leaves that never themselves own a
// stack frame; they delegate to their nearest scope-typed ancestor.
func (e *Engine) pushScope(s *cancelScope) error {
	container := s
	for container.kind != scopeKindScope {
		parent, ok := e.scopes[container.parent]
		if !ok {
			return &IllegalStateError{Reason: fmt.Sprintf("no scope-typed ancestor found for scope %d", s.idx)}
		}
		container = parent
	}
	e.scopeStack = append(e.scopeStack, container.idx)
	return nil
}

// popScope undoes the matching pushScope.
func (e *Engine) popScope() {
	e.scopeStack = e.scopeStack[:len(e.scopeStack)-1]
}

// propagate fans a cancellation event out to every child of scope, depth
// first, then applies it to scope itself. complete selects whether this is
// a requestCancel pass (user-intent, e.g. cancelActivity commands) or a
// completeCancel pass (engine-acknowledged, e.g. an activity reporting
// canceled). Errors from children that are not the same cancellation
// instance are forwarded to the caller instead of swallowed.
func (e *Engine) propagate(s *cancelScope, source CancellationSource, complete bool) error {
	children := append([]int(nil), e.childScopes[s.idx]...)
	for _, idx := range children {
		child, ok := e.scopes[idx]
		if !ok {
			continue
		}
		if err := e.propagate(child, source, complete); err != nil {
			if !isSameCancellation(err, s.cancelErr) {
				return err
			}
		}
	}

	if s.cancelErr == nil {
		s.cancelErr = &CancellationError{Source: source}
	}

	if complete {
		if s.completeCancel != nil {
			return s.completeCancel(s.cancelErr)
		}
		return nil
	}
	if s.requestCancel != nil {
		return s.requestCancel(source)
	}
	return nil
}

// requestCancelScope implements user-intent cancellation of s. The root
// scope rejects this outright: only the engine, in response to an external
// cancelWorkflow job, may complete-cancel the root.
func (e *Engine) requestCancelScope(s *cancelScope) error {
	if s.idx == rootScopeIdx {
		return &IllegalStateError{Reason: "root scope cannot be cancelled from user code"}
	}
	return e.propagate(s, CancellationSourceInternal, false)
}

// completeCancelScope implements engine-acknowledged cancellation of s.
func (e *Engine) completeCancelScope(s *cancelScope, source CancellationSource) error {
	return e.propagate(s, source, true)
}
