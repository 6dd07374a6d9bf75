package engine

import "testing"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	err := e.InitWorkflow(WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) { return nil, nil },
	}, WorkflowInfo{WorkflowID: "wf-1", RunID: "run-1"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("InitWorkflow: %v", err)
	}
	return e
}

func TestOpenCloseScopeUpdatesChildSet(t *testing.T) {
	e := newTestEngine(t)
	root := e.scopes[rootScopeIdx]

	s := e.openScope(scopeKindScope, nil, nil)
	if s.parent != root.idx {
		t.Fatalf("expected parent %d, got %d", root.idx, s.parent)
	}
	if len(e.childScopes[root.idx]) != 1 || e.childScopes[root.idx][0] != s.idx {
		t.Fatalf("expected root to list %d as child, got %v", s.idx, e.childScopes[root.idx])
	}

	e.closeScope(s.idx)
	if _, ok := e.scopes[s.idx]; ok {
		t.Fatal("expected scope to be removed from arena")
	}
	if len(e.childScopes[root.idx]) != 0 {
		t.Fatalf("expected root child set empty, got %v", e.childScopes[root.idx])
	}
}

func TestRootScopeRejectsRequestCancel(t *testing.T) {
	e := newTestEngine(t)
	err := e.requestCancelScope(e.scopes[rootScopeIdx])
	if err == nil {
		t.Fatal("expected error cancelling root scope from user code")
	}
	var ise *IllegalStateError
	if !AsIllegalState(err, &ise) {
		t.Fatalf("expected IllegalStateError, got %T: %v", err, err)
	}
}

func TestPropagateFansOutDepthFirst(t *testing.T) {
	e := newTestEngine(t)
	var order []int

	parent := e.openScope(scopeKindScope,
		func(CancellationSource) error { order = append(order, 0); return nil },
		nil,
	)
	e.scopeStack = append(e.scopeStack, parent.idx)

	child := e.openScope(scopeKindScope,
		func(CancellationSource) error { order = append(order, 1); return nil },
		nil,
	)
	_ = child

	if err := e.requestCancelScope(parent); err != nil {
		t.Fatalf("requestCancelScope: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 0 {
		t.Fatalf("expected child-before-parent order [1 0], got %v", order)
	}
	if parent.cancelErr == nil {
		t.Fatal("expected parent.cancelErr to be set")
	}
}

func TestPushPopScopeFindsNearestScopeAncestor(t *testing.T) {
	e := newTestEngine(t)
	container := e.openScope(scopeKindScope, nil, nil)
	e.scopeStack = append(e.scopeStack, container.idx)
	leaf := e.openScope(scopeKindTimer, nil, nil)

	before := len(e.scopeStack)
	if err := e.pushScope(leaf); err != nil {
		t.Fatalf("pushScope: %v", err)
	}
	if e.currentScope().idx != container.idx {
		t.Fatalf("expected container %d on top, got %d", container.idx, e.currentScope().idx)
	}
	e.popScope()
	if len(e.scopeStack) != before {
		t.Fatalf("expected scope stack balanced at %d, got %d", before, len(e.scopeStack))
	}
}

// AsIllegalState is a small helper so tests can assert on the concrete
// error type without importing errors.As boilerplate everywhere.
func AsIllegalState(err error, target **IllegalStateError) bool {
	ise, ok := err.(*IllegalStateError)
	if !ok {
		return false
	}
	*target = ise
	return true
}
