package engine

import "testing"

func TestSettledFutureResolve(t *testing.T) {
	e := newTestEngine(t)
	f := settledFuture(e, 42, nil)
	if !f.IsReady() {
		t.Fatal("expected settled future to be ready")
	}
	v, err := f.Get()
	if err != nil || v != 42 {
		t.Fatalf("Get() = (%v, %v), want (42, nil)", v, err)
	}
}

func TestSettledFutureReject(t *testing.T) {
	e := newTestEngine(t)
	wantErr := &IllegalStateError{Reason: "boom"}
	f := settledFuture(e, nil, wantErr)
	_, err := f.Get()
	if err != wantErr {
		t.Fatalf("Get() error = %v, want %v", err, wantErr)
	}
}

func TestFutureResolveIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	f := newFuture(e)
	f.resolve(1)
	f.resolve(2)
	v, _ := f.Get()
	if v != 1 {
		t.Fatalf("expected first resolve to win, got %v", v)
	}
}

func TestFutureGetBlocksUntilResolvedAcrossFiber(t *testing.T) {
	e := newTestEngine(t)
	f := newFuture(e)
	got := make(chan any, 1)

	scope := e.openScope(scopeKindScope, nil, nil)
	e.scheduler.spawn(scope, func() {
		v, _ := f.Get()
		got <- v
	})

	if err := e.scheduler.drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	select {
	case <-got:
		t.Fatal("fiber should still be blocked on an unresolved future")
	default:
	}

	f.resolve("done")
	if err := e.scheduler.drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	select {
	case v := <-got:
		if v != "done" {
			t.Fatalf("got %v, want done", v)
		}
	default:
		t.Fatal("expected fiber to have resumed after resolve")
	}
}
