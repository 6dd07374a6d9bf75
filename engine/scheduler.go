package engine

import "fmt"

// Go has no coroutine/continuation primitive equivalent to a JS promise, so
// there is no way to hook a promise's lifecycle transitions directly.
// Instead, each region of user code (a Context.Go body, a signal or query
// dispatch, the workflow entry point) runs on its own real goroutine, and a
// scheduler hands exclusive execution to exactly one goroutine at a time via
// paired channels — the same technique the Cadence/Temporal Go SDKs use
// internally to make a goroutine-based workflow program replay
// deterministically. Only one fiber ever executes engine or user code
// concurrently; Go's runtime scheduler interleaving of the idle, parked
// fibers is never observable.
type (
	fiber struct {
		id           int
		scope        *cancelScope
		unblock      chan func() bool
		aboutToBlock chan struct{}
		closed       bool
		keptBlocked  bool
		panicErr     error
	}

	scheduler struct {
		eng      *Engine
		fibers   []*fiber
		seq      int
		running  bool
	}
)

func newScheduler(e *Engine) *scheduler {
	return &scheduler{eng: e}
}

// spawn starts fn on a freshly created fiber bound to scope and registers it
// with the scheduler. fn does not begin running until the scheduler's next
// drain call.
func (s *scheduler) spawn(scope *cancelScope, fn func()) *fiber {
	s.seq++
	f := &fiber{
		id:           s.seq,
		scope:        scope,
		unblock:      make(chan func() bool),
		aboutToBlock: make(chan struct{}, 1),
	}
	s.fibers = append(s.fibers, f)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if dv, ok := r.(*DeterminismViolationError); ok {
					f.panicErr = dv
				} else {
					f.panicErr = fmt.Errorf("fiber panic: %v", r)
				}
			}
			f.closed = true
			f.aboutToBlock <- struct{}{}
		}()
		f.initialYield()
		fn()
	}()
	return f
}

func (f *fiber) initialYield() {
	keepBlocked := true
	for keepBlocked {
		unblockFn := <-f.unblock
		keepBlocked = unblockFn()
	}
}

// yield suspends the calling fiber until the scheduler resumes it again. It
// must only be called from within the fiber's own goroutine.
func (f *fiber) yield() {
	f.aboutToBlock <- struct{}{}
	f.initialYield()
	f.keptBlocked = true
}

// call hands the fiber exactly one turn of execution and blocks the caller
// (the scheduler's goroutine) until the fiber yields, blocks, or finishes.
func (f *fiber) call() {
	f.keptBlocked = false
	f.unblock <- func() bool { return false }
	<-f.aboutToBlock
}

// drain runs every live fiber until none of them makes further progress in a
// full pass and no new fiber was spawned mid-pass — the cooperative
// scheduler's quiescence point between one job's effects and the next.
func (s *scheduler) drain() error {
	if s.running {
		panic("scheduler.drain called re-entrantly")
	}
	s.running = true
	defer func() { s.running = false }()

	for {
		allBlocked := true
		startSeq := s.seq
		for i := 0; i < len(s.fibers); i++ {
			f := s.fibers[i]
			if f.closed {
				continue
			}
			s.eng.runningFiber = f
			if err := s.eng.pushScope(f.scope); err != nil {
				s.eng.runningFiber = nil
				return err
			}
			f.call()
			s.eng.popScope()
			s.eng.runningFiber = nil

			if f.closed {
				if f.panicErr != nil {
					if dv, ok := f.panicErr.(*DeterminismViolationError); ok {
						return dv
					}
					return &IllegalStateError{Reason: f.panicErr.Error()}
				}
				allBlocked = false
			} else {
				allBlocked = allBlocked && f.keptBlocked
			}
		}
		s.fibers = compactFibers(s.fibers)
		if allBlocked && startSeq == s.seq {
			return nil
		}
		if len(s.fibers) == 0 {
			return nil
		}
	}
}

func compactFibers(fibers []*fiber) []*fiber {
	out := fibers[:0]
	for _, f := range fibers {
		if !f.closed {
			out = append(out, f)
		}
	}
	return out
}

// yieldCurrent suspends whichever fiber is currently executing. It is the
// hook Future.Get uses to block without stalling the whole engine.
func (e *Engine) yieldCurrent() {
	f := e.runningFiber
	if f == nil {
		panic("yieldCurrent called outside a fiber")
	}
	f.yield()
}
