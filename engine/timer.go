package engine

import "strconv"

// Timer is the handle returned by NewTimer: a scope-bound completion that
// the host fires via a fireTimer job or that user code clears early, the
// same setTimeout/clearTimeout pairing Temporal's SDKs expose as a durable
// timer.
type Timer struct {
	eng    *Engine
	seq    int64
	scope  *cancelScope
	future *Future
}

// Future returns the awaitable governing this timer. Get returns (nil, nil)
// when the timer fires, or (nil, *CancellationError) if the timer's scope
// is completed-cancelled before it fires.
func (t *Timer) Future() *Future { return t.future }

// NewTimer allocates a sequence number, opens a timer-typed scope, emits a
// startTimer command, and returns the timer handle. durationMS is the
// requested start-to-fire timeout in milliseconds.
func (ctx *Context) NewTimer(durationMS int64) *Timer {
	eng := ctx.eng
	seq := eng.nextSeq
	eng.nextSeq++
	seqStr := strconv.FormatInt(seq, 10)
	future := newFuture(eng)

	var scope *cancelScope
	clear := func(cancelErr error) error {
		if eng.completions.take(seq) == nil {
			return nil
		}
		eng.commands.push(Command{Kind: CommandCancelTimer, TimerID: seqStr})
		eng.nextSeq++ // clearTimeout consumes a seq to preserve parity across branches
		if cancelErr != nil {
			future.reject(cancelErr)
		}
		eng.closeScope(scope.idx)
		return nil
	}
	scope = eng.openScope(scopeKindTimer,
		func(source CancellationSource) error { return clear(nil) },
		func(err error) error { return clear(err) },
	)

	eng.completions.put(seq, &completion{
		resolve: func(v any) { future.resolve(v); eng.closeScope(scope.idx) },
		reject:  func(err error) { future.reject(err); eng.closeScope(scope.idx) },
		scope:   scope,
	})
	eng.commands.push(Command{Kind: CommandStartTimer, TimerID: seqStr, StartToFireTimeoutMS: durationMS})

	return &Timer{eng: eng, seq: seq, scope: scope, future: future}
}

// Cancel clears the timer before it fires. Calling Cancel after the timer
// has already fired or been cancelled is a no-op.
func (t *Timer) Cancel() error {
	return t.eng.requestCancelScope(t.scope)
}

// Sleep starts a timer for durationMS and blocks the calling fiber until it
// fires, or until its scope is completed-cancelled, in which case it returns
// the *CancellationError. A requestCancel reaching the timer's scope emits
// cancelTimer but leaves Sleep blocked.
func (ctx *Context) Sleep(durationMS int64) error {
	t := ctx.NewTimer(durationMS)
	_, err := t.Future().Get()
	return err
}
