package engine

import "strconv"

// ActivityOptions configures a single ExecuteActivity call. ActivityID
// defaults to the allocated sequence number when left blank.
type ActivityOptions struct {
	ActivityID string
}

// Activity is the handle returned by ExecuteActivity: an activity-typed
// scope paired with the completion the host's resolveActivity job resolves
// or rejects.
type Activity struct {
	eng        *Engine
	seq        int64
	activityID string
	scope      *cancelScope
	future     *Future
}

// Future returns the awaitable governing the activity's outcome.
func (a *Activity) Future() *Future { return a.future }

// ActivityID returns the id this activity was scheduled under.
func (a *Activity) ActivityID() string { return a.activityID }

// ExecuteActivity allocates a sequence number, opens an activity-typed
// scope, emits a scheduleActivity command, and returns the activity handle.
// Cancelling the returned handle's scope emits a cancelActivity command
// (requestCancel); the activity only actually resolves/rejects when the
// matching resolveActivity job arrives via the dispatcher.
func (ctx *Context) ExecuteActivity(activityType string, input *Payload, opts ActivityOptions) *Activity {
	eng := ctx.eng
	seq := eng.nextSeq
	eng.nextSeq++
	activityID := opts.ActivityID
	if activityID == "" {
		activityID = strconv.FormatInt(seq, 10)
	}
	future := newFuture(eng)

	var scope *cancelScope
	scope = eng.openScope(scopeKindActivity,
		func(source CancellationSource) error {
			eng.commands.push(Command{Kind: CommandCancelActivity, ActivityID: activityID, ActivityType: activityType})
			return nil
		},
		func(err error) error {
			future.reject(err)
			eng.closeScope(scope.idx)
			return nil
		},
	)

	eng.completions.put(seq, &completion{
		resolve: func(v any) { future.resolve(v); eng.closeScope(scope.idx) },
		reject:  func(err error) { future.reject(err); eng.closeScope(scope.idx) },
		scope:   scope,
	})
	eng.commands.push(Command{
		Kind:         CommandScheduleActivity,
		ActivityID:   activityID,
		ActivityType: activityType,
		Input:        input,
	})

	return &Activity{eng: eng, seq: seq, activityID: activityID, scope: scope, future: future}
}

// RequestCancel requests cancellation of the activity, emitting a
// cancelActivity command. The activity does not settle until the host
// reports its outcome via a resolveActivity job.
func (a *Activity) RequestCancel() error {
	return a.eng.requestCancelScope(a.scope)
}
