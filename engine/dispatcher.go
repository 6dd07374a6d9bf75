package engine

import "strconv"

// JobResult reports whether a single job was dispatched to the activator or
// skipped because the workflow had already completed.
type JobResult struct {
	Processed bool
}

// Activate decodes a length-delimited activation and dispatches each job in
// order. Between jobs the scheduler is drained to quiescence so that a
// job's effects (a resolved completion, a newly spawned fiber) are fully
// observed before the next job is processed — the host never sees a command
// that depends on a job it hasn't delivered yet.
func (e *Engine) Activate(data []byte) ([]JobResult, error) {
	act, err := DecodeActivation(data)
	if err != nil {
		return nil, err
	}
	if e.info == nil {
		return nil, &IllegalStateError{Reason: "activation received before InitWorkflow"}
	}

	ctx, span := e.tracer.Start(logCtx, "engine.Activate")
	defer span.End()

	e.now = act.TimestampMS
	e.info.IsReplaying = act.IsReplaying
	e.logger.Debug(ctx, "dispatching activation", "runID", act.RunID, "jobs", len(act.Jobs), "replaying", act.IsReplaying)
	e.metrics.RecordGauge("workflowcore.scope_tree_size", float64(len(e.scopes)))

	results := make([]JobResult, len(act.Jobs))
	for i, job := range act.Jobs {
		processed, err := e.dispatchJob(job)
		if err != nil {
			span.RecordError(err)
			return results, err
		}
		results[i] = JobResult{Processed: processed}
		if err := e.scheduler.drain(); err != nil {
			span.RecordError(err)
			return results, err
		}
	}
	e.metrics.IncCounter("workflowcore.activations_processed", 1)
	return results, nil
}

// dispatchJob implements the per-job variant switch and the
// already-completed skip rule: once the workflow has completed or failed,
// every job but a query is a no-op, since a completed run can still answer
// queries but never resumes execution.
func (e *Engine) dispatchJob(job *Job) (bool, error) {
	if e.completed && job.Kind != JobQueryWorkflow {
		return false, nil
	}

	switch job.Kind {
	case JobStartWorkflow:
		return true, e.handleStartWorkflow(job)
	case JobCancelWorkflow:
		return true, e.handleCancelWorkflow()
	case JobFireTimer:
		return true, e.handleFireTimer(job)
	case JobResolveActivity:
		return true, e.handleResolveActivity(job)
	case JobQueryWorkflow:
		return true, e.handleQueryWorkflow(job)
	case JobSignalWorkflow:
		return true, e.handleSignalWorkflow(job)
	case JobUpdateRandomSeed:
		e.random = newRNG(job.RandomnessSeed)
		return true, nil
	case JobRemoveFromCache:
		return false, &IllegalStateError{Reason: "removeFromCache reached the in-sandbox core"}
	default:
		return false, &IllegalStateError{Reason: "unrecognized job kind"}
	}
}

func parseSeq(field string) (int64, error) {
	seq, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, &IllegalStateError{Reason: "could not parse sequence number: " + field}
	}
	return seq, nil
}

// handleStartWorkflow composes the registered execute interceptors around
// workflow.Main and runs it on a fresh fiber bound to the root scope.
// Completion/failure is observed when that fiber returns, which happens no
// earlier than the next scheduler.drain.
func (e *Engine) handleStartWorkflow(job *Job) error {
	if e.workflow == nil {
		return &IllegalStateError{Reason: "startWorkflow received before a workflow definition was bound"}
	}

	headers := make(map[string]*Payload, len(job.HeaderKeys))
	for i, k := range job.HeaderKeys {
		if i < len(job.HeaderValues) {
			headers[k] = job.HeaderValues[i]
		}
	}

	rootCtx := e.RootContext()
	base := func(input ExecuteInput) (any, error) {
		return e.workflow.Main(rootCtx, input.Arguments)
	}
	run := e.interceptors.composeExecute(base)

	eng := e
	eng.scheduler.spawn(rootCtx.scope, func() {
		result, err := run(ExecuteInput{Headers: headers, Arguments: job.Arguments})
		eng.completed = true
		if err != nil {
			uf := errorToUserCodeFailure(err)
			eng.logger.Error(logCtx, "workflow execution failed", "error", uf.Error())
			eng.commands.push(Command{Kind: CommandFailWorkflowExecution, Failure: &Failure{Message: uf.Error()}})
			return
		}
		var resultPayload *Payload
		if result != nil {
			resultPayload, _ = result.(*Payload)
		}
		eng.commands.push(Command{Kind: CommandCompleteWorkflowExecution, CompletionResult: resultPayload})
	})
	return nil
}

// handleCancelWorkflow completes-cancels the root scope, fanning
// cancellation out to every descendant.
func (e *Engine) handleCancelWorkflow() error {
	root := e.scopes[rootScopeIdx]
	return e.completeCancelScope(root, CancellationSourceExternal)
}

// handleFireTimer consumes the completion for the fired timer and resolves
// it with no value.
func (e *Engine) handleFireTimer(job *Job) error {
	seq, err := parseSeq(job.TimerID)
	if err != nil {
		return err
	}
	c := e.completions.take(seq)
	if c == nil {
		return &IllegalStateError{Reason: "fireTimer: unknown timerId " + job.TimerID}
	}
	c.resolve(nil)
	return nil
}

// handleResolveActivity consumes the completion for the resolved activity
// and resolves, rejects, or completes-cancels its scope depending on the
// resolution kind.
func (e *Engine) handleResolveActivity(job *Job) error {
	seq, err := parseSeq(job.ActivityID)
	if err != nil {
		return err
	}
	c := e.completions.take(seq)
	if c == nil {
		return &IllegalStateError{Reason: "resolveActivity: unknown activityId " + job.ActivityID}
	}
	res := job.ActResult
	if res == nil {
		return &IllegalStateError{Reason: "resolveActivity: missing resolution"}
	}

	switch res.Kind {
	case ActivityCompleted:
		c.resolve(res.Result)
	case ActivityFailed:
		c.reject(&UserCodeFailureError{Message: res.FailureMessage})
	case ActivityCanceled:
		scope := c.scope
		if err := e.completeCancelScope(scope, CancellationSourceInternal); err != nil {
			if !isSameCancellation(err, scope.cancelErr) {
				return err
			}
		}
	default:
		return &IllegalStateError{Reason: "resolveActivity: unrecognized resolution kind"}
	}
	return nil
}

// handleQueryWorkflow looks up the named query handler and runs it on its
// own fiber so it may suspend like any other continuation; completed
// workflows still service queries.
func (e *Engine) handleQueryWorkflow(job *Job) error {
	handler, ok := lookupQuery(e.workflow, job.QueryType)
	if !ok {
		e.commands.push(Command{Kind: CommandRespondToQueryFailed, QueryID: job.QueryID, Message: "unknown query type: " + job.QueryType})
		return nil
	}

	ctx := e.RootContext()
	eng := e
	eng.scheduler.spawn(ctx.scope, func() {
		result, err := handler(ctx, job.QueryArgs)
		if err != nil {
			eng.commands.push(Command{Kind: CommandRespondToQueryFailed, QueryID: job.QueryID, Message: err.Error()})
			return
		}
		eng.commands.push(Command{Kind: CommandRespondToQuerySucceeded, QueryID: job.QueryID, Result: result})
	})
	return nil
}

// handleSignalWorkflow composes the registered signal interceptors around
// the named signal handler. An unhandled error fails the workflow.
func (e *Engine) handleSignalWorkflow(job *Job) error {
	handler, ok := lookupSignal(e.workflow, job.SignalName)
	if !ok {
		return &IllegalStateError{Reason: "unknown signal: " + job.SignalName}
	}

	ctx := e.RootContext()
	base := func(input HandleSignalInput) error {
		return handler(ctx, input.Input)
	}
	run := e.interceptors.composeHandleSignal(base)

	eng := e
	eng.scheduler.spawn(ctx.scope, func() {
		if err := run(HandleSignalInput{SignalName: job.SignalName, Input: job.SignalInput}); err != nil {
			eng.completed = true
			uf := errorToUserCodeFailure(err)
			eng.logger.Error(logCtx, "signal handler failed", "signal", job.SignalName, "error", uf.Error())
			eng.commands.push(Command{Kind: CommandFailWorkflowExecution, Failure: &Failure{Message: uf.Error()}})
		}
	})
	return nil
}

func lookupQuery(def *WorkflowDefinition, queryType string) (QueryHandler, bool) {
	if def == nil || def.Queries == nil {
		return nil, false
	}
	h, ok := def.Queries[queryType]
	return h, ok
}

func lookupSignal(def *WorkflowDefinition, signalName string) (SignalHandler, bool) {
	if def == nil || def.Signals == nil {
		return nil, false
	}
	h, ok := def.Signals[signalName]
	return h, ok
}
