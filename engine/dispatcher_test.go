package engine

import (
	"testing"

	commonpb "go.temporal.io/api/common/v1"
)

func newEngineWithWorkflow(t *testing.T, def WorkflowDefinition) *Engine {
	t.Helper()
	e := NewEngine(WithRunID("run-e2e"))
	if err := e.InitWorkflow(def, WorkflowInfo{WorkflowID: "wf", RunID: "run-e2e"}, []byte("seed"), nil, nil); err != nil {
		t.Fatalf("InitWorkflow: %v", err)
	}
	return e
}

func activate(t *testing.T, e *Engine, a *Activation) {
	t.Helper()
	if _, err := e.Activate(EncodeActivation(a)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
}

// Scenario 1: sleep 100ms then return.
func TestScenarioSleep100ms(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			if err := ctx.Sleep(100); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{{Kind: JobStartWorkflow}}})
	res := e.Conclude()
	if res.Kind != ConcludeComplete {
		t.Fatalf("expected complete after start, got pending: %+v", res)
	}
	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(completion) != 1 || completion[0].Kind != CommandStartTimer || completion[0].TimerID != "0" || completion[0].StartToFireTimeoutMS != 100 {
		t.Fatalf("unexpected commands after start: %+v", completion)
	}

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 100, Jobs: []*Job{{Kind: JobFireTimer, TimerID: "0"}}})
	res = e.Conclude()
	if res.Kind != ConcludeComplete {
		t.Fatalf("expected complete after fire, got pending: %+v", res)
	}
	completion, err = decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(completion) != 1 || completion[0].Kind != CommandCompleteWorkflowExecution {
		t.Fatalf("expected completeWorkflowExecution, got %+v", completion)
	}
}

// Scenario 2: cancel a timer immediately, before awaiting it.
func TestScenarioCancelTimerImmediately(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			timer := ctx.NewTimer(10000)
			if err := timer.Cancel(); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{{Kind: JobStartWorkflow}}})
	res := e.Conclude()
	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var kinds []CommandKind
	for _, c := range completion {
		kinds = append(kinds, c.Kind)
	}
	if len(kinds) != 3 || kinds[0] != CommandStartTimer || kinds[1] != CommandCancelTimer || kinds[2] != CommandCompleteWorkflowExecution {
		t.Fatalf("unexpected command sequence: %v", kinds)
	}
}

// Scenario 3: two timers, cancel the long one after the short one fires.
func TestScenarioCancelTimerWithDelay(t *testing.T) {
	var longTimer *Timer
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			longTimer = ctx.NewTimer(10000)
			short := ctx.NewTimer(1)
			if _, err := short.Future().Get(); err != nil {
				return nil, err
			}
			if err := longTimer.Cancel(); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{{Kind: JobStartWorkflow}}})
	e.Conclude()

	if longTimer.seq != 0 {
		t.Fatalf("expected long timer seq 0, got %d", longTimer.seq)
	}

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 1, Jobs: []*Job{{Kind: JobFireTimer, TimerID: "1"}}})
	res := e.Conclude()
	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var kinds []CommandKind
	for _, c := range completion {
		kinds = append(kinds, c.Kind)
	}
	foundCancel := false
	for _, k := range kinds {
		if k == CommandCancelTimer {
			foundCancel = true
		}
	}
	if !foundCancel {
		t.Fatalf("expected a cancelTimer command after short timer fires, got %v", kinds)
	}
}

// Scenario 4: an activity in flight is rejected when the workflow is
// externally cancelled.
func TestScenarioActivityCancellation(t *testing.T) {
	var gotErr error
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			act := ctx.ExecuteActivity("doWork", nil, ActivityOptions{})
			_, err := act.Future().Get()
			gotErr = err
			return nil, err
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{{Kind: JobStartWorkflow}}})
	e.Conclude()

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 1, Jobs: []*Job{{Kind: JobCancelWorkflow}}})
	res := e.Conclude()

	if !e.cancelled {
		t.Fatal("expected engine.cancelled to be set")
	}
	var ce *CancellationError
	if gotErr == nil {
		t.Fatal("expected the activity await to observe a cancellation error")
	}
	if ce, _ = gotErr.(*CancellationError); ce == nil {
		t.Fatalf("expected *CancellationError, got %T: %v", gotErr, gotErr)
	}

	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, c := range completion {
		if c.Kind == CommandFailWorkflowExecution {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected failWorkflowExecution after unhandled cancellation, got %+v", completion)
	}
}

// Scenario 5: signal handler throws, failing the workflow.
func TestScenarioSignalThenFail(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			timer := ctx.NewTimer(999999999)
			_, err := timer.Future().Get()
			return nil, err
		},
		Signals: map[string]SignalHandler{
			"fail": func(ctx *Context, input []*Payload) error {
				return &UserCodeFailureError{Message: "Signal failed intentionally"}
			},
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{
		{Kind: JobStartWorkflow},
		{Kind: JobSignalWorkflow, SignalName: "fail"},
	}})
	res := e.Conclude()
	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, c := range completion {
		if c.Kind == CommandFailWorkflowExecution {
			found = true
			if c.Failure == nil || c.Failure.Message == "" {
				t.Fatalf("expected a failure message, got %+v", c.Failure)
			}
		}
	}
	if !found {
		t.Fatalf("expected failWorkflowExecution command, got %+v", completion)
	}
}

// Scenario 6: query on a completed workflow still succeeds.
func TestScenarioQueryOnCompletedWorkflow(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) { return nil, nil },
		Queries: map[string]QueryHandler{
			"status": func(ctx *Context, args []*Payload) (*Payload, error) {
				return &commonpb.Payload{Data: []byte("done")}, nil
			},
		},
	})

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 0, Jobs: []*Job{{Kind: JobStartWorkflow}}})
	e.Conclude()
	if !e.completed {
		t.Fatal("expected workflow to be completed")
	}

	activate(t, e, &Activation{RunID: e.RunID(), TimestampMS: 1, Jobs: []*Job{{Kind: JobQueryWorkflow, QueryID: "q1", QueryType: "status"}}})
	res := e.Conclude()
	completion, err := decodeActivationCompletionForTest(res.Encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(completion) != 1 || completion[0].Kind != CommandRespondToQuerySucceeded || string(completion[0].Result.Data) != "done" {
		t.Fatalf("unexpected query response: %+v", completion)
	}
}

func TestRemoveFromCacheIsIllegalState(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) { return nil, nil },
	})
	_, err := e.Activate(EncodeActivation(&Activation{RunID: e.RunID(), Jobs: []*Job{{Kind: JobRemoveFromCache}}}))
	if _, ok := err.(*IllegalStateError); !ok {
		t.Fatalf("expected IllegalStateError, got %T: %v", err, err)
	}
}

func TestWeakRefIsDeterminismViolation(t *testing.T) {
	e := newEngineWithWorkflow(t, WorkflowDefinition{
		Main: func(ctx *Context, args []*Payload) (*Payload, error) {
			ctx.NewWeakRef(args)
			return nil, nil
		},
	})
	_, err := e.Activate(EncodeActivation(&Activation{RunID: e.RunID(), Jobs: []*Job{{Kind: JobStartWorkflow}}}))
	if _, ok := err.(*DeterminismViolationError); !ok {
		t.Fatalf("expected DeterminismViolationError, got %T: %v", err, err)
	}
}

func decodeActivationCompletionForTest(data []byte) ([]Command, error) {
	_, commands, err := DecodeActivationCompletion(data)
	return commands, err
}
