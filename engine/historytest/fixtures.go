// Package historytest holds activation fixtures shared by the engine's
// replay-safety and end-to-end tests: canned byte-level activation
// histories for four of the six scenarios from the execution core's
// testable-properties section (sleep, cancel timer with delay, signal then
// fail, query on a completed workflow), built with the same wire encoder the
// engine itself decodes. The cancel-timer-immediately and activity
// cancellation scenarios have no history here.
package historytest

import "github.com/flowcorelabs/workflowcore/engine"

// SleepWorkflowHistory returns the two activations a "sleep N ms, then
// return" workflow drives: a startWorkflow activation, followed by the
// fireTimer activation for the single timer it schedules.
func SleepWorkflowHistory(runID string, sleepMS int64) [][]byte {
	return [][]byte{
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: 0,
			Jobs:        []*engine.Job{{Kind: engine.JobStartWorkflow}},
		}),
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: sleepMS,
			Jobs:        []*engine.Job{{Kind: engine.JobFireTimer, TimerID: "0"}},
		}),
	}
}

// CancelTimerWithDelayHistory builds the activation sequence for scenario 3:
// two timers opened together, the short one fires, and the workflow cancels
// the long one in response. Only the activations the host would actually
// deliver are included; the cancelTimer command is emitted by the engine,
// not fed in as a job.
func CancelTimerWithDelayHistory(runID string, shortFireMS int64) [][]byte {
	return [][]byte{
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: 0,
			Jobs:        []*engine.Job{{Kind: engine.JobStartWorkflow}},
		}),
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: shortFireMS,
			Jobs:        []*engine.Job{{Kind: engine.JobFireTimer, TimerID: "1"}},
		}),
	}
}

// SignalThenFailHistory builds the activation for scenario 5: a signal
// delivered in the same activation as startWorkflow, whose handler fails.
func SignalThenFailHistory(runID, signalName string) [][]byte {
	return [][]byte{
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: 0,
			Jobs: []*engine.Job{
				{Kind: engine.JobStartWorkflow},
				{Kind: engine.JobSignalWorkflow, SignalName: signalName},
			},
		}),
	}
}

// QueryOnCompletedWorkflowHistory builds the activations for scenario 6: the
// workflow completes in the first activation, and a query is serviced in a
// second, later activation.
func QueryOnCompletedWorkflowHistory(runID, queryType string) [][]byte {
	return [][]byte{
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: 0,
			Jobs:        []*engine.Job{{Kind: engine.JobStartWorkflow}},
		}),
		engine.EncodeActivation(&engine.Activation{
			RunID:       runID,
			TimestampMS: 1,
			Jobs:        []*engine.Job{{Kind: engine.JobQueryWorkflow, QueryID: "q1", QueryType: queryType}},
		}),
	}
}

// Replay feeds each encoded activation in history to eng in order, calling
// Conclude after every one and collecting the decoded command trace. It is
// the harness replay-safety tests use to compare two independently driven
// engines against the same recorded history.
func Replay(eng *engine.Engine, history [][]byte) ([]engine.Command, error) {
	var trace []engine.Command
	for _, encoded := range history {
		if _, err := eng.Activate(encoded); err != nil {
			return trace, err
		}
		res := eng.Conclude()
		if res.Kind != engine.ConcludeComplete {
			continue
		}
		_, commands, err := engine.DecodeActivationCompletion(res.Encoded)
		if err != nil {
			return trace, err
		}
		trace = append(trace, commands...)
	}
	return trace, nil
}
