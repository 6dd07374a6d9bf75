// Command workflowcore-demo drives a tiny workflow through the execution
// core by hand, playing the part of the host: it builds activations,
// activates them, and prints the resulting command trace. It exists to
// exercise the package's public surface end to end, the same role
// cmd/demo/main.go plays for the runtime package it was adapted from.
package main

import (
	"fmt"

	"github.com/flowcorelabs/workflowcore/engine"
)

func main() {
	def := engine.WorkflowDefinition{
		Main: func(ctx *engine.Context, args []*engine.Payload) (*engine.Payload, error) {
			fmt.Println("workflow: sleeping 100ms")
			if err := ctx.Sleep(100); err != nil {
				return nil, err
			}
			fmt.Println("workflow: awake, completing")
			return nil, nil
		},
		Queries: map[string]engine.QueryHandler{
			"status": func(ctx *engine.Context, args []*engine.Payload) (*engine.Payload, error) {
				return &engine.Payload{Data: []byte("running")}, nil
			},
		},
	}

	eng := engine.NewEngine(engine.WithRunID("demo-run-1"))
	if err := eng.InitWorkflow(def, engine.WorkflowInfo{
		WorkflowID: "demo-workflow",
		RunID:      "demo-run-1",
		TaskQueue:  "demo-queue",
	}, []byte("demo-seed"), nil, nil); err != nil {
		panic(err)
	}

	drive(eng, &engine.Activation{
		RunID:       "demo-run-1",
		TimestampMS: 0,
		Jobs:        []*engine.Job{{Kind: engine.JobStartWorkflow}},
	})
	drive(eng, &engine.Activation{
		RunID:       "demo-run-1",
		TimestampMS: 100,
		Jobs:        []*engine.Job{{Kind: engine.JobFireTimer, TimerID: "0"}},
	})
}

func drive(eng *engine.Engine, act *engine.Activation) {
	if _, err := eng.Activate(engine.EncodeActivation(act)); err != nil {
		panic(err)
	}
	res := eng.Conclude()
	switch res.Kind {
	case engine.ConcludePending:
		fmt.Printf("host: %d external call(s) pending\n", len(res.PendingExternalCalls))
	case engine.ConcludeComplete:
		_, commands, err := engine.DecodeActivationCompletion(res.Encoded)
		if err != nil {
			panic(err)
		}
		for _, c := range commands {
			fmt.Printf("command: kind=%d timerID=%q activityID=%q\n", c.Kind, c.TimerID, c.ActivityID)
		}
	}
}
