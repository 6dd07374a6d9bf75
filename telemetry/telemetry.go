// Package telemetry defines the logging, metrics, and tracing surfaces the
// workflow execution core uses to report on its own activity. The core
// itself performs no I/O, but it emits structured observability events for
// every activation and for workflow and signal-handler failures so a host
// process can wire them into its own stack.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log lines scoped to a workflow run. Implementations
	// must be safe to call from the single engine goroutine; the core never logs
	// concurrently for a given run.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges describing engine behavior.
	// The engine records a scope-tree-size gauge and an activations-processed
	// counter.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer creates spans bracketing activation processing (one span per
	// Engine.Activate call; Conclude opens none).
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	}

	// Span is a single unit of traced work.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}
)
