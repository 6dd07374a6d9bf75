package engine

import (
	"errors"
	"fmt"
)

// The core recognizes four error kinds. DeterminismViolation and
// IllegalState are fatal to the run and are never caught inside the core;
// Cancellation is recoverable by user code; UserCodeFailure is converted to
// a wire failure and never propagates past the activation boundary.

type (
	// CancellationSource attributes a Cancellation error to its trigger.
	CancellationSource string

	// DeterminismViolationError reports that user code attempted a
	// non-deterministic operation (direct wall-clock access, weak
	// references, ...). Fatal; surfaced to the host.
	DeterminismViolationError struct {
		Operation string
	}

	// IllegalStateError reports that an engine invariant was violated:
	// a completion referenced an unknown sequence number, a continuation
	// suspended with no owning scope on the stack, an activation arrived
	// before init, or removeFromCache reached the in-sandbox core. Fatal.
	IllegalStateError struct {
		Reason string
	}

	// CancellationError reports that a scope was cancelled. It carries
	// source attribution and propagates through the scope tree; user code
	// may catch it.
	CancellationError struct {
		Source CancellationSource
	}

	// UserCodeFailureError wraps any error raised from workflow, signal, or
	// query handler code. It is converted to a wire failure message and
	// never escapes the activation boundary.
	UserCodeFailureError struct {
		Message string
		Cause   error
	}

	// PayloadDecodeError reports that decodePayload could not decode a
	// payload into the requested Go type. It is a dedicated sentinel,
	// distinct from "payload decoded to a legitimate zero value" (Open
	// Question (a)).
	PayloadDecodeError struct {
		Cause error
	}
)

const (
	// CancellationSourceInternal marks a cancellation requested by user
	// code via a scope's requestCancel.
	CancellationSourceInternal CancellationSource = "internal"
	// CancellationSourceExternal marks a cancellation driven by an
	// external cancelWorkflow job reaching the root scope.
	CancellationSourceExternal CancellationSource = "external"
)

var (
	// ErrDeterminismViolation matches all DeterminismViolationError instances.
	ErrDeterminismViolation = errors.New("determinism violation")
	// ErrIllegalState matches all IllegalStateError instances.
	ErrIllegalState = errors.New("illegal engine state")
	// ErrCancellation matches all CancellationError instances.
	ErrCancellation = errors.New("scope cancelled")
	// ErrPayloadDecode matches all PayloadDecodeError instances.
	ErrPayloadDecode = errors.New("payload decode failure")
)

func (e *DeterminismViolationError) Error() string {
	return fmt.Sprintf("determinism violation: %s", e.Operation)
}
func (e *DeterminismViolationError) Is(target error) bool { return target == ErrDeterminismViolation }

func (e *IllegalStateError) Error() string { return fmt.Sprintf("illegal state: %s", e.Reason) }
func (e *IllegalStateError) Is(target error) bool { return target == ErrIllegalState }

func (e *CancellationError) Error() string { return fmt.Sprintf("cancelled (source=%s)", e.Source) }
func (e *CancellationError) Is(target error) bool { return target == ErrCancellation }

func (e *UserCodeFailureError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "user code failure"
}
func (e *UserCodeFailureError) Unwrap() error { return e.Cause }

func (e *PayloadDecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("payload decode failure: %v", e.Cause)
	}
	return "payload decode failure"
}
func (e *PayloadDecodeError) Unwrap() error     { return e.Cause }
func (e *PayloadDecodeError) Is(target error) bool { return target == ErrPayloadDecode }

// errorToUserCodeFailure converts an arbitrary error raised from workflow or
// signal handler code into a serializable failure.
func errorToUserCodeFailure(err error) *UserCodeFailureError {
	if err == nil {
		return nil
	}
	var uf *UserCodeFailureError
	if errors.As(err, &uf) {
		return uf
	}
	return &UserCodeFailureError{Message: err.Error(), Cause: err}
}

// isSameCancellation reports whether err is the exact CancellationError
// instance associated with a completeCancel call, used by the
// resolveActivity(canceled) handler to decide whether to swallow a re-thrown
// cancellation versus propagate a different failure.
func isSameCancellation(err error, want *CancellationError) bool {
	if want == nil {
		return false
	}
	var ce *CancellationError
	if !errors.As(err, &ce) {
		return false
	}
	return ce == want
}
