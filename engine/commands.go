package engine

import commonpb "go.temporal.io/api/common/v1"

// CommandKind enumerates the outbound command variants the engine can
// produce during an activation.
type CommandKind int

const (
	CommandStartTimer CommandKind = iota
	CommandCancelTimer
	CommandScheduleActivity
	CommandCancelActivity
	CommandRespondToQuerySucceeded
	CommandRespondToQueryFailed
	CommandCompleteWorkflowExecution
	CommandFailWorkflowExecution
)

// Command is a single outbound instruction produced by user code during an
// activation, drained by conclude into the activation completion.
type Command struct {
	Kind CommandKind

	// StartTimer / CancelTimer
	TimerID               string
	StartToFireTimeoutMS  int64

	// ScheduleActivity / CancelActivity
	ActivityID   string
	ActivityType string
	Input        *commonpb.Payload

	// RespondToQuery
	QueryID string
	Result  *commonpb.Payload
	Message string

	// CompleteWorkflowExecution
	CompletionResult *commonpb.Payload

	// FailWorkflowExecution
	Failure *Failure
}

// Failure is the serializable representation of a workflow- or
// activity-ending error.
type Failure struct {
	Message string
}

// commandBuffer is the ordered sequence of outbound commands produced during
// the current activation; drained on conclude.
type commandBuffer struct {
	commands []Command
}

func (b *commandBuffer) push(c Command) { b.commands = append(b.commands, c) }

func (b *commandBuffer) drain() []Command {
	out := b.commands
	b.commands = nil
	return out
}

func (b *commandBuffer) len() int { return len(b.commands) }
