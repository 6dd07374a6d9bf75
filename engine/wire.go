package engine

import (
	"fmt"

	commonpb "go.temporal.io/api/common/v1"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// The activation and completion envelopes are not themselves generated from
// a .proto schema in this repository, but their length-delimited,
// field-tagged shape is real protobuf wire format: nested Payload values are
// genuine go.temporal.io/api messages marshaled with proto.Marshal, and the
// enclosing envelope is hand-assembled with protowire, the same low-level
// primitives generated code itself bottoms out in. Field numbers below are
// this module's own schema.

const (
	fieldActivationRunID       protowire.Number = 1
	fieldActivationTimestampMS protowire.Number = 2
	fieldActivationIsReplaying protowire.Number = 3
	fieldActivationJobs        protowire.Number = 4

	fieldJobKind           protowire.Number = 1
	fieldJobHeaderKeys     protowire.Number = 2
	fieldJobHeaderValues   protowire.Number = 3
	fieldJobArguments      protowire.Number = 4
	fieldJobTimerID        protowire.Number = 5
	fieldJobActivityID     protowire.Number = 6
	fieldJobActivityResult protowire.Number = 7
	fieldJobQueryID        protowire.Number = 8
	fieldJobQueryType      protowire.Number = 9
	fieldJobQueryArgs      protowire.Number = 10
	fieldJobSignalName     protowire.Number = 11
	fieldJobSignalInput    protowire.Number = 12
	fieldJobRandomSeed     protowire.Number = 13

	fieldActivityResKind    protowire.Number = 1
	fieldActivityResResult  protowire.Number = 2
	fieldActivityResFailure protowire.Number = 3

	fieldCompletionRunID    protowire.Number = 1
	fieldCompletionCommands protowire.Number = 2

	fieldCommandKind             protowire.Number = 1
	fieldCommandTimerID          protowire.Number = 2
	fieldCommandTimeoutMS        protowire.Number = 3
	fieldCommandActivityID       protowire.Number = 4
	fieldCommandActivityTyp      protowire.Number = 5
	fieldCommandInput            protowire.Number = 6
	fieldCommandQueryID          protowire.Number = 7
	fieldCommandResult           protowire.Number = 8
	fieldCommandMessage          protowire.Number = 9
	fieldCommandFailureMsg       protowire.Number = 10
	fieldCommandCompletionResult protowire.Number = 11
)

// JobKind enumerates the oneof variants of an activation job.
type JobKind int

const (
	JobStartWorkflow JobKind = iota
	JobCancelWorkflow
	JobFireTimer
	JobResolveActivity
	JobQueryWorkflow
	JobSignalWorkflow
	JobUpdateRandomSeed
	JobRemoveFromCache
)

// ActivityResolutionKind discriminates the outcome of a resolveActivity job.
type ActivityResolutionKind int

const (
	ActivityCompleted ActivityResolutionKind = iota
	ActivityFailed
	ActivityCanceled
)

// ActivityResolution carries the outcome payload of a resolveActivity job.
type ActivityResolution struct {
	Kind           ActivityResolutionKind
	Result         *Payload
	FailureMessage string
}

// Job is a single decoded activation job.
type Job struct {
	Kind JobKind

	HeaderKeys   []string
	HeaderValues []*Payload
	Arguments    []*Payload

	TimerID string

	ActivityID string
	ActResult  *ActivityResolution

	QueryID   string
	QueryType string
	QueryArgs []*Payload

	SignalName  string
	SignalInput []*Payload

	RandomnessSeed []byte
}

// Activation is the decoded form of the length-delimited WFActivation the
// host delivers.
type Activation struct {
	RunID       string
	TimestampMS int64
	IsReplaying bool
	Jobs        []*Job
}

// EncodeActivation serializes a (RunID, timestamp, jobs) tuple the way a
// test harness or replay fixture would produce one. Hosts normally send
// activations; the engine only needs to decode them, but encoding is kept
// symmetric so fixtures and property tests can round-trip.
func EncodeActivation(a *Activation) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldActivationRunID, protowire.BytesType)
	b = protowire.AppendString(b, a.RunID)
	b = protowire.AppendTag(b, fieldActivationTimestampMS, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.TimestampMS))
	b = protowire.AppendTag(b, fieldActivationIsReplaying, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(a.IsReplaying))
	for _, j := range a.Jobs {
		jb := encodeJob(j)
		b = protowire.AppendTag(b, fieldActivationJobs, protowire.BytesType)
		b = protowire.AppendBytes(b, jb)
	}
	return b
}

// DecodeActivation parses a length-delimited activation payload.
func DecodeActivation(data []byte) (*Activation, error) {
	a := &Activation{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldActivationRunID && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			a.RunID = s
			data = data[m:]
		case num == fieldActivationTimestampMS && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			a.TimestampMS = int64(v)
			data = data[m:]
		case num == fieldActivationIsReplaying && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			a.IsReplaying = v != 0
			data = data[m:]
		case num == fieldActivationJobs && typ == protowire.BytesType:
			jb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			job, err := decodeJob(jb)
			if err != nil {
				return nil, err
			}
			a.Jobs = append(a.Jobs, job)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return a, nil
}

func encodeJob(j *Job) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldJobKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(j.Kind))
	for _, k := range j.HeaderKeys {
		b = protowire.AppendTag(b, fieldJobHeaderKeys, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, p := range j.HeaderValues {
		pb := mustMarshalPayload(p)
		b = protowire.AppendTag(b, fieldJobHeaderValues, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	for _, p := range j.Arguments {
		pb := mustMarshalPayload(p)
		b = protowire.AppendTag(b, fieldJobArguments, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if j.TimerID != "" {
		b = protowire.AppendTag(b, fieldJobTimerID, protowire.BytesType)
		b = protowire.AppendString(b, j.TimerID)
	}
	if j.ActivityID != "" {
		b = protowire.AppendTag(b, fieldJobActivityID, protowire.BytesType)
		b = protowire.AppendString(b, j.ActivityID)
	}
	if j.ActResult != nil {
		rb := encodeActivityResolution(j.ActResult)
		b = protowire.AppendTag(b, fieldJobActivityResult, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}
	if j.QueryID != "" {
		b = protowire.AppendTag(b, fieldJobQueryID, protowire.BytesType)
		b = protowire.AppendString(b, j.QueryID)
	}
	if j.QueryType != "" {
		b = protowire.AppendTag(b, fieldJobQueryType, protowire.BytesType)
		b = protowire.AppendString(b, j.QueryType)
	}
	for _, p := range j.QueryArgs {
		pb := mustMarshalPayload(p)
		b = protowire.AppendTag(b, fieldJobQueryArgs, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if j.SignalName != "" {
		b = protowire.AppendTag(b, fieldJobSignalName, protowire.BytesType)
		b = protowire.AppendString(b, j.SignalName)
	}
	for _, p := range j.SignalInput {
		pb := mustMarshalPayload(p)
		b = protowire.AppendTag(b, fieldJobSignalInput, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if len(j.RandomnessSeed) > 0 {
		b = protowire.AppendTag(b, fieldJobRandomSeed, protowire.BytesType)
		b = protowire.AppendBytes(b, j.RandomnessSeed)
	}
	return b
}

func decodeJob(data []byte) (*Job, error) {
	j := &Job{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldJobKind:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.Kind = JobKind(v)
			data = data[m:]
		case fieldJobHeaderKeys:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.HeaderKeys = append(j.HeaderKeys, s)
			data = data[m:]
		case fieldJobHeaderValues:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			j.HeaderValues = append(j.HeaderValues, p)
			data = data[m:]
		case fieldJobArguments:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			j.Arguments = append(j.Arguments, p)
			data = data[m:]
		case fieldJobTimerID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.TimerID = s
			data = data[m:]
		case fieldJobActivityID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.ActivityID = s
			data = data[m:]
		case fieldJobActivityResult:
			rb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			res, err := decodeActivityResolution(rb)
			if err != nil {
				return nil, err
			}
			j.ActResult = res
			data = data[m:]
		case fieldJobQueryID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.QueryID = s
			data = data[m:]
		case fieldJobQueryType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.QueryType = s
			data = data[m:]
		case fieldJobQueryArgs:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			j.QueryArgs = append(j.QueryArgs, p)
			data = data[m:]
		case fieldJobSignalName:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.SignalName = s
			data = data[m:]
		case fieldJobSignalInput:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			j.SignalInput = append(j.SignalInput, p)
			data = data[m:]
		case fieldJobRandomSeed:
			bs, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			j.RandomnessSeed = append([]byte(nil), bs...)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return j, nil
}

func encodeActivityResolution(r *ActivityResolution) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldActivityResKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Kind))
	if r.Result != nil {
		pb := mustMarshalPayload(r.Result)
		b = protowire.AppendTag(b, fieldActivityResResult, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if r.FailureMessage != "" {
		b = protowire.AppendTag(b, fieldActivityResFailure, protowire.BytesType)
		b = protowire.AppendString(b, r.FailureMessage)
	}
	return b
}

func decodeActivityResolution(data []byte) (*ActivityResolution, error) {
	r := &ActivityResolution{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldActivityResKind:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			r.Kind = ActivityResolutionKind(v)
			data = data[m:]
		case fieldActivityResResult:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			r.Result = p
			data = data[m:]
		case fieldActivityResFailure:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			r.FailureMessage = s
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return r, nil
}

// EncodeActivationCompletion serializes the successful-case completion
// message drained from the command buffer. Failures during activation
// processing are re-raised to the host, never encoded here.
func EncodeActivationCompletion(runID string, commands []Command) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCompletionRunID, protowire.BytesType)
	b = protowire.AppendString(b, runID)
	for _, c := range commands {
		cb := encodeCommand(c)
		b = protowire.AppendTag(b, fieldCompletionCommands, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	return b
}

// DecodeActivationCompletion parses a length-delimited WFActivationCompletion
// back into its run id and command list. The core itself never needs to
// decode its own output, but replay-safety tests and fixture tooling
// compare completions structurally rather than byte-for-byte, so the
// decoder is kept symmetric with EncodeActivationCompletion.
func DecodeActivationCompletion(data []byte) (string, []Command, error) {
	var runID string
	var commands []Command
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldCompletionRunID && typ == protowire.BytesType:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return "", nil, protowire.ParseError(m)
			}
			runID = s
			data = data[m:]
		case num == fieldCompletionCommands && typ == protowire.BytesType:
			cb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return "", nil, protowire.ParseError(m)
			}
			c, err := decodeCommand(cb)
			if err != nil {
				return "", nil, err
			}
			commands = append(commands, *c)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return "", nil, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return runID, commands, nil
}

func decodeCommand(data []byte) (*Command, error) {
	c := &Command{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldCommandKind:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.Kind = CommandKind(v)
			data = data[m:]
		case fieldCommandTimerID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.TimerID = s
			data = data[m:]
		case fieldCommandTimeoutMS:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.StartToFireTimeoutMS = int64(v)
			data = data[m:]
		case fieldCommandActivityID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.ActivityID = s
			data = data[m:]
		case fieldCommandActivityTyp:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.ActivityType = s
			data = data[m:]
		case fieldCommandInput:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			c.Input = p
			data = data[m:]
		case fieldCommandQueryID:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.QueryID = s
			data = data[m:]
		case fieldCommandResult:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			c.Result = p
			data = data[m:]
		case fieldCommandMessage:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.Message = s
			data = data[m:]
		case fieldCommandFailureMsg:
			s, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			c.Failure = &Failure{Message: s}
			data = data[m:]
		case fieldCommandCompletionResult:
			pb, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p, err := unmarshalPayload(pb)
			if err != nil {
				return nil, err
			}
			c.CompletionResult = p
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return c, nil
}

func encodeCommand(c Command) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldCommandKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Kind))
	if c.TimerID != "" {
		b = protowire.AppendTag(b, fieldCommandTimerID, protowire.BytesType)
		b = protowire.AppendString(b, c.TimerID)
	}
	if c.StartToFireTimeoutMS != 0 {
		b = protowire.AppendTag(b, fieldCommandTimeoutMS, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.StartToFireTimeoutMS))
	}
	if c.ActivityID != "" {
		b = protowire.AppendTag(b, fieldCommandActivityID, protowire.BytesType)
		b = protowire.AppendString(b, c.ActivityID)
	}
	if c.ActivityType != "" {
		b = protowire.AppendTag(b, fieldCommandActivityTyp, protowire.BytesType)
		b = protowire.AppendString(b, c.ActivityType)
	}
	if c.Input != nil {
		pb := mustMarshalPayload(c.Input)
		b = protowire.AppendTag(b, fieldCommandInput, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if c.QueryID != "" {
		b = protowire.AppendTag(b, fieldCommandQueryID, protowire.BytesType)
		b = protowire.AppendString(b, c.QueryID)
	}
	if c.Result != nil {
		pb := mustMarshalPayload(c.Result)
		b = protowire.AppendTag(b, fieldCommandResult, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if c.Message != "" {
		b = protowire.AppendTag(b, fieldCommandMessage, protowire.BytesType)
		b = protowire.AppendString(b, c.Message)
	}
	if c.Failure != nil && c.Failure.Message != "" {
		b = protowire.AppendTag(b, fieldCommandFailureMsg, protowire.BytesType)
		b = protowire.AppendString(b, c.Failure.Message)
	}
	if c.CompletionResult != nil {
		pb := mustMarshalPayload(c.CompletionResult)
		b = protowire.AppendTag(b, fieldCommandCompletionResult, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	return b
}

func mustMarshalPayload(p *Payload) []byte {
	b, err := proto.Marshal(p)
	if err != nil {
		// Payload is a plain generated message with no custom validation;
		// a marshal failure here means the process is out of memory or the
		// message was built with reflection-hostile fields, neither of
		// which this engine ever constructs.
		panic(fmt.Sprintf("workflowcore: marshal payload: %v", err))
	}
	return b
}

func unmarshalPayload(data []byte) (*Payload, error) {
	p := &commonpb.Payload{}
	if err := proto.Unmarshal(data, p); err != nil {
		return nil, &PayloadDecodeError{Cause: err}
	}
	return p, nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
