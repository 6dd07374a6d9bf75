package engine

import (
	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
)

// Payload is the engine's wire envelope for values crossing the activation
// boundary (workflow arguments, activity/timer results, query
// arguments/responses). It is exactly Temporal's own Payload message
// ({Metadata, Data}), so a host that already speaks the Temporal wire
// protocol can forward these without re-encoding.
type Payload = commonpb.Payload

// DataConverter is the pluggable codec: ToPayload(value) and
// FromPayload(payload) must round-trip primitive types, byte arrays, and
// plain records deterministically. It is exactly converter.DataConverter so
// a host may plug in any Temporal-compatible converter (custom compression,
// encryption, or schema codecs) without the engine needing to know about it.
type DataConverter = converter.DataConverter

// defaultDataConverter returns the engine's default codec: Temporal's
// composite JSON converter, which already handles nil, raw bytes, proto
// messages, and arbitrary JSON-marshalable records.
func defaultDataConverter() DataConverter {
	return converter.GetDefaultDataConverter()
}

// encodePayload converts a single Go value to a Payload using dc. A nil
// value encodes to a nil-marker payload, matching the default converter's
// NilPayloadConverter handling.
func encodePayload(dc DataConverter, value any) (*Payload, error) {
	return dc.ToPayload(value)
}

// decodePayload decodes payload into a freshly allocated value of the type
// that out points to. Any decode failure is wrapped as PayloadDecodeError —
// a dedicated sentinel, never conflated with a legitimately decoded zero
// value.
func decodePayload(dc DataConverter, payload *Payload, out any) error {
	if payload == nil {
		return nil
	}
	if err := dc.FromPayload(payload, out); err != nil {
		return &PayloadDecodeError{Cause: err}
	}
	return nil
}
