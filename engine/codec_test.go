package engine

import "testing"

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	dc := defaultDataConverter()

	p, err := encodePayload(dc, "hello world")
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}

	var out string
	if err := decodePayload(dc, p, &out); err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q, want %q", out, "hello world")
	}
}

func TestDecodeNilPayloadIsNoop(t *testing.T) {
	dc := defaultDataConverter()
	var out string
	if err := decodePayload(dc, nil, &out); err != nil {
		t.Fatalf("decodePayload(nil): %v", err)
	}
}

func TestDecodePayloadFailureWraps(t *testing.T) {
	dc := defaultDataConverter()
	p, err := encodePayload(dc, "not a number")
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}

	var out int
	err = decodePayload(dc, p, &out)
	if err == nil {
		t.Fatal("expected a decode error decoding a string payload into an int")
	}
	if _, ok := err.(*PayloadDecodeError); !ok {
		t.Fatalf("expected *PayloadDecodeError, got %T: %v", err, err)
	}
}
