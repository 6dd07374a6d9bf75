package engine

import "testing"

type recordingInterceptor struct {
	name string
	log  *[]string
}

func (r recordingInterceptor) Execute(input ExecuteInput, next ExecuteNext) (any, error) {
	*r.log = append(*r.log, r.name+":before")
	v, err := next(input)
	*r.log = append(*r.log, r.name+":after")
	return v, err
}

func TestComposeExecuteRightFold(t *testing.T) {
	var log []string
	chain := &interceptorChain{execute: []Interceptor{
		recordingInterceptor{name: "outer", log: &log},
		recordingInterceptor{name: "inner", log: &log},
	}}

	base := func(input ExecuteInput) (any, error) {
		log = append(log, "base")
		return "result", nil
	}
	run := chain.composeExecute(base)
	v, err := run(ExecuteInput{})
	if err != nil || v != "result" {
		t.Fatalf("run() = (%v, %v), want (result, nil)", v, err)
	}

	want := []string{"outer:before", "inner:before", "base", "inner:after", "outer:after"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestComposeHandleSignalPropagatesError(t *testing.T) {
	chain := &interceptorChain{}
	run := chain.composeHandleSignal(func(HandleSignalInput) error { return errBoom })
	if err := run(HandleSignalInput{}); err != errBoom {
		t.Fatalf("expected errBoom, got %v", err)
	}
}

var errBoom = &UserCodeFailureError{Message: "boom"}
