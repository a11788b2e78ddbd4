package ai

import "fmt"

// Stage identifies where a completion request failed.
type Stage string

const (
	// StageRemote covers transport errors and non-success provider statuses.
	StageRemote Stage = "remote"
	// StageEnvelope covers structurally valid responses with no usable content.
	StageEnvelope Stage = "envelope"
)

// CompletionError is the single failure type returned by the Client. The
// wrapped diagnostic stays in logs; callers receive a generic message.
type CompletionError struct {
	Stage Stage
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion %s failure: %v", e.Stage, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
