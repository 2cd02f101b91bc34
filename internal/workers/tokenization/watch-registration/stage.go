package watchregistration

import (
	"context"

	"watch-registration/internal/common/errors"
)

// Stage is a state of the registration state machine. Transitions only move
// forward; Submitted and Failed are terminal.
type Stage int

const (
	StageReceived Stage = iota
	StageValidating
	StageValidated
	StageEncoding
	StageEncoded
	StageAttesting
	StageAttested
	StageSubmitting
	StageSubmitted
	StageFailed
)

var stageNames = [...]string{
	StageReceived:   "received",
	StageValidating: "validating",
	StageValidated:  "validated",
	StageEncoding:   "encoding",
	StageEncoded:    "encoded",
	StageAttesting:  "attesting",
	StageAttested:   "attested",
	StageSubmitting: "submitting",
	StageSubmitted:  "submitted",
	StageFailed:     "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageSubmitted || s == StageFailed
}

// StageError is the failure of one invocation. Stage is the state the
// pipeline was in when it failed.
type StageError struct {
	Stage Stage
	Err   *errors.StandardError
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Recorder observes state transitions of an invocation.
type Recorder interface {
	Transition(ctx context.Context, from, to Stage)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, from, to Stage)

func (f RecorderFunc) Transition(ctx context.Context, from, to Stage) {
	f(ctx, from, to)
}

type invocationIDKey struct{}

// WithInvocationID tags ctx with the identifier used in logs and
// notifications for one invocation.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, id)
}

// InvocationID returns the identifier set by WithInvocationID, if any.
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationIDKey{}).(string)
	return id
}
