package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrJobTerminal        = errors.New("job already terminal")
)

// FailureKind is the taxonomy every pipeline failure is classified into at
// the stage boundary. The worker pool never observes anything else.
type FailureKind string

const (
	// FailureTransient covers network faults, timeouts and provider rate
	// limits; it is the only kind that consumes retry budget.
	FailureTransient FailureKind = "transient"
	// FailurePermanentInput covers corrupt assets and unsupported
	// formats; dead-lettered immediately.
	FailurePermanentInput FailureKind = "permanent_invalid_input"
	// FailureConfiguration covers admin data gaps such as a missing rule
	// weight; dead-lettered immediately and surfaced as an operator alert.
	FailureConfiguration FailureKind = "configuration"
	// FailureAuth covers rejected provider credentials; it triggers
	// provider fallback and is treated as transient at the outermost level.
	FailureAuth FailureKind = "auth"
	// FailureCancelled is terminal and not an error in the alerting sense.
	FailureCancelled FailureKind = "cancelled"
)

// Retryable reports whether the kind may consume retry budget.
func (k FailureKind) Retryable() bool {
	return k == FailureTransient || k == FailureAuth
}

// Failure wraps a stage-local error with its classified kind. Raw backend
// errors never travel past the boundary that built the Failure.
type Failure struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s failure", f.Stage, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure classifies err as kind for the named stage.
func NewFailure(kind FailureKind, stage string, err error) *Failure {
	return &Failure{Kind: kind, Stage: stage, Err: err}
}

// AsFailure extracts a classified failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// ClassifyError returns the failure kind of err, defaulting unclassified
// errors to transient. Context expiry is always transient: a bounded call
// that ran out of time may succeed on a later attempt.
func ClassifyError(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransient
	}
	return FailureTransient
}
