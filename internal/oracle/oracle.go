// Package oracle wraps the external reasoning service behind a single
// inference capability and adapts its untrusted output for the engine.
package oracle

import (
	"context"
	"fmt"
)

// Kind selects what the oracle is asked to produce.
type Kind string

const (
	// KindWeights asks for raw aspect weights plus reasoning.
	KindWeights Kind = "weights"
	// KindExplanation asks for a narrative over a ranked shortlist.
	KindExplanation Kind = "explanation"
)

// Input is the named context rendered into the prompt for a Kind.
type Input map[string]string

// Output is the decoded JSON object returned by the oracle. Its content is
// untrusted and must be coerced by the caller.
type Output map[string]any

// Oracle is the engine's only non-deterministic dependency.
type Oracle interface {
	Infer(ctx context.Context, kind Kind, input Input) (Output, error)
}

// UnavailableError reports a failed or timed-out oracle call.
type UnavailableError struct {
	Kind  Kind
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("oracle unavailable for %s: %v", e.Kind, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// MalformedOutputError reports a response with the wrong shape.
type MalformedOutputError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *MalformedOutputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s output: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed %s output: %s", e.Kind, e.Message)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Cause
}
