package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/tutor-core/core/cards"
)

// Failure taxonomy. Callers classify with errors.Is; every failure leaving
// this package wraps exactly one of these.
var (
	// ErrHardware marks a denied or absent audio input device. Fatal to
	// Connect; surfaced without retry.
	ErrHardware = errors.New("audio input unavailable")

	// ErrConnectivity marks an unreachable transport or card service.
	// Retrying is the caller's decision, not the orchestrator's.
	ErrConnectivity = errors.New("remote collaborator unreachable")

	// ErrProtocol marks malformed or unexpected tool-call traffic. Logged to
	// the transcript; the session continues.
	ErrProtocol = errors.New("dialogue protocol violation")

	// ErrState marks an operation invoked in a state that does not permit
	// it. The operation aborts without mutating session state.
	ErrState = errors.New("operation invalid in current session state")

	// ErrTimeout marks an exceeded deadline on a transport or card-service
	// call, distinct from the service being unreachable.
	ErrTimeout = errors.New("operation timed out")
)

func classifySourceErr(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	case errors.Is(err, cards.ErrUnreachable):
		return fmt.Errorf("%w: %s: %v", ErrConnectivity, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
