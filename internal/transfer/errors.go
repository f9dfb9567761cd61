package transfer

import "errors"

var (
	// ErrUnknownTransfer is returned when an operation names a
	// transfer id that does not exist in the registry.
	ErrUnknownTransfer = errors.New("transfer: unknown id")

	// ErrNotPending is returned by Respond when the named transfer
	// is not currently awaiting consent.
	ErrNotPending = errors.New("transfer: not pending consent")

	// ErrAlreadyTerminal is returned by Complete/Fail/Cancel when the
	// named transfer has already reached an absorbing state.
	ErrAlreadyTerminal = errors.New("transfer: already in a terminal state")

	// ErrNotAccepted is returned by BeginStreaming when the named
	// transfer is not currently in the accepted state — already
	// terminal (cancelled or timed out after AwaitConsent returned but
	// before streaming began), or called out of order.
	ErrNotAccepted = errors.New("transfer: not in accepted state")
)
