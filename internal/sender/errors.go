package sender

import "errors"

var (
	// ErrRejected is returned when the peer's consent gate rejects the
	// transfer (HTTP 403).
	ErrRejected = errors.New("sender: peer rejected the transfer")

	// ErrConsentTimeout is returned when the peer's consent gate never
	// resolves within its 30s window (HTTP 408).
	ErrConsentTimeout = errors.New("sender: peer consent request timed out")

	// ErrCancelled is returned when the transfer's context is
	// cancelled before or during the body transfer.
	ErrCancelled = errors.New("sender: transfer cancelled")
)
