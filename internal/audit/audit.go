// Package audit writes structured records of transfer decisions —
// who sent what to whom, and how it resolved — separately from the
// ordinary operational log.
package audit

import "log/slog"

// Logger writes transfer audit events under the "audit" slog group.
// Every method is nil-safe: calling it on a nil *Logger is a no-op, so
// callers can wire an audit.Logger optionally without a nil check at
// every call site.
type Logger struct {
	logger *slog.Logger
}

// New creates a Logger that writes to handler.
func New(handler slog.Handler) *Logger {
	return &Logger{logger: slog.New(handler).WithGroup("audit")}
}

// TransferRequested logs an inbound transfer entering pending_consent.
func (a *Logger) TransferRequested(id, peerAlias, fileName string) {
	if a == nil {
		return
	}
	a.logger.Info("transfer_requested", "id", id, "peer", peerAlias, "file", fileName)
}

// TransferResolved logs a transfer reaching a terminal state, in
// either direction.
func (a *Logger) TransferResolved(id, direction, state, reason string) {
	if a == nil {
		return
	}
	a.logger.Info("transfer_resolved", "id", id, "direction", direction, "state", state, "reason", reason)
}

// TextReceived logs an inbound text message, by length rather than
// content — the message body is not audit material.
func (a *Logger) TextReceived(peerAlias string, length int) {
	if a == nil {
		return
	}
	a.logger.Info("text_received", "peer", peerAlias, "length", length)
}

// AliasChanged logs a local identity change.
func (a *Logger) AliasChanged(oldAlias, newAlias string) {
	if a == nil {
		return
	}
	a.logger.Info("alias_changed", "old", oldAlias, "new", newAlias)
}
