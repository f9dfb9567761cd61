// Package transfer implements the per-transfer state machine: consent
// gating, progress tracking, cancellation, and the bounded registry
// that backs a UI's transfer list.
package transfer

import (
	"sync"
	"time"
)

// Direction distinguishes a transfer this node is receiving from one
// it is sending.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Kind distinguishes a file transfer from a short text message.
type Kind int

const (
	KindFile Kind = iota
	KindText
)

// State is a node in the transfer state machine. Terminal states are
// absorbing: once reached, no further transition is accepted.
type State int

const (
	PendingConsent State = iota
	Accepted
	Streaming
	Completed
	Rejected
	TimedOut
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case PendingConsent:
		return "pending_consent"
	case Accepted:
		return "accepted"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is one of the absorbing states.
func (s State) IsTerminal() bool {
	switch s {
	case Completed, Rejected, TimedOut, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// PeerRef identifies the remote endpoint of a transfer.
type PeerRef struct {
	Address string
	Port    int
	Alias   string
}

// Meta describes a transfer at registration time, before a Transfer
// record exists.
type Meta struct {
	Peer          PeerRef
	Kind          Kind
	FileName      string // sanitised
	DeclaredSize  int64  // 0 means unknown
	ContentType   string
}

// Transfer is the central in-memory record for one inbound or outbound
// exchange.
type Transfer struct {
	ID        string
	Direction Direction
	Peer      PeerRef
	Kind      Kind

	FileName     string
	DeclaredSize int64
	ContentType  string

	State State

	BytesTransferred int64

	TempPath  string
	FinalPath string

	CreatedAt       time.Time
	StateChangedAt  time.Time

	FailReason string

	gate *consentGate

	lastProgressAt    time.Time
	lastProgressBytes int64

	// mu guards this transfer's mutable fields against a concurrent
	// Snapshot. A pointer, not an embedded sync.Mutex, so that
	// Snapshot's value copy never duplicates live lock state.
	mu *sync.Mutex
}

// Snapshot returns a value copy of t safe to hand to a reader that
// does not hold the registry lock. Guarded by t's own mutex so it
// never observes a torn write from a concurrent state transition.
func (t *Transfer) Snapshot() Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *t
	cp.gate = nil
	return cp
}
