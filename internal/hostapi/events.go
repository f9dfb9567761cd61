package hostapi

import (
	"time"

	"github.com/localshare/localshare/internal/discovery"
	"github.com/localshare/localshare/internal/transfer"
)

// Kind names one of the core-to-host event stream's event types.
type Kind string

const (
	EventPeersUpdate          Kind = "peers-update"
	EventFileTransferRequest  Kind = Kind(transfer.EventFileTransferRequest)
	EventFileTransferRejected Kind = Kind(transfer.EventFileTransferRejected)
	EventFileTransferTimeout  Kind = Kind(transfer.EventFileTransferTimeout)
	EventFileReceiveStart     Kind = Kind(transfer.EventFileReceiveStart)
	EventTransferProgress     Kind = "transfer-progress"
	EventFileReceiveComplete  Kind = Kind(transfer.EventFileReceiveComplete)
	EventFileReceiveError     Kind = "file-receive-error"
	EventFileSendError        Kind = "file-send-error"
	EventMessageReceived      Kind = "message-received"
	EventAliasChanged         Kind = "alias-changed"

	// EventTransferCompleted and EventTransferCancelled cover outcomes
	// the wire-protocol event list does not name (it only names the
	// inbound-facing file-receive-complete): a completed outbound
	// transfer, and a cancelled transfer in either direction; kept
	// distinct so a host surface can still tell those apart. Text
	// messages never produce either, since they bypass the transfer
	// state machine.
	EventTransferCompleted Kind = "transfer-completed"
	EventTransferCancelled Kind = "transfer-cancelled"
)

// translateKind maps a transfer lifecycle event onto the external
// event name spec.md's error-handling design assigns it: outbound
// failures are file-send-error, inbound ones file-receive-error. The
// Coordinator's generic Fail/FailOutbound paths carry that distinction
// in the transfer's Direction, not in EventKind itself, so it is
// resolved here.
func translateKind(e transfer.Event) Kind {
	switch e.Kind {
	case transfer.EventTransferFailed, transfer.EventFileSendError:
		if e.Transfer.Direction == transfer.Outbound {
			return EventFileSendError
		}
		return EventFileReceiveError
	case transfer.EventFileReceiveStart:
		return EventFileReceiveStart
	case transfer.EventFileReceiveComplete:
		return EventFileReceiveComplete
	case transfer.EventFileTransferRequest:
		return EventFileTransferRequest
	case transfer.EventFileTransferRejected:
		return EventFileTransferRejected
	case transfer.EventFileTransferTimeout:
		return EventFileTransferTimeout
	case transfer.EventTransferCompleted:
		return EventTransferCompleted
	case transfer.EventTransferCancelled:
		return EventTransferCancelled
	default:
		return Kind(e.Kind)
	}
}

// Event is one notification on the merged core-to-host stream. Exactly
// one payload field is populated, matching Kind.
type Event struct {
	Kind Kind
	At   time.Time

	Peers    []discovery.Peer
	Transfer *transfer.Transfer
	Progress *transfer.Progress
	Text     *transfer.ReceivedText
	Alias    string
}
