package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// consentTimeout is how long an inbound transfer waits in
// pending_consent before it times out.
const consentTimeout = 30 * time.Second

const (
	progressThrottleInterval = 250 * time.Millisecond
	progressThrottleBytes    = 1 << 20 // 1 MiB
)

// Coordinator is the single long-lived owner of every transfer this
// node knows about: it brokers consent, tracks progress, and fans
// lifecycle events out to subscribers.
type Coordinator struct {
	registry *Registry
	bus      *bus

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	ctxs    map[string]context.Context
}

// NewCoordinator constructs an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		registry: newRegistry(),
		bus:      newBus(),
		cancels:  make(map[string]context.CancelFunc),
		ctxs:     make(map[string]context.Context),
	}
}

// RegisterInbound inserts a new transfer in pending_consent and
// returns its id plus a context scoped to the transfer's lifetime —
// cancelled when Cancel(id) is called, or once the transfer reaches
// any terminal state.
func (c *Coordinator) RegisterInbound(parent context.Context, meta Meta) (string, context.Context) {
	id := uuid.New().String()
	tctx, cancel := context.WithCancel(parent)

	now := time.Now()
	t := &Transfer{
		ID:             id,
		Direction:      Inbound,
		Peer:           meta.Peer,
		Kind:           meta.Kind,
		FileName:       meta.FileName,
		DeclaredSize:   meta.DeclaredSize,
		ContentType:    meta.ContentType,
		State:          PendingConsent,
		CreatedAt:      now,
		StateChangedAt: now,
		gate:           newConsentGate(),
		mu:             &sync.Mutex{},
	}
	c.registry.insert(t)

	c.mu.Lock()
	c.cancels[id] = cancel
	c.ctxs[id] = tctx
	c.mu.Unlock()

	c.bus.publishEvent(Event{Kind: EventFileTransferRequest, ID: id, At: now, Transfer: t.Snapshot()})
	return id, tctx
}

// RegisterOutbound inserts a new transfer directly in streaming: an
// outbound transfer has no local consent gate, since the remote
// node's Ingest Server is the one gating the write.
func (c *Coordinator) RegisterOutbound(parent context.Context, meta Meta) (string, context.Context) {
	id := uuid.New().String()
	tctx, cancel := context.WithCancel(parent)

	now := time.Now()
	t := &Transfer{
		ID:             id,
		Direction:      Outbound,
		Peer:           meta.Peer,
		Kind:           meta.Kind,
		FileName:       meta.FileName,
		DeclaredSize:   meta.DeclaredSize,
		ContentType:    meta.ContentType,
		State:          Streaming,
		CreatedAt:      now,
		StateChangedAt: now,
		mu:             &sync.Mutex{},
	}
	c.registry.insert(t)

	c.mu.Lock()
	c.cancels[id] = cancel
	c.ctxs[id] = tctx
	c.mu.Unlock()

	return id, tctx
}

// AwaitConsent blocks until the transfer's consent gate is signalled,
// a 30s timeout elapses, or ctx is cancelled. It must be called at
// most once per id. The transfer's state is updated in place before
// returning.
func (c *Coordinator) AwaitConsent(ctx context.Context, id string) (State, error) {
	t, ok := c.registry.get(id)
	if !ok {
		return 0, ErrUnknownTransfer
	}
	if t.gate == nil {
		return 0, ErrNotPending
	}

	timer := time.NewTimer(consentTimeout)
	defer timer.Stop()

	select {
	case accepted := <-t.gate.ch:
		if accepted {
			c.transition(t, Accepted)
			return Accepted, nil
		}
		c.transitionTerminal(t, Rejected, EventFileTransferRejected)
		return Rejected, nil

	case <-timer.C:
		c.transitionTerminal(t, TimedOut, EventFileTransferTimeout)
		return TimedOut, nil

	case <-ctx.Done():
		c.transitionTerminal(t, Cancelled, EventTransferCancelled)
		return Cancelled, ctx.Err()
	}
}

// BeginStreaming transitions an accepted inbound transfer into
// streaming and records tempPath as the transfer's temp_path, per the
// invariant that only a transfer in streaming owns one. Must be called
// after AwaitConsent returns Accepted and before any file bytes are
// written, so a subscriber's file-receive-start always precedes its
// transfer-progress events for the same id.
func (c *Coordinator) BeginStreaming(id string, tempPath string) error {
	t, err := c.lookup(id)
	if err == ErrAlreadyTerminal {
		return ErrNotAccepted
	}
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.State != Accepted {
		t.mu.Unlock()
		return ErrNotAccepted
	}
	t.TempPath = tempPath
	t.State = Streaming
	t.StateChangedAt = time.Now()
	changedAt := t.StateChangedAt
	t.mu.Unlock()

	c.bus.publishEvent(Event{Kind: EventFileReceiveStart, ID: id, At: changedAt, Transfer: t.Snapshot()})
	return nil
}

// Respond records the user's accept/reject decision for a pending
// inbound transfer. If no one is awaiting consent yet, the decision is
// held (the gate's channel is buffered by one) until AwaitConsent is
// called. Returns ErrNotPending if id names a transfer with no active
// consent gate — unknown, outbound, or already resolved.
func (c *Coordinator) Respond(id string, accepted bool) error {
	t, ok := c.registry.get(id)
	if !ok || t.gate == nil {
		return ErrNotPending
	}
	t.mu.Lock()
	pending := t.State == PendingConsent
	t.mu.Unlock()
	if !pending {
		return ErrNotPending
	}
	t.gate.respond(accepted)
	return nil
}

// NoteProgress updates the transferred-bytes counter and, if enough
// time or data has passed since the last emission, publishes a
// transfer-progress event. Updates that would move the counter
// backwards are ignored — it is defined as monotonically
// non-decreasing.
func (c *Coordinator) NoteProgress(id string, bytesTransferred int64) {
	t, ok := c.registry.get(id)
	if !ok {
		return
	}

	t.mu.Lock()
	if bytesTransferred < t.BytesTransferred {
		t.mu.Unlock()
		return
	}
	t.BytesTransferred = bytesTransferred

	now := time.Now()
	due := now.Sub(t.lastProgressAt) >= progressThrottleInterval
	due = due || bytesTransferred-t.lastProgressBytes >= progressThrottleBytes
	if !due {
		t.mu.Unlock()
		return
	}
	t.lastProgressAt = now
	t.lastProgressBytes = bytesTransferred
	declaredSize := t.DeclaredSize
	t.mu.Unlock()

	c.bus.publishProgress(Progress{
		ID:               id,
		BytesTransferred: bytesTransferred,
		DeclaredSize:     declaredSize,
	})
}

// Complete moves a transfer to the completed state. finalPath is
// recorded only for file transfers; it is the empty string for text.
func (c *Coordinator) Complete(id string, finalPath string) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.State.IsTerminal() {
		t.mu.Unlock()
		return ErrAlreadyTerminal
	}
	t.FinalPath = finalPath
	t.mu.Unlock()

	kind := EventTransferCompleted
	if t.Direction == Inbound && t.Kind == KindFile {
		kind = EventFileReceiveComplete
	}
	c.transitionTerminal(t, Completed, kind)
	return nil
}

// Fail moves a transfer to the failed state, recording reason for
// diagnostics and event payloads.
func (c *Coordinator) Fail(id string, reason string) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.State.IsTerminal() {
		t.mu.Unlock()
		return ErrAlreadyTerminal
	}
	t.FailReason = reason
	t.mu.Unlock()

	c.transitionTerminal(t, Failed, EventTransferFailed)
	return nil
}

// FailOutbound moves an outbound transfer to whichever terminal state
// reflects the remote Ingest Server's response — Rejected for a 403,
// TimedOut for a 408, Failed for a network error — so the Outbound
// Sender can report the same granularity of outcome the spec assigns
// to inbound consent handling, for a direction that has no local
// consent gate of its own.
func (c *Coordinator) FailOutbound(id string, state State, reason string) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.State.IsTerminal() {
		t.mu.Unlock()
		return ErrAlreadyTerminal
	}
	t.FailReason = reason
	t.mu.Unlock()

	kind := EventTransferFailed
	switch state {
	case Rejected:
		kind = EventFileTransferRejected
	case TimedOut:
		kind = EventFileTransferTimeout
	case Cancelled:
		kind = EventTransferCancelled
	case Failed:
		kind = EventFileSendError
	}
	c.transitionTerminal(t, state, kind)
	return nil
}

// Cancel moves a transfer to the cancelled state, if it isn't already
// terminal, and fires the transfer's context so any in-flight read or
// write tied to it unblocks.
func (c *Coordinator) Cancel(id string) error {
	t, err := c.lookup(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	terminal := t.State.IsTerminal()
	t.mu.Unlock()
	if terminal {
		return ErrAlreadyTerminal
	}

	c.transitionTerminal(t, Cancelled, EventTransferCancelled)
	return nil
}

// Context returns the context scoped to a transfer's lifetime, for
// callers (the ingest handler's body-read loop, the sender's request)
// to select against.
func (c *Coordinator) Context(id string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, ok := c.ctxs[id]
	return ctx, ok
}

// Snapshot returns every transfer this node currently knows about,
// live and retired.
func (c *Coordinator) Snapshot() []Transfer {
	return c.registry.Snapshot()
}

// SubscribeEvents registers for lifecycle events, delivered at least
// once per transfer's state transitions.
func (c *Coordinator) SubscribeEvents() <-chan Event {
	return c.bus.subscribeEvents()
}

// SubscribeProgress registers for transfer-progress events, which may
// be dropped under backpressure.
func (c *Coordinator) SubscribeProgress() <-chan Progress {
	return c.bus.subscribeProgress()
}

// SubscribeText registers for inbound text messages. Unlike file
// transfers, a text message never enters the registry: it has no
// consent gate and no state machine, so it is fanned out directly.
func (c *Coordinator) SubscribeText() <-chan ReceivedText {
	return c.bus.subscribeText()
}

// PublishText announces an inbound text message to every subscriber.
func (c *Coordinator) PublishText(senderAlias, content string) {
	c.bus.publishText(ReceivedText{SenderAlias: senderAlias, Content: content, At: time.Now()})
}

func (c *Coordinator) transition(t *Transfer, s State) {
	t.mu.Lock()
	t.State = s
	t.StateChangedAt = time.Now()
	t.mu.Unlock()
}

// lookup returns the live transfer for id. A transfer that has reached a
// terminal state has been retired from the live map, so lookup reports
// ErrAlreadyTerminal for it rather than ErrUnknownTransfer.
func (c *Coordinator) lookup(id string) (*Transfer, error) {
	if t, ok := c.registry.get(id); ok {
		return t, nil
	}
	for _, tr := range c.registry.Snapshot() {
		if tr.ID == id {
			return nil, ErrAlreadyTerminal
		}
	}
	return nil, ErrUnknownTransfer
}

func (c *Coordinator) transitionTerminal(t *Transfer, s State, kind EventKind) {
	t.mu.Lock()
	if t.State.IsTerminal() {
		t.mu.Unlock()
		return
	}
	t.State = s
	t.StateChangedAt = time.Now()
	t.mu.Unlock()
	c.registry.retire(t)

	c.mu.Lock()
	if cancel, ok := c.cancels[t.ID]; ok {
		cancel()
		delete(c.cancels, t.ID)
		delete(c.ctxs, t.ID)
	}
	c.mu.Unlock()

	c.bus.publishEvent(Event{Kind: kind, ID: t.ID, At: t.StateChangedAt, Transfer: t.Snapshot()})
}
