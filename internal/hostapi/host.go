// Package hostapi is the seam between the localshare core (discovery,
// transfer coordination, the ingest server, the outbound sender) and
// whatever process embeds it — a CLI, a tray app, a mobile shell. It
// decouples those callers from the concrete wiring the same way the
// teacher's daemon.RuntimeInfo decouples the HTTP layer from the
// process that owns the P2P runtime.
package hostapi

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/localshare/localshare/internal/config"
	"github.com/localshare/localshare/internal/discovery"
	"github.com/localshare/localshare/internal/transfer"
)

// Settings is the host-facing view of a node's identity and
// configuration, returned by GetSettings.
type Settings struct {
	Alias       string
	Port        int
	Fingerprint string
	DownloadDir string
}

// Host is the command surface a caller drives the core through. Every
// method is safe to call concurrently.
type Host interface {
	GetSettings() Settings
	SaveSettings(alias string, port int) error
	RefreshPeers()
	Peers() []discovery.Peer
	SendFileToPeer(ctx context.Context, addr string, port int, path string) error
	SendFileBytesToPeer(ctx context.Context, addr string, port int, name string, data []byte) error
	SendTextToPeer(ctx context.Context, addr string, port int, content string) error
	RespondToFileTransfer(id string, accepted bool) error
	CancelTransfer(id string) error
	Transfers() []transfer.Transfer

	// Events returns the merged core-to-host event stream. The channel
	// is closed when ctx is cancelled.
	Events(ctx context.Context) <-chan Event
}

// fileSender is the subset of *sender.Sender the Node depends on, kept
// narrow so tests can supply a fake without standing up real sockets.
type fileSender interface {
	SendFileFromPath(ctx context.Context, peer transfer.PeerRef, path string) error
	SendFileFromBytes(ctx context.Context, peer transfer.PeerRef, name string, data []byte) error
	SendText(ctx context.Context, peer transfer.PeerRef, content string) error
}

// aliasServer is the subset of *ingest.Server a settings change needs
// to reach, so an alias edit takes effect without restarting the
// listener.
type aliasServer interface {
	SetAlias(alias string)
}

// Node is the concrete Host: one node's worth of identity, discovery
// agent, transfer coordinator, and sender, wired together. Construct
// with New and keep for the process's lifetime.
type Node struct {
	configPath string
	cfg        *config.Config
	watcher    *config.Watcher

	fingerprint string
	discovery   *discovery.Agent
	coordinator *transfer.Coordinator
	sender      fileSender
	ingest      aliasServer
}

// New wires a Node from its already-constructed components. cfg is the
// in-memory configuration this Node was started with; SaveSettings
// rewrites configPath and replaces it.
func New(configPath string, cfg *config.Config, watcher *config.Watcher, fingerprint string, agent *discovery.Agent, coordinator *transfer.Coordinator, sender fileSender, ingest aliasServer) *Node {
	return &Node{
		configPath:  configPath,
		cfg:         cfg,
		watcher:     watcher,
		fingerprint: fingerprint,
		discovery:   agent,
		coordinator: coordinator,
		sender:      sender,
		ingest:      ingest,
	}
}

// GetSettings returns the node's current identity view.
func (n *Node) GetSettings() Settings {
	return Settings{
		Alias:       n.cfg.Alias,
		Port:        n.cfg.Port,
		Fingerprint: n.fingerprint,
		DownloadDir: n.cfg.DownloadDir,
	}
}

// normalizeAlias puts alias in Unicode NFC form and trims surrounding
// whitespace, so two visually identical aliases typed with different
// combining-character sequences compare equal once advertised over
// mDNS and shown in peer listings.
func normalizeAlias(alias string) string {
	return strings.TrimSpace(norm.NFC.String(alias))
}

// SaveSettings persists alias/port, republishes the config so any
// subscriber reacts, and pushes the new alias into the ingest server
// immediately — a port change takes effect on the next restart of the
// listener, which this method does not perform, mirroring the
// teacher's hot-reload split between config edits that apply live
// (the gater's authorized_keys) and ones that require a restart.
func (n *Node) SaveSettings(alias string, port int) error {
	next := *n.cfg
	next.Alias = normalizeAlias(alias)
	next.Port = port
	if err := config.Validate(&next); err != nil {
		return err
	}
	if err := config.SaveAndPublish(n.configPath, &next, n.watcher); err != nil {
		return err
	}
	n.cfg = &next
	if n.ingest != nil {
		n.ingest.SetAlias(next.Alias)
	}
	return nil
}

// RefreshPeers triggers an immediate discovery browse round.
func (n *Node) RefreshPeers() {
	n.discovery.Refresh()
}

// Peers returns the current discovery peer table.
func (n *Node) Peers() []discovery.Peer {
	return n.discovery.Peers()
}

// SendFileToPeer streams a file from a local path to addr:port.
func (n *Node) SendFileToPeer(ctx context.Context, addr string, port int, path string) error {
	return n.sender.SendFileFromPath(ctx, transfer.PeerRef{Address: addr, Port: port}, path)
}

// SendFileBytesToPeer streams an in-memory file to addr:port.
func (n *Node) SendFileBytesToPeer(ctx context.Context, addr string, port int, name string, data []byte) error {
	return n.sender.SendFileFromBytes(ctx, transfer.PeerRef{Address: addr, Port: port}, name, data)
}

// SendTextToPeer delivers a text message to addr:port.
func (n *Node) SendTextToPeer(ctx context.Context, addr string, port int, content string) error {
	return n.sender.SendText(ctx, transfer.PeerRef{Address: addr, Port: port}, content)
}

// RespondToFileTransfer records the user's accept/reject decision for
// an inbound transfer awaiting consent.
func (n *Node) RespondToFileTransfer(id string, accepted bool) error {
	return n.coordinator.Respond(id, accepted)
}

// CancelTransfer cancels an in-flight transfer, inbound or outbound.
func (n *Node) CancelTransfer(id string) error {
	return n.coordinator.Cancel(id)
}

// Transfers returns a snapshot of every transfer this node knows
// about, live and retired.
func (n *Node) Transfers() []transfer.Transfer {
	return n.coordinator.Snapshot()
}

// Events merges discovery peer-table updates, transfer lifecycle and
// progress events, inbound text messages, and alias changes into a
// single stream, matching the event names spec.md assigns to the
// core-to-host surface. The returned channel is closed once ctx is
// done and every source goroutine has exited.
func (n *Node) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, eventBufferSize)

	peers := n.discovery.Subscribe()
	lifecycle := n.coordinator.SubscribeEvents()
	progress := n.coordinator.SubscribeProgress()
	texts := n.coordinator.SubscribeText()

	var aliasCh <-chan config.Config
	if n.watcher != nil {
		aliasCh = n.watcher.Changed
	}

	go n.fanIn(ctx, out, peers, lifecycle, progress, texts, aliasCh)
	return out
}

// eventBufferSize is generous enough that a momentarily slow consumer
// does not stall the discovery or transfer goroutines feeding this
// fan-in; once it is full, publish blocks until the consumer reads or
// ctx is done.
const eventBufferSize = 64

func (n *Node) fanIn(ctx context.Context, out chan<- Event, peers <-chan []discovery.Peer, lifecycle <-chan transfer.Event, progress <-chan transfer.Progress, texts <-chan transfer.ReceivedText, aliasCh <-chan config.Config) {
	defer close(out)
	lastAlias := n.cfg.Alias
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-peers:
			if !ok {
				peers = nil
				continue
			}
			publish(ctx, out, Event{Kind: EventPeersUpdate, At: time.Now(), Peers: p})
		case e, ok := <-lifecycle:
			if !ok {
				lifecycle = nil
				continue
			}
			tr := e.Transfer
			publish(ctx, out, Event{Kind: translateKind(e), At: e.At, Transfer: &tr})
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			publish(ctx, out, Event{Kind: EventTransferProgress, At: time.Now(), Progress: &p})
		case rt, ok := <-texts:
			if !ok {
				texts = nil
				continue
			}
			publish(ctx, out, Event{Kind: EventMessageReceived, At: rt.At, Text: &rt})
		case cfg, ok := <-aliasCh:
			if !ok {
				aliasCh = nil
				continue
			}
			if cfg.Alias != lastAlias {
				lastAlias = cfg.Alias
				publish(ctx, out, Event{Kind: EventAliasChanged, At: time.Now(), Alias: cfg.Alias})
			}
		}
	}
}

// publish sends e on out, giving up if ctx is cancelled first so a
// cancelled fan-in never blocks forever on a full, abandoned channel.
func publish(ctx context.Context, out chan<- Event, e Event) {
	select {
	case out <- e:
	case <-ctx.Done():
	}
}
