// Package discovery announces the local node over mDNS and maintains a
// live table of peers seen on the LAN.
package discovery

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/libp2p/zeroconf/v2"
)

// ServiceType is the DNS-SD service type all localshare nodes register
// under and browse for.
const ServiceType = "_localshare._tcp.local."

const (
	announceInterval = 30 * time.Second
	evictionAge      = 2 * announceInterval
	browseTimeout    = 10 * time.Second

	backoffBase = 1 * time.Second
	backoffMax  = 60 * time.Second

	ifacePollInterval = 500 * time.Millisecond
)

// Peer is a remote node seen on the LAN.
type Peer struct {
	Address  net.IP
	Port     int
	Alias    string
	Hostname string
	Fingerprint string
	LastSeen time.Time
}

func (p Peer) key() string {
	return p.Address.String() + ":" + strconv.Itoa(p.Port)
}

// Agent announces this node's presence and browses for others. The
// zero value is not usable; construct with New.
type Agent struct {
	alias       string
	fingerprint string
	port        int

	server *zeroconf.Server

	mu    sync.RWMutex
	peers map[string]*Peer

	bus *bus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	browseNowCh chan struct{}

	lastIfaces string
}

// New constructs an Agent for the given identity. It does not start
// any network activity until Start is called.
func New(alias, fingerprint string, port int) *Agent {
	return &Agent{
		alias:       alias,
		fingerprint: fingerprint,
		port:        port,
		peers:       make(map[string]*Peer),
		bus:         newBus(),
		browseNowCh: make(chan struct{}, 1),
	}
}

// Start begins advertising and browsing. Idempotent: calling Start
// twice on the same Agent without an intervening Stop logs and returns
// nil without re-registering.
func (a *Agent) Start(ctx context.Context) error {
	if a.ctx != nil {
		slog.Warn("discovery: Start called while already running")
		return nil
	}
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.registerWithBackoff(); err != nil {
		return err
	}

	a.wg.Add(2)
	go a.browseLoop()
	go a.interfacePoll()
	return nil
}

// Stop tears down the mDNS server and waits for background goroutines
// to exit. The zeroconf.Server.Shutdown call sends the DNS-SD goodbye
// packet (TTL 0) as part of its teardown.
func (a *Agent) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	if a.server != nil {
		a.server.Shutdown()
	}
	a.wg.Wait()
}

// registerWithBackoff registers the mDNS service record, retrying with
// exponential backoff (capped at 60s) on bind failure. The first
// failure is logged; the function blocks until it succeeds or the
// agent's context is cancelled.
func (a *Agent) registerWithBackoff() error {
	delay := backoffBase
	logged := false
	for {
		server, err := zeroconf.Register(
			a.alias,
			ServiceType,
			"local",
			a.port,
			[]string{
				"alias=" + a.alias,
				"fingerprint=" + a.fingerprint,
				"v=1",
			},
			nil,
		)
		if err == nil {
			a.server = server
			return nil
		}
		if !logged {
			slog.Error("discovery: failed to bind mDNS socket, retrying with backoff", "error", err)
			logged = true
		}
		select {
		case <-time.After(delay):
		case <-a.ctx.Done():
			return a.ctx.Err()
		}
		delay *= 2
		if delay > backoffMax {
			delay = backoffMax
		}
	}
}

// Refresh triggers an immediate browse round instead of waiting for
// the next scheduled one.
func (a *Agent) Refresh() {
	select {
	case a.browseNowCh <- struct{}{}:
	default: // a round is already pending
	}
}

// Peers returns a snapshot of the current peer table.
func (a *Agent) Peers() []Peer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Peer, 0, len(a.peers))
	for _, p := range a.peers {
		out = append(out, *p)
	}
	return out
}

// Subscribe registers for peers-update notifications. The returned
// channel receives a full table snapshot each time the table changes.
func (a *Agent) Subscribe() <-chan []Peer {
	return a.bus.subscribe()
}

func (a *Agent) browseLoop() {
	defer a.wg.Done()

	a.runBrowse()

	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()
	evictTicker := time.NewTicker(announceInterval)
	defer evictTicker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.runBrowse()
		case <-a.browseNowCh:
			a.runBrowse()
		case <-evictTicker.C:
			a.evictStale()
		}
	}
}

func (a *Agent) runBrowse() {
	browseCtx, cancel := context.WithTimeout(a.ctx, browseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 100)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			a.handleEntry(sighting{
				text:     entry.Text,
				addrIPv4: entry.AddrIPv4,
				addrIPv6: entry.AddrIPv6,
				port:     entry.Port,
				hostname: entry.HostName,
			})
		}
	}()

	if err := zeroconf.Browse(browseCtx, ServiceType, "local", entries); err != nil {
		if a.ctx.Err() == nil {
			slog.Debug("discovery: browse round error", "error", err)
		}
	}
	wg.Wait()
}

// sighting is the plain-data view of a zeroconf.ServiceEntry that
// handleEntry operates on. Keeping this as our own type (rather than
// taking *zeroconf.ServiceEntry directly) lets tests drive handleEntry
// without constructing the third-party library's struct.
type sighting struct {
	text     []string
	addrIPv4 []net.IP
	addrIPv6 []net.IP
	port     int
	hostname string
}

// handleEntry converts one discovered service entry into a Peer and
// applies it to the table. Self-records are filtered by fingerprint so
// the same process never appears in its own peer list. Addresses are
// not merged across families: a node advertising both an A and an AAAA
// record produces two distinct table entries, one per address.
func (a *Agent) handleEntry(entry sighting) {
	fields := parseTXT(entry.text)
	if fields["fingerprint"] == a.fingerprint {
		return
	}

	addrs := append(append([]net.IP{}, entry.addrIPv4...), entry.addrIPv6...)
	if len(addrs) == 0 {
		return
	}

	changed := false
	for _, ip := range addrs {
		p := &Peer{
			Address:     ip,
			Port:        entry.port,
			Alias:       fields["alias"],
			Hostname:    entry.hostname,
			Fingerprint: fields["fingerprint"],
			LastSeen:    time.Now(),
		}
		a.mu.Lock()
		a.peers[p.key()] = p
		a.mu.Unlock()
		changed = true
	}

	if changed {
		a.publish()
	}
}

// evictStale removes peers whose record hasn't refreshed within twice
// the announce interval.
func (a *Agent) evictStale() {
	now := time.Now()
	changed := false

	a.mu.Lock()
	for key, p := range a.peers {
		if now.Sub(p.LastSeen) > evictionAge {
			delete(a.peers, key)
			changed = true
		}
	}
	a.mu.Unlock()

	if changed {
		a.publish()
	}
}

func (a *Agent) publish() {
	a.bus.publish(a.Peers())
}

// interfacePoll calls Refresh whenever the set of network interfaces
// changes, so peer discovery reacts to a new link going up or down
// instead of waiting for the next scheduled browse round.
func (a *Agent) interfacePoll() {
	defer a.wg.Done()

	ticker := time.NewTicker(ifacePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snap := interfaceSnapshot()
			if snap != a.lastIfaces {
				a.lastIfaces = snap
				a.Refresh()
			}
		}
	}
}

func interfaceSnapshot() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	s := ""
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		s += iface.Name + ","
	}
	return s
}

func parseTXT(txts []string) map[string]string {
	out := make(map[string]string, len(txts))
	for _, t := range txts {
		for i := 0; i < len(t); i++ {
			if t[i] == '=' {
				out[t[:i]] = t[i+1:]
				break
			}
		}
	}
	return out
}
