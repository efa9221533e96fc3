// Package cote is a zero-configuration, decentralized messaging
// library for peer services on a LAN: nodes find each other via
// mDNS/DNS-SD advertisements and talk directly to one another over
// point-to-point sockets, with no broker or central registry.
//
// Five roles are supported: PUB and SUB for publish/subscribe, REQ and
// REP for request/reply, and MON, a passive observer that sees
// discovered peers of every role (key and namespace checks still
// apply) without connecting to any of them.
package cote

import (
	"context"
	"fmt"
	"sync"

	"github.com/joelguittet/go-cote/internal/advertisement"
	"github.com/joelguittet/go-cote/internal/discovery"
	"github.com/joelguittet/go-cote/internal/options"
	"github.com/joelguittet/go-cote/internal/peermatch"
	"github.com/joelguittet/go-cote/internal/router"
	"github.com/joelguittet/go-cote/internal/topic"
	"github.com/joelguittet/go-cote/internal/transport"
)

// liveNames is the narrow exception to spec §9's "no global mutable
// state in the core": Create must reject a name already held by
// another live node in this process, which requires some shared
// bookkeeping outside any one node. It holds nothing but names; it is
// not involved in any node's own mutex discipline.
var liveNames sync.Map // map[string]struct{}

// Node is a single cote participant: one role, one name, its own
// discovery and transport adapters, and its own subscription table.
// Multiple nodes in a process are fully independent (spec §9).
type Node struct {
	role Role
	name string

	store *options.Store
	disc  *discovery.Discovery
	trans *transport.Transport // nil for RoleMon
	subs  *topic.Table

	discCancel context.CancelFunc

	mu               sync.Mutex
	started          bool
	released         bool
	discoveryRunning bool
	announcer        *discovery.Announcer
	advertisement    []byte

	connMu    sync.Mutex
	connected []endpoint

	callbacksMu   sync.Mutex
	onAdded       AddedFunc
	onAddedUser   any
	onRemoved     RemovedFunc
	onRemovedUser any
	onMessage     MessageFunc
	onMessageUser any
	onError       ErrorFunc
	onErrorUser   any
}

type endpoint struct {
	host string
	port int
}

// Create validates role, reserves name, and constructs the node's
// discovery adapter (always) and transport adapter (for every role but
// MON), per spec §4.9. The node is not started; call Start.
func Create(role Role, name string) (*Node, error) {
	if !role.valid() {
		return nil, fmt.Errorf("cote: invalid role %q", role)
	}
	if name == "" {
		return nil, fmt.Errorf("cote: name must not be empty")
	}
	if _, loaded := liveNames.LoadOrStore(name, struct{}{}); loaded {
		return nil, ErrDuplicateName
	}

	n := &Node{
		role: role,
		name: name,
		subs: topic.NewTable(),
	}
	n.store = options.NewStore(n.handleOptionsChanged)
	initial := n.store.Snapshot()
	n.disc = discovery.New(discovery.Options{
		NodeTimeout:   initial.NodeTimeout,
		CheckInterval: initial.CheckInterval,
	})

	if role != RoleMon {
		n.trans = transport.New(transport.MsgpackCodec{}, transport.Events{
			OnBind:    n.handleBind,
			OnMessage: n.handleTransportMessage,
			OnError:   n.handleTransportError,
		})
	}

	return n, nil
}

// Role returns the role the node was created with.
func (n *Node) Role() Role { return n.role }

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// SetOption mutates a recognized option (spec §6 "Recognized option
// names"). It may be called at any time; a successful mutation
// rebuilds the advertisement immediately and, once the node has
// started advertising, republishes it.
func (n *Node) SetOption(name string, value any) error {
	n.mu.Lock()
	released := n.released
	n.mu.Unlock()
	if released {
		return ErrReleased
	}
	return n.store.Set(name, value)
}

// Advertise overrides the user-supplied advertisement document merged
// under the node's generated fields (spec §4.1).
func (n *Node) Advertise(raw []byte) error {
	return n.SetOption("advertisement", raw)
}

func (n *Node) handleOptionsChanged(snapshot *options.Options) {
	adv, err := n.buildAdvertisement(snapshot)
	if err != nil {
		n.reportError(fmt.Sprintf("build advertisement: %v", err))
		return
	}

	n.mu.Lock()
	n.advertisement = adv
	running := n.discoveryRunning
	n.mu.Unlock()

	if running {
		n.refreshAnnouncement(adv, snapshot.Port)
	}
}

func (n *Node) buildAdvertisement(snapshot *options.Options) ([]byte, error) {
	return advertisement.Build(advertisement.Params{
		Role:      string(n.role),
		Name:      n.name,
		Namespace: snapshot.Namespace,
		Topics:    snapshot.TopicListFor(string(n.role)),
		Port:      snapshot.Port,
		Base:      snapshot.Advertisement,
	})
}

// Start begins the node's start-ordering sequence (spec §4.2): PUB and
// REP bind their transport listener first and only advertise once the
// transport reports the bound port; SUB, REQ and MON advertise and
// start discovery immediately.
func (n *Node) Start() error {
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return ErrReleased
	}
	if n.started {
		n.mu.Unlock()
		return ErrAlreadyStarted
	}
	n.started = true
	n.mu.Unlock()

	if n.role.bindsListener() {
		snapshot := n.store.Snapshot()
		if err := n.trans.Bind(snapshot.Address, snapshot.Port); err != nil {
			return fmt.Errorf("cote: bind: %w", err)
		}
		return nil
	}

	return n.beginDiscovery()
}

// handleBind is the transport's bind(port) event; it writes the bound
// port into the options record and then proceeds exactly as the
// SUB/REQ/MON immediate-start path does (spec §4.2).
func (n *Node) handleBind(port int) {
	if err := n.store.Set("port", port); err != nil {
		n.reportError(fmt.Sprintf("record bound port: %v", err))
	}
	if err := n.beginDiscovery(); err != nil {
		n.reportError(fmt.Sprintf("start discovery: %v", err))
	}
}

func (n *Node) beginDiscovery() error {
	n.mu.Lock()
	if n.discoveryRunning {
		n.mu.Unlock()
		return nil
	}
	n.discoveryRunning = true
	n.mu.Unlock()

	snapshot := n.store.Snapshot()
	adv, err := n.buildAdvertisement(snapshot)
	if err != nil {
		return fmt.Errorf("build advertisement: %w", err)
	}
	n.mu.Lock()
	n.advertisement = adv
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	n.discCancel = cancel
	if err := n.disc.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start discovery: %w", err)
	}

	events := n.disc.Subscribe(64)
	go n.consumeDiscoveryEvents(events)

	n.refreshAnnouncement(adv, snapshot.Port)
	return nil
}

func (n *Node) refreshAnnouncement(adv []byte, port int) {
	announcer, err := discovery.NewAnnouncer(discovery.AnnounceOptions{
		Instance:      n.name,
		Port:          port,
		Advertisement: adv,
	})
	if err != nil {
		n.reportError(fmt.Sprintf("announce: %v", err))
		return
	}

	n.mu.Lock()
	previous := n.announcer
	n.announcer = announcer
	n.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
}

func (n *Node) consumeDiscoveryEvents(events <-chan discovery.Event) {
	for ev := range events {
		n.handleDiscoveryEvent(ev)
	}
}

func (n *Node) handleDiscoveryEvent(ev discovery.Event) {
	if ev.Peer == nil {
		return
	}

	snapshot := n.store.Snapshot()
	local := peermatch.Local{
		Role:         string(n.role),
		Namespace:    snapshot.Namespace,
		HasNamespace: snapshot.Namespace != "",
		UseHostNames: snapshot.UseHostNames,
		Topics:       snapshot.TopicListFor(string(n.role)),
	}

	decision := peermatch.Decide(local, ev.Peer.Address, ev.Peer.Host, ev.Peer.Advertisement, n.isConnected)
	if !decision.Accept {
		return
	}

	peer := Peer{
		Instance:      ev.Peer.Instance,
		Address:       ev.Peer.Address,
		Hostname:      ev.Peer.Host,
		Advertisement: ev.Peer.Advertisement,
	}

	switch ev.Type {
	case discovery.EventRemoved:
		n.invokeRemoved(peer)
		return
	case discovery.EventAdded, discovery.EventUpdated:
		if decision.Connect && n.trans != nil {
			if err := n.trans.Connect(context.Background(), decision.Host, decision.Port); err != nil {
				n.reportError(fmt.Sprintf("connect to %s:%d: %v", decision.Host, decision.Port, err))
			} else {
				n.rememberConnected(decision.Host, decision.Port)
			}
		}
		n.invokeAdded(peer)
	}
}

func (n *Node) isConnected(host string, port int) bool {
	if n.trans == nil {
		return false
	}
	return n.trans.IsConnected(host, port)
}

func (n *Node) rememberConnected(host string, port int) {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	for _, e := range n.connected {
		if e.host == host && e.port == port {
			return
		}
	}
	n.connected = append(n.connected, endpoint{host: host, port: port})
}

func (n *Node) connectedEndpoints() []endpoint {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	out := make([]endpoint, len(n.connected))
	copy(out, n.connected)
	return out
}

func (n *Node) handleTransportMessage(peerEndpoint string, msg transport.Message) *transport.Message {
	if !msg.Valid() {
		return nil
	}
	snapshot := n.store.Snapshot()

	var globalFn func(transport.Message)
	n.callbacksMu.Lock()
	onMessage, onMessageUser := n.onMessage, n.onMessageUser
	n.callbacksMu.Unlock()
	if onMessage != nil {
		globalFn = func(m transport.Message) { onMessage(n, m, onMessageUser) }
	}

	return router.Dispatch(string(n.role), snapshot.Namespace, n.subs, globalFn, msg)
}

func (n *Node) handleTransportError(s string) {
	n.reportError(s)
}

func (n *Node) invokeAdded(p Peer) {
	n.callbacksMu.Lock()
	fn, user := n.onAdded, n.onAddedUser
	n.callbacksMu.Unlock()
	if fn != nil {
		fn(n, p, user)
	}
}

func (n *Node) invokeRemoved(p Peer) {
	n.callbacksMu.Lock()
	fn, user := n.onRemoved, n.onRemovedUser
	n.callbacksMu.Unlock()
	if fn != nil {
		fn(n, p, user)
	}
}

func (n *Node) reportError(s string) {
	n.callbacksMu.Lock()
	fn, user := n.onError, n.onErrorUser
	n.callbacksMu.Unlock()
	if fn != nil {
		fn(n, s, user)
	}
}

// On installs one of the four event callbacks (spec §6: event ∈
// {"added","removed","message","error"}). fn must match the
// corresponding typed signature (AddedFunc, RemovedFunc, MessageFunc,
// ErrorFunc); user is passed back to fn on every invocation.
func (n *Node) On(event string, fn any, user any) error {
	n.callbacksMu.Lock()
	defer n.callbacksMu.Unlock()

	switch event {
	case "added":
		cb, ok := fn.(AddedFunc)
		if !ok {
			return fmt.Errorf("cote: \"added\" callback must be an AddedFunc")
		}
		n.onAdded, n.onAddedUser = cb, user
	case "removed":
		cb, ok := fn.(RemovedFunc)
		if !ok {
			return fmt.Errorf("cote: \"removed\" callback must be a RemovedFunc")
		}
		n.onRemoved, n.onRemovedUser = cb, user
	case "message":
		cb, ok := fn.(MessageFunc)
		if !ok {
			return fmt.Errorf("cote: \"message\" callback must be a MessageFunc")
		}
		n.onMessage, n.onMessageUser = cb, user
	case "error":
		cb, ok := fn.(ErrorFunc)
		if !ok {
			return fmt.Errorf("cote: \"error\" callback must be an ErrorFunc")
		}
		n.onError, n.onErrorUser = cb, user
	default:
		return fmt.Errorf("cote: unrecognized event %q", event)
	}
	return nil
}

// Release tears the node down in the order spec §4.9 requires:
// discovery, transport, subscription table, options, then the name
// reservation. Safe to call more than once and on a nil *Node.
func (n *Node) Release() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return
	}
	n.released = true
	announcer := n.announcer
	n.announcer = nil
	n.mu.Unlock()

	if announcer != nil {
		announcer.Stop()
	}
	if n.discCancel != nil {
		n.discCancel()
	}
	n.disc.Stop()
	if n.trans != nil {
		n.trans.Release()
	}
	n.subs.Release()

	liveNames.Delete(n.name)
}
