// Package discovery wraps mDNS/DNS-SD (via zeroconf) into the node's
// view of the LAN: a stream of Added/Updated/Removed peer events, each
// peer carrying the raw JSON advertisement it published over TXT
// records.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grandcat/zeroconf"
)

// Peer captures everything discovery observed about another node:
// where it lives and what it advertised. The core holds no references
// to a Peer across events; each event carries its own copy.
type Peer struct {
	Instance      string
	Host          string
	Port          int
	Address       string
	Advertisement []byte
	LastSeen      time.Time
}

// EventType distinguishes why a Peer event fired.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Event is a single discovery change, handed to subscribers.
type Event struct {
	Type EventType
	Peer *Peer
}

// Options control how discovery browses and prunes.
type Options struct {
	Service       string
	Domain        string
	NodeTimeout   time.Duration // a peer not re-seen within this long is pruned
	CheckInterval time.Duration // how often the prune sweep runs
}

// Discovery maintains a continually refreshed snapshot of visible peers
// and fans out Added/Updated/Removed events to subscribers.
type Discovery struct {
	opts     Options
	snapshot atomic.Value

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}
}

const (
	defaultService = "_cote._tcp"
	defaultDomain  = "local."
)

// New returns a discovery instance ready to be started. Zero-valued
// NodeTimeout/CheckInterval are filled in by the caller (the node forwards
// its own option defaults; spec §4.2).
func New(opts Options) *Discovery {
	if opts.Service == "" {
		opts.Service = defaultService
	}
	if opts.Domain == "" {
		opts.Domain = defaultDomain
	}
	d := &Discovery{
		opts:        opts,
		subscribers: make(map[chan Event]struct{}),
	}
	d.snapshot.Store(make(map[string]*Peer))
	return d
}

// Start launches the browsing and pruning goroutines. Safe to call once.
func (d *Discovery) Start(parent context.Context) error {
	if parent == nil {
		return errors.New("nil context")
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		cancel()
		return fmt.Errorf("create resolver: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.consumeEntries(ctx, entries)
	}()

	if d.opts.NodeTimeout > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.pruneLoop(ctx)
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = resolver.Browse(ctx, d.opts.Service, d.opts.Domain, entries)
		close(entries)
	}()

	return nil
}

// Stop terminates discovery and waits for goroutines to finish, closing
// every subscriber channel.
func (d *Discovery) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()

	d.subMu.Lock()
	for ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, ch)
	}
	d.subMu.Unlock()
}

// PeersSnapshot returns a copy of the known-peers map for safe iteration.
func (d *Discovery) PeersSnapshot() map[string]*Peer {
	raw := d.snapshot.Load().(map[string]*Peer)
	return clonePeers(raw)
}

// Subscribe registers a listener channel for discovery events. Read it
// until it is closed; Stop closes every subscriber channel.
func (d *Discovery) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	d.subMu.Lock()
	d.subscribers[ch] = struct{}{}
	d.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (d *Discovery) Unsubscribe(ch chan Event) {
	d.subMu.Lock()
	if _, ok := d.subscribers[ch]; ok {
		delete(d.subscribers, ch)
		close(ch)
	}
	d.subMu.Unlock()
}

func (d *Discovery) consumeEntries(ctx context.Context, entries <-chan *zeroconf.ServiceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if entry == nil {
				continue
			}
			d.observe(entry)
		}
	}
}

func (d *Discovery) observe(entry *zeroconf.ServiceEntry) {
	now := time.Now()
	host := entry.HostName
	// address is a bare host/IP with no port: callers (the peer matcher,
	// the transport) each append ":port" themselves via
	// net.JoinHostPort, so joining it here would double it up.
	address := host
	switch {
	case len(entry.AddrIPv4) > 0:
		address = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		address = entry.AddrIPv6[0].String()
	default:
		address = entry.HostName
	}

	peer := &Peer{
		Instance:      entry.Instance,
		Host:          host,
		Port:          entry.Port,
		Address:       address,
		Advertisement: decodeAdvertisement(entry.Text),
		LastSeen:      now,
	}

	d.updateSnapshot(func(current map[string]*Peer) map[string]*Peer {
		_, exists := current[entry.Instance]
		clone := clonePeers(current)
		clone[entry.Instance] = peer
		if exists {
			d.broadcast(Event{Type: EventUpdated, Peer: clonePeer(peer)})
		} else {
			d.broadcast(Event{Type: EventAdded, Peer: clonePeer(peer)})
		}
		return clone
	})
}

func (d *Discovery) pruneLoop(ctx context.Context) {
	interval := d.opts.CheckInterval
	if interval <= 0 {
		interval = d.opts.NodeTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pruneStale()
		}
	}
}

func (d *Discovery) pruneStale() {
	threshold := time.Now().Add(-d.opts.NodeTimeout)
	d.updateSnapshot(func(current map[string]*Peer) map[string]*Peer {
		if len(current) == 0 {
			return current
		}
		clone := clonePeers(current)
		for key, peer := range clone {
			if peer.LastSeen.Before(threshold) {
				d.broadcast(Event{Type: EventRemoved, Peer: clonePeer(peer)})
				delete(clone, key)
			}
		}
		return clone
	})
}

func (d *Discovery) updateSnapshot(modifier func(map[string]*Peer) map[string]*Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := d.snapshot.Load().(map[string]*Peer)
	updated := modifier(current)
	d.snapshot.Store(updated)
}

// decodeAdvertisement reassembles a fragmented "adv" TXT record. DNS-SD
// TXT entries are length-prefixed strings with a per-record cap, so a
// JSON advertisement longer than that cap is announced across several
// "adv0", "adv1", ... entries and must be concatenated back in order.
func decodeAdvertisement(txt []string) []byte {
	parts := make(map[int]string)
	var fallback string
	for _, entry := range txt {
		key, value, ok := splitTxt(entry)
		if !ok {
			continue
		}
		if key == "adv" {
			fallback = value
			continue
		}
		var idx int
		if n, err := fmt.Sscanf(key, "adv%d", &idx); err == nil && n == 1 {
			parts[idx] = value
		}
	}
	if len(parts) == 0 {
		return []byte(fallback)
	}
	out := make([]byte, 0, len(parts)*200)
	for i := 0; i < len(parts); i++ {
		out = append(out, parts[i]...)
	}
	return out
}

func splitTxt(txt string) (key, value string, ok bool) {
	for i := 0; i < len(txt); i++ {
		if txt[i] == '=' {
			return txt[:i], txt[i+1:], true
		}
	}
	return "", "", false
}

func clonePeers(in map[string]*Peer) map[string]*Peer {
	clone := make(map[string]*Peer, len(in))
	for k, v := range in {
		clone[k] = clonePeer(v)
	}
	return clone
}

func clonePeer(in *Peer) *Peer {
	if in == nil {
		return nil
	}
	out := *in
	if in.Advertisement != nil {
		out.Advertisement = append([]byte(nil), in.Advertisement...)
	}
	return &out
}

func (d *Discovery) broadcast(event Event) {
	if event.Peer == nil {
		return
	}
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	for ch := range d.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
