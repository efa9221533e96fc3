package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Sentinel errors returned to callers of the send paths (spec §7).
var (
	ErrNotConnected  = errors.New("transport: not connected to endpoint")
	ErrReplyTimeout  = errors.New("transport: reply timeout")
	ErrClosed        = errors.New("transport: closed")
	ErrEmptyMessage  = errors.New("transport: message has no fields")
)

// Events are the callbacks a Transport fires. OnMessage is invoked for
// every inbound message on every connection, inbound or outbound,
// except a message that arrives while a SendAndAwaitReply on that
// connection is waiting: that one is taken as the reply instead. Its
// return value is only meaningful on the accept side (the binder of a
// PUB or REP role), where a non-nil reply is written back on the same
// connection. OnBind fires once the listener is actually accepting, so
// the node can learn its OS-assigned port before publishing an
// advertisement. OnError reports connection and codec failures; it
// never stops the transport.
type Events struct {
	OnBind    func(port int)
	OnMessage func(peerEndpoint string, msg Message) *Message
	OnError   func(string)
}

// Transport is a point-to-point AMP-style socket adapter. A single
// Transport can both bind (accept inbound connections, as PUB and REP
// do) and dial (open outbound connections, as SUB and REQ do),
// mirroring the dual client/server shape of internal/mcp.Client
// generalized from one-shot HTTP calls to long-lived TCP sockets.
type Transport struct {
	codec  Codec
	events Events

	mu       sync.Mutex
	closed   bool
	listener net.Listener
	inbound  map[*peerConn]struct{}
	outbound map[string]*peerConn // keyed by "host:port"
}

type peerConn struct {
	nc       net.Conn
	endpoint string

	writeMu sync.Mutex

	replyMu sync.Mutex
	reply   chan Message // non-nil while a request is outstanding
}

// New returns a Transport using codec for wire framing.
func New(codec Codec, events Events) *Transport {
	if codec == nil {
		codec = MsgpackCodec{}
	}
	return &Transport{
		codec:    codec,
		events:   events,
		inbound:  make(map[*peerConn]struct{}),
		outbound: make(map[string]*peerConn),
	}
}

// Bind starts listening on addr:port (port 0 asks the OS for one) and
// accepts connections in the background. OnBind fires with the actual
// bound port once the listener is live.
func (t *Transport) Bind(addr string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		ln.Close()
		return ErrClosed
	}
	t.listener = ln
	t.mu.Unlock()

	boundPort := ln.Addr().(*net.TCPAddr).Port
	if t.events.OnBind != nil {
		t.events.OnBind(boundPort)
	}

	go t.acceptLoop(ln)
	return nil
}

func (t *Transport) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return // listener closed; Release already torn down state
		}
		pc := &peerConn{nc: nc, endpoint: nc.RemoteAddr().String()}
		t.mu.Lock()
		t.inbound[pc] = struct{}{}
		t.mu.Unlock()
		go t.readLoop(pc, true)
	}
}

// Connect dials endpoint:port and keeps the connection open for future
// sends. Idempotent: calling Connect again for an endpoint already open
// is a no-op, matching IsConnected's contract (spec §4.3) that the peer
// matcher relies on to avoid duplicate connections.
func (t *Transport) Connect(ctx context.Context, endpoint string, port int) error {
	key := net.JoinHostPort(endpoint, strconv.Itoa(port))

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if _, ok := t.outbound[key]; ok {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	dialer := net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", key)
	if err != nil {
		return fmt.Errorf("connect %s: %w", key, err)
	}

	pc := &peerConn{nc: nc, endpoint: key}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		nc.Close()
		return ErrClosed
	}
	t.outbound[key] = pc
	t.mu.Unlock()

	go t.readLoop(pc, false)
	return nil
}

// IsConnected reports whether an outbound connection to endpoint:port
// is already open.
func (t *Transport) IsConnected(endpoint string, port int) bool {
	key := net.JoinHostPort(endpoint, strconv.Itoa(port))
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.outbound[key]
	return ok
}

// Broadcast writes msg to every currently accepted inbound connection.
// PUB uses this to fan a published message out to every connected SUB.
func (t *Transport) Broadcast(msg Message) error {
	if !msg.Valid() {
		return ErrEmptyMessage
	}
	t.mu.Lock()
	conns := make([]*peerConn, 0, len(t.inbound))
	for pc := range t.inbound {
		conns = append(conns, pc)
	}
	t.mu.Unlock()

	for _, pc := range conns {
		if err := t.write(pc, msg); err != nil {
			t.reportError(fmt.Sprintf("broadcast to %s: %v", pc.endpoint, err))
		}
	}
	return nil
}

// Send writes msg on the outbound connection to endpoint:port without
// waiting for any reply.
func (t *Transport) Send(endpoint string, port int, msg Message) error {
	if !msg.Valid() {
		return ErrEmptyMessage
	}
	key := net.JoinHostPort(endpoint, strconv.Itoa(port))
	t.mu.Lock()
	pc, ok := t.outbound[key]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("send to %s: %w", key, ErrNotConnected)
	}
	return t.write(pc, msg)
}

// SendAndAwaitReply writes msg on the outbound connection to
// endpoint:port and blocks until a reply arrives or timeout elapses.
// Used by REQ's send path (spec §4.8).
func (t *Transport) SendAndAwaitReply(endpoint string, port int, msg Message, timeout time.Duration) (Message, error) {
	if !msg.Valid() {
		return Message{}, ErrEmptyMessage
	}
	key := net.JoinHostPort(endpoint, strconv.Itoa(port))
	t.mu.Lock()
	pc, ok := t.outbound[key]
	t.mu.Unlock()
	if !ok {
		return Message{}, fmt.Errorf("send to %s: %w", key, ErrNotConnected)
	}

	replyCh := make(chan Message, 1)
	pc.replyMu.Lock()
	pc.reply = replyCh
	pc.replyMu.Unlock()
	defer func() {
		pc.replyMu.Lock()
		if pc.reply == replyCh {
			pc.reply = nil
		}
		pc.replyMu.Unlock()
	}()

	if err := t.write(pc, msg); err != nil {
		return Message{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-replyCh:
		return reply, nil
	case <-timer.C:
		return Message{}, ErrReplyTimeout
	}
}

func (t *Transport) write(pc *peerConn, msg Message) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return t.codec.Encode(pc.nc, msg)
}

func (t *Transport) readLoop(pc *peerConn, inbound bool) {
	defer func() {
		t.mu.Lock()
		if inbound {
			delete(t.inbound, pc)
		} else {
			if t.outbound[pc.endpoint] == pc {
				delete(t.outbound, pc.endpoint)
			}
		}
		t.mu.Unlock()
		pc.nc.Close()
	}()

	for {
		msg, err := t.codec.Decode(pc.nc)
		if err != nil {
			return // connection closed or framing error; caller notices via IsConnected
		}
		if !msg.Valid() {
			continue // 0-field messages are silently dropped (spec §4.7)
		}

		pc.replyMu.Lock()
		waiting := pc.reply
		pc.replyMu.Unlock()
		if waiting != nil {
			select {
			case waiting <- msg:
			default:
			}
			continue
		}

		if t.events.OnMessage == nil {
			continue
		}
		reply := t.events.OnMessage(pc.endpoint, msg)
		if inbound && reply != nil {
			if err := t.write(pc, *reply); err != nil {
				t.reportError(fmt.Sprintf("reply to %s: %v", pc.endpoint, err))
			}
		}
	}
}

func (t *Transport) reportError(s string) {
	if t.events.OnError != nil {
		t.events.OnError(s)
	}
}

// Release closes the listener and every connection, inbound and
// outbound. Safe to call more than once.
func (t *Transport) Release() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	ln := t.listener
	inbound := t.inbound
	outbound := t.outbound
	t.inbound = make(map[*peerConn]struct{})
	t.outbound = make(map[string]*peerConn)
	t.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for pc := range inbound {
		pc.nc.Close()
	}
	for _, pc := range outbound {
		pc.nc.Close()
	}
}
