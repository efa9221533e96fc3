package cote

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joelguittet/go-cote/internal/router"
	"github.com/joelguittet/go-cote/internal/topic"
	"github.com/joelguittet/go-cote/internal/transport"
)

// Subscribe installs fn under userTopic. Only valid for SUB and REP
// (spec §4.5). Re-subscribing under the same computed fulltopic
// replaces the previous callback in place rather than adding a
// duplicate.
func (n *Node) Subscribe(userTopic string, fn SubFunc, user any) error {
	if !n.role.acceptsSubscriptions() {
		return ErrWrongRole
	}
	if fn == nil {
		return fmt.Errorf("cote: subscribe callback must not be nil")
	}

	fulltopic := n.subscribeTopic(userTopic)
	wrapped := router.Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		return fn(n, tp, rest, user)
	})
	n.subs.Subscribe(fulltopic, wrapped, user)
	return nil
}

// Unsubscribe removes the subscription registered under fulltopic.
// Callers that built their pattern via the topic namer must pass the
// exact same string (spec §4.5). Only valid for SUB and REP.
func (n *Node) Unsubscribe(fulltopic string) error {
	if !n.role.acceptsSubscriptions() {
		return ErrWrongRole
	}
	n.subs.Unsubscribe(fulltopic)
	return nil
}

func (n *Node) subscribeTopic(userTopic string) string {
	if n.role == RoleSub {
		snapshot := n.store.Snapshot()
		return topic.FullTopic(snapshot.Namespace, userTopic)
	}
	return topic.ReqRepTopic(userTopic)
}

// Send publishes fields on userTopic. Only valid for PUB (spec §4.8):
// it prepends the computed fulltopic as a string field and broadcasts
// to every connected SUB.
func (n *Node) Send(userTopic string, fields ...Field) error {
	if n.role != RolePub {
		return ErrWrongRole
	}
	if len(fields) == 0 {
		return ErrInvalidMessage
	}

	snapshot := n.store.Snapshot()
	fulltopic := topic.FullTopic(snapshot.Namespace, userTopic)
	msg := transport.Message{Fields: append([]Field{transport.StringField(fulltopic)}, fields...)}
	return n.trans.Broadcast(msg)
}

// Request sends a JSON request on userTopic and blocks until a reply
// arrives or timeout elapses. Only valid for REQ (spec §4.8): the body
// is deep-copied and a string member "type" is set to userTopic before
// the send-and-await-reply round trip.
//
// If more than one REP peer is currently connected, Request tries each
// in the order it connected and returns the first successful reply;
// this resolves an open question spec.md leaves unspecified (which
// replier answers when several are connected).
func (n *Node) Request(userTopic string, body json.RawMessage, timeout time.Duration) (Message, error) {
	if n.role != RoleReq {
		return Message{}, ErrWrongRole
	}

	merged, err := mergeRequestType(body, userTopic)
	if err != nil {
		return Message{}, fmt.Errorf("cote: build request body: %w", err)
	}
	msg := transport.Message{Fields: []Field{transport.JSONField(merged)}}

	targets := n.connectedEndpoints()
	if len(targets) == 0 {
		return Message{}, ErrNotConnected
	}

	var lastErr error
	for _, ep := range targets {
		reply, err := n.trans.SendAndAwaitReply(ep.host, ep.port, msg, timeout)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, transport.ErrReplyTimeout) {
		return Message{}, ErrReplyTimeout
	}
	return Message{}, lastErr
}

func mergeRequestType(body json.RawMessage, userTopic string) ([]byte, error) {
	var doc map[string]json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}
	topicJSON, err := json.Marshal(userTopic)
	if err != nil {
		return nil, err
	}
	doc["type"] = topicJSON
	return json.Marshal(doc)
}
