// Package router implements the transport "message" callback (spec
// §4.7): given one inbound AMP message, decide the routing topic per
// role convention and fan it out to every matching subscription,
// generalized from cellorg's handlePublish subscriber loop to the
// regex-matched, insertion-ordered subscription table of internal/topic.
package router

import (
	"encoding/json"

	"github.com/joelguittet/go-cote/internal/topic"
	"github.com/joelguittet/go-cote/internal/transport"
)

// Callback is a subscription handler: topic is the user-level topic
// (SUB: stripped of the "message::"/namespace prefix; REP: the literal
// requested topic), rest is the message with the routing field
// detached, and user is the opaque pointer passed to subscribe. A
// non-nil return value is used as the reply; for SUB it is discarded by
// the caller since SUB replies are never sent back to a publisher.
type Callback func(topic string, rest transport.Message, user any) *transport.Message

// Dispatch routes one inbound message per role convention and returns
// the last non-nil reply produced by a matching subscription (only
// meaningful for REP). Zero-field messages must be filtered out by the
// caller before calling Dispatch (spec §4.7: "0-field messages are
// dropped").
//
// globalFn, if non-nil, is invoked first with the untouched message,
// matching spec §4.7's "if a global message callback is configured,
// invoke it first with the raw message."
func Dispatch(role, namespace string, table *topic.Table, globalFn func(transport.Message), msg transport.Message) *transport.Message {
	if globalFn != nil {
		globalFn(msg)
	}

	switch role {
	case "sub":
		return dispatchSub(namespace, table, msg)
	case "rep":
		return dispatchRep(table, msg)
	default:
		return nil
	}
}

func dispatchSub(namespace string, table *topic.Table, msg transport.Message) *transport.Message {
	first, ok := msg.First()
	if !ok || first.Type != transport.FieldString {
		return nil
	}
	fullTopic := first.Str
	rest := transport.Message{Fields: msg.Rest()}
	userTopic := topic.StripFullTopic(namespace, fullTopic)

	table.Dispatch(fullTopic, func(e *topic.Entry) {
		cb, ok := e.Fn.(Callback)
		if !ok {
			return
		}
		// Return value invoked for side effects only; SUB replies are
		// discarded, per spec §4.7.
		cb(userTopic, rest, e.UserData)
	})
	return nil
}

func dispatchRep(table *topic.Table, msg transport.Message) *transport.Message {
	first, ok := msg.First()
	if !ok || first.Type != transport.FieldJSON {
		return nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(first.JSON, &body); err != nil {
		return nil
	}
	rawType, ok := body["type"]
	if !ok {
		return nil
	}
	var userTopic string
	if err := json.Unmarshal(rawType, &userTopic); err != nil {
		return nil
	}
	delete(body, "type")

	strippedJSON, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	rest := transport.Message{Fields: append([]transport.Field{transport.JSONField(strippedJSON)}, msg.Rest()...)}

	var lastReply *transport.Message
	table.Dispatch(userTopic, func(e *topic.Entry) {
		cb, ok := e.Fn.(Callback)
		if !ok {
			return
		}
		if reply := cb(userTopic, rest, e.UserData); reply != nil {
			lastReply = reply
		}
	})
	return lastReply
}
