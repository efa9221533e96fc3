package router

import (
	"encoding/json"
	"testing"

	"github.com/joelguittet/go-cote/internal/topic"
	"github.com/joelguittet/go-cote/internal/transport"
)

func TestDispatchSubStripsFulltopicAndInvokesInOrder(t *testing.T) {
	tbl := topic.NewTable()
	var calls []string

	tbl.Subscribe("message::temperature\\..*", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		calls = append(calls, "first:"+tp)
		return nil
	}), nil)
	tbl.Subscribe("message::temperature\\.indoor", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		calls = append(calls, "second:"+tp)
		return nil
	}), nil)

	msg := transport.Message{Fields: []transport.Field{
		transport.StringField("message::temperature.indoor"),
		transport.BigIntField(21),
	}}

	reply := Dispatch("sub", "", tbl, nil, msg)
	if reply != nil {
		t.Fatal("SUB dispatch must discard replies")
	}
	if len(calls) != 2 || calls[0] != "first:temperature.indoor" || calls[1] != "second:temperature.indoor" {
		t.Fatalf("calls = %v, want [first:temperature.indoor second:temperature.indoor]", calls)
	}
}

func TestDispatchSubWithNamespaceStripsBothPrefixes(t *testing.T) {
	tbl := topic.NewTable()
	var got string
	tbl.Subscribe("message::acme::temperature", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		got = tp
		return nil
	}), nil)

	msg := transport.Message{Fields: []transport.Field{transport.StringField("message::acme::temperature")}}
	Dispatch("sub", "acme", tbl, nil, msg)

	if got != "temperature" {
		t.Fatalf("stripped topic = %q, want temperature", got)
	}
}

func TestDispatchRepDetachesTypeAndReturnsLastReply(t *testing.T) {
	tbl := topic.NewTable()
	tbl.Subscribe("add", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		return &transport.Message{Fields: []transport.Field{transport.StringField("reply1")}}
	}), nil)

	body, _ := json.Marshal(map[string]any{"type": "add", "a": 1, "b": 2})
	msg := transport.Message{Fields: []transport.Field{transport.JSONField(body)}}

	reply := Dispatch("rep", "", tbl, nil, msg)
	if reply == nil {
		t.Fatal("expected a reply from matching REP subscription")
	}
	f, ok := reply.First()
	if !ok || f.Str != "reply1" {
		t.Fatalf("reply = %+v, want reply1", reply)
	}
}

func TestDispatchRepStripsTypeFromForwardedMessage(t *testing.T) {
	tbl := topic.NewTable()
	var forwardedJSON []byte
	tbl.Subscribe("add", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		f, _ := rest.First()
		forwardedJSON = f.JSON
		return nil
	}), nil)

	body, _ := json.Marshal(map[string]any{"type": "add", "a": 1})
	msg := transport.Message{Fields: []transport.Field{transport.JSONField(body)}}
	Dispatch("rep", "", tbl, nil, msg)

	var decoded map[string]any
	if err := json.Unmarshal(forwardedJSON, &decoded); err != nil {
		t.Fatalf("forwarded JSON invalid: %v", err)
	}
	if _, ok := decoded["type"]; ok {
		t.Fatal("expected \"type\" to be stripped from forwarded message")
	}
	if decoded["a"] != float64(1) {
		t.Fatalf("expected field a to survive, got %v", decoded)
	}
}

func TestDispatchDropsMessageWithWrongFirstFieldType(t *testing.T) {
	tbl := topic.NewTable()
	called := false
	tbl.Subscribe(".*", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		called = true
		return nil
	}), nil)

	msg := transport.Message{Fields: []transport.Field{transport.BigIntField(1)}}
	Dispatch("sub", "", tbl, nil, msg)
	if called {
		t.Fatal("expected no dispatch for non-string first field on SUB")
	}

	Dispatch("rep", "", tbl, nil, msg)
	if called {
		t.Fatal("expected no dispatch for non-JSON first field on REP")
	}
}

func TestDispatchInvokesGlobalCallbackFirst(t *testing.T) {
	tbl := topic.NewTable()
	var globalCalled, subCalled bool

	msg := transport.Message{Fields: []transport.Field{transport.StringField("message::x")}}
	tbl.Subscribe("message::x", Callback(func(tp string, rest transport.Message, user any) *transport.Message {
		if !globalCalled {
			t.Fatal("global callback should run before subscription callbacks")
		}
		subCalled = true
		return nil
	}), nil)

	Dispatch("sub", "", tbl, func(m transport.Message) { globalCalled = true }, msg)
	if !globalCalled || !subCalled {
		t.Fatal("expected both global and subscription callbacks to run")
	}
}
