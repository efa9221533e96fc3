package cote

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestPubSubHelloPath(t *testing.T) {
	pub, err := Create(RolePub, uniqueName(t, "pub"))
	if err != nil {
		t.Fatalf("Create pub: %v", err)
	}
	defer pub.Release()
	if err := pub.SetOption("broadcasts", []string{"hello"}); err != nil {
		t.Fatalf("SetOption broadcasts: %v", err)
	}
	if err := pub.SetOption("address", "127.0.0.1"); err != nil {
		t.Fatalf("SetOption address: %v", err)
	}

	sub, err := Create(RoleSub, uniqueName(t, "sub"))
	if err != nil {
		t.Fatalf("Create sub: %v", err)
	}
	defer sub.Release()
	if err := sub.SetOption("subscribesTo", []string{"hello"}); err != nil {
		t.Fatalf("SetOption subscribesTo: %v", err)
	}

	var mu sync.Mutex
	var gotTopic string
	var gotValue string
	var calls int

	if err := sub.Subscribe("hello", func(n *Node, topic string, msg Message, user any) *Message {
		mu.Lock()
		defer mu.Unlock()
		calls++
		gotTopic = topic
		if f, ok := msg.First(); ok {
			gotValue = f.Str
		}
		return nil
	}, nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := pub.Start(); err != nil {
		t.Fatalf("pub.Start: %v", err)
	}
	if err := sub.Start(); err != nil {
		t.Fatalf("sub.Start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return sub.isConnected("127.0.0.1", currentPort(pub)) })

	if err := pub.Send("hello", StringField("world")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if gotTopic != "hello" {
		t.Errorf("gotTopic = %q, want hello", gotTopic)
	}
	if gotValue != "world" {
		t.Errorf("gotValue = %q, want world", gotValue)
	}
}

func TestReqRepRoundTrip(t *testing.T) {
	rep, err := Create(RoleRep, uniqueName(t, "rep"))
	if err != nil {
		t.Fatalf("Create rep: %v", err)
	}
	defer rep.Release()
	if err := rep.SetOption("respondsTo", []string{"hello"}); err != nil {
		t.Fatalf("SetOption respondsTo: %v", err)
	}
	if err := rep.SetOption("address", "127.0.0.1"); err != nil {
		t.Fatalf("SetOption address: %v", err)
	}

	var gotTopic string
	var gotPayload map[string]any

	if err := rep.Subscribe("hello", func(n *Node, topic string, msg Message, user any) *Message {
		gotTopic = topic
		if f, ok := msg.First(); ok {
			json.Unmarshal(f.JSON, &gotPayload)
		}
		reply, _ := json.Marshal(map[string]string{"goodbye": "world"})
		return Reply(JSONField(reply))
	}, nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	req, err := Create(RoleReq, uniqueName(t, "req"))
	if err != nil {
		t.Fatalf("Create req: %v", err)
	}
	defer req.Release()
	if err := req.SetOption("requests", []string{"hello"}); err != nil {
		t.Fatalf("SetOption requests: %v", err)
	}

	if err := rep.Start(); err != nil {
		t.Fatalf("rep.Start: %v", err)
	}
	if err := req.Start(); err != nil {
		t.Fatalf("req.Start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(req.connectedEndpoints()) > 0 })

	payload, _ := json.Marshal(map[string]string{"payload": "hi"})
	reply, err := req.Request("hello", payload, 5*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	f, ok := reply.First()
	if !ok || f.Type != FieldJSON {
		t.Fatalf("reply = %+v, want a JSON field", reply)
	}
	var decoded map[string]string
	if err := json.Unmarshal(f.JSON, &decoded); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if decoded["goodbye"] != "world" {
		t.Errorf("reply = %v, want goodbye=world", decoded)
	}

	if gotTopic != "hello" {
		t.Errorf("gotTopic = %q, want hello", gotTopic)
	}
	if gotPayload["payload"] != "hi" {
		t.Errorf("gotPayload = %v, want payload=hi", gotPayload)
	}
}

func TestSubscribeFailsForNonSubRepRoles(t *testing.T) {
	pub, err := Create(RolePub, uniqueName(t, "pub-bad"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer pub.Release()

	err = pub.Subscribe("x", func(n *Node, topic string, msg Message, user any) *Message { return nil }, nil)
	if err != ErrWrongRole {
		t.Fatalf("err = %v, want ErrWrongRole", err)
	}
}

func TestSendFailsForNonPubRole(t *testing.T) {
	sub, err := Create(RoleSub, uniqueName(t, "sub-bad"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sub.Release()

	err = sub.Send("x", StringField("y"))
	if err != ErrWrongRole {
		t.Fatalf("err = %v, want ErrWrongRole", err)
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	name := uniqueName(t, "dup")
	n1, err := Create(RolePub, name)
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	defer n1.Release()

	_, err = Create(RolePub, name)
	if err != ErrDuplicateName {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
}

func TestReleaseFreesNameForReuse(t *testing.T) {
	name := uniqueName(t, "reuse")
	n1, err := Create(RolePub, name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n1.Release()

	n2, err := Create(RolePub, name)
	if err != nil {
		t.Fatalf("Create after release: %v", err)
	}
	defer n2.Release()
}

func TestStartTwiceFails(t *testing.T) {
	n, err := Create(RoleMon, uniqueName(t, "mon"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer n.Release()

	if err := n.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := n.Start(); err != ErrAlreadyStarted {
		t.Fatalf("err = %v, want ErrAlreadyStarted", err)
	}
}

func TestResubscribeInvokesOnlyLatestCallback(t *testing.T) {
	sub, err := Create(RoleSub, uniqueName(t, "resub"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sub.Release()

	var calledA, calledB bool
	sub.Subscribe("t", func(n *Node, topic string, msg Message, user any) *Message {
		calledA = true
		return nil
	}, nil)
	sub.Subscribe("t", func(n *Node, topic string, msg Message, user any) *Message {
		calledB = true
		return nil
	}, nil)

	if sub.subs.Len() != 1 {
		t.Fatalf("expected exactly one subscription entry, got %d", sub.subs.Len())
	}

	msg := Message{Fields: []Field{StringField("message::t")}}
	sub.handleTransportMessage("peer", msg)

	if calledA {
		t.Error("expected original callback A to never fire after resubscribe")
	}
	if !calledB {
		t.Error("expected latest callback B to fire")
	}
}

// uniqueName gives each test its own node name so parallel subtests
// never collide on the process-wide liveNames registry.
func uniqueName(t *testing.T, prefix string) string {
	t.Helper()
	return prefix + "-" + uuid.NewString()
}

func currentPort(n *Node) int {
	return n.store.Snapshot().Port
}
