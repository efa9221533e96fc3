// Package options holds the mutable configuration bag shared by a cote
// node: timing, network and discovery knobs, plus namespace and topic
// lists that feed the advertisement builder and the topic namer.
//
// Most timing/network/discovery knobs are only stored. The node reads
// address and port (for the transport bind), useHostNames (for the peer
// matcher), and the nodeTimeout/checkInterval defaults once, when it
// creates its discovery adapter. No other knob is passed to discovery,
// and setting nodeTimeout or checkInterval later does not change it.
//
// Options itself is a plain value type with no locking; Store wraps it
// with the mutex the rest of the node relies on (every Set mutation runs
// under that lock; advertisement rebuilds and peer-matcher reads use a
// deep copy taken under it). Callers that need a copy for use outside the lock call
// Store.Snapshot, which returns the Clone below.
package options

import (
	"encoding/json"
	"time"
)

// Defaults mirror the discovery adapter's defaults (spec §4.2).
const (
	DefaultHelloInterval  = 2000 * time.Millisecond
	DefaultCheckInterval  = 4000 * time.Millisecond
	DefaultNodeTimeout    = 5000 * time.Millisecond
	DefaultMasterTimeout  = 6000 * time.Millisecond
	DefaultKey            = "$$"
	defaultMasterRequired = 0
)

// Options is the full set of role-independent and role-specific knobs a
// node can carry. Only one of the four topic lists is semantically
// meaningful for a given role, but all may be populated (spec §3).
type Options struct {
	// Timing
	HelloInterval time.Duration
	CheckInterval time.Duration
	NodeTimeout   time.Duration
	MasterTimeout time.Duration

	// Network binding
	Address       string
	Port          int // listener port Start binds to (0 = OS-assigned); overwritten with the bound port after bind
	Broadcast     string
	Multicast     string
	MulticastTTL  int
	Unicast       bool
	Hostname      string
	UseHostNames  bool

	// Discovery knobs
	Key             string
	MastersRequired int
	Weight          int
	Client          bool
	ReuseAddr       bool
	IgnoreProcess   bool
	IgnoreInstance  bool

	// Messaging knobs
	Namespace     string
	Advertisement json.RawMessage
	Broadcasts    []string
	SubscribesTo  []string
	Requests      []string
	RespondsTo    []string
}

// New returns Options pre-filled with the discovery adapter's documented
// defaults (spec §4.2).
func New() *Options {
	return &Options{
		HelloInterval:   DefaultHelloInterval,
		CheckInterval:   DefaultCheckInterval,
		NodeTimeout:     DefaultNodeTimeout,
		MasterTimeout:   DefaultMasterTimeout,
		Key:             DefaultKey,
		MastersRequired: defaultMasterRequired,
	}
}

// Clone returns a deep copy suitable for use outside the caller's lock.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	out := *o
	out.Advertisement = cloneRaw(o.Advertisement)
	out.Broadcasts = cloneStrings(o.Broadcasts)
	out.SubscribesTo = cloneStrings(o.SubscribesTo)
	out.Requests = cloneStrings(o.Requests)
	out.RespondsTo = cloneStrings(o.RespondsTo)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(json.RawMessage, len(in))
	copy(out, in)
	return out
}

// TopicListFor returns the semantically meaningful topic list for role,
// by convention: PUB/broadcasts, SUB/subscribesTo, REQ/requests,
// REP/respondsTo. MON has none.
func (o *Options) TopicListFor(role string) []string {
	switch role {
	case "pub":
		return o.Broadcasts
	case "sub":
		return o.SubscribesTo
	case "req":
		return o.Requests
	case "rep":
		return o.RespondsTo
	default:
		return nil
	}
}
