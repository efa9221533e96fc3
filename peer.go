package cote

// Peer is what the node hands to the added/removed callbacks: the
// discovery-reported location of another node plus its raw JSON
// advertisement (spec GLOSSARY "Peer (discovery node)").
type Peer struct {
	Instance      string
	Address       string
	Hostname      string
	Advertisement []byte
}

// SubFunc is a subscription callback installed via Subscribe. topic is
// the user-level topic (SUB: stripped of its "message::"/namespace
// prefix; REP: the literal requested topic) and msg is the message with
// the routing field detached. Returning a non-nil *Message supplies the
// reply for REP; SUB return values are discarded (spec §4.7).
type SubFunc func(n *Node, topic string, msg Message, user any) *Message

// AddedFunc, RemovedFunc, MessageFunc and ErrorFunc are the four event
// callbacks a node can install via On (spec §6).
type (
	AddedFunc   func(n *Node, peer Peer, user any)
	RemovedFunc func(n *Node, peer Peer, user any)
	MessageFunc func(n *Node, msg Message, user any)
	ErrorFunc   func(n *Node, errText string, user any)
)
