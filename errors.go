package cote

import "errors"

// Sentinel errors a caller may branch on with errors.Is. Every other
// failure reported to the immediate caller is wrapped with one of
// these or returned as a plain fmt.Errorf-wrapped error; nothing in the
// core is fatal (spec §7): the node keeps running after any of these.
var (
	// ErrWrongRole is returned when an operation is attempted on a role
	// that does not support it (e.g. Subscribe on a PUB node, Send on a
	// REP node).
	ErrWrongRole = errors.New("cote: operation not valid for this role")

	// ErrAlreadyStarted is returned by Start if the node was already
	// started.
	ErrAlreadyStarted = errors.New("cote: node already started")

	// ErrNotConnected is returned when a send path has no matching
	// connected peer to deliver to.
	ErrNotConnected = errors.New("cote: not connected to any matching peer")

	// ErrReplyTimeout is returned by Request when no reply arrives
	// within the caller-supplied timeout.
	ErrReplyTimeout = errors.New("cote: reply timeout")

	// ErrDuplicateName is returned by Create when another live node in
	// this process already holds the requested name.
	ErrDuplicateName = errors.New("cote: duplicate node name")

	// ErrInvalidMessage is returned when a caller supplies a message
	// with no fields; the wire invariant requires at least one.
	ErrInvalidMessage = errors.New("cote: message must have at least one field")

	// ErrReleased is returned by any operation attempted on a node
	// after Release.
	ErrReleased = errors.New("cote: node has been released")
)
