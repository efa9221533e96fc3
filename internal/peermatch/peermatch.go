// Package peermatch implements the decision pipeline that runs on each
// discovery "added"/"updated" peer event (spec §4.6): does the local
// node accept this peer at all, and if it is an outbound consumer role
// (SUB, REQ), should it connect to it.
package peermatch

import (
	"regexp"

	"github.com/joelguittet/go-cote/internal/advertisement"
)

// expectedPeerAxonType is the axon_type a peer advertisement must carry
// for each local role (spec §4.6 step 2). MON has no entry: role
// pairing is skipped for it.
var expectedPeerAxonType = map[string]string{
	"pub": advertisement.AxonTypeSubEmitter,
	"sub": advertisement.AxonTypePubEmitter,
	"req": advertisement.AxonTypeRep,
	"rep": advertisement.AxonTypeReq,
}

// Local is the subset of node state the matcher needs, read once under
// the options mutex by the caller (spec §5: "peer matcher steps 4-5
// while reading namespace/useHostNames/topic lists").
type Local struct {
	Role         string
	Namespace    string
	HasNamespace bool
	UseHostNames bool
	Topics       []string // the role's topic list; nil means "accept all" (step 5 degenerate case)
}

// Decision reports what the caller should do with one peer.
type Decision struct {
	Accept  bool // advertisement/role/key/namespace all checked out
	Connect bool // Accept is true, this is an outbound consumer role, and topics intersect
	Host    string
	Port    int
}

// IsConnectedFunc reports whether the node already has an outbound
// connection to (host, port); the matcher uses it to stay idempotent
// per peer (spec §4.3, §4.6 step 5).
type IsConnectedFunc func(host string, port int) bool

// Decide runs the five-step pipeline against one peer's raw
// advertisement. peerAddress/peerHostname are the address and hostname
// discovery reported for the peer; which one is used to connect
// depends on Local.UseHostNames. A nil Local.Topics counts as matching
// any peer topic list, so such a node connects to every peer that
// passes the earlier checks.
func Decide(local Local, peerAddress, peerHostname string, peerRaw []byte, isConnected IsConnectedFunc) Decision {
	// Step 1: existence of advertisement.
	if len(peerRaw) == 0 {
		return Decision{}
	}
	peer := advertisement.Parse(peerRaw)

	// Step 2: role pairing, skipped for MON.
	if local.Role != "mon" {
		want, ok := expectedPeerAxonType[local.Role]
		if !ok || peer.AxonType != want {
			return Decision{}
		}
	}

	// Step 3: key check.
	if peer.Key != advertisement.FixedKey {
		return Decision{}
	}

	// Step 4: namespace check.
	if local.HasNamespace {
		if !peer.HasNS || peer.Namespace != local.Namespace {
			return Decision{}
		}
	} else if peer.HasNS {
		return Decision{}
	}

	decision := Decision{Accept: true}

	// Step 5/6: outbound consumer roles only.
	if local.Role != "sub" && local.Role != "req" {
		return decision
	}

	if !peer.HasPort || peer.Port <= 0 {
		return decision
	}

	host := peerAddress
	if local.UseHostNames {
		host = peerHostname
	}

	if isConnected != nil && isConnected(host, peer.Port) {
		return decision // already connected; drop silently (idempotent)
	}

	if !topicsIntersect(local.Topics, peer.Topics) {
		return decision
	}

	decision.Connect = true
	decision.Host = host
	decision.Port = peer.Port
	return decision
}

// topicsIntersect reports whether any clientPattern in clientPatterns
// matches, as a POSIX extended regular expression, any string in
// serverStrings. A nil clientPatterns list means "accept all" (spec
// §4.6 step 5 degenerate case).
func topicsIntersect(clientPatterns, serverStrings []string) bool {
	if clientPatterns == nil {
		return true
	}
	for _, pattern := range clientPatterns {
		re, err := regexp.CompilePOSIX(pattern)
		if err != nil {
			continue
		}
		for _, s := range serverStrings {
			if re.MatchString(s) {
				return true
			}
		}
	}
	return false
}
