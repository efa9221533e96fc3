// Package topic computes on-the-wire topic strings (spec §4.4) and
// holds the ordered subscription table subscribe/unsubscribe/dispatch
// operate on (spec §4.5).
package topic

import "strings"

const pubPrefix = "message::"

// FullTopic builds the wire-format topic string for a PUB send or SUB
// subscribe: "message::" + ("namespace::" if set) + userTopic.
func FullTopic(namespace, userTopic string) string {
	if namespace == "" {
		return pubPrefix + userTopic
	}
	return pubPrefix + namespace + "::" + userTopic
}

// StripFullTopic removes the "message::" and, if present, "namespace::"
// prefixes from a wire-format topic, returning the user-level topic the
// SUB callback is invoked with (spec §4.7).
func StripFullTopic(namespace, fullTopic string) string {
	rest := strings.TrimPrefix(fullTopic, pubPrefix)
	if namespace != "" {
		rest = strings.TrimPrefix(rest, namespace+"::")
	}
	return rest
}

// ReqRepTopic returns the wire-format topic for REQ/REP: the literal
// user topic, unmodified. It exists mainly so callers don't have to
// special-case the role when deciding whether to call FullTopic.
func ReqRepTopic(userTopic string) string {
	return userTopic
}
