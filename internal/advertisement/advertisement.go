// Package advertisement builds the wire-format JSON payload a cote node
// hands to the discovery adapter (spec §4.1). It starts from any
// user-supplied advertisement document and overwrites the handful of
// generated top-level keys, leaving unrecognized fields in place rather
// than round-tripping through a typed struct that would drop them.
package advertisement

import (
	"github.com/tidwall/sjson"
)

// Role-to-axon_type and topic-list-key mappings (spec §4.1, §4.6 wire
// schema).
const (
	AxonTypePubEmitter = "pub-emitter"
	AxonTypeSubEmitter = "sub-emitter"
	AxonTypeReq        = "req"
	AxonTypeRep        = "rep"

	// FixedKey is the constant every node advertises and every peer
	// matcher step checks against; spec §4.6 step 3, §6 "Constants".
	FixedKey = "$$"
)

func axonType(role string) string {
	switch role {
	case "pub":
		return AxonTypePubEmitter
	case "sub":
		return AxonTypeSubEmitter
	case "req":
		return AxonTypeReq
	case "rep":
		return AxonTypeRep
	default:
		return ""
	}
}

func topicKey(role string) string {
	switch role {
	case "pub":
		return "broadcasts"
	case "sub":
		return "subscribesTo"
	case "req":
		return "requests"
	case "rep":
		return "respondsTo"
	default:
		return ""
	}
}

// Params carries the per-node values the builder overwrites onto the
// base document.
type Params struct {
	Role      string // "pub", "sub", "req", "rep", "mon"
	Name      string
	Namespace string   // empty means "no namespace"
	Topics    []string // the role's semantically meaningful topic list
	Port      int      // bound port for PUB/REP, 0 for MON, ignored for SUB/REQ
	Base      []byte   // user-supplied advertisement JSON, or nil/empty
}

// Build returns the advertisement JSON for Params, following spec §4.1:
// a deep copy of Base (or `{}` if absent) with type/name/namespace/topic
// list/key/axon_type/port set or overwritten.
func Build(p Params) ([]byte, error) {
	doc := p.Base
	if len(doc) == 0 {
		doc = []byte("{}")
	}

	var err error
	docType := "service"
	if p.Role == "mon" {
		docType = "monitor"
	}

	doc, err = sjson.SetBytes(doc, "type", docType)
	if err != nil {
		return nil, err
	}
	doc, err = sjson.SetBytes(doc, "name", p.Name)
	if err != nil {
		return nil, err
	}

	if p.Namespace != "" {
		doc, err = sjson.SetBytes(doc, "namespace", p.Namespace)
		if err != nil {
			return nil, err
		}
	} else {
		doc, err = sjson.DeleteBytes(doc, "namespace")
		if err != nil {
			return nil, err
		}
	}

	if key := topicKey(p.Role); key != "" {
		if p.Topics != nil {
			doc, err = sjson.SetBytes(doc, key, p.Topics)
			if err != nil {
				return nil, err
			}
		} else {
			doc, err = sjson.DeleteBytes(doc, key)
			if err != nil {
				return nil, err
			}
		}
	}

	doc, err = sjson.SetBytes(doc, "key", FixedKey)
	if err != nil {
		return nil, err
	}

	if at := axonType(p.Role); at != "" {
		doc, err = sjson.SetBytes(doc, "axon_type", at)
		if err != nil {
			return nil, err
		}
	}

	switch p.Role {
	case "pub", "rep":
		doc, err = sjson.SetBytes(doc, "port", p.Port)
		if err != nil {
			return nil, err
		}
	case "mon":
		doc, err = sjson.SetBytes(doc, "port", 0)
		if err != nil {
			return nil, err
		}
	default: // sub, req: omit port entirely
		doc, err = sjson.DeleteBytes(doc, "port")
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}
