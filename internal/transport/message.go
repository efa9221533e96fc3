// Package transport implements the point-to-point AMP-style wire
// protocol cote nodes speak to each other: a length-prefixed sequence
// of typed fields over a plain TCP socket, supporting fire-and-forget
// sends as well as request/reply round trips.
package transport

import "fmt"

// FieldType tags the payload carried by a Field (spec §3, §4.3 "AMP
// field types").
type FieldType uint8

const (
	FieldBlob FieldType = iota
	FieldString
	FieldBigInt
	FieldJSON
)

func (t FieldType) String() string {
	switch t {
	case FieldBlob:
		return "blob"
	case FieldString:
		return "string"
	case FieldBigInt:
		return "bigint"
	case FieldJSON:
		return "json"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Field is one typed value in an AMP message. Exactly one of the
// accessors matching Type is meaningful.
type Field struct {
	Type FieldType

	Blob   []byte
	Str    string
	BigInt int64
	JSON   []byte // raw JSON text
}

// BlobField, StringField, BigIntField and JSONField build a Field of
// the matching type; they are the constructors callers are expected to
// use rather than populating Field directly.
func BlobField(b []byte) Field     { return Field{Type: FieldBlob, Blob: b} }
func StringField(s string) Field   { return Field{Type: FieldString, Str: s} }
func BigIntField(n int64) Field    { return Field{Type: FieldBigInt, BigInt: n} }
func JSONField(raw []byte) Field   { return Field{Type: FieldJSON, JSON: raw} }

// Message is an ordered sequence of Fields. Spec invariant: a message
// has at least one field, otherwise it is dropped by the router.
type Message struct {
	Fields []Field
}

// First returns the first field and true, or a zero Field and false if
// the message is empty.
func (m Message) First() (Field, bool) {
	if len(m.Fields) == 0 {
		return Field{}, false
	}
	return m.Fields[0], true
}

// Rest returns every field after the first.
func (m Message) Rest() []Field {
	if len(m.Fields) <= 1 {
		return nil
	}
	return m.Fields[1:]
}

// Valid reports whether m satisfies the "at least one field" invariant.
func (m Message) Valid() bool {
	return len(m.Fields) > 0
}
