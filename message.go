package cote

import "github.com/joelguittet/go-cote/internal/transport"

// Field and Message mirror the AMP wire types one-for-one (spec §3
// "Inbound message", §4.3 "AMP field types"); they are aliased rather
// than redeclared so the conversion between the public API and the
// transport layer is free.
type (
	FieldType = transport.FieldType
	Field     = transport.Field
	Message   = transport.Message
)

const (
	FieldBlob   = transport.FieldBlob
	FieldString = transport.FieldString
	FieldBigInt = transport.FieldBigInt
	FieldJSON   = transport.FieldJSON
)

// BlobField, StringField, BigIntField and JSONField build a single
// typed AMP field. Per spec §9 ("Variadic typed message construction"),
// these replace the source's C-variadic (type, value[, size]) triples
// with plain builder functions a caller composes into a field slice.
func BlobField(b []byte) Field   { return transport.BlobField(b) }
func StringField(s string) Field { return transport.StringField(s) }
func BigIntField(n int64) Field  { return transport.BigIntField(n) }
func JSONField(raw []byte) Field { return transport.JSONField(raw) }

// Reply builds the AMP message a REP subscription callback returns to
// answer a request (spec §4.8 "reply | node, count, variadic fields |
// built AMP message").
func Reply(fields ...Field) *Message {
	return &Message{Fields: fields}
}
