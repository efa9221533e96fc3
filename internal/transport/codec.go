package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes a Message to/from a stream. It is the
// swappable collaborator spec §1 treats as a replaceable wire-codec
// dependency; the default implementation below is msgpack-based.
type Codec interface {
	Encode(w io.Writer, msg Message) error
	Decode(r io.Reader) (Message, error)
}

// MsgpackCodec frames each Message as a 4-byte big-endian length prefix
// followed by a msgpack-encoded wireMessage. msgpack is a natural fit
// for the BLOB/STRING/BIGINT/JSON field union: it keeps binary blobs
// raw instead of base64-inflating them the way a JSON-only framing
// would.
type MsgpackCodec struct{}

type wireField struct {
	T FieldType `msgpack:"t"`
	B []byte    `msgpack:"b,omitempty"`
	S string    `msgpack:"s,omitempty"`
	N int64     `msgpack:"n,omitempty"`
}

type wireMessage struct {
	Fields []wireField `msgpack:"f"`
}

const maxFrameLen = 64 << 20 // 64MiB guards against a corrupt length prefix wedging the reader

func (MsgpackCodec) Encode(w io.Writer, msg Message) error {
	wm := wireMessage{Fields: make([]wireField, len(msg.Fields))}
	for i, f := range msg.Fields {
		wf := wireField{T: f.Type}
		switch f.Type {
		case FieldBlob:
			wf.B = f.Blob
		case FieldString:
			wf.S = f.Str
		case FieldBigInt:
			wf.N = f.BigInt
		case FieldJSON:
			wf.B = f.JSON
		default:
			return fmt.Errorf("encode: unknown field type %v", f.Type)
		}
		wm.Fields[i] = wf
	}

	payload, err := msgpack.Marshal(&wm)
	if err != nil {
		return fmt.Errorf("encode: marshal: %w", err)
	}
	if len(payload) > maxFrameLen {
		return fmt.Errorf("encode: frame too large (%d bytes)", len(payload))
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("encode: write length: %w", err)
	}
	if _, err := bw.Write(payload); err != nil {
		return fmt.Errorf("encode: write payload: %w", err)
	}
	return bw.Flush()
}

func (MsgpackCodec) Decode(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Message{}, err // EOF propagates to caller untouched
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return Message{}, fmt.Errorf("decode: frame too large (%d bytes)", n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("decode: read payload: %w", err)
	}

	var wm wireMessage
	if err := msgpack.Unmarshal(payload, &wm); err != nil {
		return Message{}, fmt.Errorf("decode: unmarshal: %w", err)
	}

	msg := Message{Fields: make([]Field, len(wm.Fields))}
	for i, wf := range wm.Fields {
		switch wf.T {
		case FieldBlob:
			msg.Fields[i] = Field{Type: FieldBlob, Blob: wf.B}
		case FieldString:
			msg.Fields[i] = Field{Type: FieldString, Str: wf.S}
		case FieldBigInt:
			msg.Fields[i] = Field{Type: FieldBigInt, BigInt: wf.N}
		case FieldJSON:
			msg.Fields[i] = Field{Type: FieldJSON, JSON: wf.B}
		default:
			return Message{}, fmt.Errorf("decode: unknown field type %d", wf.T)
		}
	}
	return msg, nil
}
