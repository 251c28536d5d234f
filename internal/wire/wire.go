// Package wire provides the small protobuf-compatible encode/decode
// helpers that FBSP, FBDP and ICCP dataframes are built on.
//
// The retrieval pack this module was built from carries no generated
// `.proto` Go package for any of the Firebird Butler dataframes (peer
// identification, service descriptor, OPEN dataframe, error description,
// endpoints map, configuration blob), and protoc is not available to this
// build. Rather than hand-write a generated-code-shaped proto.Message
// (which needs a protoreflect descriptor we have no generator for), these
// dataframes are written directly against
// google.golang.org/protobuf/encoding/protowire, the same low-level
// varint/length-delimited primitives the generated code would use. Field
// numbers below are fixed and documented per type so the wire layout is
// stable and interoperable with any other FBSP/FBDP/ICCP peer that
// happens to use real generated code for the same field numbers.
package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Writer accumulates length-delimited/varint fields, in the order they
// are appended, into a single message buffer.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated message bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// String appends a UTF-8 string field. Empty strings are omitted, as
// proto3 does for default values.
func (w *Writer) String(field protowire.Number, v string) *Writer {
	if v == "" {
		return w
	}
	w.buf = protowire.AppendTag(w.buf, field, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
	return w
}

// Bytes_ appends a raw bytes field.
func (w *Writer) Bytes_(field protowire.Number, v []byte) *Writer {
	if len(v) == 0 {
		return w
	}
	w.buf = protowire.AppendTag(w.buf, field, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
	return w
}

// Varint appends an unsigned integer field.
func (w *Writer) Varint(field protowire.Number, v uint64) *Writer {
	if v == 0 {
		return w
	}
	w.buf = protowire.AppendTag(w.buf, field, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
	return w
}

// Int appends a signed integer field using zig-zag-free varint, matching
// proto3 `int32`/`int64` semantics (non-negative fields only, which is
// all this module needs).
func (w *Writer) Int(field protowire.Number, v int) *Writer {
	if v == 0 {
		return w
	}
	return w.Varint(field, uint64(v))
}

// Message appends an embedded message field given its already-marshalled
// bytes.
func (w *Writer) Message(field protowire.Number, inner []byte) *Writer {
	w.buf = protowire.AppendTag(w.buf, field, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, inner)
	return w
}

// RawField is one decoded top-level field of a message.
type RawField struct {
	Num    protowire.Number
	Type   protowire.Type
	Value  []byte // populated for BytesType (string/bytes/submessage)
	Varint uint64 // populated for VarintType
}

// ParseFields decodes b into its top-level fields in wire order. Varint
// and bytes fields are returned whatever their field number; each
// dataframe's Unmarshal ignores the numbers it does not know, matching
// protobuf's forward-compatibility rule. Fixed32/Fixed64 fields are
// consumed and discarded since no dataframe in this module uses them.
func ParseFields(b []byte) ([]RawField, error) {
	var fields []RawField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			fields = append(fields, RawField{Num: num, Type: typ, Varint: v})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			fields = append(fields, RawField{Num: num, Type: typ, Value: v})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return fields, nil
}

// String returns the UTF-8 string value of a BytesType field.
func (f RawField) String() string { return string(f.Value) }
