package frame

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// encoder appends protobuf wire-format fields. Zero scalar values are
// omitted, matching proto3 semantics; nested messages are always written so
// an empty message still marks its presence.
type encoder struct {
	buf []byte
}

func (e *encoder) uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

func (e *encoder) uint32(num protowire.Number, v uint32) {
	e.uint64(num, uint64(v))
}

func (e *encoder) enum(num protowire.Number, v int32) {
	e.uint64(num, uint64(int64(v)))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if v {
		e.uint64(num, 1)
	}
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

func (e *encoder) message(num protowire.Number, fn func(*encoder)) {
	var inner encoder
	fn(&inner)
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, inner.buf)
}

func (e *encoder) packed(num protowire.Number, vs []uint64) {
	if len(vs) == 0 {
		return
	}
	var inner []byte
	for _, v := range vs {
		inner = protowire.AppendVarint(inner, v)
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, inner)
}

// field is one decoded wire field. Only varint and length-delimited fields
// reach the schema; fixed-width fields are skipped as unknown.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

// parse walks every field of a message and hands known wire types to fn.
func parse(msg string, b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return violation("%s: %v", msg, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return violation("%s.%d: %v", msg, num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return fmt.Errorf("%s.%d: %w", msg, num, err)
		}
	}
	return nil
}

func (f field) wrongType() error {
	return violation("unexpected wire type %d", f.typ)
}

func (f field) uint64() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, f.wrongType()
	}
	return f.v, nil
}

func (f field) uint32() (uint32, error) {
	v, err := f.uint64()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, violation("value %d overflows uint32", v)
	}
	return uint32(v), nil
}

func (f field) enum() (int32, error) {
	v, err := f.uint64()
	return int32(int64(v)), err
}

func (f field) bool() (bool, error) {
	v, err := f.uint64()
	return v != 0, err
}

func (f field) string() (string, error) {
	if f.typ != protowire.BytesType {
		return "", f.wrongType()
	}
	if !utf8.Valid(f.b) {
		return "", violation("invalid UTF-8 string")
	}
	return string(f.b), nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.wrongType()
	}
	return bytes.Clone(f.b), nil
}

func (f field) message() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.wrongType()
	}
	return f.b, nil
}

// packed accepts both the packed and the unpacked encoding of a repeated
// varint field.
func (f field) packed() ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return []uint64{f.v}, nil
	}
	b := f.b
	var out []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, violation("packed varint: %v", protowire.ParseError(n))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

// checkLen validates a fixed-size identifier. Empty values pass unless
// required is set.
func checkLen(name string, v []byte, size int, required bool) error {
	if len(v) == 0 {
		if required {
			return violation("%s is required", name)
		}
		return nil
	}
	if len(v) != size {
		return violation("%s must be %d bytes, got %d", name, size, len(v))
	}
	return nil
}

// countSet returns how many of the given variant flags are set.
func countSet(set ...bool) int {
	n := 0
	for _, s := range set {
		if s {
			n++
		}
	}
	return n
}

// appendString writes a string field even when it is empty, for repeated
// fields where every element counts.
func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendVarint writes a varint field even when it is zero.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
