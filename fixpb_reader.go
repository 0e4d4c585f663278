// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package fixpb

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Reader walks the fields of one serialized message. Errors are sticky:
// after the first failure every accessor returns a zero value, Next
// returns false and Finish returns the error.
type Reader struct {
	conv
	buf   []byte
	field []byte
	num   protowire.Number
	typ   protowire.Type
}

func NewReader(message string, buf []byte, opts *ConvertOptions) *Reader {
	return &Reader{
		conv: conv{message: message, opts: opts},
		buf:  buf,
	}
}

// Next advances to the next field, returning false at the end of input or
// after an error.
func (r *Reader) Next() bool {
	if r.err != nil || len(r.buf) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return false
	}
	r.field = r.buf
	r.buf = r.buf[n:]
	r.num = num
	r.typ = typ
	return true
}

func (r *Reader) Number() protowire.Number {
	return r.num
}

func (r *Reader) Type() protowire.Type {
	return r.typ
}

// Finish returns the first error of the conversion. Generated code calls
// it after the last field and after checking required fields.
func (r *Reader) Finish() error {
	return r.err
}

func (r *Reader) fieldName() string {
	return numberName(r.num)
}

func (r *Reader) malformed(err error) {
	r.Fail(r.fieldName(), "malformed input: %v", err)
}

func (r *Reader) expect(typ protowire.Type) bool {
	if r.err != nil {
		return false
	}
	if r.typ != typ {
		r.Fail(r.fieldName(), "wire type %d, want %d", r.typ, typ)
		return false
	}
	return true
}

// Skip discards the value of the current field.
func (r *Reader) Skip() {
	r.Raw()
}

// Raw consumes the current field value and returns the field's complete
// encoding, tag included.
func (r *Reader) Raw() []byte {
	if r.err != nil {
		return nil
	}
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return nil
	}
	r.buf = r.buf[n:]
	return r.field[:len(r.field)-len(r.buf)]
}

// Scalars {{{

func (r *Reader) varint() uint64 {
	if !r.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) fixed32() uint32 {
	if !r.expect(protowire.Fixed32Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) fixed64() uint64 {
	if !r.expect(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) Bool() bool {
	return r.varint() != 0
}

func (r *Reader) Int32() int32 {
	return int32(r.varint())
}

func (r *Reader) Int64() int64 {
	return int64(r.varint())
}

func (r *Reader) Uint32() uint32 {
	return uint32(r.varint())
}

func (r *Reader) Uint64() uint64 {
	return r.varint()
}

func (r *Reader) Sint32() int32 {
	return int32(protowire.DecodeZigZag(r.varint() & math.MaxUint32))
}

func (r *Reader) Sint64() int64 {
	return protowire.DecodeZigZag(r.varint())
}

func (r *Reader) Enum() int32 {
	return int32(r.varint())
}

func (r *Reader) Fixed32() uint32 {
	return r.fixed32()
}

func (r *Reader) Sfixed32() int32 {
	return int32(r.fixed32())
}

func (r *Reader) Float() float32 {
	return math.Float32frombits(r.fixed32())
}

func (r *Reader) Fixed64() uint64 {
	return r.fixed64()
}

func (r *Reader) Sfixed64() int64 {
	return int64(r.fixed64())
}

func (r *Reader) Double() float64 {
	return math.Float64frombits(r.fixed64())
}

// }}}

// Length-delimited values {{{

// Bytes returns the payload of a length-delimited field. The result
// aliases the input buffer.
func (r *Reader) Bytes() []byte {
	if !r.expect(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return nil
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) StringValue() string {
	return string(r.Bytes())
}

// Text reads a string of at most max bytes.
func (r *Reader) Text(field string, max int) string {
	v := r.Bytes()
	if !r.CheckLen(field, len(v), max) {
		return ""
	}
	return string(v)
}

// Blob reads a bytes value of at most max bytes into a new slice.
func (r *Reader) Blob(field string, max int) []byte {
	v := r.Bytes()
	if !r.CheckLen(field, len(v), max) {
		return nil
	}
	return append([]byte(nil), v...)
}

// Block reads a bytes value of exactly len(dst) bytes into dst.
func (r *Reader) Block(field string, dst []byte) {
	v := r.Bytes()
	if r.CheckExact(field, len(v), len(dst)) {
		copy(dst, v)
	}
}

// Message passes the payload of a sub-message field to fromWire, typically
// the sub-message's FromWire method.
func (r *Reader) Message(fromWire func(b []byte, opts *ConvertOptions) error) {
	v := r.Bytes()
	if r.err != nil {
		return
	}
	r.propagate(fromWire(v, r.opts))
}

// }}}

// Packed calls fn once for each element of a repeated scalar field, which
// may be encoded either packed or as a single element of wire type elem.
// fn reads the element from the Reader it is given.
func (r *Reader) Packed(elem protowire.Type, fn func(r *Reader)) {
	if r.err != nil {
		return
	}
	if r.typ != protowire.BytesType || elem == protowire.BytesType {
		fn(r)
		return
	}
	payload := r.Bytes()
	sub := &Reader{
		conv: r.conv,
		buf:  payload,
		num:  r.num,
		typ:  elem,
	}
	for len(sub.buf) > 0 && sub.err == nil {
		before := len(sub.buf)
		fn(sub)
		if sub.err == nil && len(sub.buf) == before {
			sub.Fail(sub.fieldName(), "packed element was not consumed")
		}
	}
	r.propagate(sub.err)
}

// Callback hands the current field to a user-supplied decoder. When the
// callback has no decoder the field is skipped.
func (r *Reader) Callback(cb *Callback) {
	if r.err != nil {
		return
	}
	if cb == nil || cb.Decode == nil {
		r.Skip()
		return
	}
	start := r.buf
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.buf)
	if n < 0 {
		r.malformed(protowire.ParseError(n))
		return
	}
	r.buf = r.buf[n:]
	sub := &Reader{
		conv:  conv{message: r.message, opts: r.opts},
		buf:   start[:n],
		field: r.field,
		num:   r.num,
		typ:   r.typ,
	}
	if err := cb.Decode(sub); err != nil && sub.err == nil {
		sub.Fail(sub.fieldName(), "callback: %v", err)
	}
	r.propagate(sub.err)
}
