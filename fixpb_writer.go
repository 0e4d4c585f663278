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

// Writer appends the fields of one message in wire format. Like Reader,
// its errors are sticky.
type Writer struct {
	conv
	buf []byte
}

// NewWriter returns a Writer that appends to buf.
func NewWriter(message string, buf []byte, opts *ConvertOptions) *Writer {
	return &Writer{
		conv: conv{message: message, opts: opts},
		buf:  buf,
	}
}

// Finish returns the encoded message, or the first error.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

func (w *Writer) varint(num protowire.Number, v uint64) {
	if w.err != nil {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *Writer) fixed32(num protowire.Number, v uint32) {
	if w.err != nil {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.Fixed32Type)
	w.buf = protowire.AppendFixed32(w.buf, v)
}

func (w *Writer) fixed64(num protowire.Number, v uint64) {
	if w.err != nil {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.Fixed64Type)
	w.buf = protowire.AppendFixed64(w.buf, v)
}

func (w *Writer) Bool(num protowire.Number, v bool) {
	w.varint(num, protowire.EncodeBool(v))
}

// Int32 sign-extends negative values to ten bytes, as every protobuf
// implementation does.
func (w *Writer) Int32(num protowire.Number, v int32) {
	w.varint(num, uint64(int64(v)))
}

func (w *Writer) Int64(num protowire.Number, v int64) {
	w.varint(num, uint64(v))
}

func (w *Writer) Uint32(num protowire.Number, v uint32) {
	w.varint(num, uint64(v))
}

func (w *Writer) Uint64(num protowire.Number, v uint64) {
	w.varint(num, v)
}

func (w *Writer) Sint32(num protowire.Number, v int32) {
	w.varint(num, protowire.EncodeZigZag(int64(v))&math.MaxUint32)
}

func (w *Writer) Sint64(num protowire.Number, v int64) {
	w.varint(num, protowire.EncodeZigZag(v))
}

func (w *Writer) Enum(num protowire.Number, v int32) {
	w.Int32(num, v)
}

func (w *Writer) Fixed32(num protowire.Number, v uint32) {
	w.fixed32(num, v)
}

func (w *Writer) Sfixed32(num protowire.Number, v int32) {
	w.fixed32(num, uint32(v))
}

func (w *Writer) Float(num protowire.Number, v float32) {
	w.fixed32(num, math.Float32bits(v))
}

func (w *Writer) Fixed64(num protowire.Number, v uint64) {
	w.fixed64(num, v)
}

func (w *Writer) Sfixed64(num protowire.Number, v int64) {
	w.fixed64(num, uint64(v))
}

func (w *Writer) Double(num protowire.Number, v float64) {
	w.fixed64(num, math.Float64bits(v))
}

func (w *Writer) Bytes(num protowire.Number, v []byte) {
	if w.err != nil {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, v)
}

func (w *Writer) String(num protowire.Number, v string) {
	if w.err != nil {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, v)
}

// Text writes a string after checking it against its capacity.
func (w *Writer) Text(num protowire.Number, field string, v string, max int) {
	if w.CheckLen(field, len(v), max) {
		w.String(num, v)
	}
}

// Blob writes a bytes value after checking it against its capacity.
func (w *Writer) Blob(num protowire.Number, field string, v []byte, max int) {
	if w.CheckLen(field, len(v), max) {
		w.Bytes(num, v)
	}
}

// Message writes a sub-message produced by toWire, typically the
// sub-message's ToWire method.
func (w *Writer) Message(
	num protowire.Number,
	toWire func(b []byte, opts *ConvertOptions) ([]byte, error),
) {
	if w.err != nil {
		return
	}
	payload, err := toWire(nil, w.opts)
	if err != nil {
		w.propagate(err)
		return
	}
	w.Bytes(num, payload)
}

// Raw appends fields that are already encoded.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}

// Callback hands field num to a user-supplied encoder. A callback without
// an encoder writes nothing.
func (w *Writer) Callback(num protowire.Number, cb *Callback) {
	if w.err != nil || cb == nil || cb.Encode == nil {
		return
	}
	if err := cb.Encode(w, num); err != nil && w.err == nil {
		w.Fail(numberName(num), "callback: %v", err)
	}
}

// Callback is the storage of a field whose value is converted by user
// code. Decode is called once per occurrence of the field, with a Reader
// positioned at its value; Encode writes every occurrence.
type Callback struct {
	Decode func(r *Reader) error
	Encode func(w *Writer, num protowire.Number) error
}
