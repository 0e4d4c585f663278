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

package fixpb_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"go.fixpb.dev/fixpb"
)

func collectHook() (*fixpb.ConvertOptions, *[]fixpb.Diagnostic) {
	var got []fixpb.Diagnostic
	opts := &fixpb.ConvertOptions{
		Hook: func(d fixpb.Diagnostic) { got = append(got, d) },
	}
	return opts, &got
}

func TestScalarRoundTrip(t *testing.T) {
	t.Parallel()

	w := fixpb.NewWriter("demo.All", nil, nil)
	w.Bool(1, true)
	w.Int32(2, -5)
	w.Int64(3, math.MinInt64)
	w.Uint32(4, math.MaxUint32)
	w.Uint64(5, math.MaxUint64)
	w.Sint32(6, -1)
	w.Sint64(7, math.MinInt64)
	w.Enum(8, 3)
	w.Fixed32(9, 0xDEADBEEF)
	w.Sfixed32(10, -9)
	w.Float(11, 1.5)
	w.Fixed64(12, 1<<60)
	w.Sfixed64(13, -1<<60)
	w.Double(14, -2.25)
	w.String(15, "hello")
	w.Bytes(16, []byte{0, 1, 2})
	buf, err := w.Finish()
	require.NoError(t, err)

	r := fixpb.NewReader("demo.All", buf, nil)
	seen := 0
	for r.Next() {
		seen++
		switch r.Number() {
		case 1:
			assert.True(t, r.Bool())
		case 2:
			assert.Equal(t, int32(-5), r.Int32())
		case 3:
			assert.Equal(t, int64(math.MinInt64), r.Int64())
		case 4:
			assert.Equal(t, uint32(math.MaxUint32), r.Uint32())
		case 5:
			assert.Equal(t, uint64(math.MaxUint64), r.Uint64())
		case 6:
			assert.Equal(t, int32(-1), r.Sint32())
		case 7:
			assert.Equal(t, int64(math.MinInt64), r.Sint64())
		case 8:
			assert.Equal(t, int32(3), r.Enum())
		case 9:
			assert.Equal(t, uint32(0xDEADBEEF), r.Fixed32())
		case 10:
			assert.Equal(t, int32(-9), r.Sfixed32())
		case 11:
			assert.Equal(t, float32(1.5), r.Float())
		case 12:
			assert.Equal(t, uint64(1<<60), r.Fixed64())
		case 13:
			assert.Equal(t, int64(-1<<60), r.Sfixed64())
		case 14:
			assert.Equal(t, -2.25, r.Double())
		case 15:
			assert.Equal(t, "hello", r.StringValue())
		case 16:
			assert.Equal(t, []byte{0, 1, 2}, r.Bytes())
		default:
			r.Skip()
		}
	}
	require.NoError(t, r.Finish())
	assert.Equal(t, 16, seen)
}

func TestNegativeInt32IsTenBytes(t *testing.T) {
	t.Parallel()

	buf, err := func() ([]byte, error) {
		w := fixpb.NewWriter("demo.Neg", nil, nil)
		w.Int32(1, -1)
		return w.Finish()
	}()
	require.NoError(t, err)
	assert.Len(t, buf, 1+fixpb.MaxVarintLen)
	assert.Len(t, protowire.AppendVarint(nil, math.MaxUint64), fixpb.MaxVarintLen)
}

func TestPackedAndUnpacked(t *testing.T) {
	t.Parallel()

	var packed []byte
	for _, v := range []uint64{1, 2, 300} {
		packed = protowire.AppendVarint(packed, v)
	}
	var buf []byte
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendBytes(buf, packed)
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 4)

	var got []uint32
	r := fixpb.NewReader("demo.Bag", buf, nil)
	for r.Next() {
		r.Packed(protowire.VarintType, func(r *fixpb.Reader) {
			got = append(got, r.Uint32())
		})
	}
	require.NoError(t, r.Finish())
	assert.Equal(t, []uint32{1, 2, 300, 4}, got)
}

func TestPackedOverflow(t *testing.T) {
	t.Parallel()

	var packed []byte
	for _, v := range []uint64{1, 2, 3} {
		packed = protowire.AppendVarint(packed, v)
	}
	buf := protowire.AppendTag(nil, 2, protowire.BytesType)
	buf = protowire.AppendBytes(buf, packed)

	var scores [2]uint32
	count := 0
	opts, diags := collectHook()
	r := fixpb.NewReader("demo.Bag", buf, opts)
	for r.Next() {
		r.Packed(protowire.VarintType, func(r *fixpb.Reader) {
			if !r.CheckCount("scores", count+1, len(scores)) {
				return
			}
			scores[count] = r.Uint32()
			count++
		})
	}
	err := r.Finish()
	require.Error(t, err)

	var convErr *fixpb.ConvertError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "demo.Bag", convErr.Message)
	assert.Equal(t, "scores", convErr.Field)
	assert.Equal(t, "fixpb: demo.Bag.scores: 3 elements exceed the capacity of 2", err.Error())
	assert.Equal(t, [2]uint32{1, 2}, scores)
	require.Len(t, *diags, 1)
	assert.Equal(t, fixpb.Rejected, (*diags)[0].Kind)
}

func TestWireTypeMismatch(t *testing.T) {
	t.Parallel()

	buf := protowire.AppendTag(nil, 1, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 7)

	opts, diags := collectHook()
	r := fixpb.NewReader("demo.Flag", buf, opts)
	require.True(t, r.Next())
	assert.False(t, r.Bool())
	assert.False(t, r.Next())

	var convErr *fixpb.ConvertError
	require.ErrorAs(t, r.Finish(), &convErr)
	assert.Equal(t, "#1", convErr.Field)
	require.Len(t, *diags, 1)
	assert.Equal(t, "#1", (*diags)[0].Field)
}

func TestTruncatedInput(t *testing.T) {
	t.Parallel()

	buf := protowire.AppendTag(nil, 3, protowire.BytesType)
	buf = protowire.AppendVarint(buf, 10)
	buf = append(buf, "short"...)

	r := fixpb.NewReader("demo.Text", buf, nil)
	require.True(t, r.Next())
	assert.Nil(t, r.Bytes())
	assert.ErrorContains(t, r.Finish(), "malformed input")
}

func TestTextCapacity(t *testing.T) {
	t.Parallel()

	w := fixpb.NewWriter("demo.Bag", nil, nil)
	w.String(1, "hello")
	buf, err := w.Finish()
	require.NoError(t, err)

	r := fixpb.NewReader("demo.Bag", buf, nil)
	require.True(t, r.Next())
	assert.Equal(t, "", r.Text("owner", 4))
	assert.ErrorContains(t, r.Finish(), "5 bytes exceed the capacity of 4")

	r = fixpb.NewReader("demo.Bag", buf, nil)
	require.True(t, r.Next())
	assert.Equal(t, "hello", r.Text("owner", 5))
	assert.NoError(t, r.Finish())

	w = fixpb.NewWriter("demo.Bag", nil, nil)
	w.Text(1, "owner", "hello", 4)
	w.Bool(2, true)
	out, err := w.Finish()
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "demo.Bag.owner")
}

func TestBlock(t *testing.T) {
	t.Parallel()

	buf := protowire.AppendTag(nil, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, []byte{1, 2, 3})

	var dst [3]byte
	r := fixpb.NewReader("demo.Key", buf, nil)
	require.True(t, r.Next())
	r.Block("key", dst[:])
	require.NoError(t, r.Finish())
	assert.Equal(t, [3]byte{1, 2, 3}, dst)

	var short [4]byte
	r = fixpb.NewReader("demo.Key", buf, nil)
	require.True(t, r.Next())
	r.Block("key", short[:])
	assert.ErrorContains(t, r.Finish(), "got 3, exactly 4 required")
	assert.Equal(t, [4]byte{}, short)
}

func TestNestedMessageError(t *testing.T) {
	t.Parallel()

	inner := protowire.AppendTag(nil, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, "too long")
	buf := protowire.AppendTag(nil, 5, protowire.BytesType)
	buf = protowire.AppendBytes(buf, inner)

	innerFromWire := func(b []byte, opts *fixpb.ConvertOptions) error {
		r := fixpb.NewReader("demo.Inner", b, opts)
		for r.Next() {
			r.Text("name", 3)
		}
		return r.Finish()
	}

	opts, diags := collectHook()
	r := fixpb.NewReader("demo.Outer", buf, opts)
	for r.Next() {
		r.Message(innerFromWire)
	}
	var convErr *fixpb.ConvertError
	require.ErrorAs(t, r.Finish(), &convErr)
	assert.Equal(t, "demo.Inner", convErr.Message)
	assert.Len(t, *diags, 1)
}

func TestWriterMessage(t *testing.T) {
	t.Parallel()

	w := fixpb.NewWriter("demo.Outer", []byte{0xAA}, nil)
	w.Message(5, func(b []byte, opts *fixpb.ConvertOptions) ([]byte, error) {
		inner := fixpb.NewWriter("demo.Inner", b, opts)
		inner.Uint32(1, 9)
		return inner.Finish()
	})
	buf, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x2A, 0x02, 0x08, 0x09}, buf)

	w = fixpb.NewWriter("demo.Outer", nil, nil)
	w.Message(5, func(b []byte, opts *fixpb.ConvertOptions) ([]byte, error) {
		return nil, &fixpb.ConvertError{Message: "demo.Inner", Reason: "bad"}
	})
	_, err = w.Finish()
	assert.EqualError(t, err, "fixpb: demo.Inner: bad")
}

func TestCallback(t *testing.T) {
	t.Parallel()

	w := fixpb.NewWriter("demo.Log", nil, nil)
	cb := &fixpb.Callback{
		Encode: func(w *fixpb.Writer, num protowire.Number) error {
			for _, line := range []string{"a", "bc"} {
				w.String(num, line)
			}
			return nil
		},
	}
	w.Callback(3, cb)
	w.Uint32(4, 1)
	buf, err := w.Finish()
	require.NoError(t, err)

	var lines []string
	cb.Decode = func(r *fixpb.Reader) error {
		lines = append(lines, r.StringValue())
		return nil
	}
	r := fixpb.NewReader("demo.Log", buf, nil)
	var after uint32
	for r.Next() {
		switch r.Number() {
		case 3:
			r.Callback(cb)
		case 4:
			after = r.Uint32()
		}
	}
	require.NoError(t, r.Finish())
	assert.Equal(t, []string{"a", "bc"}, lines)
	assert.Equal(t, uint32(1), after)

	// Without a decoder the field is skipped.
	r = fixpb.NewReader("demo.Log", buf, nil)
	for r.Next() {
		if r.Number() == 3 {
			r.Callback(&fixpb.Callback{})
		} else {
			after = r.Uint32()
		}
	}
	require.NoError(t, r.Finish())

	r = fixpb.NewReader("demo.Log", buf, nil)
	for r.Next() {
		r.Callback(&fixpb.Callback{Decode: func(*fixpb.Reader) error {
			return errors.New("rejected")
		}})
	}
	assert.ErrorContains(t, r.Finish(), "callback: rejected")
}

func TestRaw(t *testing.T) {
	t.Parallel()

	w := fixpb.NewWriter("demo.Ext", nil, nil)
	w.Uint32(1, 1)
	w.String(100, "ext")
	w.Uint32(2, 2)
	buf, err := w.Finish()
	require.NoError(t, err)

	var raw []byte
	r := fixpb.NewReader("demo.Ext", buf, nil)
	for r.Next() {
		if r.Number() == 100 {
			raw = r.Raw()
		} else {
			r.Skip()
		}
	}
	require.NoError(t, r.Finish())
	want := protowire.AppendTag(nil, 100, protowire.BytesType)
	want = protowire.AppendString(want, "ext")
	assert.Equal(t, want, raw)
}

func TestCheckRequired(t *testing.T) {
	t.Parallel()

	r := fixpb.NewReader("demo.Req", nil, nil)
	assert.True(t, r.CheckRequired(0b11, 0b11, []string{"a", "b"}))
	assert.False(t, r.CheckRequired(0b01, 0b11, []string{"a", "b"}))
	var convErr *fixpb.ConvertError
	require.ErrorAs(t, r.Finish(), &convErr)
	assert.Equal(t, "b", convErr.Field)
}

func TestNarrow(t *testing.T) {
	t.Parallel()

	r := fixpb.NewReader("demo.Small", nil, nil)
	assert.Equal(t, int8(-100), fixpb.NarrowInt[int8](r, "v", -100))
	assert.Equal(t, uint16(65535), fixpb.NarrowUint[uint16](r, "u", 65535))
	require.NoError(t, r.Finish())

	assert.Equal(t, int8(0), fixpb.NarrowInt[int8](r, "v", 300))
	assert.ErrorContains(t, r.Finish(), "value 300 does not fit")

	r = fixpb.NewReader("demo.Small", nil, nil)
	assert.Equal(t, uint8(0), fixpb.NarrowUint[uint8](r, "u", 256))
	assert.Error(t, r.Finish())
}
