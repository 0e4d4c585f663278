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

package compiler

import (
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/encsize"
	"go.fixpb.dev/fixpb/layout"
)

// Worst-case payload sizes of scalar kinds. Negative int32 values are
// sign-extended on the wire, so int32 needs the full varint width.
var scalarSizes = map[descriptor.Kind]uint64{
	descriptor.KindBool:     1,
	descriptor.KindInt32:    10,
	descriptor.KindInt64:    10,
	descriptor.KindUint32:   5,
	descriptor.KindUint64:   10,
	descriptor.KindSint32:   5,
	descriptor.KindSint64:   10,
	descriptor.KindFixed32:  4,
	descriptor.KindSfixed32: 4,
	descriptor.KindFloat:    4,
	descriptor.KindFixed64:  8,
	descriptor.KindSfixed64: 8,
	descriptor.KindDouble:   8,
}

// unresolvedPrefix is the length-prefix allowance for a submessage whose
// size is symbolic.
const unresolvedPrefix = 5

type sizeState struct {
	done bool
}

// computeSizes sets the worst-case encoded size of every message, one-of,
// field and extension. Each message is sized once.
func (c *compiler) computeSizes(order []*layout.Message) {
	states := make(map[string]*sizeState, len(order))
	for _, msg := range order {
		c.messageSize(msg, states)
	}
	for _, ext := range c.out.Extensions {
		ext.Field.Size, ext.Field.SizeKnown = c.fieldSize(ext.Field, states)
	}
	markRecursiveSizes(order)
}

// markRecursiveSizes flags every message whose size terms reach a cycle
// of local messages.
func markRecursiveSizes(order []*layout.Message) {
	local := make(map[string]*layout.Message, len(order))
	for _, msg := range order {
		local[msg.FullName] = msg
	}
	marks := make(map[string]visitState, len(order))
	var visit func(name string) bool
	visit = func(name string) bool {
		msg, ok := local[name]
		if !ok || !msg.SizeKnown {
			return false
		}
		switch marks[name] {
		case stateVisiting:
			return true
		case stateDone:
			return msg.SizeRecursive
		}
		marks[name] = stateVisiting
		recursive := false
		for _, sym := range msg.Size.Symbols() {
			if visit(sym) {
				recursive = true
			}
		}
		marks[name] = stateDone
		msg.SizeRecursive = recursive
		return recursive
	}
	for _, msg := range order {
		visit(msg.FullName)
	}
}

func (c *compiler) messageSize(
	msg *layout.Message,
	states map[string]*sizeState,
) (encsize.Size, bool) {
	if state, ok := states[msg.FullName]; ok {
		if !state.done {
			return encsize.Symbol(msg.FullName), true
		}
		return msg.Size, msg.SizeKnown
	}
	state := &sizeState{}
	states[msg.FullName] = state

	var total encsize.Size
	known := true
	for _, f := range msg.Fields {
		f.Size, f.SizeKnown = c.fieldSize(f, states)
		if f.SizeKnown {
			total = total.Add(f.Size)
		} else {
			known = false
		}
	}
	for _, oneof := range msg.OneOfs {
		oneof.Size, oneof.SizeKnown = c.oneOfSize(oneof, states)
		if oneof.SizeKnown {
			total = total.Add(oneof.Size)
		} else {
			known = false
		}
	}

	msg.SizeKnown = known
	if known {
		msg.Size = total
	}
	state.done = true
	c.log.Debugw("sized message", "message", msg.FullName, "known", known, "size", msg.Size.String())
	return msg.Size, msg.SizeKnown
}

func (c *compiler) oneOfSize(
	oneof *layout.OneOf,
	states map[string]*sizeState,
) (encsize.Size, bool) {
	sizes := make([]encsize.Size, 0, len(oneof.Members))
	known := true
	for _, f := range oneof.Members {
		f.Size, f.SizeKnown = c.fieldSize(f, states)
		if !f.SizeKnown {
			known = false
			continue
		}
		sizes = append(sizes, f.Size)
	}
	if !known {
		return encsize.Size{}, false
	}
	return encsize.Max(sizes...), true
}

func (c *compiler) fieldSize(
	f *layout.Field,
	states map[string]*sizeState,
) (encsize.Size, bool) {
	if f.Alloc != layout.AllocStatic {
		return encsize.Size{}, false
	}
	elem, ok := c.elemSize(f, layout.ElemRepr(f.Repr), states)
	if !ok {
		return encsize.Size{}, false
	}
	elem = elem.AddInt(uint64(encsize.TagLen(f.Tag)))

	var count int64
	switch r := f.Repr.(type) {
	case layout.Array:
		count = r.Count.Value
	case layout.Container:
		count = r.Count.Value
	default:
		return elem, true
	}
	size := elem.Mul(uint64(count))
	if count == 1 {
		// A single element may be sent unpacked.
		size = size.AddInt(1)
	}
	return size, true
}

func (c *compiler) elemSize(
	f *layout.Field,
	r layout.Repr,
	states map[string]*sizeState,
) (encsize.Size, bool) {
	switch r := r.(type) {
	case layout.Scalar:
		if r.Kind == descriptor.KindEnum {
			if enum := c.enumLayout(f.Type.FullName); enum != nil {
				return encsize.Of(uint64(enum.EncodedSize)), true
			}
			return encsize.Of(encsize.MaxVarintLen), true
		}
		return encsize.Of(scalarSizes[r.Kind]), true
	case layout.FixedText:
		return textSize(r.Capacity), true
	case layout.FixedBlock:
		return textSize(r.Length), true
	case layout.DynamicText:
		if !r.Bounded {
			return encsize.Size{}, false
		}
		return textSize(r.Max), true
	case layout.Embedded:
		return c.submessageSize(r.Message.FullName, states)
	case layout.Array, layout.Container, layout.Pointer, layout.Callback:
		return encsize.Size{}, false
	}
	panic("compiler: unknown representation")
}

func textSize(b layout.Bound) encsize.Size {
	n := uint64(b.Value)
	return encsize.Of(n + uint64(encsize.VarintLen(n)))
}

// submessageSize sizes a message field's payload, including its length
// prefix. Messages of other files, and local messages still being sized,
// are referenced symbolically plus a 5-byte prefix allowance. A dependency
// whose own size is unknown or recursive makes this one unknown too.
func (c *compiler) submessageSize(
	fullName string,
	states map[string]*sizeState,
) (encsize.Size, bool) {
	if msg, ok := c.local[fullName]; ok {
		if state, seen := states[fullName]; seen && !state.done {
			// Still being sized: the message contains itself.
			return encsize.Symbol(fullName).AddInt(unresolvedPrefix), true
		}
		size, known := c.messageSize(msg, states)
		if !known {
			return encsize.Size{}, false
		}
		return size.AddInt(uint64(encsize.VarintLen(size.UpperLimit()))), true
	}
	dep, _, err := c.opts.deps.resolveMessage(fullName, Locator{})
	if err != nil || !dep.SizeKnown || dep.SizeRecursive {
		return encsize.Size{}, false
	}
	return encsize.Symbol(fullName).AddInt(unresolvedPrefix), true
}
