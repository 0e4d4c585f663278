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

package layout

import (
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/options"
)

// Repr is the storage representation of a field. The set of variants is
// closed; every consumer switches over all of them.
type Repr interface {
	isRepr()
}

// Scalar is a numeric, boolean or enum value stored in Bits bits.
type Scalar struct {
	Kind     descriptor.Kind
	Bits     int
	Unsigned bool
}

// FixedText is a string or bytes value in a fixed-capacity buffer with an
// explicit length.
type FixedText struct {
	Bytes    bool
	Capacity Bound
}

// FixedBlock is a bytes value of exactly Length bytes.
type FixedBlock struct {
	Length Bound
}

// DynamicText is a string or bytes value in growable storage. When Bounded,
// Max is enforced during conversion.
type DynamicText struct {
	Bytes   bool
	Bounded bool
	Max     Bound
}

// Embedded is a sub-message stored by value.
type Embedded struct {
	Message TypeRef
}

// Array is a fixed-capacity repeated field. With FixedCount the encoded
// element count must equal Count.
type Array struct {
	Elem       Repr
	Count      Bound
	FixedCount bool
}

// Container is a repeated field held in a runtime collection. Keyed kinds
// index elements by the sub-message field named KeyField.
type Container struct {
	Kind     options.Container
	Elem     Repr
	Bounded  bool
	Count    Bound
	KeyField string
	Key      Repr
}

// Pointer is storage owned outside the message.
type Pointer struct {
	Elem     Repr
	Repeated bool
}

// Callback delegates conversion to caller-provided functions.
type Callback struct{}

func (Scalar) isRepr()      {}
func (FixedText) isRepr()   {}
func (FixedBlock) isRepr()  {}
func (DynamicText) isRepr() {}
func (Embedded) isRepr()    {}
func (Array) isRepr()       {}
func (Container) isRepr()   {}
func (Pointer) isRepr()     {}
func (Callback) isRepr()    {}

// HasStaticBound reports whether every dimension of the field's storage is
// bounded at compile time.
func HasStaticBound(f *Field) bool {
	return reprBounded(f.Repr)
}

func reprBounded(r Repr) bool {
	switch r := r.(type) {
	case Scalar, Embedded:
		return true
	case FixedText:
		return r.Capacity.Known()
	case FixedBlock:
		return r.Length.Known()
	case DynamicText:
		return r.Bounded && r.Max.Known()
	case Array:
		return r.Count.Known() && reprBounded(r.Elem)
	case Container:
		return r.Bounded && r.Count.Known() && reprBounded(r.Elem)
	case Pointer, Callback:
		return false
	}
	panic("layout: unknown representation")
}

// ElemRepr returns the element representation of a repeated field, or r
// itself.
func ElemRepr(r Repr) Repr {
	switch r := r.(type) {
	case Array:
		return r.Elem
	case Container:
		return r.Elem
	case Pointer:
		if r.Repeated {
			return r.Elem
		}
	}
	return r
}

// Owning reports whether storage in r holds resources that must be released,
// such as growable buffers or runtime collections.
func Owning(r Repr) bool {
	switch r := r.(type) {
	case DynamicText, Container, Pointer:
		return true
	case Array:
		return Owning(r.Elem)
	}
	return false
}
