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

// Package layout is the resolved model of one schema file: every field's
// storage representation, allocation and bounds, worst-case encoded sizes,
// one-of plans and a dependency-safe emission order.
//
// A File is produced by the compiler and is read-only afterwards. Files of
// dependencies are shared between concurrent compilations.
package layout

import (
	"cmp"
	"slices"
	"strconv"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/encsize"
)

type File struct {
	Name         string
	Package      string
	GoImportPath string
	GoPackage    string
	Proto3       bool
	Dependencies []string
	Enums        []*Enum
	// Messages are in emission order: no message precedes a message it
	// embeds by value.
	Messages   []*Message
	Extensions []*Extension
}

// Message returns the message with the given full name, or nil.
func (f *File) Message(fullName string) *Message {
	for _, msg := range f.Messages {
		if msg.FullName == fullName {
			return msg
		}
	}
	return nil
}

// Enum returns the enum with the given full name, or nil.
func (f *File) Enum(fullName string) *Enum {
	for _, enum := range f.Enums {
		if enum.FullName == fullName {
			return enum
		}
	}
	return nil
}

type Allocation uint8

const (
	// AllocStatic is fixed-capacity storage embedded in the message.
	AllocStatic Allocation = iota
	// AllocPointer is storage owned outside the message.
	AllocPointer
	// AllocCallback leaves encoding and decoding to caller callbacks.
	AllocCallback
)

func (a Allocation) String() string {
	switch a {
	case AllocStatic:
		return "static"
	case AllocPointer:
		return "pointer"
	case AllocCallback:
		return "callback"
	}
	return "Allocation(" + strconv.Itoa(int(a)) + ")"
}

// Bound is a size or count limit: a literal, or a named constant whose value
// has been resolved.
type Bound struct {
	Value  int64
	Symbol string
}

func (b Bound) String() string {
	if b.Symbol != "" {
		return b.Symbol + "=" + strconv.FormatInt(b.Value, 10)
	}
	return strconv.FormatInt(b.Value, 10)
}

// Known reports whether the bound limits anything.
func (b Bound) Known() bool {
	return b.Value > 0
}

// TypeRef names a message or enum type and the Go package defining it.
type TypeRef struct {
	FullName     string
	Name         string // relative to the defining package
	GoImportPath string
	GoPackage    string
}

type Enum struct {
	FullName    string
	Name        string
	Values      []EnumValue
	LongNames   bool
	ToString    bool
	Packed      bool
	StorageBits int
	EncodedSize int
	HasNegative bool
}

type EnumValue struct {
	Name   string
	Number int32
}

func (e *Enum) MinValue() int32 {
	return slices.MinFunc(e.Values, func(a, b EnumValue) int {
		return cmp.Compare(a.Number, b.Number)
	}).Number
}

func (e *Enum) MaxValue() int32 {
	return slices.MaxFunc(e.Values, func(a, b EnumValue) int {
		return cmp.Compare(a.Number, b.Number)
	}).Number
}

type Message struct {
	FullName string
	Name     string
	// Fields holds the plain fields in declaration order. One-of members
	// are only reachable through OneOfs.
	Fields          []*Field
	OneOfs          []*OneOf
	ExtensionRanges []descriptor.ExtensionRange
	// IgnoredTags are fields excluded from generation; conversion skips
	// them on the wire.
	IgnoredTags []int32
	MapEntry    bool

	// Size is meaningful only when SizeKnown; an unknown size depends on
	// runtime parameters such as pointer or callback fields.
	Size      encsize.Size
	SizeKnown bool
	// SizeRecursive is set when Size refers back to this message through
	// its own terms, so it has no finite value.
	SizeRecursive bool

	// Static is set when every field is statically allocated.
	Static bool
	// Trivial is set when the message owns no resources, so one-of
	// members of this type need no teardown.
	Trivial bool

	// Deps are the messages of the same file embedded by value.
	Deps []string

	MsgID     uint32
	HasMsgID  bool
	KeyFields []string

	RequiredCount   int
	MaxFieldValue   uint64
	DescriptorWidth int
}

// AllFields returns plain fields and one-of members ordered by tag.
func (m *Message) AllFields() []*Field {
	out := slices.Clone(m.Fields)
	for _, oneof := range m.OneOfs {
		out = append(out, oneof.Members...)
	}
	slices.SortFunc(out, func(a, b *Field) int {
		return cmp.Compare(a.Tag, b.Tag)
	})
	return out
}

// Field returns the plain field or one-of member with the given name.
func (m *Message) Field(name string) *Field {
	for _, f := range m.AllFields() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Field struct {
	Name     string
	FullName string
	Tag      int32
	Label    descriptor.Label
	Kind     descriptor.Kind
	// Type is set for message and enum fields.
	Type  *TypeRef
	Alloc Allocation
	Repr  Repr

	Size      encsize.Size
	SizeKnown bool

	Default    string
	HasDefault bool
	// Presence is set when the field has a companion "has" flag.
	Presence bool
	IsKey    bool

	// OneOf is the name of the enclosing one-of, if any.
	OneOf string
	// Lifecycle is set on one-of members whose storage needs explicit
	// construction and teardown when the discriminant changes.
	Lifecycle bool
}

// Extension is a field declared outside its extendee. It is generated as a
// separate unit rather than embedded in the extended message.
type Extension struct {
	Name     string
	FullName string
	Extendee string
	Field    *Field
}
