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

// Package descriptor is the immutable in-memory model of one protobuf
// schema file, built from a decoded FileDescriptorProto.
package descriptor

import (
	"iter"
	"strings"
)

type Label uint8

const (
	// LabelSingular is a proto3 field without explicit presence.
	LabelSingular Label = iota
	LabelOptional
	LabelRequired
	LabelRepeated
	// LabelOneOf is a member of a (non-synthetic) oneof group.
	LabelOneOf
)

var labelNames = [...]string{"singular", "optional", "required", "repeated", "oneof"}

func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return "unknown"
}

type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindSint32
	KindSint64
	KindFixed32
	KindFixed64
	KindSfixed32
	KindSfixed64
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindMessage
	KindEnum
)

var kindNames = [...]string{
	"invalid", "bool", "int32", "int64", "uint32", "uint64", "sint32",
	"sint64", "fixed32", "fixed64", "sfixed32", "sfixed64", "float",
	"double", "string", "bytes", "message", "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsInteger reports whether values of kind k are integers.
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt32, KindInt64, KindUint32, KindUint64, KindSint32,
		KindSint64, KindFixed32, KindFixed64, KindSfixed32, KindSfixed64:
		return true
	}
	return false
}

// IsUnsigned reports whether k is an unsigned integer kind.
func (k Kind) IsUnsigned() bool {
	switch k {
	case KindUint32, KindUint64, KindFixed32, KindFixed64:
		return true
	}
	return false
}

// IsLengthDelimited reports whether k is encoded with a length prefix.
func (k Kind) IsLengthDelimited() bool {
	return k == KindString || k == KindBytes || k == KindMessage
}

// Bits returns the natural storage width of a numeric kind, or 0.
func (k Kind) Bits() int {
	switch k {
	case KindBool:
		return 8
	case KindInt32, KindUint32, KindSint32, KindFixed32, KindSfixed32, KindFloat, KindEnum:
		return 32
	case KindInt64, KindUint64, KindSint64, KindFixed64, KindSfixed64, KindDouble:
		return 64
	}
	return 0
}

type File struct {
	Name         string
	Package      string
	Syntax       string
	GoImportPath string
	GoPackage    string
	Dependencies []string
	Messages     []*Message
	Enums        []*Enum
	Extensions   []*Field
	Options      []byte
}

// Proto3 reports whether the file uses proto3 syntax.
func (f *File) Proto3() bool {
	return f.Syntax == "proto3"
}

// AllMessages iterates over every message of the file, nested messages
// following their parent.
func (f *File) AllMessages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, msg := range f.Messages {
			if !msg.walk(yield) {
				return
			}
		}
	}
}

// AllEnums iterates over every enum of the file, top-level enums first.
func (f *File) AllEnums() iter.Seq[*Enum] {
	return func(yield func(*Enum) bool) {
		for _, enum := range f.Enums {
			if !yield(enum) {
				return
			}
		}
		for msg := range f.AllMessages() {
			for _, enum := range msg.Enums {
				if !yield(enum) {
					return
				}
			}
		}
	}
}

type Message struct {
	Name            string
	FullName        string
	Fields          []*Field
	OneOfs          []*OneOf
	Nested          []*Message
	Enums           []*Enum
	ExtensionRanges []ExtensionRange
	MapEntry        bool
	Options         []byte
}

func (m *Message) walk(yield func(*Message) bool) bool {
	if !yield(m) {
		return false
	}
	for _, nested := range m.Nested {
		if !nested.walk(yield) {
			return false
		}
	}
	return true
}

// Field returns the field with the given name, or nil.
func (m *Message) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ExtensionRange is a half-open range [Start, End) of extension tags.
type ExtensionRange struct {
	Start int32
	End   int32
}

type Field struct {
	Name       string
	FullName   string
	Tag        int32
	Label      Label
	Kind       Kind
	TypeName   string
	Default    string
	HasDefault bool
	OneOf      *OneOf
	Extendee   string
	Options    []byte
}

// Repeated reports whether the field is repeated.
func (f *Field) Repeated() bool {
	return f.Label == LabelRepeated
}

type OneOf struct {
	Name     string
	FullName string
	Fields   []*Field
	Options  []byte
}

type Enum struct {
	Name     string
	FullName string
	Values   []EnumValue
	Options  []byte
}

type EnumValue struct {
	Name   string
	Number int32
}

// HasNegative reports whether any value of the enum is negative.
func (e *Enum) HasNegative() bool {
	for _, v := range e.Values {
		if v.Number < 0 {
			return true
		}
	}
	return false
}

// JoinName joins a scope and a name with a dot, omitting an empty scope.
func JoinName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// RelativeName strips the package prefix from a full name.
func RelativeName(pkg, fullName string) string {
	if pkg == "" {
		return fullName
	}
	if rest, ok := strings.CutPrefix(fullName, pkg+"."); ok {
		return rest
	}
	return fullName
}
