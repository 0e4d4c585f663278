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

// Package options resolves the generation directives that apply to each
// element of a schema file.
//
// Directives come from three sources, merged from lowest to highest
// precedence: the enclosing scope (file, then message), side-file rules
// matched by name glob, and inline annotations in the element's own
// descriptor options.
package options

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

type Allocation uint8

const (
	AllocDefault  Allocation = 0
	AllocCallback Allocation = 1
	AllocPointer  Allocation = 4
	AllocStatic   Allocation = 5
	AllocIgnore   Allocation = 6
	// AllocInline is static allocation with fixed_length implied.
	AllocInline Allocation = 7
)

var allocNames = map[Allocation]string{
	AllocDefault:  "FT_DEFAULT",
	AllocCallback: "FT_CALLBACK",
	AllocPointer:  "FT_POINTER",
	AllocStatic:   "FT_STATIC",
	AllocIgnore:   "FT_IGNORE",
	AllocInline:   "FT_INLINE",
}

func (a Allocation) String() string {
	if name, ok := allocNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Allocation(%d)", uint8(a))
}

type Container uint8

const (
	ContainerNone Container = iota
	ContainerVector
	ContainerList
	ContainerHashMap
	ContainerMultiHashMap
	ContainerHashMapList
	ContainerMultiHashMapList
	ContainerOrderedMap
	ContainerMultiOrderedMap
	ContainerHashSet
	ContainerMultiHashSet
	ContainerHashSetList
	ContainerMultiHashSetList
)

var containerNames = [...]string{
	"NONE", "VECTOR", "LIST", "HASH_MAP", "MULTI_HASH_MAP", "HASH_MAP_LIST",
	"MULTI_HASH_MAP_LIST", "ORDERED_MAP", "MULTI_ORDERED_MAP", "HASH_SET",
	"MULTI_HASH_SET", "HASH_SET_LIST", "MULTI_HASH_SET_LIST",
}

func (c Container) String() string {
	if int(c) < len(containerNames) {
		return containerNames[c]
	}
	return fmt.Sprintf("Container(%d)", uint8(c))
}

// Keyed reports whether the container is a mapping or set, which requires
// a key field.
func (c Container) Keyed() bool {
	return c >= ContainerHashMap && c <= ContainerMultiHashSetList
}

// Multi reports whether the container keeps duplicate keys.
func (c Container) Multi() bool {
	switch c {
	case ContainerMultiHashMap, ContainerMultiHashMapList, ContainerMultiOrderedMap,
		ContainerMultiHashSet, ContainerMultiHashSetList:
		return true
	}
	return false
}

// Ordered reports whether the container iterates in key order.
func (c Container) Ordered() bool {
	return c == ContainerOrderedMap || c == ContainerMultiOrderedMap
}

// Listed reports whether the container keeps an insertion-order list view.
func (c Container) Listed() bool {
	switch c {
	case ContainerHashMapList, ContainerMultiHashMapList,
		ContainerHashSetList, ContainerMultiHashSetList:
		return true
	}
	return false
}

// IntSize is an integer storage width override in bits; 0 keeps the width
// of the wire type.
type IntSize uint8

const (
	IntSizeDefault IntSize = 0
	IntSize8       IntSize = 8
	IntSize16      IntSize = 16
	IntSize32      IntSize = 32
	IntSize64      IntSize = 64
)

func (s IntSize) valid() bool {
	switch s {
	case IntSizeDefault, IntSize8, IntSize16, IntSize32, IntSize64:
		return true
	}
	return false
}

// ParseAllocation accepts "FT_STATIC" or "static" style names.
func ParseAllocation(s string) (Allocation, error) {
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "FT_") {
		name = "FT_" + name
	}
	for alloc, allocName := range allocNames {
		if allocName == name {
			return alloc, nil
		}
	}
	return 0, errors.Newf("unknown allocation type %q", s)
}

// ParseContainer accepts container names such as "HASH_MAP" or "hash_map".
func ParseContainer(s string) (Container, error) {
	name := strings.ToUpper(s)
	for ii, containerName := range containerNames {
		if containerName == name {
			return Container(ii), nil
		}
	}
	return 0, errors.Newf("unknown container kind %q", s)
}

// ParseIntSize accepts "IS_16", "16" or "IS_DEFAULT".
func ParseIntSize(s string) (IntSize, error) {
	switch strings.TrimPrefix(strings.ToUpper(s), "IS_") {
	case "DEFAULT", "0":
		return IntSizeDefault, nil
	case "8":
		return IntSize8, nil
	case "16":
		return IntSize16, nil
	case "32":
		return IntSize32, nil
	case "64":
		return IntSize64, nil
	}
	return 0, errors.Newf("unknown integer size %q", s)
}

// Directives is a set of generation directives. A nil member is unset and
// does not override an inherited value when merged.
type Directives struct {
	MaxSize        *int64
	MaxSizeConst   *string
	MaxLength      *int64
	MaxCount       *int64
	MaxCountConst  *string
	Type           *Allocation
	LongNames      *bool
	SkipMessage    *bool
	IntSize        *IntSize
	NoUnions       *bool
	MsgID          *uint32
	PackedEnum     *bool
	AnonymousOneof *bool
	EnumToString   *bool
	FixedLength    *bool
	FixedCount     *bool
	Container      *Container
	KeyField       *string
	IsKey          *bool
	DynamicText    *bool
	DefaultBounds  *bool
}

// Merge overrides d with every member set in over.
func (d *Directives) Merge(over Directives) {
	mergePtr(&d.MaxSize, over.MaxSize)
	mergePtr(&d.MaxSizeConst, over.MaxSizeConst)
	mergePtr(&d.MaxLength, over.MaxLength)
	mergePtr(&d.MaxCount, over.MaxCount)
	mergePtr(&d.MaxCountConst, over.MaxCountConst)
	mergePtr(&d.Type, over.Type)
	mergePtr(&d.LongNames, over.LongNames)
	mergePtr(&d.SkipMessage, over.SkipMessage)
	mergePtr(&d.IntSize, over.IntSize)
	mergePtr(&d.NoUnions, over.NoUnions)
	mergePtr(&d.MsgID, over.MsgID)
	mergePtr(&d.PackedEnum, over.PackedEnum)
	mergePtr(&d.AnonymousOneof, over.AnonymousOneof)
	mergePtr(&d.EnumToString, over.EnumToString)
	mergePtr(&d.FixedLength, over.FixedLength)
	mergePtr(&d.FixedCount, over.FixedCount)
	mergePtr(&d.Container, over.Container)
	mergePtr(&d.KeyField, over.KeyField)
	mergePtr(&d.IsKey, over.IsKey)
	mergePtr(&d.DynamicText, over.DynamicText)
	mergePtr(&d.DefaultBounds, over.DefaultBounds)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Inheritable returns the subset of d that flows from an enclosing scope
// into its children. Per-element members such as msgid, key_field or a
// message's skip flag stay with the element that declared them.
func (d Directives) Inheritable() Directives {
	out := d
	out.MsgID = nil
	out.SkipMessage = nil
	out.KeyField = nil
	out.IsKey = nil
	return out
}

// Ptr returns a pointer to v, for building directive sets in code.
func Ptr[T any](v T) *T {
	return &v
}

func (d Directives) Allocation() Allocation {
	if d.Type == nil {
		return AllocDefault
	}
	return *d.Type
}

func (d Directives) ContainerKind() Container {
	if d.Container == nil {
		return ContainerNone
	}
	return *d.Container
}

func (d Directives) IntSizeBits() IntSize {
	if d.IntSize == nil {
		return IntSizeDefault
	}
	return *d.IntSize
}

// Bool reports whether a boolean directive is set to true.
func Bool(p *bool) bool {
	return p != nil && *p
}

func (d Directives) KeyFieldName() string {
	if d.KeyField == nil {
		return ""
	}
	return *d.KeyField
}
