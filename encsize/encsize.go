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

// Package encsize implements worst-case encoded sizes of protobuf values.
//
// A [Size] is a numeric byte count plus a multiset of symbolic terms. A
// symbolic term stands for the size of a message that could not be resolved
// when the size was computed, for example a message defined in a file whose
// layout is not available.
package encsize

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Ceiling is the value [Size.UpperLimit] reports for symbolic sizes.
const Ceiling = math.MaxUint32

// MaxVarintLen is the encoded length of the widest varint.
const MaxVarintLen = 10

// VarintLen returns the number of bytes needed to encode v as a varint.
func VarintLen(v uint64) int {
	return protowire.SizeVarint(v)
}

// VarintLenSigned returns the varint length of v sign-extended to 64 bits,
// which is how negative int32 and int64 values are put on the wire.
func VarintLenSigned(v int64) int {
	return protowire.SizeVarint(uint64(v))
}

// TagLen returns the length of the key preceding a field with the given tag.
func TagLen(tag int32) int {
	return VarintLen(uint64(tag) << 3)
}

// Term is one symbolic term of a [Size]: Count occurrences of Name.
type Term struct {
	Name  string
	Count uint64
}

// Size is a worst-case encoded size. The zero value is a numeric size of 0.
type Size struct {
	value uint64
	terms []Term // sorted by Name, Count > 0
}

// Of returns a numeric size.
func Of(n uint64) Size {
	return Size{value: n}
}

// Symbol returns a size consisting of a single symbolic term.
func Symbol(name string) Size {
	return Size{terms: []Term{{Name: name, Count: 1}}}
}

// Value returns the numeric part of s.
func (s Size) Value() uint64 {
	return s.value
}

// Terms returns a copy of the symbolic terms of s, sorted by name.
func (s Size) Terms() []Term {
	return slices.Clone(s.terms)
}

// Symbols returns the names of the symbolic terms of s.
func (s Size) Symbols() []string {
	out := make([]string, 0, len(s.terms))
	for _, t := range s.terms {
		out = append(out, t.Name)
	}
	return out
}

// IsNumeric reports whether s has no symbolic terms.
func (s Size) IsNumeric() bool {
	return len(s.terms) == 0
}

// Add returns s + o.
func (s Size) Add(o Size) Size {
	out := Size{value: s.value + o.value}
	if len(s.terms) == 0 {
		out.terms = slices.Clone(o.terms)
		return out
	}
	if len(o.terms) == 0 {
		out.terms = slices.Clone(s.terms)
		return out
	}
	out.terms = make([]Term, 0, len(s.terms)+len(o.terms))
	i, j := 0, 0
	for i < len(s.terms) || j < len(o.terms) {
		switch {
		case j >= len(o.terms):
			out.terms = append(out.terms, s.terms[i])
			i++
		case i >= len(s.terms):
			out.terms = append(out.terms, o.terms[j])
			j++
		case s.terms[i].Name < o.terms[j].Name:
			out.terms = append(out.terms, s.terms[i])
			i++
		case s.terms[i].Name > o.terms[j].Name:
			out.terms = append(out.terms, o.terms[j])
			j++
		default:
			out.terms = append(out.terms, Term{
				Name:  s.terms[i].Name,
				Count: s.terms[i].Count + o.terms[j].Count,
			})
			i++
			j++
		}
	}
	return out
}

// AddInt returns s + n.
func (s Size) AddInt(n uint64) Size {
	return Size{value: s.value + n, terms: slices.Clone(s.terms)}
}

// Mul returns s * n. Multiplying by zero yields a numeric zero.
func (s Size) Mul(n uint64) Size {
	if n == 0 {
		return Size{}
	}
	out := Size{value: s.value * n}
	if len(s.terms) > 0 {
		out.terms = make([]Term, len(s.terms))
		for ii, t := range s.terms {
			out.terms[ii] = Term{Name: t.Name, Count: t.Count * n}
		}
	}
	return out
}

// UpperLimit returns the numeric value of s, or [Ceiling] when s has symbolic
// terms. It is meant for worst-case reasoning such as sizing a length
// prefix, never for allocation.
func (s Size) UpperLimit() uint64 {
	if len(s.terms) > 0 {
		return Ceiling
	}
	return s.value
}

// Covers reports whether s is known to be at least o: the numeric part and
// every term coefficient of s are no smaller than those of o.
func (s Size) Covers(o Size) bool {
	if s.value < o.value {
		return false
	}
	for _, t := range o.terms {
		idx, found := slices.BinarySearchFunc(s.terms, t.Name, func(x Term, name string) int {
			return cmp.Compare(x.Name, name)
		})
		if !found || s.terms[idx].Count < t.Count {
			return false
		}
	}
	return true
}

// Equal reports whether s and o have the same numeric part and terms.
func (s Size) Equal(o Size) bool {
	return s.value == o.value && slices.Equal(s.terms, o.terms)
}

// Max returns the largest of the given sizes. When every size is numeric
// the result is numeric. Otherwise the result is the largest numeric size
// plus the sum of the symbolic ones, which bounds each of them.
func Max(sizes ...Size) Size {
	var symbolic Size
	var numeric uint64
	for _, s := range sizes {
		if s.IsNumeric() {
			numeric = max(numeric, s.value)
		} else {
			symbolic = symbolic.Add(s)
		}
	}
	return symbolic.AddInt(numeric)
}

// String renders s as an arithmetic expression, for example "12" or
// "(12 + 3*pkg.Item)".
func (s Size) String() string {
	if len(s.terms) == 0 {
		return strconv.FormatUint(s.value, 10)
	}
	var buf strings.Builder
	buf.WriteByte('(')
	buf.WriteString(strconv.FormatUint(s.value, 10))
	for _, t := range s.terms {
		buf.WriteString(" + ")
		if t.Count != 1 {
			buf.WriteString(strconv.FormatUint(t.Count, 10))
			buf.WriteByte('*')
		}
		buf.WriteString(t.Name)
	}
	buf.WriteByte(')')
	return buf.String()
}
