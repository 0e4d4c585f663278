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
	"google.golang.org/protobuf/encoding/protowire"
)

// ExtensionSet holds the fields of a message that fall in its extension
// ranges, in their original encoding. Fields are kept in arrival order and
// written back unchanged.
type ExtensionSet struct {
	fields [][]byte
}

// Add records one encoded field, tag included.
func (s *ExtensionSet) Add(field []byte) {
	s.fields = append(s.fields, append([]byte(nil), field...))
}

func (s *ExtensionSet) Len() int {
	return len(s.fields)
}

// Find returns the last occurrence of field num.
func (s *ExtensionSet) Find(num protowire.Number) ([]byte, bool) {
	for ii := len(s.fields) - 1; ii >= 0; ii-- {
		if got, _, _ := protowire.ConsumeTag(s.fields[ii]); got == num {
			return s.fields[ii], true
		}
	}
	return nil, false
}

// Remove drops every occurrence of field num.
func (s *ExtensionSet) Remove(num protowire.Number) {
	kept := s.fields[:0]
	for _, field := range s.fields {
		if got, _, _ := protowire.ConsumeTag(field); got != num {
			kept = append(kept, field)
		}
	}
	clear(s.fields[len(kept):])
	s.fields = kept
}

func (s *ExtensionSet) Clear() {
	s.fields = nil
}

// AppendTo appends every stored field to b.
func (s *ExtensionSet) AppendTo(b []byte) []byte {
	for _, field := range s.fields {
		b = append(b, field...)
	}
	return b
}

// Extension gives typed access to one optional extension field stored in
// an ExtensionSet.
type Extension[T any] struct {
	Extendee string
	Name     string
	Number   protowire.Number
	Decode   func(r *Reader) T
	Encode   func(w *Writer, num protowire.Number, v T)
}

// Get decodes the extension's value, reporting false when it is absent.
func (x *Extension[T]) Get(s *ExtensionSet, opts *ConvertOptions) (T, bool, error) {
	var zero T
	raw, ok := s.Find(x.Number)
	if !ok {
		return zero, false, nil
	}
	r := NewReader(x.Extendee, raw, opts)
	if !r.Next() {
		return zero, false, r.Finish()
	}
	v := x.Decode(r)
	if err := r.Finish(); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set replaces the extension's value.
func (x *Extension[T]) Set(s *ExtensionSet, v T, opts *ConvertOptions) error {
	w := NewWriter(x.Extendee, nil, opts)
	x.Encode(w, x.Number, v)
	raw, err := w.Finish()
	if err != nil {
		return err
	}
	s.Remove(x.Number)
	s.fields = append(s.fields, raw)
	return nil
}

func (x *Extension[T]) Clear(s *ExtensionSet) {
	s.Remove(x.Number)
}
