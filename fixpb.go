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

// Package fixpb is the runtime support library for generated fixed-layout
// message types. Generated code converts between wire-format protobuf
// messages and Go structs whose capacities are fixed at generation time;
// every capacity is re-checked during conversion, and a conversion that
// would exceed one fails with a *ConvertError instead of writing past it.
package fixpb

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"go.fixpb.dev/fixpb/encsize"
)

// MaxVarintLen is the longest encoding of a 64-bit varint.
const MaxVarintLen = encsize.MaxVarintLen

// DiagnosticKind classifies conversion events reported to a Hook.
type DiagnosticKind uint8

const (
	// Rejected reports a conversion that failed. The same information is
	// returned as a *ConvertError.
	Rejected DiagnosticKind = iota + 1

	// OneofOverwrite reports a one-of member replacing another member
	// that was already set. Conversion continues.
	OneofOverwrite
)

func (k DiagnosticKind) String() string {
	switch k {
	case Rejected:
		return "rejected"
	case OneofOverwrite:
		return "oneof_overwrite"
	}
	return fmt.Sprintf("DiagnosticKind(%d)", uint8(k))
}

type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Field   string
	Reason  string
}

// ConvertOptions configures a conversion. A nil *ConvertOptions is valid
// and behaves as the zero value.
type ConvertOptions struct {
	Hook func(Diagnostic)
}

func (opts *ConvertOptions) report(d Diagnostic) {
	if opts != nil && opts.Hook != nil {
		opts.Hook(d)
	}
}

type ConvertError struct {
	Message string
	Field   string
	Reason  string
}

func (err *ConvertError) Error() string {
	if err.Field == "" {
		return fmt.Sprintf("fixpb: %s: %s", err.Message, err.Reason)
	}
	return fmt.Sprintf("fixpb: %s.%s: %s", err.Message, err.Field, err.Reason)
}

// conv holds the state shared by Reader and Writer: the message being
// converted, the caller's options, and the first error.
type conv struct {
	message string
	opts    *ConvertOptions
	err     error
}

// Err returns the first error of the conversion.
func (c *conv) Err() error {
	return c.err
}

// Options returns the options the conversion was started with, for passing
// on to nested conversions.
func (c *conv) Options() *ConvertOptions {
	return c.opts
}

// Fail stops the conversion with a *ConvertError. Only the first failure
// is kept.
func (c *conv) Fail(field string, format string, args ...any) {
	if c.err != nil {
		return
	}
	err := &ConvertError{
		Message: c.message,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	}
	c.err = err
	c.opts.report(Diagnostic{
		Kind:    Rejected,
		Message: err.Message,
		Field:   err.Field,
		Reason:  err.Reason,
	})
}

// propagate records an error returned by a nested conversion, which has
// already been reported to the hook.
func (c *conv) propagate(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

// CheckLen fails if a text or bytes value of n bytes exceeds max.
func (c *conv) CheckLen(field string, n, max int) bool {
	if c.err != nil {
		return false
	}
	if n > max {
		c.Fail(field, "%d bytes exceed the capacity of %d", n, max)
		return false
	}
	return true
}

// CheckCount fails if n elements exceed max.
func (c *conv) CheckCount(field string, n, max int) bool {
	if c.err != nil {
		return false
	}
	if n > max {
		c.Fail(field, "%d elements exceed the capacity of %d", n, max)
		return false
	}
	return true
}

// CheckExact fails unless exactly want elements or bytes are present.
func (c *conv) CheckExact(field string, n, want int) bool {
	if c.err != nil {
		return false
	}
	if n != want {
		c.Fail(field, "got %d, exactly %d required", n, want)
		return false
	}
	return true
}

// CheckRequired fails if any bit of want is missing from seen. names maps
// bit positions to field names.
func (c *conv) CheckRequired(seen, want uint64, names []string) bool {
	if c.err != nil {
		return false
	}
	missing := want &^ seen
	if missing == 0 {
		return true
	}
	for ii, name := range names {
		if missing&(1<<ii) != 0 {
			c.Fail(name, "required field is missing")
			return false
		}
	}
	c.Fail("", "required field is missing")
	return false
}

type signedInt interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Checker is implemented by *Reader and *Writer.
type Checker interface {
	Fail(field string, format string, args ...any)
}

// NarrowInt converts a decoded value to narrower storage, failing the
// conversion if it does not fit.
func NarrowInt[T signedInt](c Checker, field string, v int64) T {
	out := T(v)
	if int64(out) != v {
		c.Fail(field, "value %d does not fit in storage", v)
		return 0
	}
	return out
}

// NarrowUint is NarrowInt for unsigned storage.
func NarrowUint[T unsignedInt](c Checker, field string, v uint64) T {
	out := T(v)
	if uint64(out) != v {
		c.Fail(field, "value %d does not fit in storage", v)
		return 0
	}
	return out
}

// CompareBool orders false before true.
func CompareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

// numberName names a field by number when its name is not at hand.
func numberName(num protowire.Number) string {
	return "#" + strconv.FormatInt(int64(num), 10)
}
