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

// Package layouttext renders a resolved layout as deterministic text, for
// golden tests and inspection.
package layouttext

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.fixpb.dev/fixpb/layout"
)

func Encode(file *layout.File) string {
	var buf strings.Builder
	EncodeTo(file, &buf)
	return buf.String()
}

func EncodeTo(file *layout.File, w io.Writer) error {
	e := encoder{w: w}
	e.visitFile(file)
	return e.err
}

type encoder struct {
	w      io.Writer
	indent int
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if indent := strings.Repeat("\t", e.indent); indent != "" {
		if _, err := io.WriteString(e.w, indent); err != nil {
			e.err = err
			return
		}
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
		return
	}
	if _, err := io.WriteString(e.w, "\n"); err != nil {
		e.err = err
	}
}

func (e *encoder) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *encoder) block(header string, body func()) {
	e.line(header + " {")
	e.indent += 1
	body()
	e.indent -= 1
	e.line("}")
}

func (e *encoder) visitFile(file *layout.File) {
	e.linef("file = %s", strconv.Quote(file.Name))
	e.linef("package = %s", strconv.Quote(file.Package))
	e.linef("go_package = %s %s", strconv.Quote(file.GoImportPath), file.GoPackage)
	if file.Proto3 {
		e.line("proto3 = true")
	}
	for _, enum := range file.Enums {
		e.visitEnum(enum)
	}
	for _, msg := range file.Messages {
		e.visitMessage(msg)
	}
	for _, ext := range file.Extensions {
		e.block("extension "+ext.FullName, func() {
			e.linef("extendee = %s", ext.Extendee)
			e.visitField(ext.Field)
		})
	}
}

func (e *encoder) visitEnum(enum *layout.Enum) {
	e.block("enum "+enum.FullName, func() {
		values := make([]string, 0, len(enum.Values))
		for _, v := range enum.Values {
			values = append(values, fmt.Sprintf("%s=%d", v.Name, v.Number))
		}
		e.linef("values = [%s]", strings.Join(values, ", "))
		e.linef("encoded_size = %d", enum.EncodedSize)
		e.linef("storage_bits = %d", enum.StorageBits)
		if !enum.LongNames {
			e.line("long_names = false")
		}
		if enum.ToString {
			e.line("to_string = true")
		}
	})
}

func (e *encoder) visitMessage(msg *layout.Message) {
	e.block("message "+msg.FullName, func() {
		e.linef("static = %t", msg.Static)
		e.linef("trivial = %t", msg.Trivial)
		e.linef("size = %s", fmtSize(msg.SizeKnown, msg.Size.String()))
		if msg.SizeRecursive {
			e.line("size_recursive = true")
		}
		if len(msg.Deps) > 0 {
			e.linef("deps = [%s]", strings.Join(msg.Deps, ", "))
		}
		if msg.RequiredCount > 0 {
			e.linef("required = %d", msg.RequiredCount)
		}
		e.linef("descriptor_width = %d", msg.DescriptorWidth)
		if msg.HasMsgID {
			e.linef("msgid = %d", msg.MsgID)
		}
		if len(msg.KeyFields) > 0 {
			e.linef("keys = [%s]", strings.Join(msg.KeyFields, ", "))
		}
		if len(msg.IgnoredTags) > 0 {
			tags := make([]string, 0, len(msg.IgnoredTags))
			for _, tag := range msg.IgnoredTags {
				tags = append(tags, strconv.Itoa(int(tag)))
			}
			e.linef("ignored_tags = [%s]", strings.Join(tags, ", "))
		}
		for _, r := range msg.ExtensionRanges {
			e.linef("extension_range = [%d, %d)", r.Start, r.End)
		}
		for _, f := range msg.Fields {
			e.visitField(f)
		}
		for _, oneof := range msg.OneOfs {
			e.block("oneof "+oneof.Name, func() {
				e.linef("tag = %d", oneof.Tag)
				e.linef("static = %t", oneof.Static)
				if oneof.Anonymous {
					e.line("anonymous = true")
				}
				e.linef("size = %s", fmtSize(oneof.SizeKnown, oneof.Size.String()))
				for _, f := range oneof.Members {
					e.visitField(f)
				}
			})
		}
	})
}

func (e *encoder) visitField(f *layout.Field) {
	e.block(fmt.Sprintf("field %s = %d", f.Name, f.Tag), func() {
		e.linef("label = %s", f.Label)
		e.linef("kind = %s", f.Kind)
		if f.Type != nil {
			e.linef("type = %s", f.Type.FullName)
		}
		e.linef("alloc = %s", f.Alloc)
		e.linef("repr = %s", FormatRepr(f.Repr))
		e.linef("size = %s", fmtSize(f.SizeKnown, f.Size.String()))
		if f.Presence {
			e.line("presence = true")
		}
		if f.IsKey {
			e.line("is_key = true")
		}
		if f.Lifecycle {
			e.line("lifecycle = true")
		}
		if f.HasDefault {
			e.linef("default = %s", strconv.Quote(f.Default))
		}
	})
}

func fmtSize(known bool, size string) string {
	if !known {
		return "runtime"
	}
	return size
}

// FormatRepr renders a representation on one line, for example
// "array(count=5, elem=scalar(int32, bits=32))".
func FormatRepr(r layout.Repr) string {
	switch r := r.(type) {
	case layout.Scalar:
		s := fmt.Sprintf("scalar(%s, bits=%d", r.Kind, r.Bits)
		if r.Unsigned {
			s += ", unsigned"
		}
		return s + ")"
	case layout.FixedText:
		return fmt.Sprintf("fixed_text(%s, capacity=%s)", textKind(r.Bytes), r.Capacity)
	case layout.FixedBlock:
		return fmt.Sprintf("fixed_block(length=%s)", r.Length)
	case layout.DynamicText:
		if !r.Bounded {
			return fmt.Sprintf("dynamic_text(%s, unbounded)", textKind(r.Bytes))
		}
		return fmt.Sprintf("dynamic_text(%s, max=%s)", textKind(r.Bytes), r.Max)
	case layout.Embedded:
		return fmt.Sprintf("embedded(%s)", r.Message.FullName)
	case layout.Array:
		s := fmt.Sprintf("array(count=%s", r.Count)
		if r.FixedCount {
			s += ", fixed_count"
		}
		return s + ", elem=" + FormatRepr(r.Elem) + ")"
	case layout.Container:
		s := fmt.Sprintf("container(%s", r.Kind)
		if r.Bounded {
			s += fmt.Sprintf(", count=%s", r.Count)
		}
		if r.KeyField != "" {
			s += fmt.Sprintf(", key=%s:%s", r.KeyField, FormatRepr(r.Key))
		}
		return s + ", elem=" + FormatRepr(r.Elem) + ")"
	case layout.Pointer:
		if r.Repeated {
			return "pointer(repeated, elem=" + FormatRepr(r.Elem) + ")"
		}
		return "pointer(elem=" + FormatRepr(r.Elem) + ")"
	case layout.Callback:
		return "callback"
	}
	panic(fmt.Sprintf("layouttext: unhandled representation %T", r))
}

func textKind(isBytes bool) string {
	if isBytes {
		return "bytes"
	}
	return "string"
}
