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

package codegen

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
)

// emitConv writes the conversion routines of a file.
func (g *generator) emitConv(p *printer) error {
	for _, msg := range g.file.Messages {
		if err := g.emitReset(p, msg); err != nil {
			return err
		}
		for _, oneof := range msg.OneOfs {
			g.emitOneofLifecycle(p, msg, oneof)
		}
		if err := g.emitFromWire(p, msg); err != nil {
			return err
		}
		g.emitToWire(p, msg)
	}
	g.emitMessageIDs(p)
	g.emitAssertions(p)
	return nil
}

// defaultValue renders the declared default of a field as a Go
// expression of its storage type.
func (g *generator) defaultValue(m member) (string, error) {
	f := m.f
	switch r := f.Repr.(type) {
	case layout.Scalar:
		switch r.Kind {
		case descriptor.KindEnum:
			enum := g.lookupEnum(f.Type.FullName)
			if enum == nil {
				return "", errors.Newf("field %s: unknown enum %s", f.FullName, f.Type.FullName)
			}
			return g.qualify(f.Type, enumValueIdent(enum, f.Default)), nil
		case descriptor.KindFloat, descriptor.KindDouble:
			var expr string
			switch f.Default {
			case "inf":
				expr = "math.Inf(1)"
			case "-inf":
				expr = "math.Inf(-1)"
			case "nan":
				expr = "math.NaN()"
			default:
				return f.Default, nil
			}
			if r.Kind == descriptor.KindFloat {
				expr = "float32(" + expr + ")"
			}
			return expr, nil
		}
		return f.Default, nil
	case layout.FixedText, layout.DynamicText:
		if f.Kind == descriptor.KindString {
			return strconv.Quote(f.Default), nil
		}
		raw, err := strconv.Unquote(`"` + f.Default + `"`)
		if err != nil {
			return "", errors.Wrapf(err, "field %s: default value", f.FullName)
		}
		return "[]byte(" + strconv.Quote(raw) + ")", nil
	case layout.FixedBlock:
		raw, err := strconv.Unquote(`"` + f.Default + `"`)
		if err != nil {
			return "", errors.Wrapf(err, "field %s: default value", f.FullName)
		}
		var elems []string
		for _, c := range []byte(raw) {
			elems = append(elems, strconv.Itoa(int(c)))
		}
		typ, _ := g.fieldType(f)
		return typ + "{" + strings.Join(elems, ", ") + "}", nil
	}
	return "", errors.Newf("field %s: default on %T storage", f.FullName, f.Repr)
}

func (g *generator) emitReset(p *printer, msg *layout.Message) error {
	name := goIdent(msg.Name)
	p.linef("// Reset sets every field of m to its default.")
	p.linef("func (m *%s) Reset() {", name)
	p.linef("*m = %s{}", name)
	for _, m := range g.members(msg) {
		if m.oneof != nil {
			continue
		}
		if m.f.HasDefault {
			value, err := g.defaultValue(m)
			if err != nil {
				return err
			}
			p.linef("%s = %s", m.path(), value)
		}
		if _, ok := m.f.Repr.(layout.Embedded); ok {
			p.linef("%s.Reset()", m.path())
		}
	}
	p.line("}")
	p.line("")
	return nil
}

func hasLifecycle(oneof *layout.OneOf) bool {
	for _, f := range oneof.Members {
		if f.Lifecycle {
			return true
		}
	}
	return false
}

func (g *generator) emitOneofLifecycle(p *printer, msg *layout.Message, oneof *layout.OneOf) {
	if !hasLifecycle(oneof) {
		return
	}
	name := goIdent(msg.Name)
	ident := fieldIdent(oneof.Name)
	var members []member
	for _, m := range g.members(msg) {
		if m.oneof == oneof && m.f.Lifecycle {
			members = append(members, m)
		}
	}

	p.linef("func (m *%s) InitWhich%s(tag uint32) {", name, ident)
	p.line("switch tag {")
	for _, m := range members {
		p.linef("case %s:", m.tagConst())
		if _, ok := m.f.Repr.(layout.Embedded); ok {
			p.linef("%s.Reset()", m.path())
			continue
		}
		zero, _ := g.zeroValue(m)
		p.linef("%s = %s", m.path(), zero)
	}
	p.line("}")
	p.line("}")
	p.line("")

	p.linef("func (m *%s) UninitWhich%s(tag uint32) {", name, ident)
	p.line("switch tag {")
	for _, m := range members {
		zero, _ := g.zeroValue(m)
		p.linef("case %s:", m.tagConst())
		p.linef("%s = %s", m.path(), zero)
	}
	p.line("}")
	p.line("}")
	p.line("")
}

func requiredNames(msg *layout.Message) string {
	return "required" + goIdent(msg.Name)
}

func inExtensionRange(msg *layout.Message) string {
	var conds []string
	for _, rng := range msg.ExtensionRanges {
		conds = append(conds, fmt.Sprintf("(r.Number() >= %d && r.Number() < %d)", rng.Start, rng.End))
	}
	return strings.Join(conds, " || ")
}

func (g *generator) emitFromWire(p *printer, msg *layout.Message) error {
	name := goIdent(msg.Name)
	members := g.members(msg)

	var required []member
	for _, m := range members {
		if m.f.Label == descriptor.LabelRequired {
			required = append(required, m)
		}
	}
	if len(required) > 0 {
		p.linef("var %s = []string{", requiredNames(msg))
		for _, m := range required {
			p.linef("%q,", m.f.Name)
		}
		p.line("}")
		p.line("")
	}

	p.linef("// FromWire replaces m with the message encoded in b.")
	p.linef("func (m *%s) FromWire(b []byte, opts *fixpb.ConvertOptions) error {", name)
	p.line("m.Reset()")
	p.linef("r := fixpb.NewReader(%q, b, opts)", msg.FullName)
	if len(required) > 0 {
		p.line("var seen uint64")
	}
	var exact []member
	for _, m := range members {
		if arr, ok := m.f.Repr.(layout.Array); ok && arr.FixedCount {
			p.linef("var %s int", localCount(m))
			exact = append(exact, m)
		}
	}
	p.line("for r.Next() {")
	p.line("switch r.Number() {")
	for _, m := range members {
		p.linef("case %s:", m.tagConst())
		if m.oneof != nil {
			teardown, construct := "nil", "nil"
			if hasLifecycle(m.oneof) {
				ident := fieldIdent(m.oneof.Name)
				teardown, construct = "m.UninitWhich"+ident, "m.InitWhich"+ident
			}
			p.linef(
				"fixpb.SwitchOneof(&m.Which%s, %s, %q, %s, %s, opts)",
				fieldIdent(m.oneof.Name), m.tagConst(), msg.FullName, teardown, construct,
			)
		}
		body, err := g.readField(m)
		if err != nil {
			return err
		}
		p.lines(body)
		if m.f.Presence {
			p.linef("%s.Has%s = true", m.holder, m.ident)
		}
		for bit, req := range required {
			if req.f == m.f {
				p.linef("seen |= 1 << %d", bit)
			}
		}
	}
	p.line("default:")
	if cond := inExtensionRange(msg); cond != "" {
		p.linef("if %s {", cond)
		p.line("m.Extensions.Add(r.Raw())")
		p.line("} else {")
		p.line("r.Skip()")
		p.line("}")
	} else {
		p.line("r.Skip()")
	}
	p.line("}")
	p.line("}")
	for _, m := range exact {
		p.linef("r.CheckExact(%q, %s, %s_MaxCount)", m.f.Name, localCount(m), m.prefix)
	}
	if len(required) > 0 {
		p.linef("r.CheckRequired(seen, 1<<%d-1, %s)", len(required), requiredNames(msg))
	}
	p.line("return r.Finish()")
	p.line("}")
	p.line("")
	return nil
}

// writeCond is the condition under which a field that is not a one-of
// member is written, or "" when it is always written.
func writeCond(m member) string {
	f := m.f
	switch {
	case f.Label == descriptor.LabelRequired, f.Label == descriptor.LabelRepeated:
		return ""
	case f.Presence:
		return m.holder + ".Has" + m.ident
	}
	switch r := f.Repr.(type) {
	case layout.Pointer:
		if text, ok := r.Elem.(layout.DynamicText); ok {
			return zeroCheck(text, m.path())
		}
	case layout.Scalar, layout.FixedText, layout.DynamicText:
		return zeroCheck(r, m.path())
	}
	return ""
}

func (g *generator) emitToWire(p *printer, msg *layout.Message) {
	name := goIdent(msg.Name)
	members := g.members(msg)

	p.linef("// ToWire appends the encoding of m to b.")
	p.linef("func (m *%s) ToWire(b []byte, opts *fixpb.ConvertOptions) ([]byte, error) {", name)
	p.linef("w := fixpb.NewWriter(%q, b, opts)", msg.FullName)
	done := make(map[*layout.OneOf]bool)
	for _, m := range members {
		if m.oneof == nil {
			body := g.writeField(m)
			if cond := writeCond(m); cond != "" {
				p.linef("if %s {", cond)
				p.lines(body)
				p.line("}")
			} else {
				p.lines(body)
			}
			continue
		}
		if done[m.oneof] {
			continue
		}
		done[m.oneof] = true
		ident := fieldIdent(m.oneof.Name)
		p.linef("switch m.Which%s {", ident)
		p.line("case 0:")
		for _, member := range members {
			if member.oneof == m.oneof {
				p.linef("case %s:", member.tagConst())
				p.lines(g.writeField(member))
			}
		}
		p.line("default:")
		p.linef("w.Fail(%q, \"invalid discriminant %%d\", m.Which%s)", m.oneof.Name, ident)
		p.line("}")
	}
	if len(msg.ExtensionRanges) > 0 {
		p.line("w.Raw(m.Extensions.AppendTo(nil))")
	}
	p.line("return w.Finish()")
	p.line("}")
	p.line("")
}

func (g *generator) emitMessageIDs(p *printer) {
	var ids []*layout.Message
	for _, msg := range g.file.Messages {
		if msg.HasMsgID {
			ids = append(ids, msg)
		}
	}
	if len(ids) == 0 {
		return
	}
	base := strings.TrimSuffix(path.Base(g.file.Name), path.Ext(g.file.Name))
	p.linef("// %sMessageIDs maps message IDs to full message names.", strcase.ToCamel(base))
	p.linef("var %sMessageIDs = map[uint32]string{", strcase.ToCamel(base))
	for _, msg := range ids {
		p.linef("%s_MsgID: %q,", goIdent(msg.Name), msg.FullName)
	}
	p.line("}")
	p.line("")
}

// emitAssertions writes constants that fail to compile when a message's
// tags or bounds outgrow its descriptor width, or when it has more
// required fields than the presence mask can track.
func (g *generator) emitAssertions(p *printer) {
	if len(g.file.Messages) == 0 {
		return
	}
	p.line("const (")
	for _, msg := range g.file.Messages {
		p.linef("_ uint%d = %d // %s", msg.DescriptorWidth, msg.MaxFieldValue, msg.FullName)
		if msg.RequiredCount > 0 {
			p.linef("_ uint = 64 - %d", msg.RequiredCount)
		}
	}
	p.line(")")
}
