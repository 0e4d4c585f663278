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
	"strings"

	"github.com/cockroachdb/errors"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
)

// emitDecls writes the enum, struct and constant declarations of a file.
func (g *generator) emitDecls(p *printer) error {
	for _, enum := range g.file.Enums {
		g.emitEnum(p, enum)
	}
	for _, msg := range g.file.Messages {
		if err := g.emitMessage(p, msg); err != nil {
			return err
		}
	}
	for _, ext := range g.file.Extensions {
		if err := g.emitExtension(p, ext); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitEnum(p *printer, enum *layout.Enum) {
	name := goIdent(enum.Name)
	p.linef("type %s int%d", name, enum.StorageBits)
	p.line("")
	p.line("const (")
	for _, v := range enum.Values {
		p.linef("%s %s = %d", enumValueIdent(enum, v.Name), name, v.Number)
	}
	p.line(")")
	p.line("")
	p.line("const (")
	p.linef("%s_MIN %s = %d", name, name, enum.MinValue())
	p.linef("%s_MAX %s = %d", name, name, enum.MaxValue())
	p.linef("%s_ARRAYSIZE = %d", name, int64(enum.MaxValue())+1)
	p.line(")")
	p.line("")
	if !enum.ToString {
		return
	}
	p.linef("func (v %s) String() string {", name)
	p.line("switch v {")
	seen := make(map[int32]bool)
	for _, v := range enum.Values {
		if seen[v.Number] {
			continue
		}
		seen[v.Number] = true
		p.linef("case %s:", enumValueIdent(enum, v.Name))
		p.linef("return %q", v.Name)
	}
	p.line("}")
	p.line("return strconv.FormatInt(int64(v), 10)")
	p.line("}")
	p.line("")
}

func (g *generator) emitMessage(p *printer, msg *layout.Message) error {
	name := goIdent(msg.Name)
	members := g.members(msg)

	for _, oneof := range msg.OneOfs {
		if oneof.Anonymous {
			continue
		}
		p.linef("type %s_%s struct {", name, fieldIdent(oneof.Name))
		for _, m := range members {
			if m.oneof == oneof {
				if err := g.emitStorage(p, m); err != nil {
					return err
				}
			}
		}
		p.line("}")
		p.line("")
	}

	p.linef("type %s struct {", name)
	for _, m := range members {
		if m.oneof != nil {
			continue
		}
		if m.f.Presence {
			p.linef("Has%s bool", m.ident)
		}
		if err := g.emitStorage(p, m); err != nil {
			return err
		}
	}
	for _, oneof := range msg.OneOfs {
		ident := fieldIdent(oneof.Name)
		p.linef("Which%s uint32", ident)
		if !oneof.Anonymous {
			p.linef("%s %s_%s", ident, name, ident)
			continue
		}
		for _, m := range members {
			if m.oneof == oneof {
				if err := g.emitStorage(p, m); err != nil {
					return err
				}
			}
		}
	}
	if len(msg.ExtensionRanges) > 0 {
		p.line("Extensions fixpb.ExtensionSet")
	}
	p.line("}")
	p.line("")

	p.line("const (")
	for _, m := range members {
		g.emitFieldConsts(p, m)
	}
	if msg.SizeRecursive {
		p.linef("// %s_Size is unbounded: the message contains itself.", name)
	} else if msg.SizeKnown {
		p.linef("%s_Size = %s", name, g.sizeExpr(msg))
	} else {
		p.linef("// %s_Size depends on runtime parameters.", name)
	}
	if msg.HasMsgID {
		p.linef("%s_MsgID = %d", name, msg.MsgID)
	}
	p.line(")")
	p.line("")

	if len(msg.KeyFields) > 0 {
		return g.emitKeyMethods(p, msg, members)
	}
	return nil
}

func (g *generator) emitStorage(p *printer, m member) error {
	typ, err := g.fieldType(m.f)
	if err != nil {
		return err
	}
	p.linef("%s %s", m.ident, typ)
	if arr, ok := m.f.Repr.(layout.Array); ok && !arr.FixedCount {
		p.linef("%sCount uint32", m.ident)
	}
	return nil
}

func boundConst(p *printer, name string, b layout.Bound) {
	if b.Symbol != "" {
		p.linef("%s = %d // %s", name, b.Value, b.Symbol)
		return
	}
	p.linef("%s = %d", name, b.Value)
}

func (g *generator) emitFieldConsts(p *printer, m member) {
	p.linef("%s = %d", m.tagConst(), m.f.Tag)
	repr := m.f.Repr
	switch r := repr.(type) {
	case layout.Array:
		boundConst(p, m.prefix+"_MaxCount", r.Count)
	case layout.Container:
		boundConst(p, m.prefix+"_MaxCount", r.Count)
	}
	switch r := layout.ElemRepr(repr).(type) {
	case layout.Pointer:
		if text, ok := r.Elem.(layout.DynamicText); ok && text.Bounded {
			boundConst(p, m.prefix+"_MaxSize", text.Max)
		}
	case layout.FixedText:
		boundConst(p, m.prefix+"_MaxSize", r.Capacity)
	case layout.DynamicText:
		if r.Bounded {
			boundConst(p, m.prefix+"_MaxSize", r.Max)
		}
	case layout.FixedBlock:
		boundConst(p, m.prefix+"_Length", r.Length)
	}
}

// sizeExpr renders a message's maximum encoded size, naming the size
// constants of messages defined in other packages.
func (g *generator) sizeExpr(msg *layout.Message) string {
	terms := msg.Size.Terms()
	if len(terms) == 0 {
		return fmt.Sprint(msg.Size.Value())
	}
	parts := []string{fmt.Sprint(msg.Size.Value())}
	for _, t := range terms {
		ident := goIdent(t.Name) + "_Size"
		if ref, ok := g.refs[t.Name]; ok {
			ident = g.qualify(ref, goIdent(ref.Name)+"_Size")
		}
		if t.Count != 1 {
			ident = fmt.Sprintf("%d*%s", t.Count, ident)
		}
		parts = append(parts, ident)
	}
	return strings.Join(parts, " + ")
}

func (g *generator) emitKeyMethods(p *printer, msg *layout.Message, members []member) error {
	name := goIdent(msg.Name)
	var equal, compare []string
	for _, key := range msg.KeyFields {
		var m member
		for _, candidate := range members {
			if candidate.f.Name == key {
				m = candidate
			}
		}
		if m.f == nil {
			return errors.Newf("message %s: unknown key field %q", msg.FullName, key)
		}
		a := m.path()
		b := "o" + strings.TrimPrefix(a, "m")
		switch r := m.f.Repr.(type) {
		case layout.Scalar:
			equal = append(equal, a+" == "+b)
			if r.Kind == descriptor.KindBool {
				compare = append(compare, fmt.Sprintf("fixpb.CompareBool(%s, %s)", a, b))
			} else {
				compare = append(compare, fmt.Sprintf("cmp.Compare(%s, %s)", a, b))
			}
		case layout.FixedText, layout.DynamicText:
			typ, _ := g.fieldType(m.f)
			if typ == "[]byte" {
				equal = append(equal, fmt.Sprintf("bytes.Equal(%s, %s)", a, b))
				compare = append(compare, fmt.Sprintf("bytes.Compare(%s, %s)", a, b))
			} else {
				equal = append(equal, a+" == "+b)
				compare = append(compare, fmt.Sprintf("cmp.Compare(%s, %s)", a, b))
			}
		case layout.FixedBlock:
			equal = append(equal, a+" == "+b)
			compare = append(compare, fmt.Sprintf("bytes.Compare(%s[:], %s[:])", a, b))
		default:
			return errors.Newf("field %s: %T cannot be a key", m.f.FullName, r)
		}
	}

	p.linef("func (m *%s) KeyEqual(o *%s) bool {", name, name)
	p.linef("return %s", strings.Join(equal, " &&\n"))
	p.line("}")
	p.line("")
	p.linef("func (m *%s) KeyCompare(o *%s) int {", name, name)
	for _, c := range compare {
		p.linef("if c := %s; c != 0 {", c)
		p.line("return c")
		p.line("}")
	}
	p.line("return 0")
	p.line("}")
	p.line("")
	return nil
}

func (g *generator) emitExtension(p *printer, ext *layout.Extension) error {
	f := ext.Field
	ident := "E_" + goIdent(ext.Name)
	m := member{f: f, ident: ident, holder: "", prefix: ident}
	switch f.Repr.(type) {
	case layout.Array, layout.Container, layout.Pointer, layout.Callback:
		return errors.Newf("extension %s: only singular static extensions are supported", ext.FullName)
	}
	typ, err := g.fieldType(f)
	if err != nil {
		return err
	}

	p.line("const (")
	g.emitFieldConsts(p, m)
	p.line(")")
	p.line("")
	p.linef("var %s = &fixpb.Extension[%s]{", ident, typ)
	p.linef("Extendee: %q,", ext.Extendee)
	p.linef("Name: %q,", ext.FullName)
	p.linef("Number: %d,", f.Tag)
	p.linef("Decode: func(r *fixpb.Reader) %s {", typ)
	p.linef("var v %s", typ)
	p.lines(g.readElem(m, f.Repr, "v"))
	p.line("return v")
	p.line("},")
	p.linef("Encode: func(w *fixpb.Writer, _ protowire.Number, v %s) {", typ)
	p.line(g.writeElem(m, f.Repr, "v"))
	p.line("},")
	p.line("}")
	p.line("")
	return nil
}
