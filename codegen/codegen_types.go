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
	"go.fixpb.dev/fixpb/options"
)

// member is a field as it appears in generated code.
type member struct {
	f      *layout.Field
	ident  string // struct field name
	holder string // expression of the struct holding the field
	prefix string // prefix of the field's constants
	oneof  *layout.OneOf
}

func (m member) path() string {
	return m.holder + "." + m.ident
}

func (m member) countPath() string {
	return m.holder + "." + m.ident + "Count"
}

func (m member) tagConst() string {
	return m.prefix + "_Tag"
}

func (g *generator) members(msg *layout.Message) []member {
	msgIdent := goIdent(msg.Name)
	var out []member
	for _, f := range msg.AllFields() {
		m := member{
			f:      f,
			ident:  fieldIdent(f.Name),
			holder: "m",
			prefix: msgIdent + "_" + fieldIdent(f.Name),
		}
		if f.OneOf != "" {
			for _, oneof := range msg.OneOfs {
				if oneof.Name == f.OneOf {
					m.oneof = oneof
				}
			}
			if m.oneof != nil && !m.oneof.Anonymous {
				m.holder = "m." + fieldIdent(m.oneof.Name)
			}
		}
		out = append(out, m)
	}
	return out
}

// Storage types {{{

var naturalTypes = map[descriptor.Kind]string{
	descriptor.KindInt32:    "int32",
	descriptor.KindSint32:   "int32",
	descriptor.KindSfixed32: "int32",
	descriptor.KindInt64:    "int64",
	descriptor.KindSint64:   "int64",
	descriptor.KindSfixed64: "int64",
	descriptor.KindUint32:   "uint32",
	descriptor.KindFixed32:  "uint32",
	descriptor.KindUint64:   "uint64",
	descriptor.KindFixed64:  "uint64",
	descriptor.KindEnum:     "int32",
	descriptor.KindBool:     "bool",
	descriptor.KindFloat:    "float32",
	descriptor.KindDouble:   "float64",
}

// accessors names the Reader and Writer methods of each scalar kind.
var accessors = map[descriptor.Kind]string{
	descriptor.KindBool:     "Bool",
	descriptor.KindInt32:    "Int32",
	descriptor.KindInt64:    "Int64",
	descriptor.KindUint32:   "Uint32",
	descriptor.KindUint64:   "Uint64",
	descriptor.KindSint32:   "Sint32",
	descriptor.KindSint64:   "Sint64",
	descriptor.KindFixed32:  "Fixed32",
	descriptor.KindFixed64:  "Fixed64",
	descriptor.KindSfixed32: "Sfixed32",
	descriptor.KindSfixed64: "Sfixed64",
	descriptor.KindFloat:    "Float",
	descriptor.KindDouble:   "Double",
	descriptor.KindEnum:     "Enum",
}

func wireType(kind descriptor.Kind) string {
	switch kind {
	case descriptor.KindFixed32, descriptor.KindSfixed32, descriptor.KindFloat:
		return "protowire.Fixed32Type"
	case descriptor.KindFixed64, descriptor.KindSfixed64, descriptor.KindDouble:
		return "protowire.Fixed64Type"
	case descriptor.KindString, descriptor.KindBytes, descriptor.KindMessage:
		return "protowire.BytesType"
	}
	return "protowire.VarintType"
}

func (g *generator) scalarType(f *layout.Field, s layout.Scalar) string {
	switch s.Kind {
	case descriptor.KindEnum:
		return g.typeName(f.Type)
	case descriptor.KindBool, descriptor.KindFloat, descriptor.KindDouble:
		return naturalTypes[s.Kind]
	}
	if s.Unsigned {
		return fmt.Sprintf("uint%d", s.Bits)
	}
	return fmt.Sprintf("int%d", s.Bits)
}

func textType(isBytes bool) string {
	if isBytes {
		return "[]byte"
	}
	return "string"
}

// elemType is the Go type of one element of a field.
func (g *generator) elemType(f *layout.Field, r layout.Repr) string {
	switch r := r.(type) {
	case layout.Scalar:
		return g.scalarType(f, r)
	case layout.FixedText:
		return textType(r.Bytes)
	case layout.DynamicText:
		return textType(r.Bytes)
	case layout.FixedBlock:
		return fmt.Sprintf("[%d]byte", r.Length.Value)
	case layout.Embedded:
		return g.typeName(&r.Message)
	}
	panic(fmt.Sprintf("codegen: %T is not an element representation", r))
}

// fieldType is the Go type of a whole field.
func (g *generator) fieldType(f *layout.Field) (string, error) {
	switch r := f.Repr.(type) {
	case layout.Array:
		return fmt.Sprintf("[%d]%s", r.Count.Value, g.elemType(f, r.Elem)), nil
	case layout.Container:
		elem := g.elemType(f, r.Elem)
		switch {
		case r.Kind == options.ContainerVector:
			return "[]" + elem, nil
		case r.Kind == options.ContainerList:
			return "fixpb.List[" + elem + "]", nil
		case r.Kind.Keyed():
			key, err := g.keyType(f, r.Key)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("*fixpb.Keyed[%s, %s]", key, elem), nil
		}
		return "", errors.Newf("field %s: unsupported container %s", f.FullName, r.Kind)
	case layout.Pointer:
		elem := g.elemType(f, r.Elem)
		if r.Repeated {
			return "[]" + elem, nil
		}
		if _, ok := r.Elem.(layout.DynamicText); ok {
			return elem, nil
		}
		return "*" + elem, nil
	case layout.Callback:
		return "fixpb.Callback", nil
	}
	return g.elemType(f, f.Repr), nil
}

func (g *generator) keyType(f *layout.Field, key layout.Repr) (string, error) {
	switch key := key.(type) {
	case layout.DynamicText:
		return "string", nil
	case layout.Scalar:
		if key.Kind == descriptor.KindBool {
			return "", errors.Newf("field %s: bool keys are not ordered", f.FullName)
		}
		if key.Kind == descriptor.KindEnum {
			return "int32", nil
		}
		return g.scalarType(f, key), nil
	}
	return "", errors.Newf("field %s: unsupported key %T", f.FullName, key)
}

var keyedKinds = map[options.Container]string{
	options.ContainerHashMap:          "fixpb.HashMap",
	options.ContainerMultiHashMap:     "fixpb.MultiHashMap",
	options.ContainerHashMapList:      "fixpb.HashMapList",
	options.ContainerMultiHashMapList: "fixpb.MultiHashMapList",
	options.ContainerOrderedMap:       "fixpb.OrderedMap",
	options.ContainerMultiOrderedMap:  "fixpb.MultiOrderedMap",
	options.ContainerHashSet:          "fixpb.HashSet",
	options.ContainerMultiHashSet:     "fixpb.MultiHashSet",
	options.ContainerHashSetList:      "fixpb.HashSetList",
	options.ContainerMultiHashSetList: "fixpb.MultiHashSetList",
}

// }}}

// Reading {{{

func (g *generator) readScalar(f *layout.Field, s layout.Scalar) string {
	call := "r." + accessors[s.Kind] + "()"
	storage := g.scalarType(f, s)
	switch s.Kind {
	case descriptor.KindBool, descriptor.KindFloat, descriptor.KindDouble:
		return call
	case descriptor.KindEnum:
		if s.Bits >= 32 {
			return fmt.Sprintf("%s(%s)", storage, call)
		}
		return fmt.Sprintf("%s(fixpb.NarrowInt[int%d](r, %q, int64(%s)))", storage, s.Bits, f.Name, call)
	}
	natural := naturalTypes[s.Kind]
	switch {
	case storage == natural:
		return call
	case s.Bits < f.Kind.Bits() && s.Unsigned:
		return fmt.Sprintf("fixpb.NarrowUint[%s](r, %q, uint64(%s))", storage, f.Name, call)
	case s.Bits < f.Kind.Bits():
		return fmt.Sprintf("fixpb.NarrowInt[%s](r, %q, int64(%s))", storage, f.Name, call)
	}
	return fmt.Sprintf("%s(%s)", storage, call)
}

// readElem returns statements decoding one element of field m into the
// addressable expression target.
func (g *generator) readElem(m member, r layout.Repr, target string) []string {
	name := fmt.Sprintf("%q", m.f.Name)
	switch r := r.(type) {
	case layout.Scalar:
		return []string{target + " = " + g.readScalar(m.f, r)}
	case layout.FixedText:
		return []string{fmt.Sprintf("%s = r.%s(%s, %s_MaxSize)", target, textReader(r.Bytes), name, m.prefix)}
	case layout.DynamicText:
		if r.Bounded {
			return []string{fmt.Sprintf("%s = r.%s(%s, %s_MaxSize)", target, textReader(r.Bytes), name, m.prefix)}
		}
		if r.Bytes {
			return []string{target + " = append([]byte(nil), r.Bytes()...)"}
		}
		return []string{target + " = r.StringValue()"}
	case layout.FixedBlock:
		return []string{fmt.Sprintf("r.Block(%s, %s[:])", name, target)}
	case layout.Embedded:
		return []string{"r.Message(" + target + ".FromWire)"}
	}
	panic(fmt.Sprintf("codegen: %T is not an element representation", r))
}

func textReader(isBytes bool) string {
	if isBytes {
		return "Blob"
	}
	return "Text"
}

// readField returns the statements of the field's case in FromWire.
func (g *generator) readField(m member) ([]string, error) {
	name := fmt.Sprintf("%q", m.f.Name)
	path := m.path()
	switch r := m.f.Repr.(type) {
	case layout.Array:
		count := m.countPath()
		if r.FixedCount {
			count = localCount(m)
		}
		body := []string{
			fmt.Sprintf("if r.CheckCount(%s, int(%s)+1, %s_MaxCount) {", name, count, m.prefix),
		}
		body = append(body, g.readElem(m, r.Elem, fmt.Sprintf("%s[%s]", path, count))...)
		body = append(body, count+"++", "}")
		return g.packed(r.Elem, body), nil
	case layout.Container:
		elemType := g.elemType(m.f, r.Elem)
		var length, store string
		switch {
		case r.Kind == options.ContainerVector:
			length = "len(" + path + ")"
			store = path + " = append(" + path + ", v)"
		case r.Kind == options.ContainerList:
			length = path + ".Len()"
			store = path + ".Append(v)"
		case r.Kind.Keyed():
			// The key is only known once the element is read, and a
			// single-valued kind does not grow on a repeated key.
			keyType, err := g.keyType(m.f, r.Key)
			if err != nil {
				return nil, err
			}
			key := fmt.Sprintf("%s(v.%s)", keyType, fieldIdent(r.KeyField))
			body := []string{"var v " + elemType}
			body = append(body, g.readElem(m, r.Elem, "v")...)
			return append(body,
				fmt.Sprintf("if r.CheckCount(%s, %s.LenAfter(%s), %s_MaxCount) {", name, path, key, m.prefix),
				fmt.Sprintf("if %s == nil {", path),
				fmt.Sprintf("%s = fixpb.NewKeyed[%s, %s](%s)", path, keyType, elemType, keyedKinds[r.Kind]),
				"}",
				fmt.Sprintf("%s.Put(%s, v)", path, key),
				"}",
			), nil
		default:
			return nil, errors.Newf("field %s: unsupported container %s", m.f.FullName, r.Kind)
		}
		body := []string{
			fmt.Sprintf("if r.CheckCount(%s, %s+1, %s_MaxCount) {", name, length, m.prefix),
			"var v " + elemType,
		}
		body = append(body, g.readElem(m, r.Elem, "v")...)
		body = append(body, store, "}")
		return g.packed(r.Elem, body), nil
	case layout.Pointer:
		if r.Repeated {
			body := []string{"var v " + g.elemType(m.f, r.Elem)}
			body = append(body, g.readElem(m, r.Elem, "v")...)
			body = append(body, path+" = append("+path+", v)")
			return g.packed(r.Elem, body), nil
		}
		switch elem := r.Elem.(type) {
		case layout.DynamicText:
			return g.readElem(m, elem, path), nil
		case layout.Scalar:
			return []string{
				"{",
				"v := " + g.readScalar(m.f, elem),
				path + " = &v",
				"}",
			}, nil
		}
		out := []string{path + " = new(" + g.elemType(m.f, r.Elem) + ")"}
		return append(out, g.readElem(m, r.Elem, path)...), nil
	case layout.Callback:
		return []string{"r.Callback(&" + path + ")"}, nil
	}
	return g.readElem(m, m.f.Repr, path), nil
}

// packed wraps the decoding of a repeated scalar so that both packed and
// unpacked encodings are accepted.
func (g *generator) packed(elem layout.Repr, body []string) []string {
	s, ok := elem.(layout.Scalar)
	if !ok {
		return body
	}
	out := []string{"r.Packed(" + wireType(s.Kind) + ", func(r *fixpb.Reader) {"}
	out = append(out, body...)
	return append(out, "})")
}

func localCount(m member) string {
	return "n" + m.ident
}

// }}}

// Writing {{{

func (g *generator) writeScalar(m member, s layout.Scalar, value string) string {
	acc := accessors[s.Kind]
	switch s.Kind {
	case descriptor.KindBool, descriptor.KindFloat, descriptor.KindDouble:
		return fmt.Sprintf("w.%s(%s, %s)", acc, m.tagConst(), value)
	case descriptor.KindEnum:
		return fmt.Sprintf("w.Enum(%s, int32(%s))", m.tagConst(), value)
	}
	natural := naturalTypes[s.Kind]
	storage := g.scalarType(m.f, s)
	switch {
	case storage == natural:
	case s.Bits < m.f.Kind.Bits():
		value = fmt.Sprintf("%s(%s)", natural, value)
	case s.Unsigned:
		value = fmt.Sprintf("fixpb.NarrowUint[%s](w, %q, uint64(%s))", natural, m.f.Name, value)
	default:
		value = fmt.Sprintf("fixpb.NarrowInt[%s](w, %q, int64(%s))", natural, m.f.Name, value)
	}
	return fmt.Sprintf("w.%s(%s, %s)", acc, m.tagConst(), value)
}

// writeElem returns the statement encoding one element held in the
// addressable expression value.
func (g *generator) writeElem(m member, r layout.Repr, value string) string {
	name := fmt.Sprintf("%q", m.f.Name)
	switch r := r.(type) {
	case layout.Scalar:
		return g.writeScalar(m, r, value)
	case layout.FixedText:
		return fmt.Sprintf("w.%s(%s, %s, %s, %s_MaxSize)", textReader(r.Bytes), m.tagConst(), name, value, m.prefix)
	case layout.DynamicText:
		if r.Bounded {
			return fmt.Sprintf("w.%s(%s, %s, %s, %s_MaxSize)", textReader(r.Bytes), m.tagConst(), name, value, m.prefix)
		}
		if r.Bytes {
			return fmt.Sprintf("w.Bytes(%s, %s)", m.tagConst(), value)
		}
		return fmt.Sprintf("w.String(%s, %s)", m.tagConst(), value)
	case layout.FixedBlock:
		return fmt.Sprintf("w.Bytes(%s, %s[:])", m.tagConst(), value)
	case layout.Embedded:
		return fmt.Sprintf("w.Message(%s, %s.ToWire)", m.tagConst(), value)
	}
	panic(fmt.Sprintf("codegen: %T is not an element representation", r))
}

// zeroCheck is the condition under which a proto3 singular value is
// written, or "" when it is always written.
func zeroCheck(r layout.Repr, value string) string {
	switch r := r.(type) {
	case layout.Scalar:
		if r.Kind == descriptor.KindBool {
			return value
		}
		return value + " != 0"
	case layout.FixedText, layout.DynamicText:
		return "len(" + value + ") > 0"
	}
	return ""
}

// writeField returns the statements encoding field m in ToWire. The
// caller handles presence flags and one-of discriminants.
func (g *generator) writeField(m member) []string {
	name := fmt.Sprintf("%q", m.f.Name)
	path := m.path()
	switch r := m.f.Repr.(type) {
	case layout.Array:
		if r.FixedCount {
			return []string{
				"for ii := range " + path + " {",
				g.writeElem(m, r.Elem, path+"[ii]"),
				"}",
			}
		}
		return []string{
			fmt.Sprintf("if w.CheckCount(%s, int(%s), %s_MaxCount) {", name, m.countPath(), m.prefix),
			fmt.Sprintf("for ii := range %s[:%s] {", path, m.countPath()),
			g.writeElem(m, r.Elem, path+"[ii]"),
			"}",
			"}",
		}
	case layout.Container:
		length, rangeExpr := "len("+path+")", path
		if r.Kind != options.ContainerVector {
			length, rangeExpr = path+".Len()", path+".All()"
		}
		return []string{
			fmt.Sprintf("if w.CheckCount(%s, %s, %s_MaxCount) {", name, length, m.prefix),
			"for _, v := range " + rangeExpr + " {",
			g.writeElem(m, r.Elem, "v"),
			"}",
			"}",
		}
	case layout.Pointer:
		if r.Repeated {
			return []string{
				"for ii := range " + path + " {",
				g.writeElem(m, r.Elem, path+"["+"ii]"),
				"}",
			}
		}
		if _, ok := r.Elem.(layout.DynamicText); ok {
			return []string{g.writeElem(m, r.Elem, path)}
		}
		return []string{
			"if " + path + " != nil {",
			g.writeElem(m, r.Elem, "(*"+path+")"),
			"}",
		}
	case layout.Callback:
		return []string{"w.Callback(" + m.tagConst() + ", &" + path + ")"}
	}
	return []string{g.writeElem(m, m.f.Repr, path)}
}

// }}}

// zeroValue is the expression resetting a field's storage.
func (g *generator) zeroValue(m member) (string, error) {
	typ, err := g.fieldType(m.f)
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(typ, "*"), strings.HasPrefix(typ, "[]"):
		return "nil", nil
	case typ == "string":
		return `""`, nil
	}
	if s, ok := m.f.Repr.(layout.Scalar); ok {
		if s.Kind == descriptor.KindBool {
			return "false", nil
		}
		return "0", nil
	}
	return typ + "{}", nil
}
