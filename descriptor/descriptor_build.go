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

package descriptor

import (
	"path"
	"strings"
	"unicode"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// MaxTag is the largest field number allowed by the wire format.
const MaxTag = 1<<29 - 1

type fieldType = descriptorpb.FieldDescriptorProto_Type

var kindsByType = map[fieldType]Kind{
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     KindBool,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    KindInt32,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    KindInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   KindUint32,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   KindUint64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   KindSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   KindSint64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  KindFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  KindFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: KindSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: KindSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    KindFloat,
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   KindDouble,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   KindString,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    KindBytes,
	descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:  KindMessage,
	descriptorpb.FieldDescriptorProto_TYPE_ENUM:     KindEnum,
}

// New builds the model of one schema file. The descriptor is not retained.
func New(fd *descriptorpb.FileDescriptorProto) (*File, error) {
	if fd.GetName() == "" {
		return nil, errMissingFileName()
	}
	b := builder{proto3: fd.GetSyntax() == "proto3"}
	file := &File{
		Name:         fd.GetName(),
		Package:      fd.GetPackage(),
		Syntax:       fd.GetSyntax(),
		Dependencies: append([]string(nil), fd.GetDependency()...),
		Options:      rawOptions(fd.GetOptions()),
	}
	if file.Syntax == "" {
		file.Syntax = "proto2"
	}
	file.GoImportPath, file.GoPackage = goPackage(fd)

	for _, ed := range fd.GetEnumType() {
		enum, err := b.enum(file.Package, ed)
		if err != nil {
			return nil, err
		}
		file.Enums = append(file.Enums, enum)
	}
	for _, md := range fd.GetMessageType() {
		msg, err := b.message(file.Package, md)
		if err != nil {
			return nil, err
		}
		file.Messages = append(file.Messages, msg)
	}
	for _, xd := range fd.GetExtension() {
		ext, err := b.field(file.Package, xd)
		if err != nil {
			return nil, err
		}
		ext.Extendee = strings.TrimPrefix(xd.GetExtendee(), ".")
		file.Extensions = append(file.Extensions, ext)
	}
	return file, nil
}

type builder struct {
	proto3 bool
}

func (b *builder) message(scope string, md *descriptorpb.DescriptorProto) (*Message, error) {
	if md.GetName() == "" {
		return nil, errMissingName("message", scope)
	}
	fullName := JoinName(scope, md.GetName())
	msg := &Message{
		Name:     md.GetName(),
		FullName: fullName,
		MapEntry: md.GetOptions().GetMapEntry(),
		Options:  rawOptions(md.GetOptions()),
	}

	// Synthetic oneofs only carry proto3 optional fields.
	synthetic := make(map[int32]bool)
	for _, fd := range md.GetField() {
		if fd.GetProto3Optional() && fd.OneofIndex != nil {
			synthetic[fd.GetOneofIndex()] = true
		}
	}
	oneofs := make(map[int32]*OneOf)
	for ii, od := range md.GetOneofDecl() {
		if synthetic[int32(ii)] {
			continue
		}
		if od.GetName() == "" {
			return nil, errMissingName("oneof", fullName)
		}
		oneof := &OneOf{
			Name:     od.GetName(),
			FullName: JoinName(fullName, od.GetName()),
			Options:  rawOptions(od.GetOptions()),
		}
		oneofs[int32(ii)] = oneof
		msg.OneOfs = append(msg.OneOfs, oneof)
	}

	tags := make(map[int32]string)
	names := make(map[string]struct{})
	for _, fd := range md.GetField() {
		field, err := b.field(fullName, fd)
		if err != nil {
			return nil, err
		}
		if prev, dup := tags[field.Tag]; dup {
			return nil, errDuplicateTag(field.FullName, prev, field.Tag)
		}
		tags[field.Tag] = field.FullName
		if _, dup := names[field.Name]; dup {
			return nil, errDuplicateFieldName(field.FullName)
		}
		names[field.Name] = struct{}{}

		if fd.OneofIndex != nil && !fd.GetProto3Optional() {
			oneof, ok := oneofs[fd.GetOneofIndex()]
			if !ok {
				return nil, errInvalidOneOfIndex(field.FullName, fd.GetOneofIndex())
			}
			field.Label = LabelOneOf
			field.OneOf = oneof
			oneof.Fields = append(oneof.Fields, field)
		}
		msg.Fields = append(msg.Fields, field)
	}

	for _, rd := range md.GetExtensionRange() {
		msg.ExtensionRanges = append(msg.ExtensionRanges, ExtensionRange{
			Start: rd.GetStart(),
			End:   rd.GetEnd(),
		})
	}
	for _, ed := range md.GetEnumType() {
		enum, err := b.enum(fullName, ed)
		if err != nil {
			return nil, err
		}
		msg.Enums = append(msg.Enums, enum)
	}
	for _, nd := range md.GetNestedType() {
		nested, err := b.message(fullName, nd)
		if err != nil {
			return nil, err
		}
		msg.Nested = append(msg.Nested, nested)
	}
	return msg, nil
}

func (b *builder) field(scope string, fd *descriptorpb.FieldDescriptorProto) (*Field, error) {
	if fd.GetName() == "" {
		return nil, errMissingName("field", scope)
	}
	fullName := JoinName(scope, fd.GetName())
	if fd.GetNumber() < 1 || fd.GetNumber() > MaxTag {
		return nil, errInvalidTag(fullName, fd.GetNumber())
	}
	if fd.GetType() == descriptorpb.FieldDescriptorProto_TYPE_GROUP {
		return nil, errGroupUnsupported(fullName)
	}
	kind, ok := kindsByType[fd.GetType()]
	if !ok {
		return nil, errUnknownType(fullName, int32(fd.GetType()))
	}
	field := &Field{
		Name:       fd.GetName(),
		FullName:   fullName,
		Tag:        fd.GetNumber(),
		Kind:       kind,
		TypeName:   strings.TrimPrefix(fd.GetTypeName(), "."),
		Default:    fd.GetDefaultValue(),
		HasDefault: fd.DefaultValue != nil,
		Options:    rawOptions(fd.GetOptions()),
	}
	if (kind == KindMessage || kind == KindEnum) && field.TypeName == "" {
		return nil, errMissingTypeName(fullName)
	}
	switch fd.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		field.Label = LabelRepeated
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		field.Label = LabelRequired
	default:
		field.Label = LabelOptional
		if b.proto3 && !fd.GetProto3Optional() {
			field.Label = LabelSingular
		}
	}
	return field, nil
}

func (b *builder) enum(scope string, ed *descriptorpb.EnumDescriptorProto) (*Enum, error) {
	if ed.GetName() == "" {
		return nil, errMissingName("enum", scope)
	}
	enum := &Enum{
		Name:     ed.GetName(),
		FullName: JoinName(scope, ed.GetName()),
		Options:  rawOptions(ed.GetOptions()),
	}
	if len(ed.GetValue()) == 0 {
		return nil, errEmptyEnum(enum.FullName)
	}
	for _, vd := range ed.GetValue() {
		if vd.GetName() == "" {
			return nil, errMissingName("enum value", enum.FullName)
		}
		enum.Values = append(enum.Values, EnumValue{
			Name:   vd.GetName(),
			Number: vd.GetNumber(),
		})
	}
	return enum, nil
}

// rawOptions serializes an options message. Annotations whose extension is
// not linked into this binary survive as unknown fields in the result.
func rawOptions(opts proto.Message) []byte {
	if !opts.ProtoReflect().IsValid() {
		return nil
	}
	buf, err := proto.MarshalOptions{Deterministic: true}.Marshal(opts)
	if err != nil || len(buf) == 0 {
		return nil
	}
	return buf
}

func goPackage(fd *descriptorpb.FileDescriptorProto) (importPath, name string) {
	if gp := fd.GetOptions().GetGoPackage(); gp != "" {
		if idx := strings.LastIndexByte(gp, ';'); idx >= 0 {
			return gp[:idx], sanitizePackageName(gp[idx+1:])
		}
		return gp, sanitizePackageName(path.Base(gp))
	}
	importPath = path.Dir(fd.GetName())
	if importPath == "." {
		importPath = ""
	}
	name = fd.GetPackage()
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		name = strings.TrimSuffix(path.Base(fd.GetName()), ".proto")
	}
	return importPath, sanitizePackageName(name)
}

func sanitizePackageName(name string) string {
	var buf strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('_')
		}
	}
	out := buf.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}
