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

package options

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ExtensionNumber is the field number of the fixpb annotation on File,
// Message, Field, Enum and Oneof options.
const ExtensionNumber protowire.Number = 1010

// Field numbers of the annotation message.
const (
	fieldMaxSize        protowire.Number = 1
	fieldMaxCount       protowire.Number = 2
	fieldType           protowire.Number = 3
	fieldLongNames      protowire.Number = 4
	fieldSkipMessage    protowire.Number = 6
	fieldIntSize        protowire.Number = 7
	fieldNoUnions       protowire.Number = 8
	fieldMsgID          protowire.Number = 9
	fieldPackedEnum     protowire.Number = 10
	fieldAnonymousOneof protowire.Number = 11
	fieldEnumToString   protowire.Number = 13
	fieldMaxLength      protowire.Number = 14
	fieldFixedLength    protowire.Number = 15
	fieldFixedCount     protowire.Number = 16
	fieldMaxSizeConst   protowire.Number = 17
	fieldMaxCountConst  protowire.Number = 18
	fieldContainer      protowire.Number = 19
	fieldKeyField       protowire.Number = 20
	fieldIsKey          protowire.Number = 21
	fieldDynamicText    protowire.Number = 22
	fieldDefaultBounds  protowire.Number = 23
)

// DecodeInline extracts the annotation from a serialized options message.
// Repeated occurrences merge, later values winning. Empty input yields an
// empty directive set.
func DecodeInline(raw []byte) (Directives, error) {
	var d Directives
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return Directives{}, protowire.ParseError(n)
		}
		raw = raw[n:]
		if num == ExtensionNumber && typ == protowire.BytesType {
			payload, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return Directives{}, protowire.ParseError(n)
			}
			raw = raw[n:]
			if err := decodeAnnotation(payload, &d); err != nil {
				return Directives{}, err
			}
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, raw)
		if n < 0 {
			return Directives{}, protowire.ParseError(n)
		}
		raw = raw[n:]
	}
	return d, nil
}

func decodeAnnotation(b []byte, d *Directives) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := d.setVarint(num, v); err != nil {
				return err
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			d.setString(num, string(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func (d *Directives) setVarint(num protowire.Number, v uint64) error {
	// int32 fields are sign-extended on the wire.
	i32 := int64(int32(v))
	flag := v != 0
	switch num {
	case fieldMaxSize:
		d.MaxSize = &i32
	case fieldMaxCount:
		d.MaxCount = &i32
	case fieldMaxLength:
		d.MaxLength = &i32
	case fieldType:
		alloc := Allocation(v)
		if _, ok := allocNames[alloc]; !ok || v > 0xFF {
			return errors.Newf("invalid allocation type %d", v)
		}
		d.Type = &alloc
	case fieldIntSize:
		size := IntSize(v)
		if !size.valid() || v > 0xFF {
			return errors.Newf("invalid integer size %d", v)
		}
		d.IntSize = &size
	case fieldContainer:
		if v >= uint64(len(containerNames)) {
			return errors.Newf("invalid container kind %d", v)
		}
		container := Container(v)
		d.Container = &container
	case fieldMsgID:
		id := uint32(v)
		d.MsgID = &id
	case fieldLongNames:
		d.LongNames = &flag
	case fieldSkipMessage:
		d.SkipMessage = &flag
	case fieldNoUnions:
		d.NoUnions = &flag
	case fieldPackedEnum:
		d.PackedEnum = &flag
	case fieldAnonymousOneof:
		d.AnonymousOneof = &flag
	case fieldEnumToString:
		d.EnumToString = &flag
	case fieldFixedLength:
		d.FixedLength = &flag
	case fieldFixedCount:
		d.FixedCount = &flag
	case fieldIsKey:
		d.IsKey = &flag
	case fieldDynamicText:
		d.DynamicText = &flag
	case fieldDefaultBounds:
		d.DefaultBounds = &flag
	}
	return nil
}

func (d *Directives) setString(num protowire.Number, v string) {
	switch num {
	case fieldMaxSizeConst:
		d.MaxSizeConst = &v
	case fieldMaxCountConst:
		d.MaxCountConst = &v
	case fieldKeyField:
		d.KeyField = &v
	}
}

// AppendInline appends d to b as an annotation extension field, in the form
// DecodeInline reads back.
func AppendInline(b []byte, d Directives) []byte {
	var payload []byte
	appendInt := func(num protowire.Number, v *int64) {
		if v != nil {
			payload = protowire.AppendTag(payload, num, protowire.VarintType)
			payload = protowire.AppendVarint(payload, uint64(*v))
		}
	}
	appendUint := func(num protowire.Number, v uint64) {
		payload = protowire.AppendTag(payload, num, protowire.VarintType)
		payload = protowire.AppendVarint(payload, v)
	}
	appendBool := func(num protowire.Number, v *bool) {
		if v != nil {
			appendUint(num, protowire.EncodeBool(*v))
		}
	}
	appendString := func(num protowire.Number, v *string) {
		if v != nil {
			payload = protowire.AppendTag(payload, num, protowire.BytesType)
			payload = protowire.AppendString(payload, *v)
		}
	}

	appendInt(fieldMaxSize, d.MaxSize)
	appendInt(fieldMaxCount, d.MaxCount)
	if d.Type != nil {
		appendUint(fieldType, uint64(*d.Type))
	}
	appendBool(fieldLongNames, d.LongNames)
	appendBool(fieldSkipMessage, d.SkipMessage)
	if d.IntSize != nil {
		appendUint(fieldIntSize, uint64(*d.IntSize))
	}
	appendBool(fieldNoUnions, d.NoUnions)
	if d.MsgID != nil {
		appendUint(fieldMsgID, uint64(*d.MsgID))
	}
	appendBool(fieldPackedEnum, d.PackedEnum)
	appendBool(fieldAnonymousOneof, d.AnonymousOneof)
	appendBool(fieldEnumToString, d.EnumToString)
	appendInt(fieldMaxLength, d.MaxLength)
	appendBool(fieldFixedLength, d.FixedLength)
	appendBool(fieldFixedCount, d.FixedCount)
	appendString(fieldMaxSizeConst, d.MaxSizeConst)
	appendString(fieldMaxCountConst, d.MaxCountConst)
	if d.Container != nil {
		appendUint(fieldContainer, uint64(*d.Container))
	}
	appendString(fieldKeyField, d.KeyField)
	appendBool(fieldIsKey, d.IsKey)
	appendBool(fieldDynamicText, d.DynamicText)
	appendBool(fieldDefaultBounds, d.DefaultBounds)

	b = protowire.AppendTag(b, ExtensionNumber, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}
