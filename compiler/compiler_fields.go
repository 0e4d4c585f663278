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

package compiler

import (
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

// fieldBounds are the bounds and text flags of a field after defaults.
type fieldBounds struct {
	size        layout.Bound
	count       layout.Bound
	dynamic     bool
	fixedLength bool
	fixedCount  bool
	container   options.Container
}

// compileField resolves one field. It returns nil when the field is ignored
// (its tag is recorded in msg) or invalid (an error is recorded).
func (c *compiler) compileField(
	msg *layout.Message,
	f *descriptor.Field,
	oneof *descriptor.OneOf,
) *layout.Field {
	loc := c.fieldLocator(msg.FullName, f)
	d := c.eff.Of(f.FullName)

	alloc := d.Allocation()
	if alloc == options.AllocIgnore {
		c.warn(warnFieldIgnored(loc))
		msg.IgnoredTags = append(msg.IgnoredTags, f.Tag)
		return nil
	}

	out := &layout.Field{
		Name:       f.Name,
		FullName:   f.FullName,
		Tag:        f.Tag,
		Label:      f.Label,
		Kind:       f.Kind,
		Default:    f.Default,
		HasDefault: f.HasDefault,
		IsKey:      options.Bool(d.IsKey),
	}
	if oneof != nil {
		out.OneOf = oneof.Name
	} else if f.Label == descriptor.LabelOneOf {
		out.Label = descriptor.LabelOptional
	}

	errCount := len(c.errors)
	if f.Kind == descriptor.KindMessage || f.Kind == descriptor.KindEnum {
		ref, err := c.resolveTypeRef(f, loc)
		if err != nil {
			c.err(err)
		} else {
			out.Type = ref
		}
	}

	bounds := c.compileBounds(f, d, loc)
	if alloc == options.AllocInline {
		alloc = options.AllocStatic
	}

	canBeStatic := true
	if isText(f.Kind) && !bounds.size.Known() {
		canBeStatic = false
	}
	if f.Repeated() && !bounds.count.Known() {
		canBeStatic = false
	}

	switch alloc {
	case options.AllocDefault:
		if canBeStatic {
			out.Alloc = layout.AllocStatic
		} else {
			out.Alloc = layout.AllocCallback
		}
	case options.AllocStatic:
		if !canBeStatic {
			c.err(errStaticWithoutBound(loc))
		}
		out.Alloc = layout.AllocStatic
	case options.AllocPointer:
		out.Alloc = layout.AllocPointer
	default:
		out.Alloc = layout.AllocCallback
	}
	if oneof != nil && out.Alloc == layout.AllocCallback {
		c.err(errCallbackInOneOf(oneof.Name, loc))
	}

	if len(c.errors) > errCount {
		return nil
	}

	elem := c.elemRepr(out, bounds)
	switch {
	case out.Alloc == layout.AllocCallback:
		out.Repr = layout.Callback{}
	case out.Alloc == layout.AllocPointer:
		out.Repr = layout.Pointer{Elem: elem, Repeated: f.Repeated()}
	case !f.Repeated():
		out.Repr = elem
	case bounds.container == options.ContainerNone:
		out.Repr = layout.Array{
			Elem:       elem,
			Count:      bounds.count,
			FixedCount: bounds.fixedCount,
		}
	default:
		if text, ok := elem.(layout.FixedText); ok && !text.Bytes && !bounds.container.Keyed() {
			c.err(errSequenceNeedsDynamicText(bounds.container.String(), loc))
			return nil
		}
		container := layout.Container{
			Kind:    bounds.container,
			Elem:    elem,
			Bounded: true,
			Count:   bounds.count,
		}
		if bounds.container.Keyed() && out.Type != nil {
			key, err := c.resolveKey(out.Type.FullName, d.KeyFieldName(), loc)
			if err != nil {
				c.err(err)
				return nil
			}
			container.KeyField = d.KeyFieldName()
			container.Key = key
		}
		out.Repr = container
	}

	if out.Label == descriptor.LabelOptional && out.OneOf == "" {
		out.Presence = out.Alloc == layout.AllocStatic
	}
	if out.HasDefault && out.Alloc != layout.AllocStatic {
		c.warn(warnDefaultIgnored(out.Alloc.String(), loc))
		out.Default = ""
		out.HasDefault = false
	}
	return out
}

// compileBounds validates the directive combination of a field and resolves
// its bounds, applying default_bounds.
func (c *compiler) compileBounds(
	f *descriptor.Field,
	d options.Directives,
	loc Locator,
) fieldBounds {
	kindName := f.Kind.String()
	b := fieldBounds{
		dynamic:     options.Bool(d.DynamicText),
		fixedLength: options.Bool(d.FixedLength) || d.Allocation() == options.AllocInline,
		fixedCount:  options.Bool(d.FixedCount),
		container:   d.ContainerKind(),
	}

	if d.IntSizeBits() != options.IntSizeDefault && !f.Kind.IsInteger() {
		c.err(errIntSizeOnNonInteger(kindName, loc))
	}
	if b.dynamic && !isText(f.Kind) {
		c.err(errDynamicTextOnNonText(kindName, loc))
	}
	if b.fixedLength && f.Kind != descriptor.KindBytes {
		c.err(errFixedLengthOnNonBytes(kindName, loc))
	}
	if b.container != options.ContainerNone && !f.Repeated() {
		c.err(errContainerOnNonRepeated(b.container.String(), loc))
	}

	keyField := d.KeyFieldName()
	switch {
	case keyField != "" && f.Kind != descriptor.KindMessage:
		c.err(errKeyFieldOnNonMessage(loc))
	case b.container.Keyed() && f.Kind != descriptor.KindMessage:
		c.err(errMapOnNonMessage(b.container.String(), loc))
	case b.container.Keyed() && keyField == "":
		c.err(errMapWithoutKey(b.container.String(), loc))
	case keyField != "" && !b.container.Keyed():
		c.err(errKeyWithoutMap(keyField, loc))
	}

	sizeLiteral := d.MaxSize
	if d.MaxLength != nil {
		sizeLiteral = d.MaxLength
	}
	b.size = c.resolveBound("max_size", sizeLiteral, d.MaxSizeConst, loc)
	b.count = c.resolveBound("max_count", d.MaxCount, d.MaxCountConst, loc)

	if options.Bool(d.DefaultBounds) {
		if isText(f.Kind) && !b.size.Known() && !b.fixedLength {
			b.size = layout.Bound{Value: c.opts.maxSize}
			b.dynamic = true
		}
		if f.Repeated() && !b.count.Known() {
			b.count = layout.Bound{Value: c.opts.maxCount}
			if b.container == options.ContainerNone {
				b.container = options.ContainerVector
			}
		}
	}

	if b.fixedLength && f.Kind == descriptor.KindBytes && !b.size.Known() {
		c.err(errFixedLengthWithoutSize(loc))
	}
	if b.fixedCount && f.Repeated() && !b.count.Known() {
		c.err(errFixedCountWithoutCount(loc))
	}
	return b
}

// resolveBound resolves a literal bound or a bound named by an enum value.
// The zero Bound means no bound was given, or it was invalid.
func (c *compiler) resolveBound(
	what string,
	literal *int64,
	constName *string,
	loc Locator,
) layout.Bound {
	if constName != nil && *constName != "" {
		value, ok := c.lookupConst(*constName)
		if !ok {
			c.err(errUnknownBoundConstant(*constName, loc))
			return layout.Bound{}
		}
		if value <= 0 {
			c.err(errNonPositiveBound(what, int64(value), loc))
			return layout.Bound{}
		}
		return layout.Bound{Value: int64(value), Symbol: *constName}
	}
	if literal == nil {
		return layout.Bound{}
	}
	if *literal <= 0 {
		c.err(errNonPositiveBound(what, *literal, loc))
		return layout.Bound{}
	}
	return layout.Bound{Value: *literal}
}

// lookupConst finds an enum value by name, in the file first and then in
// its dependencies. Names may be relative to the file's package.
func (c *compiler) lookupConst(name string) (int32, bool) {
	candidates := []string{name}
	if c.file.Package != "" {
		candidates = append(candidates, c.file.Package+"."+name)
	}
	for _, candidate := range candidates {
		if value, ok := c.consts[candidate]; ok {
			return value, true
		}
	}
	for _, candidate := range candidates {
		if value, ok := c.opts.deps.resolveConst(candidate); ok {
			return value, true
		}
	}
	return 0, false
}

func (c *compiler) resolveTypeRef(f *descriptor.Field, loc Locator) (*layout.TypeRef, error) {
	if f.Kind == descriptor.KindMessage {
		if _, ok := c.messages[f.TypeName]; ok {
			if c.skipped[f.TypeName] {
				return nil, errSkippedType(f.TypeName, loc)
			}
			return c.localRef(f.TypeName), nil
		}
		_, file, err := c.opts.deps.resolveMessage(f.TypeName, loc)
		if err != nil {
			return nil, err
		}
		return depRef(file, f.TypeName), nil
	}
	if _, ok := c.enums[f.TypeName]; ok {
		return c.localRef(f.TypeName), nil
	}
	_, file, err := c.opts.deps.resolveEnum(f.TypeName, loc)
	if err != nil {
		return nil, err
	}
	return depRef(file, f.TypeName), nil
}

func (c *compiler) localRef(fullName string) *layout.TypeRef {
	return &layout.TypeRef{
		FullName:     fullName,
		Name:         descriptor.RelativeName(c.file.Package, fullName),
		GoImportPath: c.file.GoImportPath,
		GoPackage:    c.file.GoPackage,
	}
}

func depRef(file *layout.File, fullName string) *layout.TypeRef {
	return &layout.TypeRef{
		FullName:     fullName,
		Name:         descriptor.RelativeName(file.Package, fullName),
		GoImportPath: file.GoImportPath,
		GoPackage:    file.GoPackage,
	}
}

// elemRepr returns the representation of one element of the field, ignoring
// repetition and allocation.
func (c *compiler) elemRepr(f *layout.Field, b fieldBounds) layout.Repr {
	switch f.Kind {
	case descriptor.KindString, descriptor.KindBytes:
		isBytes := f.Kind == descriptor.KindBytes
		switch {
		case isBytes && b.fixedLength:
			return layout.FixedBlock{Length: b.size}
		case b.dynamic || f.Alloc != layout.AllocStatic:
			return layout.DynamicText{
				Bytes:   isBytes,
				Bounded: b.size.Known(),
				Max:     b.size,
			}
		}
		return layout.FixedText{Bytes: isBytes, Capacity: b.size}
	case descriptor.KindMessage:
		return layout.Embedded{Message: *f.Type}
	case descriptor.KindEnum:
		bits := 32
		if enum := c.enumLayout(f.Type.FullName); enum != nil {
			bits = enum.StorageBits
		}
		return layout.Scalar{Kind: f.Kind, Bits: bits}
	}
	return scalarRepr(f.Kind, c.eff.Of(f.FullName).IntSizeBits())
}

func scalarRepr(kind descriptor.Kind, intSize options.IntSize) layout.Repr {
	bits := kind.Bits()
	if intSize != options.IntSizeDefault && kind.IsInteger() {
		bits = int(intSize)
	}
	return layout.Scalar{
		Kind:     kind,
		Bits:     bits,
		Unsigned: kind.IsUnsigned(),
	}
}

func (c *compiler) enumLayout(fullName string) *layout.Enum {
	if enum, ok := c.enums[fullName]; ok {
		return enum
	}
	enum, _, err := c.opts.deps.resolveEnum(fullName, Locator{})
	if err != nil {
		return nil
	}
	return enum
}

// resolveKey validates the key field of a keyed container's element message
// and returns the key's representation. Integer keys keep the key field's
// int_size so the key type matches its storage.
func (c *compiler) resolveKey(msgName, keyField string, loc Locator) (layout.Repr, error) {
	var (
		kind     descriptor.Kind
		repeated bool
		found    bool
		intSize  = options.IntSizeDefault
		stored   layout.Repr
	)
	if msg, ok := c.messages[msgName]; ok {
		if f := msg.Field(keyField); f != nil {
			kind, repeated, found = f.Kind, f.Repeated(), true
			intSize = c.eff.Of(f.FullName).IntSizeBits()
		}
	} else if msg, _, err := c.opts.deps.resolveMessage(msgName, loc); err == nil {
		if f := msg.Field(keyField); f != nil {
			kind, repeated, found = f.Kind, f.Label == descriptor.LabelRepeated, true
			stored = f.Repr
		}
	} else {
		return nil, err
	}

	switch {
	case !found:
		return nil, errKeyFieldMissing(keyField, msgName, loc)
	case repeated:
		return nil, errKeyFieldRepeated(keyField, msgName, loc)
	case kind == descriptor.KindString:
		return layout.DynamicText{}, nil
	case kind == descriptor.KindEnum:
		return layout.Scalar{Kind: kind, Bits: 32}, nil
	case kind.IsInteger():
		if s, ok := stored.(layout.Scalar); ok {
			return s, nil
		}
		return scalarRepr(kind, intSize), nil
	}
	return nil, errKeyFieldInvalid(keyField, kind.String(), loc)
}

func isText(kind descriptor.Kind) bool {
	return kind == descriptor.KindString || kind == descriptor.KindBytes
}
