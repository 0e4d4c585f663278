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

// Package layoutjson is the JSON form of a resolved layout. Renderer
// plugins receive their input in this form.
package layoutjson

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"go.fixpb.dev/fixpb/encsize"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

func EncodeFile(file *layout.File) ([]byte, error) {
	return json.Marshal(fromFile(file))
}

func DecodeFile(data []byte) (*layout.File, error) {
	var f fileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "layoutjson: decoding file")
	}
	return f.toFile()
}

type (
	fileAlias    layout.File
	messageAlias layout.Message
	fieldAlias   layout.Field
	oneofAlias   layout.OneOf
	extAlias     layout.Extension
)

// The wrapper types shadow every field of the layout model that does not
// marshal on its own: representations and sizes.

type fileJSON struct {
	fileAlias
	Messages   []*messageJSON
	Extensions []*extJSON
}

type messageJSON struct {
	messageAlias
	Fields []*fieldJSON
	OneOfs []*oneofJSON
	Size   sizeJSON
}

type fieldJSON struct {
	fieldAlias
	Repr *reprJSON
	Size sizeJSON
}

type oneofJSON struct {
	oneofAlias
	Members []*fieldJSON
	Size    sizeJSON
}

type extJSON struct {
	extAlias
	Field *fieldJSON
}

type sizeJSON struct {
	Value uint64         `json:"value"`
	Terms []encsize.Term `json:"terms,omitempty"`
}

// reprJSON holds exactly one non-nil variant.
type reprJSON struct {
	Scalar      *layout.Scalar      `json:"scalar,omitempty"`
	FixedText   *layout.FixedText   `json:"fixed_text,omitempty"`
	FixedBlock  *layout.FixedBlock  `json:"fixed_block,omitempty"`
	DynamicText *layout.DynamicText `json:"dynamic_text,omitempty"`
	Embedded    *layout.Embedded    `json:"embedded,omitempty"`
	Array       *arrayJSON          `json:"array,omitempty"`
	Container   *containerJSON      `json:"container,omitempty"`
	Pointer     *pointerJSON        `json:"pointer,omitempty"`
	Callback    *struct{}           `json:"callback,omitempty"`
}

type arrayJSON struct {
	Elem       *reprJSON
	Count      layout.Bound
	FixedCount bool
}

type containerJSON struct {
	Kind     string
	Elem     *reprJSON
	Bounded  bool
	Count    layout.Bound
	KeyField string    `json:",omitempty"`
	Key      *reprJSON `json:",omitempty"`
}

type pointerJSON struct {
	Elem     *reprJSON
	Repeated bool
}

// Encoding {{{

func fromFile(file *layout.File) *fileJSON {
	out := &fileJSON{fileAlias: fileAlias(*file)}
	out.fileAlias.Messages = nil
	out.fileAlias.Extensions = nil
	for _, msg := range file.Messages {
		out.Messages = append(out.Messages, fromMessage(msg))
	}
	for _, ext := range file.Extensions {
		e := &extJSON{extAlias: extAlias(*ext), Field: fromField(ext.Field)}
		e.extAlias.Field = nil
		out.Extensions = append(out.Extensions, e)
	}
	return out
}

func fromMessage(msg *layout.Message) *messageJSON {
	out := &messageJSON{
		messageAlias: messageAlias(*msg),
		Size:         fromSize(msg.Size),
	}
	out.messageAlias.Fields = nil
	out.messageAlias.OneOfs = nil
	for _, f := range msg.Fields {
		out.Fields = append(out.Fields, fromField(f))
	}
	for _, oneof := range msg.OneOfs {
		o := &oneofJSON{oneofAlias: oneofAlias(*oneof), Size: fromSize(oneof.Size)}
		o.oneofAlias.Members = nil
		for _, f := range oneof.Members {
			o.Members = append(o.Members, fromField(f))
		}
		out.OneOfs = append(out.OneOfs, o)
	}
	return out
}

func fromField(f *layout.Field) *fieldJSON {
	out := &fieldJSON{
		fieldAlias: fieldAlias(*f),
		Repr:       fromRepr(f.Repr),
		Size:       fromSize(f.Size),
	}
	out.fieldAlias.Repr = nil
	return out
}

func fromSize(s encsize.Size) sizeJSON {
	return sizeJSON{Value: s.Value(), Terms: s.Terms()}
}

func fromRepr(r layout.Repr) *reprJSON {
	if r == nil {
		return nil
	}
	switch r := r.(type) {
	case layout.Scalar:
		return &reprJSON{Scalar: &r}
	case layout.FixedText:
		return &reprJSON{FixedText: &r}
	case layout.FixedBlock:
		return &reprJSON{FixedBlock: &r}
	case layout.DynamicText:
		return &reprJSON{DynamicText: &r}
	case layout.Embedded:
		return &reprJSON{Embedded: &r}
	case layout.Array:
		return &reprJSON{Array: &arrayJSON{
			Elem:       fromRepr(r.Elem),
			Count:      r.Count,
			FixedCount: r.FixedCount,
		}}
	case layout.Container:
		return &reprJSON{Container: &containerJSON{
			Kind:     r.Kind.String(),
			Elem:     fromRepr(r.Elem),
			Bounded:  r.Bounded,
			Count:    r.Count,
			KeyField: r.KeyField,
			Key:      fromRepr(r.Key),
		}}
	case layout.Pointer:
		return &reprJSON{Pointer: &pointerJSON{Elem: fromRepr(r.Elem), Repeated: r.Repeated}}
	case layout.Callback:
		return &reprJSON{Callback: &struct{}{}}
	}
	panic("layoutjson: unknown representation")
}

// }}}

// Decoding {{{

func (f *fileJSON) toFile() (*layout.File, error) {
	out := layout.File(f.fileAlias)
	out.Messages = nil
	out.Extensions = nil
	for _, msg := range f.Messages {
		m, err := msg.toMessage()
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, m)
	}
	for _, ext := range f.Extensions {
		e := layout.Extension(ext.extAlias)
		if ext.Field == nil {
			return nil, errors.Newf("layoutjson: extension %s has no field", e.FullName)
		}
		field, err := ext.Field.toField()
		if err != nil {
			return nil, err
		}
		e.Field = field
		out.Extensions = append(out.Extensions, &e)
	}
	return &out, nil
}

func (m *messageJSON) toMessage() (*layout.Message, error) {
	out := layout.Message(m.messageAlias)
	out.Fields = nil
	out.OneOfs = nil
	out.Size = m.Size.toSize()
	for _, f := range m.Fields {
		field, err := f.toField()
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, field)
	}
	for _, o := range m.OneOfs {
		oneof := layout.OneOf(o.oneofAlias)
		oneof.Members = nil
		oneof.Size = o.Size.toSize()
		for _, f := range o.Members {
			field, err := f.toField()
			if err != nil {
				return nil, err
			}
			oneof.Members = append(oneof.Members, field)
		}
		out.OneOfs = append(out.OneOfs, &oneof)
	}
	return &out, nil
}

func (f *fieldJSON) toField() (*layout.Field, error) {
	out := layout.Field(f.fieldAlias)
	repr, err := f.Repr.toRepr()
	if err != nil {
		return nil, errors.Wrapf(err, "layoutjson: field %s", out.FullName)
	}
	if repr == nil {
		return nil, errors.Newf("layoutjson: field %s has no representation", out.FullName)
	}
	out.Repr = repr
	out.Size = f.Size.toSize()
	return &out, nil
}

func (s sizeJSON) toSize() encsize.Size {
	out := encsize.Of(s.Value)
	for _, t := range s.Terms {
		out = out.Add(encsize.Symbol(t.Name).Mul(t.Count))
	}
	return out
}

func (r *reprJSON) toRepr() (layout.Repr, error) {
	if r == nil {
		return nil, nil
	}
	switch {
	case r.Scalar != nil:
		return *r.Scalar, nil
	case r.FixedText != nil:
		return *r.FixedText, nil
	case r.FixedBlock != nil:
		return *r.FixedBlock, nil
	case r.DynamicText != nil:
		return *r.DynamicText, nil
	case r.Embedded != nil:
		return *r.Embedded, nil
	case r.Array != nil:
		elem, err := r.Array.Elem.toRepr()
		if err != nil {
			return nil, err
		}
		return layout.Array{Elem: elem, Count: r.Array.Count, FixedCount: r.Array.FixedCount}, nil
	case r.Container != nil:
		kind, err := options.ParseContainer(r.Container.Kind)
		if err != nil {
			return nil, err
		}
		elem, err := r.Container.Elem.toRepr()
		if err != nil {
			return nil, err
		}
		key, err := r.Container.Key.toRepr()
		if err != nil {
			return nil, err
		}
		return layout.Container{
			Kind:     kind,
			Elem:     elem,
			Bounded:  r.Container.Bounded,
			Count:    r.Container.Count,
			KeyField: r.Container.KeyField,
			Key:      key,
		}, nil
	case r.Pointer != nil:
		elem, err := r.Pointer.Elem.toRepr()
		if err != nil {
			return nil, err
		}
		return layout.Pointer{Elem: elem, Repeated: r.Pointer.Repeated}, nil
	case r.Callback != nil:
		return layout.Callback{}, nil
	}
	return nil, errors.New("empty representation")
}

// }}}
