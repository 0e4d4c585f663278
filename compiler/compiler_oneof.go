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
	"cmp"
	"slices"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

func (c *compiler) compileOneOf(msg *layout.Message, oneof *descriptor.OneOf) *layout.OneOf {
	d := c.eff.Of(oneof.FullName)
	out := &layout.OneOf{
		Name:      oneof.Name,
		FullName:  oneof.FullName,
		Anonymous: options.Bool(d.AnonymousOneof),
		LongNames: d.LongNames == nil || *d.LongNames,
	}

	members := slices.Clone(oneof.Fields)
	slices.SortFunc(members, func(a, b *descriptor.Field) int {
		return cmp.Compare(a.Tag, b.Tag)
	})
	for _, f := range members {
		if field := c.compileField(msg, f, oneof); field != nil {
			out.Members = append(out.Members, field)
		}
	}
	if len(out.Members) == 0 {
		return nil
	}

	out.Tag = out.Members[0].Tag
	out.Static = true
	for _, f := range out.Members {
		if f.Alloc != layout.AllocStatic || !layout.HasStaticBound(f) {
			out.Static = false
		}
	}
	return out
}

// planLifecycles flags one-of members whose storage must be constructed and
// torn down explicitly when the discriminant changes, and records which
// messages are trivial.
func (c *compiler) planLifecycles() {
	for _, msg := range c.declared {
		msg.Trivial = c.isTrivial(msg.FullName)
	}
	for _, msg := range c.declared {
		for _, oneof := range msg.OneOfs {
			for _, f := range oneof.Members {
				f.Lifecycle = c.needsLifecycle(f.Repr)
			}
		}
	}
}

func (c *compiler) needsLifecycle(r layout.Repr) bool {
	if layout.Owning(r) {
		return true
	}
	switch r := r.(type) {
	case layout.Embedded:
		return !c.isTrivial(r.Message.FullName)
	case layout.Array:
		return c.needsLifecycle(r.Elem)
	}
	return false
}

// isTrivial reports whether a message owns no resources. Messages on a
// value cycle are reported by the sorter; here they count as trivial.
func (c *compiler) isTrivial(fullName string) bool {
	if trivial, ok := c.trivial[fullName]; ok {
		return trivial
	}
	msg, ok := c.local[fullName]
	if !ok {
		dep, _, err := c.opts.deps.resolveMessage(fullName, Locator{})
		return err != nil || dep.Trivial
	}
	c.trivial[fullName] = true
	trivial := true
	for _, f := range msg.AllFields() {
		if c.needsLifecycle(f.Repr) {
			trivial = false
			break
		}
	}
	c.trivial[fullName] = trivial
	return trivial
}
