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
	"fmt"

	"go.fixpb.dev/fixpb/descriptor"
)

// DirectiveError reports malformed inline annotation bytes.
type DirectiveError struct {
	Element string
	Err     error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("invalid fixpb options on %q: %v", e.Element, e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// Effective holds the merged directives of every element of one file.
type Effective struct {
	file  Directives
	elems map[string]Directives
}

// File returns the file-level directives.
func (e *Effective) File() Directives {
	return e.file
}

// Of returns the directives of the element with the given full name. An
// element the resolver never saw inherits the file-level directives.
func (e *Effective) Of(fullName string) Directives {
	if d, ok := e.elems[fullName]; ok {
		return d
	}
	return e.file.Inheritable()
}

// Resolver merges directive sources for one file at a time. It records
// which rules matched so callers can report stale rules; a Resolver must
// not be shared between goroutines, but its RuleSet may be.
type Resolver struct {
	rules   *RuleSet
	base    Directives
	matched []bool
}

// NewResolver returns a resolver applying rules on top of base, the
// directives that hold for the whole invocation.
func NewResolver(rules *RuleSet, base Directives) *Resolver {
	return &Resolver{
		rules:   rules,
		base:    base,
		matched: make([]bool, rules.Len()),
	}
}

// Matched reports, per rule index, whether the rule matched any element
// resolved so far.
func (r *Resolver) Matched() []bool {
	return append([]bool(nil), r.matched...)
}

// Resolve computes the effective directives of every element in file.
func (r *Resolver) Resolve(file *descriptor.File) (*Effective, error) {
	eff := &Effective{elems: make(map[string]Directives)}

	fileDirectives, err := r.merge(r.base, file.Package, file.Options)
	if err != nil {
		return nil, err
	}
	eff.file = fileDirectives
	scope := fileDirectives.Inheritable()

	for _, enum := range file.Enums {
		if err := r.resolveEnum(eff, scope, enum); err != nil {
			return nil, err
		}
	}
	for _, msg := range file.Messages {
		if err := r.resolveMessage(eff, scope, msg); err != nil {
			return nil, err
		}
	}
	for _, ext := range file.Extensions {
		d, err := r.merge(scope, ext.FullName, ext.Options)
		if err != nil {
			return nil, err
		}
		eff.elems[ext.FullName] = d
	}
	return eff, nil
}

func (r *Resolver) resolveMessage(eff *Effective, parent Directives, msg *descriptor.Message) error {
	d, err := r.merge(parent, msg.FullName, msg.Options)
	if err != nil {
		return err
	}
	eff.elems[msg.FullName] = d
	scope := d.Inheritable()

	for _, field := range msg.Fields {
		fd, err := r.merge(scope, field.FullName, field.Options)
		if err != nil {
			return err
		}
		eff.elems[field.FullName] = fd
	}
	for _, oneof := range msg.OneOfs {
		od, err := r.merge(scope, oneof.FullName, oneof.Options)
		if err != nil {
			return err
		}
		eff.elems[oneof.FullName] = od
	}
	for _, enum := range msg.Enums {
		if err := r.resolveEnum(eff, scope, enum); err != nil {
			return err
		}
	}
	for _, nested := range msg.Nested {
		if err := r.resolveMessage(eff, scope, nested); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveEnum(eff *Effective, parent Directives, enum *descriptor.Enum) error {
	d, err := r.merge(parent, enum.FullName, enum.Options)
	if err != nil {
		return err
	}
	eff.elems[enum.FullName] = d
	return nil
}

// merge applies, in order of increasing precedence, the inherited
// directives, every matching rule, and the inline annotation.
func (r *Resolver) merge(inherited Directives, fullName string, raw []byte) (Directives, error) {
	d := inherited
	for ii := range r.matched {
		rule := r.rules.Rule(ii)
		if rule.Match(fullName) {
			r.matched[ii] = true
			d.Merge(rule.Directives)
		}
	}
	if len(raw) > 0 {
		inline, err := DecodeInline(raw)
		if err != nil {
			return Directives{}, &DirectiveError{Element: fullName, Err: err}
		}
		d.Merge(inline)
	}
	return d, nil
}
