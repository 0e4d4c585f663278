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

// Package compiler resolves a schema file into its fixed-capacity layout:
// field representations and allocation, one-of plans, worst-case encoded
// sizes and a dependency-safe message order.
package compiler

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/encsize"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

const (
	DefaultMaxCount = 32
	DefaultMaxSize  = 128
)

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	deps     *SchemaSet
	rules    *options.RuleSet
	base     options.Directives
	maxCount int64
	maxSize  int64
	log      *zap.SugaredLogger
}

// WithDependencies sets the compiled files that the schema may refer to.
func WithDependencies(dependencies *SchemaSet) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.deps = dependencies
	})
}

// WithRules sets the side-file rules applied between inherited and inline
// directives.
func WithRules(rules *options.RuleSet) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.rules = rules
	})
}

// WithBaseDirectives sets directives that apply to every element, below the
// file's own annotations.
func WithBaseDirectives(base options.Directives) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.base = base
	})
}

// WithDefaultBounds sets the count and size given to unbounded fields of
// elements with default_bounds.
func WithDefaultBounds(maxCount, maxSize int64) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		if maxCount > 0 {
			opts.maxCount = maxCount
		}
		if maxSize > 0 {
			opts.maxSize = maxSize
		}
	})
}

func WithLogger(log *zap.SugaredLogger) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		if log != nil {
			opts.log = log
		}
	})
}

type CompileResult struct {
	// File is nil when Errors is non-empty.
	File *layout.File

	Errors   []*Error
	Warnings []*Warning

	// MatchedRules reports, per rule, whether it matched an element of
	// the file.
	MatchedRules []bool
}

func Compile(file *descriptor.File, opts ...CompileOption) CompileResult {
	return NewCompileOptions(opts...).Compile(file)
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{
		maxCount: DefaultMaxCount,
		maxSize:  DefaultMaxSize,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	return compileOptions
}

func (opts *CompileOptions) Compile(file *descriptor.File) CompileResult {
	c := &compiler{
		opts:     opts,
		file:     file,
		log:      opts.log.With("file", file.Name),
		resolver: options.NewResolver(opts.rules, opts.base),
		messages: make(map[string]*descriptor.Message),
		skipped:  make(map[string]bool),
		enums:    make(map[string]*layout.Enum),
		consts:   make(map[string]int32),
		local:    make(map[string]*layout.Message),
		trivial:  make(map[string]bool),
	}
	c.compileFile()

	result := CompileResult{
		Warnings:     c.warnings,
		MatchedRules: c.resolver.Matched(),
	}
	if len(c.errors) > 0 {
		slices.SortStableFunc(c.errors, func(a, b *Error) int {
			if x := cmp.Compare(a.locator.Element(), b.locator.Element()); x != 0 {
				return x
			}
			return cmp.Compare(a.code, b.code)
		})
		result.Errors = c.errors
		c.log.Debugw("compile failed", "errors", len(c.errors))
		return result
	}
	result.File = c.out
	c.log.Debugw("compiled",
		"messages", len(c.out.Messages),
		"enums", len(c.out.Enums),
		"warnings", len(c.warnings),
	)
	return result
}

type compiler struct {
	opts     *CompileOptions
	file     *descriptor.File
	log      *zap.SugaredLogger
	resolver *options.Resolver
	eff      *options.Effective
	out      *layout.File
	errors   []*Error
	warnings []*Warning

	// Set by registerDecls()
	messages map[string]*descriptor.Message
	skipped  map[string]bool

	// Set by compileEnums()
	enums  map[string]*layout.Enum
	consts map[string]int32

	// Set by compileMessages(), in declaration order.
	declared []*layout.Message
	local    map[string]*layout.Message

	trivial map[string]bool
}

func (c *compiler) err(err error) {
	c.errors = append(c.errors, err.(*Error))
}

func (c *compiler) warn(warning *Warning) {
	c.warnings = append(c.warnings, warning)
}

func (c *compiler) messageLocator(fullName string) Locator {
	return Locator{File: c.file.Name, Message: fullName}
}

func (c *compiler) fieldLocator(msgName string, f *descriptor.Field) Locator {
	return Locator{File: c.file.Name, Message: msgName, Field: f.Name}
}

func (c *compiler) compileFile() {
	c.out = &layout.File{
		Name:         c.file.Name,
		Package:      c.file.Package,
		GoImportPath: c.file.GoImportPath,
		GoPackage:    c.file.GoPackage,
		Proto3:       c.file.Proto3(),
		Dependencies: slices.Clone(c.file.Dependencies),
	}

	eff, err := c.resolver.Resolve(c.file)
	if err != nil {
		var dirErr *options.DirectiveError
		if errors.As(err, &dirErr) {
			c.err(errInvalidDirective(
				dirErr.Element, dirErr.Err, c.messageLocator(dirErr.Element),
			))
		} else {
			c.err(errInvalidDirective(c.file.Name, err, Locator{File: c.file.Name}))
		}
		return
	}
	c.eff = eff

	c.registerDecls()
	c.compileEnums()
	c.compileMessages()
	c.compileExtensions()
	if len(c.errors) > 0 {
		return
	}

	c.planLifecycles()
	order := c.sortMessages(c.declared)
	if len(c.errors) > 0 {
		return
	}
	c.computeSizes(order)
	c.checkDescriptorWidths(order)
	c.out.Messages = order
}

func (c *compiler) registerDecls() {
	for msg := range c.file.AllMessages() {
		c.messages[msg.FullName] = msg
		if options.Bool(c.eff.Of(msg.FullName).SkipMessage) {
			c.skipped[msg.FullName] = true
			c.warn(warnMessageSkipped(c.messageLocator(msg.FullName)))
		}
	}
}

func (c *compiler) compileEnums() {
	for enum := range c.file.AllEnums() {
		out := c.compileEnum(enum)
		c.enums[enum.FullName] = out
		c.out.Enums = append(c.out.Enums, out)
		for name, value := range enumConstants(out.FullName, out.Values) {
			c.consts[name] = value
		}
	}
}

func (c *compiler) compileEnum(enum *descriptor.Enum) *layout.Enum {
	d := c.eff.Of(enum.FullName)
	out := &layout.Enum{
		FullName:    enum.FullName,
		Name:        descriptor.RelativeName(c.file.Package, enum.FullName),
		LongNames:   d.LongNames == nil || *d.LongNames,
		ToString:    options.Bool(d.EnumToString),
		Packed:      options.Bool(d.PackedEnum),
		HasNegative: enum.HasNegative(),
		StorageBits: 32,
	}
	for _, v := range enum.Values {
		out.Values = append(out.Values, layout.EnumValue{Name: v.Name, Number: v.Number})
		out.EncodedSize = max(out.EncodedSize, encsize.VarintLenSigned(int64(v.Number)))
	}
	if out.Packed {
		out.StorageBits = signedBits(int64(out.MinValue()), int64(out.MaxValue()))
	}
	return out
}

// signedBits returns the narrowest signed storage width holding lo..hi.
func signedBits(lo, hi int64) int {
	switch {
	case lo >= -1<<7 && hi < 1<<7:
		return 8
	case lo >= -1<<15 && hi < 1<<15:
		return 16
	}
	return 32
}

func (c *compiler) compileMessages() {
	for msg := range c.file.AllMessages() {
		if c.skipped[msg.FullName] {
			continue
		}
		out := c.compileMessage(msg)
		c.declared = append(c.declared, out)
		c.local[out.FullName] = out
	}
}

func (c *compiler) compileMessage(msg *descriptor.Message) *layout.Message {
	d := c.eff.Of(msg.FullName)
	out := &layout.Message{
		FullName:        msg.FullName,
		Name:            descriptor.RelativeName(c.file.Package, msg.FullName),
		ExtensionRanges: slices.Clone(msg.ExtensionRanges),
		MapEntry:        msg.MapEntry,
	}
	if d.MsgID != nil {
		out.MsgID = *d.MsgID
		out.HasMsgID = true
	}

	noUnions := options.Bool(d.NoUnions)
	for _, f := range msg.Fields {
		if f.OneOf != nil && !noUnions {
			continue
		}
		if field := c.compileField(out, f, nil); field != nil {
			out.Fields = append(out.Fields, field)
		}
	}
	if !noUnions {
		for _, oneof := range msg.OneOfs {
			if planned := c.compileOneOf(out, oneof); planned != nil {
				out.OneOfs = append(out.OneOfs, planned)
			}
		}
	}

	out.Static = true
	seenDeps := make(map[string]bool)
	for _, f := range out.AllFields() {
		if f.Label == descriptor.LabelRequired {
			out.RequiredCount++
		}
		if f.IsKey {
			out.KeyFields = append(out.KeyFields, f.Name)
		}
		if f.Alloc != layout.AllocStatic {
			out.Static = false
		}
		if dep := c.valueDependency(f); dep != "" && !seenDeps[dep] {
			seenDeps[dep] = true
			out.Deps = append(out.Deps, dep)
		}
	}
	if out.RequiredCount > 64 {
		c.err(errTooManyRequired(out.RequiredCount, c.messageLocator(out.FullName)))
	}
	return out
}

// valueDependency returns the local message a field embeds by value, if any.
func (c *compiler) valueDependency(f *layout.Field) string {
	var ref layout.TypeRef
	switch r := f.Repr.(type) {
	case layout.Embedded:
		ref = r.Message
	case layout.Array:
		elem, ok := r.Elem.(layout.Embedded)
		if !ok {
			return ""
		}
		ref = elem.Message
	default:
		return ""
	}
	if _, ok := c.messages[ref.FullName]; !ok {
		return ""
	}
	return ref.FullName
}

func (c *compiler) compileExtensions() {
	for _, ext := range c.file.Extensions {
		loc := Locator{File: c.file.Name, Field: ext.FullName}
		if ext.Label == descriptor.LabelRepeated || ext.Label == descriptor.LabelRequired {
			c.warn(warnExtensionSkipped(ext.Label.String(), loc))
			continue
		}
		holder := &layout.Message{FullName: c.file.Package}
		field := c.compileField(holder, ext, nil)
		if field == nil {
			continue
		}
		c.out.Extensions = append(c.out.Extensions, &layout.Extension{
			Name:     ext.Name,
			FullName: ext.FullName,
			Extendee: ext.Extendee,
			Field:    field,
		})
	}
}

// checkDescriptorWidths picks the narrowest descriptor width holding every
// tag and bound of each message.
func (c *compiler) checkDescriptorWidths(msgs []*layout.Message) {
	for _, msg := range msgs {
		var largest uint64
		for _, f := range msg.AllFields() {
			largest = max(largest, uint64(f.Tag), largestBound(f.Repr))
		}
		msg.MaxFieldValue = largest
		switch {
		case largest <= 0xFF:
			msg.DescriptorWidth = 8
		case largest <= 0xFFFF:
			msg.DescriptorWidth = 16
		case largest <= 0xFFFFFFFF:
			msg.DescriptorWidth = 32
		default:
			c.err(errFieldValueTooLarge(largest, c.messageLocator(msg.FullName)))
		}
	}
}

func largestBound(r layout.Repr) uint64 {
	switch r := r.(type) {
	case layout.FixedText:
		return uint64(r.Capacity.Value)
	case layout.FixedBlock:
		return uint64(r.Length.Value)
	case layout.DynamicText:
		return uint64(r.Max.Value)
	case layout.Array:
		return max(uint64(r.Count.Value), largestBound(r.Elem))
	case layout.Container:
		return max(uint64(r.Count.Value), largestBound(r.Elem))
	}
	return 0
}
