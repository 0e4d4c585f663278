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

package compiler_test

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/encsize"
	"go.fixpb.dev/fixpb/internal/testutil"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

func compileText(t *testing.T, text string, opts ...compiler.CompileOption) compiler.CompileResult {
	t.Helper()
	fd := &descriptorpb.FileDescriptorProto{}
	testutil.AssertNoError(t, prototext.Unmarshal([]byte(text), fd))
	return compileProto(t, fd, opts...)
}

func compileProto(t *testing.T, fd *descriptorpb.FileDescriptorProto, opts ...compiler.CompileOption) compiler.CompileResult {
	t.Helper()
	file, err := descriptor.New(fd)
	testutil.AssertNoError(t, err)
	return compiler.Compile(file, opts...)
}

func mustCompile(t *testing.T, text string, opts ...compiler.CompileOption) *layout.File {
	t.Helper()
	result := compileText(t, text, opts...)
	for _, err := range result.Errors {
		testutil.AssertNoError(t, err)
	}
	return result.File
}

func expectSingleError(t *testing.T, result compiler.CompileResult, code uint32, element string) {
	t.Helper()
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(result.Errors), result.Errors)
	}
	testutil.ExpectEq(t, code, result.Errors[0].Code())
	testutil.ExpectEq(t, element, result.Errors[0].Locator().Element())
}

// okCases compiles every golden case that is expected to succeed.
func okCases(t *testing.T) map[string]*layout.File {
	testDirs, err := fs.ReadDir(testdata, "layout")
	testutil.AssertNoError(t, err)
	out := make(map[string]*layout.File)
	for _, dir := range testDirs {
		name := dir.Name()
		if _, err := fs.Stat(testdata, fmt.Sprintf("layout/%s/expect_ok.txt", name)); err != nil {
			continue
		}
		result := compileTestInputs(t, name)
		for _, err := range result.Errors {
			testutil.AssertNoError(t, err)
		}
		out[name] = result.File
	}
	return out
}

func TestStaticFieldsHaveStaticBound(t *testing.T) {
	for name, file := range okCases(t) {
		for _, msg := range file.Messages {
			for _, f := range msg.AllFields() {
				if f.Alloc == layout.AllocStatic && !layout.HasStaticBound(f) {
					t.Errorf("%s: static field %s has no static bound", name, f.FullName)
				}
			}
		}
		for _, ext := range file.Extensions {
			if ext.Field.Alloc == layout.AllocStatic && !layout.HasStaticBound(ext.Field) {
				t.Errorf("%s: static extension %s has no static bound", name, ext.FullName)
			}
		}
	}
}

func TestEmissionOrderIsTopological(t *testing.T) {
	check := func(t *testing.T, file *layout.File) {
		t.Helper()
		position := make(map[string]int)
		for ii, msg := range file.Messages {
			position[msg.FullName] = ii
		}
		for ii, msg := range file.Messages {
			for _, dep := range msg.Deps {
				if pos, ok := position[dep]; !ok || pos >= ii {
					t.Errorf("%s emitted before its dependency %s", msg.FullName, dep)
				}
			}
		}
	}
	for name, file := range okCases(t) {
		t.Run(name, func(t *testing.T) { check(t, file) })
	}

	file := mustCompile(t, `
		name: "order.proto"
		package: "demo"
		message_type {
		  name: "Top"
		  field { name: "mid" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".demo.Mid" }
		  field { name: "bottom" number: 2 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".demo.Bottom" }
		}
		message_type {
		  name: "Mid"
		  field { name: "bottom" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".demo.Bottom" }
		}
		message_type {
		  name: "Bottom"
		  field { name: "v" number: 1 label: LABEL_OPTIONAL type: TYPE_BOOL }
		}
		message_type {
		  name: "Free"
		  field { name: "v" number: 1 label: LABEL_OPTIONAL type: TYPE_BOOL }
		}
	`)
	check(t, file)
	var names []string
	for _, msg := range file.Messages {
		names = append(names, msg.Name)
	}
	testutil.ExpectSliceEq(t, []string{"Bottom", "Free", "Mid", "Top"}, names)
}

func TestSelfEmbeddingRejected(t *testing.T) {
	result := compileText(t, `
		name: "node.proto"
		package: "demo"
		message_type {
		  name: "Node"
		  field { name: "child" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".demo.Node" }
		}
	`)
	expectSingleError(t, result, 3019, "demo.Node")
	testutil.ExpectMatch(t, `demo\.Node -> demo\.Node`, result.Errors[0].Message())

	// The same shape through a pointer is not a value dependency.
	file := mustCompile(t, `
		name: "node.proto"
		package: "demo"
		message_type {
		  name: "Node"
		  field { name: "child" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".demo.Node" }
		}
	`, compiler.WithBaseDirectives(options.Directives{
		Type: options.Ptr(options.AllocPointer),
	}))
	testutil.ExpectEq(t, 0, len(file.Messages[0].Deps))
	testutil.ExpectFalse(t, file.Messages[0].SizeKnown)
}

const pointFile = `
	name: "dep.proto"
	package: "dep"
	options { go_package: "example.com/dep;dep" }
	message_type {
	  name: "Point"
	  field { name: "x" number: 1 label: LABEL_OPTIONAL type: TYPE_FIXED32 }
	  field { name: "y" number: 2 label: LABEL_OPTIONAL type: TYPE_FIXED32 }
	}
`

func TestSymbolicSizeTerm(t *testing.T) {
	dep := mustCompile(t, pointFile)
	depMsg := dep.Messages[0]
	testutil.ExpectTrue(t, depMsg.Size.IsNumeric())
	testutil.ExpectEq(t, uint64(10), depMsg.Size.Value())

	deps, err := compiler.Merge([]*layout.File{dep})
	testutil.AssertNoError(t, err)
	file := mustCompile(t, `
		name: "use.proto"
		package: "use"
		dependency: "dep.proto"
		message_type {
		  name: "Marker"
		  field { name: "id" number: 1 label: LABEL_OPTIONAL type: TYPE_BOOL }
		  field { name: "at" number: 2 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".dep.Point" }
		}
	`, compiler.WithDependencies(deps))

	size := file.Messages[0].Size
	testutil.ExpectTrue(t, file.Messages[0].SizeKnown)
	testutil.ExpectSliceEq(t, []string{"dep.Point"}, size.Symbols())
	testutil.ExpectEq(t, 1, len(size.Terms()))
	testutil.ExpectEq(t, uint64(1), size.Terms()[0].Count)
	// id: 1+1; at: tag 1 + prefix allowance 5.
	testutil.ExpectEq(t, uint64(8), size.Value())
	testutil.ExpectEq(t, "(8 + dep.Point)", size.String())

	at := file.Messages[0].Field("at")
	testutil.ExpectEq(t, "example.com/dep", at.Type.GoImportPath)
	testutil.ExpectEq(t, "dep", at.Type.GoPackage)
}

func TestUnknownDependencyType(t *testing.T) {
	result := compileText(t, `
		name: "use.proto"
		package: "use"
		message_type {
		  name: "Marker"
		  field { name: "at" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".dep.Point" }
		}
	`)
	expectSingleError(t, result, 3018, "use.Marker.at")
}

func TestConflictingDependencies(t *testing.T) {
	a := mustCompile(t, pointFile)
	b := mustCompile(t, pointFile)
	deps, err := compiler.Merge([]*layout.File{a, b})
	testutil.AssertNoError(t, err)
	result := compileText(t, `
		name: "use.proto"
		package: "use"
		message_type {
		  name: "Marker"
		  field { name: "at" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".dep.Point" }
		}
	`, compiler.WithDependencies(deps))
	expectSingleError(t, result, 3022, "use.Marker.at")
}

func inlineOptions(d options.Directives) *descriptorpb.FieldOptions {
	opts := &descriptorpb.FieldOptions{}
	opts.ProtoReflect().SetUnknown(protoreflect.RawFields(options.AppendInline(nil, d)))
	return opts
}

func TestInlineDirectivesOverrideRules(t *testing.T) {
	fd := &descriptorpb.FileDescriptorProto{}
	testutil.AssertNoError(t, prototext.Unmarshal([]byte(`
		name: "inline.proto"
		package: "demo"
		message_type {
		  name: "Bag"
		  field { name: "scores" number: 1 label: LABEL_REPEATED type: TYPE_UINT32 }
		  field { name: "names" number: 2 label: LABEL_REPEATED type: TYPE_STRING }
		}
	`), fd))
	fd.MessageType[0].Field[0].Options = inlineOptions(options.Directives{
		MaxCount: options.Ptr(int64(3)),
	})

	rules := options.NewRuleSet(
		options.Rule{
			Pattern:    "demo.Bag.*",
			Directives: options.Directives{MaxCount: options.Ptr(int64(9))},
		},
		options.Rule{
			Pattern:    "demo.Bag.names",
			Directives: options.Directives{MaxSize: options.Ptr(int64(12))},
		},
		options.Rule{
			Pattern:    "other.*",
			Directives: options.Directives{MaxSize: options.Ptr(int64(1))},
		},
	)
	result := compileProto(t, fd, compiler.WithRules(rules))
	for _, err := range result.Errors {
		testutil.AssertNoError(t, err)
	}
	testutil.ExpectSliceEq(t, []bool{true, true, false}, result.MatchedRules)

	msg := result.File.Messages[0]
	scores := msg.Field("scores").Repr.(layout.Array)
	testutil.ExpectEq(t, int64(3), scores.Count.Value)
	names := msg.Field("names").Repr.(layout.Array)
	testutil.ExpectEq(t, int64(9), names.Count.Value)
	testutil.ExpectEq(t, layout.Repr(layout.FixedText{Capacity: layout.Bound{Value: 12}}), names.Elem)
}

func TestInvalidInlineDirective(t *testing.T) {
	fd := &descriptorpb.FileDescriptorProto{}
	testutil.AssertNoError(t, prototext.Unmarshal([]byte(`
		name: "inline.proto"
		package: "demo"
		message_type {
		  name: "Bag"
		  field { name: "n" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 }
		}
	`), fd))
	opts := &descriptorpb.FieldOptions{}
	// Annotation with allocation type 9.
	opts.ProtoReflect().SetUnknown(protoreflect.RawFields{0x92, 0x3f, 0x02, 0x18, 0x09})
	fd.MessageType[0].Field[0].Options = opts

	result := compileProto(t, fd)
	expectSingleError(t, result, 3000, "demo.Bag.n")
	testutil.ExpectTrue(t, strings.HasPrefix(result.Errors[0].Error(), "E3000: "))
}

func TestDefaultBoundsOption(t *testing.T) {
	file := mustCompile(t, `
		name: "bounds.proto"
		package: "demo"
		message_type {
		  name: "Bag"
		  field { name: "names" number: 1 label: LABEL_REPEATED type: TYPE_STRING }
		  field { name: "blob" number: 2 label: LABEL_OPTIONAL type: TYPE_BYTES }
		}
	`,
		compiler.WithBaseDirectives(options.Directives{DefaultBounds: options.Ptr(true)}),
		compiler.WithDefaultBounds(4, 10),
	)
	msg := file.Messages[0]
	testutil.ExpectDeepEq(t, layout.Repr(layout.Container{
		Kind:    options.ContainerVector,
		Elem:    layout.DynamicText{Bounded: true, Max: layout.Bound{Value: 10}},
		Bounded: true,
		Count:   layout.Bound{Value: 4},
	}), msg.Field("names").Repr)
	testutil.ExpectDeepEq(t, layout.Repr(layout.DynamicText{
		Bytes:   true,
		Bounded: true,
		Max:     layout.Bound{Value: 10},
	}), msg.Field("blob").Repr)
	// names: 4 * (1 + 1 + 10); blob: 1 + 1 + 10.
	testutil.ExpectEq(t, "60", msg.Size.String())
}

func TestTooManyRequiredFields(t *testing.T) {
	var buf strings.Builder
	buf.WriteString(`name: "req.proto" package: "demo" message_type { name: "Wide"`)
	for ii := 1; ii <= 65; ii++ {
		fmt.Fprintf(&buf, ` field { name: "f%d" number: %d label: LABEL_REQUIRED type: TYPE_BOOL }`, ii, ii)
	}
	buf.WriteString(" }")
	result := compileText(t, buf.String())
	expectSingleError(t, result, 3020, "demo.Wide")
}

func TestFieldValueTooLarge(t *testing.T) {
	result := compileText(t, `
		name: "big.proto"
		package: "demo"
		message_type {
		  name: "Blob"
		  field { name: "data" number: 1 label: LABEL_OPTIONAL type: TYPE_BYTES }
		}
	`, compiler.WithBaseDirectives(options.Directives{
		MaxSize: options.Ptr(int64(5_000_000_000)),
	}))
	expectSingleError(t, result, 3021, "demo.Blob")
}

func TestDirectiveErrors(t *testing.T) {
	const file = `
		name: "bad.proto"
		package: "demo"
		enum_type { name: "Limits" value { name: "ZERO" number: 0 } value { name: "FOUR" number: 4 } }
		message_type {
		  name: "Bag"
		  field { name: "count" number: 1 label: LABEL_OPTIONAL type: TYPE_DOUBLE }
		  field { name: "names" number: 2 label: LABEL_REPEATED type: TYPE_STRING }
		  field { name: "raw" number: 3 label: LABEL_OPTIONAL type: TYPE_BYTES }
		  field { name: "text" number: 4 label: LABEL_OPTIONAL type: TYPE_STRING oneof_index: 0 }
		  oneof_decl { name: "choice" }
		}
	`
	tests := []struct {
		name    string
		pattern string
		d       options.Directives
		code    uint32
		element string
	}{
		{"int_size", "demo.Bag.count", options.Directives{IntSize: options.Ptr(options.IntSize16)}, 3016, "demo.Bag.count"},
		{"dynamic_text", "demo.Bag.count", options.Directives{DynamicText: options.Ptr(true)}, 3011, "demo.Bag.count"},
		{"fixed_length", "demo.Bag.count", options.Directives{FixedLength: options.Ptr(true)}, 3013, "demo.Bag.count"},
		{"fixed_length_size", "demo.Bag.raw", options.Directives{FixedLength: options.Ptr(true)}, 3012, "demo.Bag.raw"},
		{"fixed_count", "demo.Bag.names", options.Directives{
			FixedCount: options.Ptr(true),
			MaxSize:    options.Ptr(int64(8)),
		}, 3014, "demo.Bag.names"},
		{"sequence_text", "demo.Bag.names", options.Directives{
			Container: options.Ptr(options.ContainerList),
			MaxCount:  options.Ptr(int64(2)),
			MaxSize:   options.Ptr(int64(8)),
		}, 3010, "demo.Bag.names"},
		{"callback_oneof", "demo.Bag.text", options.Directives{
			Type: options.Ptr(options.AllocCallback),
		}, 3015, "demo.Bag.text"},
		{"unknown_const", "demo.Bag.raw", options.Directives{MaxSizeConst: options.Ptr("NOPE")}, 3017, "demo.Bag.raw"},
		{"zero_const", "demo.Bag.raw", options.Directives{MaxSizeConst: options.Ptr("ZERO")}, 3023, "demo.Bag.raw"},
		{"negative", "demo.Bag.raw", options.Directives{MaxSize: options.Ptr(int64(-3))}, 3023, "demo.Bag.raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := options.NewRuleSet(
				options.Rule{
					Pattern:    "demo.Bag.text",
					Directives: options.Directives{MaxSize: options.Ptr(int64(8))},
				},
				options.Rule{Pattern: tt.pattern, Directives: tt.d},
			)
			result := compileText(t, file, compiler.WithRules(rules))
			expectSingleError(t, result, tt.code, tt.element)
		})
	}
}

func TestBoundConstantFromDependency(t *testing.T) {
	dep := mustCompile(t, `
		name: "limits.proto"
		package: "limits"
		enum_type { name: "Limits" value { name: "NONE" number: 0 } value { name: "MAX_TAGS" number: 6 } }
	`)
	deps, err := compiler.Merge([]*layout.File{dep})
	testutil.AssertNoError(t, err)

	rules := options.NewRuleSet(options.Rule{
		Pattern:    "demo.Bag.tags",
		Directives: options.Directives{MaxCountConst: options.Ptr("limits.MAX_TAGS")},
	})
	file := mustCompile(t, `
		name: "bag.proto"
		package: "demo"
		dependency: "limits.proto"
		message_type {
		  name: "Bag"
		  field { name: "tags" number: 1 label: LABEL_REPEATED type: TYPE_FIXED64 }
		}
	`, compiler.WithDependencies(deps), compiler.WithRules(rules))
	tags := file.Messages[0].Field("tags").Repr.(layout.Array)
	testutil.ExpectEq(t, layout.Bound{Value: 6, Symbol: "limits.MAX_TAGS"}, tags.Count)
	// 6 * (tag 1 + 8)
	testutil.ExpectEq(t, encsize.Of(54).String(), file.Messages[0].Size.String())
}

func TestSingleElementRepeatedAllowance(t *testing.T) {
	rules := options.NewRuleSet(options.Rule{
		Pattern:    "demo.One.v",
		Directives: options.Directives{MaxCount: options.Ptr(int64(1))},
	})
	file := mustCompile(t, `
		name: "one.proto"
		package: "demo"
		message_type {
		  name: "One"
		  field { name: "v" number: 1 label: LABEL_REPEATED type: TYPE_FIXED32 }
		}
	`, compiler.WithRules(rules))
	// (1 + 4) * 1, plus one byte for the unpacked form.
	testutil.ExpectEq(t, "6", file.Messages[0].Size.String())
}

func TestNoUnions(t *testing.T) {
	rules := options.NewRuleSet(options.Rule{
		Pattern:    "demo.Pick",
		Directives: options.Directives{NoUnions: options.Ptr(true)},
	})
	file := mustCompile(t, `
		name: "pick.proto"
		package: "demo"
		message_type {
		  name: "Pick"
		  field { name: "a" number: 1 label: LABEL_OPTIONAL type: TYPE_INT32 oneof_index: 0 }
		  field { name: "b" number: 2 label: LABEL_OPTIONAL type: TYPE_BOOL oneof_index: 0 }
		  oneof_decl { name: "which" }
		}
	`, compiler.WithRules(rules))
	msg := file.Messages[0]
	testutil.ExpectEq(t, 0, len(msg.OneOfs))
	testutil.ExpectEq(t, 2, len(msg.Fields))
	for _, f := range msg.Fields {
		testutil.ExpectEq(t, descriptor.LabelOptional, f.Label)
		testutil.ExpectTrue(t, f.Presence)
		testutil.ExpectEq(t, "", f.OneOf)
	}
}

func TestDiagnosticStrings(t *testing.T) {
	result := compileText(t, `
		name: "bag.proto"
		package: "demo"
		message_type {
		  name: "Bag"
		  field { name: "name" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
		}
	`, compiler.WithBaseDirectives(options.Directives{Type: options.Ptr(options.AllocStatic)}))
	expectSingleError(t, result, 3001, "demo.Bag.name")
	err := result.Errors[0]
	testutil.ExpectEq(t, "bag.proto: demo.Bag.name", err.Locator().String())
	testutil.ExpectTrue(t, strings.HasPrefix(err.Error(), "E3001: Field 'demo.Bag.name'"))

	warn := compiler.UnmatchedRule("demo.Gone.*", "rules.yaml#2")
	testutil.ExpectEq(t, uint32(4000), warn.Code())
	testutil.ExpectEq(t, `W4000: Rule "demo.Gone.*" (rules.yaml#2) did not match any element`, warn.String())
}

func TestMutuallyRecursiveSizes(t *testing.T) {
	vector := options.ContainerVector
	rules := options.NewRuleSet(options.Rule{
		Pattern: "p.B.as",
		Directives: options.Directives{
			MaxCount:  options.Ptr(int64(2)),
			Container: &vector,
		},
	})
	file := mustCompile(t, `
		name: "cycle.proto"
		package: "p"
		message_type {
		  name: "A"
		  field { name: "b" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".p.B" }
		}
		message_type {
		  name: "B"
		  field { name: "as" number: 1 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".p.A" }
		}
	`, compiler.WithRules(rules))

	cycle := map[string]bool{"p.A": true, "p.B": true}
	for _, name := range []string{"p.A", "p.B"} {
		msg := file.Message(name)
		testutil.ExpectTrue(t, msg.SizeKnown)
		testutil.ExpectTrue(t, msg.SizeRecursive)
		testutil.ExpectTrue(t, !msg.Size.IsNumeric())
		syms := msg.Size.Symbols()
		testutil.ExpectEq(t, 1, len(syms))
		testutil.ExpectTrue(t, cycle[syms[0]])
		testutil.ExpectTrue(t, msg.Size.Value() > 0)
	}
}

func TestRecursiveDependencyIsUnsized(t *testing.T) {
	vector := options.ContainerVector
	rules := options.NewRuleSet(options.Rule{
		Pattern: "dep.Node.kids",
		Directives: options.Directives{
			MaxCount:  options.Ptr(int64(2)),
			Container: &vector,
		},
	})
	dep := mustCompile(t, `
		name: "node.proto"
		package: "dep"
		options { go_package: "example.com/dep;dep" }
		message_type {
		  name: "Node"
		  field { name: "kids" number: 1 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".dep.Node" }
		}
	`, compiler.WithRules(rules))
	node := dep.Message("dep.Node")
	testutil.ExpectTrue(t, node.SizeKnown)
	testutil.ExpectTrue(t, node.SizeRecursive)

	deps, err := compiler.Merge([]*layout.File{dep})
	testutil.AssertNoError(t, err)
	file := mustCompile(t, `
		name: "use.proto"
		package: "use"
		dependency: "node.proto"
		message_type {
		  name: "Head"
		  field { name: "first" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".dep.Node" }
		}
	`, compiler.WithDependencies(deps))
	head := file.Message("use.Head")
	testutil.ExpectTrue(t, !head.SizeKnown)
	testutil.ExpectTrue(t, !head.SizeRecursive)
}

const keyedItemFile = `
	name: "item.proto"
	package: "inv"
	options { go_package: "example.com/inv;inv" }
	message_type {
	  name: "Item"
	  field { name: "id" number: 1 label: LABEL_REQUIRED type: TYPE_UINT32 }
	}
`

func keyedBagRule(pattern string) options.Rule {
	hashMap := options.ContainerHashMap
	return options.Rule{
		Pattern: pattern,
		Directives: options.Directives{
			MaxCount:  options.Ptr(int64(4)),
			Container: &hashMap,
			KeyField:  options.Ptr("id"),
		},
	}
}

var narrowItemID = options.Rule{
	Pattern:    "inv.Item.id",
	Directives: options.Directives{IntSize: options.Ptr(options.IntSize16)},
}

func TestNarrowedKeyField(t *testing.T) {
	narrowed := layout.Scalar{Kind: descriptor.KindUint32, Bits: 16, Unsigned: true}

	local := mustCompile(t, `
		name: "bag.proto"
		package: "inv"
		message_type {
		  name: "Item"
		  field { name: "id" number: 1 label: LABEL_REQUIRED type: TYPE_UINT32 }
		}
		message_type {
		  name: "Bag"
		  field { name: "items" number: 1 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inv.Item" }
		}
	`, compiler.WithRules(options.NewRuleSet(narrowItemID, keyedBagRule("inv.Bag.items"))))
	testutil.ExpectEq(t, layout.Repr(narrowed), local.Message("inv.Item").Field("id").Repr)
	items, ok := local.Message("inv.Bag").Field("items").Repr.(layout.Container)
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "id", items.KeyField)
	testutil.ExpectEq(t, layout.Repr(narrowed), items.Key)

	dep := mustCompile(t, keyedItemFile, compiler.WithRules(options.NewRuleSet(narrowItemID)))
	deps, err := compiler.Merge([]*layout.File{dep})
	testutil.AssertNoError(t, err)
	// The dependency's own storage decides the key width, not the rules
	// in effect for the referencing file.
	remote := mustCompile(t, `
		name: "use.proto"
		package: "use"
		dependency: "item.proto"
		message_type {
		  name: "Bag"
		  field { name: "items" number: 1 label: LABEL_REPEATED type: TYPE_MESSAGE type_name: ".inv.Item" }
		}
	`, compiler.WithDependencies(deps), compiler.WithRules(options.NewRuleSet(keyedBagRule("use.Bag.items"))))
	items, ok = remote.Message("use.Bag").Field("items").Repr.(layout.Container)
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, layout.Repr(narrowed), items.Key)
}
