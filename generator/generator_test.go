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

package generator_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"go.fixpb.dev/fixpb/codegen"
	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/generator"
	"go.fixpb.dev/fixpb/internal/testutil"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

func parseFile(t *testing.T, text string) *descriptorpb.FileDescriptorProto {
	t.Helper()
	fd := &descriptorpb.FileDescriptorProto{}
	testutil.AssertNoError(t, prototext.Unmarshal([]byte(text), fd))
	return fd
}

func parseRules(t *testing.T, text string) *options.RuleSet {
	t.Helper()
	rules, err := options.ParseYAML([]byte(text), "rules.yaml")
	testutil.AssertNoError(t, err)
	return rules
}

func batch(t *testing.T) []*descriptorpb.FileDescriptorProto {
	return []*descriptorpb.FileDescriptorProto{
		parseFile(t, `
			name: "dep.proto"
			package: "dep"
			options { go_package: "example.com/dep;dep" }
			message_type {
			  name: "Point"
			  field { name: "x" number: 1 label: LABEL_OPTIONAL type: TYPE_SINT32 }
			}
		`),
		parseFile(t, `
			name: "shape.proto"
			package: "shape"
			dependency: "dep.proto"
			options { go_package: "example.com/shape;shape" }
			message_type {
			  name: "Line"
			  field { name: "from" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".dep.Point" }
			}
		`),
		parseFile(t, `
			name: "bad.proto"
			package: "bad"
			options { go_package: "example.com/bad;bad" }
			message_type {
			  name: "Doc"
			  field { name: "title" number: 1 label: LABEL_OPTIONAL type: TYPE_STRING }
			}
		`),
		parseFile(t, `
			name: "user.proto"
			package: "user"
			dependency: "bad.proto"
			options { go_package: "example.com/user;user" }
			message_type {
			  name: "Shelf"
			  field { name: "doc" number: 1 label: LABEL_OPTIONAL type: TYPE_MESSAGE type_name: ".bad.Doc" }
			}
		`),
	}
}

const batchRules = `
rules:
  - match: "bad.Doc.title"
    type: FT_STATIC
`

func TestRunRendersRequestedFiles(t *testing.T) {
	t.Parallel()

	var rendered atomic.Int32
	render := func(file *layout.File, deps []*layout.File) ([]*codegen.File, error) {
		rendered.Add(1)
		testutil.ExpectEq(t, "shape.proto", file.Name)
		testutil.ExpectEq(t, 1, len(deps))
		testutil.ExpectEq(t, "dep.proto", deps[0].Name)
		return codegen.Generate(file, codegen.Options{Deps: deps})
	}
	result, err := generator.Run(context.Background(), batch(t), []string{"shape.proto"}, generator.Options{
		Jobs:   2,
		Render: render,
	})
	testutil.AssertNoError(t, err)
	testutil.ExpectFalse(t, result.Failed())
	testutil.ExpectEq(t, int32(1), rendered.Load())
	testutil.ExpectEq(t, 1, len(result.Files))

	shape := result.Files[0]
	testutil.ExpectEq(t, "shape.proto", shape.Name)
	testutil.ExpectEq(t, 2, len(shape.Outputs))
	testutil.ExpectContains(t, "From dep.Point", string(shape.Outputs[0].Content))
}

func TestRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	result, err := generator.Run(
		context.Background(),
		batch(t),
		[]string{"bad.proto", "user.proto", "shape.proto"},
		generator.Options{
			Rules:  parseRules(t, batchRules),
			Render: generator.GoRenderer("test"),
		},
	)
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, result.Failed())

	bad, user, shape := result.Files[0], result.Files[1], result.Files[2]

	testutil.ExpectEq(t, 1, len(bad.Errors))
	located, ok := bad.Errors[0].(*compiler.Error)
	testutil.ExpectTrue(t, ok)
	if ok {
		testutil.ExpectEq(t, uint32(3001), located.Code())
	}
	testutil.ExpectTrue(t, bad.Layout == nil)

	testutil.ExpectEq(t, 1, len(user.Errors))
	testutil.ExpectEq(t, "E3024: Dependency 'bad.proto' failed to compile", user.Errors[0].Error())
	testutil.ExpectEq(t, 0, len(user.Outputs))

	testutil.ExpectFalse(t, shape.Failed())
	testutil.ExpectEq(t, 2, len(shape.Outputs))
}

func TestRunReportsUnmatchedRules(t *testing.T) {
	t.Parallel()

	rules := parseRules(t, `
rules:
  - match: "dep.*"
    long_names: false
  - match: "nowhere.*"
    long_names: false
`)
	result, err := generator.Run(context.Background(), batch(t), []string{"shape.proto"}, generator.Options{
		Rules: rules,
	})
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 1, len(result.Warnings))
	testutil.ExpectEq(t, uint32(4000), result.Warnings[0].Code())
	testutil.ExpectContains(t, `"nowhere.*"`, result.Warnings[0].String())
}

func TestRunMissingFile(t *testing.T) {
	t.Parallel()

	_, err := generator.Run(context.Background(), batch(t), []string{"absent.proto"}, generator.Options{})
	testutil.AssertError(t, err)

	files := batch(t)[1:]
	_, err = generator.Run(context.Background(), files, []string{"shape.proto"}, generator.Options{})
	testutil.AssertError(t, err)
	testutil.ExpectContains(t, `"dep.proto" imported by "shape.proto"`, err.Error())
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := generator.Run(ctx, batch(t), []string{"shape.proto"}, generator.Options{Jobs: 1})
	testutil.AssertError(t, err)
}

func TestParseParameter(t *testing.T) {
	t.Parallel()

	params, err := generator.ParseParameter("options=a.yaml,options=b.toml,default_bounds,max_count=16,max_size=64,jobs=3")
	testutil.AssertNoError(t, err)
	testutil.ExpectSliceEq(t, []string{"a.yaml", "b.toml"}, params.OptionsFiles)
	testutil.ExpectTrue(t, params.DefaultBounds)
	testutil.ExpectEq(t, int64(16), params.MaxCount)
	testutil.ExpectEq(t, int64(64), params.MaxSize)
	testutil.ExpectEq(t, 3, params.Jobs)
	testutil.ExpectEq(t, generator.DefaultMinProtocVersion, params.MinProtocVersion)

	params, err = generator.ParseParameter("default_bounds=false,min_protoc_version=3.20.0")
	testutil.AssertNoError(t, err)
	testutil.ExpectFalse(t, params.DefaultBounds)
	testutil.ExpectEq(t, "3.20.0", params.MinProtocVersion)

	for _, bad := range []string{"jobs=many", "options=", "colour=blue"} {
		_, err := generator.ParseParameter(bad)
		testutil.AssertError(t, err)
	}
}

func TestCheckCompilerVersion(t *testing.T) {
	t.Parallel()

	version := func(major, minor, patch int32) *pluginpb.Version {
		return &pluginpb.Version{
			Major: proto.Int32(major),
			Minor: proto.Int32(minor),
			Patch: proto.Int32(patch),
		}
	}
	testutil.AssertNoError(t, generator.CheckCompilerVersion(nil, "3.12.0"))
	testutil.AssertNoError(t, generator.CheckCompilerVersion(version(3, 12, 0), "3.12.0"))
	testutil.AssertNoError(t, generator.CheckCompilerVersion(version(25, 1, 0), "3.12.0"))
	testutil.AssertError(t, generator.CheckCompilerVersion(version(3, 11, 4), "3.12.0"))
	testutil.AssertError(t, generator.CheckCompilerVersion(version(3, 11, 4), "not a version"))
}

func TestRunPlugin(t *testing.T) {
	t.Parallel()

	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{"shape.proto"},
		Parameter:      proto.String("jobs=2"),
		ProtoFile:      batch(t),
		CompilerVersion: &pluginpb.Version{
			Major: proto.Int32(3),
			Minor: proto.Int32(21),
			Patch: proto.Int32(12),
		},
	}
	resp := generator.RunPlugin(context.Background(), req, generator.Options{
		Render: generator.GoRenderer("protoc-gen-fixpb"),
	})
	testutil.ExpectEq(t, "", resp.GetError())
	testutil.ExpectEq(t,
		uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL),
		resp.GetSupportedFeatures(),
	)
	var names []string
	for _, f := range resp.GetFile() {
		names = append(names, f.GetName())
	}
	testutil.ExpectSliceEq(t, []string{"shape.fixpb.go", "shape.fixpb_conv.go"}, names)
}

func TestRunPluginErrors(t *testing.T) {
	t.Parallel()

	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{"user.proto"},
		ProtoFile:      batch(t),
	}
	resp := generator.RunPlugin(context.Background(), req, generator.Options{
		Rules:  parseRules(t, batchRules),
		Render: generator.GoRenderer("protoc-gen-fixpb"),
	})
	testutil.ExpectEq(t, 0, len(resp.GetFile()))
	testutil.ExpectTrue(t, strings.Contains(resp.GetError(), "user.proto: E3024"))
	testutil.ExpectTrue(t, strings.Contains(resp.GetError(), "bad.proto: bad.Doc.title: E3001"))

	req.Parameter = proto.String("bogus=1")
	resp = generator.RunPlugin(context.Background(), req, generator.Options{})
	testutil.ExpectContains(t, `unknown parameter "bogus"`, resp.GetError())
}
