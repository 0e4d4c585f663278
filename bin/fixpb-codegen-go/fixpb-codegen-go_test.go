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

package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/encoding/layoutjson"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

const basicDir = "../../compiler/testdata/layout/basic/"

func basicLayout(t *testing.T) *layout.File {
	t.Helper()
	text, err := os.ReadFile(basicDir + "input.textproto")
	require.NoError(t, err)
	fd := &descriptorpb.FileDescriptorProto{}
	require.NoError(t, prototext.Unmarshal(text, fd))
	file, err := descriptor.New(fd)
	require.NoError(t, err)
	rules, err := options.LoadFile(basicDir + "rules.yaml")
	require.NoError(t, err)

	result := compiler.Compile(file, compiler.WithRules(rules))
	require.Empty(t, result.Errors)
	return result.File
}

func call(t *testing.T, req *layoutjson.Request) (*layoutjson.Response, bool) {
	t.Helper()
	frame, err := layoutjson.AppendFrame(nil, req)
	require.NoError(t, err)
	out, failed := handle(frame)
	var resp layoutjson.Response
	require.NoError(t, layoutjson.DecodeFrame(out, &resp))
	return &resp, failed
}

func TestHandleRendersFile(t *testing.T) {
	t.Parallel()

	resp, failed := call(t, &layoutjson.Request{
		File:       basicLayout(t),
		Parameters: []string{"generator=fixpb-test"},
	})
	require.False(t, failed, resp.Error)
	require.Len(t, resp.OutputFiles, 2)
	assert.Equal(t, "demo.fixpb.go", resp.OutputFiles[0].Path)
	assert.Equal(t, "demo.fixpb_conv.go", resp.OutputFiles[1].Path)

	decls := string(resp.OutputFiles[0].Content)
	assert.Contains(t, decls, "fixpb-test")
	assert.Contains(t, decls, "type Bag struct")
	assert.True(t, strings.HasPrefix(decls, "// Code generated"))
}

func TestHandleReportsErrors(t *testing.T) {
	t.Parallel()

	out, failed := handle([]byte{1, 2})
	assert.True(t, failed)
	var resp layoutjson.Response
	require.NoError(t, layoutjson.DecodeFrame(out, &resp))
	assert.Contains(t, resp.Error, "truncated")

	empty, err := layoutjson.AppendFrame(nil, json.RawMessage(`{}`))
	require.NoError(t, err)
	out, failed = handle(empty)
	assert.True(t, failed)
	require.NoError(t, layoutjson.DecodeFrame(out, &resp))
	assert.Contains(t, resp.Error, "request has no file")

	file := basicLayout(t)
	file.GoPackage = ""
	noPkg, failed := call(t, &layoutjson.Request{File: file})
	assert.True(t, failed)
	assert.Contains(t, noPkg.Error, "no Go package name")
}
