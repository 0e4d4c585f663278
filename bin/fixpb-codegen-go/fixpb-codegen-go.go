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

// Command fixpb-codegen-go renders compiled layouts as Go source. It runs
// natively (one request frame on stdin, one response frame on stdout) or
// as a WebAssembly module loaded by "fixpb codegen".
package main

import (
	"strings"

	"go.fixpb.dev/fixpb/codegen"
	"go.fixpb.dev/fixpb/encoding/layoutjson"
)

const generatorName = "fixpb-codegen-go"

// handle answers one framed request. The response is always a valid
// frame; failed reports whether it carries an error.
func handle(reqFrame []byte) (respFrame []byte, failed bool) {
	resp := render(reqFrame)
	out, err := layoutjson.AppendFrame(nil, resp)
	if err != nil {
		out, _ = layoutjson.AppendFrame(nil, &layoutjson.Response{Error: err.Error()})
		return out, true
	}
	return out, resp.Error != ""
}

func render(reqFrame []byte) *layoutjson.Response {
	var req layoutjson.Request
	if err := layoutjson.DecodeFrame(reqFrame, &req); err != nil {
		return &layoutjson.Response{Error: err.Error()}
	}
	if req.File == nil {
		return &layoutjson.Response{Error: "request has no file"}
	}
	opts := codegen.Options{
		Deps:      req.Dependencies,
		Generator: generatorName,
	}
	for _, param := range req.Parameters {
		if name, ok := strings.CutPrefix(param, "generator="); ok {
			opts.Generator = name
		}
	}
	files, err := codegen.Generate(req.File, opts)
	if err != nil {
		return &layoutjson.Response{Error: err.Error()}
	}
	resp := &layoutjson.Response{}
	for _, f := range files {
		resp.OutputFiles = append(resp.OutputFiles, layoutjson.OutputFile{
			Path:    f.Path,
			Content: f.Content,
		})
	}
	return resp
}
