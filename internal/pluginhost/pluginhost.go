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

// Package pluginhost runs layout renderers compiled to WebAssembly.
//
// A renderer module exports three functions:
//
//	fixpb_codegen_allocate(len u32) ptr
//	fixpb_codegen_deallocate(ptr)
//	fixpb_codegen_generate(request ptr, response_out ptr) u32
//
// The request and response are layoutjson frames. A non-zero result from
// fixpb_codegen_generate means the response carries an error.
package pluginhost

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"go.fixpb.dev/fixpb/codegen"
	"go.fixpb.dev/fixpb/encoding/layoutjson"
	"go.fixpb.dev/fixpb/generator"
	"go.fixpb.dev/fixpb/layout"
)

const (
	ExportAllocate   = "fixpb_codegen_allocate"
	ExportDeallocate = "fixpb_codegen_deallocate"
	ExportGenerate   = "fixpb_codegen_generate"

	// PathEnv lists plugin directories, separated like $PATH.
	PathEnv = "FIXPB_PLUGIN_PATH"

	// 1 GiB of linear memory.
	memoryLimitPages = 16384
)

// Locate finds fixpb-codegen-<language>.wasm in the first directory of
// dirs that has it. An empty dirs falls back to $FIXPB_PLUGIN_PATH.
func Locate(dirs []string, language string) (string, error) {
	if len(dirs) == 0 {
		if env := os.Getenv(PathEnv); env != "" {
			dirs = filepath.SplitList(env)
		}
	}
	if len(dirs) == 0 {
		return "", errors.WithHint(
			errors.New("no plugin path set"),
			"use --plugin-path or $"+PathEnv,
		)
	}
	basename := "fixpb-codegen-" + language + ".wasm"
	for _, dir := range dirs {
		candidate := filepath.Join(dir, basename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.Newf("renderer %s not found in plugin path %s",
		basename, strings.Join(dirs, string(filepath.ListSeparator)))
}

type Options struct {
	// Stderr receives the plugin's WASI stderr. Nil discards it.
	Stderr io.Writer

	// Parameters are passed through to the plugin unchanged.
	Parameters []string
}

// Plugin is an instantiated renderer. Calls are serialized; a single
// module instance has one linear memory.
type Plugin struct {
	mu       sync.Mutex
	runtime  wazero.Runtime
	module   api.Module
	alloc    api.Function
	dealloc  api.Function
	generate api.Function
	params   []string
}

// Load compiles and instantiates the WASM module in bin.
func Load(ctx context.Context, bin []byte, opts Options) (*Plugin, error) {
	cfg := wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(memoryLimitPages).
		WithCloseOnContextDone(true)
	runtime := wazero.NewRuntimeWithConfig(ctx, cfg)

	p, err := instantiate(ctx, runtime, bin, opts)
	if err != nil {
		runtime.Close(ctx)
		return nil, err
	}
	return p, nil
}

// LoadFile reads the module at path and calls [Load].
func LoadFile(ctx context.Context, path string, opts Options) (*Plugin, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading plugin")
	}
	p, err := Load(ctx, bin, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return p, nil
}

func instantiate(ctx context.Context, runtime wazero.Runtime, bin []byte, opts Options) (*Plugin, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, errors.Wrap(err, "instantiating WASI")
	}
	compiled, err := runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Wrap(err, "compiling plugin")
	}
	exports := compiled.ExportedFunctions()
	for _, name := range []string{ExportAllocate, ExportDeallocate, ExportGenerate} {
		if _, ok := exports[name]; !ok {
			return nil, errors.Newf("plugin does not export %s", name)
		}
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	modCfg := wazero.NewModuleConfig().
		WithStderr(stderr).
		WithStartFunctions("_initialize")
	module, err := runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Wrap(err, "instantiating plugin")
	}
	return &Plugin{
		runtime:  runtime,
		module:   module,
		alloc:    module.ExportedFunction(ExportAllocate),
		dealloc:  module.ExportedFunction(ExportDeallocate),
		generate: module.ExportedFunction(ExportGenerate),
		params:   opts.Parameters,
	}, nil
}

func (p *Plugin) Close(ctx context.Context) error {
	return p.runtime.Close(ctx)
}

// Render sends one file to the plugin and returns the files it produced.
func (p *Plugin) Render(ctx context.Context, file *layout.File, deps []*layout.File) ([]*codegen.File, error) {
	req := &layoutjson.Request{File: file, Dependencies: deps, Parameters: p.params}
	reqBuf, err := layoutjson.AppendFrame(nil, req)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	respBuf, failed, err := p.call(ctx, reqBuf)
	p.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "%s", file.Name)
	}

	var resp layoutjson.Response
	if err := layoutjson.DecodeFrame(respBuf, &resp); err != nil {
		return nil, errors.Wrapf(err, "%s: plugin response", file.Name)
	}
	if failed || resp.Error != "" {
		msg := strings.TrimSpace(sanitize(resp.Error))
		if msg == "" {
			msg = "plugin failed without a message"
		}
		return nil, errors.Newf("%s: %s", file.Name, msg)
	}
	if len(resp.OutputFiles) == 0 {
		return nil, errors.Newf("%s: plugin did not generate any output files", file.Name)
	}
	out := make([]*codegen.File, 0, len(resp.OutputFiles))
	for _, f := range resp.OutputFiles {
		if err := CheckOutputPath(f.Path); err != nil {
			return nil, errors.Wrapf(err, "%s", file.Name)
		}
		out = append(out, &codegen.File{Path: f.Path, Content: f.Content})
	}
	return out, nil
}

// Renderer adapts p for [generator.Run].
func (p *Plugin) Renderer(ctx context.Context) generator.Renderer {
	return func(file *layout.File, deps []*layout.File) ([]*codegen.File, error) {
		return p.Render(ctx, file, deps)
	}
}

func (p *Plugin) call(ctx context.Context, reqBuf []byte) ([]byte, bool, error) {
	mem := p.module.Memory()
	if mem == nil {
		return nil, false, errors.New("plugin has no memory")
	}

	reqPtr, err := p.allocate(ctx, uint32(len(reqBuf)))
	if err != nil {
		return nil, false, err
	}
	defer p.free(ctx, reqPtr)
	if !mem.Write(reqPtr, reqBuf) {
		return nil, false, errors.New("request does not fit in plugin memory")
	}

	outPtr, err := p.allocate(ctx, 4)
	if err != nil {
		return nil, false, err
	}
	defer p.free(ctx, outPtr)

	results, err := p.generate.Call(ctx, uint64(reqPtr), uint64(outPtr))
	if err != nil {
		return nil, false, errors.Wrap(err, ExportGenerate)
	}
	failed := len(results) > 0 && uint32(results[0]) != 0

	respPtr, ok := mem.ReadUint32Le(outPtr)
	if !ok {
		return nil, false, errors.New("failed to read response pointer")
	}
	defer p.free(ctx, respPtr)
	respLen, ok := mem.ReadUint32Le(respPtr)
	if !ok {
		return nil, false, errors.New("failed to read response length")
	}
	view, ok := mem.Read(respPtr, 4+respLen)
	if !ok {
		return nil, false, errors.Newf("response of %d bytes is out of bounds", respLen)
	}
	return append([]byte(nil), view...), failed, nil
}

func (p *Plugin) allocate(ctx context.Context, n uint32) (uint32, error) {
	results, err := p.alloc.Call(ctx, uint64(n))
	if err != nil {
		return 0, errors.Wrap(err, ExportAllocate)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, errors.Newf("plugin could not allocate %d bytes", n)
	}
	return uint32(results[0]), nil
}

func (p *Plugin) free(ctx context.Context, ptr uint32) {
	if ptr != 0 {
		_, _ = p.dealloc.Call(ctx, uint64(ptr))
	}
}

// CheckOutputPath rejects paths that would escape the output directory.
func CheckOutputPath(p string) error {
	if p == "" {
		return errors.New("invalid output path: empty")
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return errors.Newf("invalid output path %q: absolute", p)
	}
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".", "..":
			return errors.Newf("invalid output path %q: bad component %q", p, part)
		}
		if strings.ContainsRune(part, '\\') {
			return errors.Newf("invalid output path %q: component %q contains '\\'", p, part)
		}
	}
	return nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return '\uFFFD'
		}
		return r
	}, s)
}
