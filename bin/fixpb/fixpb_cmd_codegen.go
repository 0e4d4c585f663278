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
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"go.fixpb.dev/fixpb/internal/pluginhost"
)

type cmdCodegen struct {
	common
	language string
	params   []string
}

func (*cmdCodegen) help() *commandHelp {
	return &commandHelp{
		usage:   "codegen DESCRIPTOR_SET [FILE...]",
		summary: "Compile layouts and render them with a WebAssembly plugin",
		minArgs: 1,
	}
}

func (cmd *cmdCodegen) flags(flags *pflag.FlagSet) {
	cmd.registerFlags(flags)
	flags.StringVarP(&cmd.language, "language", "l", "go", "Plugin language; loads fixpb-codegen-LANGUAGE.wasm")
	flags.StringSliceVar(&cmd.params, "plugin-opt", nil, "Parameters passed to the plugin")
}

func (cmd *cmdCodegen) run(ctx context.Context, argv []string) int {
	cfg, log, err := cmd.setup()
	if err != nil {
		return cmd.fail(err)
	}
	pluginPath, err := pluginhost.Locate(cfg.PluginPath, cmd.language)
	if err != nil {
		return cmd.fail(err)
	}
	log.Debugw("loading plugin", "path", pluginPath)
	plugin, err := pluginhost.LoadFile(ctx, pluginPath, pluginhost.Options{
		Stderr:     cmd.stderr,
		Parameters: cmd.params,
	})
	if err != nil {
		return cmd.fail(err)
	}
	defer plugin.Close(ctx)

	result, err := runBatch(ctx, cfg, log, batchRequest{
		setPath: argv[0],
		names:   argv[1:],
		render:  plugin.Renderer(ctx),
	})
	if err != nil {
		return cmd.fail(err)
	}
	if printDiagnostics(cmd.stderr, result) {
		return 1
	}
	written, err := writeOutputs(cfg.OutputDir, result)
	if err != nil {
		return cmd.fail(err)
	}
	pterm.Success.WithWriter(cmd.stderr).Printfln("wrote %d files to %s", len(written), cfg.OutputDir)
	return 0
}
