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
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"go.fixpb.dev/fixpb/encoding/layoutjson"
	"go.fixpb.dev/fixpb/encoding/layouttext"
	"go.fixpb.dev/fixpb/layout"
)

type cmdDump struct {
	common
	file   string
	format string
}

func (*cmdDump) help() *commandHelp {
	return &commandHelp{
		usage:   "dump DESCRIPTOR_SET --file NAME",
		summary: "Print the computed layout of one file",
		minArgs: 1,
	}
}

func (cmd *cmdDump) flags(flags *pflag.FlagSet) {
	cmd.registerFlags(flags)
	flags.StringVar(&cmd.file, "file", "", "Name of the .proto file to dump, as recorded in the descriptor set")
	flags.StringVarP(&cmd.format, "format", "f", "text", "Output format: text or json")
}

func (cmd *cmdDump) run(ctx context.Context, argv []string) int {
	if cmd.file == "" {
		return cmd.fail(errors.WithHint(errors.New("no file selected"), "set --file=NAME"))
	}
	var encode func(io.Writer, *layout.File) error
	switch cmd.format {
	case "text", "layouttext":
		encode = func(w io.Writer, f *layout.File) error {
			return layouttext.EncodeTo(f, w)
		}
	case "json", "layoutjson":
		encode = func(w io.Writer, f *layout.File) error {
			data, err := layoutjson.EncodeFile(f)
			if err != nil {
				return err
			}
			_, err = w.Write(append(data, '\n'))
			return err
		}
	default:
		return cmd.fail(errors.Newf("unsupported output format %q", cmd.format))
	}

	cfg, log, err := cmd.setup()
	if err != nil {
		return cmd.fail(err)
	}
	result, err := runBatch(ctx, cfg, log, batchRequest{setPath: argv[0], names: []string{cmd.file}})
	if err != nil {
		return cmd.fail(err)
	}
	if printDiagnostics(cmd.stderr, result) {
		return 1
	}
	if err := encode(cmd.stdout, result.Files[0].Layout); err != nil {
		return cmd.fail(err)
	}
	return 0
}
