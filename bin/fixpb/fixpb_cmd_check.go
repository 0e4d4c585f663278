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
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

type cmdCheck struct {
	common
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check DESCRIPTOR_SET [FILE...]",
		summary: "Compile layouts and report diagnostics without writing files",
		minArgs: 1,
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	cmd.registerFlags(flags)
}

func (cmd *cmdCheck) run(ctx context.Context, argv []string) int {
	cfg, log, err := cmd.setup()
	if err != nil {
		return cmd.fail(err)
	}
	result, err := runBatch(ctx, cfg, log, batchRequest{setPath: argv[0], names: argv[1:]})
	if err != nil {
		return cmd.fail(err)
	}
	failed := printDiagnostics(cmd.stderr, result)

	table := pterm.TableData{{"File", "Messages", "Enums", "Warnings", "Status"}}
	for _, f := range result.Files {
		status := pterm.Green("ok")
		messages, enums := "-", "-"
		if f.Failed() {
			status = pterm.Red(strconv.Itoa(len(f.Errors)) + " errors")
		} else {
			messages = strconv.Itoa(len(f.Layout.Messages))
			enums = strconv.Itoa(len(f.Layout.Enums))
		}
		table = append(table, []string{f.Name, messages, enums, strconv.Itoa(len(f.Warnings)), status})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(table).WithWriter(cmd.stdout).Render(); err != nil {
		return cmd.fail(err)
	}
	if failed {
		return 1
	}
	return 0
}
