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

// Command build compiles the fixpb-codegen-go renderer to WebAssembly with
// TinyGo, producing the module that "fixpb codegen" loads.
//
//	go run ./internal/build --output=plugins/fixpb-codegen-go.wasm
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
)

type buildOptions struct {
	tinygo  string
	output  string
	pkg     string
	target  string
	opt     string
	wasmOpt string
	debug   bool
}

func main() {
	var opts buildOptions
	flags := pflag.NewFlagSet("build", pflag.ExitOnError)
	flags.StringVar(&opts.tinygo, "tinygo", "tinygo", "TinyGo binary")
	flags.StringVarP(&opts.output, "output", "o", "", "Output .wasm path")
	flags.StringVar(&opts.pkg, "package", "./bin/fixpb-codegen-go", "Renderer package to build")
	flags.StringVar(&opts.target, "target", "wasm-unknown", "TinyGo target")
	flags.StringVar(&opts.opt, "opt", "z", "TinyGo optimization level")
	flags.StringVar(&opts.wasmOpt, "wasm-opt", "", "wasm-opt binary, if not on $PATH")
	flags.BoolVar(&opts.debug, "debug", false, "Keep debug information")
	_ = flags.Parse(os.Args[1:])

	if err := build(opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func build(opts buildOptions) error {
	args, err := tinygoArgs(opts)
	if err != nil {
		return err
	}
	tinygo, err := exec.LookPath(opts.tinygo)
	if err != nil {
		return errors.WithHint(
			errors.Wrap(err, "locating tinygo"),
			"install TinyGo or pass --tinygo=PATH",
		)
	}

	cmd := exec.Command(tinygo, args...)
	cmd.Env = os.Environ()
	if opts.wasmOpt != "" {
		wasmOpt, err := filepath.Abs(opts.wasmOpt)
		if err != nil {
			return errors.Wrap(err, "wasm-opt path")
		}
		cmd.Env = append(cmd.Env, "WASMOPT="+wasmOpt)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "tinygo build %s", opts.pkg)
	}
	return nil
}

func tinygoArgs(opts buildOptions) ([]string, error) {
	if opts.output == "" {
		return nil, errors.New("no output path (set --output=)")
	}
	output, err := filepath.Abs(opts.output)
	if err != nil {
		return nil, errors.Wrap(err, "output path")
	}
	args := []string{
		"build",
		"-o=" + output,
		"-target=" + opts.target,
		"-opt=" + opts.opt,
	}
	if !opts.debug {
		args = append(args, "-no-debug")
	}
	return append(args, opts.pkg), nil
}
