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

// Command protoc-gen-fixpb is a protoc plugin that writes fixed-capacity
// Go structs and their conversion routines.
//
//	protoc --fixpb_out=. --fixpb_opt=options=rules.yaml,default_bounds demo.proto
//
// FIXPB_* environment variables configure logging and defaults; plugin
// parameters take precedence.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.fixpb.dev/fixpb/generator"
	"go.fixpb.dev/fixpb/internal/config"
	"go.fixpb.dev/fixpb/internal/logging"
)

const generatorName = "protoc-gen-fixpb"

func main() {
	if len(os.Args) > 1 {
		fmt.Fprintf(os.Stderr, "%s is a protoc plugin; run it through protoc --fixpb_out\n", generatorName)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", generatorName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(config.LoadOptions{})
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Logging())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	in, err := io.ReadAll(stdin)
	if err != nil {
		return errors.Wrap(err, "reading request")
	}
	req := &pluginpb.CodeGeneratorRequest{}
	if err := proto.Unmarshal(in, req); err != nil {
		return errors.Wrap(err, "decoding CodeGeneratorRequest")
	}

	opts, err := cfg.GeneratorOptions()
	if err != nil {
		return err
	}
	opts.Log = log
	opts.Render = generator.GoRenderer(generatorName)
	resp := generator.RunPlugin(ctx, req, opts)

	out, err := proto.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encoding CodeGeneratorResponse")
	}
	if _, err := stdout.Write(out); err != nil {
		return errors.Wrap(err, "writing response")
	}
	return nil
}
