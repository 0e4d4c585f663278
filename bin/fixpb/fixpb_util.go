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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.fixpb.dev/fixpb/generator"
	"go.fixpb.dev/fixpb/internal/config"
	"go.fixpb.dev/fixpb/internal/logging"
	"go.fixpb.dev/fixpb/internal/pluginhost"
)

type stdio struct {
	stdout io.Writer
	stderr io.Writer
}

// common holds the flags and setup shared by every command.
type common struct {
	stdio
	flagSet    *pflag.FlagSet
	configPath string
}

func (c *common) registerFlags(flags *pflag.FlagSet) {
	c.flagSet = flags
	flags.StringVar(&c.configPath, "config", "", "Configuration file (default ./fixpb.toml if present)")
	config.RegisterFlags(flags)
}

func (c *common) setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(config.LoadOptions{
		Flags:      c.flagSet,
		ConfigFile: c.configPath,
		SearchDir:  ".",
	})
	if err != nil {
		return nil, nil, err
	}
	logCfg := cfg.Log.Logging()
	logCfg.Output = c.stderr
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Source != "" {
		log.Debugw("loaded config", "path", cfg.Source)
	}
	return cfg, log, nil
}

func (c *common) fail(err error) int {
	msg := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		msg += "\n" + strings.Join(hints, "\n")
	}
	pterm.Error.WithWriter(c.stderr).Println(msg)
	return 1
}

// readDescriptorSet loads a FileDescriptorSet. Files ending in .textproto,
// .txtpb or .pbtxt are read as text format, anything else as binary.
func readDescriptorSet(path string) ([]*descriptorpb.FileDescriptorProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading descriptor set")
	}
	set := &descriptorpb.FileDescriptorSet{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".textproto", ".txtpb", ".pbtxt":
		err = prototext.Unmarshal(data, set)
	default:
		err = proto.Unmarshal(data, set)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding descriptor set %s", path)
	}
	if len(set.GetFile()) == 0 {
		return nil, errors.Newf("descriptor set %s is empty", path)
	}
	return set.GetFile(), nil
}

// selectFiles returns names, or every file in the set when names is empty.
func selectFiles(files []*descriptorpb.FileDescriptorProto, names []string) []string {
	if len(names) > 0 {
		return names
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.GetName())
	}
	return out
}

type batchRequest struct {
	setPath string
	names   []string
	render  generator.Renderer
}

func runBatch(
	ctx context.Context,
	cfg *config.Config,
	log *zap.SugaredLogger,
	req batchRequest,
) (*generator.Result, error) {
	files, err := readDescriptorSet(req.setPath)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.GeneratorOptions()
	if err != nil {
		return nil, err
	}
	opts.Log = log
	opts.Render = req.render
	return generator.Run(ctx, files, selectFiles(files, req.names), opts)
}

// printDiagnostics writes every warning and error in result to w and
// reports whether any file failed.
func printDiagnostics(w io.Writer, result *generator.Result) bool {
	warn := pterm.Warning.WithWriter(w)
	fail := pterm.Error.WithWriter(w)
	for _, wn := range result.Warnings {
		warn.Println(wn.String())
	}
	for _, f := range result.Files {
		for _, wn := range f.Warnings {
			warn.Println(fmt.Sprintf("%s: %s", wn.Locator(), wn))
		}
		for _, err := range f.Errors {
			fail.Println(generator.FormatError(f.Name, err))
		}
	}
	return result.Failed()
}

// writeOutputs writes every rendered file under dir and returns the paths
// written.
func writeOutputs(dir string, result *generator.Result) ([]string, error) {
	var written []string
	for _, f := range result.Files {
		for _, out := range f.Outputs {
			if err := pluginhost.CheckOutputPath(out.Path); err != nil {
				return written, errors.Wrapf(err, "%s", f.Name)
			}
			path := filepath.Join(dir, filepath.FromSlash(out.Path))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return written, errors.Wrap(err, "creating output directory")
			}
			if err := os.WriteFile(path, out.Content, 0o644); err != nil {
				return written, errors.Wrap(err, "writing output")
			}
			written = append(written, path)
		}
	}
	return written, nil
}
