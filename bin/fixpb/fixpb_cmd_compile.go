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
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"go.fixpb.dev/fixpb/generator"
)

type cmdCompile struct {
	common
	watch bool
}

func (*cmdCompile) help() *commandHelp {
	return &commandHelp{
		usage:   "compile DESCRIPTOR_SET [FILE...]",
		summary: "Write Go layouts for the files of a descriptor set",
		minArgs: 1,
	}
}

func (cmd *cmdCompile) flags(flags *pflag.FlagSet) {
	cmd.registerFlags(flags)
	flags.BoolVarP(&cmd.watch, "watch", "w", false, "Recompile when the descriptor set or an option file changes")
}

func (cmd *cmdCompile) run(ctx context.Context, argv []string) int {
	cfg, log, err := cmd.setup()
	if err != nil {
		return cmd.fail(err)
	}
	compileOnce := func() bool {
		result, err := runBatch(ctx, cfg, log, batchRequest{
			setPath: argv[0],
			names:   argv[1:],
			render:  generator.GoRenderer("fixpb"),
		})
		if err != nil {
			cmd.fail(err)
			return false
		}
		if printDiagnostics(cmd.stderr, result) {
			return false
		}
		written, err := writeOutputs(cfg.OutputDir, result)
		if err != nil {
			cmd.fail(err)
			return false
		}
		for _, path := range written {
			log.Debugw("wrote", "path", path)
		}
		pterm.Success.WithWriter(cmd.stderr).Printfln("wrote %d files to %s", len(written), cfg.OutputDir)
		return true
	}

	ok := compileOnce()
	if !cmd.watch {
		if !ok {
			return 1
		}
		return 0
	}

	paths := append([]string{argv[0]}, cfg.OptionsFiles...)
	if cfg.Source != "" {
		paths = append(paths, cfg.Source)
	}
	err = watchFiles(ctx, paths, watchDebounce, log, func() {
		log.Infow("change detected, recompiling")
		compileOnce()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return cmd.fail(err)
	}
	return 0
}

const watchDebounce = 200 * time.Millisecond

// watchFiles calls onChange after writes to any of paths settle, until ctx
// is done. Parent directories are watched so that editors replacing a file
// by rename are noticed.
func watchFiles(
	ctx context.Context,
	paths []string,
	debounce time.Duration,
	log *zap.SugaredLogger,
	onChange func(),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrapf(err, "watching %s", p)
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !wanted[name] {
				continue
			}
			log.Debugw("file changed", "file", name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("file watcher error", "error", err)
		case <-timer.C:
			onChange()
		}
	}
}
