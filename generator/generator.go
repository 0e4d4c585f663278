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

// Package generator compiles and renders a batch of schema files. Files
// are compiled in import order, independent files in parallel, and a
// failure in one file only affects the files importing it.
package generator

import (
	"context"
	"runtime"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/descriptorpb"

	"go.fixpb.dev/fixpb/codegen"
	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
	"go.fixpb.dev/fixpb/options"
)

// Renderer turns a compiled file into output files. deps holds the
// compiled files it imports, directly or not.
type Renderer func(file *layout.File, deps []*layout.File) ([]*codegen.File, error)

// GoRenderer renders with the built-in Go emitter.
func GoRenderer(generatorName string) Renderer {
	return func(file *layout.File, deps []*layout.File) ([]*codegen.File, error) {
		return codegen.Generate(file, codegen.Options{
			Deps:      deps,
			Generator: generatorName,
		})
	}
}

type Options struct {
	Rules *options.RuleSet
	Base  options.Directives

	// DefaultMaxCount and DefaultMaxSize apply to elements with
	// default_bounds. Zero keeps the compiler's defaults.
	DefaultMaxCount int64
	DefaultMaxSize  int64

	// Jobs limits how many files compile at once. Zero means GOMAXPROCS.
	Jobs int

	Log *zap.SugaredLogger

	// Render is called for each requested file that compiled. Nil skips
	// rendering.
	Render Renderer
}

type FileResult struct {
	Name string
	// Layout is nil when the file failed.
	Layout   *layout.File
	Outputs  []*codegen.File
	Errors   []error
	Warnings []*compiler.Warning
}

func (r *FileResult) Failed() bool {
	return len(r.Errors) > 0
}

type Result struct {
	// Files holds the requested files in request order, followed by any
	// imported files that failed.
	Files []*FileResult
	// Warnings are about the batch as a whole, such as unmatched rules.
	Warnings []*compiler.Warning
}

func (r *Result) Failed() bool {
	for _, f := range r.Files {
		if f.Failed() {
			return true
		}
	}
	return false
}

// unit is the compilation state of one file of the batch.
type unit struct {
	proto  *descriptorpb.FileDescriptorProto
	result *FileResult
	deps   []*unit // transitive, in import order
	done   chan struct{}
	// layout is set once the file compiles; a later render failure does
	// not affect the files importing it.
	layout *layout.File
}

// Run compiles the files named in generate, and every file they import,
// from the descriptors in files. Schema diagnostics are reported per file;
// the returned error is reserved for failures of the batch itself.
func Run(
	ctx context.Context,
	files []*descriptorpb.FileDescriptorProto,
	generate []string,
	opts Options,
) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	byName := make(map[string]*descriptorpb.FileDescriptorProto, len(files))
	for _, fd := range files {
		byName[fd.GetName()] = fd
	}
	order, err := importOrder(byName, generate)
	if err != nil {
		return nil, err
	}

	units := make(map[string]*unit, len(order))
	for _, name := range order {
		u := &unit{
			proto:  byName[name],
			result: &FileResult{Name: name},
			done:   make(chan struct{}),
		}
		seen := make(map[*unit]bool)
		for _, dep := range byName[name].GetDependency() {
			for _, d := range append(units[dep].deps, units[dep]) {
				if !seen[d] {
					seen[d] = true
					u.deps = append(u.deps, d)
				}
			}
		}
		units[name] = u
	}

	compileOpts := []compiler.CompileOption{
		compiler.WithRules(opts.Rules),
		compiler.WithBaseDirectives(opts.Base),
		compiler.WithDefaultBounds(opts.DefaultMaxCount, opts.DefaultMaxSize),
		compiler.WithLogger(log),
	}
	requested := make(map[string]bool, len(generate))
	for _, name := range generate {
		requested[name] = true
	}

	var (
		mu      sync.Mutex
		matched = make([]bool, opts.Rules.Len())
	)
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	// Units start in import order, so a unit waiting on its dependencies
	// only ever waits on units that already hold a slot or have finished.
	for _, name := range order {
		u := units[name]
		g.Go(func() error {
			defer close(u.done)
			if err := ctx.Err(); err != nil {
				return err
			}
			var deps []*layout.File
			for _, dep := range u.deps {
				select {
				case <-dep.done:
				case <-ctx.Done():
					return ctx.Err()
				}
				if dep.layout == nil {
					u.result.Errors = append(u.result.Errors, compiler.DependencyFailed(name, dep.result.Name))
					continue
				}
				deps = append(deps, dep.layout)
			}
			if u.result.Failed() {
				log.Debugw("skipped after dependency failure", "file", name)
				return nil
			}

			matchedRules := compileUnit(u, deps, compileOpts, log)
			mu.Lock()
			for ii, ok := range matchedRules {
				matched[ii] = matched[ii] || ok
			}
			mu.Unlock()

			if u.result.Failed() {
				return nil
			}
			u.layout = u.result.Layout
			if requested[name] && opts.Render != nil {
				outputs, err := opts.Render(u.result.Layout, deps)
				if err != nil {
					u.result.Errors = append(u.result.Errors, err)
					u.result.Layout = nil
					return nil
				}
				u.result.Outputs = outputs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, name := range generate {
		result.Files = append(result.Files, units[name].result)
	}
	for _, name := range order {
		if u := units[name]; !requested[name] && u.result.Failed() {
			result.Files = append(result.Files, u.result)
		}
	}
	for ii, ok := range matched {
		if !ok {
			rule := opts.Rules.Rule(ii)
			result.Warnings = append(result.Warnings, compiler.UnmatchedRule(rule.Pattern, rule.Source))
		}
	}
	return result, nil
}

func compileUnit(
	u *unit,
	deps []*layout.File,
	compileOpts []compiler.CompileOption,
	log *zap.SugaredLogger,
) []bool {
	file, err := descriptor.New(u.proto)
	if err != nil {
		u.result.Errors = append(u.result.Errors, err)
		return nil
	}
	opts := slices.Clone(compileOpts)
	if len(deps) > 0 {
		set, err := compiler.Merge(deps)
		if err != nil {
			u.result.Errors = append(u.result.Errors, err)
			return nil
		}
		opts = append(opts, compiler.WithDependencies(set))
	}
	compiled := compiler.Compile(file, opts...)
	for _, err := range compiled.Errors {
		u.result.Errors = append(u.result.Errors, err)
	}
	u.result.Warnings = compiled.Warnings
	u.result.Layout = compiled.File
	log.Debugw("compiled",
		"file", u.result.Name,
		"errors", len(compiled.Errors),
		"warnings", len(compiled.Warnings),
	)
	return compiled.MatchedRules
}

// importOrder lists the requested files and everything they import, each
// file after its imports.
func importOrder(
	byName map[string]*descriptorpb.FileDescriptorProto,
	generate []string,
) ([]string, error) {
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[string]int)
	var order []string
	var visit func(name string, from string) error
	visit = func(name string, from string) error {
		switch state[name] {
		case visiting:
			return errors.Newf("import cycle through %q", name)
		case visited:
			return nil
		}
		fd, ok := byName[name]
		if !ok {
			if from == "" {
				return errors.Newf("file %q is not in the descriptor set", name)
			}
			return errors.Newf("file %q imported by %q is not in the descriptor set", name, from)
		}
		state[name] = visiting
		for _, dep := range fd.GetDependency() {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		state[name] = visited
		order = append(order, name)
		return nil
	}
	for _, name := range generate {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return order, nil
}
