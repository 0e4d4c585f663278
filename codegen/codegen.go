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

// Package codegen renders a resolved layout as Go source: a declaration
// file holding types and constants, and a definition file holding the
// conversion routines built on the fixpb runtime.
package codegen

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"

	"go.fixpb.dev/fixpb/layout"
)

const (
	RuntimeImport   = "go.fixpb.dev/fixpb"
	protowireImport = "google.golang.org/protobuf/encoding/protowire"
)

type Options struct {
	// Deps are the resolved files imported by the file being generated.
	// Enum defaults that name a value of another file are looked up here.
	Deps []*layout.File

	// Generator is named in the header of every output file.
	Generator string
}

type File struct {
	// Path is relative to the output root, next to the source .proto.
	Path    string
	Content []byte
}

// Generate renders file. The declaration unit comes first.
func Generate(file *layout.File, opts Options) ([]*File, error) {
	if opts.Generator == "" {
		opts.Generator = "protoc-gen-fixpb"
	}
	if file.GoPackage == "" {
		return nil, errors.Newf("%s: no Go package name", file.Name)
	}
	g := newGenerator(file, opts)
	base := strings.TrimSuffix(file.Name, path.Ext(file.Name))

	var out []*File
	for _, unit := range []struct {
		suffix string
		emit   func(p *printer) error
	}{
		{".fixpb.go", g.emitDecls},
		{".fixpb_conv.go", g.emitConv},
	} {
		p := &printer{}
		if err := unit.emit(p); err != nil {
			return nil, errors.Wrapf(err, "%s", file.Name)
		}
		content, err := g.finish(p)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: formatting generated source", file.Name)
		}
		out = append(out, &File{Path: base + unit.suffix, Content: content})
	}
	return out, nil
}

type printer struct {
	buf bytes.Buffer
}

func (p *printer) line(s string) {
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

func (p *printer) linef(format string, args ...any) {
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) lines(ss []string) {
	for _, s := range ss {
		p.line(s)
	}
}

type generator struct {
	file *layout.File
	opts Options

	// imports maps import paths to the names they are imported as.
	imports map[string]string
	// refs indexes every type referenced by a field, by full name.
	refs map[string]*layout.TypeRef
}

func newGenerator(file *layout.File, opts Options) *generator {
	g := &generator{
		file:    file,
		opts:    opts,
		imports: make(map[string]string),
		refs:    make(map[string]*layout.TypeRef),
	}
	for _, msg := range file.Messages {
		for _, f := range msg.AllFields() {
			if f.Type != nil {
				g.refs[f.Type.FullName] = f.Type
			}
		}
	}
	for _, ext := range file.Extensions {
		if ext.Field.Type != nil {
			g.refs[ext.Field.Type.FullName] = ext.Field.Type
		}
	}
	return g
}

// finish prepends the header and import block to a unit and formats it.
// Unused imports are dropped by the formatter.
func (g *generator) finish(p *printer) ([]byte, error) {
	var src bytes.Buffer
	fmt.Fprintf(&src, "// Code generated by %s. DO NOT EDIT.\n", g.opts.Generator)
	fmt.Fprintf(&src, "// source: %s\n\n", g.file.Name)
	fmt.Fprintf(&src, "package %s\n\n", g.file.GoPackage)
	src.WriteString("import (\n")
	for _, std := range []string{"bytes", "cmp", "math", "strconv"} {
		fmt.Fprintf(&src, "\t%q\n", std)
	}
	fmt.Fprintf(&src, "\t%q\n", protowireImport)
	fmt.Fprintf(&src, "\t%q\n", RuntimeImport)
	paths := make([]string, 0, len(g.imports))
	for importPath := range g.imports {
		paths = append(paths, importPath)
	}
	sort.Strings(paths)
	for _, importPath := range paths {
		fmt.Fprintf(&src, "\t%s %q\n", g.imports[importPath], importPath)
	}
	src.WriteString(")\n\n")
	src.Write(p.buf.Bytes())

	return imports.Process(g.file.Name+".go", src.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
}

// Naming {{{

// goIdent turns a package-relative proto name such as "Outer.inner" into
// a Go identifier such as "Outer_Inner".
func goIdent(relName string) string {
	parts := strings.Split(relName, ".")
	for ii, part := range parts {
		parts[ii] = strcase.ToCamel(part)
	}
	return strings.Join(parts, "_")
}

func fieldIdent(name string) string {
	return strcase.ToCamel(name)
}

// qualify returns the Go name of a referenced type, importing its package
// when it lives elsewhere.
func (g *generator) qualify(ref *layout.TypeRef, name string) string {
	if ref.GoImportPath == "" || ref.GoImportPath == g.file.GoImportPath {
		return name
	}
	alias, ok := g.imports[ref.GoImportPath]
	if !ok {
		alias = g.importName(ref.GoPackage)
		g.imports[ref.GoImportPath] = alias
	}
	return alias + "." + name
}

func (g *generator) importName(pkg string) string {
	taken := make(map[string]bool, len(g.imports))
	for _, alias := range g.imports {
		taken[alias] = true
	}
	switch pkg {
	case "fixpb", "protowire", "bytes", "cmp", "math", "strconv", g.file.GoPackage:
		taken[pkg] = true
	}
	alias := pkg
	for ii := 2; taken[alias]; ii++ {
		alias = fmt.Sprintf("%s%d", pkg, ii)
	}
	return alias
}

func (g *generator) typeName(ref *layout.TypeRef) string {
	return g.qualify(ref, goIdent(ref.Name))
}

// lookupEnum finds an enum of this file or of a dependency.
func (g *generator) lookupEnum(fullName string) *layout.Enum {
	if enum := g.file.Enum(fullName); enum != nil {
		return enum
	}
	for _, dep := range g.opts.Deps {
		if enum := dep.Enum(fullName); enum != nil {
			return enum
		}
	}
	return nil
}

func enumValueIdent(enum *layout.Enum, value string) string {
	if enum.LongNames {
		return goIdent(enum.Name) + "_" + value
	}
	return value
}

// }}}
