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

package compiler

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/layout"
)

// SchemaSet is the resolution context of already-compiled dependency files.
// It is read-only once built and may be shared between compilations.
type SchemaSet struct {
	decls  map[string] /* full name */ *mergedDecl
	consts map[string] /* qualified value name */ *mergedDecl
}

type declType uint8

const (
	declType_UNKNOWN declType = iota
	declType_MESSAGE
	declType_ENUM
	declType_CONST
)

type mergedDecl struct {
	type_    declType
	file     *layout.File
	value    interface{}
	conflict bool
}

func canUnifyMergedDecls(a, b *mergedDecl) bool {
	if a.conflict || b.conflict {
		return false
	}
	if a.type_ != b.type_ {
		return false
	}
	switch a.type_ {
	case declType_MESSAGE:
		return a.value.(*layout.Message) == b.value.(*layout.Message)
	case declType_ENUM:
		return a.value.(*layout.Enum) == b.value.(*layout.Enum)
	case declType_CONST:
		return a.value.(int32) == b.value.(int32)
	}
	return false
}

// Merge builds a resolution context from compiled files. A name defined by
// two different files is kept as a conflict and reported when used.
func Merge(files []*layout.File) (*SchemaSet, error) {
	set := func(decls map[string]*mergedDecl, k string, v *mergedDecl) {
		if prev, conflict := decls[k]; conflict {
			if !canUnifyMergedDecls(v, prev) {
				decls[k] = &mergedDecl{
					conflict: true,
				}
			}
			return
		}
		decls[k] = v
	}

	s := &SchemaSet{
		decls:  make(map[string]*mergedDecl),
		consts: make(map[string]*mergedDecl),
	}
	for _, file := range files {
		for _, msg := range file.Messages {
			set(s.decls, msg.FullName, &mergedDecl{
				type_: declType_MESSAGE,
				file:  file,
				value: msg,
			})
		}
		consts := make(map[string]*mergedDecl)
		for _, enum := range file.Enums {
			set(s.decls, enum.FullName, &mergedDecl{
				type_: declType_ENUM,
				file:  file,
				value: enum,
			})
			for name, value := range enumConstants(enum.FullName, enum.Values) {
				set(consts, name, &mergedDecl{
					type_: declType_CONST,
					file:  file,
					value: value,
				})
			}
		}
		for _, name := range slices.Sorted(maps.Keys(consts)) {
			set(s.consts, name, consts[name])
		}
	}
	return s, nil
}

// Files returns the distinct files of the set, ordered by name.
func (s *SchemaSet) Files() []*layout.File {
	if s == nil {
		return nil
	}
	seen := make(map[*layout.File]bool)
	var out []*layout.File
	for _, decl := range s.decls {
		if decl.file != nil && !seen[decl.file] {
			seen[decl.file] = true
			out = append(out, decl.file)
		}
	}
	slices.SortFunc(out, func(a, b *layout.File) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func (s *SchemaSet) resolveMessage(
	fullName string,
	loc Locator,
) (*layout.Message, *layout.File, error) {
	decl, err := s.lookup(fullName, loc)
	if err != nil {
		return nil, nil, err
	}
	if decl.type_ != declType_MESSAGE {
		return nil, nil, errUnknownType(fullName, loc)
	}
	return decl.value.(*layout.Message), decl.file, nil
}

func (s *SchemaSet) resolveEnum(
	fullName string,
	loc Locator,
) (*layout.Enum, *layout.File, error) {
	decl, err := s.lookup(fullName, loc)
	if err != nil {
		return nil, nil, err
	}
	if decl.type_ != declType_ENUM {
		return nil, nil, errUnknownType(fullName, loc)
	}
	return decl.value.(*layout.Enum), decl.file, nil
}

func (s *SchemaSet) lookup(fullName string, loc Locator) (*mergedDecl, error) {
	if s == nil {
		return nil, errUnknownType(fullName, loc)
	}
	decl, ok := s.decls[fullName]
	if !ok {
		return nil, errUnknownType(fullName, loc)
	}
	if decl.conflict {
		return nil, errConflictingDefinition(fullName, loc)
	}
	return decl, nil
}

func (s *SchemaSet) resolveConst(name string) (int32, bool) {
	if s == nil {
		return 0, false
	}
	decl, ok := s.consts[name]
	if !ok || decl.conflict {
		return 0, false
	}
	return decl.value.(int32), true
}

// enumConstants returns the names under which the values of an enum can be
// used as bounds: scoped like protobuf enum values (the enum's parent scope),
// and qualified by the enum itself.
func enumConstants(enumFullName string, values []layout.EnumValue) map[string]int32 {
	scope := parentScope(enumFullName)
	out := make(map[string]int32, 2*len(values))
	for _, v := range values {
		out[descriptor.JoinName(scope, v.Name)] = v.Number
		out[descriptor.JoinName(enumFullName, v.Name)] = v.Number
	}
	return out
}

func parentScope(fullName string) string {
	if idx := strings.LastIndexByte(fullName, '.'); idx >= 0 {
		return fullName[:idx]
	}
	return ""
}
