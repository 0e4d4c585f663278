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

package options_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"go.fixpb.dev/fixpb/descriptor"
	"go.fixpb.dev/fixpb/options"
)

func TestInlineRoundTrip(t *testing.T) {
	t.Parallel()

	in := options.Directives{
		MaxSize:      options.Ptr[int64](40),
		MaxCount:     options.Ptr[int64](-1),
		Type:         options.Ptr(options.AllocStatic),
		IntSize:      options.Ptr(options.IntSize16),
		Container:    options.Ptr(options.ContainerOrderedMap),
		KeyField:     options.Ptr("id"),
		FixedCount:   options.Ptr(true),
		LongNames:    options.Ptr(false),
		MsgID:        options.Ptr[uint32](77),
		MaxSizeConst: options.Ptr("demo.Limits.NAME"),
	}

	// Unrelated options fields around the annotation are skipped.
	var raw []byte
	raw = protowire.AppendTag(raw, 1, protowire.BytesType)
	raw = protowire.AppendString(raw, "go_package")
	raw = options.AppendInline(raw, in)
	raw = protowire.AppendTag(raw, 999, protowire.Fixed32Type)
	raw = protowire.AppendFixed32(raw, 5)

	out, err := options.DecodeInline(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestInlineLaterOccurrenceWins(t *testing.T) {
	t.Parallel()

	raw := options.AppendInline(nil, options.Directives{
		MaxSize:  options.Ptr[int64](8),
		MaxCount: options.Ptr[int64](3),
	})
	raw = options.AppendInline(raw, options.Directives{MaxSize: options.Ptr[int64](16)})

	out, err := options.DecodeInline(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(16), *out.MaxSize)
	assert.Equal(t, int64(3), *out.MaxCount)
}

func TestInlineMalformed(t *testing.T) {
	t.Parallel()

	raw := protowire.AppendTag(nil, options.ExtensionNumber, protowire.BytesType)
	raw = protowire.AppendVarint(raw, 20)
	raw = append(raw, 0x08)

	_, err := options.DecodeInline(raw)
	assert.Error(t, err)

	bad := options.AppendInline(nil, options.Directives{
		Type: options.Ptr(options.Allocation(2)),
	})
	_, err = options.DecodeInline(bad)
	assert.ErrorContains(t, err, "invalid allocation type")
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	rs, err := options.ParseYAML([]byte(`
rules:
  - match: "demo.Bag.scores"
    max_count: 5
    fixed_count: true
  - match: "demo.*.name"
    max_size: 16
    type: static
  - match: "demo.Bag.items"
    container: hash_map
    key_field: id
    int_size: IS_16
`), "rules.yaml")
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	scores := rs.Rule(0)
	assert.Equal(t, "rules.yaml#1", scores.Source)
	assert.Equal(t, int64(5), *scores.Directives.MaxCount)
	assert.True(t, options.Bool(scores.Directives.FixedCount))

	name := rs.Rule(1)
	assert.True(t, name.Match("demo.Bag.name"))
	assert.True(t, name.Match("demo.Bag.Item.name"))
	assert.False(t, name.Match("other.Bag.name"))
	assert.Equal(t, options.AllocStatic, name.Directives.Allocation())

	items := rs.Rule(2)
	assert.Equal(t, options.ContainerHashMap, items.Directives.ContainerKind())
	assert.Equal(t, "id", items.Directives.KeyFieldName())
	assert.Equal(t, options.IntSize16, items.Directives.IntSizeBits())
}

func TestParseYAMLRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := options.ParseYAML([]byte("rules:\n  - match: x\n    max_sise: 3\n"), "bad.yaml")
	assert.Error(t, err)

	_, err = options.ParseYAML([]byte("rules:\n  - max_size: 3\n"), "nomatch.yaml")
	assert.ErrorContains(t, err, "no match pattern")
}

func TestParseTOML(t *testing.T) {
	t.Parallel()

	rs, err := options.ParseTOML([]byte(`
[[rules]]
match = "demo.Bag.scores"
max_count = 5

[[rules]]
match = "demo.Bag.text"
dynamic_text = true
max_length = 12
`), "rules.toml")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, int64(12), *rs.Rule(1).Directives.MaxLength)

	_, err = options.ParseTOML([]byte("[[rules]]\nmatch = \"x\"\nbogus = 1\n"), "bad.toml")
	assert.ErrorContains(t, err, "unknown key")
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "fixpb.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[[rules]]\nmatch = \"*\"\nmax_count = 4\n"), 0o644))
	yamlPath := filepath.Join(dir, "more.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("rules:\n  - match: a.B\n    max_size: 9\n"), 0o644))

	rs, err := options.LoadFiles([]string{tomlPath, yamlPath})
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "a.B", rs.Rule(1).Pattern)

	_, err = options.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestResolverPrecedence(t *testing.T) {
	t.Parallel()

	file := &descriptor.File{
		Name:    "demo.proto",
		Package: "demo",
		Options: options.AppendInline(nil, options.Directives{MaxCount: options.Ptr[int64](2)}),
		Messages: []*descriptor.Message{{
			Name:     "Bag",
			FullName: "demo.Bag",
			Options: options.AppendInline(nil, options.Directives{
				MaxSize: options.Ptr[int64](10),
				MsgID:   options.Ptr[uint32](5),
			}),
			Fields: []*descriptor.Field{
				{
					Name:     "scores",
					FullName: "demo.Bag.scores",
					Tag:      1,
					Label:    descriptor.LabelRepeated,
					Kind:     descriptor.KindInt32,
					Options:  options.AppendInline(nil, options.Directives{MaxCount: options.Ptr[int64](9)}),
				},
				{
					Name:     "name",
					FullName: "demo.Bag.name",
					Tag:      2,
					Label:    descriptor.LabelOptional,
					Kind:     descriptor.KindString,
				},
			},
		}},
	}

	rules := options.NewRuleSet(
		options.Rule{Pattern: "demo.Bag.*", Directives: options.Directives{MaxCount: options.Ptr[int64](7)}},
		options.Rule{Pattern: "demo.Bag.name", Directives: options.Directives{MaxSize: options.Ptr[int64](20)}},
		options.Rule{Pattern: "nothing.*", Directives: options.Directives{MaxSize: options.Ptr[int64](1)}},
	)
	base := options.Directives{DefaultBounds: options.Ptr(true)}
	resolver := options.NewResolver(rules, base)
	eff, err := resolver.Resolve(file)
	require.NoError(t, err)

	assert.True(t, options.Bool(eff.File().DefaultBounds))
	assert.Equal(t, int64(2), *eff.File().MaxCount)

	bag := eff.Of("demo.Bag")
	assert.Equal(t, uint32(5), *bag.MsgID)
	assert.Equal(t, int64(10), *bag.MaxSize)

	// inline beats rule beats inherited
	scores := eff.Of("demo.Bag.scores")
	assert.Equal(t, int64(9), *scores.MaxCount)
	assert.Equal(t, int64(10), *scores.MaxSize)
	assert.Nil(t, scores.MsgID)
	assert.True(t, options.Bool(scores.DefaultBounds))

	name := eff.Of("demo.Bag.name")
	assert.Equal(t, int64(7), *name.MaxCount)
	assert.Equal(t, int64(20), *name.MaxSize)

	assert.Equal(t, []bool{true, true, false}, resolver.Matched())
}

func TestResolverDirectiveError(t *testing.T) {
	t.Parallel()

	file := &descriptor.File{
		Name:    "bad.proto",
		Package: "bad",
		Enums: []*descriptor.Enum{{
			Name:     "E",
			FullName: "bad.E",
			Values:   []descriptor.EnumValue{{Name: "A"}},
			Options:  []byte{0xff},
		}},
	}
	_, err := options.NewResolver(nil, options.Directives{}).Resolve(file)
	var dirErr *options.DirectiveError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, "bad.E", dirErr.Element)
}
