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

package options

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Rule applies a directive set to every element whose full name matches
// Pattern, a shell glob in which '*' also matches dots.
type Rule struct {
	Pattern    string
	Directives Directives
	// Source identifies where the rule was declared, for diagnostics.
	Source string
}

// Match reports whether the rule applies to an element.
func (r *Rule) Match(fullName string) bool {
	// '/' is the only separator path.Match knows, so '*' spans dots.
	ok, err := path.Match(r.Pattern, fullName)
	return err == nil && ok
}

// RuleSet is an ordered list of rules; later rules override earlier ones.
// A RuleSet is immutable once built and may be shared between concurrent
// compilations.
type RuleSet struct {
	rules []Rule
}

func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Concat returns a rule set holding the rules of every set, in order.
func Concat(sets ...*RuleSet) *RuleSet {
	out := &RuleSet{}
	for _, set := range sets {
		if set != nil {
			out.rules = append(out.rules, set.rules...)
		}
	}
	return out
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

func (rs *RuleSet) Rule(idx int) *Rule {
	return &rs.rules[idx]
}

type ruleRecord struct {
	Match          string  `yaml:"match" toml:"match"`
	MaxSize        *int64  `yaml:"max_size" toml:"max_size"`
	MaxSizeConst   *string `yaml:"max_size_const" toml:"max_size_const"`
	MaxLength      *int64  `yaml:"max_length" toml:"max_length"`
	MaxCount       *int64  `yaml:"max_count" toml:"max_count"`
	MaxCountConst  *string `yaml:"max_count_const" toml:"max_count_const"`
	Type           *string `yaml:"type" toml:"type"`
	LongNames      *bool   `yaml:"long_names" toml:"long_names"`
	SkipMessage    *bool   `yaml:"skip_message" toml:"skip_message"`
	IntSize        *string `yaml:"int_size" toml:"int_size"`
	NoUnions       *bool   `yaml:"no_unions" toml:"no_unions"`
	MsgID          *uint32 `yaml:"msgid" toml:"msgid"`
	PackedEnum     *bool   `yaml:"packed_enum" toml:"packed_enum"`
	AnonymousOneof *bool   `yaml:"anonymous_oneof" toml:"anonymous_oneof"`
	EnumToString   *bool   `yaml:"enum_to_string" toml:"enum_to_string"`
	FixedLength    *bool   `yaml:"fixed_length" toml:"fixed_length"`
	FixedCount     *bool   `yaml:"fixed_count" toml:"fixed_count"`
	Container      *string `yaml:"container" toml:"container"`
	KeyField       *string `yaml:"key_field" toml:"key_field"`
	IsKey          *bool   `yaml:"is_key" toml:"is_key"`
	DynamicText    *bool   `yaml:"dynamic_text" toml:"dynamic_text"`
	DefaultBounds  *bool   `yaml:"default_bounds" toml:"default_bounds"`
}

type ruleFile struct {
	Rules []ruleRecord `yaml:"rules" toml:"rules"`
}

func (rec *ruleRecord) directives() (Directives, error) {
	d := Directives{
		MaxSize:        rec.MaxSize,
		MaxSizeConst:   rec.MaxSizeConst,
		MaxLength:      rec.MaxLength,
		MaxCount:       rec.MaxCount,
		MaxCountConst:  rec.MaxCountConst,
		LongNames:      rec.LongNames,
		SkipMessage:    rec.SkipMessage,
		NoUnions:       rec.NoUnions,
		MsgID:          rec.MsgID,
		PackedEnum:     rec.PackedEnum,
		AnonymousOneof: rec.AnonymousOneof,
		EnumToString:   rec.EnumToString,
		FixedLength:    rec.FixedLength,
		FixedCount:     rec.FixedCount,
		KeyField:       rec.KeyField,
		IsKey:          rec.IsKey,
		DynamicText:    rec.DynamicText,
		DefaultBounds:  rec.DefaultBounds,
	}
	if rec.Type != nil {
		alloc, err := ParseAllocation(*rec.Type)
		if err != nil {
			return Directives{}, err
		}
		d.Type = &alloc
	}
	if rec.IntSize != nil {
		size, err := ParseIntSize(*rec.IntSize)
		if err != nil {
			return Directives{}, err
		}
		d.IntSize = &size
	}
	if rec.Container != nil {
		container, err := ParseContainer(*rec.Container)
		if err != nil {
			return Directives{}, err
		}
		d.Container = &container
	}
	return d, nil
}

func (f *ruleFile) ruleSet(source string) (*RuleSet, error) {
	rs := &RuleSet{}
	for ii, rec := range f.Rules {
		loc := source + "#" + strconv.Itoa(ii+1)
		if rec.Match == "" {
			return nil, errors.Newf("%s: rule has no match pattern", loc)
		}
		if _, err := path.Match(rec.Match, ""); err != nil {
			return nil, errors.Wrapf(err, "%s: invalid pattern %q", loc, rec.Match)
		}
		d, err := rec.directives()
		if err != nil {
			return nil, errors.Wrapf(err, "%s", loc)
		}
		rs.rules = append(rs.rules, Rule{
			Pattern:    rec.Match,
			Directives: d,
			Source:     loc,
		})
	}
	return rs, nil
}

// ParseYAML reads a rule file in YAML form. Unknown keys are rejected.
func ParseYAML(data []byte, source string) (*RuleSet, error) {
	var f ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "%s", source)
	}
	return f.ruleSet(source)
}

// ParseTOML reads a rule file in TOML form, using [[rules]] tables.
// Unknown keys are rejected.
func ParseTOML(data []byte, source string) (*RuleSet, error) {
	var f ruleFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", source)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("%s: unknown key %q", source, undecoded[0].String())
	}
	return f.ruleSet(source)
}

// LoadFile reads a rule file, choosing the format by extension: ".toml"
// is TOML, anything else YAML.
func LoadFile(filename string) (*RuleSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "reading rule file")
	}
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		return ParseTOML(data, filename)
	}
	return ParseYAML(data, filename)
}

// LoadFiles loads every rule file and concatenates them in order.
func LoadFiles(filenames []string) (*RuleSet, error) {
	var sets []*RuleSet
	for _, filename := range filenames {
		rs, err := LoadFile(filename)
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return Concat(sets...), nil
}
