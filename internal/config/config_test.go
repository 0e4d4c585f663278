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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.fixpb.dev/fixpb/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.LoadOptions{SearchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, int64(32), cfg.DefaultMaxCount)
	assert.Equal(t, int64(128), cfg.DefaultMaxSize)
	assert.Equal(t, 0, cfg.Jobs)
	assert.Equal(t, "3.12.0", cfg.MinProtocVersion)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.DefaultBounds)
	assert.Empty(t, cfg.Source)
	assert.Empty(t, cfg.PluginParameter())
}

func TestSearchDirFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "fixpb.toml", `
options_files = ["a.yaml", "b.toml"]
default_bounds = true
default_max_count = 8
jobs = 2

[log]
json = true
level = "debug"
`)
	cfg, err := config.Load(config.LoadOptions{SearchDir: dir})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, []string{"a.yaml", "b.toml"}, cfg.OptionsFiles)
	assert.True(t, cfg.DefaultBounds)
	assert.Equal(t, int64(8), cfg.DefaultMaxCount)
	assert.Equal(t, 2, cfg.Jobs)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "options=a.yaml,options=b.toml,default_bounds,max_count=8,jobs=2", cfg.PluginParameter())
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "custom.toml", "jobs = 2\noutput_dir = \"gen\"\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--jobs=6", "--max-size=40"}))

	cfg, err := config.Load(config.LoadOptions{Flags: fs, ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Jobs)
	assert.Equal(t, int64(40), cfg.DefaultMaxSize)
	assert.Equal(t, "gen", cfg.OutputDir)
	assert.Equal(t, int64(32), cfg.DefaultMaxCount)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("FIXPB_JOBS", "3")
	t.Setenv("FIXPB_LOG_LEVEL", "warn")

	cfg, err := config.Load(config.LoadOptions{SearchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := config.Load(config.LoadOptions{ConfigFile: filepath.Join(dir, "missing.toml")})
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.toml", "jobs = [\n")
	_, err = config.Load(config.LoadOptions{ConfigFile: bad})
	assert.Error(t, err)

	negative := writeFile(t, dir, "neg.toml", "jobs = -1\n")
	_, err = config.Load(config.LoadOptions{ConfigFile: negative})
	assert.ErrorContains(t, err, "jobs must not be negative")
}

func TestGeneratorOptions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rules := writeFile(t, dir, "rules.yaml", "rules:\n  - match: demo.Bag.scores\n    max_count: 5\n")
	cfg, err := config.Load(config.LoadOptions{SearchDir: dir})
	require.NoError(t, err)
	cfg.OptionsFiles = []string{rules}
	cfg.DefaultBounds = true

	opts, err := cfg.GeneratorOptions()
	require.NoError(t, err)
	require.Equal(t, 1, opts.Rules.Len())
	assert.Equal(t, "demo.Bag.scores", opts.Rules.Rule(0).Pattern)
	require.NotNil(t, opts.Base.DefaultBounds)
	assert.True(t, *opts.Base.DefaultBounds)
	assert.Equal(t, int64(32), opts.DefaultMaxCount)

	cfg.OptionsFiles = []string{filepath.Join(dir, "nope.yaml")}
	_, err = cfg.GeneratorOptions()
	assert.Error(t, err)
}
