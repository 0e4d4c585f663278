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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.fixpb.dev/fixpb/encoding/layoutjson"
	"go.fixpb.dev/fixpb/internal/logging"
)

const demoSet = "testdata/demo.txtpb"

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(context.Background(), &out, &errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestCompileWritesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, stderr, err := execute(t, "compile", demoSet, "--options=testdata/rules.yaml", "-o", dir)
	require.NoError(t, err, stderr)

	decls, err := os.ReadFile(filepath.Join(dir, "demo.fixpb.go"))
	require.NoError(t, err)
	assert.Contains(t, string(decls), "// Code generated by fixpb. DO NOT EDIT.")
	assert.Contains(t, string(decls), "type Bag struct")
	assert.FileExists(t, filepath.Join(dir, "demo.fixpb_conv.go"))
	assert.Contains(t, stderr, "wrote 2 files")
}

func TestCompileFailureWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, stderr, err := execute(t, "compile", demoSet, "--options=testdata/bad_rules.yaml", "-o", dir)
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, "demo.Bag.owner")
	assert.Contains(t, stderr, "E3001")
	assert.NoFileExists(t, filepath.Join(dir, "demo.fixpb.go"))
}

func TestCheck(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := execute(t, "check", demoSet, "--options=testdata/rules.yaml")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "demo.proto")
	assert.Contains(t, stdout, "ok")

	stdout, stderr, err = execute(t, "check", demoSet, "--options=testdata/bad_rules.yaml")
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, "E3001")
	assert.Contains(t, stdout, "1 errors")
}

func TestCheckWarnsAboutUnmatchedRules(t *testing.T) {
	t.Parallel()

	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - match: other.Thing\n    max_count: 1\n"), 0o644))
	_, stderr, err := execute(t, "check", demoSet, "--options="+rules)
	require.NoError(t, err)
	assert.Contains(t, stderr, "W4000")
}

func TestDump(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := execute(t, "dump", demoSet, "--options=testdata/rules.yaml", "--file=demo.proto")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, `file = "demo.proto"`)
	assert.Contains(t, stdout, "message demo.Bag {")

	stdout, stderr, err = execute(t, "dump", demoSet, "--options=testdata/rules.yaml", "--file=demo.proto", "-f", "json")
	require.NoError(t, err, stderr)
	file, err := layoutjson.DecodeFile([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "demo", file.Package)
}

func TestDumpErrors(t *testing.T) {
	t.Parallel()

	_, stderr, err := execute(t, "dump", demoSet)
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, "set --file=NAME")

	_, stderr, err = execute(t, "dump", demoSet, "--file=demo.proto", "--format=yaml")
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, `unsupported output format "yaml"`)

	_, stderr, err = execute(t, "dump", "testdata/missing.txtpb", "--file=demo.proto")
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, "reading descriptor set")
}

func TestCodegenNeedsPlugin(t *testing.T) {
	t.Parallel()

	_, stderr, err := execute(t, "codegen", demoSet, "--plugin-path", t.TempDir())
	assert.Equal(t, exitCode(1), err)
	assert.Contains(t, stderr, "fixpb-codegen-go.wasm not found")
}

func TestMissingArguments(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "compile")
	require.Error(t, err)
	_, isExit := err.(exitCode)
	assert.False(t, isExit)
}

func TestWatchFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var changes atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, []string{path}, 10*time.Millisecond, logging.Nop(), func() {
			changes.Add(1)
		})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for changes.Load() == 0 && time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o644))
		time.Sleep(50 * time.Millisecond)
	}
	assert.NotZero(t, changes.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
