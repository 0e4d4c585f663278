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

package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/pluginpb"

	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/options"
)

// DefaultMinProtocVersion is the oldest protoc that supports proto3
// optional fields.
const DefaultMinProtocVersion = "3.12.0"

// PluginParams are the options passed to the protoc plugin, as in
// --fixpb_opt=options=rules.yaml,default_bounds,jobs=4.
type PluginParams struct {
	OptionsFiles     []string
	DefaultBounds    bool
	MaxCount         int64
	MaxSize          int64
	Jobs             int
	MinProtocVersion string
}

func ParseParameter(param string) (PluginParams, error) {
	params := PluginParams{MinProtocVersion: DefaultMinProtocVersion}
	if param == "" {
		return params, nil
	}
	for _, item := range strings.Split(param, ",") {
		key, value, hasValue := strings.Cut(strings.TrimSpace(item), "=")
		var err error
		switch key {
		case "options", "options_file":
			if value == "" {
				return params, errors.Newf("parameter %q needs a file name", key)
			}
			params.OptionsFiles = append(params.OptionsFiles, value)
		case "default_bounds":
			params.DefaultBounds = true
			if hasValue {
				params.DefaultBounds, err = strconv.ParseBool(value)
			}
		case "max_count", "default_max_count":
			params.MaxCount, err = strconv.ParseInt(value, 10, 64)
		case "max_size", "default_max_size":
			params.MaxSize, err = strconv.ParseInt(value, 10, 64)
		case "jobs":
			params.Jobs, err = strconv.Atoi(value)
		case "min_protoc_version":
			params.MinProtocVersion = value
		case "":
			continue
		default:
			return params, errors.WithHint(
				errors.Newf("unknown parameter %q", key),
				"known parameters: options, default_bounds, max_count, max_size, jobs, min_protoc_version",
			)
		}
		if err != nil {
			return params, errors.Wrapf(err, "parameter %q", key)
		}
	}
	return params, nil
}

// CheckCompilerVersion fails if protoc reported a version older than min.
// Requests without a version pass.
func CheckCompilerVersion(v *pluginpb.Version, min string) error {
	if v == nil || min == "" {
		return nil
	}
	version, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", v.GetMajor(), v.GetMinor(), v.GetPatch()))
	if err != nil {
		return errors.Wrap(err, "protoc version")
	}
	constraint, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return errors.Wrapf(err, "invalid minimum protoc version %q", min)
	}
	if !constraint.Check(version) {
		return errors.Newf("protoc %s is too old, %s or later is required", version, min)
	}
	return nil
}

// RunPlugin answers a protoc code generation request. opts supplies the
// renderer, logger and any rules not named in the request parameter.
func RunPlugin(
	ctx context.Context,
	req *pluginpb.CodeGeneratorRequest,
	opts Options,
) *pluginpb.CodeGeneratorResponse {
	resp := &pluginpb.CodeGeneratorResponse{
		SupportedFeatures: proto.Uint64(uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)),
	}
	fail := func(err error) *pluginpb.CodeGeneratorResponse {
		resp.Error = proto.String(err.Error())
		return resp
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	params, err := ParseParameter(req.GetParameter())
	if err != nil {
		return fail(err)
	}
	if err := CheckCompilerVersion(req.GetCompilerVersion(), params.MinProtocVersion); err != nil {
		return fail(err)
	}
	if len(params.OptionsFiles) > 0 {
		rules, err := options.LoadFiles(params.OptionsFiles)
		if err != nil {
			return fail(err)
		}
		opts.Rules = options.Concat(opts.Rules, rules)
	}
	if params.DefaultBounds {
		opts.Base.DefaultBounds = options.Ptr(true)
	}
	if params.MaxCount > 0 {
		opts.DefaultMaxCount = params.MaxCount
	}
	if params.MaxSize > 0 {
		opts.DefaultMaxSize = params.MaxSize
	}
	if params.Jobs > 0 {
		opts.Jobs = params.Jobs
	}

	result, err := Run(ctx, req.GetProtoFile(), req.GetFileToGenerate(), opts)
	if err != nil {
		return fail(err)
	}
	for _, warn := range result.Warnings {
		log.Warn(warn.String())
	}
	var problems []string
	for _, f := range result.Files {
		for _, warn := range f.Warnings {
			log.Warnf("%s: %s", warn.Locator(), warn)
		}
		for _, err := range f.Errors {
			problems = append(problems, FormatError(f.Name, err))
		}
		for _, out := range f.Outputs {
			resp.File = append(resp.File, &pluginpb.CodeGeneratorResponse_File{
				Name:    proto.String(out.Path),
				Content: proto.String(string(out.Content)),
			})
		}
	}
	if len(problems) > 0 {
		resp.File = nil
		return fail(errors.New(strings.Join(problems, "\n")))
	}
	return resp
}

// FormatError prefixes a diagnostic with its location, falling back to
// the file name.
func FormatError(file string, err error) string {
	var located *compiler.Error
	if errors.As(err, &located) && located.Locator().File != "" {
		return fmt.Sprintf("%s: %v", located.Locator(), err)
	}
	return fmt.Sprintf("%s: %v", file, err)
}
