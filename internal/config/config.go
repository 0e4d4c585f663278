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

// Package config loads the settings shared by the fixpb commands from
// fixpb.toml, FIXPB_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.fixpb.dev/fixpb/compiler"
	"go.fixpb.dev/fixpb/generator"
	"go.fixpb.dev/fixpb/internal/logging"
	"go.fixpb.dev/fixpb/options"
)

const (
	EnvPrefix = "FIXPB"
	FileName  = "fixpb"
)

type Config struct {
	OptionsFiles     []string `mapstructure:"options_files"`
	OutputDir        string   `mapstructure:"output_dir"`
	DefaultBounds    bool     `mapstructure:"default_bounds"`
	DefaultMaxCount  int64    `mapstructure:"default_max_count"`
	DefaultMaxSize   int64    `mapstructure:"default_max_size"`
	Jobs             int      `mapstructure:"jobs"`
	PluginPath       []string `mapstructure:"plugin_path"`
	MinProtocVersion string   `mapstructure:"min_protoc_version"`
	Log              Log      `mapstructure:"log"`

	// Path of the configuration file that was read, if any.
	Source string `mapstructure:"-"`
}

type Log struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

func (l Log) Logging() logging.Config {
	return logging.Config{JSON: l.JSON, Level: l.Level}
}

type LoadOptions struct {
	// Flags registered with [RegisterFlags]. Only flags the user set
	// override file and environment values.
	Flags *pflag.FlagSet

	// ConfigFile is an explicit path; reading it must succeed.
	ConfigFile string

	// SearchDir is where fixpb.toml is looked up when ConfigFile is empty.
	// A missing file there is not an error.
	SearchDir string
}

var flagKeys = map[string]string{
	"options":            "options_files",
	"output-dir":         "output_dir",
	"default-bounds":     "default_bounds",
	"max-count":          "default_max_count",
	"max-size":           "default_max_size",
	"jobs":               "jobs",
	"plugin-path":        "plugin_path",
	"min-protoc-version": "min_protoc_version",
	"log-json":           "log.json",
	"log-level":          "log.level",
}

// RegisterFlags adds the flags understood by [Load] to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringSlice("options", nil, "Layout option files (YAML or TOML)")
	fs.StringP("output-dir", "o", "", "Directory for generated files")
	fs.Bool("default-bounds", false, "Give unbounded fields the default capacities")
	fs.Int64("max-count", compiler.DefaultMaxCount, "Default element count for --default-bounds")
	fs.Int64("max-size", compiler.DefaultMaxSize, "Default byte size for --default-bounds")
	fs.Int("jobs", 0, "Files compiled in parallel (0 = GOMAXPROCS)")
	fs.StringSlice("plugin-path", nil, "Directories searched for WASM renderers")
	fs.String("min-protoc-version", generator.DefaultMinProtocVersion, "Oldest accepted protoc version")
	fs.Bool("log-json", false, "Log JSON instead of console text")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("options_files", []string{})
	v.SetDefault("output_dir", ".")
	v.SetDefault("default_bounds", false)
	v.SetDefault("default_max_count", compiler.DefaultMaxCount)
	v.SetDefault("default_max_size", compiler.DefaultMaxSize)
	v.SetDefault("jobs", 0)
	v.SetDefault("plugin_path", []string{})
	v.SetDefault("min_protoc_version", generator.DefaultMinProtocVersion)
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", opts.ConfigFile)
		}
	} else if opts.SearchDir != "" {
		v.SetConfigName(FileName)
		v.SetConfigType("toml")
		v.AddConfigPath(opts.SearchDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read fixpb.toml")
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errors.Wrapf(err, "bind flag --%s", name)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Source = v.ConfigFileUsed()
	if cfg.Jobs < 0 {
		return nil, errors.WithHint(
			errors.Newf("jobs must not be negative, got %d", cfg.Jobs),
			"use 0 to run one job per CPU",
		)
	}
	return &cfg, nil
}

// GeneratorOptions reads the option files and converts the loaded
// settings into generator options.
func (c *Config) GeneratorOptions() (generator.Options, error) {
	opts := generator.Options{
		DefaultMaxCount: c.DefaultMaxCount,
		DefaultMaxSize:  c.DefaultMaxSize,
		Jobs:            c.Jobs,
	}
	if len(c.OptionsFiles) > 0 {
		rules, err := options.LoadFiles(c.OptionsFiles)
		if err != nil {
			return opts, err
		}
		opts.Rules = rules
	}
	if c.DefaultBounds {
		opts.Base.DefaultBounds = options.Ptr(true)
	}
	return opts, nil
}

// PluginParameter renders the settings that protoc-gen-fixpb understands
// as a protoc --fixpb_opt value.
func (c *Config) PluginParameter() string {
	var parts []string
	for _, f := range c.OptionsFiles {
		parts = append(parts, "options="+f)
	}
	if c.DefaultBounds {
		parts = append(parts, "default_bounds")
	}
	if c.DefaultMaxCount != compiler.DefaultMaxCount {
		parts = append(parts, "max_count="+strconv.FormatInt(c.DefaultMaxCount, 10))
	}
	if c.DefaultMaxSize != compiler.DefaultMaxSize {
		parts = append(parts, "max_size="+strconv.FormatInt(c.DefaultMaxSize, 10))
	}
	if c.Jobs > 0 {
		parts = append(parts, "jobs="+strconv.Itoa(c.Jobs))
	}
	if c.MinProtocVersion != generator.DefaultMinProtocVersion {
		parts = append(parts, "min_protoc_version="+c.MinProtocVersion)
	}
	return strings.Join(parts, ",")
}
