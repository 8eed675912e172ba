// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides basic infrastructure to set configuration settings
// for runpintos. Each setting that can be changed from the command line must
// be tagged with the name of its flag. Settings may also be read from a TOML
// file named by --config; flags set explicitly on the command line take
// precedence over the file.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mohae/deepcopy"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/strace"
)

// Config holds configuration that is not part of the command line of the
// initial process.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name and the TOML key.
//  3. Register a new flag in flags.go, with name and description.
//  4. Add any necessary validation into validate().
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// LogFormat is the log format: text, json or json-k8s.
	LogFormat string `flag:"log-format" toml:"log-format"`

	// DebugLog is the path to write debug logs to. It may contain
	// %TIMESTAMP% and %COMMAND%, and a trailing '/' names a directory.
	DebugLog string `flag:"debug-log" toml:"debug-log"`

	// AlsoLogToStderr allows log messages to also go to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr" toml:"alsologtostderr"`

	// Strace indicates that strace should be enabled.
	Strace bool `flag:"strace" toml:"strace"`

	// StraceSyscalls is the set of syscalls to trace, separated by commas.
	// Empty means all.
	StraceSyscalls string `flag:"strace-syscalls" toml:"strace-syscalls"`

	// StraceLogSize is the maximum number of bytes of a buffer argument
	// that are logged.
	StraceLogSize uint `flag:"strace-log-size" toml:"strace-log-size"`

	// Filesystem is the kind of filesystem the guest sees.
	Filesystem FilesystemType `flag:"fs" toml:"fs"`

	// HostRoot is the host directory that backs the host filesystem.
	HostRoot string `flag:"host-root" toml:"host-root"`

	// DiskSize is the capacity in bytes of the in-memory filesystem. Zero
	// means memfs.DefaultCapacity.
	DiskSize int64 `flag:"disk-size" toml:"disk-size"`

	// MaxFiles is the largest number of files the in-memory filesystem
	// holds. Zero means unlimited.
	MaxFiles int `flag:"max-files" toml:"max-files"`

	// GrowFiles allows writes to extend files.
	GrowFiles bool `flag:"grow-files" toml:"grow-files"`

	// MaxOpenFiles limits the open descriptors of each process. Zero means
	// no limit.
	MaxOpenFiles int `flag:"max-open-files" toml:"max-open-files"`

	// MaxProcesses limits the number of live processes. Zero means no
	// limit.
	MaxProcesses int `flag:"max-processes" toml:"max-processes"`

	// StackPages is the size of each user stack in pages.
	StackPages int `flag:"stack-pages" toml:"stack-pages"`

	// DataPages is the size of each user data region in pages.
	DataPages int `flag:"data-pages" toml:"data-pages"`

	// UnknownSyscall is what happens to a process that invokes a syscall
	// number with no handler: kill or ignore.
	UnknownSyscall string `flag:"unknown-syscall" toml:"unknown-syscall"`

	// MetricsFile, if set, receives the metrics in Prometheus text format
	// when the machine powers off.
	MetricsFile string `flag:"metrics-file" toml:"metrics-file"`

	// RawConsole puts the host terminal into raw mode, so that console
	// input reaches the guest one key at a time.
	RawConsole bool `flag:"raw-console" toml:"raw-console"`

	// ShutdownTimeout bounds how long power off waits for processes to
	// stop.
	ShutdownTimeout time.Duration `flag:"shutdown-timeout" toml:"shutdown-timeout"`

	// Put lists host files to copy into the guest filesystem before the
	// initial process starts, as "host" or "host:guest". It can only be
	// set from the file; the run command adds its own --put flags.
	Put []string `toml:"put"`
}

// Copy returns a deep copy of c.
func (c *Config) Copy() *Config {
	return deepcopy.Copy(c).(*Config)
}

// UnknownSyscallPolicy returns the parsed unknown-syscall setting. The config
// must have been validated.
func (c *Config) UnknownSyscallPolicy() kernel.UnknownSyscallPolicy {
	p, err := kernel.ParseUnknownSyscallPolicy(c.UnknownSyscall)
	if err != nil {
		panic(fmt.Sprintf("unvalidated config: %v", err))
	}
	return p
}

// StraceOptions returns the tracer options the config describes, logging to
// logger.
func (c *Config) StraceOptions(logger log.Logger) strace.Options {
	opts := strace.Options{
		LogMaximumSize: c.StraceLogSize,
		Logger:         logger,
	}
	if c.StraceSyscalls != "" {
		opts.Syscalls = strings.Split(c.StraceSyscalls, ",")
	}
	return opts
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		log.Infof("  %s: %v", st.Field(i).Name, obj.Field(i).Interface())
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json", "json-k8s":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.Filesystem == FilesystemHost && c.HostRoot == "" {
		return fmt.Errorf("--host-root is required with --fs=%s", FilesystemHost)
	}
	if c.DiskSize < 0 {
		return fmt.Errorf("--disk-size must be positive, got %d", c.DiskSize)
	}
	for name, v := range map[string]int{
		"max-files":      c.MaxFiles,
		"max-open-files": c.MaxOpenFiles,
		"max-processes":  c.MaxProcesses,
	} {
		if v < 0 {
			return fmt.Errorf("--%s must be positive, got %d", name, v)
		}
	}
	if c.StackPages < 1 {
		return fmt.Errorf("--stack-pages must be at least 1, got %d", c.StackPages)
	}
	if c.DataPages < 1 {
		return fmt.Errorf("--data-pages must be at least 1, got %d", c.DataPages)
	}
	if _, err := kernel.ParseUnknownSyscallPolicy(c.UnknownSyscall); err != nil {
		return err
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("--shutdown-timeout must be positive, got %v", c.ShutdownTimeout)
	}
	for _, p := range c.Put {
		if _, _, err := ParsePut(p); err != nil {
			return err
		}
	}
	return nil
}

// ParsePut splits a "host[:guest]" file mapping. The guest name defaults to
// the base name of the host path.
func ParsePut(s string) (host, guest string, err error) {
	host, guest, ok := strings.Cut(s, ":")
	if !ok {
		guest = host[strings.LastIndex(host, "/")+1:]
	}
	if host == "" || guest == "" {
		return "", "", fmt.Errorf("invalid file mapping %q, must be 'host' or 'host:guest'", s)
	}
	return host, guest, nil
}

// LoadFile reads settings from the TOML file at path into c. Keys the file
// sets override the current values; unknown keys are an error.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("error reading config file %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in config file %q: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// FilesystemType tells which filesystem the guest sees.
type FilesystemType int

const (
	// FilesystemMem is an in-memory filesystem that is discarded at power
	// off.
	FilesystemMem FilesystemType = iota

	// FilesystemHost stores each guest file as a file in a host directory.
	FilesystemHost
)

func filesystemTypePtr(v FilesystemType) *FilesystemType {
	return &v
}

// Set implements flag.Value.
func (f *FilesystemType) Set(v string) error {
	switch v {
	case "mem":
		*f = FilesystemMem
	case "host":
		*f = FilesystemHost
	default:
		return fmt.Errorf("invalid filesystem type %q", v)
	}
	return nil
}

// Get implements flag.Getter.
func (f *FilesystemType) Get() any {
	return *f
}

// String implements flag.Value.
func (f FilesystemType) String() string {
	switch f {
	case FilesystemMem:
		return "mem"
	case FilesystemHost:
		return "host"
	}
	panic(fmt.Sprintf("Invalid filesystem type %d", f))
}

// UnmarshalText implements encoding.TextUnmarshaler, for config files.
func (f *FilesystemType) UnmarshalText(b []byte) error {
	return f.Set(string(b))
}

// MarshalText implements encoding.TextMarshaler.
func (f FilesystemType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
