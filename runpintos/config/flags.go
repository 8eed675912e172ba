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

package config

import (
	"flag"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"pintos.dev/pintos/pkg/sentry/fsimpl/memfs"
	"pintos.dev/pintos/pkg/sentry/loader"
)

// configFlag names the flag that points at a TOML config file.
const configFlag = "config"

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.String(configFlag, "", "path to a TOML file with settings. Flags set on the command line take precedence.")

	// Debugging flags.
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log-format", "text", "log format: text (default), json, or json-k8s.")
	flagSet.String("debug-log", "", "additional location for logs. If it ends with '/', log files are created inside the directory with default names. The following variables are available: %TIMESTAMP%, %COMMAND%.")
	flagSet.Bool("alsologtostderr", false, "send log messages to stderr.")

	// Debugging flags: strace related.
	flagSet.Bool("strace", false, "enable strace.")
	flagSet.String("strace-syscalls", "", "comma-separated list of syscalls to trace. If --strace is true and this list is empty, then all syscalls will be traced.")
	flagSet.Uint("strace-log-size", 1024, "default size (in bytes) to log data argument blobs.")

	// Flags that control the filesystem.
	flagSet.Var(filesystemTypePtr(FilesystemMem), "fs", "specifies which filesystem to use: mem (default), host.")
	flagSet.String("host-root", "", "host directory that holds the guest files with --fs=host.")
	flagSet.Int64("disk-size", memfs.DefaultCapacity, "capacity in bytes of the in-memory filesystem.")
	flagSet.Int("max-files", 0, "number of files the in-memory filesystem can hold. 0 means unlimited.")
	flagSet.Bool("grow-files", false, "allow writes past the end of a file to extend it.")

	// Flags that control processes.
	flagSet.Int("max-open-files", 0, "open file descriptors allowed per process. 0 means unlimited.")
	flagSet.Int("max-processes", 0, "live processes allowed at once. 0 means unlimited.")
	flagSet.Int("stack-pages", loader.DefaultStackPages, "size of each user stack, in pages.")
	flagSet.Int("data-pages", loader.DefaultDataPages, "size of each user data region, in pages.")
	flagSet.String("unknown-syscall", "kill", "what happens to a process that invokes an unknown syscall: kill (default), ignore.")
	flagSet.Duration("shutdown-timeout", 5*time.Second, "how long power off waits for processes to stop.")

	// Output flags.
	flagSet.String("metrics-file", "", "file where metrics are written in Prometheus text format at power off.")
	flagSet.Bool("raw-console", false, "put the host terminal into raw mode while the machine runs.")
}

// NewFromFlags creates a new Config. Defaults come from the flag
// definitions, then the file named by --config, if any, then every flag set
// explicitly on flagSet.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}

	// Defaults.
	if err := conf.setFlags(flagSet, func(fn func(*flag.Flag)) { flagSet.VisitAll(fn) }); err != nil {
		return nil, err
	}

	if path := flagSet.Lookup(configFlag).Value.String(); path != "" {
		if err := conf.LoadFile(path); err != nil {
			return nil, err
		}
	}

	// Explicit flags.
	if err := conf.setFlags(flagSet, flagSet.Visit); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// setFlags copies the value of every flag that visit reports into the field
// tagged with its name.
func (c *Config) setFlags(flagSet *flag.FlagSet, visit func(func(*flag.Flag))) error {
	fields := make(map[string]int)
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		if name, ok := st.Field(i).Tag.Lookup("flag"); ok {
			if flagSet.Lookup(name) == nil {
				panic(fmt.Sprintf("Flag %q not found", name))
			}
			fields[name] = i
		}
	}
	var err error
	visit(func(fl *flag.Flag) {
		i, ok := fields[fl.Name]
		if !ok || err != nil {
			return
		}
		getter, ok := fl.Value.(flag.Getter)
		if !ok {
			err = fmt.Errorf("flag %q cannot be read", fl.Name)
			return
		}
		obj.Field(i).Set(reflect.ValueOf(getter.Get()))
	})
	return err
}

// ToFlags returns a slice of flags that correspond to the given Config.
// Settings that match the flag defaults are left out.
func (c *Config) ToFlags() []string {
	var rv []string

	// Construct a temporary set for default plumbing.
	flagSet := flag.NewFlagSet("tmp", flag.ContinueOnError)
	RegisterFlags(flagSet)

	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		name, ok := f.Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		val := getVal(obj.Field(i))

		flag := flagSet.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		if val == flag.DefValue {
			continue
		}
		rv = append(rv, fmt.Sprintf("--%s=%s", flag.Name, val))
	}
	return rv
}

func getVal(field reflect.Value) string {
	if str, ok := field.Addr().Interface().(fmt.Stringer); ok {
		return str.String()
	}
	switch field.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(field.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(field.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(field.Uint(), 10)
	case reflect.String:
		return field.String()
	default:
		panic("unknown type " + field.Kind().String())
	}
}
