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
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/test/testutil"
)

func newFlags(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return testFlags
}

func TestDefault(t *testing.T) {
	c, err := NewFromFlags(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}

	// All defaults doesn't require setting flags.
	if flags := c.ToFlags(); len(flags) > 0 {
		t.Errorf("default flags not set correctly for: %s", flags)
	}
	if c.Filesystem != FilesystemMem {
		t.Errorf("Filesystem=%v, want: %v", c.Filesystem, FilesystemMem)
	}
	if got := c.UnknownSyscallPolicy(); got != kernel.UnknownSyscallKill {
		t.Errorf("UnknownSyscallPolicy()=%v, want: %v", got, kernel.UnknownSyscallKill)
	}
}

func TestFromFlags(t *testing.T) {
	c, err := NewFromFlags(newFlags(t,
		"--debug",
		"--fs=host",
		"--host-root=/tmp/disk",
		"--max-open-files=123",
		"--unknown-syscall=ignore",
		"--shutdown-timeout=2s",
	))
	if err != nil {
		t.Fatal(err)
	}
	if want := true; c.Debug != want {
		t.Errorf("Debug=%v, want: %v", c.Debug, want)
	}
	if want := FilesystemHost; c.Filesystem != want {
		t.Errorf("Filesystem=%v, want: %v", c.Filesystem, want)
	}
	if want := "/tmp/disk"; c.HostRoot != want {
		t.Errorf("HostRoot=%v, want: %v", c.HostRoot, want)
	}
	if want := 123; c.MaxOpenFiles != want {
		t.Errorf("MaxOpenFiles=%v, want: %v", c.MaxOpenFiles, want)
	}
	if want := kernel.UnknownSyscallIgnore; c.UnknownSyscallPolicy() != want {
		t.Errorf("UnknownSyscallPolicy()=%v, want: %v", c.UnknownSyscallPolicy(), want)
	}
	if want := 2 * time.Second; c.ShutdownTimeout != want {
		t.Errorf("ShutdownTimeout=%v, want: %v", c.ShutdownTimeout, want)
	}
}

func TestToFlagsFromFlags(t *testing.T) {
	c, err := NewFromFlags(newFlags(t,
		"--debug=true",
		"--strace-log-size=1024", // Matches default value.
		"--fs=host",
		"--host-root=/disk",
		"--stack-pages=4",
	))
	if err != nil {
		t.Fatal(err)
	}
	got := c.ToFlags()
	want := []string{"--debug=true", "--fs=host", "--host-root=/disk", "--stack-pages=4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFile(t *testing.T) {
	path, cleanup, err := testutil.WriteTmpFile("config", `
debug = true
fs = "host"
host-root = "/from/file"
max-open-files = 8
shutdown-timeout = "3s"
put = ["a.txt", "/tmp/b:c"]
`)
	if err != nil {
		t.Fatalf("WriteTmpFile(): %v", err)
	}
	defer cleanup()

	// Flags given explicitly win over the file.
	c, err := NewFromFlags(newFlags(t, "--config="+path, "--max-open-files=2"))
	if err != nil {
		t.Fatal(err)
	}
	if !c.Debug {
		t.Errorf("Debug=false, want: true")
	}
	if want := FilesystemHost; c.Filesystem != want {
		t.Errorf("Filesystem=%v, want: %v", c.Filesystem, want)
	}
	if want := "/from/file"; c.HostRoot != want {
		t.Errorf("HostRoot=%v, want: %v", c.HostRoot, want)
	}
	if want := 2; c.MaxOpenFiles != want {
		t.Errorf("MaxOpenFiles=%v, want: %v", c.MaxOpenFiles, want)
	}
	if want := 3 * time.Second; c.ShutdownTimeout != want {
		t.Errorf("ShutdownTimeout=%v, want: %v", c.ShutdownTimeout, want)
	}
	if diff := cmp.Diff([]string{"a.txt", "/tmp/b:c"}, c.Put); diff != "" {
		t.Errorf("Put mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		want     string
	}{
		{name: "unknown key", contents: "colour = true\n", want: "colour"},
		{name: "bad fs", contents: "fs = \"nfs\"\n", want: "nfs"},
		{name: "syntax", contents: "debug = \n", want: "error reading config file"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path, cleanup, err := testutil.WriteTmpFile("config", tc.contents)
			if err != nil {
				t.Fatalf("WriteTmpFile(): %v", err)
			}
			defer cleanup()
			_, err = NewFromFlags(newFlags(t, "--config="+path))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("NewFromFlags(): got %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{name: "log format", args: []string{"--log-format=xml"}},
		{name: "host without root", args: []string{"--fs=host"}},
		{name: "negative disk", args: []string{"--disk-size=-1"}},
		{name: "negative open files", args: []string{"--max-open-files=-1"}},
		{name: "no stack", args: []string{"--stack-pages=0"}},
		{name: "no data", args: []string{"--data-pages=0"}},
		{name: "policy", args: []string{"--unknown-syscall=panic"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFromFlags(newFlags(t, tc.args...)); err == nil {
				t.Errorf("NewFromFlags(%v) succeeded, want error", tc.args)
			}
		})
	}
}

func TestInvalidFlagValue(t *testing.T) {
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	if err := testFlags.Set("fs", "nfs"); err == nil {
		t.Errorf("Set(fs, nfs) succeeded, want error")
	}
}

func TestCopy(t *testing.T) {
	c, err := NewFromFlags(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	c.Put = []string{"a"}
	cp := c.Copy()
	if diff := cmp.Diff(c, cp); diff != "" {
		t.Errorf("Copy() mismatch (-want +got):\n%s", diff)
	}
	cp.Put[0] = "b"
	cp.Debug = true
	if c.Put[0] != "a" || c.Debug {
		t.Errorf("modifying the copy changed the original: %+v", c)
	}
}

func TestParsePut(t *testing.T) {
	for _, tc := range []struct {
		in        string
		wantHost  string
		wantGuest string
		wantErr   bool
	}{
		{in: "/tmp/dir/file.txt", wantHost: "/tmp/dir/file.txt", wantGuest: "file.txt"},
		{in: "/tmp/x:y", wantHost: "/tmp/x", wantGuest: "y"},
		{in: "file", wantHost: "file", wantGuest: "file"},
		{in: "/tmp/dir/", wantErr: true},
		{in: ":guest", wantErr: true},
		{in: "host:", wantErr: true},
	} {
		host, guest, err := ParsePut(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePut(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil || host != tc.wantHost || guest != tc.wantGuest {
			t.Errorf("ParsePut(%q) = %q, %q, %v; want %q, %q, nil", tc.in, host, guest, err, tc.wantHost, tc.wantGuest)
		}
	}
}
