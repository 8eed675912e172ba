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

package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
	abi "pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/test/testutil"
	"pintos.dev/pintos/runpintos/config"
)

func newConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	conf, err := config.NewFromFlags(f)
	if err != nil {
		t.Fatalf("NewFromFlags(%v): %v", args, err)
	}
	return conf
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunMachine(t *testing.T) {
	for _, tc := range []struct {
		name       string
		args       []string
		cmdline    string
		stdin      string
		wantStatus int32
		wantHalted bool
		wantOut    string
	}{
		{
			name:    "echo",
			cmdline: "echo hello world",
			wantOut: "hello world\necho: exit(0)\n",
		},
		{
			name:       "exit status",
			cmdline:    "run exit 7",
			wantStatus: 7,
			wantOut:    "exit: exit(7)\nrun: exit(7)\n",
		},
		{
			name:       "halt",
			cmdline:    "halt",
			wantStatus: abi.Error,
			wantHalted: true,
		},
		{
			name:       "killed",
			cmdline:    "sc-unknown",
			wantStatus: abi.Error,
			wantOut:    "sc-unknown: exit(-1)\n",
		},
		{
			name:    "unknown syscall ignored",
			args:    []string{"--unknown-syscall=ignore"},
			cmdline: "sc-unknown",
			wantOut: "(sc-unknown) survived\nsc-unknown: exit(0)\n",
		},
		{
			name:    "max open files",
			args:    []string{"--max-open-files=3"},
			cmdline: "open-many 10",
			wantOut: "(open-many) opened 3\n(open-many) reopen is new: true\nopen-many: exit(0)\n",
		},
		{
			name:    "shell",
			cmdline: "shell",
			stdin:   "mkfile f 3\ncat f\n",
			wantOut: "--mkfile: exit(0)\n\"mkfile f 3\": exit code 0\n" +
				"--\x00\x00\x00cat: exit(0)\n\"cat f\": exit code 0\n" +
				"--\nshell: exit(0)\n",
		},
		{
			name:       "strace",
			args:       []string{"--strace"},
			cmdline:    "exit 3",
			wantStatus: 3,
			wantOut:    "exit: exit(3)\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conf := newConfig(t, tc.args...)
			var out bytes.Buffer
			res, err := runMachine(context.Background(), conf, tc.cmdline, strings.NewReader(tc.stdin), &out)
			if err != nil {
				t.Fatalf("runMachine(%q): %v", tc.cmdline, err)
			}
			if res.status != tc.wantStatus || res.halted != tc.wantHalted {
				t.Errorf("runMachine(%q): got status %d, halted %t; want %d, %t", tc.cmdline, res.status, res.halted, tc.wantStatus, tc.wantHalted)
			}
			if diff := cmp.Diff(tc.wantOut, out.String()); diff != "" {
				t.Errorf("runMachine(%q): output mismatch (-want +got):\n%s", tc.cmdline, diff)
			}
		})
	}
}

func TestRunMachineMissingProgram(t *testing.T) {
	conf := newConfig(t)
	if _, err := runMachine(context.Background(), conf, "no-such-program", strings.NewReader(""), io.Discard); err == nil {
		t.Errorf("runMachine() succeeded, want error")
	}
}

func TestRunMachinePut(t *testing.T) {
	var paths []string
	for i, text := range []string{"first file\n", "second file\n"} {
		path, cleanup, err := testutil.WriteTmpFile("put", text)
		if err != nil {
			t.Fatalf("WriteTmpFile(): %v", err)
		}
		defer cleanup()
		paths = append(paths, fmt.Sprintf("%s:f%d", path, i))
	}
	metrics := filepath.Join(t.TempDir(), "metrics.txt")

	conf := newConfig(t, "--metrics-file="+metrics)
	conf.Put = paths
	var out bytes.Buffer
	res, err := runMachine(context.Background(), conf, "cat f0 f1", strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("runMachine(): %v", err)
	}
	if res.status != 0 {
		t.Errorf("runMachine(): got status %d, want 0", res.status)
	}
	if want := "first file\nsecond file\ncat: exit(0)\n"; out.String() != want {
		t.Errorf("runMachine(): got output %q, want %q", out.String(), want)
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", metrics, err)
	}
	for _, want := range []string{
		"pintos_processes_created_total 1",
		`pintos_syscalls_total{name="open"} 2`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file is missing %q:\n%s", want, data)
		}
	}
}

func TestRunMachinePutMissing(t *testing.T) {
	conf := newConfig(t)
	conf.Put = []string{filepath.Join(t.TempDir(), "missing")}
	if _, err := runMachine(context.Background(), conf, "echo", strings.NewReader(""), io.Discard); err == nil {
		t.Errorf("runMachine() succeeded, want error")
	}
}

// TestRunMachineHostfs checks that files on a host filesystem outlive the
// machine that created them.
func TestRunMachineHostfs(t *testing.T) {
	root := t.TempDir()
	conf := newConfig(t, "--fs=host", "--host-root="+root)

	for _, tc := range []struct {
		cmdline string
		want    string
	}{
		{cmdline: "mkfile kept 0", want: "mkfile: exit(0)\n"},
		{cmdline: "run rm kept", want: "rm: exit(0)\nrun: exit(0)\n"},
		{cmdline: "rm kept", want: "kept: remove failed\nrm: exit(1)\n"},
	} {
		var out bytes.Buffer
		if _, err := runMachine(context.Background(), conf, tc.cmdline, strings.NewReader(""), &out); err != nil {
			t.Fatalf("runMachine(%q): %v", tc.cmdline, err)
		}
		if out.String() != tc.want {
			t.Errorf("runMachine(%q): got output %q, want %q", tc.cmdline, out.String(), tc.want)
		}
	}
}

func TestRunMachineCanceled(t *testing.T) {
	conf := newConfig(t, "--shutdown-timeout=100ms")
	stdin, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	done := make(chan struct{})
	var (
		res machineResult
		err error
	)
	go func() {
		defer close(done)
		res, err = runMachine(ctx, conf, "shell", stdin, &out)
	}()

	// Wait for the prompt, which means the shell is blocked on input.
	if err := testutil.Poll(func() error {
		if !strings.Contains(out.String(), "--") {
			return fmt.Errorf("no prompt yet")
		}
		return nil
	}, 10*time.Second); err != nil {
		t.Fatalf("shell did not start: %v", err)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("runMachine did not return after cancel")
	}
	if err != nil {
		t.Fatalf("runMachine(): %v", err)
	}
	if !res.halted {
		t.Errorf("runMachine(): got halted false, want true")
	}
}

func TestRawConsoleRequiresTerminal(t *testing.T) {
	conf := newConfig(t, "--raw-console")
	var out bytes.Buffer
	if _, err := runMachine(context.Background(), conf, "echo ok", strings.NewReader(""), &out); err != nil {
		t.Fatalf("runMachine(): %v", err)
	}
	if want := "ok\necho: exit(0)\n"; out.String() != want {
		t.Errorf("runMachine(): got output %q, want %q", out.String(), want)
	}
}

func TestRawConsole(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty.Open: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	conf := newConfig(t, "--raw-console")
	if _, err := runMachine(context.Background(), conf, "echo a b", tty, tty); err != nil {
		t.Fatalf("runMachine(): %v", err)
	}
	// Raw mode leaves output processing on: the terminal, not the console,
	// turns each newline into CRLF.
	want := "a b\r\necho: exit(0)\r\n"
	got := make([]byte, len(want))
	if _, err := io.ReadFull(ptmx, got); err != nil {
		t.Fatalf("reading the terminal: %v", err)
	}
	if string(got) != want {
		t.Errorf("terminal output: got %q, want %q", got, want)
	}
}

func TestSyscallDocs(t *testing.T) {
	docs, err := syscallDocs()
	if err != nil {
		t.Fatalf("syscallDocs(): %v", err)
	}
	if len(docs) != 13 {
		t.Fatalf("syscallDocs(): got %d entries, want 13", len(docs))
	}
	for i, d := range docs {
		if d.Num != uintptr(i) || d.Name != abi.SyscallName(uintptr(i)) {
			t.Errorf("entry %d: got %d %q, want %d %q", i, d.Num, d.Name, i, abi.SyscallName(uintptr(i)))
		}
	}
	if docs[abi.SYS_READ].Args != 3 {
		t.Errorf("read: got %d args, want 3", docs[abi.SYS_READ].Args)
	}

	for _, tc := range []struct {
		format string
		decode func(t *testing.T, data []byte) []SyscallDoc
	}{
		{
			format: "json",
			decode: func(t *testing.T, data []byte) []SyscallDoc {
				var got []SyscallDoc
				if err := json.Unmarshal(data, &got); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				return got
			},
		},
		{
			format: "yaml",
			decode: func(t *testing.T, data []byte) []SyscallDoc {
				var got []SyscallDoc
				if err := yaml.Unmarshal(data, &got); err != nil {
					t.Fatalf("yaml.Unmarshal(): %v", err)
				}
				return got
			},
		},
	} {
		t.Run(tc.format, func(t *testing.T) {
			var b bytes.Buffer
			if err := syscallsOutputMap[tc.format](&b, docs); err != nil {
				t.Fatalf("output: %v", err)
			}
			if diff := cmp.Diff(docs, tc.decode(t, b.Bytes())); diff != "" {
				t.Errorf("decoded output mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("csv", func(t *testing.T) {
		var b bytes.Buffer
		if err := outputSyscallsCSV(&b, docs); err != nil {
			t.Fatalf("outputSyscallsCSV(): %v", err)
		}
		rows, err := csv.NewReader(&b).ReadAll()
		if err != nil {
			t.Fatalf("ReadAll(): %v", err)
		}
		if len(rows) != len(docs)+1 {
			t.Fatalf("got %d rows, want %d", len(rows), len(docs)+1)
		}
		if diff := cmp.Diff([]string{"1", "exit", "1", docs[1].Note}, rows[2]); diff != "" {
			t.Errorf("exit row mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("table", func(t *testing.T) {
		var b bytes.Buffer
		if err := outputSyscallsTable(&b, docs); err != nil {
			t.Fatalf("outputSyscallsTable(): %v", err)
		}
		lines := strings.Split(strings.TrimSpace(b.String()), "\n")
		if len(lines) != len(docs)+1 {
			t.Fatalf("got %d lines, want %d", len(lines), len(docs)+1)
		}
		if fields := strings.Fields(lines[0]); !cmp.Equal(fields, []string{"NUM", "NAME", "ARGS", "NOTE"}) {
			t.Errorf("header: got %v", fields)
		}
		if fields := strings.Fields(lines[13]); fields[0] != "12" || fields[1] != "close" {
			t.Errorf("last line: got %v", fields)
		}
	})
}

func TestPrograms(t *testing.T) {
	docs, err := programDocs()
	if err != nil {
		t.Fatalf("programDocs(): %v", err)
	}
	found := false
	for _, d := range docs {
		if d.Name == "echo" {
			found = true
		}
	}
	if !found {
		t.Errorf("programDocs() does not list echo")
	}

	var b bytes.Buffer
	if err := outputPrograms(&b, "yaml", docs); err != nil {
		t.Fatalf("outputPrograms(yaml): %v", err)
	}
	var got []ProgramDoc
	if err := yaml.Unmarshal(b.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal(): %v", err)
	}
	if diff := cmp.Diff(docs, got); diff != "" {
		t.Errorf("decoded output mismatch (-want +got):\n%s", diff)
	}
	if err := outputPrograms(io.Discard, "xml", docs); err == nil {
		t.Errorf("outputPrograms(xml) succeeded, want error")
	}
}

func TestStringFlags(t *testing.T) {
	var s stringFlags
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Var(&s, "put", "")
	if err := f.Parse([]string{"--put=a", "--put=b:c"}); err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b:c"}, s.Get()); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if err := s.Set(""); err == nil {
		t.Errorf("Set(\"\") succeeded, want error")
	}
}
