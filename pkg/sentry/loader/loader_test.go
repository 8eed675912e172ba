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

package loader

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/mm"
	"pintos.dev/pintos/pkg/usermem"
)

func nopEntry(*kernel.Task, hostarch.Addr) {}

func newTestLoader(t *testing.T, names ...string) *Loader {
	t.Helper()
	l := New(Options{})
	for _, name := range names {
		if err := l.Register(Program{Name: name, Description: "test", Entry: nopEntry}); err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
	}
	return l
}

// readArgs decodes argc and argv from the initial stack pointer.
func readArgs(t *testing.T, m *mm.MemoryManager, sp hostarch.Addr) []string {
	t.Helper()
	argc, err := usermem.CopyUint32In(m, sp+4)
	if err != nil {
		t.Fatalf("reading argc: %v", err)
	}
	argv, err := usermem.CopyUint32In(m, sp+8)
	if err != nil {
		t.Fatalf("reading argv: %v", err)
	}
	var args []string
	for i := uint32(0); i <= argc; i++ {
		p, err := usermem.CopyUint32In(m, hostarch.Addr(argv+4*i))
		if err != nil {
			t.Fatalf("reading argv[%d]: %v", i, err)
		}
		if i == argc {
			if p != 0 {
				t.Errorf("argv[argc]: got %#x, want 0", p)
			}
			break
		}
		s, err := m.CopyInString(hostarch.Addr(p), hostarch.PageSize)
		if err != nil {
			t.Fatalf("reading argv[%d] string: %v", i, err)
		}
		args = append(args, s)
	}
	return args
}

func TestLoad(t *testing.T) {
	l := newTestLoader(t, "echo")
	img, err := l.Load("  echo x   yz ")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	defer img.MemoryManager.Release()

	if img.Name != "echo" {
		t.Errorf("Name: got %q, want echo", img.Name)
	}
	if img.Stack%pintos.WordSize != 0 {
		t.Errorf("Stack %v is not word aligned", img.Stack)
	}
	if diff := cmp.Diff([]string{"echo", "x", "yz"}, readArgs(t, img.MemoryManager, img.Stack)); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}

	want := []mm.Mapping{
		{AddrRange: hostarch.AddrRange{Start: pintos.CodeBase, End: pintos.DataBase}, Perms: hostarch.Read},
		{AddrRange: hostarch.AddrRange{Start: pintos.DataBase, End: pintos.DataBase + DefaultDataPages*hostarch.PageSize}, Perms: hostarch.ReadWrite},
		{AddrRange: hostarch.AddrRange{Start: pintos.PHYS_BASE - DefaultStackPages*hostarch.PageSize, End: pintos.PHYS_BASE}, Perms: hostarch.ReadWrite},
	}
	if diff := cmp.Diff(want, img.MemoryManager.Mappings()); diff != "" {
		t.Errorf("Mappings() mismatch (-want +got):\n%s", diff)
	}

	if err := img.MemoryManager.CheckIORange(pintos.CodeBase, 1, hostarch.Write); !kerr.IsFault(err) {
		t.Errorf("text page is writable: got %v, want EFAULT", err)
	}
}

func TestLoadNameTruncated(t *testing.T) {
	long := "a-very-long-program-name"
	l := newTestLoader(t, long)
	img, err := l.Load(long + " arg")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	defer img.MemoryManager.Release()
	if got, want := img.Name, long[:MaxNameLen]; got != want {
		t.Errorf("Name: got %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{long, "arg"}, readArgs(t, img.MemoryManager, img.Stack)); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	l := newTestLoader(t, "echo")
	for _, tc := range []struct {
		name    string
		cmdline string
		want    error
	}{
		{name: "empty", cmdline: "", want: kerr.ENOENT},
		{name: "blank", cmdline: " \t ", want: kerr.ENOENT},
		{name: "unknown", cmdline: "no-such-program", want: kerr.ENOENT},
		{name: "cmdline too long", cmdline: "echo " + strings.Repeat("x", MaxCmdlineLen), want: kerr.E2BIG},
		{name: "too many args", cmdline: "echo" + strings.Repeat(" a", 1000), want: kerr.E2BIG},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img, err := l.Load(tc.cmdline)
			if err != tc.want {
				t.Fatalf("Load(): got %v, %v, want error %v", img, err, tc.want)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	l := newTestLoader(t, "b", "a")
	if err := l.Register(Program{Name: "a", Entry: nopEntry}); err == nil {
		t.Errorf("Register() of a duplicate: got nil, want error")
	}
	for _, p := range []Program{{Name: "", Entry: nopEntry}, {Name: "has space", Entry: nopEntry}, {Name: "noentry"}} {
		if err := l.Register(p); err == nil {
			t.Errorf("Register(%q): got nil, want error", p.Name)
		}
	}
	var names []string
	for _, p := range l.Programs() {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("Programs() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := l.Lookup("a"); !ok {
		t.Errorf("Lookup(a): not found")
	}
}

func TestStackPages(t *testing.T) {
	l := New(Options{StackPages: 4})
	l.MustRegister(Program{Name: "echo", Entry: nopEntry})
	img, err := l.Load("echo" + strings.Repeat(" a", 1000))
	if err != nil {
		t.Fatalf("Load() with a larger stack: %v", err)
	}
	img.MemoryManager.Release()
}
