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

package userlib_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/sentry/loader"
	"pintos.dev/pintos/pkg/test/testutil"
	"pintos.dev/pintos/pkg/userlib"
)

// runMain runs main as a program named "t" with the given command line.
func runMain(t *testing.T, cmdline string, main userlib.Main) testutil.Result {
	t.Helper()
	m, err := testutil.NewMachine(testutil.MachineOpts{})
	if err != nil {
		t.Fatalf("NewMachine(): %v", err)
	}
	if err := m.Loader.Register(loader.Program{Name: "t", Entry: userlib.Start(main)}); err != nil {
		t.Fatalf("Register(): %v", err)
	}
	res, err := m.Run(cmdline)
	if err != nil {
		t.Fatalf("Run(%q): %v", cmdline, err)
	}
	return res
}

func TestArgs(t *testing.T) {
	var got []string
	res := runMain(t, "t  one two   three", func(e *userlib.Env) int32 {
		got = e.Args
		return int32(len(e.Args))
	})
	if diff := cmp.Diff([]string{"t", "one", "two", "three"}, got); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
	if res.Status != 4 {
		t.Errorf("status: got %d, want 4", res.Status)
	}
}

func TestAlloc(t *testing.T) {
	runMain(t, "t", func(e *userlib.Env) int32 {
		a := e.Alloc(3)
		if a != pintos.DataBase {
			t.Errorf("first Alloc: got %#x, want %#x", a, pintos.DataBase)
		}
		mark := e.Mark()
		b := e.PutString("hi")
		if b != a+pintos.WordSize {
			t.Errorf("PutString: got %#x, want word aligned %#x", b, a+pintos.WordSize)
		}
		if got := string(e.Peek(b, 3)); got != "hi\x00" {
			t.Errorf("Peek: got %q, want %q", got, "hi\x00")
		}
		e.Release(mark)
		if got := e.Alloc(1); got != b {
			t.Errorf("Alloc after Release: got %#x, want %#x", got, b)
		}
		e.PokeWord(a, 0xdeadbeef)
		if got := e.PeekWord(a); got != 0xdeadbeef {
			t.Errorf("PeekWord: got %#x, want 0xdeadbeef", got)
		}
		return 0
	})
}

func TestMsgAndFail(t *testing.T) {
	res := runMain(t, "t", func(e *userlib.Env) int32 {
		e.Msg("value %d", 5)
		e.Fail("broken")
		t.Errorf("Fail returned")
		return 0
	})
	if want := "(t) value 5\n(t) FAIL: broken\nt: exit(1)\n"; res.Output != want {
		t.Errorf("output: got %q, want %q", res.Output, want)
	}
	if res.Status != 1 {
		t.Errorf("status: got %d, want 1", res.Status)
	}
}

func TestFaultKills(t *testing.T) {
	res := runMain(t, "t", func(e *userlib.Env) int32 {
		e.Peek(pintos.PHYS_BASE, 1)
		t.Errorf("Peek of kernel memory returned")
		return 0
	})
	if res.Status != pintos.Error || res.Output != "t: exit(-1)\n" {
		t.Errorf("got status %d, output %q; want -1, %q", res.Status, res.Output, "t: exit(-1)\n")
	}
}
