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

package arch

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
)

// flatIO is a usermem.IO over one contiguous region starting at base.
type flatIO struct {
	base hostarch.Addr
	mem  []byte
}

func (f *flatIO) slice(addr hostarch.Addr, n int) ([]byte, error) {
	if addr < f.base || int(addr-f.base)+n > len(f.mem) {
		return nil, kerr.EFAULT
	}
	off := int(addr - f.base)
	return f.mem[off : off+n], nil
}

func (f *flatIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	b, err := f.slice(addr, len(src))
	if err != nil {
		return 0, err
	}
	return copy(b, src), nil
}

func (f *flatIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	b, err := f.slice(addr, len(dst))
	if err != nil {
		return 0, err
	}
	return copy(dst, b), nil
}

func (f *flatIO) word(addr hostarch.Addr) uint32 {
	b, err := f.slice(addr, 4)
	if err != nil {
		return 0xdeadbeef
	}
	return binary.LittleEndian.Uint32(b)
}

func (f *flatIO) str(addr hostarch.Addr) string {
	b, err := f.slice(addr, int(f.base)+len(f.mem)-int(addr))
	if err != nil {
		return ""
	}
	s, _, _ := strings.Cut(string(b), "\x00")
	return s
}

func TestStackLoad(t *testing.T) {
	io := &flatIO{base: 0x1000, mem: make([]byte, 0x100)}
	s := &Stack{IO: io, Bottom: 0x1100, Limit: 0x1000}

	l, err := s.Load([]string{"echo", "x", "yz"})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	want := StackLayout{ArgvStart: 0x10f6, ArgvEnd: 0x1100, Argv: 0x10e4, Argc: 3}
	if diff := cmp.Diff(want, l); diff != "" {
		t.Fatalf("Load() layout mismatch (-want +got):\n%s", diff)
	}
	if s.Bottom != 0x10d8 {
		t.Errorf("Bottom after Load(): got %v, want 0x10d8", s.Bottom)
	}

	// Fake return address, argc, argv.
	if got := io.word(s.Bottom); got != 0 {
		t.Errorf("return address: got %#x, want 0", got)
	}
	if got := io.word(s.Bottom + 4); got != 3 {
		t.Errorf("argc: got %d, want 3", got)
	}
	argv := hostarch.Addr(io.word(s.Bottom + 8))
	if argv != l.Argv {
		t.Errorf("argv: got %v, want %v", argv, l.Argv)
	}
	var args []string
	for i := 0; ; i++ {
		p := io.word(argv + hostarch.Addr(4*i))
		if p == 0 {
			break
		}
		args = append(args, io.str(hostarch.Addr(p)))
	}
	if diff := cmp.Diff([]string{"echo", "x", "yz"}, args); diff != "" {
		t.Errorf("argv strings mismatch (-want +got):\n%s", diff)
	}
	if argv%4 != 0 {
		t.Errorf("argv %v is not word aligned", argv)
	}
}

func TestStackLoadTooBig(t *testing.T) {
	io := &flatIO{base: 0x1000, mem: make([]byte, 0x20)}
	s := &Stack{IO: io, Bottom: 0x1020, Limit: 0x1000}
	if _, err := s.Load([]string{strings.Repeat("a", 0x18)}); !kerr.Equals(kerr.E2BIG, err) {
		t.Fatalf("Load() of oversized argv: got %v, want %v", err, kerr.E2BIG)
	}
}

func TestStackPushWord(t *testing.T) {
	io := &flatIO{base: 0x1000, mem: make([]byte, 8)}
	s := &Stack{IO: io, Bottom: 0x1008, Limit: 0x1000}
	for _, v := range []uint32{1, 2} {
		if err := s.PushWord(v); err != nil {
			t.Fatalf("PushWord(%d): %v", v, err)
		}
	}
	if err := s.PushWord(3); err == nil {
		t.Fatalf("PushWord() past Limit: got nil, want error")
	}
	if got := io.word(0x1000); got != 2 {
		t.Errorf("word at 0x1000: got %d, want 2", got)
	}
	if got := io.word(0x1004); got != 1 {
		t.Errorf("word at 0x1004: got %d, want 1", got)
	}
}
