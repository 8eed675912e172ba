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

package syscalls

import (
	"testing"

	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

func TestSupported(t *testing.T) {
	called := false
	fn := func(*kernel.Task, arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
		called = true
		return 7, nil, nil
	}
	s := Supported("tell", 1, fn, "note")
	if s.Name != "tell" || s.ArgCount != 1 || s.Note != "note" {
		t.Errorf("Supported(): got %+v", s)
	}
	if rval, _, err := s.Fn(nil, arch.SyscallArguments{}); rval != 7 || err != nil || !called {
		t.Errorf("Fn(): got (%d, %v), called %t; want (7, nil), called true", rval, err, called)
	}
}

func TestError(t *testing.T) {
	s := Error("mmap", 2, kerr.ENOSYS, "not implemented")
	if s.ArgCount != 2 {
		t.Errorf("ArgCount: got %d, want 2", s.ArgCount)
	}
	if _, ctrl, err := s.Fn(nil, arch.SyscallArguments{}); ctrl != nil || err != kerr.ENOSYS {
		t.Errorf("Fn(): got (%v, %v), want (nil, %v)", ctrl, err, kerr.ENOSYS)
	}
}
