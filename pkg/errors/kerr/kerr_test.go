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

package kerr

import (
	"fmt"
	"testing"
)

func TestEquals(t *testing.T) {
	wrapped := fmt.Errorf("copying argument 1: %w", EFAULT)
	for _, tc := range []struct {
		err   error
		fault bool
	}{
		{EFAULT, true},
		{wrapped, true},
		{EBADF, false},
		{nil, false},
		{fmt.Errorf("bad address"), false},
	} {
		if got := IsFault(tc.err); got != tc.fault {
			t.Errorf("IsFault(%v): got %v, want %v", tc.err, got, tc.fault)
		}
	}
}

func TestToErrno(t *testing.T) {
	if got, want := ToErrno(fmt.Errorf("open: %w", ENOENT)), ENOENT.Errno(); got != want {
		t.Errorf("ToErrno(wrapped ENOENT): got %v, want %v", got, want)
	}
	if got, want := ToErrno(fmt.Errorf("plain")), EIO.Errno(); got != want {
		t.Errorf("ToErrno(plain): got %v, want %v", got, want)
	}
}
