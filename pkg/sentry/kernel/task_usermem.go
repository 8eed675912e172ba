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

package kernel

import (
	"pintos.dev/pintos/pkg/hostarch"
)

// CheckIORange returns EFAULT unless every byte of [addr, addr+length) is
// present in t's address space with at access. It reads no memory.
func (t *Task) CheckIORange(addr hostarch.Addr, length uint64, at hostarch.AccessType) error {
	return t.mm.CheckIORange(addr, length, at)
}

// CopyIn copies len(dst) bytes from t's memory at addr into dst.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	return t.mm.CopyIn(addr, dst)
}

// CopyOut copies src into t's memory at addr.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	return t.mm.CopyOut(addr, src)
}

// CopyInString copies a NUL-terminated string of at most maxlen bytes,
// including the NUL, from t's memory at addr. Every page the string touches
// is validated before it is read.
//
// Preconditions: The caller must be running on the task goroutine.
func (t *Task) CopyInString(addr hostarch.Addr, maxlen int) (string, error) {
	return t.mm.CopyInString(addr, maxlen)
}
