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

// Package pintos contains the user-visible system call ABI: syscall numbers,
// reserved descriptors and the user address space layout.
package pintos

import "fmt"

// Syscall numbers. The values are fixed by the user-space runtime and must
// not change.
const (
	SYS_HALT     = 0
	SYS_EXIT     = 1
	SYS_EXEC     = 2
	SYS_WAIT     = 3
	SYS_CREATE   = 4
	SYS_REMOVE   = 5
	SYS_OPEN     = 6
	SYS_FILESIZE = 7
	SYS_READ     = 8
	SYS_WRITE    = 9
	SYS_SEEK     = 10
	SYS_TELL     = 11
	SYS_CLOSE    = 12
)

// Reserved descriptors. They name the console and never appear in a
// process's descriptor table.
const (
	STDIN_FILENO  = 0
	STDOUT_FILENO = 1

	// FirstFD is the first descriptor handed out by open.
	FirstFD = 2
)

// Address space layout.
const (
	// PHYS_BASE is the first kernel virtual address. User addresses lie in
	// [0, PHYS_BASE).
	PHYS_BASE = 0xc0000000

	// CodeBase is where the loader places a program's text, one read-only
	// page.
	CodeBase = 0x08048000

	// DataBase is where the loader places a program's writable data, just
	// above its text.
	DataBase = CodeBase + 0x1000

	// WordSize is the size of one stack slot.
	WordSize = 4

	// NAME_MAX is the longest file name the filesystems accept.
	NAME_MAX = 14
)

// Boolean return values, as seen by user code.
const (
	False = 0
	True  = 1
)

// Error is the return value user code sees for a failed call.
const Error = -1

var sysnoNames = map[uintptr]string{
	SYS_HALT:     "halt",
	SYS_EXIT:     "exit",
	SYS_EXEC:     "exec",
	SYS_WAIT:     "wait",
	SYS_CREATE:   "create",
	SYS_REMOVE:   "remove",
	SYS_OPEN:     "open",
	SYS_FILESIZE: "filesize",
	SYS_READ:     "read",
	SYS_WRITE:    "write",
	SYS_SEEK:     "seek",
	SYS_TELL:     "tell",
	SYS_CLOSE:    "close",
}

// SyscallName returns the name of syscall sysno, or "sys_<n>" if sysno is
// not part of the ABI.
func SyscallName(sysno uintptr) string {
	if name, ok := sysnoNames[sysno]; ok {
		return name
	}
	return fmt.Sprintf("sys_%d", sysno)
}

// SyscallNumber is the inverse of SyscallName.
func SyscallNumber(name string) (uintptr, bool) {
	for sysno, n := range sysnoNames {
		if n == name {
			return sysno, true
		}
	}
	return 0, false
}
