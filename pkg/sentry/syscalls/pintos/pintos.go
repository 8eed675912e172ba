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

// Package pintos provides the syscall table for the teaching kernel's user
// programs.
package pintos

import (
	abi "pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/syscalls"
)

// Table is the syscall table. Argument counts are the number of stack words
// read after the syscall number.
var Table = &kernel.SyscallTable{
	Name: kernel.ABIName,
	Table: map[uintptr]kernel.Syscall{
		abi.SYS_HALT:     syscalls.Supported("halt", 0, Halt, "Powers the machine off. Never returns."),
		abi.SYS_EXIT:     syscalls.Supported("exit", 1, Exit, "Terminates the caller with the given status. Never returns."),
		abi.SYS_EXEC:     syscalls.Supported("exec", 1, Exec, "Starts a child process from a command line. Returns its pid or -1."),
		abi.SYS_WAIT:     syscalls.Supported("wait", 1, Wait, "Waits for a child to exit and returns its status, or -1 if pid is not an unwaited child."),
		abi.SYS_CREATE:   syscalls.Supported("create", 2, Create, "Creates a file with an initial size. Returns true or false."),
		abi.SYS_REMOVE:   syscalls.Supported("remove", 1, Remove, "Removes a file. Open descriptors stay usable. Returns true or false."),
		abi.SYS_OPEN:     syscalls.Supported("open", 1, Open, "Opens a file. Returns a new descriptor >= 2, or -1."),
		abi.SYS_FILESIZE: syscalls.Supported("filesize", 1, Filesize, "Returns the size of an open file, or -1."),
		abi.SYS_READ:     syscalls.Supported("read", 3, Read, "Reads from the console (fd 0) one byte at a time, or from a file. Returns the byte count or -1."),
		abi.SYS_WRITE:    syscalls.Supported("write", 3, Write, "Writes to the console (fd 1) or a file. Returns the byte count or -1."),
		abi.SYS_SEEK:     syscalls.Supported("seek", 2, Seek, "Sets the position of an open file. Unknown descriptors are ignored."),
		abi.SYS_TELL:     syscalls.Supported("tell", 1, Tell, "Returns the position of an open file, or -1."),
		abi.SYS_CLOSE:    syscalls.Supported("close", 1, Close, "Closes a descriptor. Unknown descriptors are ignored."),
	},
}

func init() {
	kernel.RegisterSyscallTable(Table)
}
