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

package strace

import (
	abi "pintos.dev/pintos/pkg/abi/pintos"
)

// FormatSpecifier values describe how to format a specific syscall argument.
type FormatSpecifier int

// Valid FormatSpecifiers.
const (
	// Hex is just a hexadecimal number.
	Hex FormatSpecifier = iota

	// Int is a signed 32-bit integer.
	Int

	// FD is a file descriptor.
	FD

	// Size is an unsigned 32-bit length or offset.
	Size

	// Path is a pointer to a NUL-terminated file name.
	Path

	// Cmdline is a pointer to a NUL-terminated command line.
	Cmdline

	// ReadBuffer is a buffer for a read-style call. The syscall return
	// value is used for the length.
	//
	// Formatted after syscall execution.
	ReadBuffer

	// WriteBuffer is a buffer for a write-style call. The following arg is
	// used for the length.
	//
	// Formatted before syscall execution.
	WriteBuffer
)

// SyscallInfo captures the name and printing format of a syscall.
type SyscallInfo struct {
	// name is the name of the syscall.
	name string

	// format contains the format specifiers for each argument.
	//
	// Arguments without a corresponding entry in format will not be
	// printed.
	format []FormatSpecifier
}

// makeSyscallInfo returns a SyscallInfo for a syscall.
func makeSyscallInfo(name string, f ...FormatSpecifier) SyscallInfo {
	return SyscallInfo{name: name, format: f}
}

// SyscallMap maps syscalls into names and printing formats.
type SyscallMap map[uintptr]SyscallInfo

// pintosSyscalls is the format table for every syscall.
var pintosSyscalls = SyscallMap{
	abi.SYS_HALT:     makeSyscallInfo("halt"),
	abi.SYS_EXIT:     makeSyscallInfo("exit", Int),
	abi.SYS_EXEC:     makeSyscallInfo("exec", Cmdline),
	abi.SYS_WAIT:     makeSyscallInfo("wait", Int),
	abi.SYS_CREATE:   makeSyscallInfo("create", Path, Size),
	abi.SYS_REMOVE:   makeSyscallInfo("remove", Path),
	abi.SYS_OPEN:     makeSyscallInfo("open", Path),
	abi.SYS_FILESIZE: makeSyscallInfo("filesize", FD),
	abi.SYS_READ:     makeSyscallInfo("read", FD, ReadBuffer, Size),
	abi.SYS_WRITE:    makeSyscallInfo("write", FD, WriteBuffer, Size),
	abi.SYS_SEEK:     makeSyscallInfo("seek", FD, Size),
	abi.SYS_TELL:     makeSyscallInfo("tell", FD),
	abi.SYS_CLOSE:    makeSyscallInfo("close", FD),
}

// Lookup returns the SyscallMap for the kernel's ABI. The returned map must
// not be changed.
func Lookup() SyscallMap {
	return pintosSyscalls
}
