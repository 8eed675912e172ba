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

package userlib

import (
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
)

// Halt powers the machine off. It does not return.
func (e *Env) Halt() {
	e.Syscall(pintos.SYS_HALT)
	panic("halt returned")
}

// Exit terminates the process with status. It does not return.
func (e *Env) Exit(status int32) {
	e.Syscall(pintos.SYS_EXIT, uint32(status))
	panic("exit returned")
}

// Exec starts cmdline as a child process and returns its pid, or -1.
func (e *Env) Exec(cmdline string) int32 {
	mark := e.Mark()
	defer e.Release(mark)
	return int32(e.Syscall(pintos.SYS_EXEC, uint32(e.PutString(cmdline))))
}

// Wait waits for child pid and returns its exit status, or -1.
func (e *Env) Wait(pid int32) int32 {
	return int32(e.Syscall(pintos.SYS_WAIT, uint32(pid)))
}

// Create creates a file of initial size bytes.
func (e *Env) Create(name string, size uint32) bool {
	mark := e.Mark()
	defer e.Release(mark)
	return e.Syscall(pintos.SYS_CREATE, uint32(e.PutString(name)), size) != pintos.False
}

// Remove deletes a file.
func (e *Env) Remove(name string) bool {
	mark := e.Mark()
	defer e.Release(mark)
	return e.Syscall(pintos.SYS_REMOVE, uint32(e.PutString(name))) != pintos.False
}

// Open opens a file and returns its descriptor, or -1.
func (e *Env) Open(name string) int32 {
	mark := e.Mark()
	defer e.Release(mark)
	return int32(e.Syscall(pintos.SYS_OPEN, uint32(e.PutString(name))))
}

// Filesize returns the size of the open file fd, or -1.
func (e *Env) Filesize(fd int32) int32 {
	return int32(e.Syscall(pintos.SYS_FILESIZE, uint32(fd)))
}

// Read reads up to size bytes from fd into buf and returns the count, or -1.
func (e *Env) Read(fd int32, buf hostarch.Addr, size uint32) int32 {
	return int32(e.Syscall(pintos.SYS_READ, uint32(fd), uint32(buf), size))
}

// Write writes size bytes at buf to fd and returns the count, or -1.
func (e *Env) Write(fd int32, buf hostarch.Addr, size uint32) int32 {
	return int32(e.Syscall(pintos.SYS_WRITE, uint32(fd), uint32(buf), size))
}

// Seek sets the position of fd.
func (e *Env) Seek(fd int32, pos uint32) {
	e.Syscall(pintos.SYS_SEEK, uint32(fd), pos)
}

// Tell returns the position of fd.
func (e *Env) Tell(fd int32) uint32 {
	return e.Syscall(pintos.SYS_TELL, uint32(fd))
}

// Close closes fd.
func (e *Env) Close(fd int32) {
	e.Syscall(pintos.SYS_CLOSE, uint32(fd))
}

// ReadString reads up to n bytes from fd and returns them. It returns false
// if the read fails.
func (e *Env) ReadString(fd int32, n int) (string, bool) {
	mark := e.Mark()
	defer e.Release(mark)
	buf := e.Alloc(n)
	got := e.Read(fd, buf, uint32(n))
	if got < 0 {
		return "", false
	}
	return string(e.Peek(buf, int(got))), true
}

// WriteString writes s to fd and returns the count, or -1.
func (e *Env) WriteString(fd int32, s string) int32 {
	mark := e.Mark()
	defer e.Release(mark)
	return e.Write(fd, e.PutBytes([]byte(s)), uint32(len(s)))
}
