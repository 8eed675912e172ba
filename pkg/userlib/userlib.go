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

// Package userlib is the runtime for user programs: the code that runs on the
// user side of the syscall boundary.
//
// A program is a Main function wrapped by Start. It sees its process only
// through an Env, which reaches user memory through the task's address space
// and enters the kernel by pushing a syscall number and its arguments onto
// the user stack and trapping. Any access to memory the program does not own
// kills the process, as a page fault would.
package userlib

import (
	"encoding/binary"
	"fmt"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// Main is the body of a user program. Its result is the exit status.
type Main func(e *Env) int32

// Env is a user program's view of its process.
type Env struct {
	t *kernel.Task

	// sp is the user stack pointer.
	sp hostarch.Addr

	// brk is the next free address in the data region.
	brk hostarch.Addr

	// Args holds the command line arguments, starting with the program
	// name.
	Args []string
}

// Start returns an entry point that reads argc and argv from the initial
// stack, runs main and exits with its result.
func Start(main Main) kernel.Entry {
	return func(t *kernel.Task, sp hostarch.Addr) {
		e := &Env{t: t, sp: sp, brk: pintos.DataBase}
		e.Args = e.readArgs()
		e.Exit(main(e))
	}
}

// readArgs decodes the argument block the loader pushed. The word at sp is
// the fake return address.
func (e *Env) readArgs() []string {
	argc := e.PeekWord(e.sp + pintos.WordSize)
	argv := hostarch.Addr(e.PeekWord(e.sp + 2*pintos.WordSize))
	args := make([]string, 0, argc)
	for i := uint32(0); i < argc; i++ {
		p := hostarch.Addr(e.PeekWord(argv + hostarch.Addr(i*pintos.WordSize)))
		s, err := e.t.CopyInString(p, hostarch.PageSize)
		if err != nil {
			e.t.PageFault(p, hostarch.Read)
		}
		args = append(args, s)
	}
	return args
}

// Task returns the task running the program.
func (e *Env) Task() *kernel.Task {
	return e.t
}

// StackPointer returns the user stack pointer.
func (e *Env) StackPointer() hostarch.Addr {
	return e.sp
}

// Trap enters the kernel with the stack pointer set to esp, and returns the
// value of the return register afterwards. Nothing is pushed; the caller is
// responsible for the syscall frame.
func (e *Env) Trap(esp hostarch.Addr) uint32 {
	tf := &arch.TrapFrame{Esp: esp}
	e.t.Syscall(tf)
	return tf.Eax
}

// Syscall pushes sysno and args below the stack pointer and traps.
func (e *Env) Syscall(sysno uintptr, args ...uint32) uint32 {
	esp := e.sp - hostarch.Addr((len(args)+1)*pintos.WordSize)
	e.PokeWord(esp, uint32(sysno))
	for i, a := range args {
		e.PokeWord(esp+hostarch.Addr((i+1)*pintos.WordSize), a)
	}
	return e.Trap(esp)
}

// Alloc reserves n bytes of the data region and returns their word aligned
// address. Running past the region is not detected here; the first access
// faults.
func (e *Env) Alloc(n int) hostarch.Addr {
	addr := e.brk
	e.brk += hostarch.Addr((n + pintos.WordSize - 1) &^ (pintos.WordSize - 1))
	return addr
}

// Mark returns the current allocation point, for a later Release.
func (e *Env) Mark() hostarch.Addr {
	return e.brk
}

// Release frees everything allocated since mark.
func (e *Env) Release(mark hostarch.Addr) {
	e.brk = mark
}

// PutBytes copies b into newly allocated memory and returns its address.
func (e *Env) PutBytes(b []byte) hostarch.Addr {
	addr := e.Alloc(len(b))
	e.Poke(addr, b)
	return addr
}

// PutString copies s and a NUL into newly allocated memory and returns its
// address.
func (e *Env) PutString(s string) hostarch.Addr {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return e.PutBytes(b)
}

// Poke writes b at addr.
func (e *Env) Poke(addr hostarch.Addr, b []byte) {
	if n, err := e.t.CopyOut(addr, b); err != nil {
		e.t.PageFault(addr+hostarch.Addr(n), hostarch.Write)
	}
}

// Peek reads n bytes at addr.
func (e *Env) Peek(addr hostarch.Addr, n int) []byte {
	b := make([]byte, n)
	if done, err := e.t.CopyIn(addr, b); err != nil {
		e.t.PageFault(addr+hostarch.Addr(done), hostarch.Read)
	}
	return b
}

// PokeWord writes a little endian word at addr.
func (e *Env) PokeWord(addr hostarch.Addr, v uint32) {
	var b [pintos.WordSize]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.Poke(addr, b[:])
}

// PeekWord reads a little endian word at addr.
func (e *Env) PeekWord(addr hostarch.Addr) uint32 {
	return binary.LittleEndian.Uint32(e.Peek(addr, pintos.WordSize))
}

// Printf formats to standard output.
func (e *Env) Printf(format string, v ...any) {
	e.Print(fmt.Sprintf(format, v...))
}

// Print writes s to standard output.
func (e *Env) Print(s string) {
	mark := e.Mark()
	defer e.Release(mark)
	e.Write(pintos.STDOUT_FILENO, e.PutString(s), uint32(len(s)))
}

// Msg prints a test message prefixed with the program name, and a newline.
func (e *Env) Msg(format string, v ...any) {
	e.Printf("(%s) %s\n", e.Args[0], fmt.Sprintf(format, v...))
}

// Fail prints a test failure message and exits with status 1.
func (e *Env) Fail(format string, v ...any) {
	e.Printf("(%s) FAIL: %s\n", e.Args[0], fmt.Sprintf(format, v...))
	e.Exit(1)
}
