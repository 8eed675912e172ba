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

// Package arch describes the register state a trap delivers to the kernel and
// the typed view of system call arguments.
package arch

import (
	"fmt"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
)

// MaxSyscallArgs is the largest number of arguments any system call takes.
const MaxSyscallArgs = 3

// TrapFrame is the register state saved when user code traps into the kernel.
//
// The syscall number is the word at Esp, and arguments follow as consecutive
// words. The kernel reports a result by setting Eax. A TrapFrame is never
// retained by the kernel past the return of the trap.
type TrapFrame struct {
	// Esp is the user stack pointer at the time of the trap.
	Esp hostarch.Addr

	// Eax is the return value register.
	Eax uint32
}

// Stack returns the stack pointer.
func (tf *TrapFrame) Stack() hostarch.Addr {
	return tf.Esp
}

// SetStack sets the stack pointer.
func (tf *TrapFrame) SetStack(esp hostarch.Addr) {
	tf.Esp = esp
}

// Return returns the return value for a system call.
func (tf *TrapFrame) Return() uintptr {
	return uintptr(tf.Eax)
}

// SetReturn sets the return value for a system call. Only the low 32 bits
// are kept, so -1 reads back as 0xffffffff.
func (tf *TrapFrame) SetReturn(value uintptr) {
	tf.Eax = uint32(value)
}

// ArgAddr returns the address of the i'th word above the syscall number.
func (tf *TrapFrame) ArgAddr(i int) hostarch.Addr {
	return tf.Esp + hostarch.Addr((i+1)*pintos.WordSize)
}

// String implements fmt.Stringer.String.
func (tf *TrapFrame) String() string {
	return fmt.Sprintf("esp=%#08x eax=%#08x", uintptr(tf.Esp), tf.Eax)
}

// SyscallArgument is an argument supplied to a syscall implementation. The
// methods used to access the arguments are named after the ***C type name*** and
// they convert to the closest Go type available. For example, Int() refers to a
// 32-bit signed integer argument represented in Go as an int32.
//
// Using the accessor methods guarantees that the conversion between types is
// correct, taking into account size and signedness (i.e., zero-extension vs
// signed-extension).
type SyscallArgument struct {
	// Prefer to use accessor methods instead of 'Value' directly.
	Value uintptr
}

// SyscallArguments represents the set of arguments passed to a syscall.
type SyscallArguments [MaxSyscallArgs]SyscallArgument

// Pointer returns the hostarch.Addr representation of a pointer argument.
func (a SyscallArgument) Pointer() hostarch.Addr {
	return hostarch.Addr(uint32(a.Value))
}

// Int returns the int32 representation of a 32-bit signed integer argument.
func (a SyscallArgument) Int() int32 {
	return int32(a.Value)
}

// Uint returns the uint32 representation of a 32-bit unsigned integer argument.
func (a SyscallArgument) Uint() uint32 {
	return uint32(a.Value)
}

// SizeT returns the uint representation of a size_t argument.
func (a SyscallArgument) SizeT() uint {
	return uint(uint32(a.Value))
}
