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
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/usermem"
)

// taskRunState is the state the task goroutine moves to after a syscall.
type taskRunState int

const (
	// runApp returns to user code.
	runApp taskRunState = iota

	// runExit runs the exit path.
	runExit

	// runHalt stops the task without an exit message.
	runHalt
)

// Syscall is the trap entry point. User code calls it with a trap frame whose
// stack pointer addresses the syscall number, followed by the argument words.
//
// Syscall returns to user code with the result in tf.Eax, or does not return
// at all if the syscall terminated the task. Every word is validated before it
// is read; an invalid word terminates the task with status -1 and leaves tf
// untouched.
func (t *Task) Syscall(tf *arch.TrapFrame) {
	if t.k.Halted() {
		t.halt()
	}

	sysno, err := t.readWord(tf.Stack())
	if err != nil {
		t.syscallFault(tf.Stack(), "syscall number")
	}
	s, ok := t.k.table.Lookup(uintptr(sysno))
	if !ok {
		t.unknownSyscall(uintptr(sysno))
		return
	}

	var args arch.SyscallArguments
	for i := 0; i < s.ArgCount; i++ {
		addr := tf.ArgAddr(i)
		v, err := t.readWord(addr)
		if err != nil {
			t.syscallFault(addr, s.Name+" argument")
		}
		args[i].Value = uintptr(v)
	}

	t.k.syscallsMetric.Increment(s.Name)
	var info any
	if t.k.tracer != nil {
		info = t.k.tracer.SyscallEnter(t, uintptr(sysno), args)
	}

	rval, ctrl, err := s.Fn(t, args)
	if err != nil {
		if kerr.IsFault(err) {
			t.Debugf("%s: invalid user memory: %v", s.Name, err)
			t.k.faultsMetric.Increment("syscall")
			t.PrepareExit(pintos.Error)
			ctrl = CtrlDoExit
		} else {
			t.Debugf("%s: %v", s.Name, err)
			rval = ^uintptr(0)
		}
	}
	if ctrl == nil {
		ctrl = &SyscallControl{}
	}

	switch ctrl.next {
	case runExit:
		t.doExit()
	case runHalt:
		t.halt()
	}

	if t.k.tracer != nil {
		t.k.tracer.SyscallExit(t, uintptr(sysno), args, rval, err, info)
	}
	if !ctrl.ignoreReturn {
		tf.SetReturn(rval)
	}
}

// readWord validates and reads the stack word at addr.
func (t *Task) readWord(addr hostarch.Addr) (uint32, error) {
	if err := t.mm.CheckIORange(addr, pintos.WordSize, hostarch.Read); err != nil {
		return 0, err
	}
	return usermem.CopyUint32In(t.mm, addr)
}

// syscallFault terminates t for passing an invalid address to the kernel.
func (t *Task) syscallFault(addr hostarch.Addr, what string) {
	t.k.faultLogger.Warningf("%s: invalid %s at %v", t, what, addr)
	t.k.faultsMetric.Increment("syscall")
	t.Exit(pintos.Error)
}

// unknownSyscall handles a syscall number that is not in the table.
func (t *Task) unknownSyscall(sysno uintptr) {
	switch t.k.unknownSyscall {
	case UnknownSyscallIgnore:
		t.Debugf("ignoring unknown syscall %d", sysno)
	default:
		t.k.faultLogger.Warningf("%s: unknown syscall %d", t, sysno)
		t.k.faultsMetric.Increment("unknown_syscall")
		t.Exit(pintos.Error)
	}
}
