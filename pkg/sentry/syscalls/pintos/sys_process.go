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

package pintos

import (
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// maxCmdline bounds the command line EXEC accepts, including the NUL.
const maxCmdline = hostarch.PageSize

// Halt implements HALT.
func Halt(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	t.Kernel().Halt()
	return 0, kernel.CtrlHalt, nil
}

// Exit implements EXIT.
func Exit(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	status := args[0].Int()
	t.PrepareExit(status)
	return 0, kernel.CtrlDoExit, nil
}

// Exec implements EXEC.
func Exec(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	cmdline, err := t.CopyInString(addr, maxCmdline)
	if err != nil {
		return 0, nil, err
	}

	var child *kernel.Task
	t.Kernel().FilesysLock().Do(func() {
		child, err = t.Kernel().CreateProcess(t, cmdline)
	})
	if err != nil {
		return 0, nil, err
	}
	return uintptr(child.ThreadID()), nil, nil
}

// Wait implements WAIT.
func Wait(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	pid := kernel.ThreadID(args[0].Int())

	status, err := t.Wait(pid)
	if err != nil {
		return 0, nil, err
	}
	return uintptr(status), nil, nil
}

// copyInName copies a file name argument. Names too long to be valid are
// reported as ENAMETOOLONG, which is not a fault.
func copyInName(t *kernel.Task, addr hostarch.Addr) (string, error) {
	name, err := t.CopyInString(addr, hostarch.PageSize)
	if err != nil && !kerr.IsFault(err) {
		return "", kerr.ENAMETOOLONG
	}
	return name, err
}
