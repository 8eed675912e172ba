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

// Package syscalls is the interface from the application to the kernel.
// Traditionally, syscalls is the interface that is used by applications to
// request services from the kernel of a operating system. We provide a
// user-mode kernel that needs to handle those requests coming from user
// programs. Therefore, we still use the term "syscalls" to denote this
// interface.
//
// The helpers in this package make writing syscall table entries
// straightforward.
package syscalls

import (
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// Supported returns a syscall that is fully supported.
func Supported(name string, argc int, fn kernel.SyscallFn, note string) kernel.Syscall {
	return kernel.Syscall{
		Name:     name,
		ArgCount: argc,
		Fn:       fn,
		Note:     note,
	}
}

// Error returns a syscall handler that will always give the passed error.
func Error(name string, argc int, err error, note string) kernel.Syscall {
	return kernel.Syscall{
		Name:     name,
		ArgCount: argc,
		Fn: func(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
			return 0, nil, err
		},
		Note: note,
	}
}
