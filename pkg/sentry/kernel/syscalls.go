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
	"fmt"
	"sort"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/sentry/arch"
)

// SyscallFn is a syscall implementation.
type SyscallFn func(t *Task, args arch.SyscallArguments) (uintptr, *SyscallControl, error)

// Syscall includes the syscall implementation and compatibility information.
type Syscall struct {
	// Name is the syscall name.
	Name string

	// ArgCount is the number of argument words the syscall reads from the
	// user stack. Exactly this many words are validated and read before Fn
	// is called.
	ArgCount int

	// Fn is the implementation of the syscall.
	Fn SyscallFn

	// Note describes the behavior of the syscall, for documentation output.
	Note string
}

// UnknownSyscallPolicy decides what happens to a task that invokes a syscall
// number missing from the table.
type UnknownSyscallPolicy int

const (
	// UnknownSyscallKill terminates the caller with status -1.
	UnknownSyscallKill UnknownSyscallPolicy = iota

	// UnknownSyscallIgnore returns to the caller without touching the
	// return register.
	UnknownSyscallIgnore
)

// String implements fmt.Stringer.String.
func (p UnknownSyscallPolicy) String() string {
	switch p {
	case UnknownSyscallKill:
		return "kill"
	case UnknownSyscallIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("UnknownSyscallPolicy(%d)", int(p))
	}
}

// ParseUnknownSyscallPolicy is the inverse of UnknownSyscallPolicy.String.
func ParseUnknownSyscallPolicy(s string) (UnknownSyscallPolicy, error) {
	switch s {
	case "kill":
		return UnknownSyscallKill, nil
	case "ignore":
		return UnknownSyscallIgnore, nil
	default:
		return 0, fmt.Errorf("invalid unknown syscall policy %q, must be one of: kill, ignore", s)
	}
}

// SyscallTable is a lookup table of system calls.
type SyscallTable struct {
	// Name names the ABI the table implements.
	Name string

	// Table is the collection of functions.
	Table map[uintptr]Syscall
}

// Lookup returns the syscall registered for sysno, if any.
func (s *SyscallTable) Lookup(sysno uintptr) (Syscall, bool) {
	sc, ok := s.Table[sysno]
	if !ok || sc.Fn == nil {
		return Syscall{}, false
	}
	return sc, true
}

// LookupName returns the syscall number for name, or false.
func (s *SyscallTable) LookupName(name string) (uintptr, bool) {
	for sysno, sc := range s.Table {
		if sc.Name == name {
			return sysno, true
		}
	}
	return 0, false
}

// Sysnos returns all syscall numbers in the table in ascending order.
func (s *SyscallTable) Sysnos() []uintptr {
	nums := make([]uintptr, 0, len(s.Table))
	for sysno := range s.Table {
		nums = append(nums, sysno)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Validate checks that the table is consistent with the ABI.
func (s *SyscallTable) Validate() error {
	for sysno, sc := range s.Table {
		if sc.ArgCount < 0 || sc.ArgCount > arch.MaxSyscallArgs {
			return fmt.Errorf("syscall %d (%s) has %d arguments, max is %d", sysno, sc.Name, sc.ArgCount, arch.MaxSyscallArgs)
		}
		if want := pintos.SyscallName(sysno); sc.Name != want {
			return fmt.Errorf("syscall %d is named %q, want %q", sysno, sc.Name, want)
		}
	}
	return nil
}

// allSyscallTables contains all known tables.
var allSyscallTables []*SyscallTable

// RegisterSyscallTable registers a new syscall table for use by a Kernel.
func RegisterSyscallTable(s *SyscallTable) {
	allSyscallTables = append(allSyscallTables, s)
}

// LookupSyscallTable returns the SyscallTable registered under name.
func LookupSyscallTable(name string) (*SyscallTable, bool) {
	for _, s := range allSyscallTables {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SyscallControl is returned by syscalls to control the behavior of
// Task.Syscall.
type SyscallControl struct {
	// next is the state that the task goroutine should switch to. The zero
	// value, runApp, returns to user code.
	next taskRunState

	// ignoreReturn is true if the return value register should be left
	// untouched.
	ignoreReturn bool
}

var (
	// CtrlDoExit is returned by the implementations of the exit syscall to
	// enter the task exit path. The exit status must have been set by
	// Task.PrepareExit.
	CtrlDoExit = &SyscallControl{next: runExit, ignoreReturn: true}

	// CtrlHalt is returned by the halt syscall. The calling task stops
	// without an exit message, as does every other task.
	CtrlHalt = &SyscallControl{next: runHalt, ignoreReturn: true}

	// CtrlIgnoreReturn is returned by syscalls that have no return value.
	CtrlIgnoreReturn = &SyscallControl{ignoreReturn: true}
)
