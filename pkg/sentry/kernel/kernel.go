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

// Package kernel provides an emulation of the process and file parts of a
// small teaching operating system kernel.
//
// A Kernel owns a TaskSet. Each Task runs user code on its own goroutine and
// enters the kernel through Task.Syscall, which validates the trap frame,
// decodes the syscall number and its argument words from the user stack and
// dispatches to the registered SyscallTable. Tasks leave the kernel for good
// through Task.Exit.
package kernel

import (
	"fmt"
	"sync"
	"time"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/metric"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/devices/console"
	"pintos.dev/pintos/pkg/sentry/mm"
	"pintos.dev/pintos/pkg/sentry/vfs"
)

// ABIName is the name under which the syscall table is registered.
const ABIName = "pintos"

// Entry is the entry point of user code. It runs on the task goroutine with
// the stack pointer the loader prepared, and must end by invoking the exit
// syscall.
type Entry func(t *Task, sp hostarch.Addr)

// Image is a loaded program, ready to run.
type Image struct {
	// Name is the program name used in the exit message.
	Name string

	// MemoryManager is the program's address space.
	MemoryManager *mm.MemoryManager

	// Stack is the initial stack pointer.
	Stack hostarch.Addr

	// Entry is the program's entry point.
	Entry Entry
}

// Loader builds an Image from a command line.
type Loader interface {
	// Load parses cmdline and builds the address space of the program it
	// names.
	Load(cmdline string) (*Image, error)
}

// Tracer observes syscalls.
type Tracer interface {
	// SyscallEnter is called after the arguments have been read and before
	// the syscall runs. Its result is passed to SyscallExit.
	SyscallEnter(t *Task, sysno uintptr, args arch.SyscallArguments) any

	// SyscallExit is called after a syscall that returns to user code.
	SyscallExit(t *Task, sysno uintptr, args arch.SyscallArguments, rval uintptr, err error, info any)
}

// InitKernelArgs holds arguments to New.
type InitKernelArgs struct {
	// Filesystem is the filesystem all tasks share.
	Filesystem vfs.Filesystem

	// Console is the console device.
	Console *console.Device

	// Loader loads programs for EXEC and for the initial process.
	Loader Loader

	// SyscallTable is the table to dispatch through. If nil, the table
	// registered under ABIName is used.
	SyscallTable *SyscallTable

	// MaxOpenFiles limits the open descriptors of each task. Zero means no
	// limit.
	MaxOpenFiles int

	// MaxTasks limits the number of live tasks. Zero means no limit.
	MaxTasks int

	// UnknownSyscall is the policy for syscall numbers missing from the
	// table.
	UnknownSyscall UnknownSyscallPolicy

	// Tracer, if set, observes every syscall.
	Tracer Tracer

	// Metrics receives the kernel's metrics. If nil, a private registry is
	// used.
	Metrics *metric.Registry

	// ShutdownTimeout bounds how long Run waits for stragglers after power
	// off. Zero means one second.
	ShutdownTimeout time.Duration
}

// Kernel represents an emulated kernel.
type Kernel struct {
	fs      vfs.Filesystem
	console *console.Device
	loader  Loader
	table   *SyscallTable
	tracer  Tracer

	maxOpenFiles    int
	unknownSyscall  UnknownSyscallPolicy
	shutdownTimeout time.Duration

	filesysLock *FilesysLock
	tasks       *TaskSet

	// haltCh is closed when the machine powers off.
	haltCh   chan struct{}
	haltOnce sync.Once

	// faultLogger logs task faults without flooding the log.
	faultLogger log.Logger

	metrics        *metric.Registry
	syscallsMetric *metric.Uint64Metric
	createdMetric  *metric.Uint64Metric
	exitsMetric    *metric.Uint64Metric
	faultsMetric   *metric.Uint64Metric
}

// New returns a Kernel configured by args.
func New(args InitKernelArgs) (*Kernel, error) {
	if args.Filesystem == nil || args.Console == nil || args.Loader == nil {
		return nil, fmt.Errorf("kernel requires a filesystem, a console and a loader: %w", kerr.EINVAL)
	}
	table := args.SyscallTable
	if table == nil {
		var ok bool
		if table, ok = LookupSyscallTable(ABIName); !ok {
			return nil, fmt.Errorf("no syscall table registered for %q", ABIName)
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	r := args.Metrics
	if r == nil {
		r = metric.NewRegistry()
	}
	if args.ShutdownTimeout == 0 {
		args.ShutdownTimeout = time.Second
	}
	k := &Kernel{
		fs:              args.Filesystem,
		console:         args.Console,
		loader:          args.Loader,
		table:           table,
		tracer:          args.Tracer,
		maxOpenFiles:    args.MaxOpenFiles,
		unknownSyscall:  args.UnknownSyscall,
		shutdownTimeout: args.ShutdownTimeout,
		filesysLock:     NewFilesysLock(r),
		tasks:           newTaskSet(args.MaxTasks),
		haltCh:          make(chan struct{}),
		faultLogger:     log.BasicRateLimitedLogger(time.Second),
		metrics:         r,
		syscallsMetric:  r.MustCreateNewUint64Metric("pintos_syscalls_total", "Number of system calls dispatched, by name.", metric.NewField("name")),
		createdMetric:   r.MustCreateNewUint64Metric("pintos_processes_created_total", "Number of processes created."),
		exitsMetric:     r.MustCreateNewUint64Metric("pintos_process_exits_total", "Number of processes that ran the exit path."),
		faultsMetric:    r.MustCreateNewUint64Metric("pintos_faults_total", "Number of processes killed for invalid behavior, by source.", metric.NewField("source", "syscall", "user", "unknown_syscall")),
	}
	return k, nil
}

// Filesystem returns the shared filesystem.
func (k *Kernel) Filesystem() vfs.Filesystem {
	return k.fs
}

// Console returns the console device.
func (k *Kernel) Console() *console.Device {
	return k.console
}

// FilesysLock returns the lock serializing filesystem and console calls.
func (k *Kernel) FilesysLock() *FilesysLock {
	return k.filesysLock
}

// SyscallTable returns the table the kernel dispatches through.
func (k *Kernel) SyscallTable() *SyscallTable {
	return k.table
}

// Metrics returns the kernel's metric registry.
func (k *Kernel) Metrics() *metric.Registry {
	return k.metrics
}

// TaskSet returns the kernel's tasks.
func (k *Kernel) TaskSet() *TaskSet {
	return k.tasks
}

// CreateProcess loads cmdline and starts it as a child of parent, which may
// be nil for the initial process. The caller must hold the FilesysLock.
func (k *Kernel) CreateProcess(parent *Task, cmdline string) (*Task, error) {
	if k.Halted() {
		return nil, kerr.ESRCH
	}
	img, err := k.loader.Load(cmdline)
	if err != nil {
		return nil, err
	}
	t, err := k.tasks.newTask(k, parent, img)
	if err != nil {
		img.MemoryManager.Release()
		return nil, err
	}
	k.createdMetric.Increment()
	t.Debugf("created from %q", cmdline)
	go t.run() // S/R-SAFE: not saved.
	return t, nil
}

// Halt powers the machine off. Every task stops the next time it enters the
// kernel, and tasks blocked in WAIT stop immediately. No exit messages are
// printed.
func (k *Kernel) Halt() {
	k.haltOnce.Do(func() {
		log.Infof("Powering off...")
		close(k.haltCh)
	})
}

// Halted returns true once the machine has powered off.
func (k *Kernel) Halted() bool {
	select {
	case <-k.haltCh:
		return true
	default:
		return false
	}
}

// HaltChan returns a channel that is closed when the machine powers off.
func (k *Kernel) HaltChan() <-chan struct{} {
	return k.haltCh
}

// Run starts cmdline as the initial process and waits for it to exit or for
// the machine to halt, then powers off. It returns the initial process's exit
// status; halted is true if the machine was halted before it exited.
func (k *Kernel) Run(cmdline string) (status int32, halted bool, err error) {
	var init *Task
	k.filesysLock.Do(func() {
		init, err = k.CreateProcess(nil, cmdline)
	})
	if err != nil {
		return pintos.Error, false, fmt.Errorf("error starting %q: %w", cmdline, err)
	}
	select {
	case <-init.exited:
		status = init.exitStatus
	case <-k.haltCh:
	}
	if k.Halted() {
		status, halted = pintos.Error, true
	}
	k.Halt()
	if !k.tasks.waitAll(k.shutdownTimeout) {
		log.Warningf("%d tasks still running at power off", k.tasks.Live())
	}
	return status, halted, nil
}
