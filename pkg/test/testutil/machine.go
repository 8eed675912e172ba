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

package testutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"pintos.dev/pintos/pkg/metric"
	"pintos.dev/pintos/pkg/sentry/devices/console"
	"pintos.dev/pintos/pkg/sentry/fsimpl/memfs"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/loader"
	"pintos.dev/pintos/pkg/sentry/vfs"
	"pintos.dev/pintos/pkg/userprogs"

	// Register the syscall table.
	_ "pintos.dev/pintos/pkg/sentry/syscalls/pintos"
)

// MachineOpts configures NewMachine. The zero value boots an empty in-memory
// filesystem and a console with no input.
type MachineOpts struct {
	// Stdin is the console input.
	Stdin string

	// Filesystem, if set, replaces the in-memory filesystem.
	Filesystem vfs.Filesystem

	// MemfsOptions configures the in-memory filesystem.
	MemfsOptions memfs.Options

	// UnknownSyscall is the policy for unknown syscall numbers.
	UnknownSyscall kernel.UnknownSyscallPolicy

	// MaxOpenFiles limits the descriptors of each process.
	MaxOpenFiles int

	// MaxTasks limits the number of live processes.
	MaxTasks int

	// Tracer observes syscalls.
	Tracer kernel.Tracer

	// Loader configures the program loader.
	Loader loader.Options
}

// Machine is a kernel wired to the user programs, with every filesystem and
// console call checked for overlap.
type Machine struct {
	Kernel  *kernel.Kernel
	Loader  *loader.Loader
	FS      vfs.Filesystem
	Checker *Checker
	Metrics *metric.Registry

	// fs is the unwrapped filesystem.
	fs vfs.Filesystem

	out lockedBuffer
}

// lockedBuffer is a bytes.Buffer safe for concurrent use.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewMachine builds a Machine.
func NewMachine(opts MachineOpts) (*Machine, error) {
	m := &Machine{
		Checker: &Checker{},
		Metrics: metric.NewRegistry(),
		fs:      opts.Filesystem,
	}
	if m.fs == nil {
		m.fs = memfs.New(opts.MemfsOptions)
	}
	m.FS = m.Checker.Filesystem(m.fs)
	m.Loader = loader.New(opts.Loader)
	if err := userprogs.Register(m.Loader); err != nil {
		return nil, err
	}
	k, err := kernel.New(kernel.InitKernelArgs{
		Filesystem:      m.FS,
		Console:         console.New(m.Checker.Reader(strings.NewReader(opts.Stdin)), m.Checker.Writer(&m.out)),
		Loader:          m.Loader,
		MaxOpenFiles:    opts.MaxOpenFiles,
		MaxTasks:        opts.MaxTasks,
		UnknownSyscall:  opts.UnknownSyscall,
		Tracer:          opts.Tracer,
		Metrics:         m.Metrics,
		ShutdownTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	m.Kernel = k
	return m, nil
}

// Result is the outcome of Machine.Run.
type Result struct {
	// Status is the exit status of the initial process.
	Status int32

	// Halted is true if the machine halted before the initial process
	// exited.
	Halted bool

	// Output is everything written to the console.
	Output string
}

// Run runs cmdline as the initial process until the machine powers off.
func (m *Machine) Run(cmdline string) (Result, error) {
	status, halted, err := m.Kernel.Run(cmdline)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: status, Halted: halted, Output: m.Output()}, nil
}

// Output returns the console output so far.
func (m *Machine) Output() string {
	return m.out.String()
}

// PutFile creates name with contents data, bypassing the kernel.
func (m *Machine) PutFile(name string, data []byte) error {
	if err := m.fs.Create(name, int64(len(data))); err != nil {
		return err
	}
	fd, err := m.fs.Open(name)
	if err != nil {
		return err
	}
	defer fd.DecRef()
	if _, err := fd.Write(data); err != nil {
		return fmt.Errorf("error writing %q: %w", name, err)
	}
	return nil
}

// GetFile returns the contents of name, bypassing the kernel.
func (m *Machine) GetFile(name string) ([]byte, error) {
	fd, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.DecRef()
	size, err := fd.Length()
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	n, err := fd.Read(data)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:n], nil
}

// RunProgram boots a machine configured by opts, runs cmdline and checks
// that no filesystem or console calls overlapped.
func RunProgram(t testing.TB, opts MachineOpts, cmdline string) (*Machine, Result) {
	t.Helper()
	m, err := NewMachine(opts)
	if err != nil {
		t.Fatalf("NewMachine(): %v", err)
	}
	res, err := m.Run(cmdline)
	if err != nil {
		t.Fatalf("Run(%q): %v", cmdline, err)
	}
	if n := m.Checker.Overlaps(); n != 0 {
		t.Errorf("Run(%q): %d overlapping filesystem or console calls", cmdline, n)
	}
	t.Logf("Run(%q): status %d, halted %t, output:\n%s", cmdline, res.Status, res.Halted, res.Output)
	return m, res
}
