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

// Package loader builds the address space of a user program from a command
// line.
//
// Programs are Go functions registered by name. Loading one maps a read-only
// text page, a writable data region and a stack below PHYS_BASE, then pushes
// the command line arguments onto the stack.
package loader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/mm"
)

const (
	// MaxNameLen is the longest program name kept for the exit message.
	// Longer names are truncated.
	MaxNameLen = 15

	// MaxCmdlineLen is the longest command line accepted, excluding the
	// NUL.
	MaxCmdlineLen = hostarch.PageSize - 1

	// DefaultStackPages is the default stack size in pages.
	DefaultStackPages = 1

	// DefaultDataPages is the default size of the data region in pages.
	DefaultDataPages = 16
)

// Program is a user program that can be loaded by name.
type Program struct {
	// Name is the name that selects the program, the first word of a
	// command line.
	Name string

	// Description is a one line summary.
	Description string

	// Entry is the program's entry point.
	Entry kernel.Entry
}

// Options configures a Loader.
type Options struct {
	// StackPages is the stack size in pages. Zero means DefaultStackPages.
	StackPages int

	// DataPages is the size of the data region in pages. Zero means
	// DefaultDataPages.
	DataPages int
}

// Loader implements kernel.Loader over a set of registered programs.
type Loader struct {
	opts Options

	// mu protects programs.
	mu       sync.RWMutex
	programs map[string]Program
}

var _ kernel.Loader = (*Loader)(nil)

// New returns a Loader with no programs.
func New(opts Options) *Loader {
	if opts.StackPages <= 0 {
		opts.StackPages = DefaultStackPages
	}
	if opts.DataPages <= 0 {
		opts.DataPages = DefaultDataPages
	}
	return &Loader{
		opts:     opts,
		programs: make(map[string]Program),
	}
}

// Register adds p. It fails if the name is empty, contains white space, or is
// already registered.
func (l *Loader) Register(p Program) error {
	if p.Name == "" || strings.ContainsAny(p.Name, " \t\n") || p.Entry == nil {
		return fmt.Errorf("invalid program %q: %w", p.Name, kerr.EINVAL)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.programs[p.Name]; ok {
		return fmt.Errorf("program %q: %w", p.Name, kerr.EEXIST)
	}
	l.programs[p.Name] = p
	return nil
}

// MustRegister is like Register, but panics on error.
func (l *Loader) MustRegister(p Program) {
	if err := l.Register(p); err != nil {
		panic(fmt.Sprintf("Unable to register program: %v", err))
	}
}

// Lookup returns the program registered under name.
func (l *Loader) Lookup(name string) (Program, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.programs[name]
	return p, ok
}

// Programs returns every registered program, sorted by name.
func (l *Loader) Programs() []Program {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ps := make([]Program, 0, len(l.programs))
	for _, p := range l.programs {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

// Load implements kernel.Loader.Load.
//
// The command line is split on white space; the first word names the
// program. Load fails with E2BIG if the command line or its arguments do not
// fit, and with ENOENT if the program is unknown.
func (l *Loader) Load(cmdline string) (*kernel.Image, error) {
	if len(cmdline) > MaxCmdlineLen {
		return nil, kerr.E2BIG
	}
	argv := strings.Fields(cmdline)
	if len(argv) == 0 {
		return nil, kerr.ENOENT
	}
	p, ok := l.Lookup(argv[0])
	if !ok {
		return nil, kerr.ENOENT
	}

	m := mm.NewMemoryManager()
	sp, err := l.setup(m, p, argv)
	if err != nil {
		m.Release()
		return nil, err
	}
	name := argv[0]
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	return &kernel.Image{
		Name:          name,
		MemoryManager: m,
		Stack:         sp,
		Entry:         p.Entry,
	}, nil
}

// setup maps the program's regions into m and pushes argv. It returns the
// initial stack pointer.
func (l *Loader) setup(m *mm.MemoryManager, p Program, argv []string) (hostarch.Addr, error) {
	text := hostarch.AddrRange{Start: pintos.CodeBase, End: pintos.CodeBase + hostarch.PageSize}
	if err := m.MapRange(text, hostarch.ReadWrite); err != nil {
		return 0, err
	}
	// The text page holds the program name, so that it is not all zeros.
	if _, err := m.CopyOut(text.Start, []byte(p.Name)); err != nil {
		return 0, err
	}
	m.Protect(text, hostarch.Read)

	data := hostarch.AddrRange{Start: pintos.DataBase, End: pintos.DataBase + hostarch.Addr(l.opts.DataPages*hostarch.PageSize)}
	if err := m.MapRange(data, hostarch.ReadWrite); err != nil {
		return 0, err
	}

	stack := hostarch.AddrRange{Start: pintos.PHYS_BASE - hostarch.Addr(l.opts.StackPages*hostarch.PageSize), End: pintos.PHYS_BASE}
	if err := m.MapRange(stack, hostarch.ReadWrite); err != nil {
		return 0, err
	}
	s := &arch.Stack{IO: m, Bottom: stack.End, Limit: stack.Start}
	if _, err := s.Load(argv); err != nil {
		return 0, err
	}
	return s.Bottom, nil
}
