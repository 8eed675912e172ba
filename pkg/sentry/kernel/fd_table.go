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
	"math"
	"strings"
	"sync"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/sentry/vfs"
)

// FDTable maps descriptors to open files for one process.
//
// Descriptors are handed out in strictly increasing order starting at
// FirstFD and are never reused, so the table is an arena: the file for
// descriptor fd lives at files[fd-base]. Released descriptors at the front of
// the arena are trimmed by advancing base. Descriptors 0 and 1 name the
// console and are never in the table.
type FDTable struct {
	// mu protects below.
	mu sync.Mutex

	// base is the descriptor stored in files[0].
	base int32

	// files holds the open files. A nil entry is a released descriptor.
	// Invariant: base+len(files) == last+1.
	files []*vfs.FileDescription

	// last is the most recently assigned descriptor.
	last int32

	// used is the number of non-nil entries in files.
	used int

	// max is the limit on used, or zero for no limit.
	max int
}

// NewFDTable returns an empty table that holds at most max open files. A max
// of zero means no limit.
func NewFDTable(max int) *FDTable {
	return &FDTable{
		base: pintos.FirstFD,
		last: pintos.FirstFD - 1,
		max:  max,
	}
}

// Add installs file and returns its new descriptor. It returns EMFILE if the
// table is full or descriptors are exhausted. The caller keeps ownership of
// file on error.
func (f *FDTable) Add(file *vfs.FileDescription) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.max > 0 && f.used >= f.max {
		return -1, kerr.EMFILE
	}
	if f.last == math.MaxInt32 {
		return -1, kerr.EMFILE
	}
	f.last++
	f.files = append(f.files, file)
	f.used++
	return f.last, nil
}

// Get returns the file for fd, or nil if fd is not open.
func (f *FDTable) Get(fd int32) *vfs.FileDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.index(fd)
	if !ok {
		return nil
	}
	return f.files[i]
}

// Remove removes fd and returns its file, which the caller must release. It
// returns nil if fd is not open.
func (f *FDTable) Remove(fd int32) *vfs.FileDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.index(fd)
	if !ok || f.files[i] == nil {
		return nil
	}
	file := f.files[i]
	f.files[i] = nil
	f.used--
	for len(f.files) > 0 && f.files[0] == nil {
		f.files[0] = nil
		f.files = f.files[1:]
		f.base++
	}
	return file
}

// RemoveAll empties the table and returns every open file in descriptor
// order. The caller must release them.
func (f *FDTable) RemoveAll() []*vfs.FileDescription {
	f.mu.Lock()
	defer f.mu.Unlock()
	files := make([]*vfs.FileDescription, 0, f.used)
	for _, file := range f.files {
		if file != nil {
			files = append(files, file)
		}
	}
	f.base = f.last + 1
	f.files = nil
	f.used = 0
	return files
}

// Size returns the number of open descriptors.
func (f *FDTable) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used
}

// Last returns the most recently assigned descriptor, or FirstFD-1.
func (f *FDTable) Last() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// String is a stringer for FDTable.
func (f *FDTable) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for i, file := range f.files {
		if file != nil {
			fmt.Fprintf(&b, "\tfd:%d => name %s\n", f.base+int32(i), file.Name())
		}
	}
	return b.String()
}

// index returns the arena index for fd.
//
// Precondition: f.mu must be locked.
func (f *FDTable) index(fd int32) (int, bool) {
	if fd < f.base || fd > f.last {
		return 0, false
	}
	return int(fd - f.base), true
}
