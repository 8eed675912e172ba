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

// Package vfs defines the filesystem primitives the kernel consumes: a flat
// namespace of fixed-size files supporting create, remove and open, and open
// files supporting read, write, seek, tell, length and close.
//
// Filesystem implementations are not required to be safe for concurrent use.
// The kernel serializes every call into a Filesystem or FileDescription.
package vfs

import (
	"fmt"
	"strings"
	"sync/atomic"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/log"
)

// Filesystem is a flat namespace of files.
type Filesystem interface {
	// Name returns the filesystem type name, for example "memfs".
	Name() string

	// Create creates a file called name with the given initial size, zero
	// filled. It returns EEXIST if the name is taken and ENOSPC if the
	// filesystem cannot hold the file.
	Create(name string, size int64) error

	// Remove removes name from the namespace. Files that are open remain
	// usable through their open descriptions until those are released.
	Remove(name string) error

	// Open opens name. It returns ENOENT if no such file exists.
	Open(name string) (*FileDescription, error)

	// Release releases the filesystem. No other method may be called
	// afterwards.
	Release() error
}

// FileDescriptionImpl contains implementation details for a
// FileDescription. Each FileDescriptionImpl owns its own file position.
type FileDescriptionImpl interface {
	// Read reads from the current position, advancing it by the number of
	// bytes read. At end of file Read returns 0 and a nil error.
	Read(dst []byte) (int, error)

	// Write writes at the current position, advancing it by the number of
	// bytes written. Writing is truncated at the end of a file that cannot
	// grow.
	Write(src []byte) (int, error)

	// Seek sets the position. Positions past the end of file are allowed.
	Seek(offset int64)

	// Tell returns the position.
	Tell() int64

	// Length returns the current size of the file.
	Length() (int64, error)

	// Release is called when the FileDescription is released.
	Release() error
}

// FileDescription represents an open file. It is released exactly once, by
// DecRef.
type FileDescription struct {
	impl FileDescriptionImpl
	name string

	// released is set by the first DecRef.
	released atomic.Bool
}

// NewFileDescription returns a FileDescription for an open file called name.
func NewFileDescription(name string, impl FileDescriptionImpl) *FileDescription {
	return &FileDescription{impl: impl, name: name}
}

// Name returns the name the file was opened with.
func (fd *FileDescription) Name() string {
	return fd.name
}

// Impl returns the FileDescriptionImpl associated with fd.
func (fd *FileDescription) Impl() FileDescriptionImpl {
	return fd.impl
}

// Read implements FileDescriptionImpl.Read.
func (fd *FileDescription) Read(dst []byte) (int, error) {
	return fd.impl.Read(dst)
}

// Write implements FileDescriptionImpl.Write.
func (fd *FileDescription) Write(src []byte) (int, error) {
	return fd.impl.Write(src)
}

// Seek implements FileDescriptionImpl.Seek.
func (fd *FileDescription) Seek(offset int64) {
	fd.impl.Seek(offset)
}

// Tell implements FileDescriptionImpl.Tell.
func (fd *FileDescription) Tell() int64 {
	return fd.impl.Tell()
}

// Length implements FileDescriptionImpl.Length.
func (fd *FileDescription) Length() (int64, error) {
	return fd.impl.Length()
}

// Released returns true if DecRef has been called.
func (fd *FileDescription) Released() bool {
	return fd.released.Load()
}

// DecRef releases fd. Only the first call has any effect.
func (fd *FileDescription) DecRef() error {
	if !fd.released.CompareAndSwap(false, true) {
		log.Warningf("file description %q released twice", fd.name)
		return nil
	}
	return fd.impl.Release()
}

// String implements fmt.Stringer.String.
func (fd *FileDescription) String() string {
	return fmt.Sprintf("%q@%d", fd.name, fd.impl.Tell())
}

// ValidateName checks a file name against the rules shared by all
// filesystems: non-empty, at most NAME_MAX bytes, and no path separators.
func ValidateName(name string) error {
	switch {
	case len(name) == 0:
		return kerr.ENOENT
	case len(name) > pintos.NAME_MAX:
		return kerr.ENAMETOOLONG
	case strings.ContainsRune(name, '/'):
		return kerr.EINVAL
	}
	return nil
}
