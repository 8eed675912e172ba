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
	"io"
	"runtime"
	"sync/atomic"

	"pintos.dev/pintos/pkg/sentry/vfs"
)

// Checker detects calls into the filesystem and the console that run at the
// same time. Every call through a wrapper it returns counts as a critical
// section; two sections in flight at once count as an overlap.
type Checker struct {
	inside   atomic.Int32
	calls    atomic.Int64
	overlaps atomic.Int64
}

// enter marks the start of a call. The returned function marks its end.
func (c *Checker) enter() func() {
	c.calls.Add(1)
	if c.inside.Add(1) > 1 {
		c.overlaps.Add(1)
	}
	// Widen the window for another goroutine to sneak in.
	runtime.Gosched()
	return func() { c.inside.Add(-1) }
}

// Calls returns the number of calls observed.
func (c *Checker) Calls() int64 {
	return c.calls.Load()
}

// Overlaps returns the number of calls that started while another was in
// flight.
func (c *Checker) Overlaps() int64 {
	return c.overlaps.Load()
}

// Filesystem wraps fs and the files it opens.
func (c *Checker) Filesystem(fs vfs.Filesystem) vfs.Filesystem {
	return &checkedFilesystem{c: c, fs: fs}
}

// Reader wraps r.
func (c *Checker) Reader(r io.Reader) io.Reader {
	return &checkedReader{c: c, r: r}
}

// Writer wraps w.
func (c *Checker) Writer(w io.Writer) io.Writer {
	return &checkedWriter{c: c, w: w}
}

type checkedFilesystem struct {
	c  *Checker
	fs vfs.Filesystem
}

// Name implements vfs.Filesystem.Name.
func (f *checkedFilesystem) Name() string {
	return f.fs.Name()
}

// Create implements vfs.Filesystem.Create.
func (f *checkedFilesystem) Create(name string, size int64) error {
	defer f.c.enter()()
	return f.fs.Create(name, size)
}

// Remove implements vfs.Filesystem.Remove.
func (f *checkedFilesystem) Remove(name string) error {
	defer f.c.enter()()
	return f.fs.Remove(name)
}

// Open implements vfs.Filesystem.Open.
func (f *checkedFilesystem) Open(name string) (*vfs.FileDescription, error) {
	defer f.c.enter()()
	fd, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return vfs.NewFileDescription(fd.Name(), &checkedFile{c: f.c, fd: fd}), nil
}

// Release implements vfs.Filesystem.Release.
func (f *checkedFilesystem) Release() error {
	return f.fs.Release()
}

type checkedFile struct {
	c  *Checker
	fd *vfs.FileDescription
}

// Read implements vfs.FileDescriptionImpl.Read.
func (f *checkedFile) Read(dst []byte) (int, error) {
	defer f.c.enter()()
	return f.fd.Read(dst)
}

// Write implements vfs.FileDescriptionImpl.Write.
func (f *checkedFile) Write(src []byte) (int, error) {
	defer f.c.enter()()
	return f.fd.Write(src)
}

// Seek implements vfs.FileDescriptionImpl.Seek.
func (f *checkedFile) Seek(offset int64) {
	defer f.c.enter()()
	f.fd.Seek(offset)
}

// Tell implements vfs.FileDescriptionImpl.Tell.
func (f *checkedFile) Tell() int64 {
	defer f.c.enter()()
	return f.fd.Tell()
}

// Length implements vfs.FileDescriptionImpl.Length.
func (f *checkedFile) Length() (int64, error) {
	defer f.c.enter()()
	return f.fd.Length()
}

// Release implements vfs.FileDescriptionImpl.Release.
func (f *checkedFile) Release() error {
	defer f.c.enter()()
	return f.fd.DecRef()
}

type checkedReader struct {
	c *Checker
	r io.Reader
}

// Read implements io.Reader.Read.
func (r *checkedReader) Read(p []byte) (int, error) {
	defer r.c.enter()()
	return r.r.Read(p)
}

type checkedWriter struct {
	c *Checker
	w io.Writer
}

// Write implements io.Writer.Write.
func (w *checkedWriter) Write(p []byte) (int, error) {
	defer w.c.enter()()
	return w.w.Write(p)
}
