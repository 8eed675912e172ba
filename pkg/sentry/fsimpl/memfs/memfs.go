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

// Package memfs provides an in-memory filesystem with a single flat
// directory.
//
// Files are created with a fixed size. Writes past the end of a file are
// truncated unless the filesystem was created with Options.Grow, in which
// case the file is extended, zero filling any gap. File data is kept in
// blocks allocated on first write, so a file's size costs disk capacity but
// no memory until it is written. Removing a file only
// removes its name: descriptions that are already open continue to work and
// the space is reclaimed when the last of them is released.
package memfs

import (
	"fmt"
	"sort"

	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/sentry/vfs"
)

const (
	// Name is the default filesystem name for memfs.
	Name = "memfs"

	// DefaultCapacity is the capacity used when Options.Capacity is zero:
	// the size of a small Pintos disk.
	DefaultCapacity = 2 << 20

	blockSize = 4096
)

// Options configures a filesystem.
type Options struct {
	// Capacity is the total number of file bytes the filesystem can hold.
	// Zero means DefaultCapacity.
	Capacity int64

	// MaxFiles is the largest number of names the directory can hold. Zero
	// means unlimited.
	MaxFiles int

	// Grow allows writes to extend files.
	Grow bool
}

// inode is one file.
type inode struct {
	size int64

	// blocks holds the written blocks of the file, by block index. Missing
	// blocks read as zeroes.
	blocks map[int64][]byte

	// refs counts open descriptions.
	refs int

	// unlinked is set once the name has been removed.
	unlinked bool

	// freed is set once the space of an unlinked inode was given back.
	freed bool
}

// readAt copies the bytes at [off, off+len(dst)) into dst. The range must lie
// within the file.
func (in *inode) readAt(dst []byte, off int64) {
	for done := 0; done < len(dst); {
		pos := off + int64(done)
		idx, boff := pos/blockSize, pos%blockSize
		n := len(dst) - done
		if rem := int(blockSize - boff); n > rem {
			n = rem
		}
		if b, ok := in.blocks[idx]; ok {
			copy(dst[done:done+n], b[boff:])
		} else {
			clear(dst[done : done+n])
		}
		done += n
	}
}

// writeAt copies src to [off, off+len(src)). The range must lie within the
// file.
func (in *inode) writeAt(src []byte, off int64) {
	for done := 0; done < len(src); {
		pos := off + int64(done)
		idx, boff := pos/blockSize, pos%blockSize
		b, ok := in.blocks[idx]
		if !ok {
			b = make([]byte, blockSize)
			in.blocks[idx] = b
		}
		done += copy(b[boff:], src[done:])
	}
}

// Filesystem implements vfs.Filesystem.
//
// Filesystem is not safe for concurrent use.
type Filesystem struct {
	opts Options

	// files maps names to inodes.
	files map[string]*inode

	// used is the total size of all live inodes, linked or not.
	used int64
}

var _ vfs.Filesystem = (*Filesystem)(nil)

// New returns an empty filesystem.
func New(opts Options) *Filesystem {
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Filesystem{
		opts:  opts,
		files: make(map[string]*inode),
	}
}

// Name implements vfs.Filesystem.Name.
func (*Filesystem) Name() string {
	return Name
}

// Create implements vfs.Filesystem.Create.
func (fs *Filesystem) Create(name string, size int64) error {
	if err := vfs.ValidateName(name); err != nil {
		return err
	}
	if size < 0 {
		return kerr.EINVAL
	}
	if _, ok := fs.files[name]; ok {
		return kerr.EEXIST
	}
	if fs.opts.MaxFiles > 0 && len(fs.files) >= fs.opts.MaxFiles {
		return kerr.ENOSPC
	}
	if err := fs.reserve(size); err != nil {
		return err
	}
	fs.files[name] = &inode{size: size, blocks: make(map[int64][]byte)}
	return nil
}

// Remove implements vfs.Filesystem.Remove.
func (fs *Filesystem) Remove(name string) error {
	if err := vfs.ValidateName(name); err != nil {
		return err
	}
	in, ok := fs.files[name]
	if !ok {
		return kerr.ENOENT
	}
	delete(fs.files, name)
	in.unlinked = true
	fs.maybeFree(in)
	return nil
}

// Open implements vfs.Filesystem.Open.
func (fs *Filesystem) Open(name string) (*vfs.FileDescription, error) {
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}
	in, ok := fs.files[name]
	if !ok {
		return nil, kerr.ENOENT
	}
	in.refs++
	return vfs.NewFileDescription(name, &fileDescription{fs: fs, inode: in}), nil
}

// Release implements vfs.Filesystem.Release.
func (fs *Filesystem) Release() error {
	fs.files = nil
	return nil
}

// Names returns the names of all files in sorted order.
func (fs *Filesystem) Names() []string {
	names := make([]string, 0, len(fs.files))
	for name := range fs.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Used returns the number of bytes held by live files.
func (fs *Filesystem) Used() int64 {
	return fs.used
}

// String implements fmt.Stringer.String.
func (fs *Filesystem) String() string {
	return fmt.Sprintf("memfs{files: %d, used: %d/%d}", len(fs.files), fs.used, fs.opts.Capacity)
}

// reserve accounts for n more bytes of file data.
func (fs *Filesystem) reserve(n int64) error {
	if n > fs.opts.Capacity-fs.used {
		return kerr.ENOSPC
	}
	fs.used += n
	return nil
}

// maybeFree drops an inode that is both unlinked and no longer open.
func (fs *Filesystem) maybeFree(in *inode) {
	if in.unlinked && in.refs == 0 && !in.freed {
		fs.used -= in.size
		in.blocks = nil
		in.freed = true
	}
}

// fileDescription implements vfs.FileDescriptionImpl.
type fileDescription struct {
	fs    *Filesystem
	inode *inode
	off   int64
}

// Read implements vfs.FileDescriptionImpl.Read.
func (fd *fileDescription) Read(dst []byte) (int, error) {
	n := fd.span(len(dst))
	fd.inode.readAt(dst[:n], fd.off)
	fd.off += int64(n)
	return n, nil
}

// Write implements vfs.FileDescriptionImpl.Write.
func (fd *fileDescription) Write(src []byte) (int, error) {
	if end := fd.off + int64(len(src)); end > fd.inode.size && fd.fs.opts.Grow {
		if err := fd.fs.reserve(end - fd.inode.size); err != nil {
			return 0, kerr.EFBIG
		}
		fd.inode.size = end
	}
	n := fd.span(len(src))
	fd.inode.writeAt(src[:n], fd.off)
	fd.off += int64(n)
	return n, nil
}

// span returns how many of n bytes at the current offset lie within the file.
func (fd *fileDescription) span(n int) int {
	if fd.off < 0 || fd.off >= fd.inode.size {
		return 0
	}
	if rem := fd.inode.size - fd.off; int64(n) > rem {
		return int(rem)
	}
	return n
}

// Seek implements vfs.FileDescriptionImpl.Seek.
func (fd *fileDescription) Seek(offset int64) {
	fd.off = offset
}

// Tell implements vfs.FileDescriptionImpl.Tell.
func (fd *fileDescription) Tell() int64 {
	return fd.off
}

// Length implements vfs.FileDescriptionImpl.Length.
func (fd *fileDescription) Length() (int64, error) {
	return fd.inode.size, nil
}

// Release implements vfs.FileDescriptionImpl.Release.
func (fd *fileDescription) Release() error {
	fd.inode.refs--
	fd.fs.maybeFree(fd.inode)
	return nil
}
