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

// Package hostfs provides a filesystem backed by a directory on the host.
// Every guest file is one regular host file in that directory.
//
// The directory is locked for the lifetime of the Filesystem so that two
// machines never share it.
package hostfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/sentry/vfs"
)

// Name is the default filesystem name for hostfs.
const Name = "hostfs"

// lockFilename is the lock file inside the root directory. Its name is longer
// than any valid guest file name, so it can never be opened from the guest.
const lockFilename = ".pintos-hostfs.lock"

// Options configures a filesystem.
type Options struct {
	// Grow allows writes to extend files.
	Grow bool

	// LockTimeout bounds how long New waits for the directory lock.
	LockTimeout time.Duration
}

// Filesystem implements vfs.Filesystem.
type Filesystem struct {
	opts Options
	root string

	// rootFD is an O_PATH descriptor for the root directory. All file
	// operations are relative to it.
	rootFD int

	lock *flock.Flock
}

var _ vfs.Filesystem = (*Filesystem)(nil)

// New opens root, creating it if needed, and locks it.
func New(ctx context.Context, root string, opts Options) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("error creating hostfs root %q: %w", root, err)
	}
	if opts.LockTimeout == 0 {
		opts.LockTimeout = time.Second
	}
	l := flock.New(filepath.Join(root, lockFilename))
	ctx, cancel := context.WithTimeout(ctx, opts.LockTimeout)
	defer cancel()
	b := backoff.WithContext(backoff.NewConstantBackOff(50*time.Millisecond), ctx)
	op := func() error {
		locked, err := l.TryLock()
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("hostfs root %q is in use", root)
		}
		return nil
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, fmt.Errorf("error locking hostfs root %q: %w", root, err)
	}

	rootFD, err := unix.Open(root, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		l.Unlock()
		return nil, fmt.Errorf("error opening hostfs root %q: %w", root, err)
	}
	log.Infof("hostfs: serving %q", root)
	return &Filesystem{
		opts:   opts,
		root:   root,
		rootFD: rootFD,
		lock:   l,
	}, nil
}

// Name implements vfs.Filesystem.Name.
func (*Filesystem) Name() string {
	return Name
}

// Root returns the host directory.
func (fs *Filesystem) Root() string {
	return fs.root
}

// Create implements vfs.Filesystem.Create.
func (fs *Filesystem) Create(name string, size int64) error {
	if err := vfs.ValidateName(name); err != nil {
		return err
	}
	if size < 0 {
		return kerr.EINVAL
	}
	fd, err := unix.Openat(fs.rootFD, name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0644)
	if err != nil {
		return translateError(err)
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Unlinkat(fs.rootFD, name, 0)
		return translateError(err)
	}
	return nil
}

// Remove implements vfs.Filesystem.Remove.
func (fs *Filesystem) Remove(name string) error {
	if err := vfs.ValidateName(name); err != nil {
		return err
	}
	return translateError(unix.Unlinkat(fs.rootFD, name, 0))
}

// Open implements vfs.Filesystem.Open.
func (fs *Filesystem) Open(name string) (*vfs.FileDescription, error) {
	if err := vfs.ValidateName(name); err != nil {
		return nil, err
	}
	fd, err := unix.Openat(fs.rootFD, name, unix.O_RDWR|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, translateError(err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, translateError(err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		unix.Close(fd)
		return nil, kerr.ENOENT
	}
	return vfs.NewFileDescription(name, &fileDescription{fs: fs, hostFD: fd}), nil
}

// Names returns the names of all guest files in sorted order.
func (fs *Filesystem) Names() ([]string, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && vfs.ValidateName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Release implements vfs.Filesystem.Release.
func (fs *Filesystem) Release() error {
	err := unix.Close(fs.rootFD)
	if uerr := fs.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// translateError maps host errors onto kernel errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("%w: %v", kerr.EIO, err)
	}
	switch errno {
	case unix.ENOENT, unix.ELOOP, unix.EISDIR:
		return kerr.ENOENT
	case unix.EEXIST:
		return kerr.EEXIST
	case unix.ENOSPC, unix.EDQUOT:
		return kerr.ENOSPC
	case unix.EFBIG:
		return kerr.EFBIG
	case unix.ENAMETOOLONG:
		return kerr.ENAMETOOLONG
	default:
		return fmt.Errorf("%w: %v", kerr.EIO, errno)
	}
}

// fileDescription implements vfs.FileDescriptionImpl over a host file.
type fileDescription struct {
	fs     *Filesystem
	hostFD int
	off    int64
}

func (fd *fileDescription) size() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd.hostFD, &st); err != nil {
		return 0, translateError(err)
	}
	return st.Size, nil
}

// Read implements vfs.FileDescriptionImpl.Read.
func (fd *fileDescription) Read(dst []byte) (int, error) {
	done := 0
	for done < len(dst) {
		n, err := unix.Pread(fd.hostFD, dst[done:], fd.off+int64(done))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			fd.off += int64(done)
			return done, translateError(err)
		}
		if n == 0 {
			break
		}
		done += n
	}
	fd.off += int64(done)
	return done, nil
}

// Write implements vfs.FileDescriptionImpl.Write.
func (fd *fileDescription) Write(src []byte) (int, error) {
	if !fd.fs.opts.Grow {
		size, err := fd.size()
		if err != nil {
			return 0, err
		}
		if fd.off >= size {
			return 0, nil
		}
		src = src[:min(int64(len(src)), size-fd.off)]
	}
	done := 0
	for done < len(src) {
		n, err := unix.Pwrite(fd.hostFD, src[done:], fd.off+int64(done))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			fd.off += int64(done)
			return done, translateError(err)
		}
		done += n
	}
	fd.off += int64(done)
	return done, nil
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
	return fd.size()
}

// Release implements vfs.FileDescriptionImpl.Release.
func (fd *fileDescription) Release() error {
	return translateError(unix.Close(fd.hostFD))
}
