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

package pintos

import (
	abi "pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/vfs"
)

// boolResult converts the outcome of a filesystem call to true or false.
// Failures are logged but not reported as errors, since the caller sees
// false rather than -1.
func boolResult(t *kernel.Task, op string, err error) (uintptr, *kernel.SyscallControl, error) {
	if err != nil {
		t.Debugf("%s: %v", op, err)
		return abi.False, nil, nil
	}
	return abi.True, nil, nil
}

// Create implements CREATE.
func Create(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()
	size := args[1].Uint()

	name, err := copyInName(t, addr)
	if err != nil {
		if kerr.IsFault(err) {
			return 0, nil, err
		}
		return boolResult(t, "create", err)
	}

	fs := t.Kernel().Filesystem()
	t.Kernel().FilesysLock().Do(func() {
		err = fs.Create(name, int64(size))
	})
	return boolResult(t, "create", err)
}

// Remove implements REMOVE.
func Remove(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	name, err := copyInName(t, addr)
	if err != nil {
		if kerr.IsFault(err) {
			return 0, nil, err
		}
		return boolResult(t, "remove", err)
	}

	fs := t.Kernel().Filesystem()
	t.Kernel().FilesysLock().Do(func() {
		err = fs.Remove(name)
	})
	return boolResult(t, "remove", err)
}

// Open implements OPEN.
func Open(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	addr := args[0].Pointer()

	name, err := copyInName(t, addr)
	if err != nil {
		return 0, nil, err
	}

	var file *vfs.FileDescription
	lock := t.Kernel().FilesysLock()
	fs := t.Kernel().Filesystem()
	lock.Do(func() {
		file, err = fs.Open(name)
	})
	if err != nil {
		return 0, nil, err
	}

	fd, err := t.FDTable().Add(file)
	if err != nil {
		lock.Do(func() {
			file.DecRef()
		})
		return 0, nil, err
	}
	return uintptr(fd), nil, nil
}

// getFile returns the open file for fd. The console descriptors are never in
// the table.
func getFile(t *kernel.Task, fd int32) (*vfs.FileDescription, error) {
	file := t.FDTable().Get(fd)
	if file == nil {
		return nil, kerr.EBADF
	}
	return file, nil
}

// Filesize implements FILESIZE.
func Filesize(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}

	var size int64
	t.Kernel().FilesysLock().Do(func() {
		size, err = file.Length()
	})
	if err != nil {
		return 0, nil, err
	}
	return uintptr(size), nil, nil
}

// Seek implements SEEK.
func Seek(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	pos := args[1].Uint()

	file, err := getFile(t, fd)
	if err != nil {
		t.Debugf("seek: ignoring fd %d: %v", fd, err)
		return 0, kernel.CtrlIgnoreReturn, nil
	}

	t.Kernel().FilesysLock().Do(func() {
		file.Seek(int64(pos))
	})
	return 0, kernel.CtrlIgnoreReturn, nil
}

// Tell implements TELL.
func Tell(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}

	var pos int64
	t.Kernel().FilesysLock().Do(func() {
		pos = file.Tell()
	})
	return uintptr(pos), nil, nil
}

// Close implements CLOSE.
func Close(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()

	file := t.FDTable().Remove(fd)
	if file == nil {
		t.Debugf("close: ignoring unknown fd %d", fd)
		return 0, kernel.CtrlIgnoreReturn, nil
	}

	var err error
	t.Kernel().FilesysLock().Do(func() {
		err = file.DecRef()
	})
	if err != nil {
		t.Warningf("close: fd %d: %v", fd, err)
	}
	return 0, kernel.CtrlIgnoreReturn, nil
}
