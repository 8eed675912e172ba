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
	"io"

	abi "pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// Read implements READ.
func Read(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	// The whole destination must be writable before anything is read.
	if err := t.CheckIORange(addr, uint64(size), hostarch.Write); err != nil {
		return 0, nil, err
	}

	switch fd {
	case abi.STDIN_FILENO:
		return readConsole(t, addr, size)
	case abi.STDOUT_FILENO:
		return 0, nil, kerr.EBADF
	}

	file, err := getFile(t, fd)
	if err != nil {
		return 0, nil, err
	}

	buf := make([]byte, size)
	var n int
	t.Kernel().FilesysLock().Do(func() {
		n, err = file.Read(buf)
	})
	if err != nil {
		return 0, nil, err
	}
	if _, err := t.CopyOut(addr, buf[:n]); err != nil {
		return 0, nil, err
	}
	return uintptr(n), nil, nil
}

// readConsole reads size bytes of console input into addr, one byte per lock
// acquisition. End of input ends the read early.
func readConsole(t *kernel.Task, addr hostarch.Addr, size uint) (uintptr, *kernel.SyscallControl, error) {
	cons := t.Kernel().Console()
	lock := t.Kernel().FilesysLock()
	var done uint
	for done < size {
		var (
			b   byte
			err error
		)
		lock.Do(func() {
			b, err = cons.Getc()
		})
		if err == io.EOF {
			break
		}
		if err != nil {
			if done > 0 {
				break
			}
			return 0, nil, err
		}
		if _, err := t.CopyOut(addr+hostarch.Addr(done), []byte{b}); err != nil {
			return 0, nil, err
		}
		done++
	}
	return uintptr(done), nil, nil
}

// Write implements WRITE.
func Write(t *kernel.Task, args arch.SyscallArguments) (uintptr, *kernel.SyscallControl, error) {
	fd := args[0].Int()
	addr := args[1].Pointer()
	size := args[2].SizeT()

	if err := t.CheckIORange(addr, uint64(size), hostarch.Read); err != nil {
		return 0, nil, err
	}
	buf := make([]byte, size)
	if _, err := t.CopyIn(addr, buf); err != nil {
		return 0, nil, err
	}

	var (
		n   int
		err error
	)
	switch fd {
	case abi.STDOUT_FILENO:
		cons := t.Kernel().Console()
		t.Kernel().FilesysLock().Do(func() {
			n, err = cons.Putbuf(buf)
		})
	case abi.STDIN_FILENO:
		return 0, nil, kerr.EBADF
	default:
		file, ferr := getFile(t, fd)
		if ferr != nil {
			return 0, nil, ferr
		}
		t.Kernel().FilesysLock().Do(func() {
			n, err = file.Write(buf)
		})
	}
	if err != nil && n == 0 {
		return 0, nil, err
	}
	return uintptr(n), nil, nil
}
