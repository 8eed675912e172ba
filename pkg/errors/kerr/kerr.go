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

// Package kerr contains kernel error codes exported as error interface
// pointers. This allows for fast comparison and return operations.
package kerr

import (
	goerrors "errors"

	"pintos.dev/pintos/pkg/errors"
)

// Error numbers. The values follow the Linux numbering so that logs read
// familiarly; user code never sees them, since every failure it observes is
// either -1 or process termination.
const (
	errnoENOENT       errors.Errno = 2
	errnoESRCH        errors.Errno = 3
	errnoE2BIG        errors.Errno = 7
	errnoEIO          errors.Errno = 5
	errnoEBADF        errors.Errno = 9
	errnoECHILD       errors.Errno = 10
	errnoENOMEM       errors.Errno = 12
	errnoEFAULT       errors.Errno = 14
	errnoEEXIST       errors.Errno = 17
	errnoEINVAL       errors.Errno = 22
	errnoEMFILE       errors.Errno = 24
	errnoEFBIG        errors.Errno = 27
	errnoENOSPC       errors.Errno = 28
	errnoENAMETOOLONG errors.Errno = 36
	errnoENOSYS       errors.Errno = 38
	errnoENOEXEC      errors.Errno = 8
)

// The following errors are returned by kernel and filesystem code.
var (
	ENOENT       = errors.New(errnoENOENT, "no such file or directory")
	ESRCH        = errors.New(errnoESRCH, "no such process")
	EIO          = errors.New(errnoEIO, "I/O error")
	E2BIG        = errors.New(errnoE2BIG, "argument list too long")
	ENOEXEC      = errors.New(errnoENOEXEC, "exec format error")
	EBADF        = errors.New(errnoEBADF, "bad file number")
	ECHILD       = errors.New(errnoECHILD, "no child processes")
	ENOMEM       = errors.New(errnoENOMEM, "out of memory")
	EFAULT       = errors.New(errnoEFAULT, "bad address")
	EEXIST       = errors.New(errnoEEXIST, "file exists")
	EINVAL       = errors.New(errnoEINVAL, "invalid argument")
	EMFILE       = errors.New(errnoEMFILE, "too many open files")
	EFBIG        = errors.New(errnoEFBIG, "file too large")
	ENOSPC       = errors.New(errnoENOSPC, "no space left on device")
	ENAMETOOLONG = errors.New(errnoENAMETOOLONG, "file name too long")
	ENOSYS       = errors.New(errnoENOSYS, "invalid system call number")
)

// Equals returns true if the error e is, or wraps, the sentinel err.
func Equals(e *errors.Error, err error) bool {
	return goerrors.Is(err, e)
}

// IsFault returns true if err reports an invalid user memory access. Faults
// are never returned to user code; they terminate the faulting process.
func IsFault(err error) bool {
	return Equals(EFAULT, err)
}

// ToErrno returns the errno carried by err, or EIO's errno if err does not
// carry one.
func ToErrno(err error) errors.Errno {
	var e *errors.Error
	if goerrors.As(err, &e) {
		return e.Errno()
	}
	return EIO.Errno()
}
