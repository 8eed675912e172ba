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

package usermem

import (
	"bytes"

	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
)

// IO provides access to the contents of a virtual memory space.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(addr hostarch.Addr, src []byte) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(addr hostarch.Addr, dst []byte) (int, error)
}

// IOReadWriter is an io.ReadWriter that reads from / writes to addresses
// starting at Addr in IO.
type IOReadWriter struct {
	IO   IO
	Addr hostarch.Addr
}

// Read implements io.Reader.Read.
//
// Note that an address space does not have an "end of file". Attempts to read
// unmapped memory, or beyond the end of the address space, return EFAULT.
func (rw *IOReadWriter) Read(dst []byte) (int, error) {
	n, err := rw.IO.CopyIn(rw.Addr, dst)
	rw.advance(n)
	return n, err
}

// Write implements io.Writer.Write.
func (rw *IOReadWriter) Write(src []byte) (int, error) {
	n, err := rw.IO.CopyOut(rw.Addr, src)
	rw.advance(n)
	return n, err
}

func (rw *IOReadWriter) advance(n int) {
	end, ok := rw.Addr.AddLength(uint64(n))
	if !ok {
		// Disallow wraparound.
		end = ^hostarch.Addr(0)
	}
	rw.Addr = end
}

// CopyUint32In reads one little-endian word from addr.
func CopyUint32In(uio IO, addr hostarch.Addr) (uint32, error) {
	var buf [4]byte
	if _, err := uio.CopyIn(addr, buf[:]); err != nil {
		return 0, err
	}
	return hostarch.ByteOrder.Uint32(buf[:]), nil
}

// CopyUint32Out writes one little-endian word to addr.
func CopyUint32Out(uio IO, addr hostarch.Addr, v uint32) error {
	var buf [4]byte
	hostarch.ByteOrder.PutUint32(buf[:], v)
	_, err := uio.CopyOut(addr, buf[:])
	return err
}

// CopyStringIn copies a NUL-terminated string of unknown length from the
// memory mapped at addr in uio and returns it as a string (not including the
// trailing NUL). If the length of the string, including the terminating NUL,
// would exceed maxlen, CopyStringIn returns the string truncated to maxlen and
// kerr.ENAMETOOLONG.
//
// The string is copied one page at a time, so a string that ends just before
// an unmapped page is accepted and a string that runs into one faults.
func CopyStringIn(uio IO, addr hostarch.Addr, maxlen int) (string, error) {
	buf := make([]byte, 0, min(maxlen, hostarch.PageSize))
	for len(buf) < maxlen {
		end, ok := addr.AddLength(1)
		if !ok {
			return string(buf), kerr.EFAULT
		}
		next, ok := end.RoundUp()
		if !ok {
			next = ^hostarch.Addr(0)
		}
		readlen := min(int(next-addr), maxlen-len(buf))
		chunk := make([]byte, readlen)
		n, err := uio.CopyIn(addr, chunk)
		if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
			return string(append(buf, chunk[:i]...)), nil
		}
		buf = append(buf, chunk[:n]...)
		if err != nil {
			return string(buf), err
		}
		addr += hostarch.Addr(n)
	}
	return string(buf), kerr.ENAMETOOLONG
}
