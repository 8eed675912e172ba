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

package mm

import (
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/usermem"
)

// CheckIORange returns nil if every byte of [addr, addr+length) is present and
// accessible with at, and EFAULT otherwise. It reads no memory.
func (mm *MemoryManager) CheckIORange(addr hostarch.Addr, length uint64, at hostarch.AccessType) error {
	return mm.Validator().Check(addr, length, at)
}

// CopyOut implements usermem.IO.CopyOut.
//
// CopyOut copies page by page and stops at the first page that is not present
// or not writable, returning the number of bytes copied so far and EFAULT.
func (mm *MemoryManager) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	return mm.copy(addr, len(src), hostarch.Write, func(data []byte, done int) {
		copy(data, src[done:])
	})
}

// CopyIn implements usermem.IO.CopyIn.
func (mm *MemoryManager) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	return mm.copy(addr, len(dst), hostarch.Read, func(data []byte, done int) {
		copy(dst[done:], data)
	})
}

// CopyInString copies a NUL-terminated string of at most maxlen bytes,
// including the NUL, from addr.
func (mm *MemoryManager) CopyInString(addr hostarch.Addr, maxlen int) (string, error) {
	return usermem.CopyStringIn(mm, addr, maxlen)
}

// copy walks [addr, addr+length) one page at a time, calling fn with the
// slice of each page's data that falls in the range and the number of bytes
// already handled.
func (mm *MemoryManager) copy(addr hostarch.Addr, length int, at hostarch.AccessType, fn func(data []byte, done int)) (int, error) {
	if length == 0 {
		return 0, nil
	}
	if addr == 0 {
		return 0, kerr.EFAULT
	}
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	done := 0
	for done < length {
		cur, ok := addr.AddLength(uint64(done))
		if !ok || cur >= mm.maxAddr {
			return done, kerr.EFAULT
		}
		p, ok := mm.pages.Get(&page{addr: cur.RoundDown()})
		if !ok || !p.perms.SupersetOf(at) {
			return done, kerr.EFAULT
		}
		off := int(cur.PageOffset())
		n := min(length-done, hostarch.PageSize-off)
		fn(p.data[off:off+n], done)
		done += n
	}
	return done, nil
}
