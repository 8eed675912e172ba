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

// Package mm provides the per-process virtual address space: a page table
// and fault-safe copies in and out of user memory.
package mm

import (
	"sync"

	"github.com/google/btree"
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/usermem"
)

// btreeDegree is the degree of the page tree. Address spaces here hold tens
// of pages, so a small degree keeps nodes compact.
const btreeDegree = 8

// page is one present page of user memory.
type page struct {
	// addr is the page aligned start address. addr is immutable.
	addr hostarch.Addr

	// perms are the access permissions of the page.
	perms hostarch.AccessType

	// data is the page contents, PageSize bytes long.
	data []byte
}

func pageLess(a, b *page) bool {
	return a.addr < b.addr
}

// MemoryManager implements a virtual address space.
type MemoryManager struct {
	// mappingMu protects pages.
	mappingMu sync.RWMutex

	// pages is the page table, keyed by page address.
	//
	// +checklocks:mappingMu
	pages *btree.BTreeG[*page]

	// maxAddr is the exclusive upper bound of user addresses. maxAddr is
	// immutable.
	maxAddr hostarch.Addr
}

// NewMemoryManager returns a new MemoryManager with no mappings, covering the
// user address range [0, PHYS_BASE).
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		pages:   btree.NewG[*page](btreeDegree, pageLess),
		maxAddr: pintos.PHYS_BASE,
	}
}

// MaxAddr returns the exclusive upper bound of user addresses.
func (mm *MemoryManager) MaxAddr() hostarch.Addr {
	return mm.maxAddr
}

// Validator returns a usermem.Validator for this address space.
func (mm *MemoryManager) Validator() usermem.Validator {
	return usermem.Validator{PageTable: mm, Top: mm.maxAddr}
}

// PageAccess implements usermem.PageTable.PageAccess.
func (mm *MemoryManager) PageAccess(addr hostarch.Addr) (hostarch.AccessType, bool) {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	p, ok := mm.pages.Get(&page{addr: addr.RoundDown()})
	if !ok {
		return hostarch.NoAccess, false
	}
	return p.perms, true
}

// MapRange maps zero-filled pages over ar with the given permissions.
//
// ar must be page aligned, non-empty, must not include page zero, and must
// lie below MaxAddr. Pages already present in ar cause EEXIST and no change.
func (mm *MemoryManager) MapRange(ar hostarch.AddrRange, perms hostarch.AccessType) error {
	if !ar.WellFormed() || ar.Length() == 0 || !ar.IsPageAligned() || ar.Start == 0 || ar.End > mm.maxAddr {
		return kerr.EINVAL
	}
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()
	var err error
	mm.pages.AscendRange(&page{addr: ar.Start}, &page{addr: ar.End}, func(*page) bool {
		err = kerr.EEXIST
		return false
	})
	if err != nil {
		return err
	}
	ar.Pages(func(addr hostarch.Addr) bool {
		mm.pages.ReplaceOrInsert(&page{
			addr:  addr,
			perms: perms,
			data:  make([]byte, hostarch.PageSize),
		})
		return true
	})
	return nil
}

// Unmap removes every page that ar touches. Pages that are not present are
// ignored.
func (mm *MemoryManager) Unmap(ar hostarch.AddrRange) {
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()
	ar.Pages(func(addr hostarch.Addr) bool {
		mm.pages.Delete(&page{addr: addr})
		return true
	})
}

// Protect changes the permissions of every present page that ar touches.
func (mm *MemoryManager) Protect(ar hostarch.AddrRange, perms hostarch.AccessType) {
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()
	ar.Pages(func(addr hostarch.Addr) bool {
		if p, ok := mm.pages.Get(&page{addr: addr}); ok {
			p.perms = perms
		}
		return true
	})
}

// NumPages returns the number of present pages.
func (mm *MemoryManager) NumPages() int {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	return mm.pages.Len()
}

// Release unmaps every page. The MemoryManager may not be used afterwards.
func (mm *MemoryManager) Release() {
	mm.mappingMu.Lock()
	defer mm.mappingMu.Unlock()
	mm.pages.Clear(false)
}
