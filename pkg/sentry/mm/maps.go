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
	"fmt"
	"strings"

	"pintos.dev/pintos/pkg/hostarch"
)

// Mapping is one run of contiguous pages with identical permissions.
type Mapping struct {
	hostarch.AddrRange
	Perms hostarch.AccessType
}

// String formats m in the style of a /proc/[pid]/maps line.
func (m Mapping) String() string {
	return fmt.Sprintf("%08x-%08x %sp", uintptr(m.Start), uintptr(m.End), m.Perms)
}

// Mappings returns the address space as a list of maximal runs of pages, in
// ascending address order.
func (mm *MemoryManager) Mappings() []Mapping {
	mm.mappingMu.RLock()
	defer mm.mappingMu.RUnlock()
	var ms []Mapping
	mm.pages.Ascend(func(p *page) bool {
		if n := len(ms); n > 0 && ms[n-1].End == p.addr && ms[n-1].Perms == p.perms {
			ms[n-1].End += hostarch.PageSize
			return true
		}
		ms = append(ms, Mapping{
			AddrRange: hostarch.AddrRange{Start: p.addr, End: p.addr + hostarch.PageSize},
			Perms:     p.perms,
		})
		return true
	})
	return ms
}

// String returns all mappings, one per line.
func (mm *MemoryManager) String() string {
	var b strings.Builder
	for _, m := range mm.Mappings() {
		fmt.Fprintln(&b, m)
	}
	return b.String()
}
