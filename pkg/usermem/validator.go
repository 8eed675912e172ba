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

// Package usermem governs access to user memory.
//
// Every user address that the kernel dereferences on behalf of a task is
// first proven safe by a Validator: it must be non-null, lie below the top of
// the user address space, and be backed by a present page whose permissions
// allow the access.
package usermem

import (
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
)

// PageTable is the page table lookup predicate consumed by Validator.
type PageTable interface {
	// PageAccess returns the permissions of the present page beginning at
	// page, or false if no page is present there. page is page aligned.
	PageAccess(page hostarch.Addr) (hostarch.AccessType, bool)
}

// Validator checks user addresses against a task's page table.
//
// Validator is a pure predicate: it never reads user memory.
type Validator struct {
	// PageTable is the calling task's page table.
	PageTable PageTable

	// Top is the exclusive upper bound of the user address space.
	Top hostarch.Addr
}

// IsValid returns true if addr may be read by the kernel.
func (v Validator) IsValid(addr hostarch.Addr) bool {
	return v.Check(addr, 1, hostarch.Read) == nil
}

// Check returns nil if every byte of [addr, addr+length) may be accessed with
// at, and kerr.EFAULT otherwise. A zero length range is checked as the single
// byte at addr, so a null or unmapped buffer is rejected even when empty.
func (v Validator) Check(addr hostarch.Addr, length uint64, at hostarch.AccessType) error {
	if addr == 0 {
		return kerr.EFAULT
	}
	if length == 0 {
		length = 1
	}
	ar, ok := addr.ToRange(length)
	if !ok || ar.End > v.Top {
		return kerr.EFAULT
	}
	var err error
	ar.Pages(func(page hostarch.Addr) bool {
		perms, present := v.PageTable.PageAccess(page)
		if !present || !perms.SupersetOf(at) {
			err = kerr.EFAULT
			return false
		}
		return true
	})
	return err
}

// CheckRange is Check over an AddrRange.
func (v Validator) CheckRange(ar hostarch.AddrRange, at hostarch.AccessType) error {
	if !ar.WellFormed() {
		return kerr.EFAULT
	}
	return v.Check(ar.Start, uint64(ar.Length()), at)
}
