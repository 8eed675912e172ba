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
	"testing"

	"github.com/google/go-cmp/cmp"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
)

const base = hostarch.Addr(0x10000)

func testMemoryManager(t *testing.T) *MemoryManager {
	t.Helper()
	mm := NewMemoryManager()
	if err := mm.MapRange(hostarch.AddrRange{Start: base, End: base + 2*hostarch.PageSize}, hostarch.ReadWrite); err != nil {
		t.Fatalf("MapRange got err %v want nil", err)
	}
	if err := mm.MapRange(hostarch.AddrRange{Start: base + 2*hostarch.PageSize, End: base + 3*hostarch.PageSize}, hostarch.Read); err != nil {
		t.Fatalf("MapRange got err %v want nil", err)
	}
	return mm
}

func TestMapRangeInvalid(t *testing.T) {
	mm := testMemoryManager(t)
	for _, tc := range []struct {
		name string
		ar   hostarch.AddrRange
		want error
	}{
		{"unaligned", hostarch.AddrRange{Start: 0x20001, End: 0x21000}, kerr.EINVAL},
		{"empty", hostarch.AddrRange{Start: 0x20000, End: 0x20000}, kerr.EINVAL},
		{"page zero", hostarch.AddrRange{Start: 0, End: hostarch.PageSize}, kerr.EINVAL},
		{"kernel", hostarch.AddrRange{Start: mm.MaxAddr(), End: mm.MaxAddr() + hostarch.PageSize}, kerr.EINVAL},
		{"overlap", hostarch.AddrRange{Start: base + hostarch.PageSize, End: base + 4*hostarch.PageSize}, kerr.EEXIST},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := mm.MapRange(tc.ar, hostarch.ReadWrite); err != tc.want {
				t.Errorf("MapRange(%v) got err %v want %v", tc.ar, err, tc.want)
			}
		})
	}
	if got := mm.NumPages(); got != 3 {
		t.Errorf("NumPages got %d want 3", got)
	}
}

func TestCopyAcrossPages(t *testing.T) {
	mm := testMemoryManager(t)
	addr := base + hostarch.PageSize - 3
	src := []byte("abcdefgh")
	if n, err := mm.CopyOut(addr, src); n != len(src) || err != nil {
		t.Fatalf("CopyOut got (%d, %v) want (%d, nil)", n, err, len(src))
	}
	dst := make([]byte, len(src))
	if n, err := mm.CopyIn(addr, dst); n != len(dst) || err != nil {
		t.Fatalf("CopyIn got (%d, %v) want (%d, nil)", n, err, len(dst))
	}
	if diff := cmp.Diff(src, dst); diff != "" {
		t.Errorf("CopyIn mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyPartialFault(t *testing.T) {
	mm := testMemoryManager(t)
	end := base + 3*hostarch.PageSize

	// The last mapped page is read-only, so writing stops at its start.
	n, err := mm.CopyOut(base+2*hostarch.PageSize-2, []byte("xyzw"))
	if n != 2 || err != kerr.EFAULT {
		t.Errorf("CopyOut into read-only page got (%d, %v) want (2, EFAULT)", n, err)
	}

	// Reading runs off the end of the mapping.
	n, err = mm.CopyIn(end-1, make([]byte, 2))
	if n != 1 || err != kerr.EFAULT {
		t.Errorf("CopyIn past mapping got (%d, %v) want (1, EFAULT)", n, err)
	}

	if n, err := mm.CopyIn(0, make([]byte, 1)); n != 0 || err != kerr.EFAULT {
		t.Errorf("CopyIn(0) got (%d, %v) want (0, EFAULT)", n, err)
	}
}

func TestIOAfterUnmap(t *testing.T) {
	mm := testMemoryManager(t)
	b := make([]byte, 1)
	if n, err := mm.CopyIn(base, b); n != 1 || err != nil {
		t.Errorf("CopyIn got (%d, %v) want (1, nil)", n, err)
	}
	mm.Unmap(hostarch.AddrRange{Start: base, End: base + 1})
	if n, err := mm.CopyIn(base, b); n != 0 || err != kerr.EFAULT {
		t.Errorf("CopyIn after Unmap got (%d, %v) want (0, EFAULT)", n, err)
	}
}

func TestIOAfterProtect(t *testing.T) {
	mm := testMemoryManager(t)
	if _, err := mm.CopyOut(base, []byte{1}); err != nil {
		t.Fatalf("CopyOut got err %v want nil", err)
	}
	mm.Protect(hostarch.AddrRange{Start: base, End: base + hostarch.PageSize}, hostarch.Read)
	if _, err := mm.CopyOut(base, []byte{1}); err != kerr.EFAULT {
		t.Errorf("CopyOut after Protect got err %v want EFAULT", err)
	}
	if err := mm.CheckIORange(base, 1, hostarch.Read); err != nil {
		t.Errorf("CheckIORange(read) got err %v want nil", err)
	}
}

func TestCopyInString(t *testing.T) {
	mm := testMemoryManager(t)
	// "edge" ends exactly at the end of the mapping, NUL included.
	edge := base + 3*hostarch.PageSize - 5
	mm.Protect(hostarch.AddrRange{Start: base + 2*hostarch.PageSize, End: base + 3*hostarch.PageSize}, hostarch.ReadWrite)
	if _, err := mm.CopyOut(edge, []byte("edge\x00")); err != nil {
		t.Fatalf("CopyOut got err %v want nil", err)
	}
	if _, err := mm.CopyOut(base, []byte("toolongname\x00")); err != nil {
		t.Fatalf("CopyOut got err %v want nil", err)
	}
	for _, tc := range []struct {
		name    string
		addr    hostarch.Addr
		maxlen  int
		want    string
		wantErr error
	}{
		{"ends at mapping end", edge, 64, "edge", nil},
		{"fits", base, 12, "toolongname", nil},
		{"too long", base, 11, "toolongname", kerr.ENAMETOOLONG},
		{"null", 0, 64, "", kerr.EFAULT},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mm.CopyInString(tc.addr, tc.maxlen)
			if got != tc.want || err != tc.wantErr {
				t.Errorf("CopyInString got (%q, %v) want (%q, %v)", got, err, tc.want, tc.wantErr)
			}
		})
	}

	// Overwrite the NUL so the string runs into the unmapped page.
	unterminated := base + 3*hostarch.PageSize - 3
	if _, err := mm.CopyOut(unterminated, []byte("abc")); err != nil {
		t.Fatalf("CopyOut got err %v want nil", err)
	}
	if got, err := mm.CopyInString(unterminated, 64); got != "abc" || err != kerr.EFAULT {
		t.Errorf("CopyInString got (%q, %v) want (\"abc\", EFAULT)", got, err)
	}
}

func TestMappings(t *testing.T) {
	mm := testMemoryManager(t)
	want := []Mapping{
		{AddrRange: hostarch.AddrRange{Start: base, End: base + 2*hostarch.PageSize}, Perms: hostarch.ReadWrite},
		{AddrRange: hostarch.AddrRange{Start: base + 2*hostarch.PageSize, End: base + 3*hostarch.PageSize}, Perms: hostarch.Read},
	}
	if diff := cmp.Diff(want, mm.Mappings()); diff != "" {
		t.Errorf("Mappings mismatch (-want +got):\n%s", diff)
	}
	if got, want := mm.String(), "00010000-00012000 rwp\n00012000-00013000 r-p\n"; got != want {
		t.Errorf("String got %q want %q", got, want)
	}
	mm.Release()
	if got := mm.NumPages(); got != 0 {
		t.Errorf("NumPages after Release got %d want 0", got)
	}
}
