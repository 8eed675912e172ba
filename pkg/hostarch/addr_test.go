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

package hostarch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddLength(t *testing.T) {
	for _, tc := range []struct {
		addr   Addr
		length uint64
		end    Addr
		ok     bool
	}{
		{0x1000, 0x10, 0x1010, true},
		{0, 0, 0, true},
		{^Addr(0), 1, 0, false},
		{^Addr(0) - 1, 1, ^Addr(0), true},
	} {
		end, ok := tc.addr.AddLength(tc.length)
		if end != tc.end || ok != tc.ok {
			t.Errorf("%v.AddLength(%#x): got (%v, %v), want (%v, %v)", tc.addr, tc.length, end, ok, tc.end, tc.ok)
		}
	}
}

func TestRounding(t *testing.T) {
	for _, tc := range []struct {
		addr Addr
		down Addr
		up   Addr
	}{
		{0, 0, 0},
		{1, 0, PageSize},
		{PageSize - 1, 0, PageSize},
		{PageSize, PageSize, PageSize},
		{PageSize + 1, PageSize, 2 * PageSize},
	} {
		if got := tc.addr.RoundDown(); got != tc.down {
			t.Errorf("%v.RoundDown(): got %v, want %v", tc.addr, got, tc.down)
		}
		if got, ok := tc.addr.RoundUp(); !ok || got != tc.up {
			t.Errorf("%v.RoundUp(): got (%v, %v), want (%v, true)", tc.addr, got, ok, tc.up)
		}
	}
	if _, ok := (^Addr(0)).RoundUp(); ok {
		t.Errorf("RoundUp of the last address succeeded, want wraparound")
	}
}

func TestPages(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    AddrRange
		want []Addr
	}{
		{
			name: "empty",
			r:    AddrRange{0x1800, 0x1800},
			want: nil,
		},
		{
			name: "within one page",
			r:    AddrRange{0x1004, 0x1008},
			want: []Addr{0x1000},
		},
		{
			name: "word straddling a boundary",
			r:    AddrRange{0x1ffe, 0x2002},
			want: []Addr{0x1000, 0x2000},
		},
		{
			name: "ends exactly at a boundary",
			r:    AddrRange{0x1000, 0x3000},
			want: []Addr{0x1000, 0x2000},
		},
		{
			name: "three pages",
			r:    AddrRange{0x1fff, 0x3001},
			want: []Addr{0x1000, 0x2000, 0x3000},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got []Addr
			tc.r.Pages(func(page Addr) bool {
				got = append(got, page)
				return true
			})
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%v.Pages() mismatch (-want +got):\n%s", tc.r, diff)
			}
		})
	}
}

func TestPagesStopsEarly(t *testing.T) {
	var n int
	AddrRange{0, 10 * PageSize}.Pages(func(Addr) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Errorf("Pages visited %d pages after stop, want 3", n)
	}
}

func TestAccessType(t *testing.T) {
	if !ReadWrite.SupersetOf(Read) {
		t.Errorf("ReadWrite.SupersetOf(Read) = false, want true")
	}
	if Read.SupersetOf(Write) {
		t.Errorf("Read.SupersetOf(Write) = true, want false")
	}
	if got, want := Read.String(), "r-"; got != want {
		t.Errorf("Read.String() = %q, want %q", got, want)
	}
}
