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

package vfs

import (
	"testing"

	"pintos.dev/pintos/pkg/errors/kerr"
)

type countingImpl struct {
	FileDescriptionImpl
	releases int
}

func (c *countingImpl) Release() error {
	c.releases++
	return nil
}

func TestDecRefReleasesOnce(t *testing.T) {
	impl := &countingImpl{}
	fd := NewFileDescription("a", impl)
	for i := 0; i < 3; i++ {
		if err := fd.DecRef(); err != nil {
			t.Fatalf("DecRef got err %v", err)
		}
	}
	if impl.releases != 1 {
		t.Errorf("Release called %d times, want 1", impl.releases)
	}
	if !fd.Released() {
		t.Errorf("Released() = false after DecRef")
	}
}

func TestValidateName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want error
	}{
		{"", kerr.ENOENT},
		{"a", nil},
		{"fourteen-chars", nil},
		{"fifteen-chars!!", kerr.ENAMETOOLONG},
		{"a/b", kerr.EINVAL},
	} {
		if got := ValidateName(tc.name); got != tc.want {
			t.Errorf("ValidateName(%q) got %v want %v", tc.name, got, tc.want)
		}
	}
}
