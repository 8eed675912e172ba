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

package userprogs

import (
	"sort"
	"testing"

	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/sentry/loader"
)

func TestNames(t *testing.T) {
	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() is not sorted: %v", names)
	}
	if len(names) != len(allPrograms) {
		t.Errorf("Names(): got %d names, want %d", len(names), len(allPrograms))
	}
	for _, name := range names {
		if len(name) > loader.MaxNameLen+2 {
			t.Errorf("program name %q is too long", name)
		}
		if allPrograms[name].desc == "" {
			t.Errorf("program %q has no description", name)
		}
	}
}

func TestRegister(t *testing.T) {
	l := loader.New(loader.Options{})
	if err := Register(l); err != nil {
		t.Fatalf("Register(): %v", err)
	}
	for _, name := range []string{"echo", "shell", "child-simple", "sc-bad-sp"} {
		if _, ok := l.Lookup(name); !ok {
			t.Errorf("Lookup(%q): not found", name)
		}
	}
	if err := Register(l); !kerr.Equals(kerr.EEXIST, err) {
		t.Errorf("second Register(): got %v, want %v", err, kerr.EEXIST)
	}
}
