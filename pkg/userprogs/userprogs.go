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

// Package userprogs contains the user programs that ship with the kernel:
// small utilities and the probes that exercise each system call.
package userprogs

import (
	"sort"

	"pintos.dev/pintos/pkg/sentry/loader"
	"pintos.dev/pintos/pkg/userlib"
)

// program describes one user program.
type program struct {
	name string
	desc string
	main userlib.Main
}

// allPrograms is every program in this package, keyed by name.
var allPrograms = make(map[string]program)

func register(ps ...program) {
	for _, p := range ps {
		if _, ok := allPrograms[p.name]; ok {
			panic("duplicate program " + p.name)
		}
		allPrograms[p.name] = p
	}
}

// Names returns the names of every program, sorted.
func Names() []string {
	names := make([]string, 0, len(allPrograms))
	for name := range allPrograms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds every program to l.
func Register(l *loader.Loader) error {
	for _, name := range Names() {
		p := allPrograms[name]
		if err := l.Register(loader.Program{
			Name:        p.name,
			Description: p.desc,
			Entry:       userlib.Start(p.main),
		}); err != nil {
			return err
		}
	}
	return nil
}
