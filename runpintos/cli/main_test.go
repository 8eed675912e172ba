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

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"pintos.dev/pintos/pkg/log"
)

func TestCommands(t *testing.T) {
	var names []string
	forEachCmd(func(cmd subcommands.Command, _ string) {
		names = append(names, cmd.Name())
	})
	want := map[string]bool{"help": true, "flags": true, "run": true, "programs": true, "syscalls": true}
	if len(names) != len(want) {
		t.Errorf("forEachCmd: got %v, want %d commands", names, len(want))
	}
	for _, name := range names {
		if !want[name] {
			t.Errorf("forEachCmd: unexpected command %q", name)
		}
	}
}

func TestNewEmitter(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, format := range []string{"text", "json", "json-k8s"} {
		t.Run(format, func(t *testing.T) {
			var b bytes.Buffer
			newEmitter(format, &b).Emit(0, log.Info, ts, "hello %d", 7)
			out := b.String()
			if !strings.Contains(out, "hello 7") {
				t.Errorf("newEmitter(%q): output %q does not contain the message", format, out)
			}
			if format != "text" && !json.Valid(bytes.TrimSpace(b.Bytes())) {
				t.Errorf("newEmitter(%q): output %q is not JSON", format, out)
			}
		})
	}
}
