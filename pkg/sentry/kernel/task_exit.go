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

package kernel

import (
	"fmt"
	"runtime"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
)

// PrepareExit sets the status that the exit path will report. It does not
// start the exit path.
func (t *Task) PrepareExit(status int32) {
	t.exitStatus = status
}

// Exit terminates t with the given status. It prints "name: exit(status)" to
// the console, releases every open file, records the status for a live
// parent, and stops the task goroutine. Exit never returns.
//
// Preconditions: The caller must be running on the task goroutine, and must
// not hold the FilesysLock.
func (t *Task) Exit(status int32) {
	t.PrepareExit(status)
	t.doExit()
}

// PageFault terminates t for an invalid access by user code itself.
func (t *Task) PageFault(addr hostarch.Addr, at hostarch.AccessType) {
	t.k.faultLogger.Warningf("%s: page fault at %v (%v)", t, addr, at)
	t.k.faultsMetric.Increment("user")
	t.Exit(pintos.Error)
}

func (t *Task) doExit() {
	t.runExitPath()
	runtime.Goexit()
}

// runExitPath runs the exit path. Only the first call has any effect.
func (t *Task) runExitPath() {
	if t.exitStarted {
		return
	}
	t.exitStarted = true
	msg := fmt.Sprintf("%s: exit(%d)\n", t.name, t.exitStatus)
	t.k.filesysLock.Do(func() {
		if _, err := t.k.console.Putbuf([]byte(msg)); err != nil {
			t.Warningf("error writing exit message: %v", err)
		}
	})
	t.Debugf("exit(%d)", t.exitStatus)
	t.releaseFiles()
	t.k.exitsMetric.Increment()

	ts := t.k.tasks
	ts.mu.Lock()
	ts.exitLocked(t)
	ts.mu.Unlock()
}

// halt stops t after the machine has powered off. No exit message is
// printed.
func (t *Task) halt() {
	runtime.Goexit()
}

// releaseFiles closes every open file, one lock acquisition per file.
func (t *Task) releaseFiles() {
	for _, f := range t.fdTable.RemoveAll() {
		t.k.filesysLock.Do(func() {
			if err := f.DecRef(); err != nil {
				t.Warningf("error closing %s: %v", f.Name(), err)
			}
		})
	}
}
