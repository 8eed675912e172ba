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
	"pintos.dev/pintos/pkg/abi/pintos"
)

// run is the task goroutine.
func (t *Task) run() {
	defer t.k.tasks.running.Done()
	defer t.mm.Release()
	defer func() {
		// recover returns nil when the goroutine is stopped by
		// runtime.Goexit, so only panics in user code end up here.
		if r := recover(); r != nil {
			t.k.faultLogger.Warningf("%s: killed by panic in user code: %v", t, r)
			t.k.faultsMetric.Increment("user")
			t.PrepareExit(pintos.Error)
			t.runExitPath()
			return
		}
		if !t.exitStarted {
			// Stopped by halt: release resources without an exit
			// message.
			t.releaseFiles()
			ts := t.k.tasks
			ts.mu.Lock()
			t.exitStatus = pintos.Error
			ts.exitLocked(t)
			ts.mu.Unlock()
		}
	}()

	t.entry(t, t.sp)

	// User code must leave through the exit syscall.
	t.k.faultLogger.Warningf("%s: returned from its entry point without exiting", t)
	t.Exit(pintos.Error)
}
