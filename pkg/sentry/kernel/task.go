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

	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/sentry/mm"
)

// ThreadID is a task identifier, also used as the process identifier.
type ThreadID int32

// Task represents a process: one thread of user code, its address space and
// its open files.
//
// Each Task runs on its own task goroutine. Fields without a note are owned
// by the task goroutine.
type Task struct {
	k *Kernel

	// tid is the task's identifier. tid is immutable.
	tid ThreadID

	// name is the program name printed in the exit message. name is
	// immutable.
	name string

	// logPrefix is prepended to log messages emitted by Task.Infof etc.
	// logPrefix is immutable.
	logPrefix string

	// mm is the task's address space. mm is immutable.
	mm *mm.MemoryManager

	// fdTable is the task's descriptor table. fdTable is immutable.
	fdTable *FDTable

	// entry and sp are the user code entry point and initial stack pointer.
	entry Entry
	sp    hostarch.Addr

	// parent, children and childStatus are protected by TaskSet.mu.
	//
	// parent is the task that created this one, or nil if there is none or
	// it has exited.
	parent *Task

	// children are the live or exited children that have not been waited
	// for.
	children map[ThreadID]*Task

	// childStatus holds the exit status of children that exited while this
	// task was alive.
	childStatus map[ThreadID]int32

	// exitStatus is the status passed to PrepareExit.
	exitStatus int32

	// exitStarted is set once the task has entered the exit path.
	exitStarted bool

	// exited is closed when the task has finished exiting.
	exited chan struct{}
}

// ThreadID returns the task's identifier.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Name returns the task's program name.
func (t *Task) Name() string {
	return t.name
}

// Kernel returns the task's kernel.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// MemoryManager returns the task's address space.
func (t *Task) MemoryManager() *mm.MemoryManager {
	return t.mm
}

// FDTable returns the task's descriptor table.
func (t *Task) FDTable() *FDTable {
	return t.fdTable
}

// Exited returns a channel that is closed once the task has exited.
func (t *Task) Exited() <-chan struct{} {
	return t.exited
}

// ExitStatus returns the task's exit status. It is only meaningful once
// Exited is closed.
func (t *Task) ExitStatus() int32 {
	return t.exitStatus
}

// String implements fmt.Stringer.String.
func (t *Task) String() string {
	return fmt.Sprintf("%d:%s", t.tid, t.name)
}

// Debugf creates a debug log that includes the task ID.
func (t *Task) Debugf(fmt string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Infof logs at the info level.
func (t *Task) Infof(fmt string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// Warningf logs at the warning level.
func (t *Task) Warningf(fmt string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.Log().WarningfAtDepth(1, t.logPrefix+fmt, v...)
	}
}

// IsLogging returns true iff this level is being logged.
func (t *Task) IsLogging(level log.Level) bool {
	return log.IsLogging(level)
}
