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
	"sync"
	"time"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
)

// TaskSet is a collection of tasks and the parent/child relations between
// them.
type TaskSet struct {
	// mu protects all relationships between tasks, and the fields of Task
	// documented as protected by it.
	mu sync.Mutex

	// lastTID is the most recently assigned ThreadID.
	lastTID ThreadID

	// live holds tasks that have not finished exiting.
	live map[ThreadID]*Task

	// maxTasks limits len(live). Zero means no limit.
	maxTasks int

	// running counts task goroutines.
	running sync.WaitGroup
}

func newTaskSet(maxTasks int) *TaskSet {
	return &TaskSet{
		live:     make(map[ThreadID]*Task),
		maxTasks: maxTasks,
	}
}

// newTask creates a task for img as a child of parent, which may be nil. The
// task goroutine is not started.
func (ts *TaskSet) newTask(k *Kernel, parent *Task, img *Image) (*Task, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.maxTasks > 0 && len(ts.live) >= ts.maxTasks {
		return nil, kerr.ENOMEM
	}
	ts.lastTID++
	tid := ts.lastTID
	t := &Task{
		k:           k,
		tid:         tid,
		name:        img.Name,
		mm:          img.MemoryManager,
		fdTable:     NewFDTable(k.maxOpenFiles),
		entry:       img.Entry,
		sp:          img.Stack,
		parent:      parent,
		children:    make(map[ThreadID]*Task),
		childStatus: make(map[ThreadID]int32),
		exited:      make(chan struct{}),
	}
	t.logPrefix = "[" + t.String() + "] "
	if parent != nil {
		parent.children[tid] = t
	}
	ts.live[tid] = t
	ts.running.Add(1)
	return t, nil
}

// exitLocked records t's exit status in its parent, if the parent is still
// alive, orphans t's children and wakes any waiter.
//
// Preconditions: ts.mu must be locked.
func (ts *TaskSet) exitLocked(t *Task) {
	if p := t.parent; p != nil {
		p.childStatus[t.tid] = t.exitStatus
		t.parent = nil
	}
	for _, c := range t.children {
		c.parent = nil
	}
	t.children = nil
	t.childStatus = nil
	delete(ts.live, t.tid)
	close(t.exited)
}

// Live returns the number of tasks that have not finished exiting.
func (ts *TaskSet) Live() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.live)
}

// Lookup returns the live task with the given ID, or nil.
func (ts *TaskSet) Lookup(tid ThreadID) *Task {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.live[tid]
}

// waitAll waits up to timeout for every task goroutine to stop. It returns
// false on timeout.
func (ts *TaskSet) waitAll(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		ts.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Wait blocks until the child pid exits and returns its exit status.
//
// It returns -1 and ECHILD without blocking if pid is not a child of t, or
// has already been waited for. A child killed by the kernel reports -1. If
// the machine halts while t is waiting, t stops.
func (t *Task) Wait(pid ThreadID) (int32, error) {
	ts := t.k.tasks
	ts.mu.Lock()
	c, ok := t.children[pid]
	if ok {
		delete(t.children, pid)
	}
	ts.mu.Unlock()
	if !ok {
		return pintos.Error, kerr.ECHILD
	}

	select {
	case <-c.exited:
	case <-t.k.haltCh:
		t.halt()
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	status, ok := t.childStatus[pid]
	if !ok {
		// Unreachable: a live parent always receives the status.
		return pintos.Error, nil
	}
	delete(t.childStatus, pid)
	return status, nil
}

// ChildStatus returns the recorded exit status of child pid, if pid exited
// while t was alive and has not been waited for.
func (t *Task) ChildStatus(pid ThreadID) (int32, bool) {
	ts := t.k.tasks
	ts.mu.Lock()
	defer ts.mu.Unlock()
	status, ok := t.childStatus[pid]
	return status, ok
}
