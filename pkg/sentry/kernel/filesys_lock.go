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

	"pintos.dev/pintos/pkg/metric"
)

// FilesysLock serializes every call into the filesystem and the console.
// Neither is safe for concurrent use, and a single global lock makes each
// call appear atomic to all tasks.
//
// FilesysLock is not reentrant. It is held only for the duration of one
// call, never across user memory validation or descriptor lookup.
type FilesysLock struct {
	mu sync.Mutex

	acquisitions *metric.Uint64Metric
	contended    *metric.Uint64Metric
}

// NewFilesysLock returns a FilesysLock that counts acquisitions in r. r may
// be nil.
func NewFilesysLock(r *metric.Registry) *FilesysLock {
	l := &FilesysLock{}
	if r != nil {
		l.acquisitions = r.MustCreateNewUint64Metric("pintos_filesys_lock_acquisitions_total", "Number of times the filesystem lock was taken.")
		l.contended = r.MustCreateNewUint64Metric("pintos_filesys_lock_contended_total", "Number of times a task waited for the filesystem lock.")
	}
	return l
}

// Do calls fn with the lock held. The lock is released when fn returns,
// panics, or exits its goroutine.
func (l *FilesysLock) Do(fn func()) {
	if !l.mu.TryLock() {
		if l.contended != nil {
			l.contended.Increment()
		}
		l.mu.Lock()
	}
	defer l.mu.Unlock()
	if l.acquisitions != nil {
		l.acquisitions.Increment()
	}
	fn()
}
