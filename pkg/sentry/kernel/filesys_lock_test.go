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
	"sync/atomic"
	"testing"

	"pintos.dev/pintos/pkg/metric"
)

func TestFilesysLockExclusive(t *testing.T) {
	r := metric.NewRegistry()
	l := NewFilesysLock(r)

	const (
		workers = 8
		rounds  = 200
	)
	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				l.Do(func() {
					if inside.Add(1) != 1 {
						overlap.Store(true)
					}
					inside.Add(-1)
				})
			}
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Errorf("two critical sections overlapped")
	}
	if got := l.acquisitions.Value(); got != workers*rounds {
		t.Errorf("acquisitions: got %d, want %d", got, workers*rounds)
	}
	if got := l.contended.Value(); got > workers*rounds {
		t.Errorf("contended: got %d, want at most %d", got, workers*rounds)
	}
}

func TestFilesysLockReleasedOnPanic(t *testing.T) {
	l := NewFilesysLock(nil)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("Do() did not propagate the panic")
			}
		}()
		l.Do(func() { panic("boom") })
	}()

	done := false
	l.Do(func() { done = true })
	if !done {
		t.Errorf("Do() after a panic did not run")
	}
}
