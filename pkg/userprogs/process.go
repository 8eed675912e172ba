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
	"bytes"
	"fmt"
	"strconv"

	"pintos.dev/pintos/pkg/userlib"
)

const (
	// synChildren is the number of children the syn-* programs start.
	synChildren = 10

	// synChunk is the part of the shared file each syn-write child owns.
	synChunk = 512

	// synFile is the file the syn-* programs share.
	synFile = "stuff"
)

func init() {
	register(
		program{name: "child-simple", desc: "exit with status 81", main: childSimple},
		program{name: "child-args", desc: "print arguments and exit with argc", main: childArgs},
		program{name: "child-bad", desc: "read address zero", main: childBad},
		program{name: "exec-once", desc: "exec and wait for child-simple", main: execOnce},
		program{name: "exec-arg", desc: "exec child-args with an argument", main: execArg},
		program{name: "exec-multiple", desc: "exec and wait for several children", main: execMultiple},
		program{name: "exec-missing", desc: "exec a program that does not exist", main: execMissing},
		program{name: "wait-simple", desc: "wait for child-simple", main: waitSimple},
		program{name: "wait-twice", desc: "wait for the same child twice", main: waitTwice},
		program{name: "wait-killed", desc: "wait for a child killed by the kernel", main: waitKilled},
		program{name: "wait-bad-pid", desc: "wait for a pid that is not a child", main: waitBadPID},
		program{name: "multi-recurse", desc: "exec itself recursively", main: multiRecurse},
		program{name: "syn-write", desc: "children write disjoint parts of one file", main: synWrite},
		program{name: "child-syn-wrt", desc: "write one part of the shared file", main: childSynWrite},
		program{name: "syn-read", desc: "children read one file concurrently", main: synRead},
		program{name: "child-syn-read", desc: "read and check the shared file", main: childSynRead},
		program{name: "syn-create", desc: "children create and open files concurrently", main: synCreate},
		program{name: "child-syn-create", desc: "create, open and close files", main: childSynCreate},
	)
}

func childSimple(e *userlib.Env) int32 {
	e.Msg("run")
	return 81
}

func childArgs(e *userlib.Env) int32 {
	for i, arg := range e.Args {
		e.Msg("argv[%d] = '%s'", i, arg)
	}
	return int32(len(e.Args))
}

func childBad(e *userlib.Env) int32 {
	e.Msg("try to read address zero")
	e.Peek(0, 1)
	e.Fail("should have exited with -1")
	return 1
}

func execOnce(e *userlib.Env) int32 {
	e.Msg("begin")
	e.Msg("wait(exec()) = %d", e.Wait(e.Exec("child-simple")))
	e.Msg("end")
	return 0
}

func execArg(e *userlib.Env) int32 {
	e.Msg("wait(exec()) = %d", e.Wait(e.Exec("child-args childarg")))
	return 0
}

func execMultiple(e *userlib.Env) int32 {
	for i := 0; i < 4; i++ {
		e.Msg("wait(exec()) = %d", e.Wait(e.Exec("child-simple")))
	}
	return 0
}

func execMissing(e *userlib.Env) int32 {
	e.Msg("exec(\"no-such-file\"): %d", e.Exec("no-such-file"))
	return 0
}

func waitSimple(e *userlib.Env) int32 {
	e.Msg("wait(exec()) = %d", e.Wait(e.Exec("child-simple")))
	return 0
}

func waitTwice(e *userlib.Env) int32 {
	pid := e.Exec("child-simple")
	e.Msg("wait(exec()) = %d", e.Wait(pid))
	e.Msg("wait(exec()) = %d", e.Wait(pid))
	return 0
}

func waitKilled(e *userlib.Env) int32 {
	e.Msg("wait(exec()) = %d", e.Wait(e.Exec("child-bad")))
	return 0
}

func waitBadPID(e *userlib.Env) int32 {
	e.Msg("wait(0x0c020301) = %d", e.Wait(0x0c020301))
	e.Msg("wait(self) = %d", e.Wait(int32(e.Task().ThreadID())))
	return 0
}

func multiRecurse(e *userlib.Env) int32 {
	n := 0
	if len(e.Args) > 1 {
		var err error
		if n, err = strconv.Atoi(e.Args[1]); err != nil {
			e.Fail("invalid depth %q", e.Args[1])
		}
	}
	e.Msg("begin %d", n)
	if n > 0 {
		pid := e.Exec(fmt.Sprintf("multi-recurse %d", n-1))
		if pid < 0 {
			e.Fail("exec(\"multi-recurse %d\") failed", n-1)
		}
		if status := e.Wait(pid); status != int32(n-1) {
			e.Fail("wait(exec(\"multi-recurse %d\")) returned %d", n-1, status)
		}
	}
	e.Msg("end %d", n)
	return int32(n)
}

func synWrite(e *userlib.Env) int32 {
	if !e.Create(synFile, synChildren*synChunk) {
		e.Fail("create \"%s\"", synFile)
	}
	var pids []int32
	for i := 0; i < synChildren; i++ {
		pid := e.Exec(fmt.Sprintf("child-syn-wrt %d", i))
		if pid < 0 {
			e.Fail("exec child %d", i)
		}
		pids = append(pids, pid)
	}
	for i, pid := range pids {
		if status := e.Wait(pid); status != int32(i) {
			e.Fail("wait for child %d returned %d", i, status)
		}
	}

	fd := e.Open(synFile)
	if fd < 0 {
		e.Fail("open \"%s\"", synFile)
	}
	got, ok := e.ReadString(fd, synChildren*synChunk)
	if !ok || len(got) != synChildren*synChunk {
		e.Fail("read \"%s\": got %d bytes", synFile, len(got))
	}
	for i := 0; i < synChildren; i++ {
		want := bytes.Repeat([]byte{'a' + byte(i)}, synChunk)
		if got[i*synChunk:(i+1)*synChunk] != string(want) {
			e.Fail("chunk %d has the wrong contents", i)
		}
	}
	e.Close(fd)
	e.Msg("ok")
	return 0
}

func childSynWrite(e *userlib.Env) int32 {
	id, err := strconv.Atoi(e.Args[1])
	if err != nil {
		e.Fail("invalid id %q", e.Args[1])
	}
	fd := e.Open(synFile)
	if fd < 0 {
		e.Fail("open \"%s\"", synFile)
	}
	e.Seek(fd, uint32(id*synChunk))
	if n := e.WriteString(fd, string(bytes.Repeat([]byte{'a' + byte(id)}, synChunk))); n != synChunk {
		e.Fail("write returned %d", n)
	}
	e.Close(fd)
	return int32(id)
}

// synData returns the contents of the file syn-read shares.
func synData() string {
	b := make([]byte, synChunk)
	for i := range b {
		b[i] = byte('A' + i*7%26)
	}
	return string(b)
}

func synRead(e *userlib.Env) int32 {
	if !e.Create(synFile, synChunk) {
		e.Fail("create \"%s\"", synFile)
	}
	fd := e.Open(synFile)
	if fd < 0 {
		e.Fail("open \"%s\"", synFile)
	}
	if n := e.WriteString(fd, synData()); n != synChunk {
		e.Fail("write returned %d", n)
	}
	e.Close(fd)

	var pids []int32
	for i := 0; i < synChildren; i++ {
		pid := e.Exec(fmt.Sprintf("child-syn-read %d", i))
		if pid < 0 {
			e.Fail("exec child %d", i)
		}
		pids = append(pids, pid)
	}
	for i, pid := range pids {
		if status := e.Wait(pid); status != int32(i) {
			e.Fail("wait for child %d returned %d", i, status)
		}
	}
	e.Msg("ok")
	return 0
}

func childSynRead(e *userlib.Env) int32 {
	id, err := strconv.Atoi(e.Args[1])
	if err != nil {
		e.Fail("invalid id %q", e.Args[1])
	}
	fd := e.Open(synFile)
	if fd < 0 {
		e.Fail("open \"%s\"", synFile)
	}
	// Read one byte at a time so that the children interleave.
	want := synData()
	for i := 0; i < len(want); i++ {
		got, ok := e.ReadString(fd, 1)
		if !ok || got != want[i:i+1] {
			e.Fail("byte %d: got %q, want %q", i, got, want[i:i+1])
		}
	}
	e.Close(fd)
	return int32(id)
}

func synCreate(e *userlib.Env) int32 {
	var pids []int32
	for i := 0; i < synChildren; i++ {
		pid := e.Exec(fmt.Sprintf("child-syn-create %d", i))
		if pid < 0 {
			e.Fail("exec child %d", i)
		}
		pids = append(pids, pid)
	}
	for i, pid := range pids {
		if status := e.Wait(pid); status != int32(i) {
			e.Fail("wait for child %d returned %d", i, status)
		}
	}
	e.Msg("ok")
	return 0
}

// childSynCreate creates and opens its own files, and opens a file one of
// its siblings may be creating at the same time.
func childSynCreate(e *userlib.Env) int32 {
	id, err := strconv.Atoi(e.Args[1])
	if err != nil {
		e.Fail("invalid id %q", e.Args[1])
	}
	for j := 0; j < 4; j++ {
		name := fmt.Sprintf("f%d-%d", id, j)
		if !e.Create(name, 16) {
			e.Fail("create \"%s\"", name)
		}
		fd := e.Open(name)
		if fd < 0 {
			e.Fail("open \"%s\"", name)
		}
		e.Close(fd)
		if fd := e.Open(fmt.Sprintf("f%d-%d", (id+1)%synChildren, j)); fd >= 0 {
			e.Close(fd)
		}
	}
	return int32(id)
}
