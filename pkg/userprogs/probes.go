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
	"strconv"
	"strings"

	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/userlib"
)

const (
	// badPtr is a user address that is never mapped.
	badPtr = 0x20101234

	// kernelPtr is an address above PHYS_BASE.
	kernelPtr = 0xc0100000

	// sampleFile is created by probes that need an open file.
	sampleFile = "sample.txt"

	// sampleText is the contents of sampleFile.
	sampleText = "Pintos sample\n"

	// negSize is -1 as a size argument.
	negSize = 0xffffffff
)

func init() {
	register(
		// Trap frame.
		program{name: "sc-bad-sp", desc: "trap with an unmapped stack pointer", main: scBadSP},
		program{name: "sc-bad-arg", desc: "trap with an argument above PHYS_BASE", main: scBadArg},
		program{name: "sc-boundary", desc: "trap with arguments across a page boundary", main: scBoundary},
		program{name: "sc-boundary-2", desc: "trap with the syscall number across a page boundary", main: scBoundary2},
		program{name: "sc-boundary-3", desc: "trap with the syscall number partly unmapped", main: scBoundary3},
		program{name: "sc-unknown", desc: "trap with an unknown syscall number", main: scUnknown},

		// Names.
		program{name: "create-null", desc: "create with a null name", main: rawCall(pintos.SYS_CREATE, 0, 0)},
		program{name: "create-bad-ptr", desc: "create with an unmapped name", main: rawCall(pintos.SYS_CREATE, badPtr, 0)},
		program{name: "create-long", desc: "create with a very long name", main: createLong},
		program{name: "create-empty", desc: "create with an empty name", main: createEmpty},
		program{name: "create-exists", desc: "create files that already exist", main: createExists},
		program{name: "create-bound", desc: "create with a name across a page boundary", main: createBound},
		program{name: "create-huge", desc: "create a file larger than the disk", main: createHuge},
		program{name: "open-null", desc: "open with a null name", main: rawCall(pintos.SYS_OPEN, 0)},
		program{name: "open-bad-ptr", desc: "open with an unmapped name", main: rawCall(pintos.SYS_OPEN, badPtr)},
		program{name: "open-kernel-ptr", desc: "open with a kernel name", main: rawCall(pintos.SYS_OPEN, kernelPtr)},
		program{name: "open-missing", desc: "open a file that does not exist", main: openMissing},
		program{name: "open-twice", desc: "open one file twice", main: openTwice},
		program{name: "open-many", desc: "open one file many times", main: openMany},
		program{name: "remove-bad-ptr", desc: "remove with an unmapped name", main: rawCall(pintos.SYS_REMOVE, badPtr)},
		program{name: "remove-open", desc: "remove a file that is open", main: removeOpen},
		program{name: "exec-bad-ptr", desc: "exec with an unmapped command line", main: rawCall(pintos.SYS_EXEC, badPtr)},

		// Buffers.
		program{name: "read-bad-ptr", desc: "read into kernel memory", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, kernelPtr, 123) })},
		program{name: "read-null", desc: "read into a null buffer", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, 0, 10) })},
		program{name: "read-code", desc: "read into the read-only text page", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, pintos.CodeBase, 10) })},
		program{name: "read-boundary", desc: "read into a buffer ending past the last user page", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, pintos.PHYS_BASE-8, 16) })},
		program{name: "read-zero-bad-ptr", desc: "read zero bytes into an unmapped buffer", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, badPtr, 0) })},
		program{name: "read-neg-size", desc: "read a negative number of bytes", main: withSample(func(e *userlib.Env, fd int32) { e.Read(fd, pintos.DataBase, negSize) })},
		program{name: "write-neg-size", desc: "write a negative number of bytes", main: withSample(func(e *userlib.Env, fd int32) { e.Write(pintos.STDOUT_FILENO, pintos.DataBase, negSize) })},
		program{name: "write-bad-ptr", desc: "write from an unmapped buffer", main: withSample(func(e *userlib.Env, fd int32) { e.Write(fd, badPtr, 123) })},
		program{name: "write-kernel-ptr", desc: "write from kernel memory", main: withSample(func(e *userlib.Env, fd int32) { e.Write(pintos.STDOUT_FILENO, kernelPtr, 4) })},
		program{name: "write-code", desc: "write the text page to the console", main: writeCode},
		program{name: "read-normal", desc: "read a file", main: readNormal},
		program{name: "read-zero", desc: "read zero bytes", main: readZero},
		program{name: "read-bad-fd", desc: "read from descriptors that are not open", main: readBadFD},
		program{name: "read-stdout", desc: "read from standard output", main: readStdout},
		program{name: "write-normal", desc: "write a file", main: writeNormal},
		program{name: "write-zero", desc: "write zero bytes", main: writeZero},
		program{name: "write-bad-fd", desc: "write to descriptors that are not open", main: writeBadFD},
		program{name: "write-stdin", desc: "write to standard input", main: writeStdin},
		program{name: "write-past-end", desc: "write past the end of a file", main: writePastEnd},
		program{name: "write-far", desc: "write far past the end of a file", main: writeFar},

		// Descriptors.
		program{name: "close-normal", desc: "close a file", main: closeNormal},
		program{name: "close-twice", desc: "close a file twice", main: closeTwice},
		program{name: "close-bad-fd", desc: "close descriptors that are not open", main: closeBadFD},
		program{name: "close-console", desc: "close the console descriptors", main: closeConsole},
		program{name: "seek-tell", desc: "seek and tell", main: seekTell},
		program{name: "filesize", desc: "filesize of open and closed descriptors", main: filesize},
		program{name: "fd-scenario", desc: "create, open, write, seek, read and close one file", main: fdScenario},

		// User memory.
		program{name: "bad-read", desc: "read address zero", main: func(e *userlib.Env) int32 { e.Peek(0, 1); return 1 }},
		program{name: "bad-read2", desc: "read kernel memory", main: func(e *userlib.Env) int32 { e.Peek(kernelPtr, 1); return 1 }},
		program{name: "bad-write", desc: "write address zero", main: func(e *userlib.Env) int32 { e.Poke(0, []byte{1}); return 1 }},
		program{name: "bad-write-code", desc: "write the text page", main: func(e *userlib.Env) int32 { e.Poke(pintos.CodeBase, []byte{1}); return 1 }},
	)
}

// rawCall returns a program that makes one syscall with raw argument words.
// Programs built from it are expected to be killed.
func rawCall(sysno uintptr, args ...uint32) userlib.Main {
	return func(e *userlib.Env) int32 {
		e.Syscall(sysno, args...)
		e.Fail("should have exited with -1")
		return 1
	}
}

// withSample creates and opens sampleFile, then runs fn, which is expected
// to get the process killed.
func withSample(fn func(e *userlib.Env, fd int32)) userlib.Main {
	return func(e *userlib.Env) int32 {
		fd := openSample(e)
		fn(e, fd)
		e.Fail("should have exited with -1")
		return 1
	}
}

// openSample creates sampleFile if needed and opens it.
func openSample(e *userlib.Env) int32 {
	fd := e.Open(sampleFile)
	if fd >= 0 {
		return fd
	}
	if !e.Create(sampleFile, uint32(len(sampleText))) {
		e.Fail("create \"%s\"", sampleFile)
	}
	fd = e.Open(sampleFile)
	if fd < 0 {
		e.Fail("open \"%s\"", sampleFile)
	}
	if n := e.WriteString(fd, sampleText); n != int32(len(sampleText)) {
		e.Fail("write \"%s\": %d", sampleFile, n)
	}
	e.Seek(fd, 0)
	return fd
}

func scBadSP(e *userlib.Env) int32 {
	e.Trap(badPtr)
	e.Fail("should have exited with -1")
	return 1
}

func scBadArg(e *userlib.Env) int32 {
	esp := hostarch.Addr(pintos.PHYS_BASE - pintos.WordSize)
	e.PokeWord(esp, pintos.SYS_EXIT)
	e.Trap(esp)
	e.Fail("should have exited with -1")
	return 1
}

// scBoundary places the syscall number at the end of one data page and its
// argument at the start of the next. It exits with 42 through the trap.
func scBoundary(e *userlib.Env) int32 {
	esp := hostarch.Addr(pintos.DataBase + hostarch.PageSize - pintos.WordSize)
	e.PokeWord(esp, pintos.SYS_EXIT)
	e.PokeWord(esp+pintos.WordSize, 42)
	e.Trap(esp)
	e.Fail("should have called exit(42)")
	return 1
}

// scBoundary2 splits the syscall number itself across two data pages.
func scBoundary2(e *userlib.Env) int32 {
	esp := hostarch.Addr(pintos.DataBase + hostarch.PageSize - 2)
	e.PokeWord(esp, pintos.SYS_EXIT)
	e.PokeWord(esp+pintos.WordSize, 67)
	e.Trap(esp)
	e.Fail("should have called exit(67)")
	return 1
}

// scBoundary3 places the syscall number so that its first bytes lie below
// the text page, where nothing is mapped.
func scBoundary3(e *userlib.Env) int32 {
	e.Trap(pintos.CodeBase - 2)
	e.Fail("should have exited with -1")
	return 1
}

func scUnknown(e *userlib.Env) int32 {
	e.Syscall(pintos.SYS_CLOSE + 100)
	e.Msg("survived")
	return 0
}

func createLong(e *userlib.Env) int32 {
	name := strings.Repeat("x", 511)
	e.Msg("create(\"x...\"): %t", e.Create(name, 0))
	e.Msg("open(\"x...\"): %d", e.Open(name))
	e.Msg("remove(\"x...\"): %t", e.Remove(name))
	return 0
}

func createEmpty(e *userlib.Env) int32 {
	e.Msg("create(\"\"): %t", e.Create("", 0))
	return 0
}

func createExists(e *userlib.Env) int32 {
	e.Msg("create(\"quux.dat\"): %t", e.Create("quux.dat", 0))
	e.Msg("create(\"warble.dat\"): %t", e.Create("warble.dat", 0))
	e.Msg("try to re-create quux.dat: %t", e.Create("quux.dat", 0))
	e.Msg("create baffle.dat: %t", e.Create("baffle.dat", 0))
	e.Msg("try to re-create quux.dat: %t", e.Create("quux.dat", 0))
	return 0
}

// createBound passes a name that starts on one data page and ends on the
// next.
func createBound(e *userlib.Env) int32 {
	name := "quux.dat\x00"
	addr := hostarch.Addr(pintos.DataBase + 2*hostarch.PageSize - 4)
	e.Poke(addr, []byte(name))
	e.Msg("create(\"quux.dat\"): %d", e.Syscall(pintos.SYS_CREATE, uint32(addr), 0))
	e.Msg("open(\"quux.dat\") >= 2: %t", int32(e.Syscall(pintos.SYS_OPEN, uint32(addr))) >= pintos.FirstFD)
	return 0
}

func createHuge(e *userlib.Env) int32 {
	e.Msg("create(\"huge\", %#x): %t", uint32(0xffffffff), e.Create("huge", 0xffffffff))
	e.Msg("create(\"small\", 1024): %t", e.Create("small", 1024))
	return 0
}

func openMissing(e *userlib.Env) int32 {
	e.Msg("open(\"no-such-file\"): %d", e.Open("no-such-file"))
	return 0
}

func openTwice(e *userlib.Env) int32 {
	fd1 := openSample(e)
	fd2 := e.Open(sampleFile)
	if fd2 < 0 {
		e.Fail("second open failed")
	}
	e.Msg("distinct: %t, increasing: %t", fd1 != fd2, fd2 > fd1)
	return 0
}

// openMany opens sampleFile until open fails or the count in argv[1] is
// reached, closes everything, and opens once more.
func openMany(e *userlib.Env) int32 {
	limit := 64
	if len(e.Args) > 1 {
		n, err := strconv.Atoi(e.Args[1])
		if err != nil || n < 1 {
			e.Fail("invalid count %q", e.Args[1])
		}
		limit = n
	}
	first := openSample(e)
	fds := []int32{first}
	for len(fds) < limit {
		fd := e.Open(sampleFile)
		if fd < 0 {
			break
		}
		if fd != fds[len(fds)-1]+1 {
			e.Fail("open returned %d after %d", fd, fds[len(fds)-1])
		}
		fds = append(fds, fd)
	}
	e.Msg("opened %d", len(fds))
	for _, fd := range fds {
		e.Close(fd)
	}
	fd := e.Open(sampleFile)
	e.Msg("reopen is new: %t", fd > fds[len(fds)-1])
	return 0
}

func removeOpen(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Msg("remove: %t", e.Remove(sampleFile))
	e.Msg("open after remove: %d", e.Open(sampleFile))
	got, ok := e.ReadString(fd, len(sampleText))
	e.Msg("read through old descriptor: %t", ok && got == sampleText)
	return 0
}

func writeCode(e *userlib.Env) int32 {
	e.Write(pintos.STDOUT_FILENO, pintos.CodeBase, uint32(len(e.Args[0])))
	e.Print("\n")
	return 0
}

func readNormal(e *userlib.Env) int32 {
	fd := openSample(e)
	got, ok := e.ReadString(fd, 100)
	if !ok {
		e.Fail("read failed")
	}
	e.Msg("read %d bytes: %t", len(got), got == sampleText)
	got, ok = e.ReadString(fd, 100)
	e.Msg("read at end: %d bytes, %t", len(got), ok)
	return 0
}

func readZero(e *userlib.Env) int32 {
	fd := openSample(e)
	buf := e.Alloc(1)
	e.Msg("read(fd, buf, 0): %d", e.Read(fd, buf, 0))
	e.Msg("tell: %d", e.Tell(fd))
	return 0
}

func readBadFD(e *userlib.Env) int32 {
	buf := e.Alloc(16)
	for _, fd := range []int32{0x20101234, 5546, -5, -8192, 7} {
		e.Msg("read(%d): %d", fd, e.Read(fd, buf, 16))
	}
	return 0
}

func readStdout(e *userlib.Env) int32 {
	buf := e.Alloc(16)
	e.Msg("read(STDOUT_FILENO): %d", e.Read(pintos.STDOUT_FILENO, buf, 16))
	return 0
}

func writeNormal(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Msg("write: %d", e.WriteString(fd, "Amazing"))
	e.Seek(fd, 0)
	got, _ := e.ReadString(fd, len(sampleText))
	e.Msg("contents: %q", got)
	return 0
}

func writeZero(e *userlib.Env) int32 {
	fd := openSample(e)
	buf := e.Alloc(1)
	e.Msg("write(fd, buf, 0): %d", e.Write(fd, buf, 0))
	e.Msg("write(STDOUT_FILENO, buf, 0): %d", e.Write(pintos.STDOUT_FILENO, buf, 0))
	return 0
}

func writeBadFD(e *userlib.Env) int32 {
	buf := e.PutString("hello")
	for _, fd := range []int32{0x20101234, 7, -1024, 1 << 20} {
		e.Msg("write(%d): %d", fd, e.Write(fd, buf, 5))
	}
	return 0
}

func writeStdin(e *userlib.Env) int32 {
	buf := e.PutString("hello")
	e.Msg("write(STDIN_FILENO): %d", e.Write(pintos.STDIN_FILENO, buf, 5))
	return 0
}

func writePastEnd(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Seek(fd, uint32(len(sampleText)-2))
	e.Msg("write: %d", e.WriteString(fd, "abcdef"))
	e.Msg("filesize: %d", e.Filesize(fd))
	return 0
}

// writeFar writes at an offset no disk can reach. Only meaningful on a
// filesystem that grows files.
func writeFar(e *userlib.Env) int32 {
	if !e.Create("far", 0) {
		e.Fail("create failed")
	}
	fd := e.Open("far")
	e.Seek(fd, 0xfffffff0)
	e.Msg("write: %d", e.WriteString(fd, "far"))
	e.Msg("filesize: %d", e.Filesize(fd))
	return 0
}

func closeNormal(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Close(fd)
	e.Msg("filesize after close: %d", e.Filesize(fd))
	return 0
}

func closeTwice(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Close(fd)
	e.Close(fd)
	e.Msg("survived")
	return 0
}

func closeBadFD(e *userlib.Env) int32 {
	for _, fd := range []int32{0x20101234, -1, 99} {
		e.Close(fd)
	}
	e.Msg("survived")
	return 0
}

func closeConsole(e *userlib.Env) int32 {
	e.Close(pintos.STDIN_FILENO)
	e.Close(pintos.STDOUT_FILENO)
	e.Msg("console still works")
	return 0
}

func seekTell(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Seek(fd, 7)
	e.Msg("tell after seek(7): %d", e.Tell(fd))
	got, _ := e.ReadString(fd, 6)
	e.Msg("read: %q", got)
	e.Seek(fd, 1000)
	e.Msg("tell after seek(1000): %d", e.Tell(fd))
	got, ok := e.ReadString(fd, 6)
	e.Msg("read past end: %q, %t", got, ok)
	e.Msg("tell(99): %d", int32(e.Tell(99)))
	e.Seek(99, 0)
	return 0
}

func filesize(e *userlib.Env) int32 {
	fd := openSample(e)
	e.Msg("filesize: %d", e.Filesize(fd))
	e.Msg("filesize(STDIN_FILENO): %d", e.Filesize(pintos.STDIN_FILENO))
	e.Msg("filesize(99): %d", e.Filesize(99))
	return 0
}

func fdScenario(e *userlib.Env) int32 {
	e.Msg("create(\"a.txt\", 100): %t", e.Create("a.txt", 100))
	fd := e.Open("a.txt")
	e.Msg("open(\"a.txt\"): %d", fd)
	e.Msg("write(hello): %d", e.WriteString(fd, "hello"))
	e.Seek(fd, 0)
	got, _ := e.ReadString(fd, 5)
	e.Msg("read: %q", got)
	e.Close(fd)
	e.Msg("write after close: %d", e.WriteString(fd, "hello"))
	return 0
}
