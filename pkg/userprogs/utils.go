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
	"pintos.dev/pintos/pkg/userlib"
)

// bufSize is the transfer size of the file utilities.
const bufSize = 512

func init() {
	register(
		program{name: "echo", desc: "print arguments", main: echo},
		program{name: "args", desc: "print argc and each argument", main: args},
		program{name: "cat", desc: "print files", main: cat},
		program{name: "cp", desc: "copy a file", main: cp},
		program{name: "rm", desc: "remove files", main: rm},
		program{name: "mkfile", desc: "create a file of a given size", main: mkfile},
		program{name: "halt", desc: "power off", main: halt},
		program{name: "exit", desc: "exit with a given status", main: exit},
		program{name: "run", desc: "run a command and exit with its status", main: run},
		program{name: "shell", desc: "run commands read from the console", main: shell},
	)
}

func echo(e *userlib.Env) int32 {
	e.Print(strings.Join(e.Args[1:], " ") + "\n")
	return 0
}

func args(e *userlib.Env) int32 {
	e.Printf("argc = %d\n", len(e.Args))
	for i, arg := range e.Args {
		e.Printf("argv[%d] = '%s'\n", i, arg)
	}
	return 0
}

func cat(e *userlib.Env) int32 {
	var status int32
	for _, name := range e.Args[1:] {
		fd := e.Open(name)
		if fd < 0 {
			e.Printf("%s: open failed\n", name)
			status = 1
			continue
		}
		buf := e.Alloc(bufSize)
		for {
			n := e.Read(fd, buf, bufSize)
			if n <= 0 {
				break
			}
			e.Write(pintos.STDOUT_FILENO, buf, uint32(n))
		}
		e.Close(fd)
	}
	return status
}

func cp(e *userlib.Env) int32 {
	if len(e.Args) != 3 {
		e.Print("usage: cp SRC DST\n")
		return 1
	}
	src := e.Open(e.Args[1])
	if src < 0 {
		e.Printf("%s: open failed\n", e.Args[1])
		return 1
	}
	size := e.Filesize(src)
	if !e.Create(e.Args[2], uint32(size)) {
		e.Printf("%s: create failed\n", e.Args[2])
		return 1
	}
	dst := e.Open(e.Args[2])
	if dst < 0 {
		e.Printf("%s: open failed\n", e.Args[2])
		return 1
	}
	buf := e.Alloc(bufSize)
	for {
		n := e.Read(src, buf, bufSize)
		if n <= 0 {
			break
		}
		if e.Write(dst, buf, uint32(n)) != n {
			e.Printf("%s: write failed\n", e.Args[2])
			return 1
		}
	}
	e.Close(src)
	e.Close(dst)
	return 0
}

func rm(e *userlib.Env) int32 {
	var status int32
	for _, name := range e.Args[1:] {
		if !e.Remove(name) {
			e.Printf("%s: remove failed\n", name)
			status = 1
		}
	}
	return status
}

func mkfile(e *userlib.Env) int32 {
	if len(e.Args) != 3 {
		e.Print("usage: mkfile NAME SIZE\n")
		return 1
	}
	size, err := strconv.ParseUint(e.Args[2], 10, 32)
	if err != nil {
		e.Printf("%s: invalid size\n", e.Args[2])
		return 1
	}
	if !e.Create(e.Args[1], uint32(size)) {
		e.Printf("%s: create failed\n", e.Args[1])
		return 1
	}
	return 0
}

func halt(e *userlib.Env) int32 {
	e.Halt()
	return 0
}

func exit(e *userlib.Env) int32 {
	if len(e.Args) < 2 {
		return 0
	}
	status, err := strconv.ParseInt(e.Args[1], 10, 32)
	if err != nil {
		e.Printf("%s: invalid status\n", e.Args[1])
		return 1
	}
	return int32(status)
}

func run(e *userlib.Env) int32 {
	pid := e.Exec(strings.Join(e.Args[1:], " "))
	if pid < 0 {
		e.Print("run: exec failed\n")
		return pintos.Error
	}
	return e.Wait(pid)
}

// shell reads one command per line from the console, runs it and reports
// its exit status, until "exit" or end of input.
func shell(e *userlib.Env) int32 {
	c := e.Alloc(1)
	for {
		e.Print("--")
		var line []byte
		eof := false
		for {
			if e.Read(pintos.STDIN_FILENO, c, 1) != 1 {
				eof = true
				break
			}
			b := e.Peek(c, 1)[0]
			if b == '\n' || b == '\r' {
				break
			}
			line = append(line, b)
		}
		cmd := strings.TrimSpace(string(line))
		switch {
		case cmd == "exit" || (eof && cmd == ""):
			e.Print("\n")
			return 0
		case cmd == "":
			continue
		}
		pid := e.Exec(cmd)
		if pid < 0 {
			e.Printf("\"%s\": exec failed\n", cmd)
		} else {
			e.Printf("\"%s\": exit code %d\n", cmd, e.Wait(pid))
		}
		if eof {
			return 0
		}
	}
}
