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

// Package strace implements the logic to print out the input and the return
// value of each traced syscall.
package strace

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	abi "pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/sentry/arch"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// DefaultLogMaximumSize is the default LogMaximumSize.
const DefaultLogMaximumSize = 1024

// Options configures a Tracer.
type Options struct {
	// Syscalls, if not empty, limits tracing to the named syscalls.
	Syscalls []string

	// LogMaximumSize is the largest buffer or string printed. Zero means
	// DefaultLogMaximumSize.
	LogMaximumSize uint

	// Logger receives the trace. Nil means the global logger.
	Logger log.Logger
}

// Tracer logs syscalls as they enter and leave the kernel. It implements
// kernel.Tracer.
type Tracer struct {
	syscalls SyscallMap

	// enabled holds the traced syscall numbers, or nil for all.
	enabled map[uintptr]bool

	// maximumBlobSize is the largest buffer or string printed.
	maximumBlobSize uint

	logger log.Logger
}

var _ kernel.Tracer = (*Tracer)(nil)

// New returns a Tracer. It fails if opts names an unknown syscall.
func New(opts Options) (*Tracer, error) {
	s := &Tracer{
		syscalls:        Lookup(),
		maximumBlobSize: opts.LogMaximumSize,
		logger:          opts.Logger,
	}
	if s.maximumBlobSize == 0 {
		s.maximumBlobSize = DefaultLogMaximumSize
	}
	if s.logger == nil {
		s.logger = log.Log()
	}
	if len(opts.Syscalls) > 0 {
		s.enabled = make(map[uintptr]bool)
		for _, name := range opts.Syscalls {
			sysno, ok := abi.SyscallNumber(name)
			if !ok {
				return nil, fmt.Errorf("syscall %q not found", name)
			}
			s.enabled[sysno] = true
		}
	}
	return s, nil
}

// info is the per-call state carried from SyscallEnter to SyscallExit.
type info struct {
	start  time.Time
	output []string
}

// SyscallEnter implements kernel.Tracer.SyscallEnter.
func (s *Tracer) SyscallEnter(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) any {
	if !s.traced(sysno) {
		return nil
	}
	si := s.lookup(sysno)
	output := si.pre(t, args, s.maximumBlobSize)
	s.logger.Infof("%s E %s(%s)", t, si.name, strings.Join(output, ", "))
	return &info{start: time.Now(), output: output}
}

// SyscallExit implements kernel.Tracer.SyscallExit.
func (s *Tracer) SyscallExit(t *kernel.Task, sysno uintptr, args arch.SyscallArguments, rval uintptr, err error, in any) {
	i, ok := in.(*info)
	if !ok {
		return
	}
	si := s.lookup(sysno)
	si.post(t, args, rval, i.output, s.maximumBlobSize)
	elapsed := time.Since(i.start)
	ret := int32(uint32(rval))
	if err != nil {
		s.logger.Infof("%s X %s(%s) = %d (%v) (%v)", t, si.name, strings.Join(i.output, ", "), ret, err, elapsed)
		return
	}
	s.logger.Infof("%s X %s(%s) = %d (%v)", t, si.name, strings.Join(i.output, ", "), ret, elapsed)
}

func (s *Tracer) traced(sysno uintptr) bool {
	return s.enabled == nil || s.enabled[sysno]
}

func (s *Tracer) lookup(sysno uintptr) SyscallInfo {
	if si, ok := s.syscalls[sysno]; ok {
		return si
	}
	return makeSyscallInfo(abi.SyscallName(sysno), Hex, Hex, Hex)
}

// pre formats the arguments that are known before the syscall runs.
func (i *SyscallInfo) pre(t *kernel.Task, args arch.SyscallArguments, maximumBlobSize uint) []string {
	var output []string
	for arg := range args {
		if arg >= len(i.format) {
			break
		}
		switch i.format[arg] {
		case Int:
			output = append(output, strconv.Itoa(int(args[arg].Int())))
		case FD:
			output = append(output, fd(args[arg].Int()))
		case Size:
			output = append(output, strconv.FormatUint(uint64(args[arg].Uint()), 10))
		case Path, Cmdline:
			output = append(output, path(t, args[arg].Pointer(), maximumBlobSize))
		case WriteBuffer:
			output = append(output, dump(t, args[arg].Pointer(), args[arg+1].SizeT(), maximumBlobSize))
		default:
			output = append(output, fmt.Sprintf("%#x", args[arg].Value))
		}
	}
	return output
}

// post fills in the arguments that are only known after the syscall runs.
func (i *SyscallInfo) post(t *kernel.Task, args arch.SyscallArguments, rval uintptr, output []string, maximumBlobSize uint) {
	for arg := range args {
		if arg >= len(i.format) {
			break
		}
		if i.format[arg] == ReadBuffer {
			n := int32(uint32(rval))
			if n < 0 {
				n = 0
			}
			output[arg] = dump(t, args[arg].Pointer(), uint(n), maximumBlobSize)
		}
	}
}

func fd(v int32) string {
	switch v {
	case abi.STDIN_FILENO:
		return "0 (stdin)"
	case abi.STDOUT_FILENO:
		return "1 (stdout)"
	default:
		return strconv.Itoa(int(v))
	}
}

// path formats the string at addr without faulting the task.
func path(t *kernel.Task, addr hostarch.Addr, maximumBlobSize uint) string {
	if addr == 0 {
		return "null"
	}
	s, err := t.CopyInString(addr, int(maximumBlobSize)+1)
	if err != nil {
		return fmt.Sprintf("%#x (error decoding path: %s)", uintptr(addr), err)
	}
	return fmt.Sprintf("%#x %q", uintptr(addr), s)
}

// dump formats up to maximumBlobSize bytes of the buffer at addr without
// faulting the task.
func dump(t *kernel.Task, addr hostarch.Addr, size uint, maximumBlobSize uint) string {
	origSize := size
	if size > maximumBlobSize {
		size = maximumBlobSize
	}
	if size == 0 {
		return fmt.Sprintf("%#x \"\"", uintptr(addr))
	}
	b := make([]byte, size)
	amt, err := t.CopyIn(addr, b)
	if err != nil {
		return fmt.Sprintf("%#x (error decoding string: %s)", uintptr(addr), err)
	}
	dot := ""
	if uint(amt) < origSize {
		dot = "..."
	}
	return fmt.Sprintf("%#x %q%s", uintptr(addr), b[:amt], dot)
}
