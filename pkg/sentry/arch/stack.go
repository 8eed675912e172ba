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

package arch

import (
	"pintos.dev/pintos/pkg/abi/pintos"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/hostarch"
	"pintos.dev/pintos/pkg/usermem"
)

// Stack is a simple wrapper around a usermem.IO and an address. It grows
// down.
type Stack struct {
	// IO is the address space the stack lives in.
	IO usermem.IO

	// Bottom is the current stack pointer.
	Bottom hostarch.Addr

	// Limit is the lowest address the stack may grow to.
	Limit hostarch.Addr
}

// StackLayout describes the location of the arguments on the stack.
type StackLayout struct {
	// ArgvStart is the beginning of the argument strings.
	ArgvStart hostarch.Addr

	// ArgvEnd is the end of the argument strings.
	ArgvEnd hostarch.Addr

	// Argv is the address of the argv array.
	Argv hostarch.Addr

	// Argc is the number of arguments.
	Argc int
}

// grow moves Bottom down by n bytes and returns the new Bottom. It returns
// E2BIG if the stack would pass Limit.
func (s *Stack) grow(n int) (hostarch.Addr, error) {
	if n < 0 || uint64(s.Bottom) < uint64(n) || s.Bottom-hostarch.Addr(n) < s.Limit {
		return 0, kerr.E2BIG
	}
	s.Bottom -= hostarch.Addr(n)
	return s.Bottom, nil
}

// PushBytes pushes b and returns its address.
func (s *Stack) PushBytes(b []byte) (hostarch.Addr, error) {
	addr, err := s.grow(len(b))
	if err != nil {
		return 0, err
	}
	if _, err := s.IO.CopyOut(addr, b); err != nil {
		return 0, err
	}
	return addr, nil
}

// PushString pushes str with a terminating NUL and returns its address.
func (s *Stack) PushString(str string) (hostarch.Addr, error) {
	b := make([]byte, len(str)+1)
	copy(b, str)
	return s.PushBytes(b)
}

// PushWord pushes one stack slot.
func (s *Stack) PushWord(v uint32) error {
	addr, err := s.grow(pintos.WordSize)
	if err != nil {
		return err
	}
	return usermem.CopyUint32Out(s.IO, addr, v)
}

// Align rounds Bottom down to a multiple of n, which must be a power of two.
func (s *Stack) Align(n int) {
	s.Bottom &^= hostarch.Addr(n - 1)
}

// pushAddrSliceAndTerminator pushes src as an array of words followed by a
// null word, so that src[0] ends up at the lowest address.
func (s *Stack) pushAddrSliceAndTerminator(src []hostarch.Addr) error {
	// Note: Stack grows down, so push the terminator first.
	if err := s.PushWord(0); err != nil {
		return err
	}
	for i := len(src) - 1; i >= 0; i-- {
		if err := s.PushWord(uint32(src[i])); err != nil {
			return err
		}
	}
	return nil
}

// Load pushes the arguments for a new program and leaves Bottom where the
// program's stack pointer starts. From the top down the stack holds the
// argument strings, padding to a word boundary, a null pointer, the argv
// array, a pointer to argv, argc and a fake return address.
func (s *Stack) Load(args []string) (StackLayout, error) {
	l := StackLayout{ArgvEnd: s.Bottom, Argc: len(args)}

	addrs := make([]hostarch.Addr, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		addr, err := s.PushString(args[i])
		if err != nil {
			return StackLayout{}, err
		}
		addrs[i] = addr
	}
	l.ArgvStart = s.Bottom

	s.Align(pintos.WordSize)
	if err := s.pushAddrSliceAndTerminator(addrs); err != nil {
		return StackLayout{}, err
	}
	l.Argv = s.Bottom

	for _, w := range []uint32{uint32(l.Argv), uint32(l.Argc), 0} {
		if err := s.PushWord(w); err != nil {
			return StackLayout{}, err
		}
	}
	return l, nil
}
