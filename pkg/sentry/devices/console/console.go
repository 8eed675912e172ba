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

// Package console implements the machine console: a byte-at-a-time input
// device and an output device that writes whole buffers.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/containerd/console"
	"golang.org/x/term"
	"pintos.dev/pintos/pkg/log"
)

// Device is the console device.
//
// Device is not safe for concurrent use; the kernel serializes access to it.
type Device struct {
	in  *bufio.Reader
	out io.Writer

	// raw is the host terminal in raw mode, or nil.
	raw console.Console

	// bytesRead and bytesWritten are statistics.
	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
}

// New returns a Device reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Device {
	return &Device{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// NewTerminal returns a Device over the terminal f, with the terminal put
// into raw mode so that input is delivered one key at a time. Output
// processing stays on, so the terminal still maps newlines. Close restores
// the terminal.
func NewTerminal(f *os.File) (*Device, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}
	c, err := console.ConsoleFromFile(f)
	if err != nil {
		return nil, fmt.Errorf("error opening console %s: %w", f.Name(), err)
	}
	if err := c.SetRaw(); err != nil {
		return nil, fmt.Errorf("error setting console %s to raw mode: %w", f.Name(), err)
	}
	if size, err := c.Size(); err == nil {
		log.Debugf("console %s: %dx%d", f.Name(), size.Width, size.Height)
	}
	d := New(f, f)
	d.raw = c
	return d, nil
}

// Getc reads one byte of input. It returns io.EOF once input is exhausted.
func (d *Device) Getc() (byte, error) {
	b, err := d.in.ReadByte()
	if err != nil {
		return 0, err
	}
	d.bytesRead.Add(1)
	return b, nil
}

// Putbuf writes all of p to the console and returns len(p) on success.
func (d *Device) Putbuf(p []byte) (int, error) {
	if _, err := d.out.Write(p); err != nil {
		return 0, err
	}
	d.bytesWritten.Add(int64(len(p)))
	return len(p), nil
}

// Write implements io.Writer.Write.
func (d *Device) Write(p []byte) (int, error) {
	return d.Putbuf(p)
}

// BytesRead returns the number of input bytes consumed.
func (d *Device) BytesRead() int64 {
	return d.bytesRead.Load()
}

// BytesWritten returns the number of output bytes written.
func (d *Device) BytesWritten() int64 {
	return d.bytesWritten.Load()
}

// Close restores the host terminal, if any.
func (d *Device) Close() error {
	if d.raw == nil {
		return nil
	}
	return d.raw.Reset()
}
