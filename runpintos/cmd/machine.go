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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"pintos.dev/pintos/pkg/errors/kerr"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/pkg/metric"
	"pintos.dev/pintos/pkg/sentry/devices/console"
	"pintos.dev/pintos/pkg/sentry/fsimpl/hostfs"
	"pintos.dev/pintos/pkg/sentry/fsimpl/memfs"
	"pintos.dev/pintos/pkg/sentry/kernel"
	"pintos.dev/pintos/pkg/sentry/loader"
	"pintos.dev/pintos/pkg/sentry/strace"
	"pintos.dev/pintos/pkg/sentry/vfs"
	"pintos.dev/pintos/pkg/userprogs"
	"pintos.dev/pintos/runpintos/config"
)

// maxParallelReads bounds the host files read at once while preloading.
const maxParallelReads = 4

// machineResult is the outcome of running a machine.
type machineResult struct {
	// status is the exit status of the initial process.
	status int32

	// halted is true if the machine was halted before the initial process
	// exited.
	halted bool
}

// runMachine boots a machine configured by conf, runs cmdline as the initial
// process with the console attached to stdin and stdout, and powers off.
// Canceling ctx halts the machine.
func runMachine(ctx context.Context, conf *config.Config, cmdline string, stdin io.Reader, stdout io.Writer) (machineResult, error) {
	fs, release, err := newFilesystem(ctx, conf)
	if err != nil {
		return machineResult{}, err
	}
	defer release()

	if err := putFiles(ctx, fs, conf.Put); err != nil {
		return machineResult{}, err
	}

	cons, err := newConsole(conf, stdin, stdout)
	if err != nil {
		return machineResult{}, err
	}
	defer cons.Close()

	l := loader.New(loader.Options{
		StackPages: conf.StackPages,
		DataPages:  conf.DataPages,
	})
	if err := userprogs.Register(l); err != nil {
		return machineResult{}, err
	}

	var tracer kernel.Tracer
	if conf.Strace {
		st, err := strace.New(conf.StraceOptions(log.Log()))
		if err != nil {
			return machineResult{}, fmt.Errorf("error enabling strace: %w", err)
		}
		tracer = st
	}

	metrics := metric.NewRegistry()
	k, err := kernel.New(kernel.InitKernelArgs{
		Filesystem:      fs,
		Console:         cons,
		Loader:          l,
		MaxOpenFiles:    conf.MaxOpenFiles,
		MaxTasks:        conf.MaxProcesses,
		UnknownSyscall:  conf.UnknownSyscallPolicy(),
		Tracer:          tracer,
		Metrics:         metrics,
		ShutdownTimeout: conf.ShutdownTimeout,
	})
	if err != nil {
		return machineResult{}, fmt.Errorf("error creating kernel: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		log.Infof("Interrupted, halting the machine")
		k.Halt()
	})
	defer stop()

	status, halted, err := k.Run(cmdline)
	if err != nil {
		return machineResult{}, err
	}
	log.Infof("Console: %d bytes read, %d bytes written", cons.BytesRead(), cons.BytesWritten())

	if conf.MetricsFile != "" {
		if err := writeMetrics(conf.MetricsFile, metrics); err != nil {
			return machineResult{}, err
		}
	}
	return machineResult{status: status, halted: halted}, nil
}

// newFilesystem returns the filesystem conf selects and a function that
// releases it.
func newFilesystem(ctx context.Context, conf *config.Config) (vfs.Filesystem, func(), error) {
	switch conf.Filesystem {
	case config.FilesystemHost:
		fs, err := hostfs.New(ctx, conf.HostRoot, hostfs.Options{Grow: conf.GrowFiles})
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {
			if err := fs.Release(); err != nil {
				log.Warningf("Error releasing %s: %v", conf.HostRoot, err)
			}
		}, nil
	default:
		fs := memfs.New(memfs.Options{
			Capacity: conf.DiskSize,
			MaxFiles: conf.MaxFiles,
			Grow:     conf.GrowFiles,
		})
		return fs, func() { log.Debugf("Dropping %s", fs) }, nil
	}
}

// newConsole returns a console over stdin and stdout. With RawConsole set
// and stdin a terminal, the terminal is switched to raw mode.
func newConsole(conf *config.Config, stdin io.Reader, stdout io.Writer) (*console.Device, error) {
	if conf.RawConsole {
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return console.NewTerminal(f)
		}
		log.Warningf("Console input is not a terminal, ignoring --raw-console")
	}
	return console.New(stdin, stdout), nil
}

// putFile is a host file read for preloading.
type putFile struct {
	guest string
	data  []byte
}

// putFiles copies the host files named by mappings into fs. Host files are
// read in parallel; guest files are created in order, replacing any that
// exist.
func putFiles(ctx context.Context, fs vfs.Filesystem, mappings []string) error {
	files := make([]putFile, len(mappings))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, m := range mappings {
		i := i
		host, guest, err := config.ParsePut(m)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(host)
			if err != nil {
				return fmt.Errorf("error reading %q: %w", host, err)
			}
			files[i] = putFile{guest: guest, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range files {
		if err := putOne(fs, f); err != nil {
			return fmt.Errorf("error copying %q into the guest: %w", f.guest, err)
		}
		log.Infof("Put %q (%d bytes)", f.guest, len(f.data))
	}
	return nil
}

func putOne(fs vfs.Filesystem, f putFile) error {
	err := fs.Create(f.guest, int64(len(f.data)))
	if errors.Is(err, kerr.EEXIST) {
		if err := fs.Remove(f.guest); err != nil {
			return err
		}
		err = fs.Create(f.guest, int64(len(f.data)))
	}
	if err != nil {
		return err
	}
	fd, err := fs.Open(f.guest)
	if err != nil {
		return err
	}
	defer fd.DecRef()
	n, err := fd.Write(f.data)
	if err != nil {
		return err
	}
	if n != len(f.data) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(f.data))
	}
	return nil
}

func writeMetrics(path string, r *metric.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating metrics file: %w", err)
	}
	if err := r.WriteText(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing metrics file: %w", err)
	}
	return f.Close()
}
