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
	"flag"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"pintos.dev/pintos/pkg/log"
	"pintos.dev/pintos/runpintos/config"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// put lists host files to copy into the guest.
	put stringFlags

	// stdin is a file to read console input from instead of standard
	// input.
	stdin string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "boot a machine and run a user program"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <program> [args...] - boot a machine, run the command line as the
initial process and power off when it exits or the machine halts.

The exit status is the status of the initial process, or 0 if the machine
was halted.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.Var(&r.put, "put", "host file to copy into the guest filesystem before running, as host[:guest]. May be repeated.")
	f.StringVar(&r.stdin, "stdin", "", "file to read console input from instead of standard input.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config).Copy()
	exitStatus := args[1].(*int)

	conf.Put = append(conf.Put, r.put...)
	if err := conf.Validate(); err != nil {
		Fatalf("%v", err)
	}

	var stdin io.Reader = os.Stdin
	if r.stdin != "" {
		in, err := os.Open(r.stdin)
		if err != nil {
			Fatalf("error opening console input: %v", err)
		}
		defer in.Close()
		stdin = in
	}

	cmdline := strings.Join(f.Args(), " ")
	res, err := runMachine(ctx, conf, cmdline, stdin, os.Stdout)
	if err != nil {
		Fatalf("%v", err)
	}
	if res.halted {
		log.Infof("Machine halted")
		*exitStatus = 0
	} else {
		log.Infof("%q exited with status %d", cmdline, res.status)
		*exitStatus = int(uint8(res.status))
	}
	return subcommands.ExitSuccess
}
