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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"
	"pintos.dev/pintos/pkg/sentry/kernel"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct {
	output string
}

// SyscallDoc represents a single item of syscall documentation.
type SyscallDoc struct {
	Num  uintptr `json:"num" yaml:"num"`
	Name string  `json:"name" yaml:"name"`
	Args int     `json:"args" yaml:"args"`
	Note string  `json:"note,omitempty" yaml:"note,omitempty"`
}

type syscallsOutputFunc func(io.Writer, []SyscallDoc) error

// syscallsOutputMap maps output type names to output functions.
var syscallsOutputMap = map[string]syscallsOutputFunc{
	"table": outputSyscallsTable,
	"json":  outputSyscallsJSON,
	"yaml":  outputSyscallsYAML,
	"csv":   outputSyscallsCSV,
}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string {
	return "syscalls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "Print the system call table."
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls [options] - Print the system call table.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Syscalls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.output, "o", "table", "Output format (table, json, yaml, csv).")
}

// Execute implements subcommands.Command.Execute.
func (s *Syscalls) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := syscallsOutputMap[s.output]
	if !ok {
		Fatalf("Unsupported output format %q", s.output)
	}
	docs, err := syscallDocs()
	if err != nil {
		Fatalf("%v", err)
	}
	if err := out(os.Stdout, docs); err != nil {
		Fatalf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// syscallDocs returns the documentation of every syscall in number order.
func syscallDocs() ([]SyscallDoc, error) {
	t, ok := kernel.LookupSyscallTable(kernel.ABIName)
	if !ok {
		return nil, fmt.Errorf("syscall table %q not found", kernel.ABIName)
	}
	var docs []SyscallDoc
	for _, num := range t.Sysnos() {
		sc := t.Table[num]
		docs = append(docs, SyscallDoc{
			Num:  num,
			Name: sc.Name,
			Args: sc.ArgCount,
			Note: sc.Note,
		})
	}
	return docs, nil
}

// outputSyscallsTable outputs the syscall info in tabular format.
func outputSyscallsTable(w io.Writer, docs []SyscallDoc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", "NUM", "NAME", "ARGS", "NOTE"); err != nil {
		return err
	}
	for _, sc := range docs {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", sc.Num, sc.Name, sc.Args, sc.Note); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// outputSyscallsJSON outputs the syscall info in JSON format.
func outputSyscallsJSON(w io.Writer, docs []SyscallDoc) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(docs)
}

// outputSyscallsYAML outputs the syscall info in YAML format.
func outputSyscallsYAML(w io.Writer, docs []SyscallDoc) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(docs); err != nil {
		return err
	}
	return e.Close()
}

// outputSyscallsCSV outputs the syscall info in CSV format.
func outputSyscallsCSV(w io.Writer, docs []SyscallDoc) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"Num", "Name", "Args", "Note"}); err != nil {
		return err
	}
	for _, sc := range docs {
		row := []string{
			strconv.FormatUint(uint64(sc.Num), 10),
			sc.Name,
			strconv.Itoa(sc.Args),
			sc.Note,
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
