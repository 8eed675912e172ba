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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"
	"pintos.dev/pintos/pkg/sentry/loader"
	"pintos.dev/pintos/pkg/userprogs"
)

// Programs implements subcommands.Command for the "programs" command.
type Programs struct {
	output string
}

// ProgramDoc describes one built-in user program.
type ProgramDoc struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Name implements subcommands.Command.Name.
func (*Programs) Name() string {
	return "programs"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Programs) Synopsis() string {
	return "List the user programs the machine can run."
}

// Usage implements subcommands.Command.Usage.
func (*Programs) Usage() string {
	return `programs [options] - List the user programs the machine can run.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Programs) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.output, "o", "table", "Output format (table, json, yaml).")
}

// Execute implements subcommands.Command.Execute.
func (p *Programs) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	docs, err := programDocs()
	if err != nil {
		Fatalf("%v", err)
	}
	if err := outputPrograms(os.Stdout, p.output, docs); err != nil {
		Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

// programDocs lists the programs a machine's loader would know.
func programDocs() ([]ProgramDoc, error) {
	l := loader.New(loader.Options{})
	if err := userprogs.Register(l); err != nil {
		return nil, err
	}
	var docs []ProgramDoc
	for _, p := range l.Programs() {
		docs = append(docs, ProgramDoc{Name: p.Name, Description: p.Description})
	}
	return docs, nil
}

func outputPrograms(w io.Writer, format string, docs []ProgramDoc) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description)
		}
		return tw.Flush()
	case "json":
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(docs)
	case "yaml":
		return yaml.NewEncoder(w).Encode(docs)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
