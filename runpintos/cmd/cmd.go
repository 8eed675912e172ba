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

// Package cmd holds implementations of the runpintos commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"pintos.dev/pintos/pkg/log"

	// Register the syscall table.
	_ "pintos.dev/pintos/pkg/sentry/syscalls/pintos"
)

// ErrorLogger is where error messages should be written to. These messages
// are consumed by the user, so they should not contain debug information.
var ErrorLogger io.Writer = os.Stderr

// Fatalf logs to ErrorLogger and to the debug log, and exits with status
// 128.
func Fatalf(format string, args ...any) {
	log.Warningf("FATAL ERROR: "+format, args...)
	fmt.Fprintf(ErrorLogger, format+"\n", args...)
	os.Exit(128)
}

// stringFlags can be used with string flags that appear multiple times.
type stringFlags []string

// String implements flag.Value.
func (s *stringFlags) String() string {
	return strings.Join(*s, ",")
}

// Get implements flag.Getter.
func (s *stringFlags) Get() any {
	return []string(*s)
}

// Set implements flag.Value.
func (s *stringFlags) Set(v string) error {
	if v == "" {
		return fmt.Errorf("flag value must not be empty")
	}
	*s = append(*s, v)
	return nil
}
