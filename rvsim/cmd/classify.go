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
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/rvsim/config"
	"rvkernel.dev/rvkernel/rvsim/flag"
)

// Classify implements subcommands.Command for the "classify" command.
type Classify struct{}

// Name implements subcommands.Command.Name.
func (*Classify) Name() string {
	return "classify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Classify) Synopsis() string {
	return "classify raw scause values"
}

// Usage implements subcommands.Command.Usage.
func (*Classify) Usage() string {
	return `classify [flags] <scause>... - print the classification of each value.

Values may be decimal, or hexadecimal with a 0x prefix. The word width comes
from --xlen or the machine profile.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Classify) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Classify) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	mc, err := conf.Machine()
	if err != nil {
		Fatalf("%v", err)
	}
	if err := classify(os.Stdout, mc.Sim.Width, f.Args()); err != nil {
		Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

func classify(w io.Writer, width riscv.Width, values []string) error {
	for _, v := range values {
		raw, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid scause %q: %w", v, err)
		}
		e := width.Classify(riscv.Cause(raw))
		fmt.Fprintf(w, "%#x\t%v\t%v\n", raw, e.Kind(), e)
	}
	return nil
}
