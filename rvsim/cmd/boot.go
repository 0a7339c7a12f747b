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
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/term"
	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/sim"
	"rvkernel.dev/rvkernel/rvsim/config"
	"rvkernel.dev/rvkernel/rvsim/flag"
)

// Boot implements subcommands.Command for the "boot" command.
type Boot struct {
	scenario string
	ticks    uint64
	trace    string
	stdin    bool
}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string {
	return "boot"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string {
	return "boot the kernel on a simulated hart and run a scenario"
}

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return `boot [flags] - boot the kernel and run a scenario.

Console output goes to stdout, followed by the trace of every trap taken.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Boot) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.scenario, "scenario", "all", "scenario to run: "+strings.Join(scenarioNames(), ", ")+".")
	f.Uint64Var(&b.ticks, "ticks", 3, "timer periods to run in the timer scenario.")
	f.StringVar(&b.trace, "trace", traceText, "trap trace format: none, text, json or yaml.")
	f.BoolVar(&b.stdin, "stdin", false, "feed stdin to the firmware console input. A terminal is switched to raw mode.")
}

// Execute implements subcommands.Command.Execute.
func (b *Boot) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	if !validTraceFormat(b.trace) {
		Fatalf("invalid trace format %q", b.trace)
	}
	mc, err := conf.Machine()
	if err != nil {
		Fatalf("%v", err)
	}

	var out io.Writer = os.Stdout
	opts := runOptions{scenario: b.scenario, ticks: b.ticks}
	if b.stdin {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			old, err := term.MakeRaw(fd)
			if err != nil {
				Fatalf("setting terminal to raw mode: %v", err)
			}
			defer term.Restore(fd, old)
			out = crlfWriter{out}
		}
		pump := sim.Pump(os.Stdin)
		opts.input = pump
		opts.inputDone = func() bool {
			select {
			case <-pump.Done():
				return true
			default:
				return false
			}
		}
		opts.idle = func() { time.Sleep(time.Millisecond) }
	}
	opts.console = out
	opts.out = out

	m, k, err := run(mc, opts)
	if err != nil {
		Errorf("%v", err)
		return subcommands.ExitFailure
	}
	log.Infof("Scenario %q done: dispatcher %v, %d timer ticks, %d firmware calls", b.scenario, k.Dispatcher().State(), k.Dispatcher().Ticks(), m.Firmware().Calls())
	if err := writeTrace(out, b.trace, m.Trace()); err != nil {
		Errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// crlfWriter expands newlines for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

// Write implements io.Writer.Write.
func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
