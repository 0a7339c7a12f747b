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
	"errors"
	"fmt"
	"io"
	"sort"

	"rvkernel.dev/rvkernel/pkg/kernel"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/pkg/sim"
	"rvkernel.dev/rvkernel/rvsim/config"
)

// userPC is where simulated user code runs.
const userPC = 0x1_0000

// eot ends the echo scenario (Ctrl-D).
const eot = 0x04

// runner drives a booted machine through a scenario.
type runner struct {
	m     *sim.Machine
	k     *kernel.Kernel
	codec sbi.Codec
	delta uint64
	ticks uint64

	// out receives scenario narration.
	out io.Writer

	// inputDone reports that no more console input will arrive. idle is
	// called while waiting for input.
	inputDone func() bool
	idle      func()
}

type scenario func(r *runner) error

var scenarios = map[string]scenario{
	"all":        runAll,
	"breakpoint": runBreakpoint,
	"echo":       runEcho,
	"ecall":      runEcall,
	"fault":      runFault,
	"timer":      runTimer,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runOptions configures a scenario run.
type runOptions struct {
	scenario string
	ticks    uint64

	// console receives the firmware console; out receives narration.
	console io.Writer
	out     io.Writer

	input     sim.Input
	inputDone func() bool
	idle      func()
}

// run boots a kernel on a new machine and runs a scenario on it. It returns
// the machine even when the scenario fails.
func run(mc config.Machine, opts runOptions) (*sim.Machine, *kernel.Kernel, error) {
	sc, ok := scenarios[opts.scenario]
	if !ok {
		return nil, nil, fmt.Errorf("unknown scenario %q", opts.scenario)
	}
	mc.Sim.Console = opts.console
	mc.Sim.Input = opts.input
	m := sim.New(mc.Sim)
	k := kernel.New(m, kernel.Options{Trap: mc.Trap})
	if err := k.Boot(); err != nil {
		return m, k, fmt.Errorf("boot: %w", err)
	}

	r := &runner{
		m:         m,
		k:         k,
		codec:     sbi.Codec{Width: m.Width()},
		delta:     mc.Trap.TimerDelta,
		ticks:     opts.ticks,
		out:       opts.out,
		inputDone: opts.inputDone,
		idle:      opts.idle,
	}
	if r.inputDone == nil {
		r.inputDone = func() bool { return true }
	}
	if r.idle == nil {
		r.idle = func() {}
	}
	if err := sc(r); err != nil && !errors.Is(err, sim.ErrHalted) {
		return m, k, err
	}
	return m, k, nil
}

func runAll(r *runner) error {
	for _, sc := range []scenario{runTimer, runBreakpoint, runEcall, runFault} {
		if err := sc(r); err != nil {
			return err
		}
	}
	return nil
}

// runTimer lets the timer fire r.ticks times after the first, immediate,
// interrupt.
func runTimer(r *runner) error {
	n, err := r.m.Tick(r.ticks * r.delta)
	fmt.Fprintf(r.out, "\n[timer] %d interrupts taken, time is %d\n", n, r.m.Time())
	return err
}

func runBreakpoint(r *runner) error {
	r.m.EnterUser(userPC)
	if err := r.m.Breakpoint(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "[breakpoint] resumed at %#x\n", r.m.PC())
	return nil
}

// call issues a firmware call from user mode.
func (r *runner) call(req sbi.Request) (a0, a1 uint64, err error) {
	return r.m.UserEcall(r.codec.Encode(req))
}

func runEcall(r *runner) error {
	r.m.EnterUser(userPC)
	for _, ch := range []byte("Hello from user mode\n") {
		if _, _, err := r.call(sbi.ConsolePutChar{Char: ch}); err != nil {
			return err
		}
	}

	a0, a1, err := r.call(sbi.Base{Function: sbi.GetSpecVersion})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "[ecall] spec version: a0=%d a1=%#x\n", r.m.Width().Signed(a0), a1)

	a0, _, err = r.m.UserEcall(sbi.Registers{A7: 0x4a4f4b45})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "[ecall] unknown extension: a0=%d\n", r.m.Width().Signed(a0))
	fmt.Fprintf(r.out, "[ecall] resumed at %#x\n", r.m.PC())
	return nil
}

func runFault(r *runner) error {
	if err := r.m.Fault(riscv.LoadPageFault, 0xdead_0000); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "[fault] halted: %v\n", r.m.Halted())
	return nil
}

// runEcho copies console input back to the console from user mode until the
// input ends or an end of transmission byte is read.
func runEcho(r *runner) error {
	r.m.EnterUser(userPC)
	drained := false
	for {
		a0, _, err := r.call(sbi.ConsoleGetChar{})
		if err != nil {
			return err
		}
		if r.m.Width().Signed(a0) < 0 {
			// The last bytes may arrive just before the input ends.
			if r.inputDone() {
				if drained {
					return nil
				}
				drained = true
			}
			r.idle()
			if _, err := r.m.Tick(r.delta / 100); err != nil {
				return err
			}
			continue
		}
		ch := byte(a0)
		if ch == eot {
			return nil
		}
		if ch == '\r' {
			ch = '\n'
		}
		if _, _, err := r.call(sbi.ConsolePutChar{Char: ch}); err != nil {
			return err
		}
	}
}
