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

// Package trap implements the supervisor trap dispatcher.
//
// A trap arrives at the vector installed in stvec. The dispatcher opens a
// Context over the hart's trap CSRs, classifies scause and routes the trap
// to the interrupt, trap or fault handler. Recoverable traps are resolved by
// editing the Context, which is written back when the handler returns.
// Anything else is fatal: the dispatcher reports it on the supervisor
// console, asks the firmware to shut the machine down and stays halted.
package trap

import (
	"time"

	"rvkernel.dev/rvkernel/pkg/console"
	"rvkernel.dev/rvkernel/pkg/hart"
	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

// State is the dispatcher lifecycle state.
type State int

// Dispatcher states. Halted is terminal.
const (
	Idle State = iota
	StateOpen
	Resumed
	Halted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case StateOpen:
		return "Open"
	case Resumed:
		return "Resumed"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// TimerDelta is the default number of time units between timer interrupts.
const TimerDelta = 10_000_000

// Options configures a Dispatcher.
type Options struct {
	// TimerDelta is the timer re-arm interval. Zero selects TimerDelta.
	TimerDelta uint64

	// Logger receives dispatcher logs. Nil selects the global logger.
	Logger log.Logger

	// TickLogInterval bounds how often timer ticks are logged. Zero
	// selects one second.
	TickLogInterval time.Duration
}

// Dispatcher routes traps to their handlers. It is driven by a single hart
// and is not safe for concurrent use.
type Dispatcher struct {
	csrs   hart.Supervisor
	client *sbi.Client
	out    *console.Handle
	width  riscv.Width
	delta  uint64

	log     log.Logger
	tickLog log.Logger

	state State
	ticks uint64
	last  *FatalError
}

// NewDispatcher returns an idle dispatcher. Reports go to out, which should
// be the supervisor console.
func NewDispatcher(csrs hart.Supervisor, client *sbi.Client, out *console.Handle, opts Options) *Dispatcher {
	if opts.TimerDelta == 0 {
		opts.TimerDelta = TimerDelta
	}
	if opts.Logger == nil {
		opts.Logger = log.Log()
	}
	if opts.TickLogInterval == 0 {
		opts.TickLogInterval = time.Second
	}
	return &Dispatcher{
		csrs:    csrs,
		client:  client,
		out:     out,
		width:   client.Width,
		delta:   opts.TimerDelta,
		log:     opts.Logger,
		tickLog: log.RateLimitedLogger(opts.Logger, opts.TickLogInterval),
	}
}

// State returns the current state.
func (d *Dispatcher) State() State {
	return d.state
}

// Ticks returns the number of timer interrupts serviced.
func (d *Dispatcher) Ticks() uint64 {
	return d.ticks
}

// Err returns the condition that halted the dispatcher, or nil.
func (d *Dispatcher) Err() *FatalError {
	return d.last
}

// Entry returns d.Handle as a trap vector entry point.
func (d *Dispatcher) Entry() hart.Entry {
	return func(regs *riscv.Registers) {
		d.Handle(regs)
	}
}

// Handle services one trap. regs is the register file saved by the entry
// stub; changes made to it are seen by the interrupted code on return.
//
// Handle returns Resumed when the interrupted code may continue and Halted
// otherwise. Once halted, Handle does nothing.
func (d *Dispatcher) Handle(regs *riscv.Registers) State {
	switch d.state {
	case Halted:
		return Halted
	case StateOpen:
		// Another trap is still being handled.
		d.halt(fatal(ReadInfo(d.csrs, d.width), ErrReentrant))
		return Halted
	}

	d.state = StateOpen
	ctx := Open(d.csrs, regs)
	defer ctx.Close()

	info := ReadInfo(d.csrs, d.width)
	if d.log.IsLogging(log.Debug) {
		d.log.Debugf("Trap %v, stval: %#x, %v", info.Exception, info.Tval, ctx)
	}

	f := d.dispatch(ctx, info)
	ctx.Close()
	if d.state == Halted {
		return Halted
	}
	if f != nil {
		d.halt(f)
		return Halted
	}
	d.state = Resumed
	return Resumed
}

func (d *Dispatcher) dispatch(ctx *Context, info Info) *FatalError {
	switch info.Exception.Kind() {
	case riscv.KindInterrupt:
		return d.handleInterrupt(ctx, info)
	case riscv.KindTrap:
		return d.handleTrap(ctx, info)
	case riscv.KindFault:
		return d.handleFault(info)
	case riscv.KindPlatform:
		return fatal(info, ErrPlatform)
	default:
		return fatal(info, ErrReserved)
	}
}

// halt reports f and stops the machine for good. The context must already be
// closed.
func (d *Dispatcher) halt(f *FatalError) {
	d.state = Halted
	d.last = f
	d.log.Warningf("Halting: %v", f)
	d.out.Printf("Kernel panic: %v\n", f)
	if err := d.client.Shutdown(); err != nil {
		d.log.Warningf("Shutdown request failed: %v", err)
	}
	// Shutdown does not return on hardware. If it does, the trapped code
	// must still never run again.
	d.csrs.Park()
}
