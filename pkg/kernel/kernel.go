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

// Package kernel brings up the supervisor on a hart: it creates the console,
// installs the trap dispatcher at the trap vector and starts the timer.
package kernel

import (
	"errors"
	"fmt"

	"rvkernel.dev/rvkernel/pkg/console"
	"rvkernel.dev/rvkernel/pkg/hart"
	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/pkg/trap"
)

// Banner is printed first at boot.
const Banner = "Hello World!"

// Options configures a Kernel.
type Options struct {
	// Trap configures the dispatcher.
	Trap trap.Options

	// FirstDeadline is the first timer deadline programmed at boot. Zero
	// makes the first timer interrupt due immediately.
	FirstDeadline uint64
}

// Kernel is the supervisor running on one hart.
type Kernel struct {
	platform   hart.Platform
	client     *sbi.Client
	console    *console.Console
	dispatcher *trap.Dispatcher
	opts       Options
}

// New creates the kernel for p. The console is created here and lives as
// long as the kernel.
func New(p hart.Platform, opts Options) *Kernel {
	client := sbi.NewClient(p, p.Width())
	cons := console.New(console.FirmwareSink{Client: client})
	return &Kernel{
		platform:   p,
		client:     client,
		console:    cons,
		dispatcher: trap.NewDispatcher(p, client, cons.Supervisor(), opts.Trap),
		opts:       opts,
	}
}

// Console returns the kernel console.
func (k *Kernel) Console() *console.Console {
	return k.console
}

// Dispatcher returns the trap dispatcher.
func (k *Kernel) Dispatcher() *trap.Dispatcher {
	return k.dispatcher
}

// Client returns the firmware client.
func (k *Kernel) Client() *sbi.Client {
	return k.client
}

// Printf writes to the console on behalf of non-trap code.
func (k *Kernel) Printf(format string, args ...any) error {
	return k.console.User().Printf(format, args...)
}

// Boot prints the banner, installs the trap vector, enables the timer
// interrupt and arms the timer. The hart must be in supervisor mode. A
// protocol violation from the firmware stops the machine and is returned.
func (k *Kernel) Boot() error {
	k.Printf("\n%s\n", Banner)
	status := riscv.Status(k.platform.ReadCSR(riscv.Sstatus))
	k.Printf("%v\n", status)
	if err := k.logFirmware(); err != nil {
		return k.stop(err)
	}

	k.InstallTrapVector()

	before := k.platform.ReadCSR(riscv.Sie)
	k.EnableInterrupt(riscv.SupervisorTimer)
	after := k.platform.ReadCSR(riscv.Sie)
	k.Printf("sie: %#x -> %#x %v\n", before, after, riscv.Interrupts(after))

	if err := k.client.SetTimer(k.opts.FirstDeadline); err != nil {
		return fmt.Errorf("arming timer: %w", err)
	}

	status = riscv.Status(k.platform.ReadCSR(riscv.Sstatus)).WithSIE(true)
	k.platform.WriteCSR(riscv.Sstatus, uint64(status))
	log.Infof("Boot complete, %v, sstatus %#x", k.platform.Width(), uint64(status))
	return nil
}

// InstallTrapVector binds the dispatcher to riscv.VectorBase and points
// stvec at it. It must run before any interrupt source is enabled.
func (k *Kernel) InstallTrapVector() {
	k.platform.InstallVector(riscv.VectorBase, k.dispatcher.Entry())
	k.platform.WriteCSR(riscv.Stvec, riscv.VectorBase)
	log.Debugf("Trap vector installed at %#x", riscv.VectorBase)
}

// EnableInterrupt sets irq's bit in sie.
func (k *Kernel) EnableInterrupt(irq riscv.Interrupt) {
	sie := k.platform.ReadCSR(riscv.Sie)
	k.platform.WriteCSR(riscv.Sie, sie|irq.Bit())
}

// logFirmware logs what the firmware reports about itself. Named SBI errors
// are logged and otherwise ignored; a protocol violation is returned.
func (k *Kernel) logFirmware() error {
	version, err := k.client.SpecVersion()
	if err != nil {
		return firmwareError("reading SBI version", err)
	}
	impl, err := k.client.ImplID()
	if err != nil {
		return firmwareError("reading SBI implementation ID", err)
	}
	implVersion, err := k.client.ImplVersion()
	if err != nil {
		return firmwareError("reading SBI implementation version", err)
	}
	log.Infof("SBI v%d.%d, implementation %#x version %#x", version>>24&0x7f, version&0xff_ffff, impl, implVersion)
	for _, ext := range []uint64{sbi.ExtTimer, sbi.ExtIPI, sbi.ExtSystemReset} {
		ok, err := k.client.ProbeExtension(ext)
		if err != nil {
			if err := firmwareError(fmt.Sprintf("probing SBI extension %#x", ext), err); err != nil {
				return err
			}
			continue
		}
		if !ok {
			log.Warningf("SBI extension %#x not available", ext)
		}
	}
	return nil
}

// firmwareError returns err wrapped if it is a protocol violation, and logs
// it and returns nil otherwise.
func firmwareError(what string, err error) error {
	if errors.As(err, new(*sbi.ProtocolViolation)) {
		return fmt.Errorf("%s: %w", what, err)
	}
	log.Warningf("%s: %v", what, err)
	return nil
}

// stop reports err on the supervisor console and stops the machine for good.
func (k *Kernel) stop(err error) error {
	log.Warningf("Halting: %v", err)
	k.console.Supervisor().Printf("Kernel panic: %v\n", err)
	if serr := k.client.Shutdown(); serr != nil {
		log.Warningf("Shutdown request failed: %v", serr)
	}
	k.platform.Park()
	return err
}
