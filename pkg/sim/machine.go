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

// Package sim simulates a single RISC-V hart running in supervisor mode on
// top of SBI firmware.
//
// The simulator models only what the supervisor observes: the supervisor
// CSRs, the register file, the privilege mode, hardware trap entry and sret,
// and the firmware's answers to ecall. Instructions are not executed; tests
// and the rvsim command drive the hart by raising traps and advancing time.
package sim

import (
	"errors"
	"fmt"

	"rvkernel.dev/rvkernel/pkg/bits"
	"rvkernel.dev/rvkernel/pkg/hart"
	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

var (
	// ErrHalted is returned when driving a machine that has shut down.
	ErrHalted = errors.New("machine halted")

	// ErrNoVector is returned when a trap is taken with no code at stvec.
	ErrNoVector = errors.New("no trap vector installed at stvec")
)

// Config describes a machine.
type Config struct {
	// Width is the machine word width. Zero selects Width64.
	Width riscv.Width

	// Identity is reported by the firmware's base extension.
	Identity Identity

	// Time is the initial value of the time counter.
	Time uint64

	// Console receives bytes written with the legacy putchar call. May be
	// nil.
	Console ConsoleWriter

	// Input answers the legacy getchar call. May be nil.
	Input Input
}

// ConsoleWriter is where the firmware console writes.
type ConsoleWriter interface {
	Write(p []byte) (int, error)
}

// writableSip is the part of sip the supervisor may change.
var writableSip = riscv.SupervisorSoftware.Bit()

// Machine is a simulated hart. It implements hart.Platform.
//
// Machine is not safe for concurrent use.
type Machine struct {
	width riscv.Width

	// csr holds the supervisor CSRs other than time and timeh.
	csr  map[riscv.CSR]uint64
	time uint64
	regs riscv.Registers
	pc   uint64
	mode riscv.Mode

	// parked is set once the supervisor gives up the hart.
	parked bool

	vectors  map[uint64]hart.Entry
	firmware *Firmware

	trace   []Event
	pending *Event
}

var _ hart.Platform = (*Machine)(nil)

// New returns a machine in supervisor mode with all interrupts disabled.
func New(cfg Config) *Machine {
	if cfg.Width == 0 {
		cfg.Width = riscv.Width64
	}
	if cfg.Identity == (Identity{}) {
		cfg.Identity = DefaultIdentity
	}
	m := &Machine{
		width: cfg.Width,
		csr: map[riscv.CSR]uint64{
			riscv.Sstatus:  0,
			riscv.Sie:      0,
			riscv.Stvec:    0,
			riscv.Sscratch: 0,
			riscv.Sepc:     0,
			riscv.Scause:   0,
			riscv.Stval:    0,
			riscv.Sip:      0,
		},
		time:    cfg.Time,
		mode:    riscv.Supervisor,
		vectors: make(map[uint64]hart.Entry),
	}
	m.firmware = newFirmware(m, cfg)
	return m
}

// Width implements hart.Platform.Width.
func (m *Machine) Width() riscv.Width {
	return m.width
}

// ReadCSR implements hart.CSRFile.ReadCSR.
func (m *Machine) ReadCSR(c riscv.CSR) uint64 {
	switch c {
	case riscv.Time:
		return m.width.Truncate(m.time)
	case riscv.Timeh:
		return m.time >> 32
	}
	v, ok := m.csr[c]
	if !ok {
		panic(fmt.Sprintf("read of unimplemented CSR %v", c))
	}
	return v
}

// WriteCSR implements hart.CSRFile.WriteCSR.
func (m *Machine) WriteCSR(c riscv.CSR, v uint64) {
	v = m.width.Truncate(v)
	switch c {
	case riscv.Time, riscv.Timeh:
		panic(fmt.Sprintf("write to read-only CSR %v", c))
	case riscv.Sip:
		v = m.csr[riscv.Sip]&^writableSip | v&writableSip
	case riscv.Sie:
		v &= riscv.InterruptMask
	}
	if _, ok := m.csr[c]; !ok {
		panic(fmt.Sprintf("write to unimplemented CSR %v", c))
	}
	m.csr[c] = v
}

// Ecall implements sbi.Caller.Ecall by passing the call to the firmware.
func (m *Machine) Ecall(in sbi.Registers) (uint64, uint64) {
	if m.pending != nil {
		m.pending.Calls = append(m.pending.Calls, in)
	}
	return m.firmware.call(in)
}

// InstallVector implements hart.VectorInstaller.InstallVector.
func (m *Machine) InstallVector(base uint64, entry hart.Entry) {
	m.vectors[base] = entry
}

// Firmware returns the machine's firmware.
func (m *Machine) Firmware() *Firmware {
	return m.firmware
}

// Halted reports whether the firmware has shut the machine down or the
// supervisor has parked the hart.
func (m *Machine) Halted() bool {
	return m.firmware.halted || m.parked
}

// Park implements hart.Parker.Park. The pending trap does not return and the
// machine takes no further traps.
func (m *Machine) Park() {
	m.parked = true
}

// Parked reports whether the hart was parked.
func (m *Machine) Parked() bool {
	return m.parked
}

// Registers returns the register file.
func (m *Machine) Registers() *riscv.Registers {
	return &m.regs
}

// PC returns the program counter.
func (m *Machine) PC() uint64 {
	return m.pc
}

// SetPC sets the program counter.
func (m *Machine) SetPC(pc uint64) {
	m.pc = m.width.Truncate(pc)
}

// Mode returns the current privilege mode.
func (m *Machine) Mode() riscv.Mode {
	return m.mode
}

// EnterUser drops to user mode at pc, as sret with SPP clear would.
func (m *Machine) EnterUser(pc uint64) {
	m.mode = riscv.User
	m.SetPC(pc)
}

// Time returns the time counter.
func (m *Machine) Time() uint64 {
	return m.time
}

// Trap takes a trap with the given cause and stval, runs the code installed
// at stvec and, unless the machine halted, returns from it with sret.
func (m *Machine) Trap(cause riscv.Cause, tval uint64) error {
	if m.Halted() {
		return ErrHalted
	}
	base := m.csr[riscv.Stvec] &^ 0x3
	entry, ok := m.vectors[base]
	if !ok {
		return fmt.Errorf("%w: stvec %#x, cause %v", ErrNoVector, m.csr[riscv.Stvec], m.width.Classify(cause))
	}

	// Hardware trap entry.
	status := riscv.Status(m.csr[riscv.Sstatus])
	status = status.WithSPIE(status.SIE()).WithSIE(false).WithSPP(m.mode)
	m.csr[riscv.Sstatus] = uint64(status)
	m.csr[riscv.Sepc] = m.pc
	m.csr[riscv.Scause] = m.width.Truncate(uint64(cause))
	m.csr[riscv.Stval] = m.width.Truncate(tval)
	m.mode = riscv.Supervisor
	m.pc = base

	ev := &Event{
		Time:      m.time,
		Cause:     uint64(cause),
		Exception: m.width.Classify(cause).String(),
		Tval:      tval,
		EPC:       m.csr[riscv.Sepc],
		From:      status.SPP().String(),
	}
	outer := m.pending
	m.pending = ev
	log.Debugf("Trap %v at %#x", m.width.Classify(cause), ev.EPC)

	// The entry stub saves the register file and restores it on return.
	frame := m.regs
	entry(&frame)
	m.regs = frame

	m.pending = outer
	ev.Seq = len(m.trace)
	ev.Halted = m.Halted()
	if !ev.Halted {
		m.sret()
		ev.Resume = m.pc
		ev.To = m.mode.String()
	}
	m.trace = append(m.trace, *ev)
	return nil
}

// sret returns from the trap.
func (m *Machine) sret() {
	status := riscv.Status(m.csr[riscv.Sstatus])
	m.mode = status.SPP()
	status = status.WithSIE(status.SPIE()).WithSPIE(true).WithSPP(riscv.User)
	m.csr[riscv.Sstatus] = uint64(status)
	m.pc = m.csr[riscv.Sepc]
}

// Breakpoint executes c.ebreak at the current pc.
func (m *Machine) Breakpoint() error {
	return m.Trap(riscv.Cause(riscv.Breakpoint), m.pc)
}

// Fault takes fault f with stval addr.
func (m *Machine) Fault(f riscv.Fault, addr uint64) error {
	return m.Trap(riscv.Cause(f), addr)
}

// UserEcall executes ecall from user mode at the current pc with the call
// registers loaded, and returns a0 and a1 as seen by user code afterwards.
func (m *Machine) UserEcall(call sbi.Registers) (a0, a1 uint64, err error) {
	if m.Halted() {
		return 0, 0, ErrHalted
	}
	m.mode = riscv.User
	m.regs.X[riscv.A0] = m.width.Truncate(call.A0)
	m.regs.X[riscv.A1] = m.width.Truncate(call.A1)
	m.regs.X[riscv.A6] = m.width.Truncate(call.A6)
	m.regs.X[riscv.A7] = m.width.Truncate(call.A7)
	if err := m.Trap(riscv.Cause(riscv.EcallFromUser), 0); err != nil {
		return 0, 0, err
	}
	return m.regs.X[riscv.A0], m.regs.X[riscv.A1], nil
}

// Interrupts in the order the hart takes them when several are pending.
var interruptPriority = []riscv.Interrupt{
	riscv.SupervisorExternal,
	riscv.SupervisorSoftware,
	riscv.SupervisorTimer,
}

// deliverable returns the highest priority interrupt that is pending,
// enabled and not masked by sstatus.SIE.
func (m *Machine) deliverable() (riscv.Interrupt, bool) {
	if m.mode == riscv.Supervisor && !riscv.Status(m.csr[riscv.Sstatus]).SIE() {
		return 0, false
	}
	if !bits.IsAnyOn64(m.csr[riscv.Sip], m.csr[riscv.Sie]) {
		return 0, false
	}
	ready := m.csr[riscv.Sip] & m.csr[riscv.Sie]
	for _, irq := range interruptPriority {
		if bits.IsOn64(ready, irq.Bit()) {
			return irq, true
		}
	}
	return 0, false
}

// interrupt takes irq.
func (m *Machine) interrupt(irq riscv.Interrupt) error {
	return m.Trap(riscv.Cause(m.width.TopBit()|uint64(irq)), 0)
}

// Poll takes every interrupt that is deliverable now. It returns the number
// taken.
func (m *Machine) Poll() (int, error) {
	n := 0
	for !m.Halted() {
		irq, ok := m.deliverable()
		if !ok {
			break
		}
		if err := m.interrupt(irq); err != nil {
			return n, err
		}
		n++
		// An interrupt that is still deliverable after its handler ran
		// would be taken forever.
		if again, ok := m.deliverable(); ok && again == irq {
			return n, fmt.Errorf("interrupt %v still pending after handler returned", irq)
		}
	}
	return n, nil
}

// Tick advances time by n, raising the timer interrupt at each deadline and
// taking interrupts as they become deliverable. It returns the number of
// interrupts taken.
func (m *Machine) Tick(n uint64) (int, error) {
	if m.Halted() {
		return 0, ErrHalted
	}
	end := m.time + n
	taken := 0
	for {
		m.firmware.updateTimer()
		k, err := m.Poll()
		taken += k
		if err != nil || m.Halted() || m.time == end {
			return taken, err
		}
		next := end
		if d, ok := m.firmware.Deadline(); ok && d > m.time && d < end {
			next = d
		}
		m.time = next
	}
}
