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

package trap

import (
	"fmt"

	"rvkernel.dev/rvkernel/pkg/cleanup"
	"rvkernel.dev/rvkernel/pkg/hart"
	"rvkernel.dev/rvkernel/pkg/riscv"
)

// Context is the mutable state of the hart at the time of a trap. Handlers
// change its fields; Close commits them to the hart.
type Context struct {
	// Status is sstatus.
	Status riscv.Status

	// EPC is sepc, the address sret returns to.
	EPC uint64

	// Pending is sip.
	Pending uint64

	// Enabled is sie.
	Enabled uint64

	csrs hart.CSRFile
	regs *riscv.Registers

	// release commits the context. It runs at most once.
	release cleanup.Cleanup
}

// Open captures sstatus, sepc, sip and sie from csrs and takes the register
// file saved by the entry stub.
func Open(csrs hart.CSRFile, regs *riscv.Registers) *Context {
	c := &Context{
		Status:  riscv.Status(csrs.ReadCSR(riscv.Sstatus)),
		EPC:     csrs.ReadCSR(riscv.Sepc),
		Pending: csrs.ReadCSR(riscv.Sip),
		Enabled: csrs.ReadCSR(riscv.Sie),
		csrs:    csrs,
		regs:    regs,
	}
	c.release = cleanup.Make(c.writeBack)
	return c
}

// Registers returns the saved register file, or nil once the context is
// closed.
func (c *Context) Registers() *riscv.Registers {
	return c.regs
}

// Close writes the context back to the hart. Only the first call has any
// effect.
func (c *Context) Close() {
	c.release.Clean()
}

// Closed reports whether the context has been written back.
func (c *Context) Closed() bool {
	return c.regs == nil
}

func (c *Context) writeBack() {
	c.csrs.WriteCSR(riscv.Sstatus, uint64(c.Status))
	c.csrs.WriteCSR(riscv.Sepc, c.EPC)
	c.csrs.WriteCSR(riscv.Sip, c.Pending)
	c.csrs.WriteCSR(riscv.Sie, c.Enabled)
	c.regs = nil
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("Context{sstatus: %v, sepc: %#x, sip: %#x, sie: %#x}", c.Status, c.EPC, c.Pending, c.Enabled)
}

// Info is the read-only half of a trap: what happened and the faulting
// value.
type Info struct {
	// Cause is the raw scause value.
	Cause riscv.Cause

	// Exception is Cause classified for the machine width.
	Exception riscv.Exception

	// Tval is stval.
	Tval uint64
}

// ReadInfo reads and classifies scause and stval.
func ReadInfo(csrs hart.CSRFile, w riscv.Width) Info {
	raw := riscv.Cause(csrs.ReadCSR(riscv.Scause))
	return Info{
		Cause:     raw,
		Exception: w.Classify(raw),
		Tval:      csrs.ReadCSR(riscv.Stval),
	}
}
