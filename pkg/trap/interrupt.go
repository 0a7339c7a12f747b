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

	"rvkernel.dev/rvkernel/pkg/riscv"
)

// handleInterrupt services an interrupt. The source is disabled on entry;
// only the timer is enabled again, and only once it has been re-armed.
func (d *Dispatcher) handleInterrupt(ctx *Context, info Info) *FatalError {
	irq, _ := info.Exception.Interrupt()
	ctx.Enabled &^= irq.Bit()

	switch irq {
	case riscv.SupervisorTimer:
		return d.tick(ctx, info)
	default:
		d.log.Infof("%v interrupt, source left disabled", irq)
		return nil
	}
}

func (d *Dispatcher) tick(ctx *Context, info Info) *FatalError {
	d.ticks++
	d.out.Printf(".")

	now := d.now()
	next := now + d.delta
	if err := d.client.SetTimer(next); err != nil {
		return fatal(info, fmt.Errorf("%w: deadline %d: %w", ErrTimer, next, err))
	}
	ctx.Enabled |= riscv.SupervisorTimer.Bit()
	d.tickLog.Debugf("Timer tick %d, next deadline %d", d.ticks, next)
	return nil
}

// now reads the 64-bit time counter. On RV32 it is split across time and
// timeh; the high half is read twice to catch a carry between the reads.
func (d *Dispatcher) now() uint64 {
	if d.width != riscv.Width32 {
		return d.csrs.ReadCSR(riscv.Time)
	}
	for {
		hi := d.csrs.ReadCSR(riscv.Timeh) & 0xffff_ffff
		lo := d.csrs.ReadCSR(riscv.Time) & 0xffff_ffff
		if d.csrs.ReadCSR(riscv.Timeh)&0xffff_ffff == hi {
			return hi<<32 | lo
		}
	}
}
