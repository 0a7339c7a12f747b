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
	"rvkernel.dev/rvkernel/pkg/riscv"
)

// Instruction lengths skipped when resuming past the trapping instruction.
// ebreak is taken to be the compressed c.ebreak.
const (
	breakpointLength = 2
	ecallLength      = 4
)

// handleTrap resolves a recoverable synchronous exception.
func (d *Dispatcher) handleTrap(ctx *Context, info Info) *FatalError {
	t, _ := info.Exception.Trap()
	switch t {
	case riscv.Breakpoint:
		d.out.Printf("Breakpoint at %#x\n", ctx.EPC)
		ctx.EPC = d.width.Truncate(ctx.EPC + breakpointLength)
	case riscv.EcallFromUser:
		if f := d.forward(ctx, info); f != nil {
			return f
		}
		ctx.EPC = d.width.Truncate(ctx.EPC + ecallLength)
	default:
		return fatal(info, ErrUnexpectedTrap)
	}
	return nil
}

// handleFault reports a fault. Faults are never resolved.
func (d *Dispatcher) handleFault(info Info) *FatalError {
	return fatal(info, ErrFault)
}
